/*
reconcile.go - Payments-vs-price reconciliation

For a contract, reconciliation compares the exact-decimal sum of its
COMPLETED payments against the contracted service price. A contract is
reconciled when total paid covers the price. The engine reads contracts
and payments independently of the state machine, on demand, and never
errors except for a missing contract.
*/
package booking

import (
	"context"

	"github.com/shopspring/decimal"
)

// Reconciliation is the result of reconciling one contract.
type Reconciliation struct {
	ContractID   string
	ClientName   string
	ServiceName  string
	AmountOwed   decimal.Decimal
	TotalPaid    decimal.Decimal
	Diff         decimal.Decimal // AmountOwed - TotalPaid
	PaymentCount int
	Payments     []Payment
	Reconciled   bool // TotalPaid >= AmountOwed
}

// Reconciler compares amounts paid against amounts owed per contract.
type Reconciler struct {
	Store Store
}

// ReconcileOne reconciles a single contract. Absent prices and payments
// count as zero; a missing contract is the only error.
func (rc *Reconciler) ReconcileOne(ctx context.Context, contractID string) (*Reconciliation, error) {
	detail, err := rc.Store.GetContractDetail(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if detail == nil {
		return nil, &NotFoundError{Kind: "contract", ID: contractID}
	}

	payments, err := rc.Store.CompletedPaymentsForContract(ctx, contractID)
	if err != nil {
		return nil, err
	}

	totalPaid := decimal.Zero
	for _, p := range payments {
		totalPaid = totalPaid.Add(p.Amount)
	}

	owed := decimal.Zero
	serviceName := "N/A"
	if detail.Service != nil {
		owed = detail.Service.Price
		serviceName = detail.Service.Name
	}

	clientName := "N/A"
	if detail.Client != nil {
		clientName = detail.Client.Name
	}

	return &Reconciliation{
		ContractID:   contractID,
		ClientName:   clientName,
		ServiceName:  serviceName,
		AmountOwed:   owed,
		TotalPaid:    totalPaid,
		Diff:         owed.Sub(totalPaid),
		PaymentCount: len(payments),
		Payments:     payments,
		Reconciled:   totalPaid.GreaterThanOrEqual(owed),
	}, nil
}

// ReconcileAll reconciles every contract that is not cancelled and has a
// linked service, collecting successes only.
func (rc *Reconciler) ReconcileAll(ctx context.Context) ([]Reconciliation, error) {
	contracts, err := rc.Store.ListContracts(ctx, ContractFilter{})
	if err != nil {
		return nil, err
	}

	var results []Reconciliation
	for _, c := range contracts {
		if c.State == StateCancelled || c.ServiceID == "" {
			continue
		}
		r, err := rc.ReconcileOne(ctx, c.ID)
		if err != nil {
			continue
		}
		results = append(results, *r)
	}
	return results, nil
}
