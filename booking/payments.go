/*
payments.go - Payment intake

Validation happens here, before anything reaches the stores: the client
reference is mandatory and must resolve, the amount must be positive. A
contract reference that does not resolve is dropped rather than failing
the payment, matching how the booking desk actually operates: money is
recorded even when the paperwork lags.
*/
package booking

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentService validates and records payments.
type PaymentService struct {
	Store Store
}

// CreatePayment validates and persists a payment. The amount is
// immutable once created; there is no partial-amount correction.
func (ps *PaymentService) CreatePayment(ctx context.Context, p Payment) (Payment, error) {
	if p.ClientID == "" {
		return Payment{}, &ValidationError{Field: "client_id", Reason: "required"}
	}
	client, err := ps.Store.GetClient(ctx, p.ClientID)
	if err != nil {
		return Payment{}, err
	}
	if client == nil {
		return Payment{}, &NotFoundError{Kind: "client", ID: p.ClientID}
	}

	if !p.Amount.IsPositive() {
		return Payment{}, &ValidationError{Field: "amount", Reason: "must be positive"}
	}

	// A dangling contract reference is dropped, not fatal.
	if p.ContractID != "" {
		contract, err := ps.Store.GetContract(ctx, p.ContractID)
		if err != nil {
			return Payment{}, err
		}
		if contract == nil {
			p.ContractID = ""
		}
	}

	if p.State == "" {
		p.State = PaymentPending
	}
	if p.PaidAt.IsZero() {
		p.PaidAt = time.Now().UTC().Truncate(24 * time.Hour)
	}

	return ps.Store.SavePayment(ctx, p)
}

// DeletePayment removes a payment record.
func (ps *PaymentService) DeletePayment(ctx context.Context, id string) error {
	existing, err := ps.Store.GetPayment(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return &NotFoundError{Kind: "payment", ID: id}
	}
	return ps.Store.DeletePayment(ctx, id)
}

// IncomeBetween sums completed payment amounts in [from, to].
func (ps *PaymentService) IncomeBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	return ps.Store.CompletedTotalBetween(ctx, from, to)
}
