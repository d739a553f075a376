/*
reports.go - Read-only aggregations for reports and the dashboard

These are presentation-feeding summaries computed from the same stores
the engine mutates: income over a period, per-program occupancy,
per-service uptake, and overall counts. They never write.
*/
package booking

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// IncomeReport summarizes completed payments over a period.
type IncomeReport struct {
	From         time.Time
	To           time.Time
	Total        decimal.Decimal
	PaymentCount int
}

// ProgramOccupancy is the capacity picture of one training program.
type ProgramOccupancy struct {
	ProgramID         string
	Name              string
	TotalCapacity     int
	AvailableCapacity int
	Occupied          int
}

// ServiceUptake counts contracts per security service.
type ServiceUptake struct {
	ServiceID     string
	Name          string
	ContractCount int
	ActiveCount   int // contracts in a confirming state
}

// Summary is the dashboard aggregate.
type Summary struct {
	Clients             int
	ActivePrograms      int
	ActiveServices      int
	ReservationsByState map[BookingState]int
	ContractsByState    map[BookingState]int
	CompletedTotal      decimal.Decimal
}

// Reports computes read-only aggregations.
type Reports struct {
	Store Store
}

// Income reports completed payments in [from, to].
func (rp *Reports) Income(ctx context.Context, from, to time.Time) (*IncomeReport, error) {
	payments, err := rp.Store.ListPayments(ctx, PaymentFilter{State: PaymentCompleted, From: from, To: to})
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return &IncomeReport{From: from, To: to, Total: total, PaymentCount: len(payments)}, nil
}

// Occupancy reports slot usage per training program.
func (rp *Reports) Occupancy(ctx context.Context) ([]ProgramOccupancy, error) {
	programs, err := rp.Store.ListPrograms(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ProgramOccupancy, 0, len(programs))
	for _, p := range programs {
		out = append(out, ProgramOccupancy{
			ProgramID:         p.ID,
			Name:              p.Name,
			TotalCapacity:     p.TotalCapacity,
			AvailableCapacity: p.AvailableCapacity,
			Occupied:          p.TotalCapacity - p.AvailableCapacity,
		})
	}
	return out, nil
}

// Uptake counts contracts per security service.
func (rp *Reports) Uptake(ctx context.Context) ([]ServiceUptake, error) {
	services, err := rp.Store.ListServices(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ServiceUptake, 0, len(services))
	for _, s := range services {
		contracts, err := rp.Store.ListContracts(ctx, ContractFilter{ServiceID: s.ID})
		if err != nil {
			return nil, err
		}
		u := ServiceUptake{ServiceID: s.ID, Name: s.Name, ContractCount: len(contracts)}
		for _, c := range contracts {
			if c.State.IsConfirming() {
				u.ActiveCount++
			}
		}
		out = append(out, u)
	}
	return out, nil
}

// Dashboard computes the overall counts.
func (rp *Reports) Dashboard(ctx context.Context) (*Summary, error) {
	s := &Summary{
		ReservationsByState: make(map[BookingState]int),
		ContractsByState:    make(map[BookingState]int),
		CompletedTotal:      decimal.Zero,
	}

	clients, err := rp.Store.ListClients(ctx)
	if err != nil {
		return nil, err
	}
	s.Clients = len(clients)

	programs, err := rp.Store.ListPrograms(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range programs {
		if p.Active {
			s.ActivePrograms++
		}
	}

	services, err := rp.Store.ListServices(ctx)
	if err != nil {
		return nil, err
	}
	for _, sv := range services {
		if sv.Active {
			s.ActiveServices++
		}
	}

	reservations, err := rp.Store.ListReservations(ctx, ReservationFilter{})
	if err != nil {
		return nil, err
	}
	for _, r := range reservations {
		s.ReservationsByState[r.State]++
	}

	contracts, err := rp.Store.ListContracts(ctx, ContractFilter{})
	if err != nil {
		return nil, err
	}
	for _, c := range contracts {
		s.ContractsByState[c.State]++
	}

	payments, err := rp.Store.ListPayments(ctx, PaymentFilter{State: PaymentCompleted})
	if err != nil {
		return nil, err
	}
	for _, p := range payments {
		s.CompletedTotal = s.CompletedTotal.Add(p.Amount)
	}

	return s, nil
}
