// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aegisops/booking-engine/booking"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements booking.Store with maps guarded by a single mutex.
// The mutex also serializes TryReserveSlot, which is what makes the
// capacity check-and-decrement atomic here.
type Memory struct {
	mu           sync.RWMutex
	clients      map[string]booking.Client
	programs     map[string]booking.Program
	services     map[string]booking.SecurityService
	reservations map[string]booking.Reservation
	contracts    map[string]booking.Contract
	payments     map[string]booking.Payment
}

func NewMemory() *Memory {
	return &Memory{
		clients:      make(map[string]booking.Client),
		programs:     make(map[string]booking.Program),
		services:     make(map[string]booking.SecurityService),
		reservations: make(map[string]booking.Reservation),
		contracts:    make(map[string]booking.Contract),
		payments:     make(map[string]booking.Payment),
	}
}

// =============================================================================
// CLIENTS
// =============================================================================

func (m *Memory) SaveClient(_ context.Context, c booking.Client) (booking.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = booking.NewID()
	}
	m.clients[c.ID] = c
	return c, nil
}

func (m *Memory) GetClient(_ context.Context, id string) (*booking.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.clients[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (m *Memory) ListClients(_ context.Context) ([]booking.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]booking.Client, 0, len(m.clients))
	for _, c := range m.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) DeleteClient(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clients, id)
	return nil
}

// =============================================================================
// PROGRAMS
// =============================================================================

func (m *Memory) SaveProgram(_ context.Context, p booking.Program) (booking.Program, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = booking.NewID()
	}
	m.programs[p.ID] = p
	return p, nil
}

func (m *Memory) GetProgram(_ context.Context, id string) (*booking.Program, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.programs[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (m *Memory) ListPrograms(_ context.Context) ([]booking.Program, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]booking.Program, 0, len(m.programs))
	for _, p := range m.programs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) DeleteProgram(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.programs, id)
	return nil
}

// =============================================================================
// CAPACITY LEDGER
// =============================================================================

func (m *Memory) TryReserveSlot(_ context.Context, programID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.programs[programID]
	if !ok {
		return false, &booking.NotFoundError{Kind: "program", ID: programID}
	}
	if p.AvailableCapacity <= 0 {
		return false, nil
	}
	p.AvailableCapacity--
	m.programs[programID] = p
	return true, nil
}

func (m *Memory) ReleaseSlot(_ context.Context, programID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.programs[programID]
	if !ok {
		return &booking.NotFoundError{Kind: "program", ID: programID}
	}
	if p.AvailableCapacity < p.TotalCapacity {
		p.AvailableCapacity++
	}
	m.programs[programID] = p
	return nil
}

// =============================================================================
// SECURITY SERVICES
// =============================================================================

func (m *Memory) SaveService(_ context.Context, s booking.SecurityService) (booking.SecurityService, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == "" {
		s.ID = booking.NewID()
	}
	m.services[s.ID] = s
	return s, nil
}

func (m *Memory) GetService(_ context.Context, id string) (*booking.SecurityService, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.services[id]; ok {
		return &s, nil
	}
	return nil, nil
}

func (m *Memory) ListServices(_ context.Context) ([]booking.SecurityService, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]booking.SecurityService, 0, len(m.services))
	for _, s := range m.services {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) DeleteService(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.services, id)
	return nil
}

// =============================================================================
// RESERVATIONS
// =============================================================================

func (m *Memory) SaveReservation(_ context.Context, r booking.Reservation) (booking.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = booking.NewID()
	}
	m.reservations[r.ID] = r
	return r, nil
}

func (m *Memory) GetReservation(_ context.Context, id string) (*booking.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if r, ok := m.reservations[id]; ok {
		return &r, nil
	}
	return nil, nil
}

func (m *Memory) GetReservationDetail(_ context.Context, id string) (*booking.ReservationDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.reservations[id]
	if !ok {
		return nil, nil
	}
	detail := &booking.ReservationDetail{Reservation: r}
	if c, ok := m.clients[r.ClientID]; ok {
		detail.Client = &c
	}
	if p, ok := m.programs[r.ProgramID]; ok {
		detail.Program = &p
	}
	return detail, nil
}

func (m *Memory) ListReservations(_ context.Context, f booking.ReservationFilter) ([]booking.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []booking.Reservation
	for _, r := range m.reservations {
		if f.ClientID != "" && r.ClientID != f.ClientID {
			continue
		}
		if f.ProgramID != "" && r.ProgramID != f.ProgramID {
			continue
		}
		if f.State != "" && r.State != f.State {
			continue
		}
		if !dateInRange(r.ReservedAt, f.From, f.To) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) DeleteReservation(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reservations, id)
	return nil
}

// =============================================================================
// CONTRACTS
// =============================================================================

func (m *Memory) SaveContract(_ context.Context, c booking.Contract) (booking.Contract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = booking.NewID()
	}
	m.contracts[c.ID] = c
	return c, nil
}

func (m *Memory) GetContract(_ context.Context, id string) (*booking.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.contracts[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (m *Memory) GetContractDetail(_ context.Context, id string) (*booking.ContractDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.contracts[id]
	if !ok {
		return nil, nil
	}
	detail := &booking.ContractDetail{Contract: c}
	if cl, ok := m.clients[c.ClientID]; ok {
		detail.Client = &cl
	}
	if s, ok := m.services[c.ServiceID]; ok {
		detail.Service = &s
	}
	return detail, nil
}

func (m *Memory) ListContracts(_ context.Context, f booking.ContractFilter) ([]booking.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []booking.Contract
	for _, c := range m.contracts {
		if f.ClientID != "" && c.ClientID != f.ClientID {
			continue
		}
		if f.ServiceID != "" && c.ServiceID != f.ServiceID {
			continue
		}
		if f.State != "" && c.State != f.State {
			continue
		}
		if !dateInRange(c.ContractedAt, f.From, f.To) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) DeleteContract(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.contracts, id)
	return nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (m *Memory) SavePayment(_ context.Context, p booking.Payment) (booking.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = booking.NewID()
	}
	m.payments[p.ID] = p
	return p, nil
}

func (m *Memory) GetPayment(_ context.Context, id string) (*booking.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.payments[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (m *Memory) ListPayments(_ context.Context, f booking.PaymentFilter) ([]booking.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []booking.Payment
	for _, p := range m.payments {
		if f.ClientID != "" && p.ClientID != f.ClientID {
			continue
		}
		if f.ContractID != "" && p.ContractID != f.ContractID {
			continue
		}
		if f.State != "" && p.State != f.State {
			continue
		}
		if f.Method != "" && p.Method != f.Method {
			continue
		}
		if !dateInRange(p.PaidAt, f.From, f.To) {
			continue
		}
		if f.MinAmount != nil && p.Amount.LessThan(*f.MinAmount) {
			continue
		}
		if f.MaxAmount != nil && p.Amount.GreaterThan(*f.MaxAmount) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) DeletePayment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.payments, id)
	return nil
}

func (m *Memory) CompletedPaymentsForContract(ctx context.Context, contractID string) ([]booking.Payment, error) {
	return m.ListPayments(ctx, booking.PaymentFilter{ContractID: contractID, State: booking.PaymentCompleted})
}

func (m *Memory) CompletedTotalBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	payments, err := m.ListPayments(ctx, booking.PaymentFilter{State: booking.PaymentCompleted, From: from, To: to})
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total, nil
}

func dateInRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}
