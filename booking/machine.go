/*
machine.go - The booking state machine

PURPOSE:
  Governs the lifecycle of reservations and contracts:

    PENDING -> {CONFIRMED, ACTIVE} -> CANCELLED

  A confirming save is the single trigger for both side effects:
  capacity consumption (reservations only) and the one-time confirmation
  message. The notified flag, not the state, gates re-triggering: a
  confirmed booking can be edited repeatedly without re-sending, while
  the message still goes out the first time the confirming superstate is
  reached, at creation or via a later edit.

CAPACITY POLICY:
  Capacity exhaustion during a confirming save is an explicit policy:
  - CapacityReject (default): the save fails with ErrCapacityExceeded
    and nothing is persisted.
  - CapacityOverbook: the save proceeds and the shortfall is logged.

FAILURE SEMANTICS:
  - Notification failure is recovered locally: logged, notified stays
    false, the booking persists. Never surfaced to the caller.
  - Every send is bounded by NotifyTimeout; a timeout is a send failure.

SEE ALSO:
  - store.go: CapacityLedger and Detail loaders consumed here
  - notify.go: Notifier contract and message templates
*/
package booking

import (
	"context"
	"time"
)

// CapacityPolicy decides what a confirming save does when the program
// has no available slot.
type CapacityPolicy int

const (
	// CapacityReject fails the confirming save with ErrCapacityExceeded.
	CapacityReject CapacityPolicy = iota
	// CapacityOverbook lets the save proceed and logs the shortfall.
	CapacityOverbook
)

const defaultNotifyTimeout = 10 * time.Second

// Machine is the booking state machine. Store, Notifier and Logger are
// injected; Policy and NotifyTimeout have working zero-value defaults.
type Machine struct {
	Store         Store
	Notifier      Notifier
	Logger        Logger
	Policy        CapacityPolicy
	NotifyTimeout time.Duration
}

// NewMachine creates a machine with the default policy and logger.
func NewMachine(store Store, notifier Notifier) *Machine {
	return &Machine{Store: store, Notifier: notifier, Logger: DefaultLogger()}
}

func (m *Machine) logf(format string, v ...any) {
	if m.Logger != nil {
		m.Logger.Printf(format, v...)
	}
}

// isConfirmingSave applies the trigger rule shared by reservations and
// contracts: the incoming state is confirming AND the booking is new or
// its persisted notified flag was still false.
func isConfirmingSave(state BookingState, isNew, priorNotified bool) bool {
	return state.IsConfirming() && (isNew || !priorNotified)
}

// =============================================================================
// RESERVATIONS (capacity-affecting)
// =============================================================================

// SubmitReservation creates or updates a reservation. On a confirming
// save it reserves a program slot, persists, and sends the one-time
// confirmation message.
func (m *Machine) SubmitReservation(ctx context.Context, r Reservation) (Reservation, error) {
	if r.ClientID == "" {
		return Reservation{}, &ValidationError{Field: "client_id", Reason: "required"}
	}
	if r.ProgramID == "" {
		return Reservation{}, &ValidationError{Field: "program_id", Reason: "required"}
	}
	if r.State == "" {
		r.State = StatePending
	}
	if !r.State.Valid() {
		return Reservation{}, &ValidationError{Field: "state", Reason: "unknown state " + string(r.State)}
	}

	isNew := r.ID == ""
	priorNotified := false
	if !isNew {
		existing, err := m.Store.GetReservation(ctx, r.ID)
		if err != nil {
			return Reservation{}, err
		}
		if existing == nil {
			isNew = true
		} else {
			priorNotified = existing.Notified
		}
	}
	if priorNotified {
		// notified is monotonic; an edit can never clear it
		r.Notified = true
	}

	confirming := isConfirmingSave(r.State, isNew, priorNotified)

	slotHeld := false
	if confirming {
		reserved, err := m.Store.TryReserveSlot(ctx, r.ProgramID)
		if err != nil {
			return Reservation{}, err
		}
		if reserved {
			slotHeld = true
		} else if m.Policy == CapacityOverbook {
			m.logf("booking: overbooking program %s, no slot available", r.ProgramID)
		} else {
			return Reservation{}, &CapacityError{ProgramID: r.ProgramID}
		}
	}

	saved, err := m.Store.SaveReservation(ctx, r)
	if err != nil {
		if slotHeld {
			if relErr := m.Store.ReleaseSlot(ctx, r.ProgramID); relErr != nil {
				m.logf("booking: slot release after failed save on program %s: %v", r.ProgramID, relErr)
			}
		}
		return Reservation{}, err
	}

	if confirming && m.notifyReservation(ctx, saved.ID) {
		saved.Notified = true
	}
	return saved, nil
}

// notifyReservation reloads the reservation with its references, sends
// the confirmation, and persists the notified flag. Returns whether the
// flag was set. Failures are logged, never returned.
func (m *Machine) notifyReservation(ctx context.Context, id string) bool {
	detail, err := m.Store.GetReservationDetail(ctx, id)
	if err != nil || detail == nil {
		m.logf("booking: reload of reservation %s for notification failed: %v", id, err)
		return false
	}
	if detail.Client == nil || detail.Client.Email == "" || detail.Program == nil || detail.Program.Name == "" {
		m.logf("booking: skipping confirmation for reservation %s, client email or program name missing", id)
		return false
	}

	subject, body := ReservationConfirmation(detail.Client.Name, detail.Program.Name, detail.Program.StartDate)
	if err := m.send(ctx, detail.Client.Email, subject, body); err != nil {
		m.logf("booking: confirmation for reservation %s to %s failed: %v", id, detail.Client.Email, err)
		return false
	}

	rec := detail.Reservation
	rec.Notified = true
	if _, err := m.Store.SaveReservation(ctx, rec); err != nil {
		m.logf("booking: persisting notified flag for reservation %s failed: %v", id, err)
		return false
	}
	return true
}

// CancelReservation cancels a reservation, releasing its program slot if
// the reservation was in a confirming state. Cancelling a PENDING
// reservation releases nothing.
func (m *Machine) CancelReservation(ctx context.Context, id string) (Reservation, error) {
	existing, err := m.Store.GetReservation(ctx, id)
	if err != nil {
		return Reservation{}, err
	}
	if existing == nil {
		return Reservation{}, &NotFoundError{Kind: "reservation", ID: id}
	}

	if existing.State.IsConfirming() {
		if err := m.Store.ReleaseSlot(ctx, existing.ProgramID); err != nil {
			m.logf("booking: slot release on cancel of reservation %s failed: %v", id, err)
		}
	}

	existing.State = StateCancelled
	return m.Store.SaveReservation(ctx, *existing)
}

// DeleteReservation removes a reservation entirely. Like cancellation,
// a confirming reservation gives its slot back first.
func (m *Machine) DeleteReservation(ctx context.Context, id string) error {
	existing, err := m.Store.GetReservation(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return &NotFoundError{Kind: "reservation", ID: id}
	}

	if existing.State.IsConfirming() {
		if err := m.Store.ReleaseSlot(ctx, existing.ProgramID); err != nil {
			m.logf("booking: slot release on delete of reservation %s failed: %v", id, err)
		}
	}

	return m.Store.DeleteReservation(ctx, id)
}

// =============================================================================
// CONTRACTS (no capacity)
// =============================================================================

// SubmitContract creates or updates a contract. Same trigger rule as
// reservations, without the capacity step.
func (m *Machine) SubmitContract(ctx context.Context, c Contract) (Contract, error) {
	if c.ClientID == "" {
		return Contract{}, &ValidationError{Field: "client_id", Reason: "required"}
	}
	if c.ServiceID == "" {
		return Contract{}, &ValidationError{Field: "service_id", Reason: "required"}
	}
	if c.State == "" {
		c.State = StatePending
	}
	if !c.State.Valid() {
		return Contract{}, &ValidationError{Field: "state", Reason: "unknown state " + string(c.State)}
	}

	isNew := c.ID == ""
	priorNotified := false
	if !isNew {
		existing, err := m.Store.GetContract(ctx, c.ID)
		if err != nil {
			return Contract{}, err
		}
		if existing == nil {
			isNew = true
		} else {
			priorNotified = existing.Notified
		}
	}
	if priorNotified {
		c.Notified = true
	}

	confirming := isConfirmingSave(c.State, isNew, priorNotified)

	saved, err := m.Store.SaveContract(ctx, c)
	if err != nil {
		return Contract{}, err
	}

	if confirming && m.notifyContract(ctx, saved.ID) {
		saved.Notified = true
	}
	return saved, nil
}

func (m *Machine) notifyContract(ctx context.Context, id string) bool {
	detail, err := m.Store.GetContractDetail(ctx, id)
	if err != nil || detail == nil {
		m.logf("booking: reload of contract %s for notification failed: %v", id, err)
		return false
	}
	if detail.Client == nil || detail.Client.Email == "" || detail.Service == nil || detail.Service.Name == "" {
		m.logf("booking: skipping confirmation for contract %s, client email or service name missing", id)
		return false
	}

	subject, body := ContractConfirmation(detail.Client.Name, detail.Service.Name, detail.Contract.StartDate, detail.Contract.EndDate)
	if err := m.send(ctx, detail.Client.Email, subject, body); err != nil {
		m.logf("booking: confirmation for contract %s to %s failed: %v", id, detail.Client.Email, err)
		return false
	}

	con := detail.Contract
	con.Notified = true
	if _, err := m.Store.SaveContract(ctx, con); err != nil {
		m.logf("booking: persisting notified flag for contract %s failed: %v", id, err)
		return false
	}
	return true
}

// CancelContract cancels a contract. Contracts hold no capacity, so
// cancellation only moves the state.
func (m *Machine) CancelContract(ctx context.Context, id string) (Contract, error) {
	existing, err := m.Store.GetContract(ctx, id)
	if err != nil {
		return Contract{}, err
	}
	if existing == nil {
		return Contract{}, &NotFoundError{Kind: "contract", ID: id}
	}

	existing.State = StateCancelled
	return m.Store.SaveContract(ctx, *existing)
}

// DeleteContract removes a contract entirely. Payments that referenced
// it keep their contract id; reconciliation simply stops finding the
// contract.
func (m *Machine) DeleteContract(ctx context.Context, id string) error {
	existing, err := m.Store.GetContract(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return &NotFoundError{Kind: "contract", ID: id}
	}
	return m.Store.DeleteContract(ctx, id)
}

// send bounds the gateway call; a slow or hung gateway must not block
// the save flow indefinitely.
func (m *Machine) send(ctx context.Context, to, subject, body string) error {
	if m.Notifier == nil {
		return ErrNotificationFailed
	}
	timeout := m.NotifyTimeout
	if timeout <= 0 {
		timeout = defaultNotifyTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return m.Notifier.Send(ctx, to, subject, body)
}
