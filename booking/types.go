/*
Package booking is the core engine for a security & training company:
client bookings against capacity-limited training programs and uncapped
security services, the payments owed against each contract, and the
one-time confirmation message sent when a booking is confirmed.

KEY CONCEPTS IN THIS FILE (types.go):
  - Client/Program/SecurityService: the catalog the bookings reference
  - Reservation: client x training program (consumes program capacity)
  - Contract: client x security service (no capacity)
  - Payment: money received against a contract
  - BookingState: shared lifecycle for reservations and contracts

DESIGN PRINCIPLES:
  1. Precision: all money is decimal.Decimal, never floats
  2. Explicit references: entities hold ids, not object graphs; joins are
     an explicit store operation (see store.go Detail loaders)
  3. Type safety: states are declared enums with a confirming-superstate
     predicate instead of scattered string comparisons

SEE ALSO:
  - machine.go: the booking state machine (submit/cancel)
  - capacity note: program slots are only mutated through the
    CapacityLedger interface in store.go
  - reconcile.go: payments-vs-price reconciliation
*/
package booking

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// BOOKING STATE
// =============================================================================

// BookingState is the lifecycle state shared by reservations and contracts.
//
//	PENDING -> {CONFIRMED, ACTIVE} -> CANCELLED
//
// CONFIRMED and ACTIVE form the "confirming" superstate: both reserve
// capacity and both trigger the one-time confirmation message. CANCELLED
// is terminal and nothing transitions back to PENDING.
type BookingState string

const (
	StatePending   BookingState = "PENDING"
	StateConfirmed BookingState = "CONFIRMED"
	StateActive    BookingState = "ACTIVE"
	StateCancelled BookingState = "CANCELLED"
)

// IsConfirming reports whether the state belongs to the confirming
// superstate (CONFIRMED or ACTIVE).
func (s BookingState) IsConfirming() bool {
	return s == StateConfirmed || s == StateActive
}

// Valid reports whether the state is one of the declared states.
func (s BookingState) Valid() bool {
	switch s {
	case StatePending, StateConfirmed, StateActive, StateCancelled:
		return true
	}
	return false
}

// PaymentState is the lifecycle state of a payment. Only COMPLETED
// payments count toward reconciliation.
type PaymentState string

const (
	PaymentPending   PaymentState = "PENDING"
	PaymentCompleted PaymentState = "COMPLETED"
	PaymentRejected  PaymentState = "REJECTED"
)

// =============================================================================
// CATALOG ENTITIES
// =============================================================================

// Client is a customer of the company. Referenced by bookings and
// payments, never mutated by the engine itself.
type Client struct {
	ID           string
	Name         string
	ClientType   string
	DocumentID   string
	Email        string
	Phone        string
	Address      string
	City         string
	Country      string
	RegisteredAt time.Time
	Notes        string
}

// Program is a capacity-limited training program.
// Invariant: 0 <= AvailableCapacity <= TotalCapacity, and
// AvailableCapacity is only mutated through the CapacityLedger.
type Program struct {
	ID                string
	Name              string
	Content           string
	Requirements      string
	Instructor        string
	Cost              decimal.Decimal
	DurationDays      int
	TotalCapacity     int
	AvailableCapacity int
	StartDate         time.Time
	EndDate           time.Time
	Active            bool
}

// SecurityService is an uncapped security offering. Its price feeds
// reconciliation.
type SecurityService struct {
	ID            string
	Name          string
	ServiceType   string
	Description   string
	Location      string
	Price         decimal.Decimal
	Duration      string
	AssignedStaff string
	Schedule      string
	Active        bool
}

// =============================================================================
// BOOKINGS
// =============================================================================

// Reservation is a capacity-affecting booking of a client on a training
// program. Notified is monotonic: once true it is never reset.
type Reservation struct {
	ID           string
	ClientID     string
	ProgramID    string
	ReservedAt   time.Time
	State        BookingState
	Observations string
	Notified     bool
}

// Contract is a booking of a client on a security service. It does not
// consume capacity.
type Contract struct {
	ID           string
	ClientID     string
	ServiceID    string
	ContractedAt time.Time
	StartDate    time.Time
	EndDate      time.Time
	State        BookingState
	Observations string
	Notified     bool
}

// Payment is money received from a client, optionally linked to a
// contract. Amount is immutable once created.
type Payment struct {
	ID           string
	ClientID     string
	ContractID   string
	Amount       decimal.Decimal
	PaidAt       time.Time
	Method       string
	State        PaymentState
	ReferenceNum string
	Observations string
}

// =============================================================================
// DETAIL VIEWS - explicit join loads (no lazy object graphs)
// =============================================================================

// ReservationDetail is a reservation with its referenced client and
// program resolved. Client or Program may be nil if the reference is
// dangling.
type ReservationDetail struct {
	Reservation Reservation
	Client      *Client
	Program     *Program
}

// ContractDetail is a contract with its referenced client and service
// resolved.
type ContractDetail struct {
	Contract Contract
	Client   *Client
	Service  *SecurityService
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

// NewID returns a fresh entity id. Stores call this when a caller saves
// an entity without one.
func NewID() string {
	return uuid.NewString()
}
