/*
store.go - Persistence gateway interfaces

PURPOSE:
  Narrow interfaces the engine needs from storage. Implementations:
  - booking/store: in-memory (tests, dev)
  - store/sqlite:  SQLite-backed (production)

CONVENTIONS:
  - Save assigns an id when the entity has none and returns the persisted
    entity.
  - Get returns (nil, nil) when the entity is absent; callers decide
    whether that is an error.
  - Detail loaders resolve references in one explicit operation; the
    engine never walks a lazily-loaded object graph.

CAPACITY:
  TryReserveSlot/ReleaseSlot are the ONLY mutators of a program's
  AvailableCapacity. Implementations must make TryReserveSlot atomic per
  program: two concurrent callers observing one free slot must not both
  take it.
*/
package booking

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CATALOG STORES
// =============================================================================

type ClientStore interface {
	SaveClient(ctx context.Context, c Client) (Client, error)
	GetClient(ctx context.Context, id string) (*Client, error)
	ListClients(ctx context.Context) ([]Client, error)
	DeleteClient(ctx context.Context, id string) error
}

type ProgramStore interface {
	SaveProgram(ctx context.Context, p Program) (Program, error)
	GetProgram(ctx context.Context, id string) (*Program, error)
	ListPrograms(ctx context.Context) ([]Program, error)
	DeleteProgram(ctx context.Context, id string) error
}

type ServiceStore interface {
	SaveService(ctx context.Context, s SecurityService) (SecurityService, error)
	GetService(ctx context.Context, id string) (*SecurityService, error)
	ListServices(ctx context.Context) ([]SecurityService, error)
	DeleteService(ctx context.Context, id string) error
}

// =============================================================================
// CAPACITY LEDGER
// =============================================================================

// CapacityLedger guards a program's available slots.
type CapacityLedger interface {
	// TryReserveSlot atomically decrements the program's available
	// capacity if it is positive and reports whether a slot was taken.
	// A false return with nil error means the program is full.
	TryReserveSlot(ctx context.Context, programID string) (bool, error)

	// ReleaseSlot increments available capacity, clamped so it never
	// exceeds the program's total capacity.
	ReleaseSlot(ctx context.Context, programID string) error
}

// =============================================================================
// BOOKING STORES
// =============================================================================

// ReservationFilter narrows a reservation listing. Zero values mean
// "no constraint".
type ReservationFilter struct {
	ClientID  string
	ProgramID string
	State     BookingState
	From      time.Time // reservation date lower bound, inclusive
	To        time.Time // reservation date upper bound, inclusive
}

type ReservationStore interface {
	SaveReservation(ctx context.Context, r Reservation) (Reservation, error)
	GetReservation(ctx context.Context, id string) (*Reservation, error)
	// GetReservationDetail loads the reservation together with its
	// client and program in one step, for building the confirmation
	// message right after a confirming save.
	GetReservationDetail(ctx context.Context, id string) (*ReservationDetail, error)
	ListReservations(ctx context.Context, f ReservationFilter) ([]Reservation, error)
	DeleteReservation(ctx context.Context, id string) error
}

// ContractFilter narrows a contract listing.
type ContractFilter struct {
	ClientID  string
	ServiceID string
	State     BookingState
	From      time.Time
	To        time.Time
}

type ContractStore interface {
	SaveContract(ctx context.Context, c Contract) (Contract, error)
	GetContract(ctx context.Context, id string) (*Contract, error)
	GetContractDetail(ctx context.Context, id string) (*ContractDetail, error)
	ListContracts(ctx context.Context, f ContractFilter) ([]Contract, error)
	DeleteContract(ctx context.Context, id string) error
}

// =============================================================================
// PAYMENT STORE
// =============================================================================

// PaymentFilter narrows a payment listing.
type PaymentFilter struct {
	ClientID   string
	ContractID string
	State      PaymentState
	Method     string
	From       time.Time
	To         time.Time
	MinAmount  *decimal.Decimal
	MaxAmount  *decimal.Decimal
}

type PaymentStore interface {
	SavePayment(ctx context.Context, p Payment) (Payment, error)
	GetPayment(ctx context.Context, id string) (*Payment, error)
	ListPayments(ctx context.Context, f PaymentFilter) ([]Payment, error)
	DeletePayment(ctx context.Context, id string) error

	// CompletedPaymentsForContract returns the COMPLETED payments linked
	// to a contract, the input of reconciliation.
	CompletedPaymentsForContract(ctx context.Context, contractID string) ([]Payment, error)

	// CompletedTotalBetween sums completed payment amounts whose payment
	// date falls in [from, to], as an exact decimal.
	CompletedTotalBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
}

// =============================================================================
// COMPOSITE
// =============================================================================

// Store is everything the engine needs from persistence.
type Store interface {
	ClientStore
	ProgramStore
	ServiceStore
	ReservationStore
	ContractStore
	PaymentStore
	CapacityLedger
}
