package sqlite_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegisops/booking-engine/booking"
	"github.com/aegisops/booking-engine/outbox"
	"github.com/aegisops/booking-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// =============================================================================
// ROUND TRIPS
// =============================================================================

func TestSQLite_ClientRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	saved, err := store.SaveClient(ctx, booking.Client{
		Name:         "Ana Torres",
		ClientType:   "COMPANY",
		Email:        "ana@example.com",
		City:         "Valencia",
		RegisteredAt: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)

	got, err := store.GetClient(ctx, saved.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, saved, *got)

	got.City = "Madrid"
	_, err = store.SaveClient(ctx, *got)
	require.NoError(t, err)
	again, err := store.GetClient(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Madrid", again.City)
}

func TestSQLite_GetMissing_ReturnsNil(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	c, err := store.GetClient(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, c)

	p, err := store.GetProgram(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, p)

	r, err := store.GetReservation(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestSQLite_ProgramRoundTrip_KeepsDecimalCost(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	saved, err := store.SaveProgram(ctx, booking.Program{
		Name:              "Close Protection Basics",
		Cost:              dec("1499.99"),
		TotalCapacity:     12,
		AvailableCapacity: 12,
		StartDate:         time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC),
		Active:            true,
	})
	require.NoError(t, err)

	got, err := store.GetProgram(ctx, saved.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Cost.Equal(dec("1499.99")), "cost must survive storage exactly")
	assert.Equal(t, saved.StartDate, got.StartDate)
}

func TestSQLite_ReservationRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	saved, err := store.SaveReservation(ctx, booking.Reservation{
		ClientID:   "cli-1",
		ProgramID:  "prog-1",
		ReservedAt: time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC),
		State:      booking.StateConfirmed,
		Notified:   true,
	})
	require.NoError(t, err)

	got, err := store.GetReservation(ctx, saved.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, booking.StateConfirmed, got.State)
	assert.True(t, got.Notified)

	require.NoError(t, store.DeleteReservation(ctx, saved.ID))
	got, err = store.GetReservation(ctx, saved.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_ContractDetail_ResolvesReferences(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	client, err := store.SaveClient(ctx, booking.Client{Name: "Ana Torres", Email: "ana@example.com"})
	require.NoError(t, err)
	service, err := store.SaveService(ctx, booking.SecurityService{Name: "Night Patrol", Price: dec("800.00"), Active: true})
	require.NoError(t, err)
	contract, err := store.SaveContract(ctx, booking.Contract{
		ClientID: client.ID, ServiceID: service.ID, State: booking.StateActive,
	})
	require.NoError(t, err)

	detail, err := store.GetContractDetail(ctx, contract.ID)
	require.NoError(t, err)
	require.NotNil(t, detail)
	require.NotNil(t, detail.Client)
	require.NotNil(t, detail.Service)
	assert.Equal(t, "Ana Torres", detail.Client.Name)
	assert.True(t, detail.Service.Price.Equal(dec("800.00")))
}

// =============================================================================
// CAPACITY LEDGER
// =============================================================================

func TestSQLite_TryReserveSlot_DrainsToZero(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p, err := store.SaveProgram(ctx, booking.Program{
		Name: "Program", TotalCapacity: 2, AvailableCapacity: 2, Active: true,
	})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		ok, err := store.TryReserveSlot(ctx, p.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := store.TryReserveSlot(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLite_TryReserveSlot_UnknownProgram(t *testing.T) {
	store := newTestStore(t)
	_, err := store.TryReserveSlot(context.Background(), "ghost")
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestSQLite_ReleaseSlot_ClampsAtTotal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p, err := store.SaveProgram(ctx, booking.Program{
		Name: "Program", TotalCapacity: 3, AvailableCapacity: 3, Active: true,
	})
	require.NoError(t, err)

	require.NoError(t, store.ReleaseSlot(ctx, p.ID))

	got, err := store.GetProgram(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.AvailableCapacity)
}

func TestSQLite_TryReserveSlot_ConcurrentNeverOversells(t *testing.T) {
	// 30 goroutines race for 5 slots; exactly 5 must win.

	store := newTestStore(t)
	ctx := context.Background()

	p, err := store.SaveProgram(ctx, booking.Program{
		Name: "Program", TotalCapacity: 5, AvailableCapacity: 5, Active: true,
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	won := make(chan bool, 30)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.TryReserveSlot(ctx, p.ID)
			if err == nil && ok {
				won <- true
			}
		}()
	}
	wg.Wait()
	close(won)

	count := 0
	for range won {
		count++
	}
	assert.Equal(t, 5, count)

	got, err := store.GetProgram(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.AvailableCapacity)
}

// =============================================================================
// PAYMENTS AND DECIMALS
// =============================================================================

func TestSQLite_PaymentAmount_ExactAcrossStorage(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, amount := range []string{"0.10", "0.10", "0.10"} {
		_, err := store.SavePayment(ctx, booking.Payment{
			ClientID:   "cli-1",
			ContractID: "con-1",
			Amount:     dec(amount),
			PaidAt:     time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC),
			State:      booking.PaymentCompleted,
		})
		require.NoError(t, err)
	}

	payments, err := store.CompletedPaymentsForContract(ctx, "con-1")
	require.NoError(t, err)
	require.Len(t, payments, 3)

	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	assert.True(t, total.Equal(dec("0.30")), "three dimes must sum to exactly 0.30")
}

func TestSQLite_DeleteContractAndPayment(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	contract, err := store.SaveContract(ctx, booking.Contract{
		ClientID: "cli-1", ServiceID: "svc-1", State: booking.StateActive,
	})
	require.NoError(t, err)
	payment, err := store.SavePayment(ctx, booking.Payment{
		ClientID: "cli-1", ContractID: contract.ID, Amount: dec("10.00"),
		PaidAt: time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC),
		State:  booking.PaymentCompleted,
	})
	require.NoError(t, err)

	require.NoError(t, store.DeleteContract(ctx, contract.ID))
	gotContract, err := store.GetContract(ctx, contract.ID)
	require.NoError(t, err)
	assert.Nil(t, gotContract)

	require.NoError(t, store.DeletePayment(ctx, payment.ID))
	gotPayment, err := store.GetPayment(ctx, payment.ID)
	require.NoError(t, err)
	assert.Nil(t, gotPayment)
}

func TestSQLite_CompletedTotalBetween(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	jan := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)
	jun := time.Date(2026, time.June, 10, 0, 0, 0, 0, time.UTC)
	for _, p := range []booking.Payment{
		{ClientID: "cli-1", Amount: dec("100.00"), PaidAt: jan, State: booking.PaymentCompleted},
		{ClientID: "cli-1", Amount: dec("250.00"), PaidAt: jun, State: booking.PaymentCompleted},
		{ClientID: "cli-1", Amount: dec("999.00"), PaidAt: jan, State: booking.PaymentPending},
	} {
		_, err := store.SavePayment(ctx, p)
		require.NoError(t, err)
	}

	total, err := store.CompletedTotalBetween(ctx,
		time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("100.00")))
}

func TestSQLite_ListPayments_AmountBounds(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, amount := range []string{"10.00", "50.00", "90.00"} {
		_, err := store.SavePayment(ctx, booking.Payment{
			ClientID: "cli-1", Amount: dec(amount), State: booking.PaymentCompleted,
		})
		require.NoError(t, err)
	}

	min := dec("20.00")
	max := dec("80.00")
	out, err := store.ListPayments(ctx, booking.PaymentFilter{MinAmount: &min, MaxAmount: &max})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.True(t, out[0].Amount.Equal(dec("50.00")))
}

// =============================================================================
// OUTBOX
// =============================================================================

func TestSQLite_Outbox_EnqueueAndDrain(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	msg, err := store.Enqueue(ctx, outbox.Message{
		Recipient: "ana@example.com",
		Subject:   "Reservation confirmed",
		Body:      "See you in October.",
	})
	require.NoError(t, err)
	require.NotEmpty(t, msg.ID)

	pending, err := store.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, outbox.StatusPending, pending[0].Status)

	require.NoError(t, store.MarkSent(ctx, msg.ID, time.Now().UTC()))

	pending, err = store.Pending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSQLite_Outbox_MarkFailed(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	msg, err := store.Enqueue(ctx, outbox.Message{
		Recipient: "ana@example.com", Subject: "s", Body: "b",
	})
	require.NoError(t, err)

	// A non-final failure keeps the message pending for retry
	require.NoError(t, store.MarkFailed(ctx, msg.ID, 1, "gateway down", false))
	pending, err := store.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Attempts)

	// A final failure removes it from the pending set
	require.NoError(t, store.MarkFailed(ctx, msg.ID, 5, "gateway down", true))
	pending, err = store.Pending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

// =============================================================================
// ENGINE ON SQLITE
// =============================================================================

// The machine is store-agnostic; this exercises the full confirming
// flow against the production persistence.
func TestSQLite_MachineConfirmFlow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	client, err := store.SaveClient(ctx, booking.Client{Name: "Ana Torres", Email: "ana@example.com"})
	require.NoError(t, err)
	program, err := store.SaveProgram(ctx, booking.Program{
		Name: "Close Protection Basics", TotalCapacity: 1, AvailableCapacity: 1, Active: true,
	})
	require.NoError(t, err)

	queue := &outbox.Queue{Store: store}
	machine := booking.NewMachine(store, queue)

	saved, err := machine.SubmitReservation(ctx, booking.Reservation{
		ClientID:  client.ID,
		ProgramID: program.ID,
		State:     booking.StateConfirmed,
	})
	require.NoError(t, err)
	assert.True(t, saved.Notified)

	pending, err := store.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "ana@example.com", pending[0].Recipient)

	p, err := store.GetProgram(ctx, program.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, p.AvailableCapacity)
}
