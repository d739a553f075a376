package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegisops/booking-engine/booking"
	"github.com/aegisops/booking-engine/booking/store"
)

func seedProgram(t *testing.T, m *store.Memory, id string, capacity int) {
	t.Helper()
	_, err := m.SaveProgram(context.Background(), booking.Program{
		ID:                id,
		Name:              "Program " + id,
		TotalCapacity:     capacity,
		AvailableCapacity: capacity,
		Active:            true,
	})
	require.NoError(t, err)
}

// =============================================================================
// CAPACITY LEDGER
// =============================================================================

func TestMemory_TryReserveSlot_DrainsToZero(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	seedProgram(t, m, "prog-1", 2)

	for i := 0; i < 2; i++ {
		ok, err := m.TryReserveSlot(ctx, "prog-1")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := m.TryReserveSlot(ctx, "prog-1")
	require.NoError(t, err)
	assert.False(t, ok, "a drained program must refuse further slots")

	p, err := m.GetProgram(ctx, "prog-1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.AvailableCapacity)
}

func TestMemory_TryReserveSlot_UnknownProgram(t *testing.T) {
	m := store.NewMemory()
	_, err := m.TryReserveSlot(context.Background(), "ghost")
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestMemory_ReleaseSlot_ClampsAtTotal(t *testing.T) {
	// Releases beyond the total never inflate capacity.

	m := store.NewMemory()
	ctx := context.Background()
	seedProgram(t, m, "prog-1", 3)

	require.NoError(t, m.ReleaseSlot(ctx, "prog-1"))
	require.NoError(t, m.ReleaseSlot(ctx, "prog-1"))

	p, err := m.GetProgram(ctx, "prog-1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.AvailableCapacity)
}

func TestMemory_TryReserveSlot_ConcurrentNeverOversells(t *testing.T) {
	// 50 goroutines race for 10 slots; exactly 10 must win.

	m := store.NewMemory()
	ctx := context.Background()
	seedProgram(t, m, "prog-1", 10)

	var wg sync.WaitGroup
	won := make(chan bool, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := m.TryReserveSlot(ctx, "prog-1")
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
	assert.Equal(t, 10, count)

	p, err := m.GetProgram(ctx, "prog-1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.AvailableCapacity)
}

// =============================================================================
// FILTERS AND DETAIL LOADS
// =============================================================================

func TestMemory_ListReservations_Filters(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	jan := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)
	for _, r := range []booking.Reservation{
		{ID: "r1", ClientID: "cli-1", ProgramID: "p1", State: booking.StatePending, ReservedAt: jan},
		{ID: "r2", ClientID: "cli-1", ProgramID: "p2", State: booking.StateConfirmed, ReservedAt: mar},
		{ID: "r3", ClientID: "cli-2", ProgramID: "p1", State: booking.StateConfirmed, ReservedAt: mar},
	} {
		_, err := m.SaveReservation(ctx, r)
		require.NoError(t, err)
	}

	byClient, err := m.ListReservations(ctx, booking.ReservationFilter{ClientID: "cli-1"})
	require.NoError(t, err)
	assert.Len(t, byClient, 2)

	byState, err := m.ListReservations(ctx, booking.ReservationFilter{State: booking.StateConfirmed})
	require.NoError(t, err)
	assert.Len(t, byState, 2)

	byRange, err := m.ListReservations(ctx, booking.ReservationFilter{
		From: time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Len(t, byRange, 2)
}

func TestMemory_GetReservationDetail_ResolvesReferences(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	_, err := m.SaveClient(ctx, booking.Client{ID: "cli-1", Name: "Ana Torres"})
	require.NoError(t, err)
	seedProgram(t, m, "prog-1", 5)
	_, err = m.SaveReservation(ctx, booking.Reservation{
		ID: "r1", ClientID: "cli-1", ProgramID: "prog-1", State: booking.StatePending,
	})
	require.NoError(t, err)

	detail, err := m.GetReservationDetail(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, detail)
	require.NotNil(t, detail.Client)
	require.NotNil(t, detail.Program)
	assert.Equal(t, "Ana Torres", detail.Client.Name)
}

func TestMemory_GetReservationDetail_DanglingReferencesAreNil(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	_, err := m.SaveReservation(ctx, booking.Reservation{
		ID: "r1", ClientID: "ghost", ProgramID: "ghost", State: booking.StatePending,
	})
	require.NoError(t, err)

	detail, err := m.GetReservationDetail(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Nil(t, detail.Client)
	assert.Nil(t, detail.Program)
}

func TestMemory_ListPayments_AmountBounds(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	for _, p := range []booking.Payment{
		{ID: "p1", ClientID: "cli-1", Amount: decimal.NewFromInt(10), State: booking.PaymentCompleted},
		{ID: "p2", ClientID: "cli-1", Amount: decimal.NewFromInt(50), State: booking.PaymentCompleted},
		{ID: "p3", ClientID: "cli-1", Amount: decimal.NewFromInt(90), State: booking.PaymentCompleted},
	} {
		_, err := m.SavePayment(ctx, p)
		require.NoError(t, err)
	}

	min := decimal.NewFromInt(20)
	max := decimal.NewFromInt(80)
	out, err := m.ListPayments(ctx, booking.PaymentFilter{MinAmount: &min, MaxAmount: &max})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "p2", out[0].ID)
}

func TestMemory_CompletedTotalBetween(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	jan := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)
	jun := time.Date(2026, time.June, 10, 0, 0, 0, 0, time.UTC)
	for _, p := range []booking.Payment{
		{ID: "p1", ClientID: "cli-1", Amount: decimal.NewFromInt(100), PaidAt: jan, State: booking.PaymentCompleted},
		{ID: "p2", ClientID: "cli-1", Amount: decimal.NewFromInt(100), PaidAt: jun, State: booking.PaymentCompleted},
		{ID: "p3", ClientID: "cli-1", Amount: decimal.NewFromInt(100), PaidAt: jan, State: booking.PaymentRejected},
	} {
		_, err := m.SavePayment(ctx, p)
		require.NoError(t, err)
	}

	total, err := m.CompletedTotalBetween(ctx,
		time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(100)))
}

func TestMemory_SaveAssignsID(t *testing.T) {
	m := store.NewMemory()
	c, err := m.SaveClient(context.Background(), booking.Client{Name: "Ana Torres"})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
}
