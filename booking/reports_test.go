package booking_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegisops/booking-engine/booking"
	"github.com/aegisops/booking-engine/booking/store"
)

func TestReports_Occupancy(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	_, err := mem.SaveProgram(ctx, booking.Program{
		ID: "p1", Name: "Program", TotalCapacity: 10, AvailableCapacity: 7, Active: true,
	})
	require.NoError(t, err)

	rp := &booking.Reports{Store: mem}
	rows, err := rp.Occupancy(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].Occupied)
}

func TestReports_Uptake(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	_, err := mem.SaveService(ctx, booking.SecurityService{ID: "s1", Name: "Night Patrol", Active: true})
	require.NoError(t, err)
	for _, c := range []booking.Contract{
		{ID: "c1", ClientID: "cli-1", ServiceID: "s1", State: booking.StateActive},
		{ID: "c2", ClientID: "cli-2", ServiceID: "s1", State: booking.StatePending},
		{ID: "c3", ClientID: "cli-3", ServiceID: "s1", State: booking.StateCancelled},
	} {
		_, err := mem.SaveContract(ctx, c)
		require.NoError(t, err)
	}

	rp := &booking.Reports{Store: mem}
	rows, err := rp.Uptake(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].ContractCount)
	assert.Equal(t, 1, rows[0].ActiveCount)
}

func TestReports_Dashboard(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	_, err := mem.SaveClient(ctx, booking.Client{ID: "cli-1", Name: "Ana Torres"})
	require.NoError(t, err)
	_, err = mem.SaveProgram(ctx, booking.Program{ID: "p1", Name: "Program", Active: true})
	require.NoError(t, err)
	_, err = mem.SaveProgram(ctx, booking.Program{ID: "p2", Name: "Retired", Active: false})
	require.NoError(t, err)
	_, err = mem.SaveReservation(ctx, booking.Reservation{
		ID: "r1", ClientID: "cli-1", ProgramID: "p1", State: booking.StateConfirmed,
	})
	require.NoError(t, err)
	_, err = mem.SavePayment(ctx, booking.Payment{
		ID: "pay1", ClientID: "cli-1", Amount: dec("150.00"),
		PaidAt: time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		State:  booking.PaymentCompleted,
	})
	require.NoError(t, err)

	rp := &booking.Reports{Store: mem}
	summary, err := rp.Dashboard(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Clients)
	assert.Equal(t, 1, summary.ActivePrograms)
	assert.Equal(t, 1, summary.ReservationsByState[booking.StateConfirmed])
	assert.True(t, summary.CompletedTotal.Equal(dec("150.00")))
}
