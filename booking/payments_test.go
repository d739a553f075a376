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

func newPaymentService(t *testing.T) (*booking.PaymentService, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	_, err := mem.SaveClient(context.Background(), booking.Client{ID: "cli-1", Name: "Ana Torres"})
	require.NoError(t, err)
	return &booking.PaymentService{Store: mem}, mem
}

func TestCreatePayment_Defaults(t *testing.T) {
	// A bare payment gets PENDING state and today's date.

	ps, _ := newPaymentService(t)
	saved, err := ps.CreatePayment(context.Background(), booking.Payment{
		ClientID: "cli-1",
		Amount:   dec("50.00"),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, booking.PaymentPending, saved.State)
	assert.False(t, saved.PaidAt.IsZero())
}

func TestCreatePayment_RequiresExistingClient(t *testing.T) {
	ps, _ := newPaymentService(t)
	ctx := context.Background()

	_, err := ps.CreatePayment(ctx, booking.Payment{Amount: dec("50.00")})
	assert.ErrorIs(t, err, booking.ErrValidation)

	_, err = ps.CreatePayment(ctx, booking.Payment{ClientID: "ghost", Amount: dec("50.00")})
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestCreatePayment_RejectsNonPositiveAmount(t *testing.T) {
	ps, _ := newPaymentService(t)
	ctx := context.Background()

	_, err := ps.CreatePayment(ctx, booking.Payment{ClientID: "cli-1", Amount: dec("0")})
	assert.ErrorIs(t, err, booking.ErrValidation)

	_, err = ps.CreatePayment(ctx, booking.Payment{ClientID: "cli-1", Amount: dec("-10.00")})
	assert.ErrorIs(t, err, booking.ErrValidation)
}

func TestDeletePayment(t *testing.T) {
	ps, mem := newPaymentService(t)
	ctx := context.Background()

	saved, err := ps.CreatePayment(ctx, booking.Payment{ClientID: "cli-1", Amount: dec("50.00")})
	require.NoError(t, err)

	require.NoError(t, ps.DeletePayment(ctx, saved.ID))

	got, err := mem.GetPayment(ctx, saved.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	err = ps.DeletePayment(ctx, "ghost")
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestCreatePayment_DanglingContractRefDropped(t *testing.T) {
	// A contract reference that does not resolve is cleared, not fatal.

	ps, _ := newPaymentService(t)
	saved, err := ps.CreatePayment(context.Background(), booking.Payment{
		ClientID:   "cli-1",
		ContractID: "ghost",
		Amount:     dec("50.00"),
		State:      booking.PaymentCompleted,
	})
	require.NoError(t, err)
	assert.Empty(t, saved.ContractID)
}

func TestCreatePayment_ValidContractRefKept(t *testing.T) {
	ps, mem := newPaymentService(t)
	ctx := context.Background()
	_, err := mem.SaveContract(ctx, booking.Contract{
		ID: "con-1", ClientID: "cli-1", ServiceID: "svc-1", State: booking.StateActive,
	})
	require.NoError(t, err)

	saved, err := ps.CreatePayment(ctx, booking.Payment{
		ClientID:   "cli-1",
		ContractID: "con-1",
		Amount:     dec("50.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, "con-1", saved.ContractID)
}

func TestIncomeBetween_SumsCompletedInRange(t *testing.T) {
	ps, mem := newPaymentService(t)
	ctx := context.Background()

	jan10 := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)
	feb10 := time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC)

	for _, p := range []booking.Payment{
		{ClientID: "cli-1", Amount: dec("100.00"), PaidAt: jan10, State: booking.PaymentCompleted},
		{ClientID: "cli-1", Amount: dec("200.00"), PaidAt: feb10, State: booking.PaymentCompleted},
		{ClientID: "cli-1", Amount: dec("999.00"), PaidAt: jan10, State: booking.PaymentPending},
	} {
		_, err := mem.SavePayment(ctx, p)
		require.NoError(t, err)
	}

	total, err := ps.IncomeBetween(ctx,
		time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, time.January, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("100.00")), "only completed payments inside the range count")
}
