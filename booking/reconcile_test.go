package booking_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegisops/booking-engine/booking"
	"github.com/aegisops/booking-engine/booking/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// seedContract wires a client, a priced service and an ACTIVE contract
// and returns the contract id.
func seedContract(t *testing.T, s booking.Store, price string) string {
	t.Helper()
	ctx := context.Background()

	_, err := s.SaveClient(ctx, booking.Client{ID: "cli-1", Name: "Ana Torres"})
	require.NoError(t, err)
	_, err = s.SaveService(ctx, booking.SecurityService{
		ID: "svc-1", Name: "Night Patrol", Price: dec(price), Active: true,
	})
	require.NoError(t, err)
	c, err := s.SaveContract(ctx, booking.Contract{
		ID: "con-1", ClientID: "cli-1", ServiceID: "svc-1", State: booking.StateActive,
	})
	require.NoError(t, err)
	return c.ID
}

func addPayment(t *testing.T, s booking.Store, contractID, amount string, state booking.PaymentState) {
	t.Helper()
	_, err := s.SavePayment(context.Background(), booking.Payment{
		ClientID:   "cli-1",
		ContractID: contractID,
		Amount:     dec(amount),
		State:      state,
	})
	require.NoError(t, err)
}

// =============================================================================
// SINGLE CONTRACT
// =============================================================================

func TestReconcileOne_ExactCoverage(t *testing.T) {
	// GIVEN: A 100.00 contract with completed payments of 60 and 40
	// WHEN: It is reconciled
	// THEN: Paid in full, diff exactly zero

	mem := store.NewMemory()
	id := seedContract(t, mem, "100.00")
	addPayment(t, mem, id, "60.00", booking.PaymentCompleted)
	addPayment(t, mem, id, "40.00", booking.PaymentCompleted)

	rc := &booking.Reconciler{Store: mem}
	result, err := rc.ReconcileOne(context.Background(), id)
	require.NoError(t, err)

	assert.True(t, result.Reconciled)
	assert.True(t, result.TotalPaid.Equal(dec("100.00")))
	assert.True(t, result.Diff.IsZero())
	assert.Equal(t, 2, result.PaymentCount)
}

func TestReconcileOne_PartialCoverage(t *testing.T) {
	// GIVEN: A 100.00 contract with only 60.00 completed
	// WHEN: It is reconciled
	// THEN: Not reconciled, 40.00 outstanding

	mem := store.NewMemory()
	id := seedContract(t, mem, "100.00")
	addPayment(t, mem, id, "60.00", booking.PaymentCompleted)

	rc := &booking.Reconciler{Store: mem}
	result, err := rc.ReconcileOne(context.Background(), id)
	require.NoError(t, err)

	assert.False(t, result.Reconciled)
	assert.True(t, result.Diff.Equal(dec("40.00")))
}

func TestReconcileOne_OnlyCompletedPaymentsCount(t *testing.T) {
	// GIVEN: Completed, pending and rejected payments on one contract
	// WHEN: It is reconciled
	// THEN: Only the completed amount counts

	mem := store.NewMemory()
	id := seedContract(t, mem, "100.00")
	addPayment(t, mem, id, "50.00", booking.PaymentCompleted)
	addPayment(t, mem, id, "50.00", booking.PaymentPending)
	addPayment(t, mem, id, "50.00", booking.PaymentRejected)

	rc := &booking.Reconciler{Store: mem}
	result, err := rc.ReconcileOne(context.Background(), id)
	require.NoError(t, err)

	assert.True(t, result.TotalPaid.Equal(dec("50.00")))
	assert.False(t, result.Reconciled)
	assert.Equal(t, 1, result.PaymentCount)
}

func TestReconcileOne_DecimalExactness(t *testing.T) {
	// GIVEN: Amounts that do not sum cleanly in binary floating point
	// WHEN: Three 0.10 payments cover a 0.30 contract
	// THEN: The diff is exactly zero

	mem := store.NewMemory()
	id := seedContract(t, mem, "0.30")
	addPayment(t, mem, id, "0.10", booking.PaymentCompleted)
	addPayment(t, mem, id, "0.10", booking.PaymentCompleted)
	addPayment(t, mem, id, "0.10", booking.PaymentCompleted)

	rc := &booking.Reconciler{Store: mem}
	result, err := rc.ReconcileOne(context.Background(), id)
	require.NoError(t, err)

	assert.True(t, result.Diff.IsZero(), "0.10+0.10+0.10 must equal 0.30 exactly")
	assert.True(t, result.Reconciled)
}

func TestReconcileOne_Overpayment_StillReconciled(t *testing.T) {
	mem := store.NewMemory()
	id := seedContract(t, mem, "100.00")
	addPayment(t, mem, id, "120.00", booking.PaymentCompleted)

	rc := &booking.Reconciler{Store: mem}
	result, err := rc.ReconcileOne(context.Background(), id)
	require.NoError(t, err)

	assert.True(t, result.Reconciled)
	assert.True(t, result.Diff.Equal(dec("-20.00")), "overpayment shows as a negative diff")
}

func TestReconcileOne_NoPayments(t *testing.T) {
	mem := store.NewMemory()
	id := seedContract(t, mem, "100.00")

	rc := &booking.Reconciler{Store: mem}
	result, err := rc.ReconcileOne(context.Background(), id)
	require.NoError(t, err)

	assert.False(t, result.Reconciled)
	assert.True(t, result.TotalPaid.IsZero())
	assert.True(t, result.Diff.Equal(dec("100.00")))
}

func TestReconcileOne_DanglingService_OwesZero(t *testing.T) {
	// GIVEN: A contract whose service was deleted
	// WHEN: It is reconciled
	// THEN: Owed is zero, so it reconciles, and the name falls back

	mem := store.NewMemory()
	ctx := context.Background()
	_, err := mem.SaveClient(ctx, booking.Client{ID: "cli-1", Name: "Ana Torres"})
	require.NoError(t, err)
	_, err = mem.SaveContract(ctx, booking.Contract{
		ID: "con-1", ClientID: "cli-1", ServiceID: "ghost", State: booking.StateActive,
	})
	require.NoError(t, err)

	rc := &booking.Reconciler{Store: mem}
	result, err := rc.ReconcileOne(ctx, "con-1")
	require.NoError(t, err)

	assert.True(t, result.AmountOwed.IsZero())
	assert.True(t, result.Reconciled)
	assert.Equal(t, "N/A", result.ServiceName)
}

func TestReconcileOne_UnknownContract_NotFound(t *testing.T) {
	rc := &booking.Reconciler{Store: store.NewMemory()}
	_, err := rc.ReconcileOne(context.Background(), "ghost")
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestReconcileOne_IsIdempotent(t *testing.T) {
	// Reconciliation is a pure read; running it twice yields the same
	// result and never mutates payments or contracts.

	mem := store.NewMemory()
	id := seedContract(t, mem, "100.00")
	addPayment(t, mem, id, "60.00", booking.PaymentCompleted)

	rc := &booking.Reconciler{Store: mem}
	first, err := rc.ReconcileOne(context.Background(), id)
	require.NoError(t, err)
	second, err := rc.ReconcileOne(context.Background(), id)
	require.NoError(t, err)

	assert.True(t, first.Diff.Equal(second.Diff))
	assert.Equal(t, first.PaymentCount, second.PaymentCount)
}

// =============================================================================
// ALL CONTRACTS
// =============================================================================

func TestReconcileAll_SkipsCancelled(t *testing.T) {
	// GIVEN: One active and one cancelled contract
	// WHEN: Reconciling everything
	// THEN: Only the active contract appears

	mem := store.NewMemory()
	ctx := context.Background()
	seedContract(t, mem, "100.00")
	_, err := mem.SaveContract(ctx, booking.Contract{
		ID: "con-2", ClientID: "cli-1", ServiceID: "svc-1", State: booking.StateCancelled,
	})
	require.NoError(t, err)

	rc := &booking.Reconciler{Store: mem}
	results, err := rc.ReconcileAll(ctx)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "con-1", results[0].ContractID)
}
