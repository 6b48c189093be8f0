package billing_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebase/billing-engine/artifact"
	"github.com/carebase/billing-engine/billing"
	"github.com/carebase/billing-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestManager(t *testing.T) (*billing.InvoiceManager, *memory.Store) {
	t.Helper()
	store := memory.New()
	return billing.NewInvoiceManager(store, artifact.NewComposer()), store
}

func seedInvoiceScope(t *testing.T, store *memory.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.SaveCarer(ctx, billing.Carer{ID: "c1", Name: "Ana Kowalski"}))
	require.NoError(t, store.SaveClient(ctx, billing.Client{ID: "cl1", FirstName: "Margaret", LastName: "Hart"}))
}

func testInvoice(number string) billing.Invoice {
	return billing.Invoice{
		Number:      number,
		OwnerID:     "owner-1",
		CarerID:     "c1",
		ClientID:    "cl1",
		DateFrom:    day(2025, time.January, 1),
		DateTo:      day(2025, time.January, 31),
		InvoiceDate: day(2025, time.February, 1),
	}
}

// =============================================================================
// SAVE TESTS
// =============================================================================

func TestInvoiceSave_AssignsIDAndCreatedAt(t *testing.T) {
	mgr, store := newTestManager(t)
	seedInvoiceScope(t, store)

	saved, err := mgr.Save(context.Background(), testInvoice("INV-001"))
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())

	got, err := store.GetInvoice(context.Background(), saved.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "INV-001", got.Number)
}

func TestInvoiceSave_RejectsBlankNumber(t *testing.T) {
	mgr, _ := newTestManager(t)

	inv := testInvoice("   ")
	_, err := mgr.Save(context.Background(), inv)
	assert.ErrorIs(t, err, billing.ErrMissingInvoiceNumber)
	assert.True(t, billing.IsValidation(err))
}

func TestInvoiceSave_RejectsInvertedPeriod(t *testing.T) {
	mgr, _ := newTestManager(t)

	inv := testInvoice("INV-002")
	inv.DateFrom, inv.DateTo = inv.DateTo, inv.DateFrom
	_, err := mgr.Save(context.Background(), inv)
	assert.ErrorIs(t, err, billing.ErrInvalidDateRange)
}

func TestInvoiceSave_RejectsDuplicateNumber(t *testing.T) {
	// GIVEN: A stored invoice INV-003
	mgr, store := newTestManager(t)
	seedInvoiceScope(t, store)
	ctx := context.Background()
	_, err := mgr.Save(ctx, testInvoice("INV-003"))
	require.NoError(t, err)

	// WHEN: Saving a second invoice with the same number on another date
	dup := testInvoice("INV-003")
	dup.InvoiceDate = day(2025, time.March, 1)
	_, err = mgr.Save(ctx, dup)

	// THEN: The duplicate is rejected as a validation error
	assert.ErrorIs(t, err, billing.ErrDuplicateInvoiceNumber)
	assert.True(t, billing.IsValidation(err))
}

// =============================================================================
// LIST TESTS
// =============================================================================

func TestInvoiceList_RecomputesTotalsFromCurrentShifts(t *testing.T) {
	// GIVEN: An invoice over January with one 50-cost shift
	mgr, store := newTestManager(t)
	seedInvoiceScope(t, store)
	ctx := context.Background()

	cost := billing.NewMoney(50)
	require.NoError(t, store.SaveShift(ctx, billing.Shift{
		ID: "s1", Date: day(2025, time.January, 10),
		StartTime: "09:00", EndTime: "13:00",
		CarerID: "c1", ClientID: "cl1",
		Category: billing.ManualCategory, Cost: &cost,
	}))
	_, err := mgr.Save(ctx, testInvoice("INV-010"))
	require.NoError(t, err)

	summaries, err := mgr.List(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.True(t, summaries[0].TotalAmount.Equal(billing.NewMoney(50)))

	// WHEN: A shift inside the period is edited after the invoice was saved
	newCost := billing.NewMoney(80)
	require.NoError(t, store.SaveShift(ctx, billing.Shift{
		ID: "s1", Date: day(2025, time.January, 10),
		StartTime: "09:00", EndTime: "13:00",
		CarerID: "c1", ClientID: "cl1",
		Category: billing.ManualCategory, Cost: &newCost,
	}))

	// THEN: The listed total reflects the edit, since no total is stored
	summaries, err = mgr.List(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.True(t, summaries[0].TotalAmount.Equal(billing.NewMoney(80)),
		"total %s should track current shift data", summaries[0].TotalAmount)
}

func TestInvoiceList_ScopedToOwner(t *testing.T) {
	mgr, store := newTestManager(t)
	seedInvoiceScope(t, store)
	ctx := context.Background()

	mine := testInvoice("INV-020")
	_, err := mgr.Save(ctx, mine)
	require.NoError(t, err)

	other := testInvoice("INV-021")
	other.OwnerID = "owner-2"
	_, err = mgr.Save(ctx, other)
	require.NoError(t, err)

	summaries, err := mgr.List(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "INV-020", summaries[0].Number)
}

// =============================================================================
// DELETE TESTS
// =============================================================================

func TestInvoiceDelete(t *testing.T) {
	mgr, store := newTestManager(t)
	seedInvoiceScope(t, store)
	ctx := context.Background()

	saved, err := mgr.Save(ctx, testInvoice("INV-030"))
	require.NoError(t, err)

	require.NoError(t, mgr.Delete(ctx, saved.ID))

	err = mgr.Delete(ctx, saved.ID)
	assert.ErrorIs(t, err, billing.ErrNotFound)
	assert.True(t, billing.IsNotFound(err))
}

// =============================================================================
// DOWNLOAD TESTS
// =============================================================================

func TestInvoiceDownload_RegeneratesFromCurrentShifts(t *testing.T) {
	// GIVEN: A saved invoice over a period with one 50-cost shift
	mgr, store := newTestManager(t)
	seedInvoiceScope(t, store)
	ctx := context.Background()

	cost := billing.NewMoney(50)
	require.NoError(t, store.SaveShift(ctx, billing.Shift{
		ID: "s1", Date: day(2025, time.January, 10),
		StartTime: "09:00", EndTime: "13:00",
		CarerID: "c1", ClientID: "cl1",
		Category: billing.ManualCategory, Cost: &cost,
	}))
	inv := testInvoice("INV-040")
	_, err := mgr.Save(ctx, inv)
	require.NoError(t, err)

	art1, err := mgr.Download(ctx, "INV-040", inv.InvoiceDate)
	require.NoError(t, err)
	assert.Contains(t, string(art1.Payload), "50.00")

	// WHEN: Another shift lands inside the period and we download again
	extra := billing.NewMoney(20)
	require.NoError(t, store.SaveShift(ctx, billing.Shift{
		ID: "s2", Date: day(2025, time.January, 12),
		StartTime: "14:00", EndTime: "16:00",
		CarerID: "c1", ClientID: "cl1",
		Category: billing.ManualCategory, Cost: &extra,
	}))
	art2, err := mgr.Download(ctx, "INV-040", inv.InvoiceDate)
	require.NoError(t, err)

	// THEN: The regenerated artifact includes the new line and the new total
	body := string(art2.Payload)
	assert.Contains(t, body, "20.00")
	assert.Contains(t, body, "70.00", "total should be 50 + 20")
	assert.NotEqual(t, art1.Payload, art2.Payload)
}

func TestInvoiceDownload_UnknownNumberIsNotFound(t *testing.T) {
	mgr, store := newTestManager(t)
	seedInvoiceScope(t, store)

	_, err := mgr.Download(context.Background(), "INV-GHOST", day(2025, time.February, 1))
	assert.ErrorIs(t, err, billing.ErrNotFound)
}

func TestInvoiceDownload_EmbedsNames(t *testing.T) {
	mgr, store := newTestManager(t)
	seedInvoiceScope(t, store)
	ctx := context.Background()

	inv := testInvoice("INV-050")
	_, err := mgr.Save(ctx, inv)
	require.NoError(t, err)

	art, err := mgr.Download(ctx, "INV-050", inv.InvoiceDate)
	require.NoError(t, err)

	body := string(art.Payload)
	assert.Contains(t, body, "Ana Kowalski")
	assert.Contains(t, body, "Margaret Hart")
	assert.True(t, strings.HasSuffix(art.Name, ".csv"))
	assert.Equal(t, "text/csv", art.MIMEType)
}

func TestInvoiceDownload_MissingClientFails(t *testing.T) {
	// GIVEN: An invoice whose client record no longer resolves
	mgr, store := newTestManager(t)
	ctx := context.Background()
	require.NoError(t, store.SaveCarer(ctx, billing.Carer{ID: "c1", Name: "Ana"}))

	inv := testInvoice("INV-060")
	inv.ClientID = "cl-ghost"
	_, err := mgr.Save(ctx, inv)
	require.NoError(t, err)

	_, err = mgr.Download(ctx, "INV-060", inv.InvoiceDate)
	assert.ErrorIs(t, err, billing.ErrNotFound)
}
