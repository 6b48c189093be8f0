package billing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebase/billing-engine/billing"
	"github.com/carebase/billing-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestAggregator(t *testing.T) (*billing.Aggregator, *memory.Store) {
	t.Helper()
	store := memory.New()
	return billing.NewAggregator(store), store
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func money(v float64) billing.Money {
	return billing.NewMoney(v)
}

func seedCarer(t *testing.T, store *memory.Store, id billing.CarerID, name string) {
	t.Helper()
	require.NoError(t, store.SaveCarer(context.Background(), billing.Carer{ID: id, Name: name}))
}

func seedShift(t *testing.T, store *memory.Store, s billing.Shift) {
	t.Helper()
	require.NoError(t, store.SaveShift(context.Background(), s))
}

// =============================================================================
// AGGREGATION TESTS
// =============================================================================

func TestAggregate_OrdersByDateAndTotals(t *testing.T) {
	// GIVEN: Two costed shifts stored out of date order
	agg, store := newTestAggregator(t)
	ctx := context.Background()
	seedCarer(t, store, "4", "Ana Kowalski")

	late := money(100)
	early := money(50)
	seedShift(t, store, billing.Shift{
		ID: "s-late", Date: day(2025, time.January, 5),
		StartTime: "09:00", EndTime: "13:00",
		CarerID: "4", ClientID: "1",
		Category: billing.ManualCategory, Cost: &late,
	})
	seedShift(t, store, billing.Shift{
		ID: "s-early", Date: day(2025, time.January, 3),
		StartTime: "09:00", EndTime: "13:00",
		CarerID: "4", ClientID: "1",
		Category: billing.ManualCategory, Cost: &early,
	})

	// WHEN: Aggregating the surrounding range
	details, total, err := agg.Aggregate(ctx, []billing.CarerID{"4"}, "1",
		day(2025, time.January, 1), day(2025, time.January, 10))

	// THEN: Lines come back date ascending and the total is their sum
	require.NoError(t, err)
	require.Len(t, details, 2)
	assert.Equal(t, billing.ShiftID("s-early"), details[0].ShiftID)
	assert.Equal(t, billing.ShiftID("s-late"), details[1].ShiftID)
	assert.Equal(t, "Ana Kowalski", details[0].CarerName)
	assert.True(t, total.Equal(money(150)), "total %s should be 150", total)
}

func TestAggregate_SameDateTieBreaksByShiftID(t *testing.T) {
	agg, store := newTestAggregator(t)
	ctx := context.Background()
	seedCarer(t, store, "c1", "Ben Osei")

	cost := money(10)
	d := day(2025, time.March, 2)
	for _, id := range []billing.ShiftID{"s-b", "s-a", "s-c"} {
		seedShift(t, store, billing.Shift{
			ID: id, Date: d, StartTime: "09:00", EndTime: "10:00",
			CarerID: "c1", ClientID: "cl1",
			Category: billing.ManualCategory, Cost: &cost,
		})
	}

	details, _, err := agg.Aggregate(ctx, []billing.CarerID{"c1"}, "cl1", d, d)
	require.NoError(t, err)
	require.Len(t, details, 3)
	assert.Equal(t, billing.ShiftID("s-a"), details[0].ShiftID)
	assert.Equal(t, billing.ShiftID("s-b"), details[1].ShiftID)
	assert.Equal(t, billing.ShiftID("s-c"), details[2].ShiftID)
}

func TestAggregate_EmptyRangeIsValid(t *testing.T) {
	// GIVEN: No shifts at all
	agg, _ := newTestAggregator(t)

	// WHEN: Aggregating any range
	details, total, err := agg.Aggregate(context.Background(),
		[]billing.CarerID{"c1"}, "cl1",
		day(2025, time.June, 1), day(2025, time.June, 30))

	// THEN: Zero lines and a zero total, not an error
	require.NoError(t, err)
	assert.Empty(t, details)
	assert.True(t, total.IsZero())
}

func TestAggregate_ValidationErrors(t *testing.T) {
	agg, _ := newTestAggregator(t)
	ctx := context.Background()

	_, _, err := agg.Aggregate(ctx, nil, "cl1",
		day(2025, time.June, 1), day(2025, time.June, 30))
	assert.ErrorIs(t, err, billing.ErrNoCarersSelected)

	_, _, err = agg.Aggregate(ctx, []billing.CarerID{"c1"}, "cl1",
		day(2025, time.June, 30), day(2025, time.June, 1))
	assert.ErrorIs(t, err, billing.ErrInvalidDateRange)
	assert.True(t, billing.IsValidation(err))
}

func TestAggregate_ExcludesOtherClientsAndCarers(t *testing.T) {
	agg, store := newTestAggregator(t)
	ctx := context.Background()
	seedCarer(t, store, "c1", "Ana")
	seedCarer(t, store, "c2", "Ben")

	cost := money(10)
	d := day(2025, time.April, 10)
	seedShift(t, store, billing.Shift{ID: "in-scope", Date: d, StartTime: "09:00", EndTime: "10:00", CarerID: "c1", ClientID: "cl1", Category: billing.ManualCategory, Cost: &cost})
	seedShift(t, store, billing.Shift{ID: "wrong-client", Date: d, StartTime: "09:00", EndTime: "10:00", CarerID: "c1", ClientID: "cl2", Category: billing.ManualCategory, Cost: &cost})
	seedShift(t, store, billing.Shift{ID: "wrong-carer", Date: d, StartTime: "09:00", EndTime: "10:00", CarerID: "c2", ClientID: "cl1", Category: billing.ManualCategory, Cost: &cost})

	details, total, err := agg.Aggregate(ctx, []billing.CarerID{"c1"}, "cl1", d, d)
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, billing.ShiftID("in-scope"), details[0].ShiftID)
	assert.True(t, total.Equal(money(10)))
}

// =============================================================================
// COST RESOLUTION TESTS
// =============================================================================

func TestAggregate_DerivesCostFromRate(t *testing.T) {
	// GIVEN: A 4 hour shift priced by a 22.50/hour line item, no stored cost
	agg, store := newTestAggregator(t)
	ctx := context.Background()
	seedCarer(t, store, "c1", "Ana")
	require.NoError(t, store.SaveLineItem(ctx, billing.LineItem{
		ID: "li-day", Code: "Day Care", Category: "Care", Rate: money(22.50),
	}))

	itemID := billing.LineItemID("li-day")
	d := day(2025, time.February, 3)
	seedShift(t, store, billing.Shift{
		ID: "s1", Date: d, StartTime: "09:00", EndTime: "13:00",
		CarerID: "c1", ClientID: "cl1", LineItemID: &itemID,
	})

	details, total, err := agg.Aggregate(ctx, []billing.CarerID{"c1"}, "cl1", d, d)
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "Day Care", details[0].Description)
	assert.True(t, details[0].Cost.Equal(money(90)), "4h * 22.50 = 90, got %s", details[0].Cost)
	assert.True(t, total.Equal(money(90)))
}

func TestAggregate_StoredCostWinsOverRate(t *testing.T) {
	// GIVEN: A shift with both a line item and a stored cost
	agg, store := newTestAggregator(t)
	ctx := context.Background()
	seedCarer(t, store, "c1", "Ana")
	require.NoError(t, store.SaveLineItem(ctx, billing.LineItem{
		ID: "li-day", Code: "Day Care", Rate: money(22.50),
	}))

	itemID := billing.LineItemID("li-day")
	stored := money(75)
	d := day(2025, time.February, 4)
	seedShift(t, store, billing.Shift{
		ID: "s1", Date: d, StartTime: "09:00", EndTime: "13:00",
		CarerID: "c1", ClientID: "cl1", LineItemID: &itemID, Cost: &stored,
	})

	// WHEN: Aggregating
	details, _, err := agg.Aggregate(ctx, []billing.CarerID{"c1"}, "cl1", d, d)

	// THEN: The stored cost is reported, never a rate recomputation
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.True(t, details[0].Cost.Equal(stored))
}

func TestAggregate_OvernightShiftCrossesMidnight(t *testing.T) {
	agg, store := newTestAggregator(t)
	ctx := context.Background()
	seedCarer(t, store, "c1", "Ben")
	require.NoError(t, store.SaveLineItem(ctx, billing.LineItem{
		ID: "li-night", Code: "Night Care", Rate: money(28),
	}))

	itemID := billing.LineItemID("li-night")
	d := day(2025, time.February, 5)
	seedShift(t, store, billing.Shift{
		ID: "s1", Date: d, StartTime: "21:00", EndTime: "07:00",
		CarerID: "c1", ClientID: "cl1", LineItemID: &itemID,
	})

	details, _, err := agg.Aggregate(ctx, []billing.CarerID{"c1"}, "cl1", d, d)
	require.NoError(t, err)
	require.Len(t, details, 1)
	// 21:00 to 07:00 is 10 hours
	assert.True(t, details[0].Cost.Equal(money(280)), "got %s", details[0].Cost)
}

func TestAggregate_MissingLineItemFallsBackToManual(t *testing.T) {
	// GIVEN: A shift referencing a line item that does not exist
	agg, store := newTestAggregator(t)
	ctx := context.Background()
	seedCarer(t, store, "c1", "Ana")

	ghost := billing.LineItemID("li-deleted")
	d := day(2025, time.February, 6)
	seedShift(t, store, billing.Shift{
		ID: "s1", Date: d, StartTime: "09:00", EndTime: "10:00",
		CarerID: "c1", ClientID: "cl1", LineItemID: &ghost,
	})

	// WHEN: Aggregating
	details, total, err := agg.Aggregate(ctx, []billing.CarerID{"c1"}, "cl1", d, d)

	// THEN: The line survives with the Manual label and a zero cost
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, billing.ManualCategory, details[0].Description)
	assert.True(t, details[0].Cost.IsZero())
	assert.True(t, total.IsZero())
}

func TestAggregate_ShiftCategoryBeatsManualFallback(t *testing.T) {
	agg, store := newTestAggregator(t)
	ctx := context.Background()
	seedCarer(t, store, "c1", "Ana")

	cost := money(30)
	d := day(2025, time.February, 7)
	seedShift(t, store, billing.Shift{
		ID: "s1", Date: d, StartTime: "09:00", EndTime: "10:00",
		CarerID: "c1", ClientID: "cl1", Category: "Respite", Cost: &cost,
	})

	details, _, err := agg.Aggregate(ctx, []billing.CarerID{"c1"}, "cl1", d, d)
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "Respite", details[0].Description)
}

func TestAggregate_DanglingCarerKeepsRowUnderID(t *testing.T) {
	agg, store := newTestAggregator(t)
	ctx := context.Background()

	cost := money(30)
	d := day(2025, time.February, 8)
	seedShift(t, store, billing.Shift{
		ID: "s1", Date: d, StartTime: "09:00", EndTime: "10:00",
		CarerID: "no-such-carer", ClientID: "cl1",
		Category: billing.ManualCategory, Cost: &cost,
	})

	details, _, err := agg.Aggregate(ctx, []billing.CarerID{"no-such-carer"}, "cl1", d, d)
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "no-such-carer", details[0].CarerName)
}

func TestAggregate_MalformedTimesFailRateDerivation(t *testing.T) {
	// GIVEN: A rate-priced shift whose clock times do not parse, written
	// straight into the store past the API's write validation
	agg, store := newTestAggregator(t)
	ctx := context.Background()
	seedCarer(t, store, "c1", "Ana")
	require.NoError(t, store.SaveLineItem(ctx, billing.LineItem{
		ID: "li-day", Code: "Day Care", Rate: money(22.50),
	}))

	itemID := billing.LineItemID("li-day")
	d := day(2025, time.February, 9)
	seedShift(t, store, billing.Shift{
		ID: "s1", Date: d, StartTime: "9am", EndTime: "13:00",
		CarerID: "c1", ClientID: "cl1", LineItemID: &itemID,
	})

	// THEN: The aggregation fails instead of pricing the row at zero
	_, _, err := agg.Aggregate(ctx, []billing.CarerID{"c1"}, "cl1", d, d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s1")
}

func TestAggregate_StoredCostIgnoresMalformedTimes(t *testing.T) {
	// A stored cost never triggers time parsing, so a historical row with
	// odd times still aggregates.
	agg, store := newTestAggregator(t)
	ctx := context.Background()
	seedCarer(t, store, "c1", "Ana")

	cost := money(60)
	d := day(2025, time.February, 10)
	seedShift(t, store, billing.Shift{
		ID: "s1", Date: d, StartTime: "9am", EndTime: "late",
		CarerID: "c1", ClientID: "cl1",
		Category: billing.ManualCategory, Cost: &cost,
	})

	details, total, err := agg.Aggregate(ctx, []billing.CarerID{"c1"}, "cl1", d, d)
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.True(t, total.Equal(money(60)))
}

// =============================================================================
// FAILURE PATH TESTS
// =============================================================================

func TestAggregate_StoreFailureSurfacesAsStoreError(t *testing.T) {
	agg, store := newTestAggregator(t)
	store.Err = errors.New("disk on fire")

	_, _, err := agg.Aggregate(context.Background(),
		[]billing.CarerID{"c1"}, "cl1",
		day(2025, time.June, 1), day(2025, time.June, 30))

	require.Error(t, err)
	var storeErr *billing.StoreError
	assert.ErrorAs(t, err, &storeErr)
	assert.False(t, billing.IsValidation(err))
}

// =============================================================================
// SHIFT HOURS TESTS
// =============================================================================

func TestShiftHours(t *testing.T) {
	hours, err := billing.ShiftHours("09:00", "17:30")
	require.NoError(t, err)
	assert.Equal(t, "8.5", hours.String())

	hours, err = billing.ShiftHours("22:00", "06:00")
	require.NoError(t, err)
	assert.Equal(t, "8", hours.String())

	_, err = billing.ShiftHours("9am", "17:00")
	assert.Error(t, err)
}
