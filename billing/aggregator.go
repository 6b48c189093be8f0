/*
aggregator.go - Shift aggregation and cost resolution

PURPOSE:
  Turns a carer/client/date-range scope into an ordered sequence of fully
  resolved shift lines plus a grand total. This is the single computation
  the Invoice Composer and the invoice listing both depend on.

COST RESOLUTION:
  - A stored shift cost always wins and is never recomputed: historical
    rate changes must not silently alter past shift costs.
  - Only when no cost was stored is one derived: shift duration in hours
    times the line item's hourly rate, rounded to 2dp.
  - A missing line item falls back to the "Manual" label for the line's
    description instead of failing the whole aggregation.

ORDERING:
  Results are ordered by shift date ascending, stable on ties by shift ID.

ERRORS:
  Store failures surface as *StoreError. A rate-derived shift whose clock
  times do not parse fails the aggregation; it is never silently priced
  at zero. An empty result set is valid: zero shifts, zero total.
*/
package billing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Aggregator computes shift totals over a carer/client/date-range scope.
type Aggregator struct {
	store AggregationStore
}

// NewAggregator creates an aggregator over the given store.
func NewAggregator(store AggregationStore) *Aggregator {
	return &Aggregator{store: store}
}

// Aggregate fetches shifts for clientID worked by any of carerIDs with
// dates in [from, to] inclusive, resolves display fields, and returns the
// ordered lines and their total cost.
func (a *Aggregator) Aggregate(ctx context.Context, carerIDs []CarerID, clientID ClientID, from, to time.Time) ([]ShiftDetail, Money, error) {
	if len(carerIDs) == 0 {
		return nil, ZeroMoney(), ErrNoCarersSelected
	}
	from, to = Day(from), Day(to)
	if to.Before(from) {
		return nil, ZeroMoney(), ErrInvalidDateRange
	}

	shifts, err := a.store.ListShifts(ctx, ShiftFilter{
		ClientID: &clientID,
		CarerIDs: carerIDs,
		DateFrom: &from,
		DateTo:   &to,
	})
	if err != nil {
		return nil, ZeroMoney(), &StoreError{Op: "list shifts", Table: "shifts", Err: err}
	}

	carers, err := a.resolveCarers(ctx, shifts)
	if err != nil {
		return nil, ZeroMoney(), err
	}
	items, err := a.resolveLineItems(ctx, shifts)
	if err != nil {
		return nil, ZeroMoney(), err
	}

	details := make([]ShiftDetail, 0, len(shifts))
	total := ZeroMoney()

	for _, s := range shifts {
		d := ShiftDetail{
			ShiftID:   s.ID,
			Date:      Day(s.Date),
			StartTime: s.StartTime,
			EndTime:   s.EndTime,
			CarerID:   s.CarerID,
		}

		if c, ok := carers[s.CarerID]; ok {
			d.CarerName = c.Name
		} else {
			// Dangling carer reference: keep the row visible under its ID.
			d.CarerName = string(s.CarerID)
		}

		var item *LineItem
		if s.LineItemID != nil {
			item = items[*s.LineItemID]
		}
		d.Description = describeShift(s, item)
		d.Cost, err = resolveCost(s, item)
		if err != nil {
			return nil, ZeroMoney(), err
		}

		total = total.Add(d.Cost)
		details = append(details, d)
	}

	sort.SliceStable(details, func(i, j int) bool {
		if !details[i].Date.Equal(details[j].Date) {
			return details[i].Date.Before(details[j].Date)
		}
		return details[i].ShiftID < details[j].ShiftID
	})

	return details, total, nil
}

// describeShift picks the line description: the line item's code when it
// resolved, otherwise the shift's own category, otherwise "Manual".
func describeShift(s Shift, item *LineItem) string {
	if item != nil {
		return item.Code
	}
	if s.Category != "" {
		return s.Category
	}
	return ManualCategory
}

// resolveCost applies the cost precedence: stored cost, then derived from
// the line item rate, then zero. Rate derivation needs parseable shift
// times; a malformed row fails the aggregation rather than pricing at 0.
func resolveCost(s Shift, item *LineItem) (Money, error) {
	if s.Cost != nil {
		return *s.Cost, nil
	}
	if item == nil {
		return ZeroMoney(), nil
	}
	hours, err := ShiftHours(s.StartTime, s.EndTime)
	if err != nil {
		return ZeroMoney(), fmt.Errorf("shift %s: %w", s.ID, err)
	}
	return Money{Value: item.Rate.Value.Mul(hours)}.Round2(), nil
}

// ShiftHours returns the duration between two "15:04" clock times as a
// decimal hour count. An end at or before the start means the shift
// crosses midnight.
func ShiftHours(start, end string) (decimal.Decimal, error) {
	s, err := time.Parse("15:04", start)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid start time %q: %w", start, err)
	}
	e, err := time.Parse("15:04", end)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid end time %q: %w", end, err)
	}
	mins := e.Sub(s).Minutes()
	if mins <= 0 {
		mins += 24 * 60
	}
	return decimal.NewFromFloat(mins).Div(decimal.NewFromInt(60)), nil
}

func (a *Aggregator) resolveCarers(ctx context.Context, shifts []Shift) (map[CarerID]*Carer, error) {
	carers := make(map[CarerID]*Carer)
	for _, s := range shifts {
		if _, seen := carers[s.CarerID]; seen {
			continue
		}
		c, err := a.store.GetCarer(ctx, s.CarerID)
		if err != nil {
			return nil, &StoreError{Op: "get carer", Table: "carers", Err: err}
		}
		if c != nil {
			carers[s.CarerID] = c
		} else {
			// Remember the miss so we only look it up once.
			carers[s.CarerID] = nil
		}
	}
	// Drop the nil markers before returning.
	for id, c := range carers {
		if c == nil {
			delete(carers, id)
		}
	}
	return carers, nil
}

func (a *Aggregator) resolveLineItems(ctx context.Context, shifts []Shift) (map[LineItemID]*LineItem, error) {
	items := make(map[LineItemID]*LineItem)
	seen := make(map[LineItemID]bool)
	for _, s := range shifts {
		if s.LineItemID == nil || seen[*s.LineItemID] {
			continue
		}
		seen[*s.LineItemID] = true
		li, err := a.store.GetLineItem(ctx, *s.LineItemID)
		if err != nil {
			return nil, &StoreError{Op: "get line item", Table: "line_items", Err: err}
		}
		if li != nil {
			items[*s.LineItemID] = li
		}
	}
	return items, nil
}
