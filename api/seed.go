/*
seed.go - Demo data loader for testing and demonstrations

PURPOSE:

	Populates the store with a small realistic data set: a handful of
	carers and clients, a line item catalog, and two weeks of shifts
	mixing rate-derived and manually costed entries. Useful for demos
	and for exercising the invoice flow end to end without a frontend.

USAGE VIA API:

	POST /api/demo/load

NOTE:

	Loading does not clear existing data; identifiers are fixed so a
	reload overwrites the same records. Only use in development/demo
	environments.

SEE ALSO:
  - server.go: Route registration
  - records.go: The CRUD handlers the demo data feeds
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/carebase/billing-engine/billing"
)

// LoadDemoData populates the store with demo records.
func (h *Handler) LoadDemoData(w http.ResponseWriter, r *http.Request) {
	if err := seedDemoData(r.Context(), h.Store); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load demo data", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded"})
}

func seedDemoData(ctx context.Context, store billing.Store) error {
	carers := []billing.Carer{
		{ID: "carer-ana", Name: "Ana Kowalski", Email: "ana@example.com", Color: "#4e79a7"},
		{ID: "carer-ben", Name: "Ben Osei", Email: "ben@example.com", Color: "#f28e2b"},
		{ID: "carer-cleo", Name: "Cleo Marsh", Email: "cleo@example.com"},
	}
	for _, c := range carers {
		if err := store.SaveCarer(ctx, c); err != nil {
			return fmt.Errorf("seed carer %s: %w", c.ID, err)
		}
	}

	clients := []billing.Client{
		{ID: "client-hart", FirstName: "Margaret", LastName: "Hart"},
		{ID: "client-reed", FirstName: "Douglas", LastName: "Reed"},
	}
	for _, c := range clients {
		if err := store.SaveClient(ctx, c); err != nil {
			return fmt.Errorf("seed client %s: %w", c.ID, err)
		}
	}

	items := []billing.LineItem{
		{ID: "li-day", Code: "Day Care", Category: "Care", Rate: billing.NewMoney(22.50)},
		{ID: "li-night", Code: "Night Care", Category: "Care", Rate: billing.NewMoney(28.00)},
		{ID: "li-transport", Code: "Transport", Category: "Extras", Rate: billing.NewMoney(15.00)},
	}
	for _, li := range items {
		if err := store.SaveLineItem(ctx, li); err != nil {
			return fmt.Errorf("seed line item %s: %w", li.ID, err)
		}
	}

	dayItem := billing.LineItemID("li-day")
	nightItem := billing.LineItemID("li-night")
	manualCost := billing.NewMoney(45.00)

	base := billing.Day(time.Now().UTC().AddDate(0, 0, -14))
	shifts := []billing.Shift{
		{ID: "shift-001", Date: base, StartTime: "09:00", EndTime: "13:00", CarerID: "carer-ana", ClientID: "client-hart", LineItemID: &dayItem},
		{ID: "shift-002", Date: base.AddDate(0, 0, 1), StartTime: "09:00", EndTime: "13:00", CarerID: "carer-ana", ClientID: "client-hart", LineItemID: &dayItem},
		{ID: "shift-003", Date: base.AddDate(0, 0, 2), StartTime: "21:00", EndTime: "07:00", CarerID: "carer-ben", ClientID: "client-hart", LineItemID: &nightItem},
		{ID: "shift-004", Date: base.AddDate(0, 0, 3), StartTime: "10:00", EndTime: "12:00", CarerID: "carer-cleo", ClientID: "client-reed", Category: billing.ManualCategory, Cost: &manualCost},
		{ID: "shift-005", Date: base.AddDate(0, 0, 5), StartTime: "09:00", EndTime: "17:00", CarerID: "carer-ben", ClientID: "client-reed", LineItemID: &dayItem},
		{ID: "shift-006", Date: base.AddDate(0, 0, 8), StartTime: "09:00", EndTime: "13:00", CarerID: "carer-ana", ClientID: "client-hart", LineItemID: &dayItem},
	}
	for _, s := range shifts {
		if err := store.SaveShift(ctx, s); err != nil {
			return fmt.Errorf("seed shift %s: %w", s.ID, err)
		}
	}

	return nil
}
