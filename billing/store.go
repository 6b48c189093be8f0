/*
store.go - Persistence interfaces for the billing core

PURPOSE:
  Defines the Record Store Gateway: the typed interface between the billing
  core and the relational store. The core only ever sees these interfaces;
  the sqlite implementation (and the in-memory fake used by tests) live
  behind them and are injected at construction, never reached through a
  package-level singleton.

FILTER MODEL:
  Row selection uses conjunctive equality / range (gte, lte) / null-check
  predicates expressed as optional struct fields. A nil field means "no
  constraint on this column".

LOOKUP CONTRACT:
  Get and Find lookups return (nil, nil) on zero matches; callers decide
  whether that is ErrNotFound or a tolerated fallback. Delete operations
  report whether a row was actually removed so callers can surface NotFound
  instead of silently succeeding.

IMPLEMENTATIONS:
  - store/sqlite: production store (WAL, versioned migrations)
  - store/memory: in-memory fake for unit tests
*/
package billing

import (
	"context"
	"time"
)

// =============================================================================
// FILTERS
// =============================================================================

// ShiftFilter selects shift rows. All set fields combine conjunctively.
type ShiftFilter struct {
	ClientID    *ClientID
	CarerIDs    []CarerID  // equality against any of the set
	DateFrom    *time.Time // inclusive, calendar date
	DateTo      *time.Time // inclusive, calendar date
	HasLineItem *bool      // null-check on the line item reference
}

// =============================================================================
// STORE INTERFACES
// =============================================================================

// AggregationStore is the narrow read surface the Shift Aggregator needs.
type AggregationStore interface {
	ListShifts(ctx context.Context, f ShiftFilter) ([]Shift, error)
	GetCarer(ctx context.Context, id CarerID) (*Carer, error)
	GetLineItem(ctx context.Context, id LineItemID) (*LineItem, error)
}

// CarerStore persists carers.
type CarerStore interface {
	SaveCarer(ctx context.Context, c Carer) error
	GetCarer(ctx context.Context, id CarerID) (*Carer, error)
	ListCarers(ctx context.Context) ([]Carer, error)
}

// ClientStore persists clients.
type ClientStore interface {
	SaveClient(ctx context.Context, c Client) error
	GetClient(ctx context.Context, id ClientID) (*Client, error)
	ListClients(ctx context.Context) ([]Client, error)
}

// LineItemStore persists billable line items.
type LineItemStore interface {
	SaveLineItem(ctx context.Context, li LineItem) error
	GetLineItem(ctx context.Context, id LineItemID) (*LineItem, error)
	ListLineItems(ctx context.Context) ([]LineItem, error)
}

// ShiftStore persists shifts. Shifts are never hard-deleted from the
// aggregation path, so there is no delete operation here.
type ShiftStore interface {
	SaveShift(ctx context.Context, s Shift) error
	GetShift(ctx context.Context, id ShiftID) (*Shift, error)
	ListShifts(ctx context.Context, f ShiftFilter) ([]Shift, error)
}

// InvoiceStore persists invoice metadata. The artifact itself is derived
// and never stored.
type InvoiceStore interface {
	// SaveInvoice inserts a record. Returns ErrDuplicateInvoiceNumber when
	// the number collides (store-level unique constraint).
	SaveInvoice(ctx context.Context, inv Invoice) error
	GetInvoice(ctx context.Context, id InvoiceID) (*Invoice, error)
	// FindInvoice looks up by number and invoice date (the download key).
	FindInvoice(ctx context.Context, number string, invoiceDate time.Time) (*Invoice, error)
	// FindInvoiceByNumber looks up by number alone (the uniqueness key).
	FindInvoiceByNumber(ctx context.Context, number string) (*Invoice, error)
	ListInvoices(ctx context.Context, ownerID string) ([]Invoice, error)
	// DeleteInvoice reports whether a row was removed.
	DeleteInvoice(ctx context.Context, id InvoiceID) (bool, error)
}

// CalendarViewStore persists saved calendar configurations, keyed by name.
type CalendarViewStore interface {
	UpsertCalendarView(ctx context.Context, v SavedCalendarView) error
	ListCalendarViews(ctx context.Context) ([]SavedCalendarView, error)
	DeleteCalendarView(ctx context.Context, name string) (bool, error)
}

// Store is the full gateway surface.
type Store interface {
	CarerStore
	ClientStore
	LineItemStore
	ShiftStore
	InvoiceStore
	CalendarViewStore
}
