/*
invoices.go - Invoice record lifecycle

PURPOSE:
  Persists, lists, deletes, and regenerates invoices. An invoice stores
  only its parameters (number, scope, period, dates); both the total and
  the downloadable artifact are derived from current shift data at read
  time. Re-downloading an invoice after a shift edit therefore reflects
  the edited costs, by design.

DUPLICATE NUMBERS:
  Save performs a friendly pre-insert lookup, but the real guarantee is
  the store's unique constraint on invoice_number: two concurrent saves
  with the same number cannot both land.

STATE MACHINE:
  None. An invoice exists or it doesn't; generation is stateless and
  re-entrant.
*/
package billing

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// InvoiceManager owns invoice records and their regeneration.
type InvoiceManager struct {
	store      Store
	aggregator *Aggregator
	composer   Composer
}

// NewInvoiceManager wires the manager. The store and composer are injected;
// the manager builds its own aggregator over the same store.
func NewInvoiceManager(store Store, composer Composer) *InvoiceManager {
	return &InvoiceManager{
		store:      store,
		aggregator: NewAggregator(store),
		composer:   composer,
	}
}

// Aggregator exposes the manager's aggregator for preview endpoints.
func (m *InvoiceManager) Aggregator() *Aggregator {
	return m.aggregator
}

// Save validates and persists invoice metadata. The record's ID is assigned
// here when the caller did not supply one.
func (m *InvoiceManager) Save(ctx context.Context, inv Invoice) (Invoice, error) {
	if strings.TrimSpace(inv.Number) == "" {
		return Invoice{}, ErrMissingInvoiceNumber
	}
	inv.DateFrom, inv.DateTo = Day(inv.DateFrom), Day(inv.DateTo)
	inv.InvoiceDate = Day(inv.InvoiceDate)
	if inv.DateTo.Before(inv.DateFrom) {
		return Invoice{}, ErrInvalidDateRange
	}
	if inv.ID == "" {
		inv.ID = InvoiceID(uuid.NewString())
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}

	// Friendly duplicate check; the unique constraint below is what actually
	// closes the race between concurrent saves.
	existing, err := m.store.FindInvoiceByNumber(ctx, inv.Number)
	if err != nil {
		return Invoice{}, &StoreError{Op: "find invoice", Table: "invoices", Err: err}
	}
	if existing != nil {
		return Invoice{}, ErrDuplicateInvoiceNumber
	}

	if err := m.store.SaveInvoice(ctx, inv); err != nil {
		if IsValidation(err) {
			return Invoice{}, err
		}
		return Invoice{}, &StoreError{Op: "insert invoice", Table: "invoices", Err: err}
	}
	return inv, nil
}

// List returns the owner's invoices, newest first, each with a total
// recomputed from the shifts its persisted parameters currently match.
// A cached total is never trusted because none is ever stored.
func (m *InvoiceManager) List(ctx context.Context, ownerID string) ([]InvoiceSummary, error) {
	invoices, err := m.store.ListInvoices(ctx, ownerID)
	if err != nil {
		return nil, &StoreError{Op: "list invoices", Table: "invoices", Err: err}
	}

	summaries := make([]InvoiceSummary, 0, len(invoices))
	for _, inv := range invoices {
		_, total, err := m.aggregator.Aggregate(ctx, []CarerID{inv.CarerID}, inv.ClientID, inv.DateFrom, inv.DateTo)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, InvoiceSummary{Invoice: inv, TotalAmount: total})
	}
	return summaries, nil
}

// Delete removes an invoice record. The shifts it summarized are untouched.
func (m *InvoiceManager) Delete(ctx context.Context, id InvoiceID) error {
	deleted, err := m.store.DeleteInvoice(ctx, id)
	if err != nil {
		return &StoreError{Op: "delete invoice", Table: "invoices", Err: err}
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

// Download regenerates the artifact for the invoice matching number and
// invoiceDate from its persisted parameters. This is idempotent
// regeneration, not retrieval of a stored file.
func (m *InvoiceManager) Download(ctx context.Context, number string, invoiceDate time.Time) (Artifact, error) {
	inv, err := m.store.FindInvoice(ctx, number, Day(invoiceDate))
	if err != nil {
		return Artifact{}, &StoreError{Op: "find invoice", Table: "invoices", Err: err}
	}
	if inv == nil {
		return Artifact{}, ErrNotFound
	}

	lines, _, err := m.aggregator.Aggregate(ctx, []CarerID{inv.CarerID}, inv.ClientID, inv.DateFrom, inv.DateTo)
	if err != nil {
		return Artifact{}, &RegenerationError{InvoiceNumber: number, Err: err}
	}

	meta, err := m.metadataFor(ctx, *inv)
	if err != nil {
		return Artifact{}, err
	}

	art, err := m.composer.Compose(lines, meta)
	if err != nil {
		return Artifact{}, &RegenerationError{InvoiceNumber: number, Err: err}
	}
	return art, nil
}

// metadataFor resolves the display names the composer embeds. A dangling
// carer reference degrades to its ID; a missing client is a NotFound since
// every invoice must resolve to exactly one client.
func (m *InvoiceManager) metadataFor(ctx context.Context, inv Invoice) (InvoiceMetadata, error) {
	meta := InvoiceMetadata{
		Number:      inv.Number,
		InvoiceDate: inv.InvoiceDate,
		PeriodFrom:  inv.DateFrom,
		PeriodTo:    inv.DateTo,
		FileName:    inv.FileName,
	}

	carer, err := m.store.GetCarer(ctx, inv.CarerID)
	if err != nil {
		return InvoiceMetadata{}, &StoreError{Op: "get carer", Table: "carers", Err: err}
	}
	if carer != nil {
		meta.CarerName = carer.Name
	} else {
		meta.CarerName = string(inv.CarerID)
	}

	client, err := m.store.GetClient(ctx, inv.ClientID)
	if err != nil {
		return InvoiceMetadata{}, &StoreError{Op: "get client", Table: "clients", Err: err}
	}
	if client == nil {
		return InvoiceMetadata{}, ErrNotFound
	}
	meta.ClientName = client.DisplayName()

	return meta, nil
}
