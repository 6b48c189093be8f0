// Package memory provides an in-memory billing.Store for tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/carebase/billing-engine/billing"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Store keeps every table in maps guarded by one mutex. Semantics mirror
// the sqlite store, including the invoice-number uniqueness rejection.
type Store struct {
	mu        sync.RWMutex
	carers    map[billing.CarerID]billing.Carer
	clients   map[billing.ClientID]billing.Client
	lineItems map[billing.LineItemID]billing.LineItem
	shifts    map[billing.ShiftID]billing.Shift
	invoices  map[billing.InvoiceID]billing.Invoice
	views     map[string]billing.SavedCalendarView // keyed by name

	// Err, when set, is returned by every operation. Lets tests exercise
	// store-failure paths.
	Err error
}

// New returns an empty store.
func New() *Store {
	return &Store{
		carers:    make(map[billing.CarerID]billing.Carer),
		clients:   make(map[billing.ClientID]billing.Client),
		lineItems: make(map[billing.LineItemID]billing.LineItem),
		shifts:    make(map[billing.ShiftID]billing.Shift),
		invoices:  make(map[billing.InvoiceID]billing.Invoice),
		views:     make(map[string]billing.SavedCalendarView),
	}
}

// --- carers ---

func (m *Store) SaveCarer(_ context.Context, c billing.Carer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.carers[c.ID] = c
	return nil
}

func (m *Store) GetCarer(_ context.Context, id billing.CarerID) (*billing.Carer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if c, ok := m.carers[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (m *Store) ListCarers(_ context.Context) ([]billing.Carer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]billing.Carer, 0, len(m.carers))
	for _, c := range m.carers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// --- clients ---

func (m *Store) SaveClient(_ context.Context, c billing.Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.clients[c.ID] = c
	return nil
}

func (m *Store) GetClient(_ context.Context, id billing.ClientID) (*billing.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if c, ok := m.clients[id]; ok {
		return &c, nil
	}
	return nil, nil
}

func (m *Store) ListClients(_ context.Context) ([]billing.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]billing.Client, 0, len(m.clients))
	for _, c := range m.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastName < out[j].LastName })
	return out, nil
}

// --- line items ---

func (m *Store) SaveLineItem(_ context.Context, li billing.LineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.lineItems[li.ID] = li
	return nil
}

func (m *Store) GetLineItem(_ context.Context, id billing.LineItemID) (*billing.LineItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if li, ok := m.lineItems[id]; ok {
		return &li, nil
	}
	return nil, nil
}

func (m *Store) ListLineItems(_ context.Context) ([]billing.LineItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]billing.LineItem, 0, len(m.lineItems))
	for _, li := range m.lineItems {
		out = append(out, li)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// --- shifts ---

func (m *Store) SaveShift(_ context.Context, s billing.Shift) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	s.Date = billing.Day(s.Date)
	m.shifts[s.ID] = s
	return nil
}

func (m *Store) GetShift(_ context.Context, id billing.ShiftID) (*billing.Shift, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if s, ok := m.shifts[id]; ok {
		return &s, nil
	}
	return nil, nil
}

func (m *Store) ListShifts(_ context.Context, f billing.ShiftFilter) ([]billing.Shift, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}

	var out []billing.Shift
	for _, s := range m.shifts {
		if !matches(s, f) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func matches(s billing.Shift, f billing.ShiftFilter) bool {
	if f.ClientID != nil && s.ClientID != *f.ClientID {
		return false
	}
	if len(f.CarerIDs) > 0 {
		found := false
		for _, id := range f.CarerIDs {
			if s.CarerID == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.DateFrom != nil && s.Date.Before(billing.Day(*f.DateFrom)) {
		return false
	}
	if f.DateTo != nil && s.Date.After(billing.Day(*f.DateTo)) {
		return false
	}
	if f.HasLineItem != nil && *f.HasLineItem != (s.LineItemID != nil) {
		return false
	}
	return true
}

// --- invoices ---

func (m *Store) SaveInvoice(_ context.Context, inv billing.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for _, existing := range m.invoices {
		if existing.Number == inv.Number && existing.ID != inv.ID {
			return billing.ErrDuplicateInvoiceNumber
		}
	}
	m.invoices[inv.ID] = inv
	return nil
}

func (m *Store) GetInvoice(_ context.Context, id billing.InvoiceID) (*billing.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if inv, ok := m.invoices[id]; ok {
		return &inv, nil
	}
	return nil, nil
}

func (m *Store) FindInvoice(_ context.Context, number string, invoiceDate time.Time) (*billing.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	day := billing.Day(invoiceDate)
	for _, inv := range m.invoices {
		if inv.Number == number && billing.Day(inv.InvoiceDate).Equal(day) {
			found := inv
			return &found, nil
		}
	}
	return nil, nil
}

func (m *Store) FindInvoiceByNumber(_ context.Context, number string) (*billing.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, inv := range m.invoices {
		if inv.Number == number {
			found := inv
			return &found, nil
		}
	}
	return nil, nil
}

func (m *Store) ListInvoices(_ context.Context, ownerID string) ([]billing.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []billing.Invoice
	for _, inv := range m.invoices {
		if inv.OwnerID == ownerID {
			out = append(out, inv)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].InvoiceDate.Equal(out[j].InvoiceDate) {
			return out[i].InvoiceDate.After(out[j].InvoiceDate)
		}
		return out[i].Number > out[j].Number
	})
	return out, nil
}

func (m *Store) DeleteInvoice(_ context.Context, id billing.InvoiceID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	if _, ok := m.invoices[id]; !ok {
		return false, nil
	}
	delete(m.invoices, id)
	return true, nil
}

// --- calendar views ---

func (m *Store) UpsertCalendarView(_ context.Context, v billing.SavedCalendarView) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if existing, ok := m.views[v.Name]; ok {
		v.ID = existing.ID
		v.CreatedAt = existing.CreatedAt
	}
	m.views[v.Name] = v
	return nil
}

func (m *Store) ListCalendarViews(_ context.Context) ([]billing.SavedCalendarView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]billing.SavedCalendarView, 0, len(m.views))
	for _, v := range m.views {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Store) DeleteCalendarView(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	if _, ok := m.views[name]; !ok {
		return false, nil
	}
	delete(m.views, name)
	return true, nil
}
