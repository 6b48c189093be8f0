/*
Package billing contains the core domain for the care shift billing engine.

PURPOSE:
  Domain types and algorithms for aggregating care shifts into invoices.
  Carers work shifts for clients; shifts are costed against billable line
  items; invoices are generated over a carer/client/date-range scope and
  always recompute their totals from current shift data.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: A currency amount backed by decimal.Decimal
  - Shift: A scheduled carer-to-client work period with an associated cost
  - LineItem: A billable service code with an hourly rate
  - Invoice: A pointer over a shift range; never owns its total
  - ShiftDetail: A fully resolved shift line ready for invoicing

DESIGN PRINCIPLES:
  1. Precision: Money uses decimal.Decimal, never floats
  2. Type Safety: Strong typing for IDs prevents mixing carer/client IDs
  3. Derived totals: Invoice totals are recomputed, never persisted
  4. Calendar-date granularity: shift dates are days, not timestamps

SEE ALSO:
  - aggregator.go: Shift aggregation and cost resolution
  - invoices.go: Invoice record lifecycle
  - store.go: Persistence interfaces
*/
package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Currency amount
// =============================================================================

// Money is a currency amount. All cost arithmetic goes through decimal to
// avoid floating-point drift in invoice totals.
type Money struct {
	Value decimal.Decimal
}

func NewMoney(value float64) Money {
	return Money{Value: decimal.NewFromFloat(value)}
}

func ZeroMoney() Money {
	return Money{Value: decimal.Zero}
}

// MoneyFromString parses a stored decimal string. Invalid input yields zero;
// the store is the only caller and writes values it previously formatted.
func MoneyFromString(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ZeroMoney()
	}
	return Money{Value: d}
}

func (m Money) Add(b Money) Money  { return Money{Value: m.Value.Add(b.Value)} }
func (m Money) Sub(b Money) Money  { return Money{Value: m.Value.Sub(b.Value)} }
func (m Money) IsZero() bool       { return m.Value.IsZero() }
func (m Money) IsNegative() bool   { return m.Value.IsNegative() }
func (m Money) Equal(b Money) bool { return m.Value.Equal(b.Value) }
func (m Money) Round2() Money      { return Money{Value: m.Value.Round(2)} }

// String formats with exactly two decimal places. Artifact rendering relies
// on this being deterministic.
func (m Money) String() string {
	return m.Value.StringFixed(2)
}

// Float64 returns an approximate float for JSON responses.
func (m Money) Float64() float64 {
	f, _ := m.Value.Float64()
	return f
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type CarerID string
type ClientID string
type ShiftID string
type LineItemID string
type InvoiceID string

// =============================================================================
// DATES - Calendar-date granularity
// =============================================================================

// DateFormat is the wire and storage format for calendar dates.
const DateFormat = "2006-01-02"

// Day truncates a time to UTC midnight. Shift and invoice dates are
// calendar dates; comparisons must not depend on time-of-day or zone.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

// =============================================================================
// ENTITIES
// =============================================================================

// Carer is a care worker. Color is a presentation field; when empty the API
// layer assigns a deterministic fallback, the core never reads it.
type Carer struct {
	ID        CarerID
	Name      string
	Email     string
	Phone     string
	Color     string
	CreatedAt time.Time
}

// Client is a care recipient. Every shift must resolve to exactly one
// client; a shift with no client is a data-integrity defect.
type Client struct {
	ID        ClientID
	FirstName string
	LastName  string
	CreatedAt time.Time
}

// DisplayName joins the name fields for invoices and listings.
func (c Client) DisplayName() string {
	if c.FirstName == "" {
		return c.LastName
	}
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// LineItem is a billable service code. Rate is per hour and is used to
// derive a shift's cost only when the shift has no stored cost.
type LineItem struct {
	ID        LineItemID
	Code      string
	Category  string
	Rate      Money
	CreatedAt time.Time
}

// ManualCategory is the fallback label for shifts whose line item is
// missing or was never set but which carry a manually entered cost.
const ManualCategory = "Manual"

// Shift is the unit of truth for cost. Cost is nil when it was never stored
// independently; it is then derived from the line-item rate at aggregation
// time. Once stored, cost is never recomputed: historical rate changes must
// not silently alter past shift costs.
type Shift struct {
	ID         ShiftID
	Date       time.Time // calendar date, UTC midnight
	StartTime  string    // "15:04"
	EndTime    string    // "15:04"; earlier than StartTime means the shift crosses midnight
	CarerID    CarerID
	ClientID   ClientID
	LineItemID *LineItemID
	Category   string
	Cost       *Money
	CreatedAt  time.Time
}

// Invoice is a view over a shift range, not an owner of totals. The total
// is recomputed from matching shifts at read time.
type Invoice struct {
	ID          InvoiceID
	Number      string // human-assigned, unique
	OwnerID     string
	CarerID     CarerID
	ClientID    ClientID
	DateFrom    time.Time
	DateTo      time.Time
	InvoiceDate time.Time
	FileName    string
	CreatedAt   time.Time
}

// SavedCalendarView persists a named calendar configuration. Name is the
// upsert key. Pure convenience entity, not part of aggregation.
type SavedCalendarView struct {
	ID         string
	Name       string
	DateFrom   time.Time
	DateTo     time.Time
	ClientID   *ClientID
	ConfigJSON string
	CreatedAt  time.Time
}

// =============================================================================
// AGGREGATION OUTPUT
// =============================================================================

// ShiftDetail is a shift with its display fields resolved, ready for
// invoice rendering.
type ShiftDetail struct {
	ShiftID     ShiftID
	Date        time.Time
	StartTime   string
	EndTime     string
	CarerID     CarerID
	CarerName   string
	Description string
	Cost        Money
}

// InvoiceMetadata is everything the composer needs besides the shift lines.
type InvoiceMetadata struct {
	Number      string
	InvoiceDate time.Time
	CarerName   string
	ClientName  string
	PeriodFrom  time.Time
	PeriodTo    time.Time
	FileName    string
}

// Artifact is a generated invoice document held in memory. Artifacts are
// derived from current shift data and never stored.
type Artifact struct {
	Name     string
	Payload  []byte
	MIMEType string
}

// Composer renders an artifact from resolved shift lines. Implementations
// must be pure: identical inputs produce byte-identical output.
type Composer interface {
	Compose(lines []ShiftDetail, meta InvoiceMetadata) (Artifact, error)
}

// InvoiceSummary pairs a stored invoice with its live-computed total.
type InvoiceSummary struct {
	Invoice
	TotalAmount Money
}
