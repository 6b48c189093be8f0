/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication. These decouple the domain model
  from the external contract: field renames and API evolution never touch
  the billing package.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

PRESENTATION:
  Carer display colors are resolved here. When a carer has no stored
  color, a deterministic fallback palette indexed by the carer identifier
  supplies one. This never leaks into the billing core.

SEE ALSO:
  - handlers.go: Uses these types
  - billing/types.go: Domain counterparts
*/
package api

import (
	"time"

	"github.com/carebase/billing-engine/billing"
)

// =============================================================================
// INVOICE TYPES
// =============================================================================

// CreateInvoiceRequest is the body of POST /api/invoices.
type CreateInvoiceRequest struct {
	InvoiceNumber string `json:"invoice_number"`
	CarerID       string `json:"carer_id"`
	ClientID      string `json:"client_id"`
	DateFrom      string `json:"date_from"`
	DateTo        string `json:"date_to"`
	InvoiceDate   string `json:"invoice_date"`
	FileName      string `json:"file_name"`
	FilePath      string `json:"file_path,omitempty"` // accepted from legacy clients, unused
}

// InvoiceDTO represents a stored invoice record.
type InvoiceDTO struct {
	ID            string `json:"id"`
	InvoiceNumber string `json:"invoice_number"`
	CarerID       string `json:"carer_id"`
	ClientID      string `json:"client_id"`
	DateFrom      string `json:"date_from"`
	DateTo        string `json:"date_to"`
	InvoiceDate   string `json:"invoice_date"`
	FileName      string `json:"file_name"`
	CreatedAt     string `json:"created_at,omitempty"`
}

// InvoiceListItemDTO is an invoice with its live-computed total.
type InvoiceListItemDTO struct {
	InvoiceDTO
	TotalAmount float64 `json:"total_amount"`
}

// DownloadDTO carries a regenerated artifact. Data is base64 per
// encoding/json's []byte handling.
type DownloadDTO struct {
	FileName string `json:"file_name"`
	MIMEType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// =============================================================================
// RECORD TYPES
// =============================================================================

// CarerDTO represents a carer. Color is always populated: stored value or
// palette fallback.
type CarerDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Color string `json:"color"`
}

// CreateCarerRequest is the body of POST /api/carers.
type CreateCarerRequest struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Color string `json:"color"`
}

// ClientDTO represents a client.
type ClientDTO struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// CreateClientRequest is the body of POST /api/clients.
type CreateClientRequest struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// LineItemDTO represents a billable line item.
type LineItemDTO struct {
	ID       string  `json:"id"`
	Code     string  `json:"code"`
	Category string  `json:"category"`
	Rate     float64 `json:"rate"`
}

// CreateLineItemRequest is the body of POST /api/line-items.
type CreateLineItemRequest struct {
	ID       string  `json:"id"`
	Code     string  `json:"code"`
	Category string  `json:"category"`
	Rate     float64 `json:"rate"`
}

// ShiftDTO represents a shift.
type ShiftDTO struct {
	ID         string   `json:"id"`
	Date       string   `json:"date"`
	StartTime  string   `json:"start_time"`
	EndTime    string   `json:"end_time"`
	CarerID    string   `json:"carer_id"`
	ClientID   string   `json:"client_id"`
	LineItemID *string  `json:"line_item_id,omitempty"`
	Category   string   `json:"category,omitempty"`
	Cost       *float64 `json:"cost,omitempty"`
}

// SaveShiftRequest is the body of POST/PUT /api/shifts.
type SaveShiftRequest struct {
	ID         string   `json:"id,omitempty"`
	Date       string   `json:"date"`
	StartTime  string   `json:"start_time"`
	EndTime    string   `json:"end_time"`
	CarerID    string   `json:"carer_id"`
	ClientID   string   `json:"client_id"`
	LineItemID *string  `json:"line_item_id,omitempty"`
	Category   string   `json:"category,omitempty"`
	Cost       *float64 `json:"cost,omitempty"`
}

// ShiftDetailDTO is a resolved shift line in a summary response.
type ShiftDetailDTO struct {
	ShiftID     string  `json:"shift_id"`
	Date        string  `json:"date"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	CarerID     string  `json:"carer_id"`
	CarerName   string  `json:"carer_name"`
	Description string  `json:"description"`
	Cost        float64 `json:"cost"`
}

// SummaryDTO is an aggregation preview without persistence.
type SummaryDTO struct {
	Shifts []ShiftDetailDTO `json:"shifts"`
	Total  float64          `json:"total"`
}

// CalendarViewDTO represents a saved calendar view.
type CalendarViewDTO struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	DateFrom string  `json:"date_from"`
	DateTo   string  `json:"date_to"`
	ClientID *string `json:"client_id,omitempty"`
	Config   string  `json:"config"`
}

// SaveCalendarViewRequest upserts a view by name.
type SaveCalendarViewRequest struct {
	Name     string  `json:"name"`
	DateFrom string  `json:"date_from"`
	DateTo   string  `json:"date_to"`
	ClientID *string `json:"client_id,omitempty"`
	Config   string  `json:"config"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toInvoiceDTO(inv billing.Invoice) InvoiceDTO {
	return InvoiceDTO{
		ID:            string(inv.ID),
		InvoiceNumber: inv.Number,
		CarerID:       string(inv.CarerID),
		ClientID:      string(inv.ClientID),
		DateFrom:      inv.DateFrom.Format(billing.DateFormat),
		DateTo:        inv.DateTo.Format(billing.DateFormat),
		InvoiceDate:   inv.InvoiceDate.Format(billing.DateFormat),
		FileName:      inv.FileName,
		CreatedAt:     inv.CreatedAt.Format(time.RFC3339),
	}
}

func toCarerDTO(c billing.Carer) CarerDTO {
	return CarerDTO{
		ID:    string(c.ID),
		Name:  c.Name,
		Email: c.Email,
		Phone: c.Phone,
		Color: carerColor(c),
	}
}

func toShiftDTO(s billing.Shift) ShiftDTO {
	dto := ShiftDTO{
		ID:        string(s.ID),
		Date:      s.Date.Format(billing.DateFormat),
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		CarerID:   string(s.CarerID),
		ClientID:  string(s.ClientID),
		Category:  s.Category,
	}
	if s.LineItemID != nil {
		id := string(*s.LineItemID)
		dto.LineItemID = &id
	}
	if s.Cost != nil {
		cost := s.Cost.Float64()
		dto.Cost = &cost
	}
	return dto
}

func toShiftDetailDTO(d billing.ShiftDetail) ShiftDetailDTO {
	return ShiftDetailDTO{
		ShiftID:     string(d.ShiftID),
		Date:        d.Date.Format(billing.DateFormat),
		StartTime:   d.StartTime,
		EndTime:     d.EndTime,
		CarerID:     string(d.CarerID),
		CarerName:   d.CarerName,
		Description: d.Description,
		Cost:        d.Cost.Float64(),
	}
}

// =============================================================================
// CARER COLOR FALLBACK
// =============================================================================

// fallbackPalette matches the scheduling calendar's carer colors.
var fallbackPalette = []string{
	"#4e79a7", "#f28e2b", "#e15759", "#76b7b2",
	"#59a14f", "#edc948", "#b07aa1", "#ff9da7",
}

// carerColor returns the stored color or a deterministic palette pick
// keyed by the carer identifier, so the same carer always renders the
// same color across sessions.
func carerColor(c billing.Carer) string {
	if c.Color != "" {
		return c.Color
	}
	var sum int
	for _, b := range []byte(c.ID) {
		sum += int(b)
	}
	return fallbackPalette[sum%len(fallbackPalette)]
}
