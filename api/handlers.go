/*
handlers.go - HTTP handlers for the invoice surface

PURPOSE:
  Exposes invoice generation over REST. Handles HTTP request/response and
  JSON serialization, delegating all domain work to billing.

ENDPOINTS:
  POST   /api/invoices                   Create invoice record (owner-scoped)
  GET    /api/invoices                   List owner's invoices with live totals
  DELETE /api/invoices?id=               Delete an invoice record
  GET    /api/invoices/download?number=&date=
                                         Regenerate and return the artifact
  GET    /api/shifts/summary             Aggregation preview, no persistence

ERROR MAPPING:
  - 400: validation errors, duplicate invoice number, store rejection on writes
  - 401: owner-scoped route without an authenticated owner
  - 404: zero-match lookups (never a default/empty artifact)
  - 500: regeneration failures and store faults on reads

AUTHENTICATION:
  The edge auth provider verifies identity; this service only reads the
  X-Owner-ID header it forwards. See server.go.

SEE ALSO:
  - records.go: carer/client/shift/line-item/calendar-view CRUD
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/carebase/billing-engine/billing"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers. The store and composer
// are constructed once at process startup and injected; no package-level
// singletons.
type Handler struct {
	Store    billing.Store
	Invoices *billing.InvoiceManager
}

// NewHandler creates a handler over the given store and composer.
func NewHandler(store billing.Store, composer billing.Composer) *Handler {
	return &Handler{
		Store:    store,
		Invoices: billing.NewInvoiceManager(store, composer),
	}
}

// =============================================================================
// OWNER CONTEXT
// =============================================================================

type contextKey string

const ownerKey contextKey = "owner"

// requireOwner rejects requests that carry no authenticated owner
// identity. Token verification happens at the edge; an empty header here
// means the request never passed it.
func requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := strings.TrimSpace(r.Header.Get("X-Owner-ID"))
		if owner == "" {
			writeError(w, http.StatusUnauthorized, "Authentication required", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey, owner)))
	})
}

func ownerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey).(string)
	return owner
}

// =============================================================================
// INVOICE HANDLERS
// =============================================================================

// CreateInvoice persists invoice metadata.
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.InvoiceNumber == "" || req.CarerID == "" || req.ClientID == "" {
		writeError(w, http.StatusBadRequest, "invoice_number, carer_id and client_id are required", nil)
		return
	}

	dateFrom, err := billing.ParseDate(req.DateFrom)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date_from", err)
		return
	}
	dateTo, err := billing.ParseDate(req.DateTo)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date_to", err)
		return
	}
	invoiceDate, err := billing.ParseDate(req.InvoiceDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid invoice_date", err)
		return
	}

	inv, err := h.Invoices.Save(r.Context(), billing.Invoice{
		Number:      req.InvoiceNumber,
		OwnerID:     ownerFrom(r.Context()),
		CarerID:     billing.CarerID(req.CarerID),
		ClientID:    billing.ClientID(req.ClientID),
		DateFrom:    dateFrom,
		DateTo:      dateTo,
		InvoiceDate: invoiceDate,
		FileName:    req.FileName,
	})
	if err != nil {
		if billing.IsValidation(err) {
			writeError(w, http.StatusBadRequest, "Could not save invoice", err)
			return
		}
		// Store rejection on a write surfaces to the caller as a client-
		// visible failure, not a retry.
		writeError(w, http.StatusBadRequest, "Failed to save invoice", err)
		return
	}

	writeJSON(w, http.StatusCreated, toInvoiceDTO(inv))
}

// ListInvoices returns the owner's invoices, each with a total recomputed
// from current shift data.
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.Invoices.List(r.Context(), ownerFrom(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list invoices", err)
		return
	}

	dtos := make([]InvoiceListItemDTO, len(summaries))
	for i, s := range summaries {
		dtos[i] = InvoiceListItemDTO{
			InvoiceDTO:  toInvoiceDTO(s.Invoice),
			TotalAmount: s.TotalAmount.Float64(),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// DeleteInvoice removes an invoice record by id.
func (h *Handler) DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Missing id", nil)
		return
	}

	if err := h.Invoices.Delete(r.Context(), billing.InvoiceID(id)); err != nil {
		if billing.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Invoice not found", nil)
			return
		}
		writeError(w, http.StatusBadRequest, "Failed to delete invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// DownloadInvoice regenerates the artifact for number+date from the
// record's persisted parameters.
func (h *Handler) DownloadInvoice(w http.ResponseWriter, r *http.Request) {
	number := r.URL.Query().Get("number")
	dateStr := r.URL.Query().Get("date")
	if number == "" || dateStr == "" {
		writeError(w, http.StatusBadRequest, "number and date are required", nil)
		return
	}
	date, err := billing.ParseDate(dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	art, err := h.Invoices.Download(r.Context(), number, date)
	if err != nil {
		if billing.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "Invoice not found", nil)
			return
		}
		var regen *billing.RegenerationError
		if errors.As(err, &regen) {
			writeError(w, http.StatusInternalServerError, "Failed to regenerate invoice", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to download invoice", err)
		return
	}

	writeJSON(w, http.StatusOK, DownloadDTO{
		FileName: art.Name,
		MIMEType: art.MIMEType,
		Data:     art.Payload,
	})
}

// ShiftSummary runs the aggregator for a preview without persisting
// anything. carer_id may repeat to widen the scope.
func (h *Handler) ShiftSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	clientID := q.Get("client_id")
	if clientID == "" {
		writeError(w, http.StatusBadRequest, "client_id is required", nil)
		return
	}
	carerParams := q["carer_id"]
	carerIDs := make([]billing.CarerID, 0, len(carerParams))
	for _, id := range carerParams {
		if id != "" {
			carerIDs = append(carerIDs, billing.CarerID(id))
		}
	}

	from, err := billing.ParseDate(q.Get("date_from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date_from", err)
		return
	}
	to, err := billing.ParseDate(q.Get("date_to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date_to", err)
		return
	}

	details, total, err := h.Invoices.Aggregator().Aggregate(r.Context(), carerIDs, billing.ClientID(clientID), from, to)
	if err != nil {
		if billing.IsValidation(err) {
			writeError(w, http.StatusBadRequest, "Invalid aggregation scope", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to aggregate shifts", err)
		return
	}

	dtos := make([]ShiftDetailDTO, len(details))
	for i, d := range details {
		dtos[i] = toShiftDetailDTO(d)
	}
	writeJSON(w, http.StatusOK, SummaryDTO{Shifts: dtos, Total: total.Float64()})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
