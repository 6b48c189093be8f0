/*
records.go - CRUD handlers for scheduling records

Carers, clients, line items, shifts, and saved calendar views. These are
thin handlers over the store; the only domain rule enforced here is the
shift cost invariant: a positive manual cost with no line item must carry
the manual category.
*/
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/carebase/billing-engine/billing"
)

// =============================================================================
// CARER HANDLERS
// =============================================================================

// ListCarers returns all carers with resolved display colors.
func (h *Handler) ListCarers(w http.ResponseWriter, r *http.Request) {
	carers, err := h.Store.ListCarers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list carers", err)
		return
	}
	dtos := make([]CarerDTO, len(carers))
	for i, c := range carers {
		dtos[i] = toCarerDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCarer returns a single carer.
func (h *Handler) GetCarer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := h.Store.GetCarer(r.Context(), billing.CarerID(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get carer", err)
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "Carer not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toCarerDTO(*c))
}

// CreateCarer creates or updates a carer.
func (h *Handler) CreateCarer(w http.ResponseWriter, r *http.Request) {
	var req CreateCarerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	c := billing.Carer{
		ID:    billing.CarerID(req.ID),
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
		Color: req.Color,
	}
	if err := h.Store.SaveCarer(r.Context(), c); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to save carer", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCarerDTO(c))
}

// =============================================================================
// CLIENT HANDLERS
// =============================================================================

// ListClients returns all clients.
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.Store.ListClients(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list clients", err)
		return
	}
	dtos := make([]ClientDTO, len(clients))
	for i, c := range clients {
		dtos[i] = ClientDTO{ID: string(c.ID), FirstName: c.FirstName, LastName: c.LastName}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetClient returns a single client.
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := h.Store.GetClient(r.Context(), billing.ClientID(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get client", err)
		return
	}
	if c == nil {
		writeError(w, http.StatusNotFound, "Client not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, ClientDTO{ID: string(c.ID), FirstName: c.FirstName, LastName: c.LastName})
}

// CreateClient creates or updates a client.
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req CreateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.FirstName == "" && req.LastName == "" {
		writeError(w, http.StatusBadRequest, "A name is required", nil)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	c := billing.Client{
		ID:        billing.ClientID(req.ID),
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	if err := h.Store.SaveClient(r.Context(), c); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to save client", err)
		return
	}
	writeJSON(w, http.StatusCreated, ClientDTO{ID: string(c.ID), FirstName: c.FirstName, LastName: c.LastName})
}

// =============================================================================
// LINE ITEM HANDLERS
// =============================================================================

// ListLineItems returns all billable line items.
func (h *Handler) ListLineItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.Store.ListLineItems(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list line items", err)
		return
	}
	dtos := make([]LineItemDTO, len(items))
	for i, li := range items {
		dtos[i] = LineItemDTO{
			ID:       string(li.ID),
			Code:     li.Code,
			Category: li.Category,
			Rate:     li.Rate.Float64(),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateLineItem creates or updates a line item.
func (h *Handler) CreateLineItem(w http.ResponseWriter, r *http.Request) {
	var req CreateLineItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "Code is required", nil)
		return
	}
	if req.Rate < 0 {
		writeError(w, http.StatusBadRequest, "Rate must not be negative", nil)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	li := billing.LineItem{
		ID:       billing.LineItemID(req.ID),
		Code:     req.Code,
		Category: req.Category,
		Rate:     billing.NewMoney(req.Rate),
	}
	if err := h.Store.SaveLineItem(r.Context(), li); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to save line item", err)
		return
	}
	writeJSON(w, http.StatusCreated, LineItemDTO{
		ID:       string(li.ID),
		Code:     li.Code,
		Category: li.Category,
		Rate:     li.Rate.Float64(),
	})
}

// =============================================================================
// SHIFT HANDLERS
// =============================================================================

// ListShifts returns shifts matching the query filters (client_id,
// repeated carer_id, date_from, date_to, has_line_item).
func (h *Handler) ListShifts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var f billing.ShiftFilter

	if v := q.Get("client_id"); v != "" {
		id := billing.ClientID(v)
		f.ClientID = &id
	}
	for _, v := range q["carer_id"] {
		if v != "" {
			f.CarerIDs = append(f.CarerIDs, billing.CarerID(v))
		}
	}
	if v := q.Get("date_from"); v != "" {
		t, err := billing.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date_from", err)
			return
		}
		f.DateFrom = &t
	}
	if v := q.Get("date_to"); v != "" {
		t, err := billing.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date_to", err)
			return
		}
		f.DateTo = &t
	}
	if v := q.Get("has_line_item"); v != "" {
		has := v == "true"
		f.HasLineItem = &has
	}

	shifts, err := h.Store.ListShifts(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list shifts", err)
		return
	}
	dtos := make([]ShiftDTO, len(shifts))
	for i, s := range shifts {
		dtos[i] = toShiftDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveShift creates or updates a shift.
func (h *Handler) SaveShift(w http.ResponseWriter, r *http.Request) {
	var req SaveShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.CarerID == "" || req.ClientID == "" {
		writeError(w, http.StatusBadRequest, "carer_id and client_id are required", nil)
		return
	}

	date, err := billing.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	if _, err := billing.ShiftHours(req.StartTime, req.EndTime); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid shift times", err)
		return
	}

	s := billing.Shift{
		ID:        billing.ShiftID(req.ID),
		Date:      date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		CarerID:   billing.CarerID(req.CarerID),
		ClientID:  billing.ClientID(req.ClientID),
		Category:  req.Category,
	}
	if s.ID == "" {
		s.ID = billing.ShiftID(uuid.NewString())
	}
	if req.LineItemID != nil && *req.LineItemID != "" {
		id := billing.LineItemID(*req.LineItemID)
		s.LineItemID = &id
	}
	if req.Cost != nil {
		if *req.Cost < 0 {
			writeError(w, http.StatusBadRequest, "Cost must not be negative", nil)
			return
		}
		cost := billing.NewMoney(*req.Cost)
		s.Cost = &cost
		// A manually costed shift with no line item must say so.
		if s.LineItemID == nil && !cost.IsZero() && s.Category == "" {
			s.Category = billing.ManualCategory
		}
	}

	if err := h.Store.SaveShift(r.Context(), s); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to save shift", err)
		return
	}
	writeJSON(w, http.StatusCreated, toShiftDTO(s))
}

// =============================================================================
// CALENDAR VIEW HANDLERS
// =============================================================================

// ListCalendarViews returns all saved views.
func (h *Handler) ListCalendarViews(w http.ResponseWriter, r *http.Request) {
	views, err := h.Store.ListCalendarViews(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list calendar views", err)
		return
	}
	dtos := make([]CalendarViewDTO, len(views))
	for i, v := range views {
		dto := CalendarViewDTO{
			ID:       v.ID,
			Name:     v.Name,
			DateFrom: v.DateFrom.Format(billing.DateFormat),
			DateTo:   v.DateTo.Format(billing.DateFormat),
			Config:   v.ConfigJSON,
		}
		if v.ClientID != nil {
			id := string(*v.ClientID)
			dto.ClientID = &id
		}
		dtos[i] = dto
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SaveCalendarView upserts a view by name.
func (h *Handler) SaveCalendarView(w http.ResponseWriter, r *http.Request) {
	var req SaveCalendarViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required", nil)
		return
	}
	from, err := billing.ParseDate(req.DateFrom)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date_from", err)
		return
	}
	to, err := billing.ParseDate(req.DateTo)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date_to", err)
		return
	}

	config := req.Config
	if config == "" {
		config = "{}"
	}
	v := billing.SavedCalendarView{
		ID:         uuid.NewString(),
		Name:       req.Name,
		DateFrom:   from,
		DateTo:     to,
		ConfigJSON: config,
		CreatedAt:  time.Now().UTC(),
	}
	if req.ClientID != nil && *req.ClientID != "" {
		id := billing.ClientID(*req.ClientID)
		v.ClientID = &id
	}

	if err := h.Store.UpsertCalendarView(r.Context(), v); err != nil {
		writeError(w, http.StatusBadRequest, "Failed to save calendar view", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved", "name": v.Name})
}

// DeleteCalendarView removes a view by name.
func (h *Handler) DeleteCalendarView(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "Missing name", nil)
		return
	}
	deleted, err := h.Store.DeleteCalendarView(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to delete calendar view", err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Calendar view not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
