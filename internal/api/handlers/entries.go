package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/daybook-app/daybook-backend/internal/api/middleware"
	"github.com/daybook-app/daybook-backend/pkg/models"
	"github.com/daybook-app/daybook-backend/pkg/store"
)

// EntryHandler handles journal entry API endpoints.
// All operations are scoped to the authenticated user; admins may
// additionally read and delete other users' entries.
type EntryHandler struct {
	store *store.Store
}

// NewEntryHandler creates a new EntryHandler.
func NewEntryHandler(s *store.Store) *EntryHandler {
	return &EntryHandler{store: s}
}

// CreateEntryRequest is the request body for POST /api/v1/entries.
type CreateEntryRequest struct {
	Title     string     `json:"title"`
	Body      string     `json:"body,omitempty"`
	Mood      string     `json:"mood,omitempty"`
	EntryDate *time.Time `json:"entry_date,omitempty"`
}

// UpdateEntryRequest is the request body for PUT /api/v1/entries/{id}.
type UpdateEntryRequest struct {
	Title     *string    `json:"title,omitempty"`
	Body      *string    `json:"body,omitempty"`
	Mood      *string    `json:"mood,omitempty"`
	EntryDate *time.Time `json:"entry_date,omitempty"`
}

// parseTimeQuery parses an optional RFC 3339 or date-only query parameter.
func parseTimeQuery(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, true
	}
	BadRequest(w, "Invalid value for query parameter '"+name+"'")
	return time.Time{}, false
}

// List handles GET /api/v1/entries.
// Lists the authenticated user's entries, newest first. Optional query
// parameters: from, to (RFC 3339 or YYYY-MM-DD) and mood.
func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		Unauthorized(w, "Authentication required")
		return
	}

	from, ok := parseTimeQuery(w, r, "from")
	if !ok {
		return
	}
	to, ok := parseTimeQuery(w, r, "to")
	if !ok {
		return
	}

	filter := store.EntryFilter{
		From: from,
		To:   to,
		Mood: r.URL.Query().Get("mood"),
	}

	entries, err := h.store.ListEntries(r.Context(), claims.UserID, filter)
	if err != nil {
		InternalServerError(w, "Failed to list entries")
		return
	}

	WriteJSONOK(w, entries)
}

// Create handles POST /api/v1/entries.
// Creates a new entry owned by the authenticated user.
func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		Unauthorized(w, "Authentication required")
		return
	}

	var req CreateEntryRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	entry := &models.Entry{
		ID:     uuid.New().String(),
		UserID: claims.UserID,
		Title:  req.Title,
		Body:   req.Body,
		Mood:   req.Mood,
	}
	if req.EntryDate != nil {
		entry.EntryDate = *req.EntryDate
	}

	if err := entry.Validate(); err != nil {
		BadRequest(w, err.Error())
		return
	}

	if _, err := h.store.CreateEntry(r.Context(), entry); err != nil {
		InternalServerError(w, "Failed to create entry")
		return
	}

	WriteJSONCreated(w, entry)
}

// Get handles GET /api/v1/entries/{id}.
func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.fetchOwned(w, r)
	if !ok {
		return
	}

	WriteJSONOK(w, entry)
}

// Update handles PUT /api/v1/entries/{id}.
func (h *EntryHandler) Update(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.fetchOwned(w, r)
	if !ok {
		return
	}

	var req UpdateEntryRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if req.Title != nil {
		entry.Title = *req.Title
	}
	if req.Body != nil {
		entry.Body = *req.Body
	}
	if req.Mood != nil {
		entry.Mood = *req.Mood
	}
	if req.EntryDate != nil {
		entry.EntryDate = *req.EntryDate
	}

	if err := entry.Validate(); err != nil {
		BadRequest(w, err.Error())
		return
	}

	if err := h.store.UpdateEntry(r.Context(), entry); err != nil {
		InternalServerError(w, "Failed to update entry")
		return
	}

	WriteJSONOK(w, entry)
}

// Delete handles DELETE /api/v1/entries/{id}.
func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.fetchOwned(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteEntry(r.Context(), entry.ID); err != nil {
		InternalServerError(w, "Failed to delete entry")
		return
	}

	WriteNoContent(w)
}

// fetchOwned loads the entry from the URL and enforces ownership.
// Non-owners receive 404 rather than 403 so entry IDs are not probeable.
func (h *EntryHandler) fetchOwned(w http.ResponseWriter, r *http.Request) (*models.Entry, bool) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		Unauthorized(w, "Authentication required")
		return nil, false
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		BadRequest(w, "Entry ID is required")
		return nil, false
	}

	entry, err := h.store.GetEntry(r.Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrEntryNotFound) {
			NotFound(w, "Entry not found")
			return nil, false
		}
		InternalServerError(w, "Failed to get entry")
		return nil, false
	}

	if entry.UserID != claims.UserID && !claims.IsAdmin() {
		NotFound(w, "Entry not found")
		return nil, false
	}

	return entry, true
}
