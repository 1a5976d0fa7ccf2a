package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/atinyakov/ContactKeeper/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ContactService defines the owner-scoped contact operations
// required by the ContactHandler.
type ContactService interface {
	List(ctx context.Context, ownerID int64, skip, limit int) ([]models.Contact, error)
	Create(ctx context.Context, ownerID int64, in models.ContactInput) (*models.Contact, error)
	Get(ctx context.Context, ownerID, id int64) (*models.Contact, error)
	Update(ctx context.Context, ownerID, id int64, in models.ContactInput) (*models.Contact, error)
	Delete(ctx context.Context, ownerID, id int64) error
}

// ContactHandler handles HTTP requests for the authenticated user's contacts.
// Every route must be mounted behind middleware.BearerAuth.
type ContactHandler struct {
	ContactService ContactService
	Logger         *zap.Logger
}

// List handles GET /api/contacts?skip=&limit=.
func (h *ContactHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	skip, err := queryInt(r, "skip")
	if err != nil {
		http.Error(w, "invalid skip", http.StatusBadRequest)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		http.Error(w, "invalid limit", http.StatusBadRequest)
		return
	}

	contacts, err := h.ContactService.List(r.Context(), user.ID, skip, limit)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, contacts)
}

// Create handles POST /api/contacts and answers 201 with the new contact.
func (h *ContactHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	in, ok := decodeContact(w, r)
	if !ok {
		return
	}

	contact, err := h.ContactService.Create(r.Context(), user.ID, in)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, contact)
}

// Get handles GET /api/contacts/{id}.
func (h *ContactHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := contactID(w, r)
	if !ok {
		return
	}

	contact, err := h.ContactService.Get(r.Context(), user.ID, id)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, contact)
}

// Update handles PUT /api/contacts/{id}.
func (h *ContactHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := contactID(w, r)
	if !ok {
		return
	}
	in, ok := decodeContact(w, r)
	if !ok {
		return
	}

	contact, err := h.ContactService.Update(r.Context(), user.ID, id, in)
	if err != nil {
		writeError(w, h.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, contact)
}

// Delete handles DELETE /api/contacts/{id} and answers 204.
func (h *ContactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := contactID(w, r)
	if !ok {
		return
	}

	if err := h.ContactService.Delete(r.Context(), user.ID, id); err != nil {
		writeError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeContact(w http.ResponseWriter, r *http.Request) (models.ContactInput, bool) {
	var in models.ContactInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || validate.Struct(in) != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return in, false
	}
	return in, true
}

func contactID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "not found", http.StatusNotFound)
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
