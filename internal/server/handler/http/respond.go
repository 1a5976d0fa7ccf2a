package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atinyakov/ContactKeeper/internal/auth"
	"github.com/atinyakov/ContactKeeper/internal/middleware"
	"github.com/atinyakov/ContactKeeper/internal/models"
	"github.com/atinyakov/ContactKeeper/internal/service"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// validate checks request payloads against their struct tags.
var validate = newValidator()

// newValidator adds the "bcrypt" tag, which bounds a password by its length
// in bytes; the built-in max counts runes.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("bcrypt", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= auth.MaxPasswordBytes
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps service errors to responses. Authentication failures are
// reported identically whatever their cause; unexpected errors are logged
// and hidden behind a generic 500.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrUnauthenticated),
		errors.Is(err, auth.ErrInvalidScope),
		errors.Is(err, auth.ErrInvalidToken):
		log.Info("authentication failed", zap.Error(err))
		middleware.WriteUnauthorized(w)
	case errors.Is(err, auth.ErrPasswordTooLong):
		http.Error(w, "invalid request", http.StatusBadRequest)
	case errors.Is(err, models.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, models.ErrEmailTaken):
		http.Error(w, "email already registered", http.StatusConflict)
	default:
		log.Error("request failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// currentUser returns the user resolved by middleware.BearerAuth. A missing
// user means the route was mounted without authentication and is answered
// with 401 rather than served anonymously.
func currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteUnauthorized(w)
		return nil, false
	}
	return user, true
}
