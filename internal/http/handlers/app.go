package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"hingecraft/internal/domain"
	"hingecraft/internal/middleware"
	"hingecraft/internal/service"
)

// DonationService is the subset of the service layer the handlers drive.
type DonationService interface {
	Create(ctx context.Context, in domain.CreateDonationInput) (*domain.Donation, error)
	GetLatest(ctx context.Context) (*domain.Donation, error)
	GetByID(ctx context.Context, id string) (*domain.Donation, error)
	Update(ctx context.Context, id string, patch domain.DonationPatch) (*domain.Donation, error)
	ListAll(ctx context.Context, limit, offset int) (*domain.DonationPage, error)
	Export(ctx context.Context) (*domain.Snapshot, error)
	Health(ctx context.Context) service.HealthReport
}

type App struct {
	Donations DonationService
	Logger    zerolog.Logger
}

func NewApp(donations DonationService, logger zerolog.Logger) *App {
	return &App{Donations: donations, Logger: logger}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, msg string) {
	a.json(w, code, errorResponse{Error: errCode, Message: msg})
}

// fail maps a service error onto a status code. Store failures are logged
// and reported without detail.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		vErr   *domain.ValidationError
		cErr   *domain.ConstraintError
		maxErr *http.MaxBytesError
	)
	switch {
	case errors.As(err, &vErr):
		a.error(w, http.StatusUnprocessableEntity, "validation_error", vErr.Error())
	case errors.As(err, &maxErr):
		a.error(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "donation not found")
	case errors.Is(err, domain.ErrUnauthorized):
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid API key")
	case errors.As(err, &cErr) && cErr.Kind == domain.ConstraintUnique:
		a.error(w, http.StatusConflict, "conflict", "donation already exists")
	case errors.As(err, &cErr):
		a.error(w, http.StatusUnprocessableEntity, "constraint_violation", "donation violates a store constraint")
	default:
		evt := a.Logger.Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", middleware.RequestIDFromContext(r.Context()))
		switch {
		case errors.Is(err, domain.ErrStoreTimeout):
			evt.Msg("store timeout")
		case errors.Is(err, domain.ErrStoreUnavailable):
			evt.Msg("store unavailable")
		default:
			evt.Msg("request failed")
		}
		a.error(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
