package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"bloodlink/internal/donor/models"
	"bloodlink/internal/donor/service"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/httputil"
	"bloodlink/pkg/requestcontext"
)

type Service interface {
	Register(ctx context.Context, cmd service.RegisterCommand) (*models.Donor, error)
	Get(ctx context.Context, donorID id.DonorID) (*models.Donor, error)
	SetActive(ctx context.Context, donorID id.DonorID, active bool) (*models.Donor, error)
}

// Handler exposes donor registration over HTTP.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/donors", h.HandleRegister)
	r.Get("/donors/{id}", h.HandleGet)
	r.Put("/donors/{id}/availability", h.HandleSetAvailability)
}

// HandleRegister handles POST /donors.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := requestcontext.CorrelationID(ctx)

	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, correlationID)
	if !ok {
		return
	}
	donor, err := h.service.Register(ctx, service.RegisterCommand{
		Name:       req.Name,
		Phone:      req.Phone,
		BloodGroup: req.parsedGroup,
		City:       req.City,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "donor registration failed",
			"correlation_id", correlationID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, donor)
}

// HandleGet handles GET /donors/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	donorID, err := id.ParseDonorID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	donor, err := h.service.Get(ctx, donorID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, donor)
}

// HandleSetAvailability handles PUT /donors/{id}/availability.
func (h *Handler) HandleSetAvailability(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := requestcontext.CorrelationID(ctx)
	donorID, err := id.ParseDonorID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[AvailabilityRequest](w, r, h.logger, ctx, correlationID)
	if !ok {
		return
	}
	donor, err := h.service.SetActive(ctx, donorID, *req.Active)
	if err != nil {
		h.logger.ErrorContext(ctx, "donor availability update failed",
			"correlation_id", correlationID,
			"donor_id", donorID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, donor)
}
