package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"bloodlink/internal/notification"
	"bloodlink/internal/request/models"
	"bloodlink/internal/request/service"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/httputil"
	"bloodlink/pkg/requestcontext"
)

type Service interface {
	Create(ctx context.Context, cmd service.CreateCommand) (*models.Request, error)
	Get(ctx context.Context, requestID id.RequestID) (*models.Request, error)
	List(ctx context.Context, status *models.Status) ([]models.Request, error)
	Notifications(ctx context.Context, requestID id.RequestID) ([]notification.Record, error)
	OnRequestCreated(ctx context.Context, req *models.Request) (*service.AlertResult, error)
	TriggerAlerts(ctx context.Context, requestID id.RequestID) (*service.AlertResult, error)
	OnRequestClosed(ctx context.Context, requestID id.RequestID) (*service.CloseResult, error)
}

// Handler exposes the request lifecycle over HTTP. Alerts for newly created
// requests run in the background; Wait blocks until they finish.
type Handler struct {
	service Service
	logger  *slog.Logger
	alerts  sync.WaitGroup
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/requests", h.HandleCreate)
	r.Get("/requests", h.HandleList)
	r.Get("/requests/{id}", h.HandleGet)
	r.Post("/requests/{id}/alerts", h.HandleTriggerAlerts)
	r.Post("/requests/{id}/close", h.HandleClose)
	r.Get("/requests/{id}/notifications", h.HandleNotifications)
}

// Wait blocks until background alert waves started by HandleCreate finish.
func (h *Handler) Wait() {
	h.alerts.Wait()
}

// HandleCreate handles POST /requests.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := requestcontext.CorrelationID(ctx)

	body, ok := httputil.DecodeAndPrepare[CreateRequest](w, r, h.logger, ctx, correlationID)
	if !ok {
		return
	}
	req, err := h.service.Create(ctx, service.CreateCommand{
		ReceiverName:  body.ReceiverName,
		ReceiverPhone: body.ReceiverPhone,
		BloodGroup:    body.parsedGroup,
		Location:      body.Location,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "request creation failed",
			"correlation_id", correlationID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	bg := context.WithoutCancel(ctx)
	h.alerts.Go(func() {
		if _, err := h.service.OnRequestCreated(bg, req); err != nil {
			h.logger.ErrorContext(bg, "background alert wave failed",
				"correlation_id", correlationID,
				"request_id", req.ID,
				"error", err,
			)
		}
	})

	httputil.WriteJSON(w, http.StatusCreated, req)
}

// HandleList handles GET /requests?status=open|closed.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status, err := parseStatusFilter(r.URL.Query().Get("status"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	reqs, err := h.service.List(ctx, status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reqs)
}

// HandleGet handles GET /requests/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := h.service.Get(ctx, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, req)
}

// HandleTriggerAlerts handles POST /requests/{id}/alerts.
func (h *Handler) HandleTriggerAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := requestcontext.CorrelationID(ctx)
	requestID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.service.TriggerAlerts(ctx, requestID)
	if err != nil {
		h.logger.ErrorContext(ctx, "alert wave failed",
			"correlation_id", correlationID,
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleClose handles POST /requests/{id}/close.
func (h *Handler) HandleClose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := requestcontext.CorrelationID(ctx)
	requestID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	result, err := h.service.OnRequestClosed(ctx, requestID)
	if err != nil {
		h.logger.ErrorContext(ctx, "request close failed",
			"correlation_id", correlationID,
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleNotifications handles GET /requests/{id}/notifications.
func (h *Handler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	records, err := h.service.Notifications(ctx, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, records)
}
