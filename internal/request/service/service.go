// Package service is the request lifecycle controller: it creates requests,
// runs the alert wave when a request opens and the closure wave when it
// closes.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	donormodels "bloodlink/internal/donor/models"
	"bloodlink/internal/notification"
	"bloodlink/internal/request/models"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/platform/sentinel"
	"bloodlink/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,Matcher,Dispatcher,Ledger,DonorLookup

var tracer = otel.Tracer("bloodlink/request")

type Store interface {
	Create(ctx context.Context, req *models.Request) error
	FindByID(ctx context.Context, requestID id.RequestID) (*models.Request, error)
	List(ctx context.Context, status *models.Status) ([]models.Request, error)
	CloseIfOpen(ctx context.Context, requestID id.RequestID, now time.Time) (*models.Request, bool, error)
}

type Matcher interface {
	Match(ctx context.Context, group id.BloodGroup) ([]donormodels.Donor, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, targets []donormodels.Donor, msg notification.MessageContext) ([]notification.Outcome, error)
}

type Ledger interface {
	RecordsFor(ctx context.Context, requestID id.RequestID) ([]notification.Record, error)
	RecipientsFor(ctx context.Context, requestID id.RequestID) ([]id.DonorID, error)
}

// DonorLookup resolves ledger donor ids to current donor records.
type DonorLookup interface {
	FindByIDs(ctx context.Context, ids []id.DonorID) ([]donormodels.Donor, error)
}

// CreateCommand carries already-parsed request input.
type CreateCommand struct {
	ReceiverName  string
	ReceiverPhone string
	BloodGroup    id.BloodGroup
	Location      string
}

// AlertResult reports the alert wave for a request.
type AlertResult struct {
	RequestID     id.RequestID           `json:"request_id"`
	MatchedDonors int                    `json:"matched_donors"`
	Outcomes      []notification.Outcome `json:"outcomes"`
}

// CloseResult reports a close call. Transitioned is false when the request
// was already closed, in which case no one was notified.
type CloseResult struct {
	Request      *models.Request        `json:"request"`
	Transitioned bool                   `json:"transitioned"`
	Outcomes     []notification.Outcome `json:"outcomes"`
}

type Service struct {
	requests   Store
	matcher    Matcher
	dispatcher Dispatcher
	ledger     Ledger
	donors     DonorLookup
	logger     *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(requests Store, matcher Matcher, dispatcher Dispatcher, ledger Ledger, donors DonorLookup, opts ...Option) *Service {
	s := &Service{
		requests:   requests,
		matcher:    matcher,
		dispatcher: dispatcher,
		ledger:     ledger,
		donors:     donors,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create persists a new open request. Alerts are sent separately through
// OnRequestCreated.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*models.Request, error) {
	req, err := models.NewRequest(id.NewRequestID(), cmd.ReceiverName, cmd.ReceiverPhone, cmd.BloodGroup, cmd.Location, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, err.Error())
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, wrapStoreErr(err, "failed to create request")
	}
	s.logger.InfoContext(ctx, "request created",
		"request_id", req.ID,
		"blood_group", req.BloodGroupRequired,
	)
	return req, nil
}

func (s *Service) Get(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to load request")
	}
	return req, nil
}

// List returns requests newest first; a nil status returns all.
func (s *Service) List(ctx context.Context, status *models.Status) ([]models.Request, error) {
	reqs, err := s.requests.List(ctx, status)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to list requests")
	}
	return reqs, nil
}

// Notifications returns the ledger records for an existing request.
func (s *Service) Notifications(ctx context.Context, requestID id.RequestID) ([]notification.Record, error) {
	if _, err := s.Get(ctx, requestID); err != nil {
		return nil, err
	}
	return s.ledger.RecordsFor(ctx, requestID)
}

// OnRequestCreated matches donors for an open request and alerts them.
// The stored request is authoritative: a request closed since req was read
// is rejected with CodeConflict and nothing is sent. A matching failure
// fails the call before anything is sent. Per-donor send failures are
// reported as outcomes.
func (s *Service) OnRequestCreated(ctx context.Context, req *models.Request) (*AlertResult, error) {
	if req == nil || req.ID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return s.alert(ctx, req.ID)
}

// TriggerAlerts runs the alert wave for a stored request.
func (s *Service) TriggerAlerts(ctx context.Context, requestID id.RequestID) (*AlertResult, error) {
	return s.alert(ctx, requestID)
}

func (s *Service) alert(ctx context.Context, requestID id.RequestID) (*AlertResult, error) {
	req, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !req.IsOpen() {
		s.logger.InfoContext(ctx, "alert wave skipped, request not open",
			"request_id", req.ID,
			"status", req.Status,
		)
		return nil, dErrors.New(dErrors.CodeConflict, "request is not open")
	}

	ctx, span := tracer.Start(ctx, "request.OnRequestCreated")
	defer span.End()
	span.SetAttributes(
		attribute.String("request_id", req.ID.String()),
		attribute.String("blood_group", string(req.BloodGroupRequired)),
	)

	donors, err := s.matcher.Match(ctx, req.BloodGroupRequired)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "matching failed")
		s.logger.ErrorContext(ctx, "donor matching failed",
			"request_id", req.ID,
			"error", err,
		)
		return nil, err
	}

	outcomes, err := s.dispatcher.Dispatch(ctx, donors, notification.MessageContext{
		Kind:         notification.KindAlert,
		RequestID:    req.ID,
		BloodGroup:   req.BloodGroupRequired,
		Location:     req.Location,
		ReceiverName: req.ReceiverName,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dispatch failed")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to dispatch alerts")
	}

	s.logger.InfoContext(ctx, "request alerts dispatched",
		"request_id", req.ID,
		"matched_donors", len(donors),
	)
	return &AlertResult{RequestID: req.ID, MatchedDonors: len(donors), Outcomes: outcomes}, nil
}

// OnRequestClosed closes an open request and thanks every donor on the
// request's ledger. Closing is authoritative: once the transition commits,
// failures while notifying are logged and the call still succeeds. Closing
// an already-closed request returns it unchanged and notifies no one.
func (s *Service) OnRequestClosed(ctx context.Context, requestID id.RequestID) (*CloseResult, error) {
	ctx, span := tracer.Start(ctx, "request.OnRequestClosed")
	defer span.End()
	span.SetAttributes(attribute.String("request_id", requestID.String()))

	req, transitioned, err := s.requests.CloseIfOpen(ctx, requestID, requestcontext.Now(ctx))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "close failed")
		return nil, wrapStoreErr(err, "failed to close request")
	}
	result := &CloseResult{Request: req, Transitioned: transitioned, Outcomes: []notification.Outcome{}}
	span.SetAttributes(attribute.Bool("transitioned", transitioned))
	if !transitioned {
		s.logger.InfoContext(ctx, "request already closed",
			"request_id", requestID,
		)
		return result, nil
	}
	s.logger.InfoContext(ctx, "request closed",
		"request_id", requestID,
	)

	recipients, err := s.closureRecipients(ctx, requestID)
	if err != nil {
		span.RecordError(err)
		s.logger.ErrorContext(ctx, "failed to resolve closure recipients",
			"request_id", requestID,
			"error", err,
		)
		return result, nil
	}

	outcomes, err := s.dispatcher.Dispatch(ctx, recipients, notification.MessageContext{
		Kind:         notification.KindClosure,
		RequestID:    req.ID,
		BloodGroup:   req.BloodGroupRequired,
		Location:     req.Location,
		ReceiverName: req.ReceiverName,
	})
	if err != nil {
		span.RecordError(err)
		s.logger.ErrorContext(ctx, "closure dispatch failed",
			"request_id", requestID,
			"error", err,
		)
		return result, nil
	}
	result.Outcomes = outcomes
	return result, nil
}

func (s *Service) closureRecipients(ctx context.Context, requestID id.RequestID) ([]donormodels.Donor, error) {
	donorIDs, err := s.ledger.RecipientsFor(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if len(donorIDs) == 0 {
		return []donormodels.Donor{}, nil
	}
	donors, err := s.donors.FindByIDs(ctx, donorIDs)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeDataAccess, "failed to load closure recipients")
	}
	return donors, nil
}

func wrapStoreErr(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "request not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "request already exists")
	default:
		return dErrors.Wrap(err, dErrors.CodeDataAccess, msg)
	}
}
