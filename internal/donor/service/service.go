// Package service registers donors and toggles their availability. Matching
// and closure notices read donors through the store directly.
package service

import (
	"context"
	"errors"
	"log/slog"

	"bloodlink/internal/donor/models"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/platform/sentinel"
	"bloodlink/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store

type Store interface {
	Create(ctx context.Context, donor *models.Donor) error
	FindByID(ctx context.Context, donorID id.DonorID) (*models.Donor, error)
	SetActive(ctx context.Context, donorID id.DonorID, active bool) error
}

// RegisterCommand carries already-parsed registration input.
type RegisterCommand struct {
	Name       string
	Phone      string
	BloodGroup id.BloodGroup
	City       string
}

type Service struct {
	store  Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an active donor.
func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (*models.Donor, error) {
	donor, err := models.NewDonor(id.NewDonorID(), cmd.Name, cmd.Phone, cmd.BloodGroup, cmd.City, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, err.Error())
	}
	if err := s.store.Create(ctx, donor); err != nil {
		return nil, wrapStoreErr(err, "failed to register donor")
	}
	s.logger.InfoContext(ctx, "donor registered",
		"donor_id", donor.ID,
		"blood_group", donor.BloodGroup,
	)
	return donor, nil
}

func (s *Service) Get(ctx context.Context, donorID id.DonorID) (*models.Donor, error) {
	donor, err := s.store.FindByID(ctx, donorID)
	if err != nil {
		return nil, wrapStoreErr(err, "failed to load donor")
	}
	return donor, nil
}

// SetActive opts a donor in or out of future alerts.
func (s *Service) SetActive(ctx context.Context, donorID id.DonorID, active bool) (*models.Donor, error) {
	if err := s.store.SetActive(ctx, donorID, active); err != nil {
		return nil, wrapStoreErr(err, "failed to update donor")
	}
	s.logger.InfoContext(ctx, "donor availability changed",
		"donor_id", donorID,
		"is_active", active,
	)
	return s.Get(ctx, donorID)
}

func wrapStoreErr(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "donor not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "donor already exists")
	default:
		return dErrors.Wrap(err, dErrors.CodeDataAccess, msg)
	}
}
