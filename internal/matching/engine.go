// Package matching selects the donors to alert for a blood request.
package matching

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"bloodlink/internal/donor/models"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

//go:generate mockgen -source=engine.go -destination=mocks/mocks.go -package=mocks DonorDirectory

// DonorDirectory is the read side of the donor store used for matching.
type DonorDirectory interface {
	ListActiveByBloodGroup(ctx context.Context, group id.BloodGroup) ([]models.Donor, error)
}

// Engine applies the eligibility predicate: same blood group, active donor.
// Results keep the directory's order and are neither ranked nor deduplicated.
type Engine struct {
	donors DonorDirectory
	logger *slog.Logger
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func New(donors DonorDirectory, opts ...Option) *Engine {
	e := &Engine{donors: donors, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Match returns every active donor whose blood group equals group.
// A directory failure is a CodeDataAccess error.
func (e *Engine) Match(ctx context.Context, group id.BloodGroup) ([]models.Donor, error) {
	ctx, span := otel.Tracer("bloodlink/matching").Start(ctx, "matching.Match")
	defer span.End()
	span.SetAttributes(attribute.String("blood_group", string(group)))

	if !group.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid blood group")
	}

	candidates, err := e.donors.ListActiveByBloodGroup(ctx, group)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "donor lookup failed")
		e.logger.ErrorContext(ctx, "donor lookup failed",
			"blood_group", group,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeDataAccess, "failed to list eligible donors")
	}

	matched := make([]models.Donor, 0, len(candidates))
	for _, d := range candidates {
		if d.Eligible(group) {
			matched = append(matched, d)
		}
	}
	span.SetAttributes(attribute.Int("matched", len(matched)))
	e.logger.InfoContext(ctx, "donors matched",
		"blood_group", group,
		"matched", len(matched),
	)
	return matched, nil
}
