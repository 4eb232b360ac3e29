package notification

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"bloodlink/internal/donor/models"
	"bloodlink/internal/notification/metrics"
)

var tracer = otel.Tracer("bloodlink/notification")

const defaultConcurrency = 8

// Renderer produces the message body for a context.
type Renderer interface {
	Render(msg MessageContext) string
}

// Recorder receives the outcomes of a finished wave.
type Recorder interface {
	Append(ctx context.Context, outcomes []Outcome)
}

// Dispatcher sends one message per target and reports one outcome per
// target. Per-donor failures become outcomes and never fail the dispatch.
type Dispatcher struct {
	transport   Transport
	renderer    Renderer
	ledger      Recorder
	logger      *slog.Logger
	metrics     *metrics.Metrics
	concurrency int
}

type DispatcherOption func(*Dispatcher)

// WithTransport sets the outbound channel. Without one every target is
// recorded as skipped.
func WithTransport(t Transport) DispatcherOption {
	return func(d *Dispatcher) {
		d.transport = t
	}
}

func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func WithDispatcherMetrics(m *metrics.Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithConcurrency bounds in-flight sends per wave. Values below 1 are ignored.
func WithConcurrency(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

func NewDispatcher(renderer Renderer, ledger Recorder, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		renderer:    renderer,
		ledger:      ledger,
		logger:      slog.Default(),
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// TransportConfigured reports whether sends will be attempted.
func (d *Dispatcher) TransportConfigured() bool {
	return d.transport != nil
}

// Dispatch attempts delivery to every target and hands the outcomes to the
// ledger as one batch. The returned slice is index-aligned with targets.
// An empty target list yields no outcomes and no ledger write.
//
// In-flight sends and the ledger write are detached from ctx cancellation;
// the transport's own timeout bounds each attempt.
func (d *Dispatcher) Dispatch(ctx context.Context, targets []models.Donor, msg MessageContext) ([]Outcome, error) {
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		d.logger.InfoContext(ctx, "no donors to notify",
			"request_id", msg.RequestID,
			"wave", msg.Kind,
		)
		return []Outcome{}, nil
	}

	ctx, span := tracer.Start(ctx, "notification.Dispatch", trace.WithAttributes(
		attribute.String("request_id", msg.RequestID.String()),
		attribute.String("wave", string(msg.Kind)),
		attribute.Int("targets", len(targets)),
	))
	defer span.End()

	start := time.Now()
	work := context.WithoutCancel(ctx)
	outcomes := make([]Outcome, len(targets))

	if d.transport == nil {
		d.logger.WarnContext(ctx, "messaging transport not configured, skipping sends",
			"request_id", msg.RequestID,
			"wave", msg.Kind,
			"targets", len(targets),
		)
		for i, target := range targets {
			outcomes[i] = Outcome{RequestID: msg.RequestID, DonorID: target.ID, Status: StatusSkipped}
		}
	} else {
		body := d.renderer.Render(msg)
		var g errgroup.Group
		g.SetLimit(d.concurrency)
		for i, target := range targets {
			g.Go(func() error {
				outcomes[i] = d.send(work, msg, target, body)
				return nil
			})
		}
		_ = g.Wait()
	}

	summary := Summarize(outcomes)
	for _, o := range outcomes {
		d.metrics.IncrementOutcome(string(msg.Kind), string(o.Status))
	}
	d.metrics.ObserveDispatchLatency(string(msg.Kind), time.Since(start))
	span.SetAttributes(
		attribute.Int("sent", summary[StatusSent]),
		attribute.Int("failed", summary[StatusFailed]),
		attribute.Int("error", summary[StatusError]),
		attribute.Int("skipped", summary[StatusSkipped]),
	)

	d.ledger.Append(work, outcomes)

	d.logger.InfoContext(ctx, "dispatch complete",
		"request_id", msg.RequestID,
		"wave", msg.Kind,
		"targets", len(targets),
		"sent", summary[StatusSent],
		"failed", summary[StatusFailed],
		"error", summary[StatusError],
		"skipped", summary[StatusSkipped],
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return outcomes, nil
}

func (d *Dispatcher) send(ctx context.Context, msg MessageContext, target models.Donor, body string) Outcome {
	start := time.Now()
	receipt, err := d.transport.Send(ctx, OutboundMessage{To: target.Phone, Body: body})
	d.metrics.ObserveSendLatency(time.Since(start))

	status := Classify(receipt, err)
	switch status {
	case StatusSent:
		d.logger.DebugContext(ctx, "notification sent",
			"request_id", msg.RequestID,
			"donor_id", target.ID,
			"message_id", receipt.MessageID,
		)
	case StatusFailed:
		d.logger.WarnContext(ctx, "notification rejected by transport",
			"request_id", msg.RequestID,
			"donor_id", target.ID,
			"status_code", receipt.StatusCode,
		)
	default:
		d.logger.WarnContext(ctx, "notification send error",
			"request_id", msg.RequestID,
			"donor_id", target.ID,
			"error", err,
		)
	}
	return Outcome{RequestID: msg.RequestID, DonorID: target.ID, Status: status}
}
