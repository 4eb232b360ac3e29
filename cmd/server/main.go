package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	donorhandler "bloodlink/internal/donor/handler"
	donorservice "bloodlink/internal/donor/service"
	"bloodlink/internal/matching"
	"bloodlink/internal/notification"
	"bloodlink/internal/notification/events"
	notificationmetrics "bloodlink/internal/notification/metrics"
	"bloodlink/internal/notification/render"
	"bloodlink/internal/notification/transport/twilio"
	"bloodlink/internal/platform/config"
	"bloodlink/internal/platform/httpserver"
	"bloodlink/internal/platform/kafka"
	"bloodlink/internal/platform/logger"
	"bloodlink/internal/platform/metrics"
	requesthandler "bloodlink/internal/request/handler"
	requestservice "bloodlink/internal/request/service"
	httptransport "bloodlink/internal/transport/http"
	"bloodlink/pkg/platform/circuit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.New(reg)
	notifyMetrics := notificationmetrics.New(reg)

	st, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	ledgerOpts := []notification.LedgerOption{
		notification.WithLedgerLogger(log),
		notification.WithLedgerMetrics(notifyMetrics),
	}
	if cfg.KafkaEnabled() {
		producer, err := kafka.NewProducer(ctx, cfg.Kafka.Brokers, cfg.Kafka.OutcomeTopic, cfg.Kafka.Partitions, log)
		if err != nil {
			return err
		}
		defer producer.Close()
		ledgerOpts = append(ledgerOpts, notification.WithPublisher(events.NewPublisher(producer)))
	}
	ledger := notification.NewLedger(st.records, ledgerOpts...)

	renderer, err := render.New(cfg.Dispatch.Locale, cfg.Dispatch.RequestLinkBase)
	if err != nil {
		return err
	}
	dispatchOpts := []notification.DispatcherOption{
		notification.WithDispatcherLogger(log),
		notification.WithDispatcherMetrics(notifyMetrics),
		notification.WithConcurrency(cfg.Dispatch.Concurrency),
	}
	if cfg.TransportConfigured() {
		breaker := circuit.New("twilio",
			circuit.WithFailureThreshold(cfg.Dispatch.BreakerThreshold),
			circuit.WithCooldown(cfg.Dispatch.BreakerCooldown),
		)
		dispatchOpts = append(dispatchOpts, notification.WithTransport(twilio.New(twilio.Config{
			BaseURL:    cfg.Twilio.BaseURL,
			AccountSID: cfg.Twilio.AccountSID,
			AuthToken:  cfg.Twilio.AuthToken,
			From:       cfg.Twilio.WhatsAppFrom,
			Timeout:    cfg.Twilio.Timeout,
		}, twilio.WithBreaker(breaker), twilio.WithLogger(log))))
	} else {
		log.WarnContext(ctx, "twilio credentials missing, notifications will be recorded as skipped")
	}
	dispatcher := notification.NewDispatcher(renderer, ledger, dispatchOpts...)

	engine := matching.New(st.donors, matching.WithLogger(log))
	requests := requestservice.New(st.requests, engine, dispatcher, ledger, st.donors, requestservice.WithLogger(log))
	donors := donorservice.New(st.donors, donorservice.WithLogger(log))

	requestRoutes := requesthandler.New(requests, log)
	router := httptransport.NewRouter(httptransport.Options{
		Logger:   log,
		Metrics:  httpMetrics,
		Gatherer: reg,
		Checks:   st.checks,
	}, donorhandler.New(donors, log), requestRoutes)

	srv := httpserver.New(cfg.Server.Addr, router)
	serveErr := make(chan error, 1)
	go func() {
		log.InfoContext(ctx, "starting bloodlink", "addr", cfg.Server.Addr, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	requestRoutes.Wait()
	return nil
}
