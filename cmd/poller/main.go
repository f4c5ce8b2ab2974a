package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fleetyard/regsync/internal/bootstrap"
	"github.com/fleetyard/regsync/internal/config"
	"github.com/fleetyard/regsync/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, "poller", cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	pollerMetrics := metrics.NewPollerMetrics("poller")
	metricsServer := startMetricsServer(cfg.PollerMetricsPort, pollerMetrics)

	// The cron pass re-enqueues anything still pollable, so a lost NATS
	// message only delays a transaction, never strands it.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.PollCronSpec, func() {
		passCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.PollHandlerTimeout)*time.Second)
		defer cancel()
		if err := app.Poller.PollDue(passCtx); err != nil {
			log.Printf("poll pass error: %v", err)
		}
	}); err != nil {
		log.Fatalf("cron schedule error: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	log.Printf("poller subscribed to %s", cfg.NATSPollSubject)
	err = app.Queue.SubscribePollRequested(ctx, func(handlerCtx context.Context, transactionID string) error {
		pollCtx, cancel := context.WithTimeout(handlerCtx, time.Duration(cfg.PollHandlerTimeout)*time.Second)
		defer cancel()

		if tx, err := app.Txs.GetByID(pollCtx, transactionID); err == nil {
			pollerMetrics.ObserveTransactionAge("poller", time.Since(tx.SubmittedAt))
		}

		start := time.Now()
		pollerMetrics.StartPoll()
		status, err := app.Poller.CheckStatus(pollCtx, transactionID)
		state := "error"
		if status != nil {
			state = string(status.State)
		}
		pollerMetrics.FinishPoll("poller", state, time.Since(start))
		return err
	})
	if err != nil {
		log.Fatalf("poller subscribe error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("metrics server shutdown error: %v", err)
	}
}

func startMetricsServer(port string, m *metrics.PollerMetrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	server := &http.Server{Addr: ":" + port, Handler: mux}
	go func() {
		log.Printf("poller metrics listening on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	return server
}
