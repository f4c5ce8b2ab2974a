package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fleetyard/regsync/internal/config"
	"github.com/fleetyard/regsync/internal/core/ports"
	"github.com/fleetyard/regsync/internal/core/usecase"
	"github.com/fleetyard/regsync/internal/infrastructure/filename"
	"github.com/fleetyard/regsync/internal/infrastructure/gateway"
	"github.com/fleetyard/regsync/internal/infrastructure/queue/nats"
	"github.com/fleetyard/regsync/internal/infrastructure/repository/postgres"
	"github.com/fleetyard/regsync/internal/infrastructure/resilience"
	"github.com/fleetyard/regsync/internal/infrastructure/signing"
	"github.com/fleetyard/regsync/internal/observability/logging"
)

type App struct {
	Config config.Config

	Queue ports.MessageQueue
	Docs  ports.DocumentStore
	Txs   ports.TransactionStore

	SubmitUC   ports.DocumentSubmitter
	Poller     *usecase.TransactionPoller
	CancelUC   ports.DocumentCanceler
	Reconciler ports.OutcomeReconciler

	closeFn func()
}

// New wires the full dependency graph for one process. The service name only
// feeds the logger; api and poller share the same graph.
func New(ctx context.Context, service string, cfg config.Config) (*App, error) {
	slog.SetDefault(logging.NewJSONLogger(service, cfg.LogLevel))

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	docs := postgres.NewDocumentRepository(db)
	txs := postgres.NewTransactionRepository(db)
	certs := postgres.NewCertificateRepository(db)
	orgs := postgres.NewOrgSettingsRepository(db)

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSPollSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	signer := signing.NewTokenSigner(signing.Audiences{
		Demo: cfg.DemoAudience,
		Prod: cfg.ProdAudience,
	}, time.Duration(cfg.TokenTTLMinutes)*time.Minute)

	codec := filename.NewCodec(cfg.InvoiceNodeID)
	client := gateway.New(gateway.Endpoints{
		WasteDemoBaseURL:   cfg.WasteDemoBaseURL,
		WasteProdBaseURL:   cfg.WasteProdBaseURL,
		InvoiceDemoBaseURL: cfg.InvoiceDemoBaseURL,
		InvoiceProdBaseURL: cfg.InvoiceProdBaseURL,
	}, time.Duration(cfg.GatewayTimeoutSeconds)*time.Second, codec, cfg.InvoiceTestMode)
	gw := gateway.NewResilient(client, executor)

	mapper, err := usecase.NewStatusMapper()
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("load status map: %w", err)
	}

	resolver := usecase.NewCertificateResolver(certs, orgs)
	reconciler := usecase.NewStateReconciler(docs, mapper)
	submitUC := usecase.NewSubmitDocumentUseCase(docs, txs, resolver, signer, gw, reconciler, queue)
	poller := usecase.NewTransactionPoller(txs, docs, resolver, signer, gw, reconciler, usecase.PollerConfig{
		MaxAttempts: cfg.PollMaxAttempts,
		Budget:      time.Duration(cfg.PollBudgetSeconds) * time.Second,
		BatchSize:   cfg.PollBatchSize,
		Concurrency: cfg.PollConcurrency,
	})
	cancelUC := usecase.NewCancelDocumentUseCase(docs, resolver, signer, gw)

	return &App{
		Config: cfg,

		Queue: queue,
		Docs:  docs,
		Txs:   txs,

		SubmitUC:   submitUC,
		Poller:     poller,
		CancelUC:   cancelUC,
		Reconciler: reconciler,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
