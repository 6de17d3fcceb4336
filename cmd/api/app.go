package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/sundai/social-agent/internal/api/handlers"
	"github.com/sundai/social-agent/internal/api/middleware"
	"github.com/sundai/social-agent/internal/approval"
	"github.com/sundai/social-agent/internal/automation"
	"github.com/sundai/social-agent/internal/config"
	"github.com/sundai/social-agent/internal/embeddings"
	"github.com/sundai/social-agent/internal/llm"
	"github.com/sundai/social-agent/internal/observability"
	"github.com/sundai/social-agent/internal/repository"
	"github.com/sundai/social-agent/internal/retrieval"
	"github.com/sundai/social-agent/pkg/mastodon"
	"github.com/sundai/social-agent/pkg/notion"
	"github.com/sundai/social-agent/pkg/telegram"
)

var errUnsupportedEmbeddingProvider = errors.New("unsupported embedding provider")

const (
	embeddingProviderOpenAI = "openai"
	embeddingProviderGoogle = "google"
)

// App holds all server dependencies and coordinates startup and shutdown.
type App struct {
	cfg            *config.Config
	db             *pgxpool.Pool
	server         *http.Server
	tracerProvider *sdktrace.TracerProvider
	metrics        *observability.Metrics
}

// newEmbeddingClient selects the embedding provider. An empty provider
// disables embeddings: retrieval then returns nothing and new memories are
// stored without vectors.
func newEmbeddingClient(ctx context.Context, cfg *config.Config) (embeddings.Client, error) {
	switch cfg.EmbeddingProvider {
	case "":
		slog.Warn("embeddings disabled (EMBEDDING_PROVIDER empty)")

		return embeddings.NewDisabledClient(), nil
	case embeddingProviderOpenAI:
		return embeddings.NewOpenAIClient(cfg.EmbeddingAPIKey,
			embeddings.WithModel(cfg.EmbeddingModel),
			embeddings.WithRateLimit(cfg.EmbeddingRateLimit),
		), nil
	case embeddingProviderGoogle:
		client, err := embeddings.NewGoogleClient(ctx, cfg.EmbeddingAPIKey,
			embeddings.WithGoogleModel(cfg.EmbeddingModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create google embedding client: %w", err)
		}

		return client, nil
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedEmbeddingProvider, cfg.EmbeddingProvider)
	}
}

// NewApp builds and wires all components. It does not start the HTTP server;
// call Run to start and block until shutdown or failure.
func NewApp(ctx context.Context, cfg *config.Config, db *pgxpool.Pool) (*App, error) {
	tracerProvider, err := observability.NewTracerProvider(ctx, cfg.OtelTracesExporter)
	if err != nil {
		return nil, fmt.Errorf("create tracer provider: %w", err)
	}

	if tracerProvider == nil {
		slog.Warn("tracing not enabled (OTEL_TRACES_EXPORTER empty or unset)")
	} else {
		otel.SetTracerProvider(tracerProvider)
	}

	// Install TraceContextHandler unconditionally so request_id (and
	// trace_id/span_id when tracing is on) appear in logs.
	slog.SetDefault(slog.New(observability.NewTraceContextHandler(slog.Default().Handler())))

	metrics := observability.NewMetrics()

	embedder, err := newEmbeddingClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	generator := llm.NewClient(cfg.GenerationAPIKey, cfg.GenerationModel,
		llm.WithBaseURL(cfg.GenerationBaseURL),
	)

	memoriesRepo := repository.NewMemoriesRepository(db)

	retriever := retrieval.NewRetriever(memoriesRepo, embedder,
		retrieval.WithLimit(cfg.RetrievalLimit),
		retrieval.WithThreshold(cfg.RetrievalThreshold),
	)

	gateway := approval.NewTelegramGateway(telegram.NewClient(cfg.TelegramBotToken, cfg.TelegramChatID))
	protocol := approval.NewProtocol(gateway,
		approval.WithIntervals(cfg.DecisionPollInterval, cfg.FeedbackPollInterval),
		approval.WithFeedbackTimeout(cfg.FeedbackWaitTimeout),
	)

	publisher := automation.NewMastodonPublisher(mastodon.NewClient(cfg.MastodonBaseURL, cfg.MastodonAccessToken))

	driver := automation.NewDriver(automation.Params{
		Source:        notion.NewClient(cfg.NotionToken),
		Generator:     generator,
		Publisher:     publisher,
		Approver:      protocol,
		Memories:      memoriesRepo,
		Embedder:      embedder,
		Retriever:     retriever,
		PageID:        cfg.NotionPageID,
		BatchSize:     cfg.EngagementBatchSize,
		ReplyDelayMin: cfg.ReplyDelayMin,
		ReplyDelayMax: cfg.ReplyDelayMax,
		Metrics:       metrics,
	})

	runner := automation.NewRunner(driver, metrics, slog.Default())

	server := newHTTPServer(cfg, metrics,
		handlers.NewHealthHandler(),
		handlers.NewAutomationHandler(runner),
		handlers.NewMemoriesHandler(retriever, memoriesRepo, slog.Default()),
	)

	return &App{
		cfg:            cfg,
		db:             db,
		server:         server,
		tracerProvider: tracerProvider,
		metrics:        metrics,
	}, nil
}

// newHTTPServer builds the HTTP server and muxes (no auth on /health and
// /metrics, API key on /v1/). Handler chain: RequestID -> otelhttp(Logging(mux))
// so access logs get trace_id/span_id from context.
func newHTTPServer(
	cfg *config.Config,
	metrics *observability.Metrics,
	health *handlers.HealthHandler,
	automationHandler *handlers.AutomationHandler,
	memories *handlers.MemoriesHandler,
) *http.Server {
	public := http.NewServeMux()
	public.HandleFunc("GET /health", health.Check)
	public.Handle("GET /metrics", metrics.Handler())

	protected := http.NewServeMux()
	protected.HandleFunc("POST /v1/automation/run", automationHandler.Run)
	protected.HandleFunc("GET /v1/memories", memories.List)
	protected.HandleFunc("GET /v1/memories/{id}", memories.Get)
	protected.HandleFunc("DELETE /v1/memories/{id}", memories.Delete)

	mainMux := http.NewServeMux()
	mainMux.Handle("/v1/", middleware.Auth(cfg.APIKey)(protected))
	mainMux.Handle("/", public)

	var handler http.Handler = mainMux
	handler = middleware.Logging(slog.Default())(handler)
	handler = otelhttp.NewHandler(handler, "http.server")
	handler = middleware.RequestID(handler)

	return &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Run starts the HTTP server and blocks until ctx is cancelled or the server
// fails, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go func() {
		slog.Info("Starting server", "port", a.cfg.Port)

		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", "error", err)
	}

	if err := observability.ShutdownTracerProvider(shutdownCtx, a.tracerProvider); err != nil {
		slog.Error("Tracer provider shutdown error", "error", err)
	}

	return nil
}
