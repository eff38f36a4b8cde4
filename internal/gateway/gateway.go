// Package gateway is the HTTP surface and per-request orchestrator.
//
// DESIGN: Each request flows linearly:
//   resolve defaults -> quota reserve -> build -> dispatch -> normalize ->
//   respond (releasing the reservation on any failure).
//
// The quota ledger is the only cross-request shared state; everything else
// is constructed per request and discarded.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/FrankDu1/psychologist-chatbot/internal/config"
	"github.com/FrankDu1/psychologist-chatbot/internal/monitoring"
	"github.com/FrankDu1/psychologist-chatbot/internal/quota"
	"github.com/FrankDu1/psychologist-chatbot/internal/upstream"
)

// Gateway dispatches uniform API requests to heterogeneous upstream
// providers and normalizes their responses.
type Gateway struct {
	cfg     *config.Config
	ledger  *quota.Ledger
	client  *upstream.Client
	tracker *monitoring.Tracker
	metrics *monitoring.MetricsCollector

	server *http.Server
}

// New creates a gateway from config. Telemetry setup failures are logged
// and degrade to a disabled tracker rather than preventing startup.
func New(cfg *config.Config) *Gateway {
	tracker, err := monitoring.NewTracker(monitoring.TelemetryConfig{
		Enabled:     cfg.Monitoring.Enabled,
		LogPath:     cfg.Monitoring.LogPath,
		SQLitePath:  cfg.Monitoring.SQLitePath,
		LogToStdout: cfg.Monitoring.LogToStdout,
	})
	if err != nil {
		log.Error().Err(err).Msg("telemetry disabled: tracker init failed")
		tracker, _ = monitoring.NewTracker(monitoring.TelemetryConfig{})
	}

	g := &Gateway{
		cfg:     cfg,
		ledger:  quota.NewLedger(cfg.Quota.DailyFreeLimit),
		client:  upstream.NewClient(config.DefaultUpstreamTimeout),
		tracker: tracker,
		metrics: monitoring.NewMetricsCollector(),
	}

	g.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      g.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return g
}

// Handler builds the route table. Exposed for tests.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/config", g.handleConfig)
	mux.HandleFunc("/api/usage", g.handleUsage)
	mux.HandleFunc("/api/models", g.handleModels)
	mux.HandleFunc("/api/chat", g.handleChat)
	mux.HandleFunc("/api/generate-image", g.handleImage)
	mux.HandleFunc("/api/agent-completion", g.handleAgent)
	mux.HandleFunc("/healthz", g.handleHealth)
	mux.HandleFunc("/stats", g.handleStats)

	if dir := g.cfg.Server.StaticDir; dir != "" {
		if st, err := os.Stat(dir); err == nil && st.IsDir() {
			mux.Handle("/", http.FileServer(http.Dir(dir)))
		}
	}

	return mux
}

// Start begins serving. Blocks until the server stops.
func (g *Gateway) Start() error {
	g.tracker.RecordInit(&monitoring.InitEvent{
		Timestamp:      time.Now(),
		Event:          "gateway_init",
		ServerPort:     g.cfg.Server.Port,
		DailyFreeLimit: g.cfg.Quota.DailyFreeLimit,
		ChatEndpoint:   g.cfg.Providers.Chat.Endpoint,
		ImageEndpoint:  g.cfg.Providers.Image.Endpoint,
		AgentAppSet:    g.cfg.Providers.Agent.AppID != "",
		HasChatKey:     g.cfg.Providers.Chat.APIKey != "",
		HasImageKey:    g.cfg.Providers.Image.APIKey != "",
		HasAgentKey:    g.cfg.Providers.Agent.APIKey != "",
	})

	log.Info().
		Int("port", g.cfg.Server.Port).
		Int("daily_free_limit", g.cfg.Quota.DailyFreeLimit).
		Msg("gateway listening")

	err := g.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server and closes telemetry sinks.
func (g *Gateway) Shutdown(ctx context.Context) error {
	err := g.server.Shutdown(ctx)
	if cerr := g.tracker.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// getRequestID gets or generates a request ID.
func (g *Gateway) getRequestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return id
	}
	return uuid.New().String()
}
