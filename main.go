// Command tg-message-archiver mirrors Telegram (and optionally Twitch) chat
// traffic into an append-mostly message log. It:
//   - Loads configuration and initializes structured logging.
//   - Opens the configured log store (Google Sheets, Postgres, or memory)
//     and makes sure the tab and header row exist.
//   - Authorizes the Telegram relay and subscribes the reconciler to both
//     typed and raw update delivery.
//   - Optionally records Twitch chat into the same log.
//   - Exposes /healthz, /readyz, /metrics and the relay push endpoint.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	_ "net/http/pprof" //nolint:gosec // G108: pprof endpoints enabled only when ENABLE_PPROF=1
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Muzaffarxon04/tg-message-archiver/chat"
	"github.com/Muzaffarxon04/tg-message-archiver/config"
	"github.com/Muzaffarxon04/tg-message-archiver/mirror"
	"github.com/Muzaffarxon04/tg-message-archiver/server"
	"github.com/Muzaffarxon04/tg-message-archiver/store"
	"github.com/Muzaffarxon04/tg-message-archiver/telegram"
	"github.com/Muzaffarxon04/tg-message-archiver/telemetry"
)

func main() {
	// Load .env.local then .env if present (local dev convenience only; production relies on real env)
	config.LoadDotenv()

	configureLogging()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("config invalid", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	shutdown, err := telemetry.InitTracing("tg-message-archiver", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	table, err := store.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open message log store", slog.Any("err", err), slog.String("backend", cfg.Backend))
		os.Exit(1)
	}
	defer func() {
		if err := table.Close(); err != nil {
			slog.Error("failed to close message log store", slog.Any("err", err))
		}
	}()

	setupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = table.EnsureTab(setupCtx)
	cancel()
	if err != nil {
		slog.Error("failed to prepare message log tab", slog.Any("err", err), slog.String("tab", cfg.TabName))
		os.Exit(1)
	}

	relay := telegram.NewRelay(cfg.RelayToken)
	rec := mirror.NewReconciler(table, mirror.NewGuard(cfg.DedupTTL), mirror.WithTextLimit(cfg.TextLimit))
	m := mirror.New(relay, mirror.NewNormalizer(mirror.NewLabeler(relay), cfg.TextLimit), rec)
	if err := m.Start(ctx); err != nil {
		if errors.Is(err, mirror.ErrUnauthorized) {
			slog.Error("telegram transport not authorized; set RELAY_TOKEN and restart", slog.String("component", "telegram"))
		} else {
			slog.Error("mirror start failed", slog.Any("err", err))
		}
		os.Exit(1)
	}
	slog.Info("message log ready", slog.String("backend", cfg.Backend), slog.String("tab", cfg.TabName))

	go chat.StartTwitchRecorder(ctx, cfg, m.Reconciler())

	// Enable pprof profiling endpoints in debug mode (ENABLE_PPROF=1)
	if os.Getenv("ENABLE_PPROF") == "1" {
		pprofAddr := os.Getenv("PPROF_ADDR")
		if pprofAddr == "" {
			pprofAddr = "localhost:6060"
		}
		go func() {
			slog.Info("pprof profiling enabled", slog.String("addr", pprofAddr))
			srv := &http.Server{
				Addr:              pprofAddr,
				Handler:           nil, // default mux exposes /debug/pprof
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       10 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil {
				slog.Error("pprof server error", slog.Any("err", err))
			}
		}()
	}

	handler := server.NewMux(ctx, relay, server.Options{}, server.Check{Name: "store", Fn: table.Ping})
	go func() {
		if err := server.Start(ctx, cfg.HTTPAddr, handler); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	// Block until shutdown signal
	<-ctx.Done()
	slog.Info("shutting down")
}

// configureLogging sets the default slog handler from LOG_LEVEL and LOG_FORMAT.
// Defaults: level=info, format=text.
func configureLogging() {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		// unknown level -> keep info but note once using temporary logger
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", map[bool]string{true: "json", false: "text"}[format == "json"]))
}
