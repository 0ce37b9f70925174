package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	apihttp "trackstream/internal/api/http"
	"trackstream/internal/app"
	"trackstream/internal/domain/ports"
	"trackstream/internal/metrics"
	mongorepo "trackstream/internal/repository/mongo"
	"trackstream/internal/services/catalog"
	"trackstream/internal/services/source"
	"trackstream/internal/stream"
	"trackstream/internal/telemetry"
	"trackstream/internal/track"

	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const stateBroadcastInterval = 2 * time.Second

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "trackstream")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "trackstream"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.String("catalogBaseUrl", cfg.CatalogBaseURL),
		slog.String("resolverUrl", cfg.ResolverURL),
		slog.Bool("journalDisabled", cfg.JournalDisabled),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}

	var journal *mongorepo.PlaybackJournal
	var disconnectMongo func()
	if !cfg.JournalDisabled {
		ctx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
		defer cancel()

		mongoClient, err := mongorepo.Connect(ctx, cfg.MongoURI, options.Client().SetMonitor(otelmongo.NewMonitor()))
		if err != nil {
			logger.Error("mongo connect failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := mongoClient.Ping(ctx, readpref.Primary()); err != nil {
			logger.Error("mongo ping failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
		disconnectMongo = func() {
			if err := mongoClient.Disconnect(context.Background()); err != nil {
				logger.Warn("mongo disconnect error", slog.String("error", err.Error()))
			}
		}

		journal = mongorepo.NewPlaybackJournal(mongoClient, cfg.MongoDatabase)
		if err := journal.EnsureIndexes(ctx); err != nil {
			logger.Warn("mongo ensure indexes failed", slog.String("error", err.Error()))
		}
	}

	manager := track.NewManager(track.Deps{
		Catalog:  catalog.NewClient(cfg.CatalogBaseURL, httpClient, logger),
		Resolver: source.NewResolver(cfg.ResolverURL, httpClient, logger),
		Streams:  &stream.Factory{Client: httpClient, Logger: logger},
		Journal:  journalOrNil(journal),
		Logger:   logger,
	}, track.Config{
		SourceResolveTimeout: cfg.SourceResolveTimeout,
		OpenProbeTimeout:     cfg.OpenProbeTimeout,
		LimitReleaseTimeout:  cfg.LimitReleaseTimeout,
		ReuseGapBytes:        cfg.ReuseGapBytes,
		FinalStretchBytes:    cfg.FinalStretchBytes,
	})

	serverOpts := []apihttp.ServerOption{
		apihttp.WithLogger(logger),
		apihttp.WithAllowedOrigins(cfg.CORSAllowedOrigins),
	}
	if journal != nil {
		serverOpts = append(serverOpts, apihttp.WithPlaybackHistory(journal))
	}
	handler := apihttp.NewServer(manager, serverOpts...)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       60 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(rootCtx)

	group.Go(func() error {
		logger.Info("server started", slog.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		broadcastStates(groupCtx, manager, handler)
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		handler.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown error", slog.String("error", err.Error()))
		}
		manager.Close()
		return nil
	})

	if err := group.Wait(); err != nil {
		logger.Error("http server error", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if disconnectMongo != nil {
		disconnectMongo()
	}
	logger.Info("server stopped")
}

// broadcastStates pushes session snapshots to WebSocket clients on a fixed
// interval until ctx is cancelled.
func broadcastStates(ctx context.Context, manager *track.Manager, handler *apihttp.Server) {
	ticker := time.NewTicker(stateBroadcastInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			handler.BroadcastStates(manager.States())
		}
	}
}

// journalOrNil keeps the session dependency a plain nil when the journal is
// disabled, so the typed-nil interface pitfall never reaches the session.
func journalOrNil(journal *mongorepo.PlaybackJournal) ports.PlaybackJournal {
	if journal == nil {
		return nil
	}
	return journal
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
