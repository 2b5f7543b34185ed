package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"prizeboost/config"
	coreevents "prizeboost/core/events"
	"prizeboost/core/state"
	"prizeboost/indexer"
	"prizeboost/native/boost"
	"prizeboost/observability"
	"prizeboost/observability/logging"
	"prizeboost/observability/otel"
	"prizeboost/oracle"
	"prizeboost/rpc"
	"prizeboost/storage"
)

const rpcTokenEnv = "PZB_RPC_TOKEN"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("PZB_ENV"))
	logger := logging.Setup("boostd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if env == "" {
		env = cfg.Environment
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if strings.TrimSpace(cfg.TelemetryEndpoint) != "" {
		shutdown, err := otel.Init(ctx, otel.Config{
			ServiceName: "boostd",
			Environment: env,
			Endpoint:    cfg.TelemetryEndpoint,
			Insecure:    cfg.TelemetryInsecure,
			Traces:      cfg.TelemetryTraces,
			Metrics:     cfg.TelemetryMetrics,
		})
		if err != nil {
			logger.Error("Failed to initialise telemetry", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				logger.Error("Telemetry shutdown failed", slog.Any("error", err))
			}
		}()
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	manager := state.NewManager(db)

	if path := strings.TrimSpace(cfg.SeedFile); path != "" {
		if _, statErr := os.Stat(path); statErr == nil {
			seed, err := boost.LoadSeed(path)
			if err != nil {
				panic(fmt.Sprintf("Failed to load seed policy: %v", err))
			}
			if err := seed.Apply(manager); err != nil {
				panic(fmt.Sprintf("Failed to apply seed policy: %v", err))
			}
		} else if !errors.Is(statErr, os.ErrNotExist) {
			panic(fmt.Sprintf("Failed to stat seed policy: %v", statErr))
		}
	}

	idx, err := indexer.Open(cfg.IndexFile, logger.With("component", "indexer"))
	if err != nil {
		panic(fmt.Sprintf("Failed to open index database: %v", err))
	}

	stream := rpc.NewBoostStream()
	manager.SetEmitter(coreevents.NewMultiEmitter(observability.Collector{}, idx, stream))

	oracleClient, err := oracle.NewClient(oracle.Config{
		BaseURL:  cfg.OracleURL,
		APIKey:   cfg.OracleAPIKey,
		Timeout:  time.Duration(cfg.OracleTimeoutSeconds) * time.Second,
		CacheTTL: time.Duration(cfg.OracleCacheSeconds) * time.Second,
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to build oracle client: %v", err))
	}

	engine := boost.NewEngine(manager, oracleClient)

	server := rpc.NewServer(engine, rpc.ServerConfig{
		Auth: rpc.AuthConfig{
			BearerToken: strings.TrimSpace(os.Getenv(rpcTokenEnv)),
			JWTSecret:   cfg.AuthJWTSecret,
			Issuer:      cfg.AuthIssuer,
			Audience:    cfg.AuthAudience,
		},
		Logger: logger.With("component", "rpc"),
		Stream: stream,
	})

	rpcServer := &http.Server{
		Addr:              cfg.RPCAddress,
		Handler:           otelhttp.NewHandler(server.Handler(), "boostd.rpc"),
		ReadHeaderTimeout: 10 * time.Second,
	}

	opsMux := http.NewServeMux()
	opsMux.Handle("/metrics", promhttp.Handler())
	opsMux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	opsServer := &http.Server{
		Addr:              cfg.OpsAddress,
		Handler:           opsMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("RPC server listening", slog.String("address", cfg.RPCAddress), slog.String("network", cfg.NetworkName))
		if err := rpcServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("rpc server: %w", err)
		}
	}()
	go func() {
		logger.Info("Ops server listening", slog.String("address", cfg.OpsAddress))
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("ops server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		logger.Error("Server failure", slog.Any("error", err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := rpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("RPC shutdown failed", slog.Any("error", err))
	}
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Ops shutdown failed", slog.Any("error", err))
	}
}
