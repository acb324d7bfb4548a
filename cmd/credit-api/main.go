package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/inclusivefin/altcredit/internal/api"
	"github.com/inclusivefin/altcredit/internal/audit"
	"github.com/inclusivefin/altcredit/internal/config"
	"github.com/inclusivefin/altcredit/internal/features"
	"github.com/inclusivefin/altcredit/internal/metrics"
	"github.com/inclusivefin/altcredit/internal/model"
	"github.com/inclusivefin/altcredit/internal/registry"
	"github.com/inclusivefin/altcredit/internal/scoring"
	"github.com/inclusivefin/altcredit/internal/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("path", configPath), slog.Any("error", err))
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	logger.Info("starting credit-api", slog.String("address", cfg.Server.Address))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		os.Exit(1)
	}

	contract := features.Default()
	reg := registry.New(cfg.Model.RegistryDir)
	bundle, err := loadOrTrain(logger, cfg, reg, contract)
	if err != nil {
		logger.Error("failed to load model bundle", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.Decision.ApproveThreshold > 0 {
		bundle.Thresholds = model.Thresholds{
			Approve: cfg.Decision.ApproveThreshold,
			Review:  cfg.Decision.ReviewThreshold,
		}
	}
	logger.Info("serving model",
		slog.String("name", bundle.Name), slog.String("version", bundle.Version),
		slog.Float64("approve_threshold", bundle.Thresholds.Approve),
		slog.Float64("review_threshold", bundle.Thresholds.Review))

	jsonl, err := audit.NewJSONLSink(cfg.Audit.Dir)
	if err != nil {
		logger.Error("failed to open audit directory", slog.Any("error", err))
		os.Exit(1)
	}
	sqlite, err := audit.OpenSQLite(cfg.Audit.SQLitePath)
	if err != nil {
		logger.Error("failed to open audit database", slog.Any("error", err))
		os.Exit(1)
	}
	defer sqlite.Close()
	auditLog := audit.NewLogger(jsonl, sqlite)

	pipeline, err := scoring.New(logger, contract, bundle, auditLog, scoring.Options{
		ReasonStrategy: cfg.Model.ReasonStrategy,
		LogRawFeatures: cfg.Audit.LogRequestBody,
	})
	if err != nil {
		logger.Error("failed to build scoring pipeline", slog.Any("error", err))
		os.Exit(1)
	}

	server := api.New(logger, cfg, pipeline, auditLog, reg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if cfg.Server.MetricsAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	if metricsServer != nil {
		g.Go(func() error {
			logger.Info("metrics server listening", slog.String("address", cfg.Server.MetricsAddress))
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("api server shutdown", slog.Any("error", err))
		}
		if metricsServer != nil {
			metricsCtx, cancelMetrics := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelMetrics()
			if err := metricsServer.Shutdown(metricsCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server shutdown", slog.Any("error", err))
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("credit-api stopped")
}

// loadOrTrain resolves the bundle to serve: the configured version if set,
// else the registry's current model. An empty registry bootstraps a demo
// bundle trained on synthetic data so a fresh checkout serves immediately.
// Approval gating only blocks explicitly required deployments.
func loadOrTrain(logger *slog.Logger, cfg *config.Config, reg *registry.Registry, contract *features.Contract) (*model.Bundle, error) {
	load := func() (*model.Bundle, error) {
		if cfg.Model.Version != "" {
			return reg.LoadBundle(cfg.Model.Version, cfg.Model.RequireApproval)
		}
		return reg.LoadCurrent(cfg.Model.RequireApproval)
	}

	bundle, err := load()
	if err == nil {
		return bundle, nil
	}
	if utils.KindOf(err) != utils.KindNotFound || cfg.Model.Version != "" {
		return nil, err
	}

	logger.Info("registry empty, training bootstrap bundle")
	bundle, eval, err := model.Train(model.TrainConfig{
		FeatureOrder: contract.Columns(),
		SchemaHash:   contract.SchemaHash(),
		Thresholds: model.Thresholds{
			Approve: cfg.Decision.ApproveThreshold,
			Review:  cfg.Decision.ReviewThreshold,
		},
	})
	if err != nil {
		return nil, err
	}
	logger.Info("bootstrap bundle trained",
		slog.String("version", bundle.Version),
		slog.Float64("accuracy", eval.Accuracy),
		slog.Float64("auc", eval.AUC))
	if _, err := reg.Add(bundle); err != nil {
		return nil, err
	}
	if cfg.Model.RequireApproval {
		return nil, errors.New("bootstrap bundle registered but approval required; approve it with creditctl")
	}
	return bundle, nil
}
