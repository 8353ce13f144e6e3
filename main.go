package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"cvrisk/config"
	"cvrisk/db"
	cvhttp "cvrisk/http"
	"cvrisk/logger"
	"cvrisk/ml"
	"cvrisk/monitoring"
	"cvrisk/risk"
	"cvrisk/store"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default $"+config.EnvPath+" or config.yaml)")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load(config.ResolvePath(*configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("exiting", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Audit log
	var audit *db.AuditLog
	if cfg.Database.Path != "" {
		a, err := db.Open(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("open audit log: %w", err)
		}
		defer a.Close()
		audit = a
		log.Info("audit log opened", zap.String("path", cfg.Database.Path))
	}

	// 4. Model, loaded once. A failure keeps the service up with the
	// calculation path disabled.
	model, artifact, loadErr := loadModel(ctx, cfg.ML, audit, log)

	// 5. Services
	assessments, err := store.New(cfg.Store.Size)
	if err != nil {
		return fmt.Errorf("create assessment store: %w", err)
	}
	evaluator := risk.NewEvaluator(model, risk.WithHorizon(cfg.ML.HorizonDays))
	hub := monitoring.NewHub(log.Named("monitor"))
	go hub.Run(ctx)

	if cfg.ML.WatchArtifact {
		go func() {
			notify := monitoring.ArtifactChangedNotifier(hub, log)
			if err := monitoring.WatchArtifact(ctx, cfg.ML.ModelPath, log, notify); err != nil {
				log.Warn("artifact watcher disabled", zap.Error(err))
			}
		}()
	}

	deps := cvhttp.Deps{
		Evaluator: evaluator,
		Store:     assessments,
		Stats:     monitoring.NewStats(),
		Hub:       hub,
		Artifact:  artifact,
		LoadError: loadErr,
		Logger:    log.Named("http"),
	}
	if audit != nil {
		deps.Audit = audit
	}

	// 6. HTTP server
	server := cvhttp.NewServer(cvhttp.ServerConfig{
		Port:         cfg.HTTP.Port,
		Timeout:      cfg.HTTP.Timeout,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
	}, cvhttp.NewHandlers(deps), log.Named("http"))

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	// 7. Graceful shutdown
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Warn("server forced to shutdown", zap.Error(err))
	}
	log.Info("exiting")
	return nil
}

// loadModel loads the artifact and records the attempt in the audit log.
// On failure it returns a nil model and the reason.
func loadModel(ctx context.Context, cfg config.MLConfig, audit *db.AuditLog, log *zap.Logger) (ml.SurvivalModel, *ml.Artifact, error) {
	entry := db.ModelLoad{ModelType: cfg.ModelType, Path: cfg.ModelPath, Status: db.StatusOK, LoadedAt: time.Now()}

	var artifact *ml.Artifact
	if info, err := ml.ArtifactInfo(cfg.ModelPath); err == nil {
		artifact = &info
		entry.SHA256 = info.SHA256
	}

	model, err := ml.LoadModel(cfg.ModelType, cfg.ModelPath)
	if err != nil {
		entry.Status = db.StatusFailed
		entry.Error = err.Error()
		log.Warn("model unavailable; risk calculation disabled",
			zap.String("model_type", cfg.ModelType),
			zap.String("path", cfg.ModelPath),
			zap.Error(err),
		)
	} else {
		meta := model.Metadata()
		log.Info("model loaded",
			zap.String("name", meta.Name),
			zap.String("model_type", cfg.ModelType),
			zap.String("sha256", entry.SHA256),
		)
	}

	if audit != nil {
		if aerr := audit.RecordModelLoad(ctx, entry); aerr != nil {
			log.Error("audit model load", zap.Error(aerr))
		}
	}
	return model, artifact, err
}
