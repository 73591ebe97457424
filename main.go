package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"anemiacbc/config"
	"anemiacbc/db"
	qhttp "anemiacbc/http"
	"anemiacbc/logging"
	"anemiacbc/ml"
	"anemiacbc/monitoring"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "config file path")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// 2. Load the trained artifact; the service does not start without one
	artifact, err := ml.LoadArtifact(cfg.Model.Dir)
	if err != nil {
		logger.Fatal("failed to load model artifact",
			zap.String("dir", cfg.Model.Dir),
			zap.Error(err))
	}
	policy, err := ml.ParseCategoryPolicy(cfg.Model.CategoryPolicy)
	if err != nil {
		logger.Fatal("invalid category policy", zap.Error(err))
	}
	predictor, err := ml.NewPredictor(artifact, policy)
	if err != nil {
		logger.Fatal("failed to build predictor", zap.Error(err))
	}
	meta := predictor.Metadata()
	logger.Info("model loaded",
		zap.String("model_type", meta.ModelType),
		zap.Strings("features", meta.Features),
		zap.Float64("threshold", meta.Threshold),
		zap.String("category_policy", string(policy)))

	// 3. Initialize database
	store, err := db.Open(cfg.Data.DBPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()
	logger.Info("database initialized", zap.String("path", cfg.Data.DBPath))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := monitoring.NewHub(logger)
	go hub.Run()
	defer hub.Stop()

	if cfg.Http.WatchArtifact {
		err := monitoring.WatchArtifact(ctx, cfg.Model.Dir,
			[]string{ml.ModelFileName, ml.MetadataFileName},
			func(name string, op fsnotify.Op) {
				logger.Warn("model artifact changed on disk, restart required to serve it",
					zap.String("file", name),
					zap.String("op", op.String()))
			})
		if err != nil {
			logger.Warn("artifact watcher disabled", zap.Error(err))
		}
	}

	// 4. Start HTTP server
	serverCfg := qhttp.DefaultServerConfig()
	serverCfg.Port = cfg.Http.Port
	serverCfg.AllowedOrigins = cfg.Http.AllowedOrigins
	serverCfg.CacheSize = cfg.Http.CacheSize
	serverCfg.MaxBodyBytes = cfg.Http.MaxBodyBytes
	serverCfg.Timeout = 30 * time.Second

	server, err := qhttp.NewServer(serverCfg, qhttp.Deps{
		Predictor: predictor,
		History:   store,
		Hub:       hub,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("failed to build server", zap.Error(err))
	}
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 5. Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	if err := server.Stop(); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("exiting")
}
