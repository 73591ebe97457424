package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"anemiacbc/config"
	"anemiacbc/db"
	"anemiacbc/logging"
	"anemiacbc/ml"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "config file path")
	dataPath := flag.String("data", "", "training CSV path (overrides config)")
	modelDir := flag.String("model_dir", "", "artifact output directory (overrides config)")
	modelType := flag.String("model_type", "", "random_forest or decision_tree (overrides config)")
	nTrees := flag.Int("n_trees", 0, "number of trees (overrides config)")
	maxDepth := flag.Int("max_depth", -1, "max tree depth, 0 for unlimited (overrides config)")
	testRatio := flag.Float64("test_ratio", 0, "held-out fraction (overrides config)")
	seed := flag.Int64("seed", -1, "random seed (overrides config)")
	noLog := flag.Bool("no_log", false, "skip recording the run in the training log")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if *dataPath != "" {
		cfg.Data.Path = *dataPath
	}
	if *modelDir != "" {
		cfg.Model.Dir = *modelDir
	}
	trainCfg := trainConfig(cfg)
	if *modelType != "" {
		trainCfg.ModelType = *modelType
	}
	if *nTrees > 0 {
		trainCfg.NTrees = *nTrees
	}
	if *maxDepth >= 0 {
		trainCfg.MaxDepth = *maxDepth
	}
	if *testRatio > 0 {
		trainCfg.TestRatio = *testRatio
	}
	if *seed >= 0 {
		trainCfg.Seed = *seed
	}

	ds, err := ml.LoadDataset(cfg.Data.Path)
	if err != nil {
		logger.Fatal("failed to load dataset", zap.String("path", cfg.Data.Path), zap.Error(err))
	}
	logger.Info("dataset loaded", zap.String("path", cfg.Data.Path), zap.Int("rows", ds.Len()))

	quality := ml.CheckQuality(ds, ml.DefaultQualityRules())
	for _, issue := range quality.Issues {
		logger.Debug("data quality issue",
			zap.String("rule", issue.Rule),
			zap.String("severity", issue.Severity),
			zap.Int("row", issue.Row),
			zap.String("message", issue.Message))
	}
	if !quality.Clean() {
		logger.Warn("dataset has quality issues, training on it unchanged",
			zap.Int("issues", len(quality.Issues)),
			zap.String("summary", quality.Summary()))
	}

	result, err := ml.Train(ds, trainCfg, logger)
	if err != nil {
		logger.Fatal("failed to train model", zap.Error(err))
	}
	result.Artifact.Metadata.Dataset = cfg.Data.Path

	fmt.Printf("Accuracy: %.4f\n", result.Report.Accuracy)
	fmt.Print(result.Report)

	if err := result.Artifact.Save(cfg.Model.Dir); err != nil {
		logger.Fatal("failed to save artifact", zap.String("dir", cfg.Model.Dir), zap.Error(err))
	}
	fmt.Printf("model saved to %s\n", ml.ModelPath(cfg.Model.Dir))
	fmt.Printf("metadata saved to %s\n", ml.MetadataPath(cfg.Model.Dir))

	if *noLog {
		return
	}
	if err := recordRun(cfg.Data.DBPath, result); err != nil {
		logger.Warn("failed to record training run", zap.Error(err))
	}
}

func trainConfig(cfg *config.Config) ml.TrainConfig {
	tc := ml.DefaultTrainConfig()
	if cfg.Model.Type != "" {
		tc.ModelType = cfg.Model.Type
	}
	if cfg.Model.NTrees > 0 {
		tc.NTrees = cfg.Model.NTrees
	}
	tc.MaxDepth = cfg.Model.MaxDepth
	tc.TestRatio = cfg.Model.TestRatio
	tc.Seed = cfg.Model.Seed
	tc.Threshold = cfg.Model.Threshold
	return tc
}

// recordRun appends the held-out metrics to the training log. Precision and
// recall are those of the anemia class.
func recordRun(dbPath string, result *ml.TrainResult) error {
	store, err := db.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	meta := result.Artifact.Metadata
	entry := db.TrainingLog{
		ModelName:  meta.ModelType,
		Accuracy:   result.Report.Accuracy,
		ROCAUC:     result.Report.ROCAUC,
		TrainedAt:  meta.TrainedAt,
		DataPoints: meta.TrainSize + meta.TestSize,
	}
	for _, c := range result.Report.Classes {
		if c.Label == 1 {
			entry.Precision = c.Precision
			entry.Recall = c.Recall
		}
	}
	return store.SaveTrainingLog(context.Background(), entry)
}
