package ml

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type TrainConfig struct {
	ModelType string
	NTrees    int
	MaxDepth  int
	TestRatio float64
	Seed      int64
	Threshold float64
}

func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		ModelType: ModelTypeRandomForest,
		NTrees:    150,
		TestRatio: 0.2,
		Seed:      42,
		Threshold: DefaultThreshold,
	}
}

type TrainResult struct {
	Artifact *Artifact
	Report   *EvaluationReport
}

// Train fits the label encoders and the classifier on a stratified split of
// ds and evaluates on the held-out rows. The same config and dataset always
// yield the same artifact.
func Train(ds *Dataset, cfg TrainConfig, logger *zap.Logger) (*TrainResult, error) {
	if ds == nil || ds.Len() == 0 {
		return nil, errors.New("dataset is empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.ModelType == "" {
		cfg.ModelType = ModelTypeRandomForest
	}

	encoders := make(map[string][]string, len(CategoricalColumns))
	for _, column := range CategoricalColumns {
		enc := FitLabelEncoder(ds.Column(column))
		if err := enc.Validate(); err != nil {
			return nil, fmt.Errorf("column %s: %w", column, err)
		}
		encoders[column] = enc.Classes
		logger.Info("fitted label encoder", zap.String("column", column), zap.Strings("classes", enc.Classes))
	}

	meta := Metadata{
		ModelType:     cfg.ModelType,
		Features:      DefaultFeatureNames(),
		LabelEncoders: encoders,
		Threshold:     cfg.Threshold,
		Seed:          cfg.Seed,
	}
	if err := meta.Validate(); err != nil {
		return nil, err
	}

	features := make([][]float64, ds.Len())
	for i, s := range ds.Samples {
		x, err := meta.Encode(s, CategoryStrict)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		features[i] = x
	}

	trainIdx, testIdx, err := StratifiedSplit(ds.Labels, cfg.TestRatio, cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("split dataset: %w", err)
	}
	trainX, trainY := gather(features, ds.Labels, trainIdx)
	testX, testY := gather(features, ds.Labels, testIdx)
	logger.Info("split dataset",
		zap.Int("rows", ds.Len()),
		zap.Int("train", len(trainIdx)),
		zap.Int("test", len(testIdx)),
		zap.Float64("test_ratio", cfg.TestRatio))

	model, err := NewModel(cfg.ModelType, cfg.NTrees, cfg.MaxDepth, cfg.Seed)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	if err := model.Train(trainX, trainY); err != nil {
		return nil, fmt.Errorf("train model: %w", err)
	}
	logger.Info("trained model", zap.String("model_type", cfg.ModelType), zap.Duration("elapsed", time.Since(start)))

	report, err := Evaluate(model, testX, testY, cfg.Threshold)
	if err != nil {
		return nil, fmt.Errorf("evaluate model: %w", err)
	}
	logger.Info("evaluated model",
		zap.Float64("accuracy", report.Accuracy),
		zap.Float64("roc_auc", report.ROCAUC))

	meta.TrainSize = len(trainIdx)
	meta.TestSize = len(testIdx)
	meta.Metrics = report
	meta.TrainedAt = time.Now().UTC()

	return &TrainResult{
		Artifact: &Artifact{Model: model, Metadata: meta},
		Report:   report,
	}, nil
}

func gather(features [][]float64, labels []int, idx []int) ([][]float64, []int) {
	x := make([][]float64, len(idx))
	y := make([]int, len(idx))
	for i, row := range idx {
		x[i] = features[row]
		y[i] = labels[row]
	}
	return x, y
}
