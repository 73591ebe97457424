package ml

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func smallConfig() TrainConfig {
	cfg := DefaultTrainConfig()
	cfg.NTrees = 25
	return cfg
}

func TestTrainProducesValidArtifact(t *testing.T) {
	ds := synthDataset(t, 200)
	result, err := Train(ds, smallConfig(), zap.NewNop())
	require.NoError(t, err)

	meta := result.Artifact.Metadata
	require.Equal(t, DefaultFeatureNames(), meta.Features)
	require.Equal(t, map[string][]string{"Sex": {"F", "M"}}, meta.LabelEncoders)
	require.Equal(t, 200, meta.TrainSize+meta.TestSize)
	require.InDelta(t, 40, meta.TestSize, 1)
	require.Equal(t, int64(42), meta.Seed)
	require.NotNil(t, meta.Metrics)
	require.Greater(t, result.Report.Accuracy, 0.8)
	require.Greater(t, result.Report.ROCAUC, 0.8)
}

func TestTrainIsReproducible(t *testing.T) {
	ds := synthDataset(t, 150)
	a, err := Train(ds, smallConfig(), nil)
	require.NoError(t, err)
	b, err := Train(ds, smallConfig(), nil)
	require.NoError(t, err)

	pa, err := mustPredictor(t, a.Artifact).Predict(scenarioSample())
	require.NoError(t, err)
	pb, err := mustPredictor(t, b.Artifact).Predict(scenarioSample())
	require.NoError(t, err)
	require.Equal(t, pa, pb)
	require.Equal(t, a.Report, b.Report)
}

func TestArtifactRoundTripIsBitIdentical(t *testing.T) {
	ds := synthDataset(t, 150)
	result, err := Train(ds, smallConfig(), nil)
	require.NoError(t, err)

	before, err := mustPredictor(t, result.Artifact).Predict(scenarioSample())
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, result.Artifact.Save(dir))
	loaded, err := LoadArtifact(dir)
	require.NoError(t, err)

	after, err := mustPredictor(t, loaded).Predict(scenarioSample())
	require.NoError(t, err)
	require.Equal(t, before, after)
	require.Equal(t, result.Artifact.Metadata.Features, loaded.Metadata.Features)
	require.Equal(t, result.Artifact.Metadata.LabelEncoders, loaded.Metadata.LabelEncoders)
}

func TestTrainRejectsSingleCategory(t *testing.T) {
	ds := synthDataset(t, 40)
	for i := range ds.Samples {
		ds.Samples[i].Categorical["Sex"] = "F"
	}
	_, err := Train(ds, smallConfig(), nil)
	require.Error(t, err)
}

func TestLoadArtifactErrors(t *testing.T) {
	_, err := LoadArtifact(t.TempDir())
	require.Error(t, err)

	ds := synthDataset(t, 60)
	result, err := Train(ds, smallConfig(), nil)
	require.NoError(t, err)

	corrupt := t.TempDir()
	require.NoError(t, result.Artifact.Save(corrupt))
	require.NoError(t, os.WriteFile(ModelPath(corrupt), []byte("{not json"), 0o644))
	_, err = LoadArtifact(corrupt)
	require.Error(t, err)

	mismatch := t.TempDir()
	require.NoError(t, result.Artifact.Save(mismatch))
	bad := result.Artifact.Metadata
	bad.Features = bad.Features[:len(bad.Features)-1]
	require.NoError(t, (&Artifact{Model: &fixedModel{}, Metadata: bad}).writeMetadata(mismatch))
	_, err = LoadArtifact(mismatch)
	require.Error(t, err)
}

func mustPredictor(t *testing.T, a *Artifact) *Predictor {
	t.Helper()
	p, err := NewPredictor(a, CategoryStrict)
	require.NoError(t, err)
	return p
}
