package db

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "anemia.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestHistoryLifecycle(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	first := &HistoryRecord{
		Input:       map[string]any{"Age": 45.0, "Sex": "F"},
		Result:      "Anemia",
		Anemia:      1,
		Probability: 0.82,
	}
	require.NoError(t, store.SaveHistory(ctx, first))
	require.NotEmpty(t, first.ID)
	require.False(t, first.Timestamp.IsZero())

	second := &HistoryRecord{Input: map[string]any{"Age": 30.0, "Sex": "M"}, Result: "No anemia", Probability: 0.1}
	require.NoError(t, store.SaveHistory(ctx, second))

	records, err := store.ListHistory(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, first.ID, records[0].ID)
	require.Equal(t, "F", records[0].Input["Sex"])
	require.Equal(t, 0.82, records[0].Probability)

	require.NoError(t, store.DeleteHistory(ctx, first.ID))
	require.ErrorIs(t, store.DeleteHistory(ctx, first.ID), ErrNotFound)

	records, err = store.ListHistory(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, second.ID, records[0].ID)
}

func TestHistoryRecordMarshalsFlat(t *testing.T) {
	rec := HistoryRecord{
		ID:          "abc",
		Input:       map[string]any{"Hemoglobin": 10.2},
		Result:      "Anemia",
		Anemia:      1,
		Probability: 0.9,
		Timestamp:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	payload, err := json.Marshal(rec)
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"abc","Hemoglobin":10.2,"result":"Anemia","anemia":1,"probability":0.9,"timestamp":"2024-01-02T03:04:05Z"}`, string(payload))
}

func TestTrainingLog(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	older := TrainingLog{ModelName: "random_forest", Accuracy: 0.9, ROCAUC: 0.95, TrainedAt: time.Now().Add(-time.Hour).UTC(), DataPoints: 100}
	newer := TrainingLog{ModelName: "random_forest", Accuracy: 0.93, ROCAUC: 0.97, TrainedAt: time.Now().UTC(), DataPoints: 120}
	require.NoError(t, store.SaveTrainingLog(ctx, older))
	require.NoError(t, store.SaveTrainingLog(ctx, newer))

	logs, err := store.LoadTrainingLog(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Equal(t, 120, logs[0].DataPoints)
	require.Equal(t, 0.97, logs[0].ROCAUC)
}
