package http

import (
	"errors"
	"net/http"

	"anemiacbc/db"
	"anemiacbc/ml"
	"anemiacbc/monitoring"

	"go.uber.org/zap"
)

func (a *API) handleCheckAnemia(w http.ResponseWriter, r *http.Request) {
	prediction, sample, err := a.predict(r)
	if err != nil {
		a.writePredictError(w, r, err)
		return
	}

	rec := &db.HistoryRecord{
		Input:       sampleInput(sample),
		Result:      prediction.Message,
		Anemia:      prediction.Label,
		Probability: prediction.Probability,
	}
	if err := a.history.SaveHistory(r.Context(), rec); err != nil {
		a.logger.Error("save history failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save history")
		return
	}
	if a.hub != nil {
		if err := a.hub.Publish(monitoring.HistoryCreated, rec); err != nil {
			a.logger.Warn("publish history failed", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) handleListHistory(w http.ResponseWriter, r *http.Request) {
	records, err := a.history.ListHistory(r.Context())
	if err != nil {
		a.logger.Error("list history failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (a *API) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	if err := a.history.DeleteHistory(r.Context(), id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "history record not found")
			return
		}
		a.logger.Error("delete history failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete history")
		return
	}
	if a.hub != nil {
		if err := a.hub.Publish(monitoring.HistoryDeleted, map[string]string{"id": id}); err != nil {
			a.logger.Warn("publish history failed", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Deleted"})
}

func sampleInput(s ml.Sample) map[string]any {
	input := make(map[string]any, len(s.Numeric)+len(s.Categorical))
	for k, v := range s.Numeric {
		input[k] = v
	}
	for k, v := range s.Categorical {
		input[k] = v
	}
	return input
}
