package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"anemiacbc/db"
	"anemiacbc/ml"
	"anemiacbc/monitoring"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// HistoryStore persists served predictions.
type HistoryStore interface {
	SaveHistory(ctx context.Context, rec *db.HistoryRecord) error
	ListHistory(ctx context.Context) ([]db.HistoryRecord, error)
	DeleteHistory(ctx context.Context, id string) error
}

// API holds the handler dependencies. Everything it references is either
// immutable or safe for concurrent use.
type API struct {
	predictor *ml.Predictor
	cache     *predictionCache
	history   HistoryStore
	hub       *monitoring.Hub
	logger    *zap.Logger
}

func RegisterHandlers(mux *http.ServeMux, api *API) {
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/model", api.handleModel)
	mux.HandleFunc("POST /predict", api.handlePredict)
	mux.Handle("GET /metrics", promhttp.Handler())

	if api.history != nil {
		mux.HandleFunc("POST /api/check-anemia", api.handleCheckAnemia)
		mux.HandleFunc("GET /api/history", api.handleListHistory)
		mux.HandleFunc("DELETE /api/history/{id}", api.handleDeleteHistory)
	}
	if api.hub != nil {
		mux.HandleFunc("GET /api/ws/history", api.hub.ServeWS)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleModel(w http.ResponseWriter, r *http.Request) {
	meta := a.predictor.Metadata()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"model_type":      meta.ModelType,
		"features":        meta.Features,
		"input_fields":    meta.InputColumns(),
		"label_encoders":  meta.LabelEncoders,
		"threshold":       meta.Threshold,
		"category_policy": a.predictor.Policy(),
		"metrics":         meta.Metrics,
		"trained_at":      meta.TrainedAt,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// decodeObject reads a JSON object body into raw fields.
func decodeObject(r *http.Request) (map[string]json.RawMessage, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &ml.ValidationError{Reason: "request body too large", Err: err}
		}
		return nil, &ml.ValidationError{Reason: "could not read request body", Err: err}
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return nil, &ml.ValidationError{Reason: "request body must be a JSON object", Err: err}
	}
	return fields, nil
}
