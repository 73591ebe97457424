package http

import (
	"net/http"

	"anemiacbc/ml"

	"go.uber.org/zap"
)

func (a *API) handlePredict(w http.ResponseWriter, r *http.Request) {
	prediction, _, err := a.predict(r)
	if err != nil {
		a.writePredictError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, prediction)
}

// predict decodes, validates and scores one request. Validation failures
// come back as *ml.ValidationError.
func (a *API) predict(r *http.Request) (ml.Prediction, ml.Sample, error) {
	fields, err := decodeObject(r)
	if err != nil {
		return ml.Prediction{}, ml.Sample{}, err
	}
	meta := a.predictor.Metadata()
	sample, err := meta.SampleFromJSON(fields)
	if err != nil {
		return ml.Prediction{}, ml.Sample{}, err
	}
	x, err := a.predictor.Encode(sample)
	if err != nil {
		return ml.Prediction{}, ml.Sample{}, err
	}
	if cached, ok := a.cache.Get(x); ok {
		observePrediction(cached)
		return cached, sample, nil
	}
	prediction, err := a.predictor.PredictVector(x)
	if err != nil {
		return ml.Prediction{}, ml.Sample{}, err
	}
	a.cache.Add(x, prediction)
	observePrediction(prediction)
	return prediction, sample, nil
}

func (a *API) writePredictError(w http.ResponseWriter, r *http.Request, err error) {
	if ml.IsValidationError(err) {
		predictionsTotal.WithLabelValues("invalid").Inc()
		a.logger.Debug("rejected prediction request",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	predictionsTotal.WithLabelValues("error").Inc()
	a.logger.Error("prediction failed",
		zap.String("request_id", GetRequestID(r.Context())),
		zap.Error(err))
	writeError(w, http.StatusInternalServerError, "prediction failed")
}

func observePrediction(p ml.Prediction) {
	outcome := "no_anemia"
	if p.Label == 1 {
		outcome = "anemia"
	}
	predictionsTotal.WithLabelValues(outcome).Inc()
	predictionProbability.Observe(p.Probability)
}
