package http

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"anemiacbc/ml"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const scenarioBody = `{"Age":45,"Sex":"F","Hemoglobin":10.2,"Hematocrit":32,"RBC":4.1,"MCV":88,"MCH":29,"MCHC":33,"WBC":6.5,"Platelets":250000}`

var (
	artifactOnce sync.Once
	artifact     *ml.Artifact
	artifactErr  error
)

func testArtifact(t *testing.T) *ml.Artifact {
	t.Helper()
	artifactOnce.Do(func() {
		rng := rand.New(rand.NewSource(3))
		var b strings.Builder
		b.WriteString("Age,Sex,Hemoglobin,Hematocrit,RBC,MCV,MCH,MCHC,WBC,Platelets,Anemia\n")
		for i := 0; i < 120; i++ {
			sex, cutoff := "F", 12.0
			if i%2 == 0 {
				sex, cutoff = "M", 13.0
			}
			hb := 8 + rng.Float64()*9
			anemia := 0
			if hb < cutoff {
				anemia = 1
			}
			fmt.Fprintf(&b, "%d,%s,%.1f,%.1f,4.5,88,29,33,6.5,%d,%d\n", 20+i%50, sex, hb, hb*3, 200000+rng.Intn(100000), anemia)
		}
		ds, err := ml.ReadDataset(strings.NewReader(b.String()))
		if err != nil {
			artifactErr = err
			return
		}
		cfg := ml.DefaultTrainConfig()
		cfg.NTrees = 15
		result, err := ml.Train(ds, cfg, nil)
		if err != nil {
			artifactErr = err
			return
		}
		artifact = result.Artifact
	})
	require.NoError(t, artifactErr)
	return artifact
}

func newTestHandler(t *testing.T, policy ml.CategoryPolicy, deps Deps) http.Handler {
	t.Helper()
	predictor, err := ml.NewPredictor(testArtifact(t), policy)
	require.NoError(t, err)
	deps.Predictor = predictor
	handler, err := NewHandler(DefaultServerConfig(), deps)
	require.NoError(t, err)
	return handler
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandlePredict(t *testing.T) {
	h := newTestHandler(t, ml.CategoryStrict, Deps{})

	w := post(t, h, "/predict", scenarioBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var payload struct {
		Anemia      int     `json:"anemia"`
		Probability float64 `json:"probability"`
		Message     string  `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.GreaterOrEqual(t, payload.Probability, 0.0)
	require.LessOrEqual(t, payload.Probability, 1.0)
	require.Equal(t, ml.Decide(payload.Probability, 0.5), payload.Anemia)
	require.Equal(t, ml.MessageFor(payload.Anemia), payload.Message)

	predictor, err := ml.NewPredictor(testArtifact(t), ml.CategoryStrict)
	require.NoError(t, err)
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(scenarioBody), &fields))
	meta := predictor.Metadata()
	sample, err := meta.SampleFromJSON(fields)
	require.NoError(t, err)
	direct, err := predictor.Predict(sample)
	require.NoError(t, err)
	require.Equal(t, direct.Probability, payload.Probability)
	require.Equal(t, direct.Label, payload.Anemia)
}

func TestHandlePredictFieldOrderIrrelevant(t *testing.T) {
	h := newTestHandler(t, ml.CategoryStrict, Deps{})
	reordered := `{"Platelets":250000,"WBC":6.5,"MCHC":33,"MCH":29,"MCV":88,"RBC":4.1,"Hematocrit":32,"Hemoglobin":10.2,"Sex":"F","Age":45}`

	a := post(t, h, "/predict", scenarioBody)
	b := post(t, newTestHandler(t, ml.CategoryStrict, Deps{}), "/predict", reordered)
	require.Equal(t, http.StatusOK, a.Code)
	require.Equal(t, a.Body.String(), b.Body.String())
}

func TestHandlePredictMissingField(t *testing.T) {
	h := newTestHandler(t, ml.CategoryStrict, Deps{})
	before := post(t, h, "/predict", scenarioBody)

	missing := `{"Age":45,"Sex":"F","Hematocrit":32,"RBC":4.1,"MCV":88,"MCH":29,"MCHC":33,"WBC":6.5,"Platelets":250000}`
	w := post(t, h, "/predict", missing)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var payload map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Contains(t, payload["error"], "Hemoglobin")

	after := post(t, h, "/predict", scenarioBody)
	require.Equal(t, before.Body.String(), after.Body.String())
}

func TestHandlePredictBadBodies(t *testing.T) {
	h := newTestHandler(t, ml.CategoryStrict, Deps{})
	for _, body := range []string{"", "[]", "null", `"text"`, "{bad json"} {
		w := post(t, h, "/predict", body)
		require.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
	}
}

func TestHandlePredictCategoryPolicy(t *testing.T) {
	body := strings.Replace(scenarioBody, `"Sex":"F"`, `"Sex":"X"`, 1)

	strict := post(t, newTestHandler(t, ml.CategoryStrict, Deps{}), "/predict", body)
	require.Equal(t, http.StatusBadRequest, strict.Code)
	require.Contains(t, strict.Body.String(), "Sex")

	lenient := post(t, newTestHandler(t, ml.CategoryLenient, Deps{}), "/predict", body)
	require.Equal(t, http.StatusOK, lenient.Code)

	male := post(t, newTestHandler(t, ml.CategoryStrict, Deps{}), "/predict", strings.Replace(scenarioBody, `"Sex":"F"`, `"Sex":"M"`, 1))
	require.Equal(t, male.Body.String(), lenient.Body.String())
}

func TestHandlePredictCacheReturnsSameResult(t *testing.T) {
	predictor, err := ml.NewPredictor(testArtifact(t), ml.CategoryStrict)
	require.NoError(t, err)
	cache, err := newPredictionCache(8)
	require.NoError(t, err)
	api := &API{predictor: predictor, cache: cache, logger: zap.NewNop()}
	mux := http.NewServeMux()
	RegisterHandlers(mux, api)

	first := post(t, mux, "/predict", scenarioBody)
	second := post(t, mux, "/predict", scenarioBody)
	require.Equal(t, http.StatusOK, second.Code)
	require.Equal(t, first.Body.String(), second.Body.String())
	require.Equal(t, 1, cache.Len())
}

func TestPreflightAllowsAnyOrigin(t *testing.T) {
	h := newTestHandler(t, ml.CategoryStrict, Deps{})
	req := httptest.NewRequest(http.MethodOptions, "/predict", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = post(t, h, "/predict", scenarioBody)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
