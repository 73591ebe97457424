package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Metadata is everything the predictor needs besides the model itself to
// rebuild feature vectors exactly as they were built for training.
type Metadata struct {
	ModelType     string              `json:"model_type"`
	Features      []string            `json:"features"`
	LabelEncoders map[string][]string `json:"label_encoders"`
	Threshold     float64             `json:"threshold"`
	Seed          int64               `json:"seed"`
	Dataset       string              `json:"dataset,omitempty"`
	TrainSize     int                 `json:"train_size"`
	TestSize      int                 `json:"test_size"`
	Metrics       *EvaluationReport   `json:"metrics,omitempty"`
	TrainedAt     time.Time           `json:"trained_at"`
}

func (m *Metadata) Validate() error {
	if len(m.Features) == 0 {
		return errors.New("metadata has no features")
	}
	if m.Threshold <= 0 || m.Threshold >= 1 {
		return fmt.Errorf("threshold %v must be in (0, 1)", m.Threshold)
	}
	seen := make(map[string]struct{}, len(m.Features))
	for _, name := range m.Features {
		if name == "" {
			return errors.New("empty feature name")
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("duplicate feature %q", name)
		}
		seen[name] = struct{}{}
	}
	for column, classes := range m.LabelEncoders {
		enc := LabelEncoder{Classes: classes}
		if err := enc.Validate(); err != nil {
			return fmt.Errorf("label encoder %s: %w", column, err)
		}
		if _, ok := seen[EncodedName(column)]; !ok {
			return fmt.Errorf("label encoder %s has no feature %s", column, EncodedName(column))
		}
	}
	return nil
}

func (m *Metadata) Encoder(column string) (*LabelEncoder, bool) {
	classes, ok := m.LabelEncoders[column]
	if !ok {
		return nil, false
	}
	return &LabelEncoder{Classes: classes}, true
}

// Encode builds the feature vector in metadata order by looking each
// feature up by name.
func (m *Metadata) Encode(s Sample, policy CategoryPolicy) ([]float64, error) {
	vector := make([]float64, len(m.Features))
	for i, feature := range m.Features {
		column, encoded := sourceColumn(feature, m.LabelEncoders)
		if !encoded {
			v, ok := s.Numeric[column]
			if !ok {
				return nil, &ValidationError{Field: column, Reason: "field is required"}
			}
			vector[i] = v
			continue
		}
		raw, ok := s.Categorical[column]
		if !ok {
			return nil, &ValidationError{Field: column, Reason: "field is required"}
		}
		enc, _ := m.Encoder(column)
		idx, err := enc.Encode(raw, policy)
		if err != nil {
			return nil, &ValidationError{Field: column, Reason: err.Error(), Err: err}
		}
		vector[i] = float64(idx)
	}
	return vector, nil
}

// InputColumns lists the request fields the metadata requires, in feature
// order.
func (m *Metadata) InputColumns() []string {
	columns := make([]string, len(m.Features))
	for i, feature := range m.Features {
		columns[i], _ = sourceColumn(feature, m.LabelEncoders)
	}
	return columns
}

// SampleFromJSON converts a decoded request object into a Sample. Numeric
// fields accept JSON numbers or numeric strings; encoded fields must be
// strings. Fields not named by the metadata are ignored.
func (m *Metadata) SampleFromJSON(fields map[string]json.RawMessage) (Sample, error) {
	s := NewSample()
	for _, feature := range m.Features {
		column, encoded := sourceColumn(feature, m.LabelEncoders)
		raw, ok := fields[column]
		if !ok || isNull(raw) {
			return Sample{}, &ValidationError{Field: column, Reason: "field is required"}
		}
		if encoded {
			var v string
			if err := json.Unmarshal(raw, &v); err != nil {
				return Sample{}, &ValidationError{Field: column, Reason: "must be a string", Err: err}
			}
			s.Categorical[column] = v
			continue
		}
		v, err := parseNumber(raw)
		if err != nil {
			return Sample{}, &ValidationError{Field: column, Reason: "must be a number", Err: err}
		}
		s.Numeric[column] = v
	}
	return s, nil
}

func parseNumber(raw json.RawMessage) (float64, error) {
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return 0, err
		}
		if v, err = strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
			return 0, err
		}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%v is not finite", v)
	}
	return v, nil
}

func isNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}
