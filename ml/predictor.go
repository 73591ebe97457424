package ml

import "fmt"

const (
	DefaultThreshold = 0.5

	MessageAnemia   = "Anemia"
	MessageNoAnemia = "No anemia"
)

type Prediction struct {
	Label       int     `json:"anemia"`
	Probability float64 `json:"probability"`
	Message     string  `json:"message"`
}

// Decide thresholds a positive-class probability into a label.
func Decide(probability, threshold float64) int {
	if probability >= threshold {
		return 1
	}
	return 0
}

func MessageFor(label int) string {
	if label == 1 {
		return MessageAnemia
	}
	return MessageNoAnemia
}

// Predictor serves predictions from a loaded artifact. It holds no mutable
// state and is safe for concurrent use.
type Predictor struct {
	artifact *Artifact
	policy   CategoryPolicy
}

func NewPredictor(artifact *Artifact, policy CategoryPolicy) (*Predictor, error) {
	if artifact == nil || artifact.Model == nil {
		return nil, ErrModelNotTrained
	}
	if err := artifact.check(); err != nil {
		return nil, err
	}
	if policy == "" {
		policy = CategoryStrict
	}
	return &Predictor{artifact: artifact, policy: policy}, nil
}

func (p *Predictor) Metadata() Metadata {
	return p.artifact.Metadata
}

func (p *Predictor) Policy() CategoryPolicy {
	return p.policy
}

// Encode builds the model input for s. Errors are *ValidationError.
func (p *Predictor) Encode(s Sample) ([]float64, error) {
	return p.artifact.Metadata.Encode(s, p.policy)
}

func (p *Predictor) Predict(s Sample) (Prediction, error) {
	x, err := p.Encode(s)
	if err != nil {
		return Prediction{}, err
	}
	return p.PredictVector(x)
}

func (p *Predictor) PredictVector(x []float64) (Prediction, error) {
	prob, err := p.artifact.Model.PredictProba(x)
	if err != nil {
		return Prediction{}, fmt.Errorf("inference: %w", err)
	}
	label := Decide(prob, p.artifact.Metadata.Threshold)
	return Prediction{Label: label, Probability: prob, Message: MessageFor(label)}, nil
}
