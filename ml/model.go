package ml

import "errors"

var ErrModelNotTrained = errors.New("model not trained")

// MLModel is a binary classifier producing the probability of the positive
// class for one encoded feature vector.
type MLModel interface {
	Train(features [][]float64, labels []int) error
	PredictProba(features []float64) (float64, error)
	NumFeatures() int
	Save(path string) error
	Load(path string) error
}
