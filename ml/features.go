package ml

import (
	"strings"
)

const (
	SexColumn   = "Sex"
	LabelColumn = "Anemia"

	encodedSuffix = "_enc"
)

// NumericColumns are the CBC measurements read from the dataset, in
// dataset order.
var NumericColumns = []string{
	"Age",
	"Hemoglobin",
	"Hematocrit",
	"RBC",
	"MCV",
	"MCH",
	"MCHC",
	"WBC",
	"Platelets",
}

// CategoricalColumns are label-encoded before training.
var CategoricalColumns = []string{SexColumn}

// Sample is one unlabeled record keyed by column name.
type Sample struct {
	Numeric     map[string]float64
	Categorical map[string]string
}

func NewSample() Sample {
	return Sample{
		Numeric:     make(map[string]float64, len(NumericColumns)),
		Categorical: make(map[string]string, len(CategoricalColumns)),
	}
}

// DefaultFeatureNames is the feature order fixed at training time.
func DefaultFeatureNames() []string {
	return []string{
		"Age",
		EncodedName(SexColumn),
		"Hemoglobin",
		"Hematocrit",
		"RBC",
		"MCV",
		"MCH",
		"MCHC",
		"WBC",
		"Platelets",
	}
}

// EncodedName is the feature name of a label-encoded column.
func EncodedName(column string) string {
	return column + encodedSuffix
}

// sourceColumn returns the input column behind a feature name and whether
// it is label-encoded.
func sourceColumn(feature string, encoders map[string][]string) (string, bool) {
	if base, ok := strings.CutSuffix(feature, encodedSuffix); ok {
		if _, ok := encoders[base]; ok {
			return base, true
		}
	}
	return feature, false
}
