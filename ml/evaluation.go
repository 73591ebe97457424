package ml

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type ClassReport struct {
	Label     int     `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// EvaluationReport holds held-out metrics of a trained model.
type EvaluationReport struct {
	Accuracy float64       `json:"accuracy"`
	ROCAUC   float64       `json:"roc_auc"`
	Classes  []ClassReport `json:"classes"`
	Support  int           `json:"support"`
}

// Evaluate scores the model on a labeled set, thresholding probabilities
// at threshold for the hard labels.
func Evaluate(model MLModel, features [][]float64, labels []int, threshold float64) (*EvaluationReport, error) {
	if len(features) == 0 || len(features) != len(labels) {
		return nil, errors.New("evaluation set is empty or mismatched")
	}
	scores := make([]float64, len(features))
	predicted := make([]int, len(features))
	for i, x := range features {
		p, err := model.PredictProba(x)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		scores[i] = p
		predicted[i] = Decide(p, threshold)
	}
	auc, err := ROCAUC(labels, scores)
	if err != nil {
		return nil, err
	}
	return &EvaluationReport{
		Accuracy: Accuracy(labels, predicted),
		ROCAUC:   auc,
		Classes:  []ClassReport{classReport(0, labels, predicted), classReport(1, labels, predicted)},
		Support:  len(labels),
	}, nil
}

func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	correct := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(yTrue))
}

// ROCAUC is the Mann-Whitney estimate of the area under the ROC curve,
// with tied scores sharing their average rank.
func ROCAUC(yTrue []int, scores []float64) (float64, error) {
	if len(yTrue) != len(scores) {
		return 0, errors.New("labels and scores size mismatch")
	}
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] < scores[order[b]] })

	ranks := make([]float64, len(scores))
	for i := 0; i < len(order); {
		j := i
		for j+1 < len(order) && scores[order[j+1]] == scores[order[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[order[k]] = avg
		}
		i = j + 1
	}

	var positives, negatives int
	rankSum := 0.0
	for i, label := range yTrue {
		if label == 1 {
			positives++
			rankSum += ranks[i]
		} else {
			negatives++
		}
	}
	if positives == 0 || negatives == 0 {
		return 0, errors.New("roc auc needs both classes in the evaluation set")
	}
	p := float64(positives)
	return (rankSum - p*(p+1)/2) / (p * float64(negatives)), nil
}

func classReport(label int, yTrue, yPred []int) ClassReport {
	var tp, predicted, actual int
	for i := range yTrue {
		if yPred[i] == label {
			predicted++
		}
		if yTrue[i] == label {
			actual++
			if yPred[i] == label {
				tp++
			}
		}
	}
	r := ClassReport{Label: label, Support: actual}
	if predicted > 0 {
		r.Precision = float64(tp) / float64(predicted)
	}
	if actual > 0 {
		r.Recall = float64(tp) / float64(actual)
	}
	if r.Precision+r.Recall > 0 {
		r.F1 = 2 * r.Precision * r.Recall / (r.Precision + r.Recall)
	}
	return r
}

// String renders the report as a fixed-width table.
func (r *EvaluationReport) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%10s %10s %10s %10s %10s\n", "", "precision", "recall", "f1-score", "support")
	for _, c := range r.Classes {
		fmt.Fprintf(&b, "%10d %10.2f %10.2f %10.2f %10d\n", c.Label, c.Precision, c.Recall, c.F1, c.Support)
	}
	fmt.Fprintf(&b, "%10s %10s %10s %10.2f %10d\n", "accuracy", "", "", r.Accuracy, r.Support)
	fmt.Fprintf(&b, "%10s %10s %10s %10.4f\n", "roc auc", "", "", r.ROCAUC)
	return b.String()
}
