package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
)

// DecisionTree is a binary CART classifier with gini impurity. Nodes are kept
// in a flat slice, root first, so the tree serializes as a plain JSON array.
type DecisionTree struct {
	MaxDepth       int        `json:"max_depth"`
	MinSamplesLeaf int        `json:"min_samples_leaf"`
	MaxFeatures    int        `json:"max_features"`
	Seed           int64      `json:"seed"`
	Features       int        `json:"features"`
	Nodes          []TreeNode `json:"nodes"`
}

type TreeNode struct {
	FeatureIdx  int     `json:"feature_idx"`
	Threshold   float64 `json:"threshold"`
	LeftChild   int     `json:"left_child"`
	RightChild  int     `json:"right_child"`
	Probability float64 `json:"probability"`
	Samples     int     `json:"samples"`
	IsLeaf      bool    `json:"is_leaf"`
}

// NewDecisionTree returns an untrained tree. maxDepth <= 0 grows the tree
// until leaves are pure.
func NewDecisionTree(maxDepth int) *DecisionTree {
	return &DecisionTree{MaxDepth: maxDepth, MinSamplesLeaf: 1}
}

func (dt *DecisionTree) Train(features [][]float64, labels []int) error {
	if err := checkTrainingSet(features, labels); err != nil {
		return err
	}
	rows := make([]int, len(features))
	for i := range rows {
		rows[i] = i
	}
	return dt.fit(features, labels, rows, rand.New(rand.NewSource(dt.Seed)))
}

// fit grows the tree over the given row indices. rows may contain
// duplicates, which is how bootstrap samples are passed in.
func (dt *DecisionTree) fit(features [][]float64, labels []int, rows []int, rng *rand.Rand) error {
	if len(rows) == 0 {
		return errors.New("no rows to fit")
	}
	if dt.MinSamplesLeaf <= 0 {
		dt.MinSamplesLeaf = 1
	}
	dt.Features = len(features[0])
	dt.Nodes = dt.buildNode(features, labels, rows, 0, rng)
	return nil
}

func (dt *DecisionTree) PredictProba(features []float64) (float64, error) {
	if len(dt.Nodes) == 0 {
		return 0, ErrModelNotTrained
	}
	if len(features) != dt.Features {
		return 0, fmt.Errorf("expected %d features, got %d", dt.Features, len(features))
	}
	idx := 0
	for {
		node := dt.Nodes[idx]
		if node.IsLeaf {
			return node.Probability, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.Nodes) {
			return 0, errors.New("invalid tree state")
		}
	}
}

func (dt *DecisionTree) NumFeatures() int {
	return dt.Features
}

func (dt *DecisionTree) Save(path string) error {
	if len(dt.Nodes) == 0 {
		return ErrModelNotTrained
	}
	payload, err := json.Marshal(dt)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

func (dt *DecisionTree) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var loaded DecisionTree
	if err := json.Unmarshal(payload, &loaded); err != nil {
		return err
	}
	if err := loaded.validate(); err != nil {
		return err
	}
	*dt = loaded
	return nil
}

func (dt *DecisionTree) validate() error {
	if len(dt.Nodes) == 0 {
		return ErrModelNotTrained
	}
	if dt.Features <= 0 {
		return errors.New("tree has no feature count")
	}
	for i, node := range dt.Nodes {
		if node.IsLeaf {
			if node.Probability < 0 || node.Probability > 1 {
				return fmt.Errorf("node %d: probability %v out of range", i, node.Probability)
			}
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= dt.Features {
			return fmt.Errorf("node %d: feature index %d out of range", i, node.FeatureIdx)
		}
		if node.LeftChild <= i || node.LeftChild >= len(dt.Nodes) || node.RightChild <= i || node.RightChild >= len(dt.Nodes) {
			return fmt.Errorf("node %d: child index out of range", i)
		}
	}
	return nil
}

func (dt *DecisionTree) buildNode(features [][]float64, labels []int, rows []int, depth int, rng *rand.Rand) []TreeNode {
	positives := countPositives(labels, rows)
	leaf := TreeNode{
		FeatureIdx:  -1,
		LeftChild:   -1,
		RightChild:  -1,
		Probability: float64(positives) / float64(len(rows)),
		Samples:     len(rows),
		IsLeaf:      true,
	}
	if (dt.MaxDepth > 0 && depth >= dt.MaxDepth) || positives == 0 || positives == len(rows) || len(rows) < 2*dt.MinSamplesLeaf {
		return []TreeNode{leaf}
	}

	bestFeature, threshold, ok := dt.findBestSplit(features, labels, rows, rng)
	if !ok {
		return []TreeNode{leaf}
	}

	leftRows, rightRows := splitRows(features, rows, bestFeature, threshold)
	if len(leftRows) == 0 || len(rightRows) == 0 {
		return []TreeNode{leaf}
	}

	leftNodes := dt.buildNode(features, labels, leftRows, depth+1, rng)
	rightNodes := dt.buildNode(features, labels, rightRows, depth+1, rng)

	root := leaf
	root.FeatureIdx = bestFeature
	root.Threshold = threshold
	root.LeftChild = 1
	root.RightChild = 1 + len(leftNodes)
	root.IsLeaf = false

	nodes := make([]TreeNode, 0, 1+len(leftNodes)+len(rightNodes))
	nodes = append(nodes, root)
	nodes = append(nodes, offsetNodes(leftNodes, 1)...)
	nodes = append(nodes, offsetNodes(rightNodes, 1+len(leftNodes))...)
	return nodes
}

// findBestSplit scans every midpoint between distinct sorted values of the
// candidate features and keeps the lowest weighted gini. Candidate features
// are a random subset of size MaxFeatures when MaxFeatures is set.
func (dt *DecisionTree) findBestSplit(features [][]float64, labels []int, rows []int, rng *rand.Rand) (int, float64, bool) {
	bestFeature := -1
	bestThreshold := 0.0
	bestImpurity := math.MaxFloat64

	total := len(rows)
	totalPositives := countPositives(labels, rows)
	sorted := make([]int, total)

	for _, featureIdx := range dt.candidateFeatures(rng) {
		copy(sorted, rows)
		sort.SliceStable(sorted, func(a, b int) bool {
			return features[sorted[a]][featureIdx] < features[sorted[b]][featureIdx]
		})

		leftPositives := 0
		for i := 0; i < total-1; i++ {
			leftPositives += labels[sorted[i]]
			current := features[sorted[i]][featureIdx]
			next := features[sorted[i+1]][featureIdx]
			if current == next {
				continue
			}
			leftCount := i + 1
			rightCount := total - leftCount
			if leftCount < dt.MinSamplesLeaf || rightCount < dt.MinSamplesLeaf {
				continue
			}
			impurity := weightedGini(leftCount, leftPositives, rightCount, totalPositives-leftPositives)
			if impurity < bestImpurity {
				bestImpurity = impurity
				bestFeature = featureIdx
				bestThreshold = current + (next-current)/2
			}
		}
	}
	if bestFeature == -1 {
		return -1, 0, false
	}
	return bestFeature, bestThreshold, true
}

func (dt *DecisionTree) candidateFeatures(rng *rand.Rand) []int {
	if dt.MaxFeatures <= 0 || dt.MaxFeatures >= dt.Features {
		all := make([]int, dt.Features)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return rng.Perm(dt.Features)[:dt.MaxFeatures]
}

func splitRows(features [][]float64, rows []int, featureIdx int, threshold float64) ([]int, []int) {
	leftRows := make([]int, 0, len(rows))
	rightRows := make([]int, 0, len(rows))
	for _, row := range rows {
		if features[row][featureIdx] <= threshold {
			leftRows = append(leftRows, row)
		} else {
			rightRows = append(rightRows, row)
		}
	}
	return leftRows, rightRows
}

// offsetNodes shifts child indices of a subtree that is being appended at
// position offset of the parent's node slice.
func offsetNodes(nodes []TreeNode, offset int) []TreeNode {
	for i := range nodes {
		if nodes[i].IsLeaf {
			continue
		}
		nodes[i].LeftChild += offset
		nodes[i].RightChild += offset
	}
	return nodes
}

func weightedGini(leftCount, leftPositives, rightCount, rightPositives int) float64 {
	total := float64(leftCount + rightCount)
	return (float64(leftCount)/total)*gini(leftCount, leftPositives) +
		(float64(rightCount)/total)*gini(rightCount, rightPositives)
}

func gini(count, positives int) float64 {
	if count == 0 {
		return 0
	}
	p := float64(positives) / float64(count)
	return 1 - p*p - (1-p)*(1-p)
}

func countPositives(labels []int, rows []int) int {
	positives := 0
	for _, row := range rows {
		positives += labels[row]
	}
	return positives
}

func checkTrainingSet(features [][]float64, labels []int) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	width := len(features[0])
	if width == 0 {
		return errors.New("feature vectors are empty")
	}
	for i, row := range features {
		if len(row) != width {
			return fmt.Errorf("row %d: expected %d features, got %d", i, width, len(row))
		}
		if labels[i] != 0 && labels[i] != 1 {
			return fmt.Errorf("row %d: label %d is not binary", i, labels[i])
		}
	}
	return nil
}
