package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sync"
)

// RandomForest averages the positive-class probability of bagged trees.
type RandomForest struct {
	NTrees         int             `json:"n_trees"`
	MaxDepth       int             `json:"max_depth"`
	MinSamplesLeaf int             `json:"min_samples_leaf"`
	Seed           int64           `json:"seed"`
	Features       int             `json:"features"`
	Trees          []*DecisionTree `json:"trees"`
}

func NewRandomForest(nTrees, maxDepth int, seed int64) *RandomForest {
	if nTrees <= 0 {
		nTrees = 100
	}
	return &RandomForest{
		NTrees:         nTrees,
		MaxDepth:       maxDepth,
		MinSamplesLeaf: 1,
		Seed:           seed,
	}
}

// Train fits NTrees trees on bootstrap samples, each considering
// sqrt(features) candidates per split. Per-tree seeds are drawn from Seed
// up front, so the result does not depend on goroutine scheduling.
func (rf *RandomForest) Train(features [][]float64, labels []int) error {
	if err := checkTrainingSet(features, labels); err != nil {
		return err
	}
	width := len(features[0])
	maxFeatures := int(math.Sqrt(float64(width)))
	if maxFeatures < 1 {
		maxFeatures = 1
	}

	master := rand.New(rand.NewSource(rf.Seed))
	seeds := make([]int64, rf.NTrees)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	trees := make([]*DecisionTree, rf.NTrees)
	errs := make([]error, rf.NTrees)
	var wg sync.WaitGroup
	for i := 0; i < rf.NTrees; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seeds[i]))
			rows := make([]int, len(features))
			for j := range rows {
				rows[j] = rng.Intn(len(features))
			}
			tree := &DecisionTree{
				MaxDepth:       rf.MaxDepth,
				MinSamplesLeaf: rf.MinSamplesLeaf,
				MaxFeatures:    maxFeatures,
				Seed:           seeds[i],
			}
			errs[i] = tree.fit(features, labels, rows, rng)
			trees[i] = tree
		}(i)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("train forest: %w", err)
	}
	rf.Trees = trees
	rf.Features = width
	return nil
}

// PredictProba sums tree probabilities in tree order so the result is
// bit-for-bit reproducible.
func (rf *RandomForest) PredictProba(features []float64) (float64, error) {
	if len(rf.Trees) == 0 {
		return 0, ErrModelNotTrained
	}
	sum := 0.0
	for i, tree := range rf.Trees {
		p, err := tree.PredictProba(features)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", i, err)
		}
		sum += p
	}
	return sum / float64(len(rf.Trees)), nil
}

func (rf *RandomForest) NumFeatures() int {
	return rf.Features
}

func (rf *RandomForest) Save(path string) error {
	if len(rf.Trees) == 0 {
		return ErrModelNotTrained
	}
	payload, err := json.Marshal(rf)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

func (rf *RandomForest) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var loaded RandomForest
	if err := json.Unmarshal(payload, &loaded); err != nil {
		return err
	}
	if len(loaded.Trees) == 0 {
		return ErrModelNotTrained
	}
	for i, tree := range loaded.Trees {
		if tree == nil {
			return fmt.Errorf("tree %d is missing", i)
		}
		if err := tree.validate(); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
		if tree.Features != loaded.Features {
			return fmt.Errorf("tree %d: expects %d features, forest has %d", i, tree.Features, loaded.Features)
		}
	}
	*rf = loaded
	return nil
}
