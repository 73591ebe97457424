package ml

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// StratifiedSplit partitions row indices into train and test sets keeping
// each label's share the same in both. Each class contributes
// round(n*testRatio) rows to the test set, at least one and never all.
func StratifiedSplit(labels []int, testRatio float64, seed int64) (train, test []int, err error) {
	if len(labels) == 0 {
		return nil, nil, errors.New("labels is empty")
	}
	if testRatio <= 0 || testRatio >= 1 {
		return nil, nil, fmt.Errorf("test ratio %v must be in (0, 1)", testRatio)
	}

	byClass := make(map[int][]int)
	for i, label := range labels {
		byClass[label] = append(byClass[label], i)
	}
	classes := make([]int, 0, len(byClass))
	for label := range byClass {
		classes = append(classes, label)
	}
	sort.Ints(classes)

	rng := rand.New(rand.NewSource(seed))
	for _, label := range classes {
		rows := byClass[label]
		if len(rows) < 2 {
			return nil, nil, fmt.Errorf("class %d has %d rows, need at least 2 to stratify", label, len(rows))
		}
		rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		nTest := int(math.Round(float64(len(rows)) * testRatio))
		if nTest < 1 {
			nTest = 1
		}
		if nTest >= len(rows) {
			nTest = len(rows) - 1
		}
		test = append(test, rows[:nTest]...)
		train = append(train, rows[nTest:]...)
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test, nil
}
