package ml

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStratifiedSplitPreservesBalance(t *testing.T) {
	labels := make([]int, 100)
	for i := 0; i < 30; i++ {
		labels[i] = 1
	}

	train, test, err := StratifiedSplit(labels, 0.2, 42)
	require.NoError(t, err)
	require.Len(t, train, 80)
	require.Len(t, test, 20)

	count := func(idx []int) int {
		n := 0
		for _, i := range idx {
			n += labels[i]
		}
		return n
	}
	require.Equal(t, 24, count(train))
	require.Equal(t, 6, count(test))

	seen := make(map[int]bool, len(labels))
	for _, i := range append(append([]int{}, train...), test...) {
		require.False(t, seen[i], "row %d assigned twice", i)
		seen[i] = true
	}
	require.Len(t, seen, len(labels))
}

func TestStratifiedSplitDeterministic(t *testing.T) {
	labels := []int{0, 1, 0, 1, 0, 1, 0, 0, 1, 0, 0, 1}
	trainA, testA, err := StratifiedSplit(labels, 0.25, 7)
	require.NoError(t, err)
	trainB, testB, err := StratifiedSplit(labels, 0.25, 7)
	require.NoError(t, err)
	require.Equal(t, trainA, trainB)
	require.Equal(t, testA, testB)
}

func TestStratifiedSplitErrors(t *testing.T) {
	_, _, err := StratifiedSplit(nil, 0.2, 1)
	require.Error(t, err)
	_, _, err = StratifiedSplit([]int{0, 0, 1, 1}, 1, 1)
	require.Error(t, err)
	_, _, err = StratifiedSplit([]int{0, 0, 0, 1}, 0.2, 1)
	require.Error(t, err)
}
