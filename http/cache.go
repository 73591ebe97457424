package http

import (
	"math"
	"strconv"
	"strings"

	"anemiacbc/ml"

	lru "github.com/hashicorp/golang-lru/v2"
)

// predictionCache memoizes predictions by encoded feature vector. The model
// is immutable and deterministic, so a hit is identical to recomputing.
type predictionCache struct {
	entries *lru.Cache[string, ml.Prediction]
}

// newPredictionCache returns nil when size <= 0; a nil cache never hits.
func newPredictionCache(size int) (*predictionCache, error) {
	if size <= 0 {
		return nil, nil
	}
	entries, err := lru.New[string, ml.Prediction](size)
	if err != nil {
		return nil, err
	}
	return &predictionCache{entries: entries}, nil
}

func (c *predictionCache) Get(x []float64) (ml.Prediction, bool) {
	if c == nil {
		return ml.Prediction{}, false
	}
	p, ok := c.entries.Get(vectorKey(x))
	if ok {
		cacheLookups.WithLabelValues("hit").Inc()
	} else {
		cacheLookups.WithLabelValues("miss").Inc()
	}
	return p, ok
}

func (c *predictionCache) Add(x []float64, p ml.Prediction) {
	if c == nil {
		return
	}
	c.entries.Add(vectorKey(x), p)
}

func (c *predictionCache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}

// vectorKey uses the raw float bits so distinct vectors never collide.
func vectorKey(x []float64) string {
	var b strings.Builder
	for i, v := range x {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(math.Float64bits(v), 16))
	}
	return b.String()
}
