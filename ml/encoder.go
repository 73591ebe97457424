package ml

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// CategoryPolicy decides how values not seen during training are encoded.
type CategoryPolicy string

const (
	// CategoryStrict rejects unseen values.
	CategoryStrict CategoryPolicy = "strict"
	// CategoryLenient maps the reference class to 0 and everything else,
	// unseen values included, to 1.
	CategoryLenient CategoryPolicy = "lenient"
)

func ParseCategoryPolicy(s string) (CategoryPolicy, error) {
	switch CategoryPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", CategoryStrict:
		return CategoryStrict, nil
	case CategoryLenient:
		return CategoryLenient, nil
	default:
		return "", fmt.Errorf("unknown category policy %q", s)
	}
}

// LabelEncoder maps a category string to its index in Classes. Classes are
// sorted, so Classes[0] is the reference category.
type LabelEncoder struct {
	Classes []string `json:"classes"`
}

func FitLabelEncoder(values []string) *LabelEncoder {
	seen := make(map[string]struct{}, 2)
	classes := make([]string, 0, 2)
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		classes = append(classes, v)
	}
	sort.Strings(classes)
	return &LabelEncoder{Classes: classes}
}

func (e *LabelEncoder) Transform(value string) (int, error) {
	for i, class := range e.Classes {
		if class == value {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w %q, expected one of %s", ErrUnknownCategory, value, strings.Join(e.Classes, ", "))
}

// Indicator is the binary encoding: 0 for the reference category, 1 for
// anything else.
func (e *LabelEncoder) Indicator(value string) int {
	if len(e.Classes) > 0 && value == e.Classes[0] {
		return 0
	}
	return 1
}

func (e *LabelEncoder) Encode(value string, policy CategoryPolicy) (int, error) {
	if policy == CategoryLenient {
		return e.Indicator(value), nil
	}
	return e.Transform(value)
}

// Validate checks a binary encoder: two distinct, sorted, non-empty classes.
func (e *LabelEncoder) Validate() error {
	if len(e.Classes) != 2 {
		return fmt.Errorf("expected 2 classes, got %d", len(e.Classes))
	}
	if e.Classes[0] == "" || e.Classes[1] == "" {
		return errors.New("empty class name")
	}
	if e.Classes[0] >= e.Classes[1] {
		return fmt.Errorf("classes %q are not sorted and distinct", e.Classes)
	}
	return nil
}
