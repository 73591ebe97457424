package ml

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// QualityRule inspects one training row. Rules only report; the dataset is
// never modified, so the served encoding always matches what was trained.
type QualityRule interface {
	Check(row int, s Sample, label int) *QualityIssue
	Name() string
}

// QualityIssue is one finding on one row. Row is 1-based over data rows.
type QualityIssue struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"` // low, high
	Row      int    `json:"row"`
	Message  string `json:"message"`
}

// QualityReport summarizes a dataset check.
type QualityReport struct {
	Rows   int            `json:"rows"`
	Issues []QualityIssue `json:"issues"`
	Counts map[string]int `json:"counts"`
}

func (r *QualityReport) Clean() bool {
	return len(r.Issues) == 0
}

// Summary lists rule counts in name order, e.g. "duplicate=2 range=1".
func (r *QualityReport) Summary() string {
	names := make([]string, 0, len(r.Counts))
	for name := range r.Counts {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%d", name, r.Counts[name])
	}
	return strings.Join(parts, " ")
}

// RangeRule flags values outside a plausible physiological range.
type RangeRule struct {
	Column   string
	Min, Max float64
}

func (r RangeRule) Name() string { return "range" }

func (r RangeRule) Check(row int, s Sample, _ int) *QualityIssue {
	v, ok := s.Numeric[r.Column]
	if !ok || (v >= r.Min && v <= r.Max) {
		return nil
	}
	return &QualityIssue{
		Rule:     r.Name(),
		Severity: "low",
		Row:      row,
		Message:  fmt.Sprintf("%s=%g outside [%g, %g]", r.Column, v, r.Min, r.Max),
	}
}

// DuplicateRule flags rows whose inputs repeat an earlier row. A repeat
// with a different label is a conflict and reported as high severity.
type DuplicateRule struct {
	seen map[string]seenRow
}

type seenRow struct {
	row   int
	label int
}

func NewDuplicateRule() *DuplicateRule {
	return &DuplicateRule{seen: make(map[string]seenRow)}
}

func (r *DuplicateRule) Name() string { return "duplicate" }

func (r *DuplicateRule) Check(row int, s Sample, label int) *QualityIssue {
	key := sampleKey(s)
	first, ok := r.seen[key]
	if !ok {
		r.seen[key] = seenRow{row: row, label: label}
		return nil
	}
	if first.label != label {
		return &QualityIssue{
			Rule:     r.Name(),
			Severity: "high",
			Row:      row,
			Message:  fmt.Sprintf("same inputs as row %d with a different label", first.row),
		}
	}
	return &QualityIssue{
		Rule:     r.Name(),
		Severity: "low",
		Row:      row,
		Message:  fmt.Sprintf("duplicate of row %d", first.row),
	}
}

func sampleKey(s Sample) string {
	var b strings.Builder
	for _, column := range NumericColumns {
		b.WriteString(strconv.FormatUint(math.Float64bits(s.Numeric[column]), 16))
		b.WriteByte('|')
	}
	for _, column := range CategoricalColumns {
		b.WriteString(s.Categorical[column])
		b.WriteByte('|')
	}
	return b.String()
}

// DefaultQualityRules returns range checks for every CBC column and a
// duplicate check. Ranges are wide on purpose; they catch unit mistakes,
// not clinical abnormalities.
func DefaultQualityRules() []QualityRule {
	return []QualityRule{
		RangeRule{Column: "Age", Min: 0, Max: 120},
		RangeRule{Column: "Hemoglobin", Min: 1, Max: 25},
		RangeRule{Column: "Hematocrit", Min: 5, Max: 75},
		RangeRule{Column: "RBC", Min: 0.5, Max: 10},
		RangeRule{Column: "MCV", Min: 40, Max: 150},
		RangeRule{Column: "MCH", Min: 10, Max: 50},
		RangeRule{Column: "MCHC", Min: 20, Max: 45},
		RangeRule{Column: "WBC", Min: 0.1, Max: 200},
		RangeRule{Column: "Platelets", Min: 1, Max: 2e6},
		NewDuplicateRule(),
	}
}

// CheckQuality runs rules over every row of ds.
func CheckQuality(ds *Dataset, rules []QualityRule) *QualityReport {
	report := &QualityReport{
		Rows:   ds.Len(),
		Issues: make([]QualityIssue, 0),
		Counts: make(map[string]int),
	}
	for i, s := range ds.Samples {
		for _, rule := range rules {
			if issue := rule.Check(i+1, s, ds.Labels[i]); issue != nil {
				report.Issues = append(report.Issues, *issue)
				report.Counts[rule.Name()]++
			}
		}
	}
	return report
}
