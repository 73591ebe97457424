package ml

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Dataset is a fully parsed labeled CSV.
type Dataset struct {
	Samples []Sample
	Labels  []int
}

func (d *Dataset) Len() int {
	return len(d.Labels)
}

// Column returns the values of a categorical column in row order.
func (d *Dataset) Column(name string) []string {
	values := make([]string, len(d.Samples))
	for i, s := range d.Samples {
		values[i] = s.Categorical[name]
	}
	return values
}

func LoadDataset(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	ds, err := ReadDataset(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// ReadDataset parses a CSV with a header row. Columns are located by name,
// extra columns are ignored, and a leading UTF-8 BOM is dropped. The first
// malformed row aborts parsing.
func ReadDataset(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("dataset is empty")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	required := append(append(append([]string{}, NumericColumns...), CategoricalColumns...), LabelColumn)
	for _, name := range required {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("header: missing column %q", name)
		}
	}

	ds := &Dataset{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := reader.FieldPos(0)
		sample, label, err := parseRow(record, index)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ds.Samples = append(ds.Samples, sample)
		ds.Labels = append(ds.Labels, label)
	}
	if ds.Len() == 0 {
		return nil, errors.New("dataset has no rows")
	}
	return ds, nil
}

func parseRow(record []string, index map[string]int) (Sample, int, error) {
	s := NewSample()
	for _, name := range NumericColumns {
		raw := strings.TrimSpace(record[index[name]])
		if raw == "" {
			return Sample{}, 0, fmt.Errorf("column %q: missing value", name)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Sample{}, 0, fmt.Errorf("column %q: %q is not a number", name, raw)
		}
		s.Numeric[name] = v
	}
	for _, name := range CategoricalColumns {
		raw := strings.TrimSpace(record[index[name]])
		if raw == "" {
			return Sample{}, 0, fmt.Errorf("column %q: missing value", name)
		}
		s.Categorical[name] = raw
	}
	raw := strings.TrimSpace(record[index[LabelColumn]])
	label, err := strconv.ParseFloat(raw, 64)
	if err != nil || (label != 0 && label != 1) {
		return Sample{}, 0, fmt.Errorf("column %q: %q is not 0 or 1", LabelColumn, raw)
	}
	return s, int(label), nil
}
