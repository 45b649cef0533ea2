package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tom-ml/tom/internal/tensor"
)

// CSVOptions configures ReadCSV.
type CSVOptions struct {
	LabelColumn int  // zero-based column holding the class (negative counts from the end)
	Header      bool // skip the first record
	Comma       rune // field delimiter (default: ',')
}

// ReadCSV reads a table with one sample per record. Every column except the
// label column must be numeric.
//
// Integer labels are used as class indices directly. Any other label text is
// treated as a class name; names are numbered in order of first appearance
// and returned in Classes.
func ReadCSV(r io.Reader, opts CSVOptions) (*Dataset, error) {
	reader := csv.NewReader(r)
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if opts.Header && len(records) > 0 {
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: CSV file has no records", ErrFormat)
	}

	width := len(records[0])
	if width < 2 {
		return nil, fmt.Errorf("%w: need at least one feature and a label, got %d columns", ErrFormat, width)
	}
	label := opts.LabelColumn
	if label < 0 {
		label += width
	}
	if label < 0 || label >= width {
		return nil, fmt.Errorf("%w: label column %d outside %d columns", ErrFormat, opts.LabelColumn, width)
	}

	x, err := tensor.New(len(records), width-1)
	if err != nil {
		return nil, err
	}
	labels := make([]int, len(records))
	raw := make([]string, len(records))
	numeric := true

	for i, record := range records {
		row := x.Row(i)
		j := 0
		for c, field := range record {
			if c == label {
				raw[i] = strings.TrimSpace(field)
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				x.Release()
				return nil, fmt.Errorf("%w: record %d column %d: %w", ErrFormat, i+1, c, err)
			}
			row[j] = v
			j++
		}
		if numeric {
			n, err := strconv.Atoi(raw[i])
			if err != nil {
				numeric = false
			} else {
				labels[i] = n
			}
		}
	}

	var classes []string
	var count int
	if numeric {
		for i, l := range labels {
			if l < 0 {
				x.Release()
				return nil, fmt.Errorf("%w: record %d has label %d", ErrLabelRange, i+1, l)
			}
			count = max(count, l+1)
		}
	} else {
		index := make(map[string]int)
		for i, name := range raw {
			id, ok := index[name]
			if !ok {
				id = len(classes)
				index[name] = id
				classes = append(classes, name)
			}
			labels[i] = id
		}
		count = len(classes)
	}

	y, err := OneHot(labels, count)
	if err != nil {
		x.Release()
		return nil, err
	}
	return &Dataset{X: x, Y: y, Labels: labels, Classes: classes}, nil
}

// LoadCSV reads the CSV file at path.
func LoadCSV(path string, opts CSVOptions) (*Dataset, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for dataset loading
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	return ReadCSV(f, opts)
}
