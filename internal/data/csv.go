package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

type CSVOpts struct {
	Class         string
	StringColumns []string
	Missing       string
	// Header, when set, fixes the attributes: columns are matched to it by
	// name, nominal cells must name one of its values, and Class and
	// StringColumns are taken from it.
	Header *Dataset
}

// LoadCSVFile opens path and parses it with LoadCSV.
func LoadCSVFile(path string, opts *CSVOpts) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset %s: %w", path, err)
	}
	defer f.Close()
	d, err := LoadCSV(f, opts)
	if err != nil {
		return nil, fmt.Errorf("loading dataset %s: %w", path, err)
	}
	return d, nil
}

// LoadCSV reads a header row followed by records. Columns whose present
// cells all parse as numbers become numeric, listed string columns become
// string attributes, and everything else is nominal with labels in order
// of first appearance.
func LoadCSV(r io.Reader, opts *CSVOpts) (*Dataset, error) {
	if opts == nil {
		opts = &CSVOpts{}
	}
	missing := opts.Missing
	if missing == "" {
		missing = "?"
	}

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv has no header row")
	}
	header, body := records[0], records[1:]

	isMissing := func(s string) bool {
		s = strings.TrimSpace(s)
		return s == "" || s == missing
	}
	if opts.Header != nil {
		return loadWithHeader(header, body, opts.Header, isMissing)
	}

	stringCols := make(map[string]bool, len(opts.StringColumns))
	for _, c := range opts.StringColumns {
		stringCols[c] = true
	}

	attrs := make([]Attribute, len(header))
	for col, name := range header {
		name = strings.TrimSpace(name)
		switch {
		case stringCols[name]:
			attrs[col] = StringAttribute(name)
		case numericColumn(body, col, isMissing):
			attrs[col] = NumericAttribute(name)
		default:
			attrs[col] = NominalAttribute(name)
			for _, rec := range body {
				if v := rec[col]; !isMissing(v) {
					attrs[col].AddValue(strings.TrimSpace(v))
				}
			}
		}
	}

	d := New("", attrs)
	for _, rec := range body {
		row := make(Row, len(rec))
		for col, cell := range rec {
			cell = strings.TrimSpace(cell)
			a := &d.Attributes[col]
			switch {
			case isMissing(cell):
				row[col] = Missing
			case a.Kind == Numeric:
				v, _ := strconv.ParseFloat(cell, 64)
				row[col] = v
			default:
				row[col] = float64(a.AddValue(cell))
			}
		}
		d.Rows = append(d.Rows, row)
	}

	if opts.Class != "" {
		if err := d.SetClass(opts.Class); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func loadWithHeader(names []string, body [][]string, tmpl *Dataset, isMissing func(string) bool) (*Dataset, error) {
	cols := make([]int, len(tmpl.Attributes))
	for i, a := range tmpl.Attributes {
		cols[i] = -1
		for col, name := range names {
			if strings.TrimSpace(name) == a.Name {
				cols[i] = col
				break
			}
		}
		if cols[i] < 0 {
			return nil, fmt.Errorf("csv has no column %q", a.Name)
		}
	}
	if len(names) != len(cols) {
		return nil, fmt.Errorf("csv has %d columns, expected %d", len(names), len(cols))
	}

	d := tmpl.Header()
	for n, rec := range body {
		row := make(Row, len(cols))
		for i, col := range cols {
			cell := strings.TrimSpace(rec[col])
			a := &d.Attributes[i]
			switch {
			case isMissing(cell):
				row[i] = Missing
			case a.Kind == Numeric:
				v, err := strconv.ParseFloat(cell, 64)
				if err != nil {
					return nil, fmt.Errorf("row %d: attribute %s: %q is not a number", n+1, a.Name, cell)
				}
				row[i] = v
			case a.Kind == Nominal:
				idx := a.IndexOf(cell)
				if idx < 0 {
					return nil, fmt.Errorf("row %d: attribute %s: unknown value %q", n+1, a.Name, cell)
				}
				row[i] = float64(idx)
			default:
				row[i] = float64(a.AddValue(cell))
			}
		}
		d.Rows = append(d.Rows, row)
	}
	return d, nil
}

func numericColumn(body [][]string, col int, isMissing func(string) bool) bool {
	seen := false
	for _, rec := range body {
		v := rec[col]
		if isMissing(v) {
			continue
		}
		if _, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err != nil {
			return false
		}
		seen = true
	}
	return seen
}
