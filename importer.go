package backtest

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
)

// ImportMapping describes how to pull signal rows out of a vendor JSON
// export. Rows selects the list of row objects in the document; the field
// paths are evaluated against each row object.
//
// Only Security, Date, Action and Price are required. AvgValue and Volume
// are read when their path is set and the row has a value there.
type ImportMapping struct {
	Rows     string
	Security string
	Date     string
	Action   string
	Price    string
	AvgValue string
	Volume   string
}

// DefaultImportMapping maps a flat export where the document is a list of
// objects with lowercase field names.
func DefaultImportMapping() ImportMapping {
	return ImportMapping{
		Rows:     "$[*]",
		Security: "$.security",
		Date:     "$.date",
		Action:   "$.action",
		Price:    "$.price",
		AvgValue: "$.avg_value",
		Volume:   "$.volume",
	}
}

// ImportSignals reads a vendor JSON document and converts it into a signal
// table using the given mapping. Rows failing validation abort the import,
// with the row index in the error.
func ImportSignals(r io.Reader, m ImportMapping, currency string) (*SignalTable, error) {
	var jobj any
	if err := json.NewDecoder(r).Decode(&jobj); err != nil {
		return nil, fmt.Errorf("import: invalid json: %w", err)
	}
	return importDocument(jobj, m, currency)
}

func importDocument(jobj any, m ImportMapping, currency string) (*SignalTable, error) {
	jrows, err := jsonpath.Get(m.Rows, jobj)
	if err != nil {
		return nil, fmt.Errorf("import: rows path %q: %w", m.Rows, err)
	}
	jlist, ok := jrows.([]any)
	if !ok {
		return nil, fmt.Errorf("import: rows path %q: not a list", m.Rows)
	}

	table := NewSignalTable()
	for i, jrow := range jlist {
		row, err := importRow(jrow, m, currency)
		if err != nil {
			return nil, fmt.Errorf("import: row %d: %w", i, err)
		}
		if err := table.Append(row); err != nil {
			return nil, fmt.Errorf("import: row %d: %w", i, err)
		}
	}
	return table, nil
}

func importRow(jrow any, m ImportMapping, currency string) (SignalRow, error) {
	var row SignalRow
	var err error

	if row.Security, err = jstring(jrow, m.Security); err != nil {
		return row, err
	}
	jdate, err := jstring(jrow, m.Date)
	if err != nil {
		return row, err
	}
	if row.Date, err = ParseDate(jdate); err != nil {
		return row, err
	}
	jaction, err := jstring(jrow, m.Action)
	if err != nil {
		return row, err
	}
	if row.Action, err = ParseAction(jaction); err != nil {
		return row, err
	}
	price, err := jfloat(jrow, m.Price)
	if err != nil {
		return row, err
	}
	row.Price = M(price, currency)

	if m.AvgValue != "" {
		if v, err := jfloat(jrow, m.AvgValue); err == nil {
			row.AvgValue = M(v, currency)
		}
	}
	if m.Volume != "" {
		if v, err := jfloat(jrow, m.Volume); err == nil {
			row.Volume = Q(v)
		}
	}

	if err := row.Validate(); err != nil {
		return row, err
	}
	return row, nil
}

func jstring(jrow any, path string) (string, error) {
	jval, err := jsonpath.Get(path, jrow)
	if err != nil {
		return "", fmt.Errorf("path %q: %w", path, err)
	}
	jval = unwrap(jval)
	s, ok := jval.(string)
	if !ok {
		return "", fmt.Errorf("path %q: not a string: %v", path, jval)
	}
	return s, nil
}

func jfloat(jrow any, path string) (float64, error) {
	jval, err := jsonpath.Get(path, jrow)
	if err != nil {
		return 0, fmt.Errorf("path %q: %w", path, err)
	}
	jval = unwrap(jval)
	if val, ok := jval.(float64); ok {
		return val, nil
	}
	// some exports carry numbers as localized strings
	sval, ok := jval.(string)
	if !ok {
		return 0, fmt.Errorf("path %q: neither a float nor a string: %v", path, jval)
	}
	sval = strings.ReplaceAll(sval, ",", ".")
	sval = strings.ReplaceAll(sval, " ", "")
	val, err := strconv.ParseFloat(sval, 64)
	if err != nil {
		return 0, fmt.Errorf("path %q: invalid number %q: %w", path, sval, err)
	}
	return val, nil
}

// unwrap keeps the first element when jsonpath returns a one-element list
// instead of a scalar.
func unwrap(jval any) any {
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		return jlist[0]
	}
	return jval
}
