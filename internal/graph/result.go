package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Table is the canonical decoded result shape: ordered column names plus
// row-major value tuples. Values are nil, bool, float64, string, []any or
// map[string]any, whatever encoding/json produced.
type Table struct {
	Columns []string `json:"columns"`
	Data    [][]any  `json:"data"`
}

// Row maps column names to values for one result tuple.
type Row map[string]any

// Rows zips the column list with each data tuple. Tuples shorter than the
// column list are padded with nil; extra positions are dropped.
func (t *Table) Rows() []Row {
	rows := make([]Row, 0, len(t.Data))
	for _, tuple := range t.Data {
		row := make(Row, len(t.Columns))
		for i, col := range t.Columns {
			if i < len(tuple) {
				row[col] = tuple[i]
			} else {
				row[col] = nil
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func emptyTable() *Table {
	return &Table{Columns: []string{}, Data: [][]any{}}
}

const errorMarker = "Error"

// isSuccessMessage reports whether a plain (non-JSON) native response is an
// informational success string rather than a payload.
func isSuccessMessage(raw string) bool {
	return strings.Contains(strings.ToLower(raw), "success")
}

// decodeResult normalizes the native layer's string response into a Table.
// The extension's encoding changed across builds (plain message, bare array
// of objects, canonical {columns,data} table), so decoding is layered: each
// historical shape is tried in order before giving up.
func decodeResult(raw string) (*Table, error) {
	trimmed := strings.TrimSpace(raw)

	if strings.HasPrefix(trimmed, errorMarker) {
		return nil, &QueryError{Message: trimmed}
	}
	if trimmed == "" {
		return emptyTable(), nil
	}

	var parsed any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		// Plain informational message with no structured payload.
		if isSuccessMessage(trimmed) {
			return emptyTable(), nil
		}
		return nil, &DecodeError{Raw: raw, Err: err}
	}

	switch v := parsed.(type) {
	case string:
		// Some builds double-encode errors as JSON strings.
		if strings.HasPrefix(v, errorMarker) {
			return nil, &QueryError{Message: v}
		}
		return emptyTable(), nil

	case map[string]any:
		if table, ok := decodeCanonical(v); ok {
			return table, nil
		}
		return emptyTable(), nil

	case []any:
		if len(v) == 0 {
			return emptyTable(), nil
		}
		return decodeObjectList(trimmed, v)

	default:
		return emptyTable(), nil
	}
}

// decodeCanonical handles the modern {columns, data} shape.
func decodeCanonical(obj map[string]any) (*Table, bool) {
	rawCols, hasCols := obj["columns"]
	rawData, hasData := obj["data"]
	if !hasCols || !hasData {
		return nil, false
	}

	colList, ok := rawCols.([]any)
	if !ok {
		return nil, false
	}
	columns := make([]string, 0, len(colList))
	for _, c := range colList {
		s, ok := c.(string)
		if !ok {
			return nil, false
		}
		columns = append(columns, s)
	}

	dataList, ok := rawData.([]any)
	if !ok {
		return nil, false
	}
	data := make([][]any, 0, len(dataList))
	for _, r := range dataList {
		tuple, ok := r.([]any)
		if !ok {
			return nil, false
		}
		data = append(data, tuple)
	}

	return &Table{Columns: columns, Data: data}, true
}

// decodeObjectList handles the legacy bare-array-of-objects shape. Columns
// come from the first object's member names in serialized order; rows fill
// missing members with nil.
func decodeObjectList(raw string, list []any) (*Table, error) {
	columns, err := firstObjectKeys(raw)
	if err != nil {
		return nil, &DecodeError{Raw: raw, Err: err}
	}
	if len(columns) == 0 {
		return emptyTable(), nil
	}

	data := make([][]any, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			// Heterogeneous list: not a recognized row shape.
			return emptyTable(), nil
		}
		tuple := make([]any, len(columns))
		for i, col := range columns {
			tuple[i] = obj[col]
		}
		data = append(data, tuple)
	}

	return &Table{Columns: columns, Data: data}, nil
}

// firstObjectKeys token-scans the raw JSON array to recover the first
// object's key order. encoding/json maps lose insertion order, and the
// legacy wire shape defines columns by it.
func firstObjectKeys(raw string) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, fmt.Errorf("expected array, got %v", tok)
	}

	tok, err = dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var keys []string
	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}
		keys = append(keys, key)

		// Consume the value, including nested structures.
		var discard json.RawMessage
		if err := dec.Decode(&discard); err != nil {
			return nil, err
		}
	}

	return keys, nil
}
