package graph

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecodeCanonicalTable(t *testing.T) {
	raw := `{"columns":["name","age"],"data":[["Alice",30],["Bob",null]]}`
	table, err := decodeResult(raw)
	if err != nil {
		t.Fatalf("decodeResult failed: %v", err)
	}

	want := &Table{
		Columns: []string{"name", "age"},
		Data:    [][]any{{"Alice", float64(30)}, {"Bob", nil}},
	}
	if diff := cmp.Diff(want, table); diff != "" {
		t.Errorf("Table mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeObjectList(t *testing.T) {
	// Legacy shape: columns come from the first object's member order, and
	// members absent from later objects fill with null.
	raw := `[{"name":"Alice","age":30},{"age":25,"name":"Bob"},{"name":"Carol"}]`
	table, err := decodeResult(raw)
	if err != nil {
		t.Fatalf("decodeResult failed: %v", err)
	}

	want := &Table{
		Columns: []string{"name", "age"},
		Data: [][]any{
			{"Alice", float64(30)},
			{"Bob", float64(25)},
			{"Carol", nil},
		},
	}
	if diff := cmp.Diff(want, table); diff != "" {
		t.Errorf("Table mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeObjectListNestedValues(t *testing.T) {
	raw := `[{"id":"a","tags":["x","y"],"meta":{"k":1}}]`
	table, err := decodeResult(raw)
	if err != nil {
		t.Fatalf("decodeResult failed: %v", err)
	}
	if len(table.Columns) != 3 || table.Columns[0] != "id" {
		t.Fatalf("Unexpected columns: %v", table.Columns)
	}
	tags, ok := table.Data[0][1].([]any)
	if !ok || len(tags) != 2 {
		t.Errorf("Expected nested list preserved, got %v", table.Data[0][1])
	}
	if _, ok := table.Data[0][2].(map[string]any); !ok {
		t.Errorf("Expected nested map preserved, got %v", table.Data[0][2])
	}
}

func TestDecodePlainSuccessMessage(t *testing.T) {
	table, err := decodeResult("Query executed successfully")
	if err != nil {
		t.Fatalf("decodeResult failed: %v", err)
	}
	if len(table.Columns) != 0 || len(table.Data) != 0 {
		t.Errorf("Expected empty table, got %+v", table)
	}
}

func TestDecodeErrorMarker(t *testing.T) {
	_, err := decodeResult("Error: no such node")
	var qerr *QueryError
	if !errors.As(err, &qerr) {
		t.Fatalf("Expected QueryError, got %v", err)
	}
	if qerr.Message != "Error: no such node" {
		t.Errorf("Expected verbatim message, got %q", qerr.Message)
	}
}

func TestDecodeJSONEncodedError(t *testing.T) {
	_, err := decodeResult(`"Error: parse failure at position 3"`)
	var qerr *QueryError
	if !errors.As(err, &qerr) {
		t.Fatalf("Expected QueryError, got %v", err)
	}
	if qerr.Message != "Error: parse failure at position 3" {
		t.Errorf("Expected verbatim message, got %q", qerr.Message)
	}
}

func TestDecodeEmptyList(t *testing.T) {
	table, err := decodeResult("[]")
	if err != nil {
		t.Fatalf("decodeResult failed: %v", err)
	}
	if len(table.Data) != 0 {
		t.Errorf("Expected empty table, got %+v", table)
	}
}

func TestDecodeEmptyString(t *testing.T) {
	table, err := decodeResult("")
	if err != nil {
		t.Fatalf("decodeResult failed: %v", err)
	}
	if len(table.Columns) != 0 || len(table.Data) != 0 {
		t.Errorf("Expected empty table, got %+v", table)
	}
}

func TestDecodeBareScalars(t *testing.T) {
	// Some builds answer mutations with a bare JSON scalar. Nothing
	// structured to tabulate, so each decodes to the empty table.
	for _, raw := range []string{"null", "true", "false", "42", "-3.5"} {
		table, err := decodeResult(raw)
		if err != nil {
			t.Fatalf("decodeResult(%q) failed: %v", raw, err)
		}
		if len(table.Columns) != 0 || len(table.Data) != 0 {
			t.Errorf("decodeResult(%q): expected empty table, got %+v", raw, table)
		}
	}
}

func TestDecodeMalformedPayload(t *testing.T) {
	raw := "{not json at all"
	_, err := decodeResult(raw)
	var derr *DecodeError
	if !errors.As(err, &derr) {
		t.Fatalf("Expected DecodeError, got %v", err)
	}
	if derr.Raw != raw {
		t.Errorf("Expected offending payload %q in error, got %q", raw, derr.Raw)
	}
}

func TestDecodeMalformedButSuccessMarker(t *testing.T) {
	// JSON parsing fails, but the generic success marker rescues it.
	table, err := decodeResult("{truncated... operation was a success")
	if err != nil {
		t.Fatalf("decodeResult failed: %v", err)
	}
	if len(table.Data) != 0 {
		t.Errorf("Expected empty table, got %+v", table)
	}
}

func TestDecodeNonCanonicalObject(t *testing.T) {
	table, err := decodeResult(`{"status":"done"}`)
	if err != nil {
		t.Fatalf("decodeResult failed: %v", err)
	}
	if len(table.Data) != 0 {
		t.Errorf("Expected empty table for non-canonical object, got %+v", table)
	}
}

func TestRowsPadShortTuples(t *testing.T) {
	table := &Table{
		Columns: []string{"a", "b", "c"},
		Data:    [][]any{{float64(1)}, {float64(1), float64(2), float64(3)}},
	}
	rows := table.Rows()
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	for i, row := range rows {
		if len(row) != len(table.Columns) {
			t.Errorf("Row %d: expected %d entries, got %d", i, len(table.Columns), len(row))
		}
	}
	if rows[0]["b"] != nil || rows[0]["c"] != nil {
		t.Errorf("Expected nil fill for short tuple, got %v", rows[0])
	}
	if rows[1]["c"] != float64(3) {
		t.Errorf("Expected c=3, got %v", rows[1]["c"])
	}
}
