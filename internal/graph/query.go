package graph

import (
	"encoding/json"
	"fmt"
	"time"

	"graphlite/internal/logging"
)

// slowQueryThreshold is how long a native call may take before the timer
// logs it as a warning instead of a debug line.
const slowQueryThreshold = 250 * time.Millisecond

// Query executes a Cypher query and returns row objects (column name to
// value). params, when non-nil, is JSON-serialized and sent through the
// two-argument native entry point.
func (g *Graph) Query(text string, params map[string]any) ([]Row, error) {
	table, err := g.QueryRaw(text, params)
	if err != nil {
		return nil, err
	}
	return table.Rows(), nil
}

// QueryRaw executes a Cypher query and returns the decoded column/row table
// without row-object conversion.
func (g *Graph) QueryRaw(text string, params map[string]any) (*Table, error) {
	timer := logging.StartTimer(logging.CategoryQuery, "QueryRaw")
	defer timer.StopWithThreshold(slowQueryThreshold)

	if err := g.requireLoaded(); err != nil {
		return nil, err
	}

	logging.QueryDebug("Executing query: %s", text)

	var raw string
	var err error
	if params == nil {
		raw, err = g.call("SELECT cypher(?)", text)
	} else {
		var paramsJSON []byte
		paramsJSON, err = json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to encode query parameters: %w", err)
		}
		raw, err = g.call("SELECT cypher_params(?, ?)", text, string(paramsJSON))
	}
	if err != nil {
		logging.Get(logging.CategoryQuery).Error("Native query failed: %v", err)
		return nil, fmt.Errorf("native query failed: %w", err)
	}

	table, err := decodeResult(raw)
	if err != nil {
		logging.Get(logging.CategoryQuery).Error("Result decode failed: %v", err)
		return nil, err
	}

	logging.QueryDebug("Query returned %d columns, %d rows", len(table.Columns), len(table.Data))
	return table, nil
}

// exec runs a mutation query and discards the decoded result.
func (g *Graph) exec(text string) error {
	_, err := g.QueryRaw(text, nil)
	return err
}
