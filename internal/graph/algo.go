package graph

import (
	"fmt"
	"strconv"
	"strings"

	"graphlite/internal/logging"
)

// Algorithm defaults, matching the native extension's own.
const (
	DefaultPageRankDamping    = 0.85
	DefaultPageRankIterations = 20
	DefaultLouvainResolution  = 1.0
)

// PathResult is the outcome of a shortest-path search. DistanceKnown is
// false when the extension build omits the distance field.
type PathResult struct {
	Nodes         []string
	Distance      float64
	DistanceKnown bool
}

// PageRank runs the native PageRank implementation and returns a score per
// node, keyed by the node's user_id when present, else the decimal form of
// its node_id. Zero arguments select the defaults. An absent or malformed
// result yields an empty map; a native failure is returned as an error.
func (g *Graph) PageRank(damping float64, iterations int) (map[string]float64, error) {
	timer := logging.StartTimer(logging.CategoryQuery, "PageRank")
	defer timer.Stop()

	if damping <= 0 {
		damping = DefaultPageRankDamping
	}
	if iterations <= 0 {
		iterations = DefaultPageRankIterations
	}

	table, err := g.QueryRaw(fmt.Sprintf("CALL pagerank(%s, %d)",
		strconv.FormatFloat(damping, 'g', -1, 64), iterations), nil)
	if err != nil {
		return nil, fmt.Errorf("pagerank failed: %w", err)
	}
	return scoreMap(table, "score"), nil
}

// Louvain runs the native Louvain community detection and returns a
// community number per node, keyed like PageRank.
func (g *Graph) Louvain(resolution float64) (map[string]float64, error) {
	timer := logging.StartTimer(logging.CategoryQuery, "Louvain")
	defer timer.Stop()

	if resolution <= 0 {
		resolution = DefaultLouvainResolution
	}

	table, err := g.QueryRaw(fmt.Sprintf("CALL louvain(%s)",
		strconv.FormatFloat(resolution, 'g', -1, 64)), nil)
	if err != nil {
		return nil, fmt.Errorf("louvain failed: %w", err)
	}
	return scoreMap(table, "community"), nil
}

// scoreMap reshapes an algorithm result into an identifier-to-number map.
// The expected shape is a single returned value holding a list of per-node
// records; anything else yields an empty map rather than an error.
func scoreMap(table *Table, valueField string) map[string]float64 {
	scores := make(map[string]float64)
	if len(table.Data) == 0 || len(table.Data[0]) == 0 {
		return scores
	}

	records, ok := table.Data[0][0].([]any)
	if !ok {
		return scores
	}

	for _, item := range records {
		rec, ok := item.(map[string]any)
		if !ok {
			continue
		}
		value, ok := asFloat(rec[valueField])
		if !ok {
			continue
		}
		key := recordKey(rec)
		if key == "" {
			continue
		}
		scores[key] = value
	}
	return scores
}

// recordKey prefers the string user_id, falling back to the string form of
// the numeric node_id.
func recordKey(rec map[string]any) string {
	if userID, ok := rec["user_id"].(string); ok && userID != "" {
		return userID
	}
	if nodeID, ok := asFloat(rec["node_id"]); ok {
		return strconv.FormatFloat(nodeID, 'f', -1, 64)
	}
	return ""
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// ShortestPath runs the native Dijkstra implementation between two nodes
// identified by their id properties, optionally weighted by weightProperty.
// Returns nil (and no error) when no connecting path exists.
func (g *Graph) ShortestPath(sourceID, targetID, weightProperty string) (*PathResult, error) {
	timer := logging.StartTimer(logging.CategoryQuery, "ShortestPath")
	defer timer.Stop()

	args := []string{quoteDouble(sourceID), quoteDouble(targetID)}
	if weightProperty != "" {
		args = append(args, quoteDouble(weightProperty))
	}

	table, err := g.QueryRaw(fmt.Sprintf("CALL dijkstra(%s)", strings.Join(args, ", ")), nil)
	if err != nil {
		return nil, fmt.Errorf("shortest path failed: %w", err)
	}

	rows := table.Rows()
	if len(rows) == 0 {
		return nil, nil
	}
	rec := rows[0]

	// Older builds wrap the record in a single column.
	if len(table.Columns) == 1 {
		if inner, ok := rec[table.Columns[0]].(map[string]any); ok {
			rec = inner
		}
	}

	if found, ok := rec["found"].(bool); ok && !found {
		return nil, nil
	}

	rawPath, ok := rec["path"].([]any)
	if !ok || len(rawPath) == 0 {
		return nil, nil
	}

	result := &PathResult{Nodes: make([]string, 0, len(rawPath))}
	for _, hop := range rawPath {
		switch h := hop.(type) {
		case string:
			result.Nodes = append(result.Nodes, h)
		default:
			result.Nodes = append(result.Nodes, fmt.Sprintf("%v", h))
		}
	}
	if dist, ok := asFloat(rec["distance"]); ok {
		result.Distance = dist
		result.DistanceKnown = true
	}
	return result, nil
}

// Dijkstra is an alias for ShortestPath.
func (g *Graph) Dijkstra(sourceID, targetID, weightProperty string) (*PathResult, error) {
	return g.ShortestPath(sourceID, targetID, weightProperty)
}

// quoteDouble double-quotes s, backslash-escaping internal double quotes.
// The shortest-path entry point takes double-quoted arguments, unlike the
// single-quoted literals everywhere else.
func quoteDouble(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
