package graph

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"graphlite/internal/logging"
)

// DefaultNodeLabel is applied when UpsertNode is called without a label.
const DefaultNodeLabel = "Entity"

// DefaultEdgeType is applied when UpsertEdge is called without a
// relationship type.
const DefaultEdgeType = "RELATED"

// UpsertNode creates or updates a node keyed by its id property. When no
// node matches, one creation query embeds all properties plus the id and the
// label (DefaultNodeLabel when empty). When a node exists, one SET query is
// issued per property, sequentially: a failure partway leaves some
// properties updated and others not, and this is not remediated.
func (g *Graph) UpsertNode(id string, properties map[string]any, label string) error {
	timer := logging.StartTimer(logging.CategoryGraph, "UpsertNode")
	defer timer.Stop()

	if label == "" {
		label = DefaultNodeLabel
	}

	logging.GraphDebug("Upserting node id=%q label=%s props=%d", id, label, len(properties))

	count, err := g.countQuery(fmt.Sprintf(
		"MATCH (n {id: %s}) RETURN count(n) AS cnt", quoteString(id)))
	if err != nil {
		return fmt.Errorf("node existence check failed for %q: %w", id, err)
	}

	if count == 0 {
		parts := []string{fmt.Sprintf("id: %s", quoteString(id))}
		for _, key := range sortedKeys(properties) {
			if key == "id" {
				continue
			}
			parts = append(parts, fmt.Sprintf("%s: %s", key, formatValue(properties[key])))
		}
		create := fmt.Sprintf("CREATE (n:%s {%s})", label, strings.Join(parts, ", "))
		if err := g.exec(create); err != nil {
			return fmt.Errorf("node create failed for %q: %w", id, err)
		}
		logging.Graph("Node %q created", id)
		return nil
	}

	for _, key := range sortedKeys(properties) {
		if key == "id" {
			continue
		}
		set := fmt.Sprintf("MATCH (n {id: %s}) SET n.%s = %s",
			quoteString(id), key, formatValue(properties[key]))
		if err := g.exec(set); err != nil {
			return fmt.Errorf("node property update failed for %q.%s: %w", id, key, err)
		}
	}
	logging.Graph("Node %q updated (%d properties)", id, len(properties))
	return nil
}

// UpsertEdge creates or updates the relationship between two nodes
// identified by their id properties. relType defaults to DefaultEdgeType.
// As with UpsertNode, updates are one SET statement per property with no
// rollback on partial failure.
func (g *Graph) UpsertEdge(sourceID, targetID string, properties map[string]any, relType string) error {
	timer := logging.StartTimer(logging.CategoryGraph, "UpsertEdge")
	defer timer.Stop()

	if relType == "" {
		relType = DefaultEdgeType
	}

	logging.GraphDebug("Upserting edge %q -[%s]-> %q props=%d", sourceID, relType, targetID, len(properties))

	count, err := g.countQuery(fmt.Sprintf(
		"MATCH (a {id: %s})-[r:%s]->(b {id: %s}) RETURN count(r) AS cnt",
		quoteString(sourceID), relType, quoteString(targetID)))
	if err != nil {
		return fmt.Errorf("edge existence check failed for %q-[%s]->%q: %w", sourceID, relType, targetID, err)
	}

	if count == 0 {
		rel := fmt.Sprintf("[r:%s]", relType)
		if len(properties) > 0 {
			parts := make([]string, 0, len(properties))
			for _, key := range sortedKeys(properties) {
				parts = append(parts, fmt.Sprintf("%s: %s", key, formatValue(properties[key])))
			}
			rel = fmt.Sprintf("[r:%s {%s}]", relType, strings.Join(parts, ", "))
		}
		create := fmt.Sprintf("MATCH (a {id: %s}), (b {id: %s}) CREATE (a)-%s->(b)",
			quoteString(sourceID), quoteString(targetID), rel)
		if err := g.exec(create); err != nil {
			return fmt.Errorf("edge create failed for %q-[%s]->%q: %w", sourceID, relType, targetID, err)
		}
		logging.Graph("Edge %q -[%s]-> %q created", sourceID, relType, targetID)
		return nil
	}

	for _, key := range sortedKeys(properties) {
		set := fmt.Sprintf("MATCH (a {id: %s})-[r:%s]->(b {id: %s}) SET r.%s = %s",
			quoteString(sourceID), relType, quoteString(targetID), key, formatValue(properties[key]))
		if err := g.exec(set); err != nil {
			return fmt.Errorf("edge property update failed for %s: %w", key, err)
		}
	}
	logging.Graph("Edge %q -[%s]-> %q updated (%d properties)", sourceID, relType, targetID, len(properties))
	return nil
}

// countQuery runs a count query and extracts the first cell as an integer.
// An empty result counts as zero.
func (g *Graph) countQuery(text string) (int64, error) {
	table, err := g.QueryRaw(text, nil)
	if err != nil {
		return 0, err
	}
	if len(table.Data) == 0 || len(table.Data[0]) == 0 {
		return 0, nil
	}
	return asInt64(table.Data[0][0]), nil
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	default:
		return 0
	}
}

// formatValue renders a property value as a Cypher literal. Only single
// quotes are escaped in strings; the wire contract predates any richer
// escaping and nested lists/maps have no defined rendering.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(val)
	case string:
		return quoteString(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case json.Number:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}

// quoteString single-quotes s, backslash-escaping internal single quotes.
func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
