package graph

import (
	"encoding/json"
	"fmt"

	"graphlite/internal/logging"
)

// GraphStats is the response of the native loaded? probe.
type GraphStats struct {
	Loaded bool  `json:"loaded"`
	Nodes  int64 `json:"nodes"`
	Edges  int64 `json:"edges"`
}

// CacheLoad asks the extension to load its in-memory graph cache. The
// status response body is discarded; only native failures propagate.
func (g *Graph) CacheLoad() error {
	return g.cacheOp("graph_cache_load")
}

// CacheUnload asks the extension to drop its in-memory graph cache.
func (g *Graph) CacheUnload() error {
	return g.cacheOp("graph_cache_unload")
}

// CacheReload asks the extension to rebuild its in-memory graph cache.
func (g *Graph) CacheReload() error {
	return g.cacheOp("graph_cache_reload")
}

func (g *Graph) cacheOp(fn string) error {
	timer := logging.StartTimer(logging.CategoryCache, fn)
	defer timer.Stop()

	if err := g.requireLoaded(); err != nil {
		return err
	}
	if _, err := g.call(fmt.Sprintf("SELECT %s()", fn)); err != nil {
		return fmt.Errorf("%s failed: %w", fn, err)
	}
	logging.Cache("%s completed", fn)
	return nil
}

// Stats probes the extension's cache state. Unlike every other operation on
// this surface, Stats swallows failures and returns a zeroed result - on a
// not-loaded handle, a native error, or an unparseable response. Callers
// must not rely on it to detect a broken connection.
func (g *Graph) Stats() GraphStats {
	timer := logging.StartTimer(logging.CategoryCache, "Stats")
	defer timer.Stop()

	if err := g.requireLoaded(); err != nil {
		logging.CacheDebug("Stats on unavailable handle: %v", err)
		return GraphStats{}
	}

	raw, err := g.call("SELECT graph_cache_stats()")
	if err != nil {
		logging.CacheDebug("Stats probe failed: %v", err)
		return GraphStats{}
	}

	var stats GraphStats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		logging.CacheDebug("Stats response unparseable: %v", err)
		return GraphStats{}
	}
	if !stats.Loaded {
		return GraphStats{}
	}
	return stats
}
