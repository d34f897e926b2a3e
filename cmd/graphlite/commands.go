package main

import (
	"encoding/json"
	"fmt"
	"os"

	"graphlite/internal/config"
	"graphlite/internal/graph"
	"graphlite/internal/logging"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// openGraph opens the configured database handle, applying flag overrides.
// Every command gets a fresh request-scoped file logger keyed by a
// correlation ID so one CLI invocation's operations can be traced together.
func openGraph() (*graph.Graph, *logging.RequestLogger, error) {
	requestID := uuid.NewString()
	rlog := logging.WithRequestID(logging.CategoryCLI, requestID)

	path := cfg.Database.Path
	if dbPath != "" {
		path = dbPath
	}

	opts := graph.Options{
		ExtensionPath: cfg.Extension.Path,
		LoadExtension: cfg.Extension.Load && !noExtension,
	}
	if extPath != "" {
		opts.ExtensionPath = extPath
	}

	logger.Debug("Opening graph",
		zap.String("db", path),
		zap.String("extension", opts.ExtensionPath),
		zap.Bool("load", opts.LoadExtension),
		zap.String("request_id", requestID))
	logging.CLIDebug("Flag overrides: db=%q extension=%q no-extension=%v", dbPath, extPath, noExtension)
	rlog.Info("Opening graph db=%s", path)

	g, err := graph.Open(path, opts)
	if err != nil {
		rlog.Error("Open failed: %v", err)
		return nil, nil, err
	}
	return g, rlog, nil
}

// printJSON renders a command result to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseProps(raw string) (map[string]any, error) {
	props := map[string]any{}
	if raw == "" {
		return props, nil
	}
	if err := json.Unmarshal([]byte(raw), &props); err != nil {
		return nil, fmt.Errorf("invalid --props JSON: %w", err)
	}
	return props, nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	g, rlog, err := openGraph()
	if err != nil {
		return err
	}
	defer g.Close()

	var params map[string]any
	if queryParams != "" {
		if err := json.Unmarshal([]byte(queryParams), &params); err != nil {
			return fmt.Errorf("invalid --params JSON: %w", err)
		}
	}

	rlog.Info("Running query: %s", args[0])

	if queryRawOutput {
		table, err := g.QueryRaw(args[0], params)
		if err != nil {
			rlog.Error("Query failed: %v", err)
			return err
		}
		return printJSON(table)
	}

	rows, err := g.Query(args[0], params)
	if err != nil {
		rlog.Error("Query failed: %v", err)
		return err
	}
	logger.Debug("Query done", zap.Int("rows", len(rows)))
	return printJSON(rows)
}

func runUpsertNode(cmd *cobra.Command, args []string) error {
	g, rlog, err := openGraph()
	if err != nil {
		return err
	}
	defer g.Close()

	props, err := parseProps(nodeProps)
	if err != nil {
		return err
	}

	rlog.Info("Upserting node %s", args[0])
	if err := g.UpsertNode(args[0], props, nodeLabel); err != nil {
		rlog.Error("Upsert failed: %v", err)
		return err
	}
	logger.Info("Node upserted", zap.String("id", args[0]))
	return nil
}

func runUpsertEdge(cmd *cobra.Command, args []string) error {
	g, rlog, err := openGraph()
	if err != nil {
		return err
	}
	defer g.Close()

	props, err := parseProps(edgeProps)
	if err != nil {
		return err
	}

	rlog.Info("Upserting edge %s -> %s", args[0], args[1])
	if err := g.UpsertEdge(args[0], args[1], props, edgeType); err != nil {
		rlog.Error("Upsert failed: %v", err)
		return err
	}
	logger.Info("Edge upserted", zap.String("source", args[0]), zap.String("target", args[1]))
	return nil
}

func runPageRank(cmd *cobra.Command, args []string) error {
	g, rlog, err := openGraph()
	if err != nil {
		return err
	}
	defer g.Close()

	rlog.Info("Running pagerank damping=%g iterations=%d", prDamping, prIterations)
	scores, err := g.PageRank(prDamping, prIterations)
	if err != nil {
		rlog.Error("PageRank failed: %v", err)
		return err
	}
	return printJSON(scores)
}

func runLouvain(cmd *cobra.Command, args []string) error {
	g, rlog, err := openGraph()
	if err != nil {
		return err
	}
	defer g.Close()

	rlog.Info("Running louvain resolution=%g", louvainResolution)
	communities, err := g.Louvain(louvainResolution)
	if err != nil {
		rlog.Error("Louvain failed: %v", err)
		return err
	}
	return printJSON(communities)
}

func runPath(cmd *cobra.Command, args []string) error {
	g, rlog, err := openGraph()
	if err != nil {
		return err
	}
	defer g.Close()

	rlog.Info("Shortest path %s -> %s weight=%q", args[0], args[1], pathWeight)
	result, err := g.ShortestPath(args[0], args[1], pathWeight)
	if err != nil {
		rlog.Error("Shortest path failed: %v", err)
		return err
	}
	if result == nil {
		fmt.Println("No path found")
		return nil
	}
	out := map[string]any{"path": result.Nodes}
	if result.DistanceKnown {
		out["distance"] = result.Distance
	}
	return printJSON(out)
}

func runStats(cmd *cobra.Command, args []string) error {
	g, rlog, err := openGraph()
	if err != nil {
		return err
	}
	defer g.Close()

	stats := g.Stats()
	rlog.Info("Stats loaded=%v nodes=%d edges=%d", stats.Loaded, stats.Nodes, stats.Edges)
	return printJSON(stats)
}

func runCache(cmd *cobra.Command, args []string) error {
	g, rlog, err := openGraph()
	if err != nil {
		return err
	}
	defer g.Close()

	rlog.Info("Cache operation: %s", args[0])
	switch args[0] {
	case "load":
		err = g.CacheLoad()
	case "unload":
		err = g.CacheUnload()
	case "reload":
		err = g.CacheReload()
	default:
		return fmt.Errorf("unknown cache operation %q", args[0])
	}
	if err != nil {
		rlog.Error("Cache %s failed: %v", args[0], err)
		return err
	}
	logger.Info("Cache operation complete", zap.String("op", args[0]))
	return nil
}

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file %s already exists", configPath)
	}
	if err := config.DefaultConfig().Save(configPath); err != nil {
		return err
	}
	logging.CLI("Wrote default config to %s", configPath)
	fmt.Printf("Wrote default config to %s\n", configPath)
	return nil
}
