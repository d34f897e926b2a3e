package main

import (
	"fmt"
	"os"

	"graphlite/internal/config"
	"graphlite/internal/graph"
	"graphlite/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose     bool
	configPath  string
	dbPath      string
	extPath     string
	noExtension bool

	// Logger
	logger *zap.Logger

	// Loaded configuration
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "graphlite",
	Short: "graphlite - Cypher graph queries over an embedded SQLite extension",
	Long: `graphlite is a client for a native graph-database extension loaded
into an embedded SQLite handle.

It opens a database, loads the extension library, and exposes Cypher query
execution, node/edge upserts, graph algorithms (PageRank, Louvain, Dijkstra)
and cache management, all over a single synchronous handle.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		cwd, err := os.Getwd()
		if err == nil {
			if err := logging.Initialize(cwd); err != nil {
				logger.Warn("File logging unavailable", zap.Error(err))
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// queryCmd executes a Cypher query
var queryCmd = &cobra.Command{
	Use:   "query [cypher]",
	Short: "Execute a Cypher query and print the rows as JSON",
	Long: `Executes a Cypher query against the loaded graph extension.

Example:
  graphlite query "MATCH (n:Person) RETURN n.name, n.age"
  graphlite query "MATCH (n {id: $id}) RETURN n" --params '{"id":"alice"}'`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

var queryParams string
var queryRawOutput bool

// upsertNodeCmd creates or updates a node
var upsertNodeCmd = &cobra.Command{
	Use:   "upsert-node [id]",
	Short: "Create or update a node keyed by its id property",
	Long: `Creates the node if absent, otherwise updates its properties in place.

Example:
  graphlite upsert-node alice --label Person --props '{"name":"Alice","age":30}'`,
	Args: cobra.ExactArgs(1),
	RunE: runUpsertNode,
}

var nodeLabel string
var nodeProps string

// upsertEdgeCmd creates or updates an edge
var upsertEdgeCmd = &cobra.Command{
	Use:   "upsert-edge [source-id] [target-id]",
	Short: "Create or update a relationship between two nodes",
	Args:  cobra.ExactArgs(2),
	RunE:  runUpsertEdge,
}

var edgeType string
var edgeProps string

// pagerankCmd runs PageRank
var pagerankCmd = &cobra.Command{
	Use:   "pagerank",
	Short: "Run PageRank and print per-node scores",
	RunE:  runPageRank,
}

var prDamping float64
var prIterations int

// louvainCmd runs Louvain community detection
var louvainCmd = &cobra.Command{
	Use:   "louvain",
	Short: "Run Louvain community detection and print per-node communities",
	RunE:  runLouvain,
}

var louvainResolution float64

// pathCmd runs a shortest-path search
var pathCmd = &cobra.Command{
	Use:   "path [source-id] [target-id]",
	Short: "Find the shortest path between two nodes",
	Args:  cobra.ExactArgs(2),
	RunE:  runPath,
}

var pathWeight string

// statsCmd prints the graph cache stats
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the extension's cache state (loaded, node and edge counts)",
	RunE:  runStats,
}

// cacheCmd manages the extension's in-memory graph cache
var cacheCmd = &cobra.Command{
	Use:       "cache [load|unload|reload]",
	Short:     "Manage the extension's in-memory graph cache",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"load", "unload", "reload"},
	RunE:      runCache,
}

// initCmd writes a default config file
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default graphlite.yaml to the working directory",
	RunE:  runInit,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultFileName, "Config file path")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (overrides config; \":memory:\" for in-memory)")
	rootCmd.PersistentFlags().StringVar(&extPath, "extension", "", "Extension library path (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&noExtension, "no-extension", false, "Open without loading the graph extension")

	queryCmd.Flags().StringVar(&queryParams, "params", "", "JSON-encoded named query parameters")
	queryCmd.Flags().BoolVar(&queryRawOutput, "raw", false, "Print the columns/data table instead of row objects")

	upsertNodeCmd.Flags().StringVar(&nodeLabel, "label", "", "Node label (default "+graph.DefaultNodeLabel+")")
	upsertNodeCmd.Flags().StringVar(&nodeProps, "props", "{}", "JSON-encoded node properties")

	upsertEdgeCmd.Flags().StringVar(&edgeType, "type", "", "Relationship type (default "+graph.DefaultEdgeType+")")
	upsertEdgeCmd.Flags().StringVar(&edgeProps, "props", "{}", "JSON-encoded edge properties")

	pagerankCmd.Flags().Float64Var(&prDamping, "damping", graph.DefaultPageRankDamping, "Damping factor")
	pagerankCmd.Flags().IntVar(&prIterations, "iterations", graph.DefaultPageRankIterations, "Iteration count")

	louvainCmd.Flags().Float64Var(&louvainResolution, "resolution", graph.DefaultLouvainResolution, "Resolution parameter")

	pathCmd.Flags().StringVar(&pathWeight, "weight", "", "Relationship property used as edge weight")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(upsertNodeCmd)
	rootCmd.AddCommand(upsertEdgeCmd)
	rootCmd.AddCommand(pagerankCmd)
	rootCmd.AddCommand(louvainCmd)
	rootCmd.AddCommand(pathCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(initCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
