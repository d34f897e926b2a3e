package graph

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"graphlite/internal/logging"

	"github.com/mattn/go-sqlite3"
)

// InMemory is the database path sentinel for an in-memory instance.
const InMemory = ":memory:"

// EnvExtensionPath names the environment variable consulted when no explicit
// extension path is configured.
const EnvExtensionPath = "GRAPHLITE_EXTENSION_PATH"

// selfTestMarker must appear in the graph_selftest() response for the
// extension to count as loaded.
const selfTestMarker = "OK"

// extensionBaseName is the library filename stem searched for in the
// conventional directories.
const extensionBaseName = "libgraphlite"

// extensionSearchDirs are tried in order when neither the config nor the
// environment supplies an extension path.
var extensionSearchDirs = []string{
	".",
	"./build",
	"/usr/local/lib/graphlite",
	"/usr/local/lib",
	"/usr/lib",
}

var extensionSuffixes = []string{".so", ".dylib", ".dll"}

// Options configures Open. The zero value disables extension loading; use
// DefaultOptions for the standard configuration.
type Options struct {
	// ExtensionPath is the explicit path to the graph extension library.
	// When empty, resolution falls back to EnvExtensionPath and then the
	// conventional search directories.
	ExtensionPath string

	// LoadExtension gates loading entirely. When false the handle opens as a
	// plain database and every graph operation fails with ErrNotLoaded.
	LoadExtension bool
}

// DefaultOptions returns the standard configuration: load the extension,
// resolve its path from the environment or search directories.
func DefaultOptions() Options {
	return Options{LoadExtension: true}
}

// Graph is a handle to an open database with the graph extension loaded.
// One handle per instance; operations are serialized internally but a Graph
// is not meant to be shared across independent units of work. Close releases
// the handle exactly once; there is no reopening.
type Graph struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
	loaded bool
	closed bool
}

// database/sql forbids registering a driver name twice and offers no
// unregister, so driver registrations are cached per extension path. A
// process opening many handles reuses one registration per distinct path.
var (
	driversMu sync.Mutex
	drivers   = make(map[string]string)
)

// driverFor returns the driver name registered for the given extension path
// (empty for no extension), registering it on first use.
func driverFor(extPath string) string {
	driversMu.Lock()
	defer driversMu.Unlock()

	if name, ok := drivers[extPath]; ok {
		return name
	}

	name := fmt.Sprintf("sqlite3_graphlite_%d", len(drivers))
	sql.Register(name, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			if extPath == "" {
				return nil
			}
			return conn.LoadExtension(extPath, "")
		},
	})
	drivers[extPath] = name
	return name
}

// Open opens the database at dbPath (or InMemory) and attempts to load the
// graph extension per opts. When no extension path resolves, the handle
// opens with the loaded flag false and graph operations fail with
// ErrNotLoaded. When a path resolves but the load or the self-test probe
// fails, Open fails and the handle is closed.
func Open(dbPath string, opts Options) (*Graph, error) {
	timer := logging.StartTimer(logging.CategoryBoot, "Open")
	defer timer.Stop()

	logging.Boot("Opening graph database at path: %s", dbPath)

	extPath := ""
	if opts.LoadExtension {
		resolved, err := ResolveExtensionPath(opts.ExtensionPath)
		switch {
		case err == nil:
			extPath = resolved
			logging.BootDebug("Resolved extension library: %s", extPath)
		case opts.ExtensionPath != "":
			// An explicitly configured path that does not exist is a
			// construction failure, not a silent downgrade.
			return nil, err
		default:
			logging.BootWarn("No graph extension library found; graph operations will be unavailable")
		}
	}

	return openDriver(driverFor(extPath), dbPath, extPath != "")
}

// openDriver opens the handle on an already-registered driver. verify runs
// the self-test probe and flips the loaded flag; tests use this entry point
// with a stub driver.
func openDriver(driverName, dbPath string, verify bool) (*Graph, error) {
	db, err := sql.Open(driverName, dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Ping forces the first connection, which is where the ConnectHook's
	// LoadExtension failure surfaces.
	if err := db.Ping(); err != nil {
		db.Close()
		if verify {
			return nil, fmt.Errorf("graph extension load failed: %w", err)
		}
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.BootDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.BootDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}

	g := &Graph{db: db, dbPath: dbPath}

	if verify {
		if err := g.verifyExtension(); err != nil {
			db.Close()
			return nil, fmt.Errorf("graph extension load failed: %w", err)
		}
		g.loaded = true
		logging.Boot("Graph extension loaded and verified")
	}

	return g, nil
}

// verifyExtension invokes the self-test probe and checks for the known
// success marker. A loaded-but-unverified extension is treated the same as
// a load failure.
func (g *Graph) verifyExtension() error {
	var probe sql.NullString
	if err := g.db.QueryRow("SELECT graph_selftest()").Scan(&probe); err != nil {
		return fmt.Errorf("self-test probe failed: %w", err)
	}
	if !strings.Contains(probe.String, selfTestMarker) {
		return fmt.Errorf("self-test returned unexpected response %q", probe.String)
	}
	return nil
}

// ResolveExtensionPath resolves the extension library path: explicit path,
// then EnvExtensionPath, then the conventional search directories. Returns
// an error wrapping ErrExtensionNotFound when nothing resolves.
func ResolveExtensionPath(explicit string) (string, error) {
	if explicit != "" {
		if fileExists(explicit) {
			return explicit, nil
		}
		return "", fmt.Errorf("%w: %s", ErrExtensionNotFound, explicit)
	}

	if envPath := os.Getenv(EnvExtensionPath); envPath != "" {
		if fileExists(envPath) {
			return envPath, nil
		}
		return "", fmt.Errorf("%w: %s (from %s)", ErrExtensionNotFound, envPath, EnvExtensionPath)
	}

	for _, dir := range extensionSearchDirs {
		for _, suffix := range extensionSuffixes {
			candidate := filepath.Join(dir, extensionBaseName+suffix)
			if fileExists(candidate) {
				return candidate, nil
			}
		}
	}

	return "", fmt.Errorf("%w: searched %v", ErrExtensionNotFound, extensionSearchDirs)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Loaded reports whether the extension was loaded and verified at Open.
func (g *Graph) Loaded() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loaded
}

// Path returns the database path this handle was opened with.
func (g *Graph) Path() string {
	return g.dbPath
}

// Close releases the database handle. Operations after Close fail with
// ErrClosed.
func (g *Graph) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	logging.Boot("Closing graph database connection")
	return g.db.Close()
}

// call runs one native entry point and returns its raw string response.
// NULL responses come back as the empty string.
func (g *Graph) call(query string, args ...any) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return "", ErrClosed
	}
	var out sql.NullString
	if err := g.db.QueryRow(query, args...).Scan(&out); err != nil {
		return "", err
	}
	return out.String, nil
}

// requireLoaded is the precondition check shared by every graph operation.
func (g *Graph) requireLoaded() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrClosed
	}
	if !g.loaded {
		return ErrNotLoaded
	}
	return nil
}
