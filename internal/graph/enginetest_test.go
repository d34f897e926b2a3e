package graph

import (
	"database/sql"
	"strings"
	"sync"
	"testing"

	"github.com/mattn/go-sqlite3"
)

// The tests run against a stub of the native extension: a driver whose
// ConnectHook registers Go implementations of the extension's SQL functions.
// Responses are scripted per test through a fakeEngine, and every piece of
// Cypher text the binding emits is recorded for assertions.

const testDriverName = "sqlite3_graphlite_test"

var (
	registerTestDriver sync.Once
	activeMu           sync.Mutex
	activeEngine       *fakeEngine
)

type scriptedResponse struct {
	match    string
	response string
	once     bool
	used     bool
}

type fakeEngine struct {
	mu         sync.Mutex
	queries    []string // cypher text received, in order
	params     []string // params JSON per cypher_params call
	responses  []scriptedResponse
	defaultRes string
	selftest   string
	cacheRes   string
	statsRes   string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		defaultRes: "Query executed successfully",
		selftest:   "Graph extension self-test: OK",
		cacheRes:   `{"status":"ok"}`,
		statsRes:   `{"loaded":true,"nodes":0,"edges":0}`,
	}
}

// respond scripts a response for every query containing match.
func (f *fakeEngine) respond(match, response string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, scriptedResponse{match: match, response: response})
}

// respondOnce scripts a response consumed by the first matching query only.
func (f *fakeEngine) respondOnce(match, response string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, scriptedResponse{match: match, response: response, once: true})
}

func (f *fakeEngine) cypher(q string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	for i := range f.responses {
		r := &f.responses[i]
		if r.used {
			continue
		}
		if strings.Contains(q, r.match) {
			if r.once {
				r.used = true
			}
			return r.response, nil
		}
	}
	return f.defaultRes, nil
}

func (f *fakeEngine) cypherParams(q, p string) (string, error) {
	f.mu.Lock()
	f.params = append(f.params, p)
	f.mu.Unlock()
	return f.cypher(q)
}

func (f *fakeEngine) recordedQueries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func currentEngine() *fakeEngine {
	activeMu.Lock()
	defer activeMu.Unlock()
	return activeEngine
}

func ensureTestDriver() {
	registerTestDriver.Do(func() {
		sql.Register(testDriverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				if err := conn.RegisterFunc("cypher", func(q string) (string, error) {
					return currentEngine().cypher(q)
				}, false); err != nil {
					return err
				}
				if err := conn.RegisterFunc("cypher_params", func(q, p string) (string, error) {
					return currentEngine().cypherParams(q, p)
				}, false); err != nil {
					return err
				}
				if err := conn.RegisterFunc("graph_selftest", func() (string, error) {
					return currentEngine().selftest, nil
				}, false); err != nil {
					return err
				}
				for _, name := range []string{"graph_cache_load", "graph_cache_unload", "graph_cache_reload"} {
					if err := conn.RegisterFunc(name, func() (string, error) {
						return currentEngine().cacheRes, nil
					}, false); err != nil {
						return err
					}
				}
				return conn.RegisterFunc("graph_cache_stats", func() (string, error) {
					return currentEngine().statsRes, nil
				}, false)
			},
		})
	})
}

// newTestGraph opens an in-memory handle against the stub driver with the
// extension verified and the loaded flag set.
func newTestGraph(t *testing.T) (*Graph, *fakeEngine) {
	t.Helper()
	g, f, err := openTestGraph(true, nil)
	if err != nil {
		t.Fatalf("Failed to open test graph: %v", err)
	}
	t.Cleanup(func() { g.Close() })
	return g, f
}

// openTestGraph is the error-returning variant for tests exercising Open
// failures. setup, when non-nil, customizes the stub before the handle is
// opened (probe responses in particular).
func openTestGraph(verify bool, setup func(*fakeEngine)) (*Graph, *fakeEngine, error) {
	ensureTestDriver()
	f := newFakeEngine()
	if setup != nil {
		setup(f)
	}
	activeMu.Lock()
	activeEngine = f
	activeMu.Unlock()

	g, err := openDriver(testDriverName, InMemory, verify)
	if err != nil {
		return nil, f, err
	}
	return g, f, nil
}
