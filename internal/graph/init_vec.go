//go:build sqlite_vec && cgo

package graph

import (
	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
)

func init() {
	// Register the sqlite-vec extension with the mattn/go-sqlite3 driver so
	// vector search is available on the same handle as the graph extension.
	// vec.Auto() registers it as an auto-loadable extension.
	vec.Auto()
}
