// Package engine wires the Symbol Store, Dependency Graph, Name Resolver,
// Evaluation Engine, Framework Model Registry, Stage Builders, and
// Invalidation Engine into the single Session the host (editor protocol
// layer, CLI) drives through the external contract in spec.md §6. Nothing
// outside this package reaches into the component packages' internals
// directly: Session is the only thing an embedder needs.
package engine

import (
	"os"
	"path/filepath"

	"odools/internal/discover"
)

// osFileSystem is the production discover.FileSystem, backed by the real
// filesystem: os.ReadDir/os.ReadFile behind their own small collaborator
// interface rather than called inline from the walk logic.
type osFileSystem struct{}

func (osFileSystem) ReadDir(path string) ([]discover.DirEntry, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	out := make([]discover.DirEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, discover.DirEntry{Name: e.Name(), IsDir: e.IsDir()})
	}
	return out, nil
}

func (osFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

var _ discover.FileSystem = osFileSystem{}

// absPath normalizes a root path the same way for discovery and for the
// workspace/external root membership check in discover.markExternal.
func absPath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}
