// Package depgraph implements the Dependency Graph (C3): bidirectional weak
// edges between file-like entities indexed by (source stage, dependency
// stage), used by the Stage Builders to gate work and by the Invalidation
// Engine to propagate changes (spec.md §4.3).
package depgraph

import (
	"fmt"

	"odools/internal/stage"
	"odools/internal/symbols"
)

// edgeSet is [sourceStage][depStage] -> set of weakly-referenced entities.
type edgeSet [stage.NumStages][stage.NumStages]map[symbols.ID]struct{}

type edges struct {
	dependencies edgeSet
	dependents   edgeSet
}

// Graph owns the per-entity dependency/dependent edge sets. It is keyed on
// the File/Package entities allocated by a single symbols.Store; like the
// Store itself it runs on the engine's single cooperative worker thread.
type Graph struct {
	store *symbols.Store
	edges map[symbols.ID]*edges
}

// New creates an empty Dependency Graph over store.
func New(store *symbols.Store) *Graph {
	return &Graph{store: store, edges: make(map[symbols.ID]*edges)}
}

func (g *Graph) entry(id symbols.ID) *edges {
	e, ok := g.edges[id]
	if !ok {
		e = &edges{}
		g.edges[id] = e
	}
	return e
}

// AddDependency records "to complete sourceStage on self, other must have
// reached at least depStage", and its inverse dependent edge, atomically.
// Idempotent: adding the same edge twice has the same effect as adding it
// once. Panics if (sourceStage, depStage) is not a legal pair (spec.md §4.3,
// programmer error per §7) — self and other are FileLikeID, so only File
// and Package entities can ever reach this call.
func (g *Graph) AddDependency(self, other symbols.FileLikeID, sourceStage, depStage stage.Stage) {
	if !stage.LegalDependency(sourceStage, depStage) {
		panic(fmt.Sprintf("depgraph: illegal dependency pair (source=%s, dep=%s)", sourceStage, depStage))
	}
	selfID, otherID := self.ID(), other.ID()
	si, di := sourceStage.Index(), depStage.Index()

	se := g.entry(selfID)
	if se.dependencies[si][di] == nil {
		se.dependencies[si][di] = make(map[symbols.ID]struct{})
	}
	se.dependencies[si][di][otherID] = struct{}{}

	oe := g.entry(otherID)
	if oe.dependents[di][si] == nil {
		oe.dependents[di][si] = make(map[symbols.ID]struct{})
	}
	oe.dependents[di][si][selfID] = struct{}{}
}

// Dependencies returns the live entities self depends on at (sourceStage,
// depStage), pruning any weak reference that no longer resolves (spec.md §5
// "iteration over weak sets prunes expired entries lazily").
func (g *Graph) Dependencies(self symbols.FileLikeID, sourceStage, depStage stage.Stage) []symbols.FileLikeID {
	return g.live(self.ID(), func(e *edges) map[symbols.ID]struct{} {
		return e.dependencies[sourceStage.Index()][depStage.Index()]
	})
}

// Dependents returns the live entities that depend on self at (depStage,
// sourceStage) — i.e. entities whose sourceStage needs self to have reached
// depStage.
func (g *Graph) Dependents(self symbols.FileLikeID, depStage, sourceStage stage.Stage) []symbols.FileLikeID {
	return g.live(self.ID(), func(e *edges) map[symbols.ID]struct{} {
		return e.dependents[depStage.Index()][sourceStage.Index()]
	})
}

// DependentsAtLevel returns every entity dependent on self at depStage,
// across all source stages that can legally name depStage — used by the
// Invalidation Engine, which propagates per changed stage rather than per
// (source, dep) pair (spec.md §4.7).
func (g *Graph) DependentsAtLevel(self symbols.FileLikeID, depStage stage.Stage) map[stage.Stage][]symbols.FileLikeID {
	out := make(map[stage.Stage][]symbols.FileLikeID)
	e, ok := g.edges[self.ID()]
	if !ok {
		return out
	}
	for _, src := range stage.All {
		if ids := g.liveIDs(e.dependents[depStage.Index()][src.Index()]); len(ids) > 0 {
			out[src] = ids
		}
	}
	return out
}

func (g *Graph) live(id symbols.ID, pick func(*edges) map[symbols.ID]struct{}) []symbols.FileLikeID {
	e, ok := g.edges[id]
	if !ok {
		return nil
	}
	return g.liveIDs(pick(e))
}

func (g *Graph) liveIDs(set map[symbols.ID]struct{}) []symbols.FileLikeID {
	if len(set) == 0 {
		return nil
	}
	var out []symbols.FileLikeID
	for id := range set {
		if fl, ok := g.store.AsFileLike(id); ok {
			out = append(out, fl)
		} else {
			delete(set, id) // lazily prune the stale weak reference
		}
	}
	return out
}

// Forget drops every edge keyed on id, both as a dependency/dependent
// source and (by construction, since liveIDs prunes stale targets lazily)
// eventually as a target too. Called by the Invalidation Engine when an
// entity is unloaded, so its own edge-set storage doesn't linger forever.
func (g *Graph) Forget(id symbols.ID) {
	delete(g.edges, id)
}
