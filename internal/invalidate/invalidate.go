// Package invalidate implements the Invalidation Engine (C7): propagating a
// changed build stage to every dependent file, and tearing an entity's
// subtree down bottom-up when a path disappears (spec.md §4.7).
package invalidate

import (
	"odools/internal/depgraph"
	"odools/internal/logging"
	"odools/internal/stage"
	"odools/internal/symbols"
)

// Enqueuer re-queues a file's stage for rebuilding. *builders.Scheduler
// satisfies this without invalidate needing to import the builders package.
type Enqueuer interface {
	Enqueue(st stage.Stage, f symbols.FileLikeID)
}

// ClassUnregisterer removes a class from every framework model it
// participates in. *model.Registry satisfies this.
type ClassUnregisterer interface {
	Unregister(class symbols.ID)
}

// Engine owns the cascade logic; it mutates the same Store and Graph the
// Stage Builders operate on.
type Engine struct {
	store   *symbols.Store
	graph   *depgraph.Graph
	enqueue Enqueuer
	models  ClassUnregisterer
}

// New creates an Invalidation Engine over the given components.
func New(store *symbols.Store, graph *depgraph.Graph, enqueue Enqueuer, models ClassUnregisterer) *Engine {
	return &Engine{store: store, graph: graph, enqueue: enqueue, models: models}
}

// Invalidate implements invalidate(entity, changed_stage) (spec.md §4.7):
// marks file's own stages from changedStage through VALIDATION Pending and
// re-queues them, then cascades through every file that depends on file
// having reached changedStage, at that dependent's own recorded source
// stage, recursing into file's module children (a Package invalidation
// implies its sub-modules). A dependent living inside the invalidated
// entity's own subtree is skipped: the subtree walk already covers it, and
// following its edge back up would cycle. A per-call visited set makes the
// cascade safe against dependency cycles spanning multiple files.
func (e *Engine) Invalidate(file symbols.FileLikeID, changedStage stage.Stage) {
	e.markPending(file, changedStage)
	e.cascade(file, changedStage, make(map[symbols.ID]bool))
}

// markPending flips file's own stages from changedStage onward back to
// Pending and re-queues each on its stage worklist.
func (e *Engine) markPending(file symbols.FileLikeID, changedStage stage.Stage) {
	ent, ok := e.store.Get(file.ID())
	if !ok {
		return
	}
	touchedAny := false
	for _, st := range stage.All {
		if st < changedStage {
			continue
		}
		if ent.BuildStatus(st) != stage.Pending {
			ent.SetBuildStatus(st, stage.Pending)
			touchedAny = true
		}
		// A stage that was already Pending (e.g. a file indexed after the
		// workspace opened and never built) is queued as well.
		e.enqueue.Enqueue(st, file)
	}
	if touchedAny {
		logging.Invalidate("invalidated %s from %s", ent.Name(), changedStage)
	}
}

func (e *Engine) cascade(file symbols.FileLikeID, changedStage stage.Stage, visited map[symbols.ID]bool) {
	id := file.ID()
	if visited[id] {
		return
	}
	visited[id] = true

	// spec.md §4.7's three propagation rules all fire off of changedStage:
	// a change at ARCH cascades through dependents recorded at ARCH,
	// ARCH_EVAL, *and* ODOO (since ARCH_EVAL and ODOO's own rules also
	// apply whenever changedStage <= their level); a change at ARCH_EVAL
	// cascades through ARCH_EVAL and ODOO; a change at ODOO cascades
	// through ODOO only. VALIDATION never appears as a dep level
	// (stage.LegalDependency), so the walk stops at Odoo.
	for depStage := changedStage; depStage <= stage.Odoo; depStage++ {
		for src, deps := range e.graph.DependentsAtLevel(file, depStage) {
			for _, dep := range deps {
				if e.inSubtree(id, dep.ID()) {
					continue
				}
				e.markPending(dep, src)
				e.cascade(dep, src, visited)
			}
		}
	}

	for _, child := range e.store.AllChildren(id) {
		if fl, ok := e.store.AsFileLike(child); ok {
			e.cascade(fl, changedStage, visited)
		}
	}
}

// inSubtree reports whether sub is root or a descendant of root, by
// identity on the handle, not name (spec.md §4.7 ancestor check).
func (e *Engine) inSubtree(root, sub symbols.ID) bool {
	for cur := sub; !cur.IsNil(); {
		if cur == root {
			return true
		}
		ent, ok := e.store.Get(cur)
		if !ok {
			return false
		}
		cur = ent.Parent()
	}
	return false
}

// Unload implements unload(entity) (spec.md §4.7): removes file's entire
// subtree bottom-up, unregistering any class found along the way from the
// Framework Model Registry, invalidates every file that depended on file at
// any stage (captured before the edges are dropped), then forgets file's
// dependency edges and detaches it from the Store.
func (e *Engine) Unload(file symbols.FileLikeID) {
	id := file.ID()
	for _, child := range e.store.AllChildren(id) {
		e.unloadDescendant(child)
	}

	for _, st := range stage.All {
		for src, deps := range e.graph.DependentsAtLevel(file, st) {
			for _, dep := range deps {
				if dep.ID() == id {
					continue
				}
				e.Invalidate(dep, src)
			}
		}
	}

	e.graph.Forget(id)
	e.store.Remove(id)
}

// unloadDescendant recurses into id's own children first (bottom-up), then
// removes id itself. A nested File/Package is unloaded through the full
// Unload path so its own dependents are notified too; anything else
// (Namespace, Compiled, Class, Function, Variable) is just detached after
// its children are gone.
func (e *Engine) unloadDescendant(id symbols.ID) {
	ent, ok := e.store.Get(id)
	if !ok {
		return
	}
	if fl, ok := e.store.AsFileLike(id); ok {
		e.Unload(fl)
		return
	}
	for _, child := range e.store.AllChildren(id) {
		e.unloadDescendant(child)
	}
	if ent.Kind() == symbols.KindClass {
		e.models.Unregister(id)
	}
	e.store.Remove(id)
}
