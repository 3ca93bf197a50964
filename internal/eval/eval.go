// Package eval implements the Evaluation Engine (C5): resolving the
// evaluations attached to a Variable/Function into concrete referent sets,
// and the transitive "follow-ref" closure (spec.md §4.5).
package eval

import (
	"context"

	"odools/internal/stage"
	"odools/internal/symbols"
)

// Referent pairs a live weak reference with whether it denotes an instance
// of the target (as opposed to the target class/value itself).
type Referent struct {
	Entity     symbols.ID
	IsInstance bool
}

// Rebuilder runs the ARCH_EVAL stage synchronously for one file; Engine
// calls it when follow_ref needs to expand an unevaluated import whose
// target file's ARCH_EVAL has not yet run (spec.md §4.5, §4.6).
type Rebuilder interface {
	RunArchEval(ctx context.Context, file symbols.FileLikeID) error
}

// Engine answers evaluation queries against one Store.
type Engine struct {
	store    *symbols.Store
	rebuilds Rebuilder
}

// New creates an Engine over store. rebuilds may be nil if synchronous
// ARCH_EVAL triggering is not wired (e.g. in tests that pre-resolve every
// evaluation); follow_ref then treats a still-unresolved import as empty.
func New(store *symbols.Store, rebuilds Rebuilder) *Engine {
	return &Engine{store: store, rebuilds: rebuilds}
}

// NextRefs implements next_refs (spec.md §4.5): for a Variable, resolves
// every attached evaluation to a Referent and keeps only the ones whose
// weak target is still live; for any other entity, the singleton
// containing itself.
func (e *Engine) NextRefs(sym symbols.ID) []Referent {
	ent, ok := e.store.Get(sym)
	if !ok {
		return nil
	}
	if ent.Kind() != symbols.KindVariable {
		return []Referent{{Entity: sym, IsInstance: false}}
	}
	var out []Referent
	for _, ev := range ent.Evaluations() {
		if ev.Target.IsNil() {
			continue
		}
		if _, live := e.store.Get(ev.Target); !live {
			continue
		}
		out = append(out, Referent{Entity: ev.Target, IsInstance: ev.IsInstance})
	}
	return out
}

// FollowRef implements follow_ref (spec.md §4.5): the closed set of final
// referents reachable from sym's evaluations. Cycle-safe — each weak
// reference is expanded at most once per call, using a visited set scoped
// to this single invocation (spec.md §9 Open Questions: the source reuses
// one mutable expansion context across candidates in a way whose
// intentionality is unclear; this implementation gives each call its own
// fresh visited set, the unambiguous reading).
func (e *Engine) FollowRef(ctx context.Context, sym symbols.ID, stopOnType, stopOnValue bool) []Referent {
	visited := make(map[symbols.ID]bool)
	var result []Referent
	queue := []Referent{{Entity: sym, IsInstance: false}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur.Entity] {
			continue
		}
		visited[cur.Entity] = true

		ent, ok := e.store.Get(cur.Entity)
		if !ok {
			continue
		}
		if ent.Kind() != symbols.KindVariable {
			result = append(result, cur)
			continue
		}

		evals := ent.Evaluations()
		isImport := len(evals) > 0 && evals[0].IsImport()
		hasLiteral := len(evals) == 1 && evals[0].HasLiteral

		// The stop conditions apply to the referents reached from sym, not to
		// sym itself: the walk starts from sym's own evaluations.
		isStart := cur.Entity == sym
		if !isStart && stopOnType && !cur.IsInstance && !isImport {
			result = append(result, cur)
			continue
		}
		if !isStart && stopOnValue && hasLiteral {
			result = append(result, cur)
			continue
		}

		if isImport && evals[0].Unresolved() {
			e.triggerArchEvalIfNeeded(ctx, cur.Entity)
			ent, ok = e.store.Get(cur.Entity)
			if !ok {
				continue
			}
			evals = ent.Evaluations()
		}

		// A pending import/name-reference evaluation that never resolved
		// means "no information yet", not "resolves to itself" — distinct
		// from a Variable that genuinely carries no further reference (a
		// literal, or one the engine never attached an evaluation to). A
		// resolved evaluation whose weak target has since been removed is
		// the same case: empty, not self-referential.
		unresolved := false
		for _, ev := range evals {
			if ev.Unresolved() {
				unresolved = true
				break
			}
			if !ev.Target.IsNil() {
				if _, live := e.store.Get(ev.Target); !live {
					unresolved = true
					break
				}
			}
		}

		next := e.NextRefs(cur.Entity)
		if len(next) == 0 {
			if !unresolved {
				result = append(result, cur)
			}
			continue
		}
		for _, n := range next {
			if !visited[n.Entity] {
				queue = append(queue, n)
			}
		}
	}
	return result
}

// triggerArchEvalIfNeeded synchronously rebuilds the ARCH_EVAL stage of the
// file owning sym, when that file is external and its ARCH_EVAL is still
// PENDING (spec.md §4.5 "when expanding an unevaluated imported variable in
// an external file whose ARCH_EVAL is still PENDING, synchronously run the
// ARCH_EVAL builder for that file before reading").
func (e *Engine) triggerArchEvalIfNeeded(ctx context.Context, sym symbols.ID) {
	if e.rebuilds == nil {
		return
	}
	owner := e.owningFile(sym)
	if owner.ID().IsNil() {
		return
	}
	ownerEnt, ok := e.store.Get(owner.ID())
	if !ok || !ownerEnt.IsExternal() {
		return
	}
	if ownerEnt.BuildStatus(stage.ArchEval) == stage.InProgress {
		// spec.md §5: "no stage ever recursively rebuilds a file already in
		// progress (a file in IN_PROGRESS is skipped and returns its current
		// best-effort results)". Without this guard, a cyclic pair of
		// external files whose base-class/import resolution each depends on
		// the other's still-in-progress ARCH_EVAL would recurse forever:
		// RunArchEval -> FollowRef (elaborating a base class) ->
		// triggerArchEvalIfNeeded -> RunArchEval on the same file.
		return
	}
	if ownerEnt.BuildStatus(stage.ArchEval) != stage.Pending {
		// Done or Invalid: ARCH_EVAL has already run for this file.
		return
	}
	_ = e.rebuilds.RunArchEval(ctx, owner)
}

func (e *Engine) owningFile(sym symbols.ID) symbols.FileLikeID {
	cur := sym
	for {
		ent, ok := e.store.Get(cur)
		if !ok {
			return symbols.FileLikeID{}
		}
		if fl, ok := e.store.AsFileLike(cur); ok {
			return fl
		}
		if ent.Parent().IsNil() {
			return symbols.FileLikeID{}
		}
		cur = ent.Parent()
	}
}
