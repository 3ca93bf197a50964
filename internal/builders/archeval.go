package builders

import (
	"context"
	"math"
	"strings"

	"odools/internal/logging"
	"odools/internal/parse"
	"odools/internal/resolver"
	"odools/internal/stage"
	"odools/internal/symbols"
)

// RunArchEval implements the ARCH_EVAL stage builder (spec.md §4.6 step 2):
// resolve every still-unresolved import evaluation left by ARCH to a
// concrete symbol, and elaborate each class's declared bases into resolved
// Class references consulted by get_member_symbol. Function signatures are
// not elaborated: ARCH attaches no evaluations to a Function, so there is
// nothing on it for ARCH_EVAL to rewrite.
func (b *Builders) RunArchEval(ctx context.Context, file symbols.FileLikeID) error {
	timer := logging.StartTimer(logging.CategoryArchEval, "RunArchEval")
	defer timer.Stop()

	fileID := file.ID()
	ent := b.store.MustGet(fileID)
	ent.SetBuildStatus(stage.ArchEval, stage.InProgress)

	tree, _, err := b.readAndParse(ctx, fileID)
	if err != nil {
		ent.SetBuildStatus(stage.ArchEval, stage.Invalid)
		logging.Get(logging.CategoryArchEval).Error("ARCH_EVAL %s: %v", ent.Name(), err)
		return err
	}
	ent.ClearNotFoundPaths(stage.ArchEval)

	created := b.mapDeclarations(fileID, tree)

	for _, childID := range b.store.AllChildren(fileID) {
		ce, ok := b.store.Get(childID)
		if !ok || ce.Kind() != symbols.KindVariable {
			continue
		}
		evals := ce.Evaluations()
		changed := false
		for i, ev := range evals {
			needsResolve := ev.Unresolved()
			if !needsResolve && !ev.Target.IsNil() && len(ev.ImportPath) > 0 {
				// A previously resolved binding whose weak target has been
				// unloaded is re-resolved from its recorded path, the same
				// as one ARCH just created.
				if _, live := b.store.Get(ev.Target); !live {
					needsResolve = true
				}
			}
			if !needsResolve {
				continue
			}
			var target symbols.ID
			switch ev.Kind {
			case symbols.EvalImport:
				target = b.resolveFullImport(ev.ImportPath)
			case symbols.EvalClassRef:
				// A bare `name = other_name` assignment: resolve through the
				// lexical scope at this Variable's own position, the same way
				// an inferred-name lookup would, rather than as a dotted
				// import path.
				if found := b.resolver.InferName(b.root, fileID, ev.ImportPath[0], ce.Range().Start); len(found) > 0 {
					target = found[0]
				}
			}
			if target.IsNil() {
				ent.AddNotFoundPath(stage.ArchEval, strings.Join(ev.ImportPath, "."))
				if !ev.Target.IsNil() {
					// Drop the stale target so follow_ref sees a pending
					// binding, not a dangling one.
					evals[i] = symbols.Evaluation{Kind: ev.Kind, ImportPath: ev.ImportPath}
					changed = true
				}
				continue
			}
			// Keep the original Kind and path: an import-originated
			// evaluation stays marked as such after resolution (follow_ref's
			// stop_on_type check expands through import bindings), and the
			// path is what a later re-run re-resolves from if the target is
			// ever unloaded.
			evals[i] = symbols.Evaluation{Target: target, Kind: ev.Kind, ImportPath: ev.ImportPath}
			changed = true
			if dep, ok := b.depFileFor(target); ok && dep.ID() != fileID {
				b.graph.AddDependency(file, dep, stage.ArchEval, stage.ArchEval)
			}
		}
		if changed {
			ce.SetEvaluations(evals)
		}
	}

	for i, d := range tree.Declarations {
		if d.Kind != parse.DeclClass || len(d.Bases) == 0 {
			continue
		}
		classID := created[i]
		if classID.IsNil() {
			continue
		}
		var bases []symbols.ID
		for _, baseName := range d.Bases {
			found := b.resolver.InferName(b.root, classID, baseName, d.Start)
			if len(found) == 0 {
				ent.AddNotFoundPath(stage.ArchEval, baseName)
				continue
			}
			// InferName may have landed on the import-bound Variable rather
			// than the class it refers to (e.g. `class Foo(Base)` where
			// Base was brought in via `from a import Base`); follow it to
			// its actual referent the same way any other reference would be.
			resolvedBase := found[0]
			if refs := b.evalEngine.FollowRef(ctx, found[0], false, false); len(refs) > 0 {
				resolvedBase = refs[0].Entity
			}
			bases = append(bases, resolvedBase)
			if dep, ok := b.depFileFor(resolvedBase); ok {
				b.graph.AddDependency(file, dep, stage.ArchEval, stage.Arch)
			}
		}
		b.classBases[classID] = bases
	}

	ent.SetBuildStatus(stage.ArchEval, stage.Done)
	return nil
}

// mapDeclarations re-derives tree.Declarations' symbol ids by matching
// name+range against what ARCH already created under fileID, since a later
// stage reparses the same content rather than threading ARCH's index-aligned
// slice through.
func (b *Builders) mapDeclarations(fileID symbols.ID, tree *parse.Tree) []symbols.ID {
	created := make([]symbols.ID, len(tree.Declarations))
	for i, d := range tree.Declarations {
		parent := fileID
		if d.Parent != -1 {
			parent = created[d.Parent]
		}
		if parent.IsNil() {
			continue
		}
		created[i] = b.findExisting(parent, d.Name, symbols.Range{Start: d.Start, End: d.End})
	}
	return created
}

func (b *Builders) findExisting(parent symbols.ID, name string, rng symbols.Range) symbols.ID {
	for _, id := range b.store.Children(parent, name) {
		if e, ok := b.store.Get(id); ok && e.Kind().IsContentEntity() && e.Range() == rng {
			return id
		}
	}
	return symbols.Nil
}

// resolveFullImport resolves a dotted import path to a concrete symbol,
// first treating the last segment as a content name within the container
// named by the rest (a from-import), then falling back to treating the
// whole path as a module path (a plain import). Lookup position is
// unbounded: an import sees the imported file's whole top level, not a
// prefix of it.
func (b *Builders) resolveFullImport(path []string) symbols.ID {
	if len(path) == 0 {
		return symbols.Nil
	}
	if len(path) > 1 {
		container := path[:len(path)-1]
		last := path[len(path)-1]
		found := b.resolver.GetSymbol(b.root, resolver.Path{ModuleSegments: container, ContentSegments: []string{last}}, math.MaxInt)
		if len(found) > 0 {
			return found[0]
		}
	}
	found := b.resolver.GetSymbol(b.root, resolver.Path{ModuleSegments: path}, math.MaxInt)
	if len(found) > 0 {
		return found[0]
	}
	return symbols.Nil
}

// depFileFor walks up from id to the nearest File/Package ancestor, the unit
// a dependency edge is actually recorded against.
func (b *Builders) depFileFor(id symbols.ID) (symbols.FileLikeID, bool) {
	cur := id
	for {
		if fl, ok := b.store.AsFileLike(cur); ok {
			return fl, true
		}
		e, ok := b.store.Get(cur)
		if !ok || e.Parent().IsNil() {
			return symbols.FileLikeID{}, false
		}
		cur = e.Parent()
	}
}
