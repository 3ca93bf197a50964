// Package resolver implements the Name Resolver (C4): turning a qualified
// path plus an optional position into candidate symbols, and the bounded
// scope walk used by hover/completion (spec.md §4.4).
package resolver

import (
	"math"

	"odools/internal/logging"
	"odools/internal/symbols"
)

// Path is a qualified path: container names to descend (Root -> Package ->
// ... -> File) followed by content names to descend within the file's
// Section-Index-aware children (spec.md §4.4).
type Path struct {
	ModuleSegments  []string
	ContentSegments []string
}

// Resolver answers name-resolution queries against one Store.
type Resolver struct {
	store *symbols.Store
}

// New creates a Resolver over store.
func New(store *symbols.Store) *Resolver {
	return &Resolver{store: store}
}

// GetModuleSymbol resolves one module-tree segment from current: a
// Namespace searches each of its merged directories' children (which are
// keyed under the same children map regardless of directory, since
// AddNamespace merges by name already); Package/Root consults its module
// map directly (spec.md §4.4 step 1).
func (r *Resolver) GetModuleSymbol(current symbols.ID, name string) []symbols.ID {
	e, ok := r.store.Get(current)
	if !ok || !e.Kind().IsModuleTreeContainer() {
		return nil
	}
	return r.store.Children(current, name)
}

// GetContentSymbol resolves name within container at position, consulting
// the Section Index (spec.md §4.4 step 2, §8 boundary: classes expose every
// member regardless of position).
func (r *Resolver) GetContentSymbol(container symbols.ID, name string, position int) []symbols.ID {
	return r.store.ContentAt(container, name, position)
}

// GetSymbol walks ModuleSegments from root, then ContentSegments from the
// resulting File/Package, at position (spec.md §4.4 get_symbol).
//
// If more than one candidate remains partway through ContentSegments and
// segments still follow, only the first candidate is used to continue the
// walk — this mirrors a known limitation flagged rather than silently
// fixed (spec.md §9 Open Questions): a faithful resolver should fan out
// across all candidates instead.
func (r *Resolver) GetSymbol(root symbols.ID, path Path, position int) []symbols.ID {
	current := root
	for _, seg := range path.ModuleSegments {
		matches := r.GetModuleSymbol(current, seg)
		if len(matches) == 0 {
			return nil
		}
		current = matches[0]
	}
	if len(path.ContentSegments) == 0 {
		return []symbols.ID{current}
	}
	var candidates []symbols.ID
	for i, seg := range path.ContentSegments {
		matches := r.GetContentSymbol(current, seg, position)
		if len(matches) == 0 {
			return nil
		}
		candidates = matches
		if i < len(path.ContentSegments)-1 {
			if len(matches) > 1 {
				logging.Get(logging.CategoryResolver).Debug("get_symbol: %d candidates for %q, continuing with the first only", len(matches), seg)
			}
			current = matches[0]
		}
	}
	return candidates
}

// GetMemberSymbol implements get_member_symbol (spec.md §4.4): for classes,
// searches (a) the module tree, (b) file content at unbounded position, (c)
// if self declares a framework model and !preventComodel, the other classes
// participating in that model in module-dependency order, recursing with
// preventComodel=true, (d) each declared base class in order. modelClasses
// supplies (c)'s ordered class list (the Framework Model Registry's
// responsibility, spec.md §4.6) since the resolver itself has no notion of
// models; it must already be restricted to modules self's own module can
// see — inheritance through a model is directional, so a class never picks
// up members contributed by a module depending on its own (spec.md §8
// scenario 2: a base module's class does not see a dependent module's
// field). Returns the first hit, or the full accumulated list when all is
// true (its first element is the effective override).
func (r *Resolver) GetMemberSymbol(self symbols.ID, name string, fromModule symbols.ID, preventComodel bool, all bool, modelClasses func(self symbols.ID) []symbols.ID, bases func(self symbols.ID) []symbols.ID) []symbols.ID {
	var acc []symbols.ID

	add := func(found []symbols.ID) bool {
		acc = append(acc, found...)
		return len(found) > 0 && !all
	}

	if found := r.GetModuleSymbol(self, name); add(found) {
		return firstOrAll(acc, all)
	}
	if found := r.GetContentSymbol(self, name, math.MaxInt); add(found) {
		return firstOrAll(acc, all)
	}
	if !preventComodel && modelClasses != nil {
		for _, cls := range modelClasses(self) {
			if cls == self {
				continue
			}
			found := r.GetMemberSymbol(cls, name, fromModule, true, all, modelClasses, bases)
			if add(found) {
				return firstOrAll(acc, all)
			}
		}
	}
	if bases != nil {
		for _, base := range bases(self) {
			found := r.GetMemberSymbol(base, name, fromModule, preventComodel, all, modelClasses, bases)
			if add(found) {
				return firstOrAll(acc, all)
			}
		}
	}
	return firstOrAll(acc, all)
}

func firstOrAll(acc []symbols.ID, all bool) []symbols.ID {
	if len(acc) == 0 {
		return nil
	}
	if all {
		return acc
	}
	return acc[:1]
}

// InferName implements infer_name (spec.md §4.4): a scope walk up through
// enclosing containers, falling back once to the "builtins" entity under
// Root.
func (r *Resolver) InferName(root, on symbols.ID, name string, position int) []symbols.ID {
	if found := r.GetContentSymbol(on, name, position); len(found) > 0 {
		return found
	}
	e, ok := r.store.Get(on)
	if !ok {
		return nil
	}
	k := e.Kind()
	if k != symbols.KindFile && !k.IsPackage() && k != symbols.KindRoot && !e.Parent().IsNil() {
		return r.InferName(root, e.Parent(), name, position)
	}
	builtinsIDs := r.GetModuleSymbol(root, "builtins")
	if len(builtinsIDs) == 0 {
		return nil
	}
	return r.GetContentSymbol(builtinsIDs[0], name, math.MaxInt)
}
