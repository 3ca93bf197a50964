// Package symbols implements the Symbol Store (C1) and Section Index (C2):
// the heterogeneous entity arena, parent/child ownership, and
// position-aware name lookup within a container (spec.md §3, §4.1, §4.2).
package symbols

import (
	"fmt"
)

type slot struct {
	generation uint32
	alive      bool
	entity     *Entity
}

// Store owns every entity in the symbol graph. It runs on the engine's
// single cooperative worker thread (spec.md §5) and is therefore
// deliberately unsynchronized — callers must not share a Store across
// goroutines without external locking.
type Store struct {
	slots          []slot
	free           []uint32
	moduleRegistry map[string]ID // dir_name -> Module entity (spec.md §4.1)
}

// NewStore creates an empty arena.
func NewStore() *Store {
	return &Store{moduleRegistry: make(map[string]ID)}
}

func (s *Store) alloc(e *Entity) ID {
	e.children = nil // set lazily
	var idx uint32
	if n := len(s.free); n > 0 {
		idx = s.free[n-1]
		s.free = s.free[:n-1]
		s.slots[idx].generation++
		s.slots[idx].alive = true
		s.slots[idx].entity = e
	} else {
		idx = uint32(len(s.slots))
		s.slots = append(s.slots, slot{generation: 1, alive: true, entity: e})
	}
	id := ID{index: idx, generation: s.slots[idx].generation}
	e.id = id
	return id
}

// Get resolves id to its live entity. ok is false if id is Nil, was never
// allocated, or names a slot that has since been removed and possibly
// reused (generation mismatch) — a stale weak reference (spec.md §7).
func (s *Store) Get(id ID) (*Entity, bool) {
	if id.IsNil() || int(id.index) >= len(s.slots) {
		return nil, false
	}
	sl := s.slots[id.index]
	if !sl.alive || sl.generation != id.generation {
		return nil, false
	}
	return sl.entity, true
}

// MustGet resolves id or panics; for call sites that just minted id and know
// it must be live (programmer error otherwise).
func (s *Store) MustGet(id ID) *Entity {
	e, ok := s.Get(id)
	if !ok {
		panic(fmt.Sprintf("symbols: %s does not resolve to a live entity", id))
	}
	return e
}

// AsFileLike checks id names a File or Package and returns the checked handle.
func (s *Store) AsFileLike(id ID) (FileLikeID, bool) {
	e, ok := s.Get(id)
	if !ok || !e.kind.IsFileLike() {
		return FileLikeID{}, false
	}
	return FileLikeID{id: id}, true
}

// AsContainer checks id names a container entity.
func (s *Store) AsContainer(id ID) (ContainerID, bool) {
	e, ok := s.Get(id)
	if !ok || !(e.kind.IsContainer() || e.kind.IsModuleTreeContainer()) {
		return ContainerID{}, false
	}
	return ContainerID{id: id}, true
}

// AsContent checks id names a Class/Function/Variable.
func (s *Store) AsContent(id ID) (ContentID, bool) {
	e, ok := s.Get(id)
	if !ok || !e.kind.IsContentEntity() {
		return ContentID{}, false
	}
	return ContentID{id: id}, true
}

// --- creation API (spec.md §4.1) ---

func (s *Store) newEntity(kind Kind, parent ID, name string) *Entity {
	return &Entity{kind: kind, parent: parent, name: name}
}

func (s *Store) checkContain(parent ID, child Kind) *Entity {
	if parent.IsNil() {
		if child != KindRoot {
			panic("symbols: only Root may have a nil parent")
		}
		return nil
	}
	pe := s.MustGet(parent)
	if !pe.kind.CanContain(child) {
		panic(fmt.Sprintf("symbols: %s may not contain %s", pe.kind, child))
	}
	return pe
}

// NewRoot creates the singleton Root entity (spec.md §4.1 new_root).
func (s *Store) NewRoot() ID {
	e := s.newEntity(KindRoot, Nil, "")
	id := s.alloc(e)
	e.children = make(map[string][]child)
	return id
}

// link attaches child under parent at the given section, appending to any
// existing entries for that name ("name -> section -> list").
func (s *Store) link(parent ID, name string, sec SectionID, id ID) {
	pe := s.MustGet(parent)
	if pe.children == nil {
		pe.children = make(map[string][]child)
	}
	pe.children[name] = append(pe.children[name], child{section: sec, entity: id})
}

// AddFile creates a File entity under parent (spec.md §4.1 add_file).
func (s *Store) AddFile(parent ID, name, path string) ID {
	s.checkContain(parent, KindFile)
	e := s.newEntity(KindFile, parent, name)
	e.paths = []string{path}
	e.sections = newSectionIndex(0) // extended to real length once content is read
	e.children = make(map[string][]child)
	id := s.alloc(e)
	s.link(parent, name, 0, id)
	return id
}

// SetFileLength re-seeds the section index once the entity's source byte
// length is known (called by the ARCH builder after reading the source — a
// Package's source being its init file). Re-seeding drops any sections a
// previous ARCH pass opened, so a rebuild starts from a clean index.
func (s *Store) SetFileLength(id ID, length int) {
	e := s.MustGet(id)
	if !e.kind.IsFileLike() {
		panic("symbols: SetFileLength on non-file-like entity")
	}
	e.sections = newSectionIndex(length)
}

// AddPythonPackage creates a PythonPackage entity (directory with __init__,
// no recognized framework manifest) under parent.
func (s *Store) AddPythonPackage(parent ID, name, path string) ID {
	s.checkContain(parent, KindPythonPackage)
	e := s.newEntity(KindPythonPackage, parent, name)
	e.paths = []string{path}
	e.sections = newSectionIndex(0)
	e.children = make(map[string][]child)
	id := s.alloc(e)
	s.link(parent, name, 0, id)
	return id
}

// AddModulePackage creates a Module entity carrying the already-parsed
// manifest info, and registers it in the module registry keyed by dir_name
// (spec.md §4.1: "Newly-created Modules register themselves in a
// process-wide module registry"). Parsing the manifest itself is the
// discovery layer's job (§7 "Module manifest invalid" is a caller concern:
// fall back to AddPythonPackage when this isn't called at all).
func (s *Store) AddModulePackage(parent ID, name, path string, info ModuleInfo) ID {
	s.checkContain(parent, KindModule)
	e := s.newEntity(KindModule, parent, name)
	e.paths = []string{path}
	e.sections = newSectionIndex(0)
	e.children = make(map[string][]child)
	e.moduleInfo = &info
	id := s.alloc(e)
	s.link(parent, name, 0, id)
	s.moduleRegistry[info.DirName] = id
	return id
}

// AddNamespace creates (or extends) a Namespace under parent. If a
// namespace with that name already exists under parent, path is appended as
// an additional directory instead of creating a new entity (spec.md §4.1
// add_namespace).
func (s *Store) AddNamespace(parent ID, name, path string) ID {
	s.checkContain(parent, KindNamespace)
	if existing := s.findNamespace(parent, name); !existing.IsNil() {
		ne := s.MustGet(existing)
		ne.directories = append(ne.directories, path)
		ne.paths = append(ne.paths, path)
		return existing
	}
	e := s.newEntity(KindNamespace, parent, name)
	e.paths = []string{path}
	e.directories = []string{path}
	e.children = make(map[string][]child)
	id := s.alloc(e)
	s.link(parent, name, 0, id)
	return id
}

func (s *Store) findNamespace(parent ID, name string) ID {
	pe, ok := s.Get(parent)
	if !ok {
		return Nil
	}
	for _, c := range pe.children[name] {
		if ce, ok := s.Get(c.entity); ok && ce.kind == KindNamespace {
			return c.entity
		}
	}
	return Nil
}

// AddCompiled creates an opaque Compiled entity.
func (s *Store) AddCompiled(parent ID, name, path string) ID {
	s.checkContain(parent, KindCompiled)
	e := s.newEntity(KindCompiled, parent, name)
	e.paths = []string{path}
	e.children = make(map[string][]child)
	id := s.alloc(e)
	s.link(parent, name, 0, id)
	return id
}

func (s *Store) addContent(parent ID, kind Kind, name string, rng Range) ID {
	s.checkContain(parent, kind)
	pe := s.MustGet(parent)
	if pe.sections == nil {
		pe.sections = newSectionIndex(rng.End)
	}
	e := s.newEntity(kind, parent, name)
	e.rng = rng
	if kind != KindVariable {
		e.children = make(map[string][]child)
		// Section offsets are file-absolute throughout, so a nested
		// container's outermost section spans up to its own end offset.
		e.sections = newSectionIndex(rng.End)
	}
	id := s.alloc(e)
	secs := pe.sections.GetSectionsFor(rng.Start)
	sec := secs[0]
	s.link(parent, name, sec, id)
	return id
}

// AddClass creates a Class content entity under parent.
func (s *Store) AddClass(parent ID, name string, rng Range) ID {
	return s.addContent(parent, KindClass, name, rng)
}

// AddFunction creates a Function content entity under parent.
func (s *Store) AddFunction(parent ID, name string, rng Range) ID {
	return s.addContent(parent, KindFunction, name, rng)
}

// AddVariable creates a Variable content entity under parent.
func (s *Store) AddVariable(parent ID, name string, rng Range) ID {
	return s.addContent(parent, KindVariable, name, rng)
}

// Remove detaches id from its parent's children map and clears its parent
// pointer (spec.md §4.1 remove). It does not recurse into children — that
// bottom-up walk is the Invalidation Engine's responsibility (§4.7 unload).
func (s *Store) Remove(id ID) {
	e, ok := s.Get(id)
	if !ok {
		return
	}
	if !e.parent.IsNil() {
		if pe, ok := s.Get(e.parent); ok {
			entries := pe.children[e.name]
			filtered := entries[:0]
			for _, c := range entries {
				if c.entity != id {
					filtered = append(filtered, c)
				}
			}
			if len(filtered) == 0 {
				delete(pe.children, e.name)
			} else {
				pe.children[e.name] = filtered
			}
		}
	}
	if e.kind == KindModule && e.moduleInfo != nil {
		if cur, ok := s.moduleRegistry[e.moduleInfo.DirName]; ok && cur == id {
			delete(s.moduleRegistry, e.moduleInfo.DirName)
		}
	}
	e.parent = Nil
	s.slots[id.index].alive = false
	s.slots[id.index].entity = nil
	s.free = append(s.free, id.index)
}

// ModuleByDirName looks up a Module entity in the process-wide registry
// (conceptually global per spec.md §4.1, but owned by this Store instance,
// itself threaded through the session — spec.md §9 "Process-wide
// registries").
func (s *Store) ModuleByDirName(dirName string) (ID, bool) {
	id, ok := s.moduleRegistry[dirName]
	return id, ok
}

// Children returns every direct child of parent named name, in insertion
// (program) order, regardless of section — used for module-tree lookups
// where position doesn't apply (spec.md §4.4 get_module_symbol).
func (s *Store) Children(parent ID, name string) []ID {
	pe, ok := s.Get(parent)
	if !ok {
		return nil
	}
	var out []ID
	for _, c := range pe.children[name] {
		out = append(out, c.entity)
	}
	return out
}

// AllChildren returns every direct child of parent across all names, in
// insertion order — used by discovery/invalidation walks.
func (s *Store) AllChildren(parent ID) []ID {
	pe, ok := s.Get(parent)
	if !ok {
		return nil
	}
	var out []ID
	for _, entries := range pe.children {
		for _, c := range entries {
			out = append(out, c.entity)
		}
	}
	return out
}

// ContentAt returns content-entity children of parent named name visible at
// position, most-recent-definition-first, with every section that matches
// position included (spec.md §4.2, §8: classes expose all members
// regardless of position).
func (s *Store) ContentAt(parent ID, name string, position int) []ID {
	pe, ok := s.Get(parent)
	if !ok || pe.sections == nil {
		return nil
	}
	entries := pe.children[name]
	if len(entries) == 0 {
		return nil
	}
	if pe.kind == KindClass {
		out := make([]ID, 0, len(entries))
		for i := len(entries) - 1; i >= 0; i-- {
			out = append(out, entries[i].entity)
		}
		return out
	}
	matching := pe.sections.GetSectionsFor(position)
	matchSet := make(map[SectionID]bool, len(matching))
	for _, m := range matching {
		matchSet[m] = true
	}
	var out []ID
	for i := len(entries) - 1; i >= 0; i-- {
		if !matchSet[entries[i].section] {
			continue
		}
		ce, ok := s.Get(entries[i].entity)
		if !ok {
			continue
		}
		// A content definition lying strictly after the queried position is
		// not yet bound there; module-tree children (a package's files and
		// sub-packages) carry no range and are visible at any position.
		if ce.kind.IsContentEntity() && ce.rng.Start > position {
			continue
		}
		out = append(out, entries[i].entity)
	}
	return out
}

// OpenSection opens a new lexical section within a container's Section
// Index and returns its id (spec.md §4.2).
func (s *Store) OpenSection(container ID, start, end int) SectionID {
	e := s.MustGet(container)
	if e.sections == nil {
		e.sections = newSectionIndex(end)
	}
	return e.sections.OpenSection(start, end)
}

// GetSectionFor returns the sections of container whose region contains
// offset (spec.md §4.2 get_section_for).
func (s *Store) GetSectionFor(container ID, offset int) []SectionID {
	e := s.MustGet(container)
	if e.sections == nil {
		return []SectionID{0}
	}
	return e.sections.GetSectionsFor(offset)
}

// LinkAt explicitly binds name to id under parent at the section containing
// position, rather than at addContent's start-of-range default.
func (s *Store) LinkAt(parent ID, name string, position int, id ID) {
	pe := s.MustGet(parent)
	secs := []SectionID{0}
	if pe.sections != nil {
		secs = pe.sections.GetSectionsFor(position)
	}
	s.link(parent, name, secs[0], id)
}
