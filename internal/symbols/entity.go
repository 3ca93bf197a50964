package symbols

import "odools/internal/stage"

// FileLikeID is an ID known (checked once, at the API boundary) to name a
// File or Package entity — the only kinds permitted to carry BuildStatus,
// not_found_paths, and dependency edges (spec.md §3 I2). Obtaining one
// requires Store.AsFileLike; callers cannot manufacture one from a bare ID,
// so a misuse that would violate I2 is caught where the handle is minted,
// not deep inside the dependency graph.
type FileLikeID struct{ id ID }

// ID returns the underlying generic handle.
func (f FileLikeID) ID() ID { return f.id }

// ContainerID is an ID known to name an entity that owns a children map and
// Section Index (Root, Namespace, Package, File, Class, Function).
type ContainerID struct{ id ID }

func (c ContainerID) ID() ID { return c.id }

// ContentID is an ID known to name a Class/Function/Variable (carries
// Range/ast_indexes/doc_string/evaluations, spec.md §3 I3).
type ContentID struct{ id ID }

func (c ContentID) ID() ID { return c.id }

// child is one entry in a container's children map: an entity plus the
// section under which it was bound.
type child struct {
	section SectionID
	entity  ID
}

// Entity is the single heterogeneous symbol-graph node (spec.md §3, §9).
// Fields below are grouped by which Kind values populate them; reading or
// writing a field outside its group for the entity's actual Kind is a
// programming error surfaced by the Must* helpers, not silently tolerated.
type Entity struct {
	id         ID
	kind       Kind
	name       string
	parent     ID // weak; Nil for Root
	isExternal bool
	paths      []string

	// content entities (Class, Function, Variable)
	rng         Range
	astIndexes  []int
	docString   string
	evaluations []Evaluation

	// file-like entities (File, PythonPackage, Module)
	buildStatus   [stage.NumStages]stage.BuildStatus
	notFoundPaths [stage.NumStages][]string

	// container entities (Root, Namespace, Package, File, Class, Function):
	// name -> ordered list of (section, child) pairs sharing that name.
	children map[string][]child
	sections *sectionIndex

	// Namespace only: additional physical directories merged under this
	// logical name (spec.md §3 "Namespace carries a list of directories").
	directories []string

	// Package(Module) only
	moduleInfo *ModuleInfo

	// Root only
	workspaceRoots []string
}

func (e *Entity) ID() ID       { return e.id }
func (e *Entity) Kind() Kind   { return e.kind }
func (e *Entity) Name() string { return e.name }
func (e *Entity) Parent() ID   { return e.parent }
func (e *Entity) IsExternal() bool {
	return e.isExternal
}
func (e *Entity) SetExternal(v bool) { e.isExternal = v }
func (e *Entity) Paths() []string    { return e.paths }
func (e *Entity) AddPath(p string)   { e.paths = append(e.paths, p) }

// --- content-entity accessors ---

func (e *Entity) mustBeContent() {
	if !e.kind.IsContentEntity() {
		panic("symbols: " + e.kind.String() + " is not a content entity")
	}
}

func (e *Entity) Range() Range {
	e.mustBeContent()
	return e.rng
}

func (e *Entity) SetRange(r Range) {
	e.mustBeContent()
	e.rng = r
}

func (e *Entity) ASTIndexes() []int {
	e.mustBeContent()
	return e.astIndexes
}

func (e *Entity) SetASTIndexes(idx []int) {
	e.mustBeContent()
	e.astIndexes = idx
}

func (e *Entity) DocString() string {
	e.mustBeContent()
	return e.docString
}

func (e *Entity) SetDocString(s string) {
	e.mustBeContent()
	e.docString = s
}

func (e *Entity) Evaluations() []Evaluation {
	e.mustBeContent()
	return e.evaluations
}

func (e *Entity) SetEvaluations(evals []Evaluation) {
	e.mustBeContent()
	e.evaluations = evals
}

func (e *Entity) AddEvaluation(ev Evaluation) {
	e.mustBeContent()
	e.evaluations = append(e.evaluations, ev)
}

// --- file-like accessors ---

func (e *Entity) mustBeFileLike() {
	if !e.kind.IsFileLike() {
		panic("symbols: " + e.kind.String() + " is not a file-like entity")
	}
}

func (e *Entity) BuildStatus(s stage.Stage) stage.BuildStatus {
	e.mustBeFileLike()
	return e.buildStatus[s.Index()]
}

func (e *Entity) SetBuildStatus(s stage.Stage, v stage.BuildStatus) {
	e.mustBeFileLike()
	e.buildStatus[s.Index()] = v
}

func (e *Entity) NotFoundPaths(s stage.Stage) []string {
	e.mustBeFileLike()
	return e.notFoundPaths[s.Index()]
}

func (e *Entity) AddNotFoundPath(s stage.Stage, path string) {
	e.mustBeFileLike()
	e.notFoundPaths[s.Index()] = append(e.notFoundPaths[s.Index()], path)
}

func (e *Entity) ClearNotFoundPaths(s stage.Stage) {
	e.mustBeFileLike()
	e.notFoundPaths[s.Index()] = nil
}

func (e *Entity) ModuleInfo() *ModuleInfo {
	if e.kind != KindModule {
		panic("symbols: " + e.kind.String() + " is not a Module")
	}
	return e.moduleInfo
}

func (e *Entity) SetModuleInfo(mi *ModuleInfo) {
	if e.kind != KindModule {
		panic("symbols: " + e.kind.String() + " is not a Module")
	}
	e.moduleInfo = mi
}

// --- namespace / root accessors ---

func (e *Entity) Directories() []string {
	if e.kind != KindNamespace {
		panic("symbols: " + e.kind.String() + " is not a Namespace")
	}
	return e.directories
}

func (e *Entity) WorkspaceRoots() []string {
	if e.kind != KindRoot {
		panic("symbols: " + e.kind.String() + " is not Root")
	}
	return e.workspaceRoots
}

func (e *Entity) SetWorkspaceRoots(roots []string) {
	if e.kind != KindRoot {
		panic("symbols: " + e.kind.String() + " is not Root")
	}
	e.workspaceRoots = roots
}
