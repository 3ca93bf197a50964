package symbols

// Range is a half-open byte interval [Start, End) into a container's source
// text (spec.md §3: content entities carry "range").
type Range struct {
	Start int
	End   int
}

// Contains reports whether offset lies within the range.
func (r Range) Contains(offset int) bool { return offset >= r.Start && offset < r.End }

// ModuleInfo carries the framework manifest metadata for a Module package
// (spec.md §3: "Module ... carrying module metadata such as dir_name,
// dependencies on other modules, data files").
type ModuleInfo struct {
	DirName      string
	Dependencies []string
	DataFiles    []string
	// InterfaceOnly marks a module whose only init is the interface
	// declaration (a stub), with no runnable init source.
	InterfaceOnly bool
}

// EvaluationKind classifies what an Evaluation's target represents.
type EvaluationKind int

const (
	// EvalValue means the target is the value's type/class — the
	// evaluation's symbol *is an instance of* the target.
	EvalValue EvaluationKind = iota
	// EvalClassRef means the target is referenced directly (the evaluation
	// symbol *is* the target, not an instance of it) — e.g. `Foo = Bar`.
	EvalClassRef
	// EvalImport means the evaluation originated from resolving an import
	// statement; ARCH_EVAL rewrites these to resolved symbols.
	EvalImport
)

// Evaluation is one possible referent attached to a Variable/Function
// (spec.md §3 I3, §4.5). The Target is a weak reference: if the entity it
// names is removed, resolving it through Store.Get reports not-ok instead of
// dangling.
type Evaluation struct {
	Target     ID
	Kind       EvaluationKind
	IsInstance bool
	Literal    interface{} // non-nil when the evaluation carries a literal value
	HasLiteral bool
	// ImportPath is the dotted path or name an ARCH-stage import or ClassRef
	// evaluation refers to. Target stays Nil until ARCH_EVAL resolves it; the
	// path is kept alongside the resolved Target afterwards.
	ImportPath []string
}

// IsImport reports whether this evaluation originated from an import.
func (e Evaluation) IsImport() bool { return e.Kind == EvalImport }

// Unresolved reports whether this evaluation still carries a path/name
// pending resolution rather than a concrete target — true for an ARCH-stage
// import evaluation ARCH_EVAL hasn't rewritten yet, and equally for a plain
// name-reference assignment (`y = x`) ARCH leaves for ARCH_EVAL to resolve
// through the Name Resolver the same way it elaborates class bases.
func (e Evaluation) Unresolved() bool {
	return (e.Kind == EvalImport || e.Kind == EvalClassRef) && e.Target.IsNil()
}
