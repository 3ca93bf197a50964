package symbols

// Kind is the tag of the single heterogeneous entity variant (spec.md §3,
// §9 "tagged variants vs. object hierarchy").
type Kind int

const (
	KindRoot Kind = iota
	KindNamespace
	KindPythonPackage
	KindModule
	KindFile
	KindCompiled
	KindClass
	KindFunction
	KindVariable
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "Root"
	case KindNamespace:
		return "Namespace"
	case KindPythonPackage:
		return "PythonPackage"
	case KindModule:
		return "Module"
	case KindFile:
		return "File"
	case KindCompiled:
		return "Compiled"
	case KindClass:
		return "Class"
	case KindFunction:
		return "Function"
	case KindVariable:
		return "Variable"
	default:
		return "Unknown"
	}
}

// IsPackage reports whether k is one of the two Package variants.
func (k Kind) IsPackage() bool { return k == KindPythonPackage || k == KindModule }

// IsFileLike reports whether k carries BuildStatus/not_found_paths/dependency
// edges (spec.md §3: "File-like entities (File, Package)").
func (k Kind) IsFileLike() bool { return k == KindFile || k.IsPackage() }

// IsContainer reports whether k owns a Section Index and a children map
// (spec.md §3: "Container entities (File, Package, Class, Function)").
// Root and Namespace also own a children map (for the module tree) though
// spec.md's container table only lists them as parents, not as "container
// entities" in the content sense — they never own content children and
// never need a Section Index of their own.
func (k Kind) IsContainer() bool {
	return k == KindFile || k.IsPackage() || k == KindClass || k == KindFunction
}

// IsModuleTreeContainer reports whether k can hold Package/Namespace/File/
// Compiled children addressed by get_module_symbol (Root, Namespace, Package).
func (k Kind) IsModuleTreeContainer() bool {
	return k == KindRoot || k == KindNamespace || k.IsPackage()
}

// IsContentEntity reports whether k carries Range/ast_indexes/doc_string/
// evaluations (spec.md §3: "Content entities").
func (k Kind) IsContentEntity() bool {
	return k == KindClass || k == KindFunction || k == KindVariable
}

// CanContain reports whether parent may directly own a child of kind child,
// per the container dispatch table in spec.md §4.1. Any other combination is
// a programming error at the call site, not a silent acceptance.
func (parent Kind) CanContain(child Kind) bool {
	switch parent {
	case KindRoot, KindNamespace:
		return child == KindPythonPackage || child == KindModule || child == KindNamespace ||
			child == KindFile || child == KindCompiled
	case KindPythonPackage, KindModule:
		return child == KindPythonPackage || child == KindModule || child == KindNamespace ||
			child == KindFile || child == KindCompiled ||
			child == KindClass || child == KindFunction || child == KindVariable
	case KindFile, KindClass, KindFunction:
		return child == KindClass || child == KindFunction || child == KindVariable
	case KindCompiled:
		return child == KindCompiled
	default:
		return false
	}
}
