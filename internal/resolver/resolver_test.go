package resolver

import (
	"testing"

	"odools/internal/symbols"
)

func TestGetModuleSymbolWalksPackageTree(t *testing.T) {
	store := symbols.NewStore()
	root := store.NewRoot()
	pkg := store.AddPythonPackage(root, "pkg", "/ws/pkg")
	file := store.AddFile(pkg, "mod.py", "/ws/pkg/mod.py")

	r := New(store)
	got := r.GetSymbol(root, Path{ModuleSegments: []string{"pkg", "mod.py"}}, 0)
	if len(got) != 1 || got[0] != file {
		t.Fatalf("expected get_symbol to resolve pkg.mod.py to the file, got %v", got)
	}
}

func TestGetSymbolResolvesContentSegment(t *testing.T) {
	store := symbols.NewStore()
	root := store.NewRoot()
	file := store.AddFile(root, "mod.py", "/ws/mod.py")
	store.SetFileLength(file, 100)
	cls := store.AddClass(file, "Foo", symbols.Range{Start: 0, End: 100})

	r := New(store)
	got := r.GetSymbol(root, Path{ModuleSegments: []string{"mod.py"}, ContentSegments: []string{"Foo"}}, 50)
	if len(got) != 1 || got[0] != cls {
		t.Fatalf("expected get_symbol to resolve mod.py.Foo, got %v", got)
	}
}

func TestGetSymbolMissingSegmentReturnsEmpty(t *testing.T) {
	store := symbols.NewStore()
	root := store.NewRoot()
	r := New(store)

	got := r.GetSymbol(root, Path{ModuleSegments: []string{"nope.py"}}, 0)
	if len(got) != 0 {
		t.Fatalf("expected empty result for an unresolvable module segment, got %v", got)
	}
}

func TestGetMemberSymbolBaseClassFallback(t *testing.T) {
	store := symbols.NewStore()
	root := store.NewRoot()
	file := store.AddFile(root, "mod.py", "/ws/mod.py")
	store.SetFileLength(file, 200)
	base := store.AddClass(file, "Base", symbols.Range{Start: 0, End: 50})
	store.AddVariable(base, "shared", symbols.Range{Start: 10, End: 20})
	derived := store.AddClass(file, "Derived", symbols.Range{Start: 60, End: 100})

	r := New(store)
	bases := func(self symbols.ID) []symbols.ID {
		if self == derived {
			return []symbols.ID{base}
		}
		return nil
	}

	got := r.GetMemberSymbol(derived, "shared", root, false, false, nil, bases)
	if len(got) != 1 {
		t.Fatalf("expected derived class to inherit 'shared' from its base, got %v", got)
	}
}

func TestGetMemberSymbolAllReturnsEveryOverride(t *testing.T) {
	store := symbols.NewStore()
	root := store.NewRoot()
	file := store.AddFile(root, "mod.py", "/ws/mod.py")
	store.SetFileLength(file, 200)
	base := store.AddClass(file, "Base", symbols.Range{Start: 0, End: 50})
	baseF := store.AddVariable(base, "f", symbols.Range{Start: 10, End: 20})
	derived := store.AddClass(file, "Derived", symbols.Range{Start: 60, End: 100})
	derivedF := store.AddVariable(derived, "f", symbols.Range{Start: 70, End: 80})

	r := New(store)
	bases := func(self symbols.ID) []symbols.ID {
		if self == derived {
			return []symbols.ID{base}
		}
		return nil
	}

	got := r.GetMemberSymbol(derived, "f", root, false, false, nil, bases)
	if len(got) != 1 {
		t.Fatalf("expected non-all call to return only the first hit, got %v", got)
	}

	gotAll := r.GetMemberSymbol(derived, "f", root, false, true, nil, bases)
	if len(gotAll) != 2 || gotAll[0] != derivedF || gotAll[1] != baseF {
		// With all=true the search goes on past derived's own "f" into its
		// base class; the effective override (derived's) comes first.
		t.Fatalf("expected derived's f followed by base's f, got %v", gotAll)
	}
}

func TestInferNameScopeWalk(t *testing.T) {
	store := symbols.NewStore()
	root := store.NewRoot()
	builtinsPkg := store.AddPythonPackage(root, "builtins", "/ws/builtins")
	// A package's init bindings live on the Package entity itself.
	store.SetFileLength(builtinsPkg, 50)
	store.AddVariable(builtinsPkg, "len", symbols.Range{Start: 0, End: 10})

	file := store.AddFile(root, "mod.py", "/ws/mod.py")
	store.SetFileLength(file, 100)
	fn := store.AddFunction(file, "f", symbols.Range{Start: 0, End: 100})

	r := New(store)
	got := r.InferName(root, fn, "len", 5)
	if len(got) != 1 {
		t.Fatalf("expected infer_name to fall back to builtins, got %v", got)
	}
}

func TestInferNameLocalScopeWinsOverBuiltins(t *testing.T) {
	store := symbols.NewStore()
	root := store.NewRoot()
	file := store.AddFile(root, "mod.py", "/ws/mod.py")
	store.SetFileLength(file, 100)
	fn := store.AddFunction(file, "f", symbols.Range{Start: 0, End: 100})
	local := store.AddVariable(fn, "x", symbols.Range{Start: 10, End: 20})

	r := New(store)
	got := r.InferName(root, fn, "x", 15)
	if len(got) != 1 || got[0] != local {
		t.Fatalf("expected infer_name to find the local binding first, got %v", got)
	}
}
