package symbols

import "testing"

func TestNewRootHasNilParent(t *testing.T) {
	s := NewStore()
	root := s.NewRoot()
	e := s.MustGet(root)
	if e.Kind() != KindRoot {
		t.Fatalf("expected KindRoot, got %s", e.Kind())
	}
	if !e.Parent().IsNil() {
		t.Fatalf("expected Root to have nil parent")
	}
}

func TestAddFileUnderRoot(t *testing.T) {
	s := NewStore()
	root := s.NewRoot()
	f := s.AddFile(root, "foo.py", "/ws/foo.py")
	e := s.MustGet(f)
	if e.Kind() != KindFile {
		t.Fatalf("expected KindFile, got %s", e.Kind())
	}
	kids := s.Children(root, "foo.py")
	if len(kids) != 1 || kids[0] != f {
		t.Fatalf("expected root to list foo.py as a child, got %v", kids)
	}
}

func TestCanContainViolationPanics(t *testing.T) {
	s := NewStore()
	root := s.NewRoot()
	f := s.AddFile(root, "foo.py", "/ws/foo.py")

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected panic adding a Module under a File")
		}
	}()
	s.AddModulePackage(f, "sale", "/ws/foo.py/sale", ModuleInfo{DirName: "sale"})
}

func TestModuleRegistryRoundTrip(t *testing.T) {
	s := NewStore()
	root := s.NewRoot()
	m := s.AddModulePackage(root, "sale", "/ws/addons/sale", ModuleInfo{DirName: "sale", Dependencies: []string{"base"}})

	got, ok := s.ModuleByDirName("sale")
	if !ok || got != m {
		t.Fatalf("expected module registry to resolve 'sale' to %v, got %v ok=%v", m, got, ok)
	}

	s.Remove(m)
	if _, ok := s.ModuleByDirName("sale"); ok {
		t.Fatalf("expected module registry entry to be cleared after Remove")
	}
	if _, ok := s.Get(m); ok {
		t.Fatalf("expected removed module id to no longer resolve")
	}
}

func TestNamespaceMerging(t *testing.T) {
	s := NewStore()
	root := s.NewRoot()
	ns1 := s.AddNamespace(root, "addons", "/ws/addons")
	ns2 := s.AddNamespace(root, "addons", "/ws2/addons")

	if ns1 != ns2 {
		t.Fatalf("expected a second add_namespace with the same name to extend the existing one")
	}
	dirs := s.MustGet(ns1).Directories()
	if len(dirs) != 2 {
		t.Fatalf("expected 2 directories, got %v", dirs)
	}
}

func TestRemoveStaleID(t *testing.T) {
	s := NewStore()
	root := s.NewRoot()
	f := s.AddFile(root, "foo.py", "/ws/foo.py")
	s.Remove(f)

	if _, ok := s.Get(f); ok {
		t.Fatalf("expected stale id to not resolve after removal")
	}
	if kids := s.Children(root, "foo.py"); len(kids) != 0 {
		t.Fatalf("expected root to no longer list foo.py, got %v", kids)
	}

	// Allocating a new entity may reuse the freed slot index, but the
	// generation must differ so the old handle stays stale.
	g := s.AddFile(root, "bar.py", "/ws/bar.py")
	if g.index == f.index && g.generation == f.generation {
		t.Fatalf("expected reused slot to bump generation")
	}
	if _, ok := s.Get(f); ok {
		t.Fatalf("old handle must not resolve to the new entity even if the slot was reused")
	}
}

func TestAsFileLikeRejectsNonFileLike(t *testing.T) {
	s := NewStore()
	root := s.NewRoot()
	if _, ok := s.AsFileLike(root); ok {
		t.Fatalf("Root must not be FileLike")
	}
	f := s.AddFile(root, "foo.py", "/ws/foo.py")
	if _, ok := s.AsFileLike(f); !ok {
		t.Fatalf("File must be FileLike")
	}
}

func TestAsContainerAndAsContent(t *testing.T) {
	s := NewStore()
	root := s.NewRoot()
	f := s.AddFile(root, "foo.py", "/ws/foo.py")
	s.SetFileLength(f, 100)
	cls := s.AddClass(f, "Foo", Range{Start: 0, End: 50})

	if _, ok := s.AsContainer(cls); !ok {
		t.Fatalf("Class must be a container")
	}
	if _, ok := s.AsContent(cls); !ok {
		t.Fatalf("Class must also be addressable as content")
	}
	fn := s.AddFunction(cls, "bar", Range{Start: 10, End: 20})
	if _, ok := s.AsContent(fn); !ok {
		t.Fatalf("Function must be content")
	}
	if _, ok := s.AsFileLike(fn); ok {
		t.Fatalf("Function must not be FileLike")
	}
}

func TestContentAtPositionFiltering(t *testing.T) {
	s := NewStore()
	root := s.NewRoot()
	f := s.AddFile(root, "foo.py", "/ws/foo.py")
	s.SetFileLength(f, 200)

	// Two branches of an if/else, each opening its own section, both
	// defining a function named "handler".
	thenSec := s.OpenSection(f, 0, 100)
	elseSec := s.OpenSection(f, 100, 200)

	h1 := s.AddFunction(f, "handler", Range{Start: 10, End: 20})
	s.LinkAt(f, "handler", 10, h1) // redundant with addContent's own link, exercises LinkAt directly
	_ = thenSec

	h2Entity := &Entity{kind: KindFunction, parent: f, name: "handler", rng: Range{Start: 110, End: 120}}
	h2 := s.alloc(h2Entity)
	s.link(f, "handler", elseSec, h2)

	atThen := s.ContentAt(f, "handler", 15)
	atElse := s.ContentAt(f, "handler", 115)

	foundThen := false
	for _, id := range atThen {
		if id == h1 {
			foundThen = true
		}
		if id == h2 {
			t.Fatalf("else-branch handler should not be visible from the then-branch position")
		}
	}
	if !foundThen {
		t.Fatalf("expected then-branch handler visible at position 15")
	}

	foundElse := false
	for _, id := range atElse {
		if id == h2 {
			foundElse = true
		}
	}
	if !foundElse {
		t.Fatalf("expected else-branch handler visible at position 115")
	}
}

func TestContentAtHidesDefinitionsAfterPosition(t *testing.T) {
	s := NewStore()
	root := s.NewRoot()
	f := s.AddFile(root, "foo.py", "/ws/foo.py")
	s.SetFileLength(f, 100)

	// Both bindings live in the outermost section; only the one at or
	// before the queried position is visible.
	early := s.AddVariable(f, "x", Range{Start: 0, End: 10})
	late := s.AddVariable(f, "x", Range{Start: 60, End: 70})

	got := s.ContentAt(f, "x", 30)
	if len(got) != 1 || got[0] != early {
		t.Fatalf("expected only the earlier binding visible at 30, got %v", got)
	}

	got = s.ContentAt(f, "x", 65)
	if len(got) != 2 || got[0] != late {
		t.Fatalf("expected both bindings at 65, most recent first, got %v", got)
	}

	if got := s.ContentAt(f, "x", 0); len(got) != 1 || got[0] != early {
		t.Fatalf("expected the offset-0 binding visible at offset 0, got %v", got)
	}
}

func TestGetSectionForIsTotalAtBoundaries(t *testing.T) {
	s := NewStore()
	root := s.NewRoot()
	f := s.AddFile(root, "foo.py", "/ws/foo.py")
	s.SetFileLength(f, 100)
	s.OpenSection(f, 40, 80)

	if secs := s.GetSectionFor(f, 0); len(secs) != 1 || secs[0] != 0 {
		t.Fatalf("expected only the outermost section at offset 0, got %v", secs)
	}
	if secs := s.GetSectionFor(f, 100); len(secs) != 1 || secs[0] != 0 {
		t.Fatalf("expected the outermost section at offset >= length, got %v", secs)
	}
	if secs := s.GetSectionFor(f, 50); len(secs) != 2 || secs[0] == 0 {
		t.Fatalf("expected the inner section first at offset 50, got %v", secs)
	}
}

func TestClassMembersVisibleRegardlessOfPosition(t *testing.T) {
	s := NewStore()
	root := s.NewRoot()
	f := s.AddFile(root, "foo.py", "/ws/foo.py")
	s.SetFileLength(f, 100)
	cls := s.AddClass(f, "Foo", Range{Start: 0, End: 100})

	method := s.AddFunction(cls, "bar", Range{Start: 50, End: 60})

	// Query a position before the method's own range — classes expose all
	// members regardless of definition order (spec.md §8).
	got := s.ContentAt(cls, "bar", 5)
	found := false
	for _, id := range got {
		if id == method {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected class method visible regardless of query position")
	}
}

func TestRemoveDoesNotRecurseIntoChildren(t *testing.T) {
	s := NewStore()
	root := s.NewRoot()
	f := s.AddFile(root, "foo.py", "/ws/foo.py")
	s.SetFileLength(f, 50)
	cls := s.AddClass(f, "Foo", Range{Start: 0, End: 50})

	s.Remove(f)

	if _, ok := s.Get(f); ok {
		t.Fatalf("expected file to be removed")
	}
	if _, ok := s.Get(cls); !ok {
		t.Fatalf("Remove must not recurse into children; that is the Invalidation Engine's job")
	}
}
