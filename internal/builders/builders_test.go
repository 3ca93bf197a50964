package builders

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/goleak"

	"odools/internal/depgraph"
	"odools/internal/model"
	"odools/internal/parse"
	"odools/internal/resolver"
	"odools/internal/stage"
	"odools/internal/symbols"
)

// TestMain guards the worklist drain tests below against goroutine leaks
// from the scheduler, matching the teacher's own internal/core/kernel_test.go.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func memReader(files map[string][]byte) ReadFile {
	return func(path string) ([]byte, error) {
		c, ok := files[path]
		if !ok {
			return nil, fmt.Errorf("no such file: %s", path)
		}
		return c, nil
	}
}

// Drives the full ARCH -> ARCH_EVAL -> ODOO -> VALIDATION pipeline across
// two files: a.py declares a base class, b.py imports it and subclasses it.
// Exercises cross-file dependency gating, base-class elaboration via the
// resolver, and that a clean resolve produces no diagnostics.
func TestPipelineResolvesCrossFileBaseClass(t *testing.T) {
	store := symbols.NewStore()
	root := store.NewRoot()
	graph := depgraph.New(store)
	res := resolver.New(store)
	models := model.New(store)
	parser := parse.NewPythonParser()

	files := map[string][]byte{
		"virtual://a.py": []byte("class Base:\n    x = 1\n"),
		"virtual://b.py": []byte("from a import Base\n\n\nclass Foo(Base):\n    pass\n"),
	}

	bl := New(root, store, graph, res, models, parser, memReader(files))

	aID := store.AddFile(root, "a", "virtual://a.py")
	bID := store.AddFile(root, "b", "virtual://b.py")
	aFL, ok := store.AsFileLike(aID)
	if !ok {
		t.Fatalf("a is not file-like")
	}
	bFL, ok := store.AsFileLike(bID)
	if !ok {
		t.Fatalf("b is not file-like")
	}

	sched := NewScheduler(store, graph, bl)
	// Deliberately enqueue b's later stages before a's earlier ones, to
	// prove the scheduler (not enqueue order) enforces the real ordering.
	for _, st := range []stage.Stage{stage.Validation, stage.Odoo, stage.ArchEval, stage.Arch} {
		sched.Enqueue(st, bFL)
		sched.Enqueue(st, aFL)
	}

	sched.Drain(context.Background())

	if n := sched.Pending(); n != 0 {
		t.Fatalf("expected worklists to drain fully, %d items left", n)
	}

	aEnt := store.MustGet(aID)
	bEnt := store.MustGet(bID)
	for _, st := range stage.All {
		if got := aEnt.BuildStatus(st); got != stage.Done {
			t.Errorf("a: expected %s Done, got %s", st, got)
		}
		if got := bEnt.BuildStatus(st); got != stage.Done {
			t.Errorf("b: expected %s Done, got %s", st, got)
		}
	}

	fooIDs := store.Children(bID, "Foo")
	if len(fooIDs) != 1 {
		t.Fatalf("expected exactly one Foo declaration, got %v", fooIDs)
	}
	baseIDs := store.Children(aID, "Base")
	if len(baseIDs) != 1 {
		t.Fatalf("expected exactly one Base declaration, got %v", baseIDs)
	}

	bases := bl.Bases(fooIDs[0])
	if len(bases) != 1 || bases[0] != baseIDs[0] {
		t.Fatalf("expected Foo's resolved base to be Base (%v), got %v", baseIDs[0], bases)
	}

	diags := bl.DrainDiagnostics()
	if len(diags) != 0 {
		t.Fatalf("expected no diagnostics for a clean resolve, got %v", diags)
	}
}

// An import that never resolves should surface as a not_found_path at ARCH
// and as a diagnostic once VALIDATION runs, without blocking the rest of
// the pipeline from completing.
func TestPipelineSurfacesUnresolvedImport(t *testing.T) {
	store := symbols.NewStore()
	root := store.NewRoot()
	graph := depgraph.New(store)
	res := resolver.New(store)
	models := model.New(store)
	parser := parse.NewPythonParser()

	files := map[string][]byte{
		"virtual://b.py": []byte("from missing import Thing\n"),
	}
	bl := New(root, store, graph, res, models, parser, memReader(files))

	bID := store.AddFile(root, "b", "virtual://b.py")
	bFL, _ := store.AsFileLike(bID)

	sched := NewScheduler(store, graph, bl)
	for _, st := range stage.All {
		sched.Enqueue(st, bFL)
	}
	sched.Drain(context.Background())

	bEnt := store.MustGet(bID)
	if bEnt.BuildStatus(stage.Validation) != stage.Done {
		t.Fatalf("expected VALIDATION to still complete, got %s", bEnt.BuildStatus(stage.Validation))
	}
	if len(bEnt.NotFoundPaths(stage.Arch)) == 0 {
		t.Fatalf("expected a not_found_path recorded at ARCH for the unresolvable import")
	}

	diags := bl.DrainDiagnostics()
	if len(diags[bID]) == 0 {
		t.Fatalf("expected a diagnostic surfaced for the unresolved import, got none")
	}
}

// A resolved import binding must stay marked as import-originated so a
// stop_on_type follow still expands through it to the imported symbol
// instead of stopping at the binding variable.
func TestArchEvalKeepsImportOriginOnResolvedBinding(t *testing.T) {
	store := symbols.NewStore()
	root := store.NewRoot()
	graph := depgraph.New(store)
	res := resolver.New(store)
	models := model.New(store)
	parser := parse.NewPythonParser()

	files := map[string][]byte{
		"virtual://a.py": []byte("class Base:\n    pass\n"),
		"virtual://b.py": []byte("from a import Base\n"),
	}
	bl := New(root, store, graph, res, models, parser, memReader(files))

	aID := store.AddFile(root, "a", "virtual://a.py")
	bID := store.AddFile(root, "b", "virtual://b.py")
	aFL, _ := store.AsFileLike(aID)
	bFL, _ := store.AsFileLike(bID)

	sched := NewScheduler(store, graph, bl)
	for _, st := range stage.All {
		sched.Enqueue(st, aFL)
		sched.Enqueue(st, bFL)
	}
	sched.Drain(context.Background())

	binding := store.Children(bID, "Base")
	if len(binding) != 1 {
		t.Fatalf("expected one import binding for Base, got %v", binding)
	}
	evals := store.MustGet(binding[0]).Evaluations()
	if len(evals) != 1 || !evals[0].IsImport() || evals[0].Target.IsNil() {
		t.Fatalf("expected a resolved, import-marked evaluation, got %+v", evals)
	}

	baseClass := store.Children(aID, "Base")[0]
	refs := bl.evalEngine.FollowRef(context.Background(), binding[0], true, false)
	if len(refs) != 1 || refs[0].Entity != baseClass {
		t.Fatalf("expected stop_on_type follow to expand through the import to Base, got %v", refs)
	}
}

// A Package's own ARCH pass parses the package's init file, so an import of
// a name the init re-exports resolves and the dependency edge lands on the
// package entity.
func TestArchParsesPackageInitContent(t *testing.T) {
	store := symbols.NewStore()
	root := store.NewRoot()
	graph := depgraph.New(store)
	res := resolver.New(store)
	models := model.New(store)
	parser := parse.NewPythonParser()

	files := map[string][]byte{
		"/ws/pkg/__init__.py": []byte("helper = 1\n"),
		"/ws/b.py":            []byte("from pkg import helper\ny = helper\n"),
	}
	bl := New(root, store, graph, res, models, parser, memReader(files))

	pkgID := store.AddPythonPackage(root, "pkg", "/ws/pkg")
	bID := store.AddFile(root, "b", "/ws/b.py")
	pkgFL, _ := store.AsFileLike(pkgID)
	bFL, _ := store.AsFileLike(bID)

	sched := NewScheduler(store, graph, bl)
	for _, st := range stage.All {
		sched.Enqueue(st, bFL)
		sched.Enqueue(st, pkgFL)
	}
	sched.Drain(context.Background())

	if got := store.MustGet(pkgID).BuildStatus(stage.Validation); got != stage.Done {
		t.Fatalf("expected the package to build through VALIDATION, got %s", got)
	}
	helper := store.Children(pkgID, "helper")
	if len(helper) != 1 {
		t.Fatalf("expected the init binding to live on the package entity, got %v", helper)
	}

	deps := graph.Dependencies(bFL, stage.ArchEval, stage.Arch)
	foundPkg := false
	for _, d := range deps {
		if d.ID() == pkgID {
			foundPkg = true
		}
	}
	if !foundPkg {
		t.Fatalf("expected b's ARCH_EVAL to depend on pkg's ARCH, got %v", deps)
	}

	refs := bl.evalEngine.FollowRef(context.Background(), store.Children(bID, "y")[0], false, true)
	if len(refs) != 1 || refs[0].Entity != helper[0] {
		t.Fatalf("expected follow(y) to land on pkg.helper, got %v", refs)
	}
}

// Registers two classes declaring the same framework model across a
// dependency pair of modules and checks ODOO wired them into the Model
// Registry in override order (spec scenario 2, replicated through the
// builders instead of calling model.Registry directly).
func TestPipelineRegistersModelOverrides(t *testing.T) {
	store := symbols.NewStore()
	root := store.NewRoot()
	graph := depgraph.New(store)
	res := resolver.New(store)
	models := model.New(store)
	parser := parse.NewPythonParser()

	files := map[string][]byte{
		"virtual://m1/models.py": []byte("class C1:\n    _name = \"t\"\n    f = 1\n"),
		"virtual://m2/models.py": []byte("class C2:\n    _inherit = \"t\"\n    g = 2\n"),
	}
	bl := New(root, store, graph, res, models, parser, memReader(files))

	m1 := store.AddModulePackage(root, "m1", "/ws/m1", symbols.ModuleInfo{DirName: "m1"})
	m2 := store.AddModulePackage(root, "m2", "/ws/m2", symbols.ModuleInfo{DirName: "m2", Dependencies: []string{"m1"}})
	f1 := store.AddFile(m1, "models", "virtual://m1/models.py")
	f2 := store.AddFile(m2, "models", "virtual://m2/models.py")
	fl1, _ := store.AsFileLike(f1)
	fl2, _ := store.AsFileLike(f2)

	sched := NewScheduler(store, graph, bl)
	for _, st := range stage.All {
		sched.Enqueue(st, fl1)
		sched.Enqueue(st, fl2)
	}
	sched.Drain(context.Background())

	order, err := models.ClassesInOverrideOrder("t")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c2 := store.Children(f2, "C2")[0]
	c1 := store.Children(f1, "C1")[0]
	if len(order) != 2 || order[0] != c2 || order[1] != c1 {
		t.Fatalf("expected [C2, C1] override order, got %v (c1=%v c2=%v)", order, c1, c2)
	}
}
