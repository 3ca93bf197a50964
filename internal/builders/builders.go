// Package builders implements the Stage Builders (C6): the four ordered
// passes (ARCH, ARCH_EVAL, ODOO, VALIDATION) that walk the syntax tree and
// update the symbol graph, plus the worklist scheduler that gates each
// stage on its recorded dependencies (spec.md §4.6).
package builders

import (
	"context"
	"fmt"
	"path/filepath"

	"odools/internal/depgraph"
	"odools/internal/eval"
	"odools/internal/model"
	"odools/internal/parse"
	"odools/internal/resolver"
	"odools/internal/symbols"
)

// ReadFile loads the bytes of a source file. Injected so tests don't touch
// a real filesystem; production wiring points this at os.ReadFile.
type ReadFile func(path string) ([]byte, error)

// Builders owns everything the four stage passes need: the graph being
// built, the dependency edges they record, the resolver they consult, the
// framework model registry they populate, and the parser they drive.
type Builders struct {
	store    *symbols.Store
	graph    *depgraph.Graph
	resolver *resolver.Resolver
	models   *model.Registry
	parser   parse.Parser
	read     ReadFile
	root     symbols.ID

	// classBases records each class's resolved base classes, elaborated
	// during ARCH_EVAL. Kept here rather than on the Class entity itself:
	// Evaluations are restricted to Variable/Function entities, so a class's
	// base list — not a reference *from* a Variable/Function — has no
	// Entity field of its own to live on.
	classBases map[symbols.ID][]symbols.ID

	diagnostics map[symbols.ID][]parse.Diagnostic

	evalEngine *eval.Engine
}

// New creates a Builders instance wired to the given components.
func New(root symbols.ID, store *symbols.Store, graph *depgraph.Graph, r *resolver.Resolver, models *model.Registry, parser parse.Parser, read ReadFile) *Builders {
	b := &Builders{
		store:       store,
		graph:       graph,
		resolver:    r,
		models:      models,
		parser:      parser,
		read:        read,
		root:        root,
		classBases:  make(map[symbols.ID][]symbols.ID),
		diagnostics: make(map[symbols.ID][]parse.Diagnostic),
	}
	b.evalEngine = eval.New(store, b)
	return b
}

// Models exposes the Framework Model Registry, e.g. for a resolver's
// get_member_symbol modelClasses callback.
func (b *Builders) Models() *model.Registry { return b.models }

// Bases returns class's resolved base classes in declaration order, for use
// as a resolver.GetMemberSymbol bases callback.
func (b *Builders) Bases(class symbols.ID) []symbols.ID {
	return b.classBases[class]
}

// ModelClasses implements resolver.GetMemberSymbol's modelClasses callback
// (spec.md §4.4 step c): the classes participating in self's declared
// framework model, in module-override order, restricted to modules self's
// own module depends on (or itself). Inheritance through the model registry
// is directional: a class never sees members contributed by a module that
// depends on its own. Returns nil if self declares no model.
func (b *Builders) ModelClasses(self symbols.ID) []symbols.ID {
	name, module, ok := b.models.DeclarationOf(self)
	if !ok {
		return nil
	}
	classes, err := b.models.ClassesVisibleFrom(name, module)
	if err != nil {
		return nil
	}
	return classes
}

// RunArchEval implements eval.Rebuilder, letting the Evaluation Engine
// trigger a synchronous ARCH_EVAL rebuild from follow_ref (spec.md §4.5).
var _ eval.Rebuilder = (*Builders)(nil)

func (b *Builders) addDiagnostic(file symbols.ID, d parse.Diagnostic) {
	b.diagnostics[file] = append(b.diagnostics[file], d)
}

// DrainDiagnostics implements the external drain_diagnostics() contract
// (spec.md §6): returns diagnostics produced by the most recent VALIDATION
// pass on each file, then clears them.
func (b *Builders) DrainDiagnostics() map[symbols.ID][]parse.Diagnostic {
	out := b.diagnostics
	b.diagnostics = make(map[symbols.ID][]parse.Diagnostic)
	return out
}

// clearContent removes every Class/Function/Variable (and nested
// descendants) parented directly or transitively under parent, unregistering
// any class found along the way from the Framework Model Registry. Run at
// the start of each ARCH pass so a rebuild replaces a file's declarations
// instead of accumulating duplicates across edits (spec.md §8: invalidating
// and rebuilding a file must converge to the same graph a fresh build would
// produce).
func (b *Builders) clearContent(parent symbols.ID) {
	for _, child := range b.store.AllChildren(parent) {
		ce, ok := b.store.Get(child)
		if !ok || !ce.Kind().IsContentEntity() {
			continue
		}
		b.clearContent(child)
		if ce.Kind() == symbols.KindClass {
			b.models.Unregister(child)
		}
		delete(b.classBases, child)
		b.store.Remove(child)
	}
}

// initFileName is the source file a Package's own content comes from: a
// Package entity's recorded path is its directory. Packages formed around
// an interface-declaration init fall back to the stub.
const (
	initFileName     = "__init__.py"
	initStubFileName = "__init__.pyi"
)

func (b *Builders) readAndParse(ctx context.Context, file symbols.ID) (*parse.Tree, []byte, error) {
	ent := b.store.MustGet(file)
	paths := ent.Paths()
	if len(paths) == 0 {
		return nil, nil, fmt.Errorf("builders: entity %s has no path", file)
	}
	path := paths[0]
	if ent.Kind().IsPackage() {
		path = filepath.Join(paths[0], initFileName)
		if _, err := b.read(path); err != nil {
			path = filepath.Join(paths[0], initStubFileName)
		}
	}
	content, err := b.read(path)
	if err != nil {
		return nil, nil, fmt.Errorf("builders: reading %s: %w", path, err)
	}
	tree, err := b.parser.Parse(ctx, content)
	if err != nil {
		return nil, content, fmt.Errorf("builders: parsing %s: %w", path, err)
	}
	return tree, content, nil
}

