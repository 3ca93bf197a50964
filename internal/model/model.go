// Package model implements the Framework Model Registry consulted by the
// ODOO stage builder and the Name Resolver's get_member_symbol (spec.md
// §4.4 step c, §4.6 step 3): tracking which classes across which modules
// declare a given framework model name, and the inheritance order that
// determines which declaration's fields/methods win on conflict.
//
// The inheritance order is computed as a genuine Datalog query over the
// module dependency graph, rather than a hand-rolled topological sort, the
// way the Mangle-based fact engine elsewhere in this codebase answers
// derived-relationship questions.
package model

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	"github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"

	"odools/internal/logging"
	"odools/internal/symbols"
)

// orderRules declares how module override rank is derived from the
// declared dependency graph: a module's rank is the number of other
// participating modules it transitively depends on, so a module loaded
// later (deeper in the dependency chain) outranks its bases.
const orderRules = `
Decl participates(Module).
Decl module_dep(Module, Dep).
Decl depends_on_participant(Module, Dep).
Decl reaches(Module, Dep).
Decl rank(Module, Count).

depends_on_participant(M, D) :- module_dep(M, D), participates(D).
reaches(M, D) :- depends_on_participant(M, D).
reaches(M, D) :- depends_on_participant(M, X), reaches(X, D).
rank(M, Count) :-
    reaches(M, D) |>
    do fn:group_by(M),
    let Count = fn:count().
`

// Declaration is one class participating in a named framework model.
type Declaration struct {
	Class  symbols.ID
	Module string // dir_name of the owning Module entity
}

// Registry owns the model_name -> [class] map and the module dependency
// graph used to order entries within a model (spec.md §9 "Process-wide
// registries... owned by a Session struct threaded through all
// operations").
type Registry struct {
	store       *symbols.Store
	models      map[string][]Declaration
	moduleDeps  map[string][]string // dir_name -> direct dependency dir_names
	seenModules map[string]bool
}

// New creates an empty Framework Model Registry over store.
func New(store *symbols.Store) *Registry {
	return &Registry{
		store:       store,
		models:      make(map[string][]Declaration),
		moduleDeps:  make(map[string][]string),
		seenModules: make(map[string]bool),
	}
}

// RegisterModule records a Module's declared dependencies, consulted when
// ordering model declarations. Called once per Module as the ODOO builder
// visits it.
func (r *Registry) RegisterModule(dirName string, dependencies []string) {
	if r.seenModules[dirName] {
		return
	}
	r.seenModules[dirName] = true
	r.moduleDeps[dirName] = dependencies
}

// Register attaches class (declared in module dirName) to modelName. Called
// by the ODOO stage builder for every class that declares a model name
// (spec.md §4.6 step 3).
func (r *Registry) Register(modelName string, class symbols.ID, dirName string) {
	for _, d := range r.models[modelName] {
		if d.Class == class {
			return
		}
	}
	r.models[modelName] = append(r.models[modelName], Declaration{Class: class, Module: dirName})
}

// DeclarationOf returns the framework model name and owning module dir_name
// class was registered under, for use by resolver.GetMemberSymbol's step
// (c): given a class, find the model it declares and the module whose
// dependency closure bounds which other participants it may see.
func (r *Registry) DeclarationOf(class symbols.ID) (modelName, module string, ok bool) {
	for name, decls := range r.models {
		for _, d := range decls {
			if d.Class == class {
				return name, d.Module, true
			}
		}
	}
	return "", "", false
}

// Unregister removes class from every model it was registered under
// (called during unload/invalidation when a class entity is removed).
func (r *Registry) Unregister(class symbols.ID) {
	for name, decls := range r.models {
		out := decls[:0]
		for _, d := range decls {
			if d.Class != class {
				out = append(out, d)
			}
		}
		r.models[name] = out
	}
}

// ClassesInOverrideOrder returns every class participating in modelName,
// ordered so the first element is the effective override (spec.md §4.4:
// "ordered by module dependency, see 4.6" and scenario 2: the dependent
// module's declaration wins). Ties (no dependency relation between two
// participants) fall back to declaration order, which is stable and
// deterministic for a given build.
func (r *Registry) ClassesInOverrideOrder(modelName string) ([]symbols.ID, error) {
	return r.orderDeclarations(modelName, r.models[modelName])
}

// ClassesVisibleFrom returns modelName's participants in override order,
// restricted to declarations owned by fromModule or a module fromModule
// transitively depends on. A class in a module that merely depends on
// fromModule extends the model later in load order and is not visible from
// it — member lookup through the model registry is asymmetric the same way
// module inheritance is.
func (r *Registry) ClassesVisibleFrom(modelName, fromModule string) ([]symbols.ID, error) {
	decls := r.models[modelName]
	if len(decls) == 0 {
		return nil, nil
	}
	visible := r.dependencyClosure(fromModule)
	var filtered []Declaration
	for _, d := range decls {
		if visible[d.Module] {
			filtered = append(filtered, d)
		}
	}
	return r.orderDeclarations(modelName, filtered)
}

func (r *Registry) orderDeclarations(modelName string, decls []Declaration) ([]symbols.ID, error) {
	if len(decls) == 0 {
		return nil, nil
	}
	if len(decls) == 1 {
		return []symbols.ID{decls[0].Class}, nil
	}

	ranks, err := r.computeRanks(decls)
	if err != nil {
		return nil, fmt.Errorf("model: computing override order for %q: %w", modelName, err)
	}

	ordered := make([]Declaration, len(decls))
	copy(ordered, decls)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ranks[ordered[i].Module] > ranks[ordered[j].Module]
	})

	out := make([]symbols.ID, len(ordered))
	for i, d := range ordered {
		out[i] = d.Class
	}
	return out, nil
}

// dependencyClosure returns dir plus every module dir transitively reachable
// through declared module dependencies.
func (r *Registry) dependencyClosure(dir string) map[string]bool {
	seen := map[string]bool{dir: true}
	stack := []string{dir}
	for len(stack) > 0 {
		m := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, dep := range r.moduleDeps[m] {
			if !seen[dep] {
				seen[dep] = true
				stack = append(stack, dep)
			}
		}
	}
	return seen
}

// computeRanks runs a small Datalog program computing, for each
// participating module, how many other participating modules it
// transitively depends on (spec.md §4.6: "a total order respecting
// declared module deps").
func (r *Registry) computeRanks(decls []Declaration) (map[string]int, error) {
	timer := logging.StartTimer(logging.CategoryOdoo, "model.computeRanks")
	defer timer.Stop()

	participants := make(map[string]bool, len(decls))
	for _, d := range decls {
		participants[d.Module] = true
	}

	var program strings.Builder
	program.WriteString(orderRules)

	store := factstore.NewSimpleInMemoryStore()
	for m := range participants {
		atom, err := factAtom("participates", m)
		if err != nil {
			return nil, err
		}
		store.Add(atom)
	}
	for m := range participants {
		for _, dep := range r.moduleDeps[m] {
			atom, err := factAtom("module_dep", m, dep)
			if err != nil {
				return nil, err
			}
			store.Add(atom)
		}
	}

	parsed, err := parse.Unit(strings.NewReader(program.String()))
	if err != nil {
		return nil, fmt.Errorf("parsing model order program: %w", err)
	}
	programInfo, err := analysis.AnalyzeOneUnit(parsed, nil)
	if err != nil {
		return nil, fmt.Errorf("analyzing model order program: %w", err)
	}

	if _, err := engine.EvalProgramWithStats(programInfo, store, engine.WithCreatedFactLimit(10000)); err != nil {
		return nil, fmt.Errorf("evaluating model order program: %w", err)
	}

	ranks := make(map[string]int, len(participants))
	for m := range participants {
		ranks[m] = 0
	}
	var queryErr error
	for pred := range programInfo.Decls {
		if pred.Symbol != "rank" {
			continue
		}
		err := store.GetFacts(ast.NewQuery(pred), func(a ast.Atom) error {
			if len(a.Args) != 2 {
				return nil
			}
			mod, ok := a.Args[0].(ast.Constant)
			if !ok || mod.Type != ast.StringType {
				return nil
			}
			count, ok := a.Args[1].(ast.Constant)
			if !ok || count.Type != ast.NumberType {
				return nil
			}
			ranks[mod.Symbol] = int(count.NumValue)
			return nil
		})
		if err != nil {
			queryErr = err
		}
	}
	if queryErr != nil {
		return nil, queryErr
	}
	return ranks, nil
}

func factAtom(predicate string, args ...string) (ast.Atom, error) {
	terms := make([]ast.BaseTerm, len(args))
	for i, a := range args {
		terms[i] = ast.String(a)
	}
	return ast.NewAtom(predicate, terms...), nil
}
