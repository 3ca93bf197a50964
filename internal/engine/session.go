package engine

import (
	"context"
	"fmt"

	"odools/internal/builders"
	"odools/internal/config"
	"odools/internal/depgraph"
	"odools/internal/discover"
	"odools/internal/eval"
	"odools/internal/invalidate"
	"odools/internal/logging"
	"odools/internal/model"
	"odools/internal/parse"
	"odools/internal/resolver"
	"odools/internal/stage"
	"odools/internal/symbols"
)

// Session owns one workspace's full engine state and is the single thing an
// embedder (CLI, editor-protocol layer) holds onto. It threads the model and
// module registries through every operation rather than exposing them as
// package-level globals (spec.md §9 "Process-wide registries... should be
// owned by a Session struct").
//
// A Session is not safe for concurrent use: every operation below runs on
// the engine's single cooperative worker thread (spec.md §5). An embedder
// serving multiple callers funnels them through one goroutine driving this
// Session, serializing access to a single mutable kernel.
type Session struct {
	cfg   *config.Config
	store *symbols.Store
	graph *depgraph.Graph
	res   *resolver.Resolver
	evalE *eval.Engine
	mdls  *model.Registry
	bld   *builders.Builders
	sched *builders.Scheduler
	inv   *invalidate.Engine
	disc  *discover.Discoverer

	root symbols.ID

	// pathIndex maps an absolute filesystem path to the entity discovery
	// created for it, letting notify_file_changed/notify_file_removed
	// resolve "file_of(path)" (spec.md §6) without a linear store scan.
	pathIndex map[string]symbols.ID
}

// Open implements open_workspace(root_paths) (spec.md §6): creates Root,
// configures logging from cfg, discovers every workspace and external root
// recursively, and runs the Stage Builders to a fixed point before
// returning — so a freshly opened Session answers queries against a fully
// built graph rather than forcing the caller to drive the scheduler once
// just to get off the ground.
func Open(ctx context.Context, cfg *config.Config) (*Session, error) {
	if len(cfg.WorkspaceRoots) == 0 {
		return nil, fmt.Errorf("engine: open_workspace requires at least one workspace root")
	}
	if err := logging.Configure(cfg.WorkspaceRoots[0], cfg.Logging.DebugMode, cfg.Logging.Level, cfg.Logging.JSONFormat, cfg.Logging.Categories); err != nil {
		return nil, fmt.Errorf("engine: configuring logging: %w", err)
	}
	logging.Boot("opening workspace, roots=%v external=%v", cfg.WorkspaceRoots, cfg.ExternalRoots)

	frameworkRoot := cfg.FrameworkRootName
	if frameworkRoot == "" {
		frameworkRoot = "odoo"
	}

	store := symbols.NewStore()
	root := store.NewRoot()
	store.MustGet(root).SetWorkspaceRoots(append(append([]string{}, cfg.WorkspaceRoots...), cfg.ExternalRoots...))

	graph := depgraph.New(store)
	res := resolver.New(store)
	mdls := model.New(store)
	parser := parse.NewPythonParser()
	bld := builders.New(root, store, graph, res, mdls, parser, osReadFile)
	sched := builders.NewScheduler(store, graph, bld)
	inv := invalidate.New(store, graph, sched, mdls)

	normalizedWS := make([]string, len(cfg.WorkspaceRoots))
	for i, p := range cfg.WorkspaceRoots {
		normalizedWS[i] = absPath(p)
	}
	normalizedExt := make([]string, len(cfg.ExternalRoots))
	for i, p := range cfg.ExternalRoots {
		normalizedExt[i] = absPath(p)
	}
	disc := discover.New(store, osFileSystem{}, discover.ParseManifest, frameworkRoot, normalizedWS, normalizedExt)

	s := &Session{
		cfg:       cfg,
		store:     store,
		graph:     graph,
		res:       res,
		evalE:     eval.New(store, bld),
		mdls:      mdls,
		bld:       bld,
		sched:     sched,
		inv:       inv,
		disc:      disc,
		root:      root,
		pathIndex: make(map[string]symbols.ID),
	}

	for _, p := range normalizedWS {
		if err := s.indexRootPath(ctx, p); err != nil {
			return nil, err
		}
	}
	for _, p := range normalizedExt {
		if err := s.indexRootPath(ctx, p); err != nil {
			return nil, err
		}
	}

	s.indexPaths(s.root)
	s.enqueueAllStages()
	s.sched.Drain(ctx)
	return s, nil
}

// indexRootPath indexes one top-level workspace/external root's immediate
// contents directly under Root, rather than wrapping the root directory
// itself in a Namespace entity (discover.Discoverer.IndexRoot): a workspace
// root is a sys.path-like entry, not a package of its own.
func (s *Session) indexRootPath(ctx context.Context, path string) error {
	if err := s.disc.IndexRoot(ctx, s.root, path); err != nil {
		return fmt.Errorf("engine: indexing workspace root %s: %w", path, err)
	}
	return nil
}

// indexPaths walks id's subtree recording every path -> entity mapping
// discovery produced, for later file_of(path) lookups.
func (s *Session) indexPaths(id symbols.ID) {
	if id.IsNil() {
		return
	}
	e, ok := s.store.Get(id)
	if !ok {
		return
	}
	for _, p := range e.Paths() {
		s.pathIndex[p] = id
	}
	for _, child := range s.store.AllChildren(id) {
		if ce, ok := s.store.Get(child); ok && (ce.Kind().IsFileLike() || ce.Kind() == symbols.KindNamespace || ce.Kind() == symbols.KindCompiled) {
			s.indexPaths(child)
		}
	}
}

// enqueueAllStages queues every File/Package entity currently in the store
// for every stage — used once at open_workspace time to bootstrap a freshly
// discovered tree. The scheduler's readiness gating, not enqueue order,
// enforces that each file progresses ARCH -> VALIDATION.
func (s *Session) enqueueAllStages() {
	for _, id := range s.pathIndex {
		if fl, ok := s.store.AsFileLike(id); ok {
			for _, st := range stage.All {
				s.sched.Enqueue(st, fl)
			}
		}
	}
}

// IndexPath implements index_path(path, require_module) (spec.md §6): the
// same create_from_path semantics discovery applies to the initial
// workspace walk, exposed for a host to index a single newly-created path
// (e.g. a file created after the workspace was opened) without a full
// re-scan. The returned entity's own stages are not run; the caller enqueues
// it like any other pending file via NotifyFileChanged.
func (s *Session) IndexPath(ctx context.Context, parent symbols.ID, path string, requireModule bool) (symbols.ID, error) {
	id, err := s.disc.IndexPath(ctx, parent, absPath(path), requireModule)
	if err != nil {
		return symbols.Nil, err
	}
	s.indexPaths(id)
	s.retryNotFound()
	return id, nil
}

// retryNotFound re-invalidates every file that recorded a failed lookup, so
// its imports are retried now that the module tree has grown. Invalidation
// starts at the earliest stage that recorded a miss; the stage re-run clears
// and re-derives the not_found_paths record itself.
func (s *Session) retryNotFound() {
	for _, id := range s.pathIndex {
		fl, ok := s.store.AsFileLike(id)
		if !ok {
			continue
		}
		ent := s.store.MustGet(id)
		for _, st := range stage.All {
			if len(ent.NotFoundPaths(st)) > 0 {
				s.inv.Invalidate(fl, st)
				break
			}
		}
	}
}

// NotifyFileChanged implements notify_file_changed(path) (spec.md §6):
// invalidates the file at ARCH (cascading through its dependents) and
// leaves it enqueued on the ARCH worklist. Run the Session's Drain to
// actually execute the rebuild — notification and execution are separate
// steps, matching the cooperative scheduler's explicit suspension points
// (spec.md §5).
func (s *Session) NotifyFileChanged(path string) error {
	id, ok := s.pathIndex[absPath(path)]
	if !ok {
		return fmt.Errorf("engine: notify_file_changed: %s is not indexed", path)
	}
	fl, ok := s.store.AsFileLike(id)
	if !ok {
		return fmt.Errorf("engine: notify_file_changed: %s is not a File/Package", path)
	}
	s.inv.Invalidate(fl, stage.Arch)
	return nil
}

// NotifyFileRemoved implements notify_file_removed(path) (spec.md §6):
// unloads the entity's subtree and drops it from pathIndex.
func (s *Session) NotifyFileRemoved(path string) error {
	abs := absPath(path)
	id, ok := s.pathIndex[abs]
	if !ok {
		return fmt.Errorf("engine: notify_file_removed: %s is not indexed", path)
	}
	fl, ok := s.store.AsFileLike(id)
	if !ok {
		return fmt.Errorf("engine: notify_file_removed: %s is not a File/Package", path)
	}
	s.inv.Unload(fl)
	delete(s.pathIndex, abs)
	return nil
}

// Resolve implements resolve(qualified_path, position) (spec.md §6).
func (s *Session) Resolve(path resolver.Path, position int) []symbols.ID {
	logging.Get(logging.CategorySession).Debug("resolve %+v @ %d", path, position)
	return s.res.GetSymbol(s.root, path, position)
}

// Infer implements infer(entity, name, position) (spec.md §6).
func (s *Session) Infer(on symbols.ID, name string, position int) []symbols.ID {
	logging.Get(logging.CategorySession).Debug("infer %s.%s @ %d", on, name, position)
	return s.res.InferName(s.root, on, name, position)
}

// ResolveMember implements get_member_symbol (spec.md §4.4) as an external
// operation: attribute access on a class (`self.name`), resolved through
// the module tree, file content, framework-model extension across modules
// (spec.md §4.6, §8 scenario 2), and base classes in that order. Model
// comembers are restricted to self's own module-dependency closure
// (builders.ModelClasses), so a base module's class never resolves a field
// contributed by a module that depends on it. fromModule is the entity the
// lookup originates from, threaded through per spec.md §4.4's signature.
func (s *Session) ResolveMember(self symbols.ID, name string, fromModule symbols.ID, preventComodel, all bool) []symbols.ID {
	logging.Get(logging.CategorySession).Debug("resolve_member %s.%s preventComodel=%v all=%v", self, name, preventComodel, all)
	return s.res.GetMemberSymbol(self, name, fromModule, preventComodel, all, s.bld.ModelClasses, s.bld.Bases)
}

// Follow implements follow(entity, stop_on_type, stop_on_value) (spec.md
// §6): may trigger a synchronous ARCH_EVAL rebuild (spec.md §4.5).
func (s *Session) Follow(ctx context.Context, entity symbols.ID, stopOnType, stopOnValue bool) []eval.Referent {
	logging.Get(logging.CategorySession).Debug("follow %s type=%v value=%v", entity, stopOnType, stopOnValue)
	return s.evalE.FollowRef(ctx, entity, stopOnType, stopOnValue)
}

// DrainDiagnostics implements drain_diagnostics() (spec.md §6): returns
// diagnostics from the most recent VALIDATION pass keyed by file path
// (suppressing files marked external, per spec.md §6 external_roots:
// "scanned but whose diagnostics are suppressed"), then clears them.
func (s *Session) DrainDiagnostics() map[string][]parse.Diagnostic {
	out := make(map[string][]parse.Diagnostic)
	for id, diags := range s.bld.DrainDiagnostics() {
		ent, ok := s.store.Get(id)
		if !ok || ent.IsExternal() {
			continue
		}
		paths := ent.Paths()
		if len(paths) == 0 {
			continue
		}
		out[paths[0]] = diags
	}
	return out
}

// Drain runs the stage-builder scheduler until no worklist has a ready item
// left (spec.md §5: the worker processes one item, then yields). An
// embedder calls this after NotifyFileChanged/IndexPath to actually perform
// the rebuild, or on an idle tick to make progress on a large pending set.
func (s *Session) Drain(ctx context.Context) {
	s.sched.Drain(ctx)
}

// ProcessOne runs a single ready worklist item, for an embedder that wants
// to interleave builder progress with its own message loop rather than
// draining to a fixed point in one call (spec.md §5 suspension points).
func (s *Session) ProcessOne(ctx context.Context) (bool, error) {
	return s.sched.ProcessOne(ctx)
}

// Root returns the Root entity, the base for Resolve's module-segment walk.
func (s *Session) Root() symbols.ID { return s.root }

// FileOf returns the entity indexed at path, if any.
func (s *Session) FileOf(path string) (symbols.ID, bool) {
	id, ok := s.pathIndex[absPath(path)]
	return id, ok
}

// Store exposes the underlying Symbol Store for read-only inspection (e.g.
// a host rendering hover text from a resolved entity's Kind/Range/
// DocString). Mutating it outside this package's own operations would
// violate the invariants the builders/invalidate engine maintain.
func (s *Session) Store() *symbols.Store { return s.store }

func osReadFile(path string) ([]byte, error) {
	return osFileSystem{}.ReadFile(path)
}
