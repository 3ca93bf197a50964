// Package discover implements the workspace filesystem walk that feeds
// create_from_path (spec.md §4.1 item 2): given a set of workspace and
// external roots, it walks directories, classifies each as a Namespace,
// PythonPackage, Module, File, or Compiled unit, and marks anything outside
// the workspace roots as external.
package discover

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	"odools/internal/logging"
	"odools/internal/symbols"
)

// manifestFile is the framework manifest filename consulted for Module
// detection (the standard framework's convention: __manifest__.py).
const manifestFile = "__manifest__.py"

const initFile = "__init__.py"

// initStubFile is the interface-declaration init: a directory carrying only
// this (no plain init) still forms a package, flagged as interface-only.
const initStubFile = "__init__.pyi"

// sourceExtensions are treated as Files by create_from_path step 1.
var sourceExtensions = map[string]bool{
	".py": true,
}

// compiledExtensions become opaque Compiled entities: containers with
// children but no parseable content.
var compiledExtensions = map[string]bool{
	".so":  true,
	".pyd": true,
}

// DirEntry is the minimal directory-listing record discovery needs.
type DirEntry struct {
	Name  string
	IsDir bool
}

// FileSystem is the filesystem collaborator discovery walks. Injected so
// tests exercise create_from_path's classification rules without touching a
// real filesystem, the same way internal/builders injects ReadFile.
type FileSystem interface {
	ReadDir(path string) ([]DirEntry, error)
	ReadFile(path string) ([]byte, error)
}

// ManifestParser turns raw manifest bytes into dependency/data declarations.
// Injected so discovery doesn't hard-code a manifest grammar.
type ManifestParser func(content []byte) (dependencies, dataFiles []string, err error)

// Discoverer owns the walk and the store it populates.
type Discoverer struct {
	store             *symbols.Store
	fs                FileSystem
	parseManifest     ManifestParser
	frameworkRootName string
	workspaceRoots    []string
	externalRoots     []string
}

// New creates a Discoverer. frameworkRootName is the qualified name treated
// as the framework root for addon discovery (spec.md §6
// framework_root_name, e.g. "odoo").
func New(store *symbols.Store, fs FileSystem, parseManifest ManifestParser, frameworkRootName string, workspaceRoots, externalRoots []string) *Discoverer {
	return &Discoverer{
		store:             store,
		fs:                fs,
		parseManifest:     parseManifest,
		frameworkRootName: frameworkRootName,
		workspaceRoots:    workspaceRoots,
		externalRoots:     externalRoots,
	}
}

// IndexPath implements create_from_path(parent, path, requireModule)
// (spec.md §4.1) for a single path, then — if it turned out to be a
// container — recurses into its children. Returns symbols.Nil without error
// when requireModule is true and path doesn't qualify as a Module (the
// caller's cue to retry as a plain package, per spec.md §7).
func (d *Discoverer) IndexPath(ctx context.Context, parent symbols.ID, path string, requireModule bool) (symbols.ID, error) {
	name := baseName(path)

	if ext := filepath.Ext(path); sourceExtensions[strings.ToLower(ext)] {
		content, err := d.fs.ReadFile(path)
		if err != nil {
			return symbols.Nil, err
		}
		id := d.store.AddFile(parent, strings.TrimSuffix(name, ext), path)
		d.store.SetFileLength(id, len(content))
		d.markExternal(id, path)
		return id, nil
	}
	if ext := filepath.Ext(path); compiledExtensions[strings.ToLower(ext)] {
		// Native extension: opaque, nothing to parse.
		base := strings.TrimSuffix(name, ext)
		if i := strings.Index(base, "."); i > 0 {
			base = base[:i] // strip the ABI tag (foo.cpython-311-x86_64.so)
		}
		id := d.store.AddCompiled(parent, base, path)
		d.markExternal(id, path)
		return id, nil
	}

	entries, err := d.fs.ReadDir(path)
	if err != nil {
		return symbols.Nil, err
	}
	if !hasFile(entries, initFile) && !hasFile(entries, initStubFile) {
		if requireModule {
			return symbols.Nil, nil
		}
		id := d.store.AddNamespace(parent, name, path)
		d.markExternal(id, path)
		if err := d.walkChildren(ctx, id, path, entries, false); err != nil {
			return symbols.Nil, err
		}
		return id, nil
	}

	parentPath := d.qualifiedPath(parent)
	id := symbols.Nil
	switch {
	case pathEquals(parentPath, []string{d.frameworkRootName, "addons"}) && hasFile(entries, manifestFile):
		content, err := d.fs.ReadFile(filepath.Join(path, manifestFile))
		if err != nil {
			return symbols.Nil, err
		}
		deps, data, perr := d.parseManifest(content)
		if perr != nil {
			logging.Get(logging.CategoryWorld).Warn("discover: invalid manifest at %s: %v", path, perr)
			if requireModule {
				return symbols.Nil, nil
			}
			id = d.store.AddPythonPackage(parent, name, path)
			break
		}
		id = d.store.AddModulePackage(parent, name, path, symbols.ModuleInfo{
			DirName:       name,
			Dependencies:  deps,
			DataFiles:     data,
			InterfaceOnly: !hasFile(entries, initFile),
		})
	case len(parentPath) > 0 && pathEquals(parentPath, []string{d.frameworkRootName}) && name == "addons":
		id = d.store.AddNamespace(parent, name, path)
	default:
		if requireModule {
			return symbols.Nil, nil
		}
		id = d.store.AddPythonPackage(parent, name, path)
	}

	d.markExternal(id, path)
	if err := d.walkChildren(ctx, id, path, entries, false); err != nil {
		return symbols.Nil, err
	}
	return id, nil
}

// IndexRoot indexes the immediate contents of a top-level workspace or
// external root directly under parent, without wrapping the root path
// itself in a Namespace entity: a workspace root is a sys.path-like entry,
// not a package or namespace of its own, so "a.py" at its top level resolves
// as a direct child of parent rather than nested one extra level under a
// namespace named for the root directory.
func (d *Discoverer) IndexRoot(ctx context.Context, parent symbols.ID, path string) error {
	entries, err := d.fs.ReadDir(path)
	if err != nil {
		return err
	}
	return d.walkChildren(ctx, parent, path, entries, false)
}

func (d *Discoverer) walkChildren(ctx context.Context, parent symbols.ID, dir string, entries []DirEntry, _ bool) error {
	names := make([]string, 0, len(entries))
	byName := make(map[string]DirEntry, len(entries))
	for _, e := range entries {
		if e.Name == initFile || e.Name == initStubFile || e.Name == manifestFile {
			continue
		}
		if !e.IsDir {
			ext := strings.ToLower(filepath.Ext(e.Name))
			if !sourceExtensions[ext] && !compiledExtensions[ext] {
				continue
			}
		}
		names = append(names, e.Name)
		byName[e.Name] = e
	}
	sort.Strings(names)

	for _, n := range names {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		child := filepath.Join(dir, n)
		if _, err := d.IndexPath(ctx, parent, child, false); err != nil {
			return err
		}
	}
	return nil
}

func (d *Discoverer) qualifiedPath(id symbols.ID) []string {
	var segs []string
	for {
		ent, ok := d.store.Get(id)
		if !ok || ent.Kind() == symbols.KindRoot {
			break
		}
		segs = append([]string{ent.Name()}, segs...)
		id = ent.Parent()
	}
	return segs
}

// markExternal marks id external when path falls outside every configured
// workspace root and (if any externalRoots are configured) inside one of
// them, per spec.md §3/§6.
func (d *Discoverer) markExternal(id symbols.ID, path string) {
	if id.IsNil() {
		return
	}
	ent, ok := d.store.Get(id)
	if !ok {
		return
	}
	ent.SetExternal(!underAny(path, d.workspaceRoots) && (len(d.externalRoots) == 0 || underAny(path, d.externalRoots)))
}

func underAny(path string, roots []string) bool {
	for _, r := range roots {
		if rel, err := filepath.Rel(r, path); err == nil && !strings.HasPrefix(rel, "..") {
			return true
		}
	}
	return false
}

func hasFile(entries []DirEntry, name string) bool {
	for _, e := range entries {
		if !e.IsDir && e.Name == name {
			return true
		}
	}
	return false
}

func pathEquals(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func baseName(path string) string {
	return filepath.Base(path)
}
