package builders

import (
	"context"
	"strings"

	"odools/internal/logging"
	"odools/internal/parse"
	"odools/internal/stage"
	"odools/internal/symbols"
)

// RunArch implements the ARCH stage builder (spec.md §4.6 step 1): walk the
// syntax tree, create Class/Function/Variable children with ranges, bind
// each import to a Variable carrying an unresolved EvalImport evaluation,
// and record an ARCH-level dependency on every import whose owning
// File/Package could be located. Unlocatable imports are appended to
// not_found_paths[ARCH] for the Invalidation Engine to retry later.
func (b *Builders) RunArch(ctx context.Context, file symbols.FileLikeID) error {
	timer := logging.StartTimer(logging.CategoryArch, "RunArch")
	defer timer.Stop()

	fileID := file.ID()
	ent := b.store.MustGet(fileID)
	ent.SetBuildStatus(stage.Arch, stage.InProgress)

	tree, content, err := b.readAndParse(ctx, fileID)
	if err != nil {
		ent.SetBuildStatus(stage.Arch, stage.Invalid)
		logging.Get(logging.CategoryArch).Error("ARCH %s: %v", ent.Name(), err)
		return err
	}
	b.store.SetFileLength(fileID, len(content))
	ent.ClearNotFoundPaths(stage.Arch)
	b.clearContent(fileID)

	// Regions and declarations both come out of the walk in document order;
	// opening each control-flow section just before the first declaration at
	// or past its start guarantees addContent sees the section a binding
	// belongs to, including for regions nested inside a class/function whose
	// own entity must exist first.
	created := make([]symbols.ID, len(tree.Declarations))
	nextRegion := 0
	openRegions := func(upTo int) {
		for nextRegion < len(tree.Regions) && tree.Regions[nextRegion].Start <= upTo {
			r := tree.Regions[nextRegion]
			container := fileID
			if r.Parent != -1 {
				container = created[r.Parent]
			}
			if !container.IsNil() {
				b.store.OpenSection(container, r.Start, r.End)
			}
			nextRegion++
		}
	}

	for i, d := range tree.Declarations {
		openRegions(d.Start)
		parent := fileID
		if d.Parent != -1 {
			parent = created[d.Parent]
		}
		rng := symbols.Range{Start: d.Start, End: d.End}
		switch d.Kind {
		case parse.DeclClass:
			created[i] = b.store.AddClass(parent, d.Name, rng)
		case parse.DeclFunction:
			created[i] = b.store.AddFunction(parent, d.Name, rng)
		case parse.DeclVariable:
			id := b.store.AddVariable(parent, d.Name, rng)
			created[i] = id
			switch {
			case d.HasLiteral:
				b.store.MustGet(id).AddEvaluation(symbols.Evaluation{Kind: symbols.EvalValue, HasLiteral: true, Literal: d.Literal})
			case d.RefName != "":
				b.store.MustGet(id).AddEvaluation(symbols.Evaluation{Kind: symbols.EvalClassRef, ImportPath: []string{d.RefName}})
			}
		}
	}
	openRegions(len(content))

	for _, imp := range tree.Imports {
		for _, n := range imp.Names {
			if n.Name == "*" {
				continue
			}
			bindName := n.Name
			if n.Alias != "" {
				bindName = n.Alias
			}

			var importPath, containerSegs []string
			if len(imp.Module) == 0 {
				importPath = []string{n.Name}
				containerSegs = importPath
			} else {
				importPath = append(append([]string{}, imp.Module...), n.Name)
				containerSegs = imp.Module
			}

			v := b.store.AddVariable(fileID, bindName, symbols.Range{Start: imp.Start, End: imp.End})
			b.store.MustGet(v).AddEvaluation(symbols.Evaluation{Kind: symbols.EvalImport, ImportPath: importPath})

			container := b.resolveModuleContainer(containerSegs)
			if container.IsNil() {
				ent.AddNotFoundPath(stage.Arch, strings.Join(importPath, "."))
				continue
			}
			if dep, ok := b.store.AsFileLike(container); ok {
				// Gates this file's own ARCH_EVAL, the stage that actually
				// needs the imported container's ARCH-created symbols to
				// exist, not this ARCH pass itself (which only needed the
				// container entity, already present from discovery).
				b.graph.AddDependency(file, dep, stage.ArchEval, stage.Arch)
			}
		}
	}

	for _, diag := range tree.Diagnostics {
		b.addDiagnostic(fileID, diag)
	}

	ent.SetBuildStatus(stage.Arch, stage.Done)
	return nil
}

// resolveModuleContainer walks GetModuleSymbol across segments from Root,
// returning the deepest container it could reach (possibly a partial match,
// e.g. when the final segment actually names a content symbol rather than a
// further module level). Returns Nil if even the first segment fails.
func (b *Builders) resolveModuleContainer(segments []string) symbols.ID {
	current := b.root
	last := symbols.Nil
	for _, seg := range segments {
		matches := b.resolver.GetModuleSymbol(current, seg)
		if len(matches) == 0 {
			break
		}
		current = matches[0]
		last = current
	}
	return last
}
