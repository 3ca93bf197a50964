package builders

import (
	"context"

	"odools/internal/logging"
	"odools/internal/parse"
	"odools/internal/stage"
	"odools/internal/symbols"
)

// RunValidation implements the VALIDATION stage builder (spec.md §4.6 step
// 4): walk the syntax tree a second time, surface parse diagnostics and
// leftover not_found_paths from earlier stages, and flag any Variable whose
// evaluations still lead nowhere once the Evaluation Engine follows them.
func (b *Builders) RunValidation(ctx context.Context, file symbols.FileLikeID) error {
	timer := logging.StartTimer(logging.CategoryValidation, "RunValidation")
	defer timer.Stop()

	fileID := file.ID()
	ent := b.store.MustGet(fileID)
	ent.SetBuildStatus(stage.Validation, stage.InProgress)

	tree, _, err := b.readAndParse(ctx, fileID)
	if err != nil {
		ent.SetBuildStatus(stage.Validation, stage.Invalid)
		logging.Get(logging.CategoryValidation).Error("VALIDATION %s: %v", ent.Name(), err)
		return err
	}

	// Replace whatever an earlier pass left for this file (including the
	// parse diagnostics ARCH recorded), so a drain sees this pass's output only.
	delete(b.diagnostics, fileID)
	for _, diag := range tree.Diagnostics {
		b.addDiagnostic(fileID, diag)
	}
	for _, path := range ent.NotFoundPaths(stage.Arch) {
		b.addDiagnostic(fileID, parse.Diagnostic{Message: "unresolved import: " + path})
	}
	for _, path := range ent.NotFoundPaths(stage.ArchEval) {
		b.addDiagnostic(fileID, parse.Diagnostic{Message: "unresolved reference: " + path})
	}

	for _, childID := range b.store.AllChildren(fileID) {
		ce, ok := b.store.Get(childID)
		if !ok || ce.Kind() != symbols.KindVariable || len(ce.Evaluations()) == 0 {
			continue
		}
		refs := b.evalEngine.FollowRef(ctx, childID, false, false)
		if len(refs) == 0 {
			rng := ce.Range()
			b.addDiagnostic(fileID, parse.Diagnostic{
				Message: "cannot resolve '" + ce.Name() + "'",
				Start:   rng.Start,
				End:     rng.End,
			})
		}
	}

	ent.SetBuildStatus(stage.Validation, stage.Done)
	return nil
}
