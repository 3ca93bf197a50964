package builders

import (
	"context"

	"odools/internal/logging"
	"odools/internal/parse"
	"odools/internal/stage"
	"odools/internal/symbols"
)

// RunOdoo implements the ODOO stage builder (spec.md §4.6 step 3): register
// the owning Module's dependency list with the Framework Model Registry, and
// register every class that declares a framework model via a bare `_name =
// "..."` or `_inherit = "..."` class attribute.
func (b *Builders) RunOdoo(ctx context.Context, file symbols.FileLikeID) error {
	timer := logging.StartTimer(logging.CategoryOdoo, "RunOdoo")
	defer timer.Stop()

	fileID := file.ID()
	ent := b.store.MustGet(fileID)
	ent.SetBuildStatus(stage.Odoo, stage.InProgress)

	tree, _, err := b.readAndParse(ctx, fileID)
	if err != nil {
		ent.SetBuildStatus(stage.Odoo, stage.Invalid)
		logging.Get(logging.CategoryOdoo).Error("ODOO %s: %v", ent.Name(), err)
		return err
	}
	ent.ClearNotFoundPaths(stage.Odoo)

	created := b.mapDeclarations(fileID, tree)

	dirName, deps, inModule := b.owningModule(fileID)
	if inModule {
		b.models.RegisterModule(dirName, deps)
	}

	if inModule {
		for _, d := range tree.Declarations {
			if d.Kind != parse.DeclVariable || d.Value == "" || d.Parent == -1 {
				continue
			}
			if d.Name != "_name" && d.Name != "_inherit" {
				continue
			}
			parentDecl := tree.Declarations[d.Parent]
			if parentDecl.Kind != parse.DeclClass {
				continue
			}
			classID := created[d.Parent]
			if classID.IsNil() {
				continue
			}
			b.models.Register(d.Value, classID, dirName)
		}
	}

	ent.SetBuildStatus(stage.Odoo, stage.Done)
	return nil
}

// owningModule walks up from id to the nearest Module ancestor.
func (b *Builders) owningModule(id symbols.ID) (dirName string, deps []string, ok bool) {
	cur := id
	for {
		e, found := b.store.Get(cur)
		if !found {
			return "", nil, false
		}
		if e.Kind() == symbols.KindModule {
			info := e.ModuleInfo()
			return info.DirName, info.Dependencies, true
		}
		if e.Parent().IsNil() {
			return "", nil, false
		}
		cur = e.Parent()
	}
}
