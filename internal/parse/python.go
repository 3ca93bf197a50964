package parse

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"odools/internal/logging"
)

// PythonParser extracts declarations and imports from Python source using
// tree-sitter, the same grammar library and ParseCtx idiom the manifest
// reader in internal/discover uses.
type PythonParser struct {
	parser *sitter.Parser
}

// NewPythonParser creates a Parser bound to the Python grammar.
func NewPythonParser() *PythonParser {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	return &PythonParser{parser: p}
}

// Parse implements Parser.
func (p *PythonParser) Parse(ctx context.Context, content []byte) (*Tree, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, content)
	if err != nil {
		logging.Get(logging.CategoryWorld).Error("PythonParser: parse failed: %v", err)
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	out := &Tree{Length: len(content)}

	w := &pyWalker{content: content, out: out}
	w.walk(root, -1)

	if root.HasError() {
		logging.WorldWarn("PythonParser: file has recoverable syntax errors, building what parsed")
	}
	return out, nil
}

type pyWalker struct {
	content []byte
	out     *Tree
}

func (w *pyWalker) text(n *sitter.Node) string {
	return string(w.content[n.StartByte():n.EndByte()])
}

// walk descends node's named children, recording declarations and imports.
// parent is the Declarations index of the lexically enclosing class or
// function, or -1 at module scope.
func (w *pyWalker) walk(node *sitter.Node, parent int) {
	n := int(node.NamedChildCount())
	for i := 0; i < n; i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "ERROR":
			w.out.Diagnostics = append(w.out.Diagnostics, Diagnostic{
				Message: "syntax error",
				Start:   int(child.StartByte()),
				End:     int(child.EndByte()),
			})
		case "class_definition":
			w.classDef(child, parent)
		case "function_definition":
			w.funcDef(child, parent)
		case "decorated_definition":
			w.decorated(child, parent)
		case "expression_statement":
			w.assignment(child, parent)
		case "import_statement":
			w.plainImport(child)
		case "import_from_statement":
			w.fromImport(child)
		case "if_statement", "for_statement", "while_statement", "try_statement", "with_statement", "match_statement":
			w.controlFlow(child, parent)
		default:
			w.walk(child, parent)
		}
	}
}

// controlFlow records one Region per branch/body block of a control-flow
// statement, then walks the block's own statements. Bindings inside a
// branch land in that branch's section; the condition/iterator expressions
// themselves bind nothing and are skipped.
func (w *pyWalker) controlFlow(node *sitter.Node, parent int) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "block":
			w.out.Regions = append(w.out.Regions, Region{
				Start:  int(child.StartByte()),
				End:    int(child.EndByte()),
				Parent: parent,
			})
			w.walk(child, parent)
		case "elif_clause", "else_clause", "except_clause", "finally_clause", "case_clause":
			w.controlFlow(child, parent)
		}
	}
}

func (w *pyWalker) classDef(node *sitter.Node, parent int) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	decl := Declaration{
		Kind:   DeclClass,
		Name:   w.text(nameNode),
		Start:  int(node.StartByte()),
		End:    int(node.EndByte()),
		Parent: parent,
	}
	if args := node.ChildByFieldName("superclasses"); args != nil {
		for i := 0; i < int(args.NamedChildCount()); i++ {
			decl.Bases = append(decl.Bases, w.text(args.NamedChild(i)))
		}
	}
	idx := len(w.out.Declarations)
	w.out.Declarations = append(w.out.Declarations, decl)

	if body := node.ChildByFieldName("body"); body != nil {
		w.walk(body, idx)
	}
}

func (w *pyWalker) funcDef(node *sitter.Node, parent int) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	decl := Declaration{
		Kind:   DeclFunction,
		Name:   w.text(nameNode),
		Start:  int(node.StartByte()),
		End:    int(node.EndByte()),
		Parent: parent,
	}
	idx := len(w.out.Declarations)
	w.out.Declarations = append(w.out.Declarations, decl)

	if body := node.ChildByFieldName("body"); body != nil {
		w.walk(body, idx)
	}
}

func (w *pyWalker) decorated(node *sitter.Node, parent int) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "function_definition":
			w.funcDef(child, parent)
		case "class_definition":
			w.classDef(child, parent)
		}
	}
}

// assignment recognizes a top-level/class-body `name = expr` or
// `name: Type = expr` binding as a Variable declaration (spec.md §4.6
// ARCH). Tuple/attribute assignment targets are skipped; they carry no
// single simple name to bind.
func (w *pyWalker) assignment(node *sitter.Node, parent int) {
	if node.NamedChildCount() == 0 {
		return
	}
	expr := node.NamedChild(0)
	var target *sitter.Node
	switch expr.Type() {
	case "assignment":
		target = expr.ChildByFieldName("left")
	default:
		return
	}
	if target == nil || target.Type() != "identifier" {
		return
	}
	decl := Declaration{
		Kind:   DeclVariable,
		Name:   w.text(target),
		Start:  int(node.StartByte()),
		End:    int(node.EndByte()),
		Parent: parent,
	}
	if right := expr.ChildByFieldName("right"); right != nil {
		switch right.Type() {
		case "string":
			decl.Value = stringLiteralValue(w.text(right))
			decl.Literal = decl.Value
			decl.HasLiteral = true
		case "integer", "float", "true", "false", "none":
			decl.Literal = w.text(right)
			decl.HasLiteral = true
		case "identifier":
			decl.RefName = w.text(right)
		}
	}
	w.out.Declarations = append(w.out.Declarations, decl)
}

// stringLiteralValue strips the surrounding quotes (and a leading string
// prefix like f/r/b) from tree-sitter's raw "string" node text.
func stringLiteralValue(raw string) string {
	i := 0
	for i < len(raw) && raw[i] != '"' && raw[i] != '\'' {
		i++
	}
	if i >= len(raw) {
		return raw
	}
	quote := raw[i]
	body := raw[i+1:]
	if len(body) > 0 && body[len(body)-1] == quote {
		body = body[:len(body)-1]
	}
	return body
}

func (w *pyWalker) plainImport(node *sitter.Node) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		name := child
		if child.Type() == "aliased_import" {
			name = child.ChildByFieldName("name")
		}
		if name == nil {
			continue
		}
		segments := splitDotted(w.text(name))
		alias := ""
		if child.Type() == "aliased_import" {
			if a := child.ChildByFieldName("alias"); a != nil {
				alias = w.text(a)
			}
		}
		w.out.Imports = append(w.out.Imports, Import{
			Module: nil,
			Names:  []ImportedName{{Name: segments[len(segments)-1], Alias: alias}},
			Start:  int(node.StartByte()),
			End:    int(node.EndByte()),
		})
	}
}

func (w *pyWalker) fromImport(node *sitter.Node) {
	moduleNode := node.ChildByFieldName("module_name")
	var module []string
	if moduleNode != nil {
		module = splitDotted(w.text(moduleNode))
	}
	imp := Import{Module: module, Start: int(node.StartByte()), End: int(node.EndByte())}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "dotted_name":
			if child == moduleNode {
				continue
			}
			imp.Names = append(imp.Names, ImportedName{Name: w.text(child)})
		case "identifier":
			imp.Names = append(imp.Names, ImportedName{Name: w.text(child)})
		case "aliased_import":
			name := child.ChildByFieldName("name")
			alias := child.ChildByFieldName("alias")
			if name == nil {
				continue
			}
			in := ImportedName{Name: w.text(name)}
			if alias != nil {
				in.Alias = w.text(alias)
			}
			imp.Names = append(imp.Names, in)
		case "wildcard_import":
			imp.Names = append(imp.Names, ImportedName{Name: "*"})
		}
	}
	w.out.Imports = append(w.out.Imports, imp)
}

func splitDotted(s string) []string {
	var out []string
	start := 0
	for i, r := range s {
		if r == '.' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}
