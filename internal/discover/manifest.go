package discover

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// ParseManifest reads a framework manifest (a bare Python dict literal, e.g.
// {'name': 'Sale', 'depends': ['base', 'product'], 'data': [...]}) and
// extracts its depends/data lists. Grounded in the same tree-sitter grammar
// internal/parse already uses, rather than a regex scrape or a second Python
// dict-literal library: the manifest is still Python syntax, just not a
// statement sequence, so the existing grammar dependency covers it.
func ParseManifest(content []byte) (dependencies, dataFiles []string, err error) {
	p := sitter.NewParser()
	p.SetLanguage(python.GetLanguage())
	tree, err := p.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, nil, fmt.Errorf("discover: parsing manifest: %w", err)
	}

	root := tree.RootNode()
	dict := findDictionary(root)
	if dict == nil {
		return nil, nil, fmt.Errorf("discover: manifest has no top-level dict literal")
	}

	for i := 0; i < int(dict.NamedChildCount()); i++ {
		pair := dict.NamedChild(i)
		if pair.Type() != "pair" {
			continue
		}
		key := pair.ChildByFieldName("key")
		value := pair.ChildByFieldName("value")
		if key == nil || value == nil {
			continue
		}
		keyName := stringLiteral(key, content)
		switch keyName {
		case "depends":
			dependencies = stringList(value, content)
		case "data":
			dataFiles = stringList(value, content)
		}
	}
	return dependencies, dataFiles, nil
}

func findDictionary(node *sitter.Node) *sitter.Node {
	if node.Type() == "dictionary" {
		return node
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if found := findDictionary(node.NamedChild(i)); found != nil {
			return found
		}
	}
	return nil
}

func stringList(node *sitter.Node, content []byte) []string {
	if node.Type() != "list" {
		return nil
	}
	var out []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "string" {
			out = append(out, stringLiteral(child, content))
		}
	}
	return out
}

// stringLiteral strips the Python quote characters from a string node's
// text. Manifests don't use f-strings or escapes worth honoring here.
func stringLiteral(node *sitter.Node, content []byte) string {
	raw := string(content[node.StartByte():node.EndByte()])
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
