package parse

import (
	"context"
	"testing"
)

func TestPythonParserExtractsClassAndMethod(t *testing.T) {
	src := []byte(`
class Foo:
    x = 1

    def bar(self):
        return self.x
`)
	p := NewPythonParser()
	tree, err := p.Parse(context.Background(), src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	var foundClass, foundMethod, foundVar bool
	var classIdx int
	for i, d := range tree.Declarations {
		switch {
		case d.Kind == DeclClass && d.Name == "Foo":
			foundClass = true
			classIdx = i
		case d.Kind == DeclFunction && d.Name == "bar":
			foundMethod = true
			if d.Parent != classIdx {
				t.Errorf("expected bar's parent to be Foo's declaration index %d, got %d", classIdx, d.Parent)
			}
		case d.Kind == DeclVariable && d.Name == "x":
			foundVar = true
		}
	}
	if !foundClass || !foundMethod || !foundVar {
		t.Fatalf("expected to find class Foo, method bar, variable x; got %+v", tree.Declarations)
	}
}

func TestPythonParserExtractsImports(t *testing.T) {
	src := []byte(`
import os
from collections import OrderedDict as OD
from . import sibling
`)
	p := NewPythonParser()
	tree, err := p.Parse(context.Background(), src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(tree.Imports) < 2 {
		t.Fatalf("expected at least 2 import statements, got %d: %+v", len(tree.Imports), tree.Imports)
	}

	var foundOS, foundOD bool
	for _, imp := range tree.Imports {
		for _, n := range imp.Names {
			if n.Name == "os" {
				foundOS = true
			}
			if n.Name == "OrderedDict" && n.Alias == "OD" {
				foundOD = true
			}
		}
	}
	if !foundOS {
		t.Errorf("expected to find 'import os', got %+v", tree.Imports)
	}
	if !foundOD {
		t.Errorf("expected to find 'OrderedDict as OD', got %+v", tree.Imports)
	}
}

func TestPythonParserEmitsControlFlowRegions(t *testing.T) {
	src := []byte(`x = 1
if x:
    x = "s"
else:
    y = 2
`)
	p := NewPythonParser()
	tree, err := p.Parse(context.Background(), src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(tree.Regions) != 2 {
		t.Fatalf("expected one region per if/else branch, got %+v", tree.Regions)
	}
	for _, r := range tree.Regions {
		if r.Parent != -1 {
			t.Errorf("expected module-level regions, got parent %d", r.Parent)
		}
		if r.Start <= 0 || r.End <= r.Start {
			t.Errorf("expected a non-empty region past the file start, got %+v", r)
		}
	}
	if tree.Regions[0].Start >= tree.Regions[1].Start {
		t.Errorf("expected regions in document order, got %+v", tree.Regions)
	}

	// The rebinding inside the if-branch must land strictly inside the
	// first region so the ARCH builder can bind it to that section.
	var rebind *Declaration
	for i, d := range tree.Declarations {
		if d.Kind == DeclVariable && d.Name == "x" && d.Start > 0 {
			rebind = &tree.Declarations[i]
		}
	}
	if rebind == nil {
		t.Fatalf("expected the branch rebinding of x to be declared, got %+v", tree.Declarations)
	}
	if rebind.Start < tree.Regions[0].Start || rebind.Start >= tree.Regions[0].End {
		t.Errorf("expected the rebinding at %d inside region %+v", rebind.Start, tree.Regions[0])
	}
}

func TestPythonParserTopLevelFunction(t *testing.T) {
	src := []byte(`
def handler():
    pass
`)
	p := NewPythonParser()
	tree, err := p.Parse(context.Background(), src)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(tree.Declarations) != 1 || tree.Declarations[0].Kind != DeclFunction || tree.Declarations[0].Parent != -1 {
		t.Fatalf("expected a single top-level function declaration, got %+v", tree.Declarations)
	}
}
