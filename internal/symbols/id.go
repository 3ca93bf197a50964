package symbols

import "fmt"

// ID is a generation-counted arena handle standing in for the "weak
// reference" concept in spec.md §9: resolving an ID whose generation no
// longer matches the arena slot is treated as an expired reference (never a
// panic), the idiomatic Go substitute for reference-counted weak pointers.
type ID struct {
	index      uint32
	generation uint32
}

// Nil is the zero-value ID, used for "no parent" / unset weak references.
var Nil = ID{}

// IsNil reports whether id is the zero ID.
func (id ID) IsNil() bool { return id == Nil }

func (id ID) String() string {
	if id.IsNil() {
		return "<nil>"
	}
	return fmt.Sprintf("#%d.%d", id.index, id.generation)
}
