// Package stage defines the totally-ordered build stages shared by the
// symbol store, dependency graph, stage builders, and invalidation engine
// (spec.md §3 I5, §4.3, §4.6).
package stage

// Stage is one of the four ordered build passes, plus the SYNTAX sentinel
// used only as a pre-ARCH placeholder (spec.md §4.3).
type Stage int

const (
	Syntax Stage = iota
	Arch
	ArchEval
	Odoo
	Validation

	count // one past the last stage; NumStages is derived from it for array sizing
)

// NumStages is the number of stages that carry their own BuildStatus /
// dependency arrays (ARCH..VALIDATION). SYNTAX is a sentinel dependency
// level only, never a stage with its own status.
const NumStages = int(count) - 1

// Index returns the zero-based array index for s within [Arch, Validation].
func (s Stage) Index() int { return int(s) - 1 }

func (s Stage) String() string {
	switch s {
	case Syntax:
		return "SYNTAX"
	case Arch:
		return "ARCH"
	case ArchEval:
		return "ARCH_EVAL"
	case Odoo:
		return "ODOO"
	case Validation:
		return "VALIDATION"
	default:
		return "UNKNOWN"
	}
}

// All lists the stages that a file-like entity actually runs, in order.
var All = []Stage{Arch, ArchEval, Odoo, Validation}

// LegalDependency reports whether a dependency at (sourceStage, depStage) is
// permitted (spec.md §4.3): depStage <= sourceStage, and VALIDATION may
// never be a dep_stage (nothing depends on another file being validated).
func LegalDependency(source, dep Stage) bool {
	if dep == Validation {
		return false
	}
	return dep <= source
}

// BuildStatus is the per-stage lifecycle of a file-like entity (spec.md §3).
type BuildStatus int

const (
	Pending BuildStatus = iota
	InProgress
	Done
	Invalid
)

func (b BuildStatus) String() string {
	switch b {
	case Pending:
		return "PENDING"
	case InProgress:
		return "IN_PROGRESS"
	case Done:
		return "DONE"
	case Invalid:
		return "INVALID"
	default:
		return "UNKNOWN"
	}
}
