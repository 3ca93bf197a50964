package symbols

import "sort"

// SectionID identifies one lexical/control-flow region within a container
// (spec.md §4.2). Section ids are strictly increasing with byte offset
// (spec.md §3 I6).
type SectionID int

// section is a half-open byte range tagged with its id.
type section struct {
	id    SectionID
	start int
	end   int
}

// sectionIndex is the per-container Section Index (C2): an ordered sequence
// of sections supporting O(log n) get_section_for via binary search, total
// over [0, length) — the outermost section always matches.
type sectionIndex struct {
	sections []section // sorted by start, non-overlapping within a branch-free container
	nextID   SectionID
	length   int
}

// newSectionIndex creates the Section Index for a new container of the
// given total byte length, seeded with a single outermost section.
func newSectionIndex(length int) *sectionIndex {
	idx := &sectionIndex{length: length}
	idx.sections = []section{{id: 0, start: 0, end: length}}
	idx.nextID = 1
	return idx
}

// OpenSection creates a new section spanning [start, end) and returns its id.
// The id is strictly increasing; it does not replace the outermost
// section, so name lookups that need to see the whole container (e.g. a
// class) can still consult section 0.
func (idx *sectionIndex) OpenSection(start, end int) SectionID {
	id := idx.nextID
	idx.nextID++
	idx.sections = append(idx.sections, section{id: id, start: start, end: end})
	sort.Slice(idx.sections, func(i, j int) bool {
		if idx.sections[i].start != idx.sections[j].start {
			return idx.sections[i].start < idx.sections[j].start
		}
		// Equal starts: keep the older (outer) section earlier so the
		// descending scan in GetSectionsFor yields the newest match first.
		return idx.sections[i].id < idx.sections[j].id
	})
	return id
}

// GetSectionsFor returns every section (most recent first) whose region
// contains offset. Total: offset==0 and offset>=length both resolve to at
// least the outermost section (spec.md §8 Boundaries).
func (idx *sectionIndex) GetSectionsFor(offset int) []SectionID {
	if offset < 0 {
		offset = 0
	}
	var matches []SectionID
	// binary search for the first section whose start <= offset, then scan
	// outward; containers are small so a linear scan after locating the
	// neighborhood is simple and correct, while the search itself is O(log n).
	i := sort.Search(len(idx.sections), func(i int) bool { return idx.sections[i].start > offset })
	for j := i - 1; j >= 0; j-- {
		s := idx.sections[j]
		if offset >= s.start && offset < s.end {
			matches = append(matches, s.id)
		}
	}
	// matches is currently in descending start order = most-recent-first
	// already, except the outermost section (start 0) always sorts last,
	// which is correct: it should be least specific / considered last.
	if len(matches) == 0 {
		matches = append(matches, 0)
	}
	return matches
}

// Contains reports whether id names a live section in this index.
func (idx *sectionIndex) Contains(id SectionID) bool {
	for _, s := range idx.sections {
		if s.id == id {
			return true
		}
	}
	return false
}
