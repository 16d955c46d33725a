// Package lineset tracks the distinct cache lines touched by one group of
// micro-ops.
//
// A Set is a plain slice searched linearly. Groups touch one or two lines,
// rarely more for wide vector accesses, and at that size a scan over
// contiguous memory beats a map or tree and never allocates once the backing
// array has grown. Keep it that way.
package lineset

// Set is an insertion-ordered collection of line addresses without duplicates.
type Set struct {
	lines []uint64
}

// New returns a set with room for n lines before it needs to grow.
func New(n int) *Set {
	return &Set{lines: make([]uint64, 0, n)}
}

// Add inserts line if absent and reports whether it was added.
func (s *Set) Add(line uint64) bool {
	if s.Contains(line) {
		return false
	}
	s.lines = append(s.lines, line)
	return true
}

func (s *Set) Contains(line uint64) bool {
	for _, l := range s.lines {
		if l == line {
			return true
		}
	}
	return false
}

func (s *Set) Len() int {
	return len(s.lines)
}

// Reset empties the set, keeping its capacity.
func (s *Set) Reset() {
	s.lines = s.lines[:0]
}

// Lines returns the tracked lines in insertion order. The slice is only valid
// until the next Add or Reset.
func (s *Set) Lines() []uint64 {
	return s.lines
}
