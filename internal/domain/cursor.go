package domain

// Cursor is an opaque, totally ordered position marker used to resume
// paginated history fetches. The concrete chat platform decides the bit
// layout; the core only relies on the ordering defined here.
//
// Cursors are non-empty decimal strings. Ordering is numeric: a shorter
// string is smaller, equal-length strings compare lexicographically. This
// matches big-integer comparison without parsing, so identifiers wider
// than 64 bits stay exact.
type Cursor string

// IsZero reports whether the cursor is unset.
func (c Cursor) IsZero() bool { return c == "" }

// Less reports whether c orders strictly before other.
// An unset cursor orders before every set cursor.
func (c Cursor) Less(other Cursor) bool {
	if c == other {
		return false
	}
	if c.IsZero() {
		return true
	}
	if other.IsZero() {
		return false
	}
	if len(c) != len(other) {
		return len(c) < len(other)
	}
	return c < other
}
