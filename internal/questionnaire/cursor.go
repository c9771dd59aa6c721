package questionnaire

import "math"

// Cursor tracks the displayed step. It moves one step at a time and never
// leaves [0, length). Moves past either end are ignored.
type Cursor struct {
	index  int
	length int
}

// NewCursor creates a cursor at the first of length steps
func NewCursor(length int) Cursor {
	if length < 1 {
		length = 1
	}
	return Cursor{length: length}
}

// Index returns the current step index (0-based)
func (c Cursor) Index() int {
	return c.index
}

// Len returns the number of steps the cursor moves over
func (c Cursor) Len() int {
	return c.length
}

// AtFirst reports whether the cursor is on the first step
func (c Cursor) AtFirst() bool {
	return c.index == 0
}

// AtLast reports whether the cursor is on the last step
func (c Cursor) AtLast() bool {
	return c.index == c.length-1
}

// Advance moves to the next step. It reports false and does nothing on the last step.
func (c *Cursor) Advance() bool {
	if c.AtLast() {
		return false
	}
	c.index++
	return true
}

// Retreat moves to the previous step. It reports false and does nothing on the first step.
func (c *Cursor) Retreat() bool {
	if c.AtFirst() {
		return false
	}
	c.index--
	return true
}

// ProgressPercent returns round(100 * index / (length-1))
func (c Cursor) ProgressPercent() int {
	if c.length <= 1 {
		return 100
	}
	return int(math.Round(100 * float64(c.index) / float64(c.length-1)))
}

// Reset moves back to the first step
func (c *Cursor) Reset() {
	c.index = 0
}
