package logic

// GroupCursor is the last group index the server confirmed switching to.
type GroupCursor struct {
	index     int
	numGroups int
}

// NewGroupCursor returns a cursor at index 0. numGroups below 1 is treated as 1.
func NewGroupCursor(numGroups int) GroupCursor {
	if numGroups < 1 {
		numGroups = 1
	}
	return GroupCursor{numGroups: numGroups}
}

// Index returns the confirmed group index.
func (c GroupCursor) Index() int {
	return c.index
}

// NumGroups returns the wraparound modulus.
func (c GroupCursor) NumGroups() int {
	return c.numGroups
}

// Next returns the index a switch command should target.
// It does not move the cursor.
func (c GroupCursor) Next() int {
	return NextGroup(c.index, c.numGroups)
}

// Confirm moves the cursor to an index the server acknowledged.
// Out of range indices are rejected and leave the cursor unchanged.
func (c *GroupCursor) Confirm(index int) bool {
	if index < 0 || index >= c.numGroups {
		return false
	}
	c.index = index
	return true
}

// NextGroup returns (current + 1) mod numGroups, always in [0, numGroups).
func NextGroup(current, numGroups int) int {
	if numGroups < 1 {
		return 0
	}
	next := (current + 1) % numGroups
	if next < 0 {
		next += numGroups
	}
	return next
}

// AutoSwitch mirrors the server's auto-switch setting as last confirmed.
type AutoSwitch struct {
	Enabled  bool `json:"enabled"`
	Interval int  `json:"interval"`
}

// Toggled returns the state a blue press asks the server for.
func (a AutoSwitch) Toggled() AutoSwitch {
	return AutoSwitch{Enabled: !a.Enabled, Interval: a.Interval}
}
