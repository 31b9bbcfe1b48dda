package sequencer

// Editor appends instructions to a Store. Its cursor is only meaningful in
// command-entry mode.
type Editor struct {
	store  *Store
	cursor int
}

// Begin positions the cursor at the end of the existing program so that
// later appends extend it rather than overwrite it.
func (e *Editor) Begin() {
	e.cursor = e.store.End()
}

// Append writes in at the cursor and advances past it. On error the cursor
// does not move.
func (e *Editor) Append(in Instruction) error {
	next, err := e.store.Append(e.cursor, in)
	if err != nil {
		return err
	}
	e.cursor = next
	return nil
}

// Finish writes the terminator at the cursor. It reports false when the
// program fills the buffer and the end of the buffer stands in for it.
func (e *Editor) Finish() bool {
	return e.store.Terminate(e.cursor)
}

// Reset moves the cursor to offset 0.
func (e *Editor) Reset() {
	e.cursor = 0
}

// Cursor returns the offset the next append will be written at.
func (e *Editor) Cursor() int {
	return e.cursor
}
