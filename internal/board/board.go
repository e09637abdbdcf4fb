package board

import (
	"slices"
	"sync"
)

// Board is the ordering store: the single source of truth for which item
// sits where, and in which order the columns appear.
//
// Mutations are all-or-nothing. A failing call returns *Error and leaves
// every sequence untouched. Indexes are never an error: they are clamped.
//
// Board is safe for concurrent use. The drag engine mutates it from one
// goroutine; a renderer may read Order/ContainerOrder from another.
type Board struct {
	mu      sync.RWMutex
	columns []ContainerID
	items   map[ContainerID][]ItemID
	where   map[ItemID]ContainerID
	corrupt bool
}

// New builds a board from s. s is copied; later changes to s do not affect
// the board.
func New(s State) (*Board, error) {
	b := &Board{}
	if err := b.load(s); err != nil {
		return nil, err
	}
	return b, nil
}

// load validates s and replaces the board contents with a copy of it.
// Caller holds mu (or owns b exclusively).
func (b *Board) load(s State) error {
	if err := s.Validate(); err != nil {
		return err
	}
	cp := s.Clone()
	where := make(map[ItemID]ContainerID, cp.ItemCount())
	for _, c := range cp.Columns {
		for _, it := range cp.Items[c] {
			where[it] = c
		}
	}
	b.columns = cp.Columns
	b.items = cp.Items
	b.where = where
	b.corrupt = false
	return nil
}

// Reset resynchronizes the board from the source of truth. The new state may
// hold a different id set than the current one. Reset clears the corrupt flag.
func (b *Board) Reset(s State) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.load(s)
}

// Order returns a copy of the item sequence of container c.
// For ColumnsID it returns the column order as item ids.
func (b *Board) Order(c ContainerID) ([]ItemID, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if c == ColumnsID {
		out := make([]ItemID, len(b.columns))
		for i, col := range b.columns {
			out[i] = ItemID(col)
		}
		return out, nil
	}
	seq, ok := b.items[c]
	if !ok {
		return nil, unknownContainer(c)
	}
	return slices.Clone(seq), nil
}

// ContainerOrder returns a copy of the column order.
func (b *Board) ContainerOrder() []ContainerID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.columns)
}

// HasContainer reports whether c is a column of the board.
func (b *Board) HasContainer(c ContainerID) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.items[c]
	return ok
}

// HasItem reports whether item is on the board.
func (b *Board) HasItem(item ItemID) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.where[item]
	return ok
}

// Locate returns the container currently holding item and its index there.
func (b *Board) Locate(item ItemID) (ContainerID, int, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.where[item]
	if !ok {
		return "", -1, false
	}
	return c, slices.Index(b.items[c], item), true
}

// ColumnIndex returns the position of column c in the column order.
func (b *Board) ColumnIndex(c ContainerID) (int, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	i := slices.Index(b.columns, c)
	return i, i >= 0
}

// Corrupt reports whether a failed restore left the board untrusted.
// A corrupt board refuses mutations until Reset.
func (b *Board) Corrupt() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.corrupt
}

// MoveWithinContainer moves item to newIndex inside container c. newIndex is
// the item's final position, clamped to [0, len-1]. Returns changed=false when
// the item already sits there.
func (b *Board) MoveWithinContainer(c ContainerID, item ItemID, newIndex int) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.corrupt {
		return false, corruptErr()
	}
	if c == ColumnsID {
		return b.moveColumn(ContainerID(item), newIndex)
	}
	seq, ok := b.items[c]
	if !ok {
		return false, unknownContainer(c)
	}
	from := slices.Index(seq, item)
	if from < 0 {
		return false, unknownItem(item, c)
	}
	next, changed := reposition(seq, from, newIndex)
	b.items[c] = next
	return changed, nil
}

// MoveBetweenContainers removes item from container from and inserts it into
// container to at newIndex, clamped to [0, len(to)].
func (b *Board) MoveBetweenContainers(item ItemID, from, to ContainerID, newIndex int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.corrupt {
		return corruptErr()
	}
	src, ok := b.items[from]
	if !ok {
		return unknownContainer(from)
	}
	dst, ok := b.items[to]
	if !ok {
		return unknownContainer(to)
	}
	idx := slices.Index(src, item)
	if idx < 0 {
		return unknownItem(item, from)
	}
	if from == to {
		b.items[from], _ = reposition(src, idx, newIndex)
		return nil
	}

	// Validation is done; nothing below can fail.
	b.items[from] = slices.Delete(slices.Clone(src), idx, idx+1)
	b.items[to] = slices.Insert(slices.Clone(dst), clamp(newIndex, 0, len(dst)), item)
	b.where[item] = to
	return nil
}

// MoveContainer moves column c to newIndex in the column order, clamped to
// [0, len-1].
func (b *Board) MoveContainer(c ContainerID, newIndex int) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.corrupt {
		return false, corruptErr()
	}
	return b.moveColumn(c, newIndex)
}

func (b *Board) moveColumn(c ContainerID, newIndex int) (bool, error) {
	from := slices.Index(b.columns, c)
	if from < 0 {
		return false, unknownContainer(c)
	}
	next, changed := reposition(b.columns, from, newIndex)
	b.columns = next
	return changed, nil
}

// Snapshot returns a deep copy of the current board. The copy is independent
// of any later mutation.
func (b *Board) Snapshot() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return State{Columns: b.columns, Items: b.items}.Clone()
}

// Restore puts the board back to snapshot s. It either fully succeeds or
// changes nothing and marks the board corrupt: s must be a valid State
// holding exactly the board's current column and item ids.
func (b *Board) Restore(s State) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := s.Validate(); err != nil {
		b.corrupt = true
		return &Error{Code: ErrCodeRestoreFailure, Message: "snapshot is invalid: " + err.Error()}
	}
	current := State{Columns: b.columns, Items: b.items}
	if !sameIDs(current, s) {
		b.corrupt = true
		return &Error{Code: ErrCodeRestoreFailure, Message: "snapshot id set differs from board"}
	}
	return b.load(s)
}

// Validate checks that the live board still satisfies the board invariants.
func (b *Board) Validate() error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if err := (State{Columns: b.columns, Items: b.items}).Validate(); err != nil {
		return err
	}
	for it, c := range b.where {
		if !slices.Contains(b.items[c], it) {
			return invalidState("index places %q in %q but it is not there", it, c)
		}
	}
	return nil
}

// reposition returns seq with the element at from moved to final position to,
// clamped to [0, len-1]. seq itself is not modified.
func reposition[T comparable](seq []T, from, to int) ([]T, bool) {
	to = clamp(to, 0, len(seq)-1)
	if to == from {
		return seq, false
	}
	out := slices.Clone(seq)
	v := out[from]
	out = slices.Delete(out, from, from+1)
	out = slices.Insert(out, to, v)
	return out, true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func corruptErr() *Error {
	return &Error{Code: ErrCodeCorrupt, Message: "board must be reset before it can be mutated"}
}
