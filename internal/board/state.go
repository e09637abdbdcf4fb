package board

import "slices"

// ItemID identifies an item (ticket). Unique across the whole board.
type ItemID string

// ContainerID identifies a container (column). Unique across the board.
type ContainerID string

// ColumnsID is the synthetic top-level container whose members are the
// column ids themselves. Column drags reorder this sequence.
const ColumnsID ContainerID = "$columns"

// State is the value form of a board: the column order plus each column's
// item order. It is what snapshots, seeds and journals carry.
//
// A State is plain data. Use Clone before handing one to code that may mutate it.
type State struct {
	Columns []ContainerID            `json:"columns" yaml:"columns"`
	Items   map[ContainerID][]ItemID `json:"items" yaml:"items"`
}

// Clone returns a deep copy of s. Every column in Columns gets a non-nil
// (possibly empty) item slice in the copy.
func (s State) Clone() State {
	out := State{
		Columns: slices.Clone(s.Columns),
		Items:   make(map[ContainerID][]ItemID, len(s.Columns)),
	}
	if out.Columns == nil {
		out.Columns = []ContainerID{}
	}
	for _, c := range s.Columns {
		items := s.Items[c]
		cp := make([]ItemID, len(items))
		copy(cp, items)
		out.Items[c] = cp
	}
	return out
}

// Validate checks the board invariants on s:
//   - column ids are non-empty, unique, and not the reserved ColumnsID
//   - every key of Items is a listed column
//   - every item id is non-empty and appears exactly once
func (s State) Validate() error {
	seenCol := make(map[ContainerID]bool, len(s.Columns))
	for _, c := range s.Columns {
		if c == "" {
			return invalidState("empty column id")
		}
		if c == ColumnsID {
			return invalidState("column id %q is reserved", ColumnsID)
		}
		if seenCol[c] {
			return invalidState("duplicate column %q", c)
		}
		seenCol[c] = true
	}
	for c := range s.Items {
		if !seenCol[c] {
			return invalidState("items listed for unknown column %q", c)
		}
	}

	seenItem := make(map[ItemID]ContainerID)
	for _, c := range s.Columns {
		for _, it := range s.Items[c] {
			if it == "" {
				return invalidState("empty item id in column %q", c)
			}
			if ContainerID(it) == ColumnsID || seenCol[ContainerID(it)] {
				return invalidState("item %q collides with a column id", it)
			}
			if prev, dup := seenItem[it]; dup {
				return invalidState("item %q appears in %q and %q", it, prev, c)
			}
			seenItem[it] = c
		}
	}
	return nil
}

// ItemCount returns the total number of items across all columns.
func (s State) ItemCount() int {
	n := 0
	for _, c := range s.Columns {
		n += len(s.Items[c])
	}
	return n
}

// Equal reports whether s and o describe the same board. A missing column
// entry in Items is equal to an empty one.
func (s State) Equal(o State) bool {
	if !slices.Equal(s.Columns, o.Columns) {
		return false
	}
	for _, c := range s.Columns {
		if !slices.Equal(s.Items[c], o.Items[c]) {
			return false
		}
	}
	return true
}

// SameMembers reports whether s and o hold the same columns and items,
// regardless of order. Every ordering mutation preserves it.
func (s State) SameMembers(o State) bool {
	return sameIDs(s, o)
}

// sameIDs reports whether s and o hold the same column set and item set,
// regardless of order.
func sameIDs(s, o State) bool {
	if len(s.Columns) != len(o.Columns) || s.ItemCount() != o.ItemCount() {
		return false
	}
	cols := make(map[ContainerID]bool, len(s.Columns))
	for _, c := range s.Columns {
		cols[c] = true
	}
	for _, c := range o.Columns {
		if !cols[c] {
			return false
		}
	}
	items := make(map[ItemID]bool, s.ItemCount())
	for _, c := range s.Columns {
		for _, it := range s.Items[c] {
			items[it] = true
		}
	}
	for _, c := range o.Columns {
		for _, it := range o.Items[c] {
			if !items[it] {
				return false
			}
		}
	}
	return true
}
