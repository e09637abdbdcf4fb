// Package board is the ordering store of the drag engine.
//
// A Board holds, per column, an ordered sequence of item ids plus the order
// of the columns themselves. It is the single source of truth for what is
// where. Every item id lives in exactly one column at all times; every
// mutation either fully applies or leaves the board untouched.
//
// Column order is reorderable through the same operations by addressing the
// synthetic container ColumnsID, whose members are the column ids.
//
// Snapshots are plain State values (deep copies). Restore is all-or-nothing:
// when a snapshot cannot be restored the board is marked corrupt and refuses
// further mutation until the host resets it from its source of truth.
package board
