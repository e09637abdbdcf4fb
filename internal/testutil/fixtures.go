package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/dragboard/internal/board"
)

// ThreeInA is the board A = [i1, i2, i3], B = [].
func ThreeInA() board.State {
	return board.State{
		Columns: []board.ContainerID{"A", "B"},
		Items: map[board.ContainerID][]board.ItemID{
			"A": {"i1", "i2", "i3"},
			"B": {},
		},
	}
}

// ThreeColumns is the board colA, colB, colC with no items.
func ThreeColumns() board.State {
	return board.State{
		Columns: []board.ContainerID{"colA", "colB", "colC"},
		Items:   map[board.ContainerID][]board.ItemID{},
	}
}

// MustBoard builds a board from s, failing the test on error.
func MustBoard(t testing.TB, s board.State) *board.Board {
	t.Helper()
	b, err := board.New(s)
	require.NoError(t, err)
	return b
}
