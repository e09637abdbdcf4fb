package boardspec

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dragboard/internal/board"
)

func TestCompileString_Board(t *testing.T) {
	def, err := CompileString("board.cue", `
board: {
	columns: [
		{id: "todo", title: "To do", items: ["t1", {id: "t2", title: "Ship it"}]},
		{id: "doing"},
		{id: "done", items: ["t3"]},
	]
}
`)
	require.NoError(t, err)

	assert.Equal(t, []board.ContainerID{"todo", "doing", "done"}, def.State.Columns)
	assert.Equal(t, []board.ItemID{"t1", "t2"}, def.State.Items["todo"])
	assert.Empty(t, def.State.Items["doing"])
	assert.Equal(t, []board.ItemID{"t3"}, def.State.Items["done"])
	assert.Equal(t, map[string]string{"todo": "To do", "t2": "Ship it"}, def.Titles)
	assert.Nil(t, def.Layout)
}

func TestCompileString_Layout(t *testing.T) {
	def, err := CompileString("board.cue", `
board: {
	columns: [{id: "A"}]
	layout: column_width: 240
}
`)
	require.NoError(t, err)
	require.NotNil(t, def.Layout)
	assert.Equal(t, 240.0, def.Layout.ColumnWidth)
	assert.Equal(t, 50.0, def.Layout.CardHeight, "unset metrics default")
}

func TestCompileString_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantMsg string
	}{
		{"missing board", `other: 1`, "board is required"},
		{"syntax error", `board: {columns: [`, ""},
		{"duplicate item", `board: columns: [{id: "A", items: ["x"]}, {id: "B", items: ["x"]}]`, "appears in"},
		{"duplicate column", `board: columns: [{id: "A"}, {id: "A"}]`, "duplicate column"},
		{"unknown field", `board: {columns: [], colour: "red"}`, ""},
		{"empty item id", `board: columns: [{id: "A", items: [""]}]`, "must not be empty"},
		{"bad layout", `board: {columns: [], layout: card_inset: 500}`, "card_inset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CompileString("bad.cue", tt.src)
			require.Error(t, err)
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestCompileError_Position(t *testing.T) {
	_, err := CompileString("pos.cue", "board: {\n\tcolumns: [{id: 3}]\n}\n")
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.True(t, ce.Pos.IsValid())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board.cue")
	require.NoError(t, os.WriteFile(path, []byte(`board: columns: [{id: "A", items: ["i1"]}]`), 0o644))

	def, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []board.ItemID{"i1"}, def.State.Items["A"])

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.cue"))
	assert.Error(t, err)
}
