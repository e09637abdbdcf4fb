package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateValidBoard(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "board.cue", twoColumnBoard)

	out, err := execute(t, NewValidateCommand, "text", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ "+path+": 2 column(s), 3 item(s)")
}

func TestValidateJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "board.cue", twoColumnBoard)

	out, err := execute(t, NewValidateCommand, "json", path)
	require.NoError(t, err)

	var result ValidationResult
	status, _ := decodeData(t, out, &result)
	assert.Equal(t, "ok", status)
	assert.True(t, result.Valid)
	require.Len(t, result.Boards, 1)
	assert.Equal(t, 2, result.Boards[0].Columns)
	assert.Equal(t, 3, result.Boards[0].Items)
	assert.Len(t, result.Boards[0].Hash, 64)
	assert.False(t, result.Boards[0].Layout)
}

func TestValidateRejectsDuplicateItem(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.cue", twoColumnBoard)
	bad := writeFile(t, dir, "dup.cue", `
board: {
	columns: [
		{id: "colA", items: ["c1"]},
		{id: "colB", items: ["c1"]},
	]
}
`)

	out, err := execute(t, NewValidateCommand, "text", good, bad)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ "+good)
	assert.Contains(t, out, "✗ "+bad)
	assert.Contains(t, out, "c1")

	out, err = execute(t, NewValidateCommand, "json", good, bad)
	require.Error(t, err)
	var result ValidationResult
	status, cliErr := decodeData(t, out, &result)
	assert.Equal(t, "error", status)
	require.NotNil(t, cliErr)
	assert.Equal(t, ErrCodeBoardInvalid, cliErr.Code)
	assert.False(t, result.Valid)
	assert.Len(t, result.Boards, 1)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, bad, result.Errors[0].File)
}

func TestValidateSyntaxErrorHasLine(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "broken.cue", "board: {\n\tcolumns: [\n\t\t{id: 42},\n\t]\n}\n")

	out, err := execute(t, NewValidateCommand, "json", bad)
	require.Error(t, err)

	var result ValidationResult
	decodeData(t, out, &result)
	require.Len(t, result.Errors, 1)
	assert.Positive(t, result.Errors[0].Line)
}

func TestValidateMissingFile(t *testing.T) {
	out, err := execute(t, NewValidateCommand, "text", filepath.Join(t.TempDir(), "nope.cue"))
	require.Error(t, err)
	assert.Contains(t, out, "read board definition")
}

func TestValidateRequiresArgs(t *testing.T) {
	_, err := execute(t, NewValidateCommand, "text")
	require.Error(t, err)
}
