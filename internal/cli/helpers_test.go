package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dragboard/internal/engine"
)

// twoColumnBoard has c1..c3 in colA and an empty colB. On the default grid
// colB spans x 220..420, so (320, 65) is over it.
const twoColumnBoard = `
board: {
	columns: [
		{id: "colA", title: "Todo", items: ["c1", "c2", "c3"]},
		{id: "colB", title: "Doing"},
	]
}
`

// moveC2ToB drags c2 onto the empty colB and drops it there.
const moveC2ToB = `{"type":"drag_start","id":"c2"}
{"type":"drag_move","x":320,"y":65}
{"type":"drag_end","x":320,"y":65}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// runInput runs the engine over input against a fresh or existing journal at
// dbPath. Session tokens are run-1, run-2, ...
func runInput(t *testing.T, format, boardPath, dbPath, input string) (string, error) {
	t.Helper()

	buf := &bytes.Buffer{}
	cmd := silentCommand()
	cmd.SetOut(buf)
	cmd.SetIn(strings.NewReader(input))

	opts := &RunOptions{
		RootOptions: &RootOptions{Format: format},
		Database:    dbPath,
		Board:       boardPath,
		Input:       "-",
		Tokens:      engine.NewSequenceGenerator("run"),
	}
	err := runEngine(opts, cmd)
	return buf.String(), err
}

// decodeData unmarshals the data field of a JSON CLIResponse into v and
// returns the status.
func decodeData(t *testing.T, out string, v any) (string, *CLIError) {
	t.Helper()

	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	if v != nil && len(resp.Data) > 0 {
		require.NoError(t, json.Unmarshal(resp.Data, v))
	}
	return resp.Status, resp.Error
}

// execute runs a command built by newCmd with args and returns its stdout.
func execute(t *testing.T, newCmd func(*RootOptions) *cobra.Command, format string, args ...string) (string, error) {
	t.Helper()

	buf := &bytes.Buffer{}
	cmd := newCmd(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

// silentCommand is a bare command for calling run functions directly.
func silentCommand() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	return cmd
}
