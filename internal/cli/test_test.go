package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: drop_on_empty
description: Dropping on an empty column moves the card there
board:
  columns: [A, B]
  items:
    A: [i1, i2]
steps:
  - op: start
    id: i1
  - op: move
    at: { x: 320, y: 65 }
  - op: end
    at: { x: 320, y: 65 }
    expect: { changed: true, container: B, index: 0 }
assertions:
  - type: final_order
    container: B
    items: [i1]
`

const failingScenario = `name: wrong_expectation
description: Expects a cancel to not cancel
board:
  columns: [A, B]
  items:
    A: [i1, i2]
steps:
  - op: start
    id: i1
  - op: cancel
    expect: { cancelled: false }
assertions:
  - type: final_order
    container: A
    items: [i1, i2]
`

func TestTestCommandNonexistentDir(t *testing.T) {
	_, err := execute(t, NewTestCommand, "text", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandNoScenarios(t *testing.T) {
	out, err := execute(t, NewTestCommand, "text", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommandGoldenLifecycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "drop_on_empty.yaml", passingScenario)
	goldenPath := filepath.Join(dir, "golden", "drop_on_empty.golden")

	// No golden file yet: assertions alone decide.
	out, err := execute(t, NewTestCommand, "text", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ drop_on_empty")
	assert.NoFileExists(t, goldenPath)

	out, err = execute(t, NewTestCommand, "text", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ drop_on_empty (golden updated)")
	require.FileExists(t, goldenPath)

	out, err = execute(t, NewTestCommand, "json", dir)
	require.NoError(t, err)
	var result TestResult
	status, _ := decodeData(t, out, &result)
	assert.Equal(t, "ok", status)
	require.Len(t, result.Scenarios, 1)
	assert.Equal(t, "match", result.Scenarios[0].Golden)
	assert.Len(t, result.Scenarios[0].Hash, 64)

	require.NoError(t, os.WriteFile(goldenPath, []byte("{}\n"), 0644))
	out, err = execute(t, NewTestCommand, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommandReportsFailures(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "drop_on_empty.yaml", passingScenario)
	writeFile(t, dir, "wrong_expectation.yaml", failingScenario)
	writeFile(t, dir, "broken.yaml", "name: [unterminated\n")

	out, err := execute(t, NewTestCommand, "text", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ drop_on_empty")
	assert.Contains(t, out, "✗ wrong_expectation")
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
	assert.Contains(t, out, "Test Summary: 1 passed, 2 failed, 3 total")

	out, err = execute(t, NewTestCommand, "json", dir, "--filter", "wrong")
	require.Error(t, err)
	var result TestResult
	status, cliErr := decodeData(t, out, &result)
	assert.Equal(t, "error", status)
	assert.Equal(t, ErrCodeTestFailed, cliErr.Code)
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, 1, result.Failed)
	assert.NotEmpty(t, result.Scenarios[0].Errors)
}

func TestTestCommandHarnessScenarios(t *testing.T) {
	scenarios := filepath.Join("..", "harness", "testdata", "scenarios")
	golden := filepath.Join("..", "harness", "testdata", "golden")

	out, err := execute(t, NewTestCommand, "text", scenarios, "--golden", golden)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ All scenarios passed")
}
