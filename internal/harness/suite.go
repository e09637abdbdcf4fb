package harness

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
)

// BoardNotFoundError is returned when a scenario's board_file doesn't exist.
type BoardNotFoundError struct {
	Scenario string
	Path     string
}

// Error implements the error interface.
func (e *BoardNotFoundError) Error() string {
	return fmt.Sprintf("scenario %q references board file %q which does not exist", e.Scenario, e.Path)
}

// DiscoverScenarios returns every *.yaml and *.yml file under dir, sorted.
// When filter is non-empty only paths whose base name contains it are kept.
func DiscoverScenarios(dir, filter string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" && !strings.Contains(filepath.Base(path), filter) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover scenarios in %s: %w", dir, err)
	}
	slices.Sort(paths)
	return paths, nil
}

// SuiteResult summarizes a run over many scenario files.
type SuiteResult struct {
	Total    int               `json:"total"`
	Passed   int               `json:"passed"`
	Failed   int               `json:"failed"`
	Failures []ScenarioFailure `json:"failures,omitempty"`
}

// ScenarioFailure represents one failed scenario.
type ScenarioFailure struct {
	Scenario     string   `json:"scenario"`
	ScenarioPath string   `json:"scenario_path"`
	Errors       []string `json:"errors"`
}

// RunSuite loads and runs each scenario in paths with a fresh in-memory
// journal. A scenario that fails to load counts as failed.
func RunSuite(paths []string) *SuiteResult {
	result := &SuiteResult{}

	for _, path := range paths {
		result.Total++

		scenario, err := LoadScenario(path)
		if err != nil {
			result.fail("", path, fmt.Sprintf("failed to load scenario: %v", err))
			continue
		}

		runResult, err := Run(scenario)
		if err != nil {
			result.fail(scenario.Name, path, fmt.Sprintf("scenario execution failed: %v", err))
			continue
		}

		if !runResult.Pass {
			result.fail(scenario.Name, path, runResult.Errors...)
			continue
		}

		result.Passed++
	}

	return result
}

func (r *SuiteResult) fail(name, path string, errs ...string) {
	r.Failed++
	r.Failures = append(r.Failures, ScenarioFailure{
		Scenario:     name,
		ScenarioPath: path,
		Errors:       errs,
	})
}
