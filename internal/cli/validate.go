package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/dragboard/internal/boardspec"
	"github.com/roach88/dragboard/internal/canon"
)

// BoardSummary describes one valid board definition.
type BoardSummary struct {
	File    string `json:"file"`
	Columns int    `json:"columns"`
	Items   int    `json:"items"`
	Hash    string `json:"hash"`
	Layout  bool   `json:"layout"`
}

// ValidationError is one rejected board definition.
type ValidationError struct {
	File    string `json:"file"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Boards []BoardSummary    `json:"boards"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <board.cue>...",
		Short: "Validate CUE board definitions",
		Long: `Compile CUE board definitions and check them without running anything.

A board is valid when every column and item id is unique, every item lives in
exactly one column, and any declared layout metrics are usable.

Examples:
  dragboard validate ./boards/sprint.cue
  dragboard validate ./boards/*.cue --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, files []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	result := ValidationResult{Valid: true, Boards: []BoardSummary{}}
	for _, file := range files {
		formatter.VerboseLog("Validating %s", file)

		summary, err := validateBoard(file)
		if err != nil {
			result.Valid = false
			result.Errors = append(result.Errors, toValidationError(file, err))
			continue
		}
		result.Boards = append(result.Boards, summary)
	}

	if formatter.JSON() {
		if !result.Valid {
			first := result.Errors[0]
			return formatter.Failure(ErrCodeBoardInvalid, fmt.Sprintf("%s: %s", first.File, first.Message), result)
		}
		return formatter.Success(result)
	}

	return outputValidateText(formatter, result)
}

func validateBoard(file string) (BoardSummary, error) {
	def, err := boardspec.LoadFile(file)
	if err != nil {
		return BoardSummary{}, err
	}
	hash, err := canon.BoardHash(def.State)
	if err != nil {
		return BoardSummary{}, err
	}
	return BoardSummary{
		File:    file,
		Columns: len(def.State.Columns),
		Items:   def.State.ItemCount(),
		Hash:    hash,
		Layout:  def.Layout != nil,
	}, nil
}

// toValidationError keeps the field and line of compile errors.
func toValidationError(file string, err error) ValidationError {
	ve := ValidationError{File: file, Message: err.Error()}

	var cErr *boardspec.CompileError
	if errors.As(err, &cErr) {
		ve.Field = cErr.Field
		ve.Message = cErr.Message
		if cErr.Pos.IsValid() {
			ve.Line = cErr.Pos.Line()
		}
	}
	return ve
}

// outputValidateText outputs validation results as text.
func outputValidateText(formatter *OutputFormatter, result ValidationResult) error {
	w := formatter.Writer

	for _, b := range result.Boards {
		fmt.Fprintf(w, "✓ %s: %d column(s), %d item(s)\n", b.File, b.Columns, b.Items)
		if formatter.Verbose {
			fmt.Fprintf(w, "  hash: %s\n", b.Hash)
		}
	}
	for _, e := range result.Errors {
		fmt.Fprintf(w, "✗ %s\n", e.File)
		if e.Line > 0 {
			fmt.Fprintf(w, "  line %d: ", e.Line)
		} else {
			fmt.Fprint(w, "  ")
		}
		if e.Field != "" {
			fmt.Fprintf(w, "%s: ", e.Field)
		}
		fmt.Fprintln(w, e.Message)
	}

	if !result.Valid {
		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}
	return nil
}
