// Package boardspec compiles CUE board definitions.
//
// A definition file declares the columns of a board, their items in order,
// optional display titles, and optional layout metrics:
//
//	board: {
//		columns: [
//			{id: "todo", title: "To do", items: ["t1", {id: "t2", title: "Ship"}]},
//			{id: "done"},
//		]
//		layout: column_width: 240
//	}
//
// Items may be written as a bare id or as an {id, title} struct.
package boardspec

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/dragboard/internal/board"
	"github.com/roach88/dragboard/internal/layout"
)

// schema closes the board struct so misspelled fields are reported instead
// of ignored.
const schema = `
#Item: string | {
	id:     string
	title?: string
}
#Column: {
	id:     string
	title?: string
	items?: [...#Item]
}
#Board: {
	columns: [...#Column]
	layout?: {
		column_width?:  number
		column_gap?:    number
		column_height?: number
		header_height?: number
		card_height?:   number
		card_gap?:      number
		card_inset?:    number
	}
}
`

// Definition is a compiled board.
type Definition struct {
	State board.State `json:"state"`
	// Titles maps column and item ids to display titles. Ids without a
	// title are absent.
	Titles map[string]string `json:"titles,omitempty"`
	// Layout is set when the file declares layout metrics. Unset fields are
	// filled from layout.Default().
	Layout *layout.Config `json:"layout,omitempty"`
}

// CompileError is a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadFile reads and compiles the board definition at path.
func LoadFile(path string) (*Definition, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read board definition: %w", err)
	}
	return CompileString(path, string(src))
}

// CompileString compiles src, a CUE file with a top-level board field.
// filename is only used in error positions.
func CompileString(filename, src string) (*Definition, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	bv := v.LookupPath(cue.ParsePath("board"))
	if !bv.Exists() {
		return nil, &CompileError{Field: "board", Message: "board is required", Pos: v.Pos()}
	}
	return Compile(bv)
}

// Compile converts the board struct v into a Definition.
func Compile(v cue.Value) (*Definition, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	def := v.Context().CompileString(schema).LookupPath(cue.ParsePath("#Board"))
	v = v.Unify(def)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	out := &Definition{
		State:  board.State{Items: make(map[board.ContainerID][]board.ItemID)},
		Titles: make(map[string]string),
	}

	cols, err := v.LookupPath(cue.ParsePath("columns")).List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for cols.Next() {
		if err := compileColumn(cols.Value(), out); err != nil {
			return nil, err
		}
	}

	if lv := v.LookupPath(cue.ParsePath("layout")); lv.Exists() {
		var cfg layout.Config
		if err := lv.Decode(&cfg); err != nil {
			return nil, formatCUEError(err)
		}
		cfg = cfg.Merge(layout.Default())
		if err := cfg.Validate(); err != nil {
			return nil, &CompileError{Field: "layout", Message: err.Error(), Pos: lv.Pos()}
		}
		out.Layout = &cfg
	}

	if err := out.State.Validate(); err != nil {
		return nil, &CompileError{Field: "columns", Message: err.Error(), Pos: v.Pos()}
	}
	return out, nil
}

func compileColumn(cv cue.Value, out *Definition) error {
	id, title, err := idAndTitle(cv)
	if err != nil {
		return err
	}
	if id == "" {
		return &CompileError{Field: "columns.id", Message: "column id must not be empty", Pos: cv.Pos()}
	}
	c := board.ContainerID(id)
	out.State.Columns = append(out.State.Columns, c)
	out.State.Items[c] = []board.ItemID{}
	if title != "" {
		out.Titles[id] = title
	}

	iv := cv.LookupPath(cue.ParsePath("items"))
	if !iv.Exists() {
		return nil
	}
	items, err := iv.List()
	if err != nil {
		return formatCUEError(err)
	}
	for items.Next() {
		item := items.Value()

		// Try as a bare id first.
		itemID, err := item.String()
		if err != nil {
			itemID, title, err = idAndTitle(item)
			if err != nil {
				return err
			}
			if title != "" {
				out.Titles[itemID] = title
			}
		}
		if itemID == "" {
			return &CompileError{
				Field:   fmt.Sprintf("columns.%s.items", id),
				Message: "item id must not be empty",
				Pos:     item.Pos(),
			}
		}
		out.State.Items[c] = append(out.State.Items[c], board.ItemID(itemID))
	}
	return nil
}

// idAndTitle reads the id field and the optional title field of v.
func idAndTitle(v cue.Value) (string, string, error) {
	id, err := v.LookupPath(cue.ParsePath("id")).String()
	if err != nil {
		return "", "", formatCUEError(err)
	}
	var title string
	if tv := v.LookupPath(cue.ParsePath("title")); tv.Exists() {
		if title, err = tv.String(); err != nil {
			return "", "", formatCUEError(err)
		}
	}
	return id, title, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
