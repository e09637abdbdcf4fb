// Package layout computes synthetic board geometry.
//
// Hosts measure real regions (DOM, a terminal grid); scenarios, replay and
// tests use this grid instead: columns side by side, cards stacked under a
// header inside each column.
package layout

import (
	"fmt"

	"github.com/roach88/dragboard/internal/board"
	"github.com/roach88/dragboard/internal/collision"
)

// Config is the grid metrics. All values are in the host's pixel space.
type Config struct {
	ColumnWidth  float64 `yaml:"column_width" json:"column_width"`
	ColumnGap    float64 `yaml:"column_gap" json:"column_gap"`
	ColumnHeight float64 `yaml:"column_height" json:"column_height"`
	HeaderHeight float64 `yaml:"header_height" json:"header_height"`
	CardHeight   float64 `yaml:"card_height" json:"card_height"`
	CardGap      float64 `yaml:"card_gap" json:"card_gap"`
	CardInset    float64 `yaml:"card_inset" json:"card_inset"`
}

// Default returns the standard grid: 200-wide columns 20 apart, 50-tall
// cards 10 apart under a 40-tall header.
func Default() Config {
	return Config{
		ColumnWidth:  200,
		ColumnGap:    20,
		ColumnHeight: 600,
		HeaderHeight: 40,
		CardHeight:   50,
		CardGap:      10,
		CardInset:    10,
	}
}

// Merge fills zero fields of c from d.
func (c Config) Merge(d Config) Config {
	fill := func(v *float64, dv float64) {
		if *v == 0 {
			*v = dv
		}
	}
	fill(&c.ColumnWidth, d.ColumnWidth)
	fill(&c.ColumnGap, d.ColumnGap)
	fill(&c.ColumnHeight, d.ColumnHeight)
	fill(&c.HeaderHeight, d.HeaderHeight)
	fill(&c.CardHeight, d.CardHeight)
	fill(&c.CardGap, d.CardGap)
	fill(&c.CardInset, d.CardInset)
	return c
}

// Validate rejects metrics that would produce empty or overlapping cards.
func (c Config) Validate() error {
	switch {
	case c.ColumnWidth <= 0:
		return fmt.Errorf("layout: column_width must be positive, got %v", c.ColumnWidth)
	case c.ColumnHeight <= 0:
		return fmt.Errorf("layout: column_height must be positive, got %v", c.ColumnHeight)
	case c.CardHeight <= 0:
		return fmt.Errorf("layout: card_height must be positive, got %v", c.CardHeight)
	case c.ColumnGap < 0 || c.CardGap < 0 || c.HeaderHeight < 0:
		return fmt.Errorf("layout: gaps and header must not be negative")
	case c.CardInset < 0 || 2*c.CardInset >= c.ColumnWidth:
		return fmt.Errorf("layout: card_inset %v does not fit column_width %v", c.CardInset, c.ColumnWidth)
	}
	return nil
}

// ColumnRect returns the rectangle of the column at position i.
func (c Config) ColumnRect(i int) collision.Rect {
	return collision.Rect{
		X:      float64(i) * (c.ColumnWidth + c.ColumnGap),
		Y:      0,
		Width:  c.ColumnWidth,
		Height: c.ColumnHeight,
	}
}

// CardRect returns the rectangle of the card at row of the column at col.
func (c Config) CardRect(col, row int) collision.Rect {
	return collision.Rect{
		X:      c.ColumnRect(col).X + c.CardInset,
		Y:      c.HeaderHeight + float64(row)*(c.CardHeight+c.CardGap),
		Width:  c.ColumnWidth - 2*c.CardInset,
		Height: c.CardHeight,
	}
}

// Regions lays out s: one container region per column, in column order,
// followed by the item regions of each column.
func (c Config) Regions(s board.State) []collision.Region {
	regions := make([]collision.Region, 0, len(s.Columns)+s.ItemCount())
	for i, col := range s.Columns {
		regions = append(regions, collision.Region{
			ID:   string(col),
			Kind: collision.KindContainer,
			Rect: c.ColumnRect(i),
		})
	}
	for i, col := range s.Columns {
		for row, it := range s.Items[col] {
			regions = append(regions, collision.Region{
				ID:   string(it),
				Kind: collision.KindItem,
				Rect: c.CardRect(i, row),
			})
		}
	}
	return regions
}

// Geometry lays out s with the pointer at p.
func (c Config) Geometry(s board.State, p collision.Point) collision.Geometry {
	return collision.AtPointer(p, c.Regions(s))
}

// DraggedAt returns the dragged element's rectangle centered on p: a card,
// or a whole column when column is set.
func (c Config) DraggedAt(p collision.Point, column bool) collision.Rect {
	w, h := c.ColumnWidth-2*c.CardInset, c.CardHeight
	if column {
		w, h = c.ColumnWidth, c.ColumnHeight
	}
	return collision.Rect{X: p.X - w/2, Y: p.Y - h/2, Width: w, Height: h}
}
