package collision

import "math"

// Point is a pointer position in board coordinates.
type Point struct {
	X float64 `json:"x" yaml:"x" cbor:"x"`
	Y float64 `json:"y" yaml:"y" cbor:"y"`
}

// Rect is an axis-aligned rectangle in board coordinates.
type Rect struct {
	X      float64 `json:"x" yaml:"x" cbor:"x"`
	Y      float64 `json:"y" yaml:"y" cbor:"y"`
	Width  float64 `json:"width" yaml:"width" cbor:"w"`
	Height float64 `json:"height" yaml:"height" cbor:"h"`
}

// Contains reports whether p lies inside the rectangle, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Area returns the rectangle's area. Degenerate rectangles have area 0.
func (r Rect) Area() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

// Intersection returns the overlapping area of r and o.
func (r Rect) Intersection(o Rect) float64 {
	w := math.Min(r.X+r.Width, o.X+o.Width) - math.Max(r.X, o.X)
	h := math.Min(r.Y+r.Height, o.Y+o.Height) - math.Max(r.Y, o.Y)
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Center returns the rectangle's midpoint.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// MidY returns the rectangle's vertical midpoint.
func (r Rect) MidY() float64 {
	return r.Y + r.Height/2
}

// Translate returns r moved by (dx, dy).
func (r Rect) Translate(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, Width: r.Width, Height: r.Height}
}

func distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Kind says whether a region is a drop target for a whole container or a
// sibling item. The host always supplies it; the resolver never guesses.
type Kind int

const (
	// KindItem marks a region measured for a single item.
	KindItem Kind = iota + 1
	// KindContainer marks a region measured for a whole container (column).
	KindContainer
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindItem:
		return "item"
	case KindContainer:
		return "container"
	default:
		return "unknown"
	}
}

// ParseKind parses a wire name produced by Kind.String.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "item":
		return KindItem, true
	case "container":
		return KindContainer, true
	}
	return 0, false
}

// Region is one registered droppable area.
type Region struct {
	ID   string `json:"id" cbor:"id"`
	Kind Kind   `json:"kind" cbor:"k"`
	Rect Rect   `json:"rect" cbor:"r"`
}

// Geometry is the opaque measurement bundle delivered with each pointer event:
// every currently registered droppable region plus the pointer position when
// the input device has one.
type Geometry struct {
	Pointer    Point    `json:"pointer" cbor:"p"`
	HasPointer bool     `json:"has_pointer" cbor:"hp"`
	Regions    []Region `json:"regions" cbor:"rs"`
}

// AtPointer returns a Geometry with the pointer at p.
func AtPointer(p Point, regions []Region) Geometry {
	return Geometry{Pointer: p, HasPointer: true, Regions: regions}
}
