package collision

import (
	"slices"

	"github.com/roach88/dragboard/internal/board"
)

// Ordering is the read side of the ordering store the resolver needs.
// *board.Board implements it.
type Ordering interface {
	Order(c board.ContainerID) ([]board.ItemID, error)
	ContainerOrder() []board.ContainerID
	Locate(item board.ItemID) (board.ContainerID, int, bool)
	HasContainer(c board.ContainerID) bool
}

// Active describes the entity being dragged at evaluation time.
type Active struct {
	ID          string
	IsContainer bool
	// Rect is the dragged element's current (translated) rectangle.
	Rect Rect
}

// Via records which step of the fallback chain produced a target.
type Via string

const (
	ViaColumns Via = "columns"
	ViaPointer Via = "pointer"
	ViaOverlap Via = "overlap"
	ViaCenter  Via = "center"
	ViaEmpty   Via = "empty"
	ViaAppend  Via = "append"
	ViaSticky  Via = "sticky"
)

// Target is one candidate drop position.
//
// Index is a concrete sequence position. When Container is the container
// currently holding the dragged entity, Index is its final position after
// removal from its current slot (what MoveWithinContainer expects). Otherwise
// Index is the insert position in Container (what MoveBetweenContainers
// expects).
type Target struct {
	Container board.ContainerID `json:"container"`
	Index     int               `json:"index"`
	// Sibling is the item (or, for column drags, the column) the target was
	// derived from. Empty for empty-container and append targets.
	Sibling string `json:"sibling,omitempty"`
	After   bool   `json:"after,omitempty"`
	Via     Via    `json:"via"`
}

// SameSlot reports whether t and o place the dragged entity identically.
func (t Target) SameSlot(o Target) bool {
	return t.Container == o.Container && t.Index == o.Index
}

// Resolver turns one geometry evaluation into at most one Target.
//
// The result is a pure function of the geometry, the ordering store, and the
// last target remembered from the current session (the sticky target).
// Call Reset when a new drag session starts.
type Resolver struct {
	sticky bool
	last   *Target
}

// NewResolver creates a resolver. With sticky set, evaluations that find no
// region reuse the last target of the session instead of returning nothing.
func NewResolver(sticky bool) *Resolver {
	return &Resolver{sticky: sticky}
}

// Reset forgets the sticky target.
func (r *Resolver) Reset() {
	r.last = nil
}

// Last returns the sticky target, if any.
func (r *Resolver) Last() (Target, bool) {
	if r.last == nil {
		return Target{}, false
	}
	return *r.last, true
}

// Resolve evaluates geometry g for the dragged entity a.
func (r *Resolver) Resolve(store Ordering, a Active, g Geometry) (Target, bool) {
	t, ok := evaluate(store, a, g)
	if ok {
		r.last = &t
		return t, true
	}
	if r.sticky && r.last != nil {
		t := *r.last
		t.Via = ViaSticky
		return t, true
	}
	return Target{}, false
}

func evaluate(store Ordering, a Active, g Geometry) (Target, bool) {
	regions := knownRegions(store, g.Regions)

	if a.IsContainer {
		return nearestColumn(store, a, regions)
	}

	var hit *Region
	via := ViaPointer
	if g.HasPointer {
		hit = smallestContaining(regions, g.Pointer)
	}
	if hit == nil {
		hit = largestOverlap(regions, a.Rect)
		via = ViaOverlap
	}
	if hit == nil {
		return Target{}, false
	}

	if hit.Kind == KindItem {
		return siblingTarget(store, a, *hit, via)
	}
	return containerTarget(store, a, g, regions, board.ContainerID(hit.ID))
}

// knownRegions drops regions whose id the ordering store does not know, or
// whose declared kind contradicts the store. Stale measurements from a host
// that has not re-rendered yet land here.
func knownRegions(store Ordering, regions []Region) []Region {
	out := make([]Region, 0, len(regions))
	for _, rg := range regions {
		switch rg.Kind {
		case KindContainer:
			if store.HasContainer(board.ContainerID(rg.ID)) {
				out = append(out, rg)
			}
		case KindItem:
			if _, _, ok := store.Locate(board.ItemID(rg.ID)); ok {
				out = append(out, rg)
			}
		}
	}
	return out
}

// nearestColumn handles column drags: only container regions compete, by
// distance between centers.
func nearestColumn(store Ordering, a Active, regions []Region) (Target, bool) {
	var cols []Region
	for _, rg := range regions {
		if rg.Kind == KindContainer {
			cols = append(cols, rg)
		}
	}
	over := nearestCenter(cols, a.Rect.Center())
	if over == nil {
		return Target{}, false
	}
	idx := slices.Index(store.ContainerOrder(), board.ContainerID(over.ID))
	return Target{
		Container: board.ColumnsID,
		Index:     idx,
		Sibling:   over.ID,
		Via:       ViaColumns,
	}, true
}

// containerTarget refines a container candidate down to a sibling item.
func containerTarget(store Ordering, a Active, g Geometry, regions []Region, c board.ContainerID) (Target, bool) {
	seq, err := store.Order(c)
	if err != nil {
		return Target{}, false
	}
	if len(seq) == 0 {
		return Target{Container: c, Index: 0, Via: ViaEmpty}, true
	}

	members := make(map[string]bool, len(seq))
	for _, it := range seq {
		members[string(it)] = true
	}
	var inside []Region
	for _, rg := range regions {
		if rg.Kind == KindItem && members[rg.ID] {
			inside = append(inside, rg)
		}
	}

	var hit *Region
	via := ViaPointer
	if g.HasPointer {
		hit = smallestContaining(inside, g.Pointer)
	}
	if hit == nil {
		hit = largestOverlap(inside, a.Rect)
		via = ViaOverlap
	}
	if hit == nil {
		hit = nearestCenter(inside, a.Rect.Center())
		via = ViaCenter
	}
	if hit != nil {
		return siblingTarget(store, a, *hit, via)
	}

	// Non-empty container with no measured items: append.
	idx := len(seq)
	if cur, _, _ := store.Locate(board.ItemID(a.ID)); cur == c {
		idx = len(seq) - 1
	}
	return Target{Container: c, Index: idx, Via: ViaAppend}, true
}

// siblingTarget applies the above/below rule against sibling s: the dragged
// element goes after s when its top edge is at or below s's vertical
// midpoint, before it otherwise. A top edge between the midpoint and s's
// bottom edge therefore already counts as after.
func siblingTarget(store Ordering, a Active, s Region, via Via) (Target, bool) {
	c, si, ok := store.Locate(board.ItemID(s.ID))
	if !ok {
		return Target{}, false
	}
	cur, di, _ := store.Locate(board.ItemID(a.ID))

	if s.ID == a.ID {
		return Target{Container: c, Index: di, Sibling: s.ID, Via: via}, true
	}

	after := a.Rect.Y >= s.Rect.MidY()
	idx := si
	if after {
		idx++
	}
	if cur == c && di < idx {
		// The dragged item's own removal shifts later slots up by one.
		idx--
	}
	return Target{Container: c, Index: idx, Sibling: s.ID, After: after, Via: via}, true
}

// smallestContaining picks the most specific region under p: smallest area,
// then item before container, then lowest id.
func smallestContaining(regions []Region, p Point) *Region {
	var best *Region
	for i := range regions {
		rg := &regions[i]
		if !rg.Rect.Contains(p) {
			continue
		}
		if best == nil || lessSpecific(best, rg) {
			best = rg
		}
	}
	return best
}

// lessSpecific reports whether candidate c should replace best.
func lessSpecific(best, c *Region) bool {
	ba, ca := best.Rect.Area(), c.Rect.Area()
	if ca != ba {
		return ca < ba
	}
	if c.Kind != best.Kind {
		return c.Kind == KindItem
	}
	return c.ID < best.ID
}

// largestOverlap picks the region sharing the most area with r.
func largestOverlap(regions []Region, r Rect) *Region {
	var best *Region
	bestArea := 0.0
	for i := range regions {
		rg := &regions[i]
		area := rg.Rect.Intersection(r)
		if area <= 0 {
			continue
		}
		if best == nil || area > bestArea || (area == bestArea && rg.ID < best.ID) {
			best = rg
			bestArea = area
		}
	}
	return best
}

// nearestCenter picks the region whose center is closest to p.
func nearestCenter(regions []Region, p Point) *Region {
	var best *Region
	bestDist := 0.0
	for i := range regions {
		rg := &regions[i]
		d := distance(rg.Rect.Center(), p)
		if best == nil || d < bestDist || (d == bestDist && rg.ID < best.ID) {
			best = rg
			bestDist = d
		}
	}
	return best
}
