// Package collision decides where a dragged entity would land.
//
// The resolver never measures anything: the host hands it a Geometry bundle
// of pre-measured rectangles, each tagged as a container region or an item
// region, plus the dragged element's current rectangle. Combined with the
// ordering store this yields at most one Target per evaluation.
//
// Fallback chain, each step tried only when the previous found nothing:
//
//  1. Column drags consider container regions only, nearest center wins.
//  2. Regions containing the pointer; the smallest one wins.
//  3. The region with the largest overlap with the dragged rectangle.
//  4. The last target of the session (sticky), unless disabled.
//
// A container candidate is refined to a sibling item inside it, and a sibling
// candidate is turned into a concrete index with the above/below rule: after
// the sibling when the dragged top edge is at or below the sibling's vertical
// midpoint, before it otherwise.
//
// Identical input always yields the identical Target. Ties are broken by
// region id, never by input order.
package collision
