package ntv2

import (
	"math"

	"github.com/golang/glog"
)

// Extent is a user-supplied rectangular mask in degrees, standard sign,
// used to crop sub-grids at load time.
type Extent struct {
	WLon, SLat, ELon, NLat float64
}

// isEmpty reports whether either coordinate pair is equal under epsilon,
// making the extent a no-op.
func (e Extent) isEmpty() bool {
	return eq(e.WLon, e.ELon) || eq(e.SLat, e.NLat)
}

// Crop applies an extent to every active node of h: nodes strictly
// outside it (and their transitive subtree) are deactivated, nodes
// strictly inside are untouched, and nodes straddling the boundary are
// shrunk to the nearest enclosing cell boundary of their *parent's* grid.
func Crop(h *Header, e Extent) error {
	if e.isEmpty() {
		return nil
	}

	mask := newActiveMask(len(h.Nodes))
	any := false

	for _, n := range h.Nodes {
		if !n.Active {
			mask.clear(n.Index)
			continue
		}
		switch {
		case boxStrictlyOutside(n, e):
			deactivateSubtree(h, n, mask)
			any = true
		case boxStrictlyInside(n, e):
			// untouched
		default:
			cropNode(h, n, e)
		}
	}

	if any {
		for _, n := range h.Nodes {
			n.Active = mask.isSet(n.Index)
		}
		if mask.countSet() == 0 {
			return newErr(ErrInvalidExtent, "extent leaves no active sub-files")
		}
		if err := buildTopology(h); err != nil {
			return err
		}
		if h.RawOverview != nil {
			h.RawOverview.NumFiles = int32(mask.countSet())
		}
	}

	glog.V(1).Infof("ntv2: extent applied, %d active nodes remain", mask.countSet())
	return nil
}

func boxStrictlyOutside(n *Node, e Extent) bool {
	return gt(n.LonMin, e.ELon) || lt(n.LonMax, e.WLon) || gt(n.LatMin, e.NLat) || lt(n.LatMax, e.SLat)
}

func boxStrictlyInside(n *Node, e Extent) bool {
	return le(e.WLon, n.LonMin) && ge(e.ELon, n.LonMax) && le(e.SLat, n.LatMin) && ge(e.NLat, n.LatMax)
}

func deactivateSubtree(h *Header, n *Node, mask *activeMask) {
	mask.clear(n.Index)
	for c := n.FirstChild; c != noIndex; {
		child := h.Nodes[c]
		deactivateSubtree(h, child, mask)
		c = child.NextSibling
	}
}

// cropNode shrinks n's bounding box to the extent, rounding each edge
// outward to the nearest cell boundary of the *parent's* grid increment
// (or its own, if it has no parent), and records the byte-stride skips
// the lazy data store needs to stay aligned with the original file.
func cropNode(h *Header, n *Node, e Extent) {
	parentLatInc, parentLonInc := n.LatInc, n.LonInc
	if n.Parent != noIndex {
		p := h.Nodes[n.Parent]
		parentLatInc, parentLonInc = p.LatInc, p.LonInc
	}

	wK := cropCells(n.LonMin, e.WLon, parentLonInc, n.LonInc)
	eK := cropCells(e.ELon, n.LonMax, parentLonInc, n.LonInc)
	sK := cropCells(n.LatMin, e.SLat, parentLatInc, n.LatInc)
	nK := cropCells(e.NLat, n.LatMax, parentLatInc, n.LatInc)

	origNCols := n.NCols

	n.LonMin += float64(wK) * n.LonInc
	n.LonMax -= float64(eK) * n.LonInc
	n.LatMin += float64(sK) * n.LatInc
	n.LatMax -= float64(nK) * n.LatInc

	n.NCols -= wK + eK
	n.NRows -= sK + nK
	n.Num = n.NRows * n.NCols

	const cellSize = 16 // 4 floats * 4 bytes per grid-shift record
	n.WSkip = int64(wK) * cellSize
	n.ESkip = int64(eK) * cellSize
	n.SSkip = int64(sK) * cellSize * int64(origNCols)
	n.NSkip = int64(nK) * cellSize * int64(origNCols)

	// In-memory data is re-sliced to the cropped grid (col 0 is the east edge).
	if ms, ok := n.store.(*materializedStore); ok {
		var shifts, accurs []Shift
		for r := sK; r < sK+n.NRows; r++ {
			from := r*origNCols + eK
			shifts = append(shifts, ms.shifts[from:from+n.NCols]...)
			if ms.accurs != nil {
				accurs = append(accurs, ms.accurs[from:from+n.NCols]...)
			}
		}
		ms.shifts, ms.accurs, ms.ncols = shifts, accurs, n.NCols
	}

	if h.RawSubfiles != nil && n.Index < len(h.RawSubfiles) && h.RawSubfiles[n.Index] != nil {
		raw := h.RawSubfiles[n.Index]
		raw.SLat = n.LatMin / h.HdrConv
		raw.NLat = n.LatMax / h.HdrConv
		raw.ELon = -n.LonMax / h.HdrConv // file convention: positive-west
		raw.WLon = -n.LonMin / h.HdrConv
		raw.GSCount = int32(n.Num)
	}
}

// cropCells computes how many of the node's own cells must be trimmed off
// one edge: the delta (in degrees, always >= 0 for a straddling edge) is
// floored to the parent's grid increment (so the crop stays aligned to
// the parent), then converted to the node's own cell count via the
// increment ratio.
func cropCells(inner, outer, parentInc, ownInc float64) int {
	delta := outer - inner
	if delta <= 0 {
		return 0
	}
	cellsOfParent := math.Floor(delta/parentInc + eps)
	ratio := parentInc / ownInc
	return int(cellsOfParent * ratio)
}
