package ntv2

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

// eps is the relative tolerance used by every floating comparison in this
// package except the validator's raw lat/lon-increment positivity check
// (see validateNode below and the Open Question this resolves).
const eps = 8.881784197001252e-16 // 2^-50

// eqEps reports whether a and b are equal within a relative tolerance e
// of their average magnitude, generic over any float kind so the same
// helper serves float32 shift comparisons and float64 header comparisons.
func eqEps[T constraints.Float](a, b, e T) bool {
	if a == b {
		return true
	}
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	absA, absB := a, b
	if absA < 0 {
		absA = -absA
	}
	if absB < 0 {
		absB = -absB
	}
	return diff <= e*(1+(absA+absB)/2)
}

func eq(a, b float64) bool  { return eqEps(a, b, eps) }
func neq(a, b float64) bool { return !eq(a, b) }
func le(a, b float64) bool  { return a < b || eq(a, b) }
func ge(a, b float64) bool  { return a > b || eq(a, b) }
func lt(a, b float64) bool  { return a < b && !eq(a, b) }
func gt(a, b float64) bool  { return a > b && !eq(a, b) }

// Diagnostic is one issue surfaced by Validate, carrying that issue's code
// plus a human-readable line.
type Diagnostic struct {
	Code    Code
	Message string
}

// Validate enforces the arithmetic/geometric invariants of the data model
// against every active node and returns the accumulated diagnostics plus
// the single worst code seen (ErrOK if none).
func Validate(h *Header) ([]Diagnostic, Code) {
	var diags []Diagnostic
	worst := ErrOK
	report := func(code Code, format string, args ...interface{}) {
		msg := fmt.Sprintf(format, args...)
		diags = append(diags, Diagnostic{Code: code, Message: msg})
		if code > worst {
			worst = code
		}
	}

	for _, n := range h.Nodes {
		if !n.Active {
			continue
		}
		validateNode(h, n, report)
	}

	validateOverlaps(h, report)

	return diags, worst
}

func validateNode(h *Header, n *Node, report func(Code, string, ...interface{})) {
	// Deliberately a raw, non-epsilon-tolerant comparison: the original
	// implementation's positivity check on the increments is not run
	// through the epsilon helper, unlike every other comparison here.
	if !(n.LatInc > 0) {
		report(ErrLatInc, "sub-file %q: lat_inc must be > 0, got %g", trimmed(n.Name), n.LatInc)
	}
	if !lt(n.LatMin, n.LatMax) {
		report(ErrLatOrder, "sub-file %q: lat_min must be < lat_max", trimmed(n.Name))
	}
	if !(n.LonInc > 0) {
		report(ErrLonInc, "sub-file %q: lon_inc must be > 0, got %g", trimmed(n.Name), n.LonInc)
	}
	if !lt(n.LonMin, n.LonMax) {
		report(ErrLonOrder, "sub-file %q: lon_min must be < lon_max", trimmed(n.Name))
	}
	if n.Num <= 0 {
		report(ErrBadGSCount, "sub-file %q: gs_count must be > 0", trimmed(n.Name))
	}

	expectedLatMax := n.LatMin + float64(n.NRows-1)*n.LatInc
	if !eq(expectedLatMax, n.LatMax) {
		report(ErrBadDelta, "sub-file %q: nrows*lat_inc+lat_min (%g) does not match lat_max (%g)", trimmed(n.Name), expectedLatMax, n.LatMax)
	}
	expectedLonMax := n.LonMin + float64(n.NCols-1)*n.LonInc
	if !eq(expectedLonMax, n.LonMax) {
		report(ErrBadDelta, "sub-file %q: ncols*lon_inc+lon_min (%g) does not match lon_max (%g)", trimmed(n.Name), expectedLonMax, n.LonMax)
	}
	if n.NRows*n.NCols != n.Num {
		report(ErrBadDelta, "sub-file %q: nrows*ncols (%d) != num (%d)", trimmed(n.Name), n.NRows*n.NCols, n.Num)
	}

	if n.Parent != noIndex {
		p := h.Nodes[n.Parent]
		if !integerMultiple(p.LatInc, n.LatInc) {
			report(ErrBadDelta, "sub-file %q: parent lat_inc %g is not an integer multiple of %g", trimmed(n.Name), p.LatInc, n.LatInc)
		}
		if !integerMultiple(p.LonInc, n.LonInc) {
			report(ErrBadDelta, "sub-file %q: parent lon_inc %g is not an integer multiple of %g", trimmed(n.Name), p.LonInc, n.LonInc)
		}
		if !(ge(n.LatMin, p.LatMin) && le(n.LatMax, p.LatMax) && ge(n.LonMin, p.LonMin) && le(n.LonMax, p.LonMax)) {
			report(ErrParentOverlap, "sub-file %q: bounding box is not inside parent %q", trimmed(n.Name), trimmed(p.Name))
		}
		if !onGridLine(n.LatMin-p.LatMin, p.LatInc) || !onGridLine(n.LonMin-p.LonMin, p.LonInc) {
			report(ErrParentOverlap, "sub-file %q: bounding box is not snapped to parent's grid lines", trimmed(n.Name))
		}
	}
}

func integerMultiple(a, b float64) bool {
	if b == 0 {
		return false
	}
	ratio := a / b
	return eq(ratio, math.Round(ratio))
}

func onGridLine(delta, inc float64) bool {
	if inc == 0 {
		return false
	}
	k := delta / inc
	return eq(k, math.Round(k))
}

func validateOverlaps(h *Header, report func(Code, string, ...interface{})) {
	tops := h.topLevelParents()
	for i := range tops {
		for j := i + 1; j < len(tops); j++ {
			if boxesOverlap(tops[i], tops[j]) {
				report(ErrParentOverlap, "top-level parents %q and %q overlap", trimmed(tops[i].Name), trimmed(tops[j].Name))
			}
		}
	}
	for _, n := range h.Nodes {
		if !n.Active {
			continue
		}
		sibs := h.children(n)
		for i := range sibs {
			for j := i + 1; j < len(sibs); j++ {
				if boxesOverlap(sibs[i], sibs[j]) {
					report(ErrSubfileOverlap, "siblings %q and %q overlap", trimmed(sibs[i].Name), trimmed(sibs[j].Name))
				}
			}
		}
	}
}

func boxesOverlap(a, b *Node) bool {
	return lt(a.LonMin, b.LonMax) && lt(b.LonMin, a.LonMax) && lt(a.LatMin, b.LatMax) && lt(b.LatMin, a.LatMax)
}
