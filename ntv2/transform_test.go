package ntv2

import (
	"context"
	"math"
	"testing"
)

func TestForwardAppliesConstantShift(t *testing.T) {
	a := newTestNode(0, "A", "NONE", 0, 10, 0, 10, 1) // flat store: lat=1.0s, lon=2.0s
	h := newTestHeader(t, a)

	pts := []Point{{Lon: 5, Lat: 5}}
	n, err := Forward(context.Background(), h, pts)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if n != 1 {
		t.Fatalf("Forward transformed %d points, want 1", n)
	}

	wantLat := 5 + 1.0/3600.0
	wantLon := 5 - 2.0/3600.0 // sign flipped relative to file convention
	if math.Abs(pts[0].Lat-wantLat) > 1e-9 || math.Abs(pts[0].Lon-wantLon) > 1e-9 {
		t.Errorf("Forward(5,5) = %+v, want {%v %v}", pts[0], wantLon, wantLat)
	}
}

func TestForwardLeavesUnlocatedPointsUnchanged(t *testing.T) {
	a := newTestNode(0, "A", "NONE", 0, 10, 0, 10, 1)
	h := newTestHeader(t, a)

	pts := []Point{{Lon: 500, Lat: 500}}
	n, err := Forward(context.Background(), h, pts)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if n != 0 {
		t.Errorf("Forward transformed %d points, want 0 (far outside grid)", n)
	}
	if pts[0] != (Point{Lon: 500, Lat: 500}) {
		t.Errorf("unlocated point was modified: %+v", pts[0])
	}
}

func TestInverseOfConstantFieldConvergesExactly(t *testing.T) {
	a := newTestNode(0, "A", "NONE", 0, 10, 0, 10, 1)
	h := newTestHeader(t, a)

	orig := Point{Lon: 5, Lat: 5}
	pts := []Point{orig}
	n, err := Inverse(context.Background(), h, pts)
	if err != nil {
		t.Fatalf("Inverse: %v", err)
	}
	if n != 1 {
		t.Fatalf("Inverse transformed %d points, want 1", n)
	}

	wantLat := 5 - 1.0/3600.0
	wantLon := 5 + 2.0/3600.0
	if math.Abs(pts[0].Lat-wantLat) > 1e-9 || math.Abs(pts[0].Lon-wantLon) > 1e-9 {
		t.Errorf("Inverse(5,5) = %+v, want {%v %v}", pts[0], wantLon, wantLat)
	}
}

func TestForwardInverseRoundTrip(t *testing.T) {
	a := newTestNode(0, "A", "NONE", 0, 10, 0, 10, 1)
	h := newTestHeader(t, a)

	orig := Point{Lon: 5, Lat: 5}
	fwd := []Point{orig}
	if _, err := Forward(context.Background(), h, fwd); err != nil {
		t.Fatalf("Forward: %v", err)
	}

	back := []Point{fwd[0]}
	if _, err := Inverse(context.Background(), h, back); err != nil {
		t.Fatalf("Inverse: %v", err)
	}

	if math.Abs(back[0].Lon-orig.Lon) > 1e-9 || math.Abs(back[0].Lat-orig.Lat) > 1e-9 {
		t.Errorf("round trip = %+v, want %+v", back[0], orig)
	}
}

func TestBatchTransformHandlesManyPoints(t *testing.T) {
	a := newTestNode(0, "A", "NONE", 0, 10, 0, 10, 1)
	h := newTestHeader(t, a)

	pts := make([]Point, 200)
	for i := range pts {
		pts[i] = Point{Lon: 1 + float64(i%8), Lat: 1 + float64(i%8)}
	}
	n, err := Forward(context.Background(), h, pts)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if n != len(pts) {
		t.Errorf("Forward transformed %d/%d points", n, len(pts))
	}
}

// TestInterpolateOutsideCellDecaysFromRealEdgeToZero exercises the
// StatusOutsideCell halo band: column 0 is the grid's real eastern edge
// (lon == LonMax) and carries a distinct nonzero shift, so the test can
// tell a correct decay-to-zero one cell out from a decay-to-the-wrong-value
// bug in the corner-substitution remap.
func TestInterpolateOutsideCellDecaysFromRealEdgeToZero(t *testing.T) {
	const ncols, nrows = 3, 3
	const edgeLonShift = 7200 // seconds; real shift at the true grid edge

	shifts := make([]Shift, nrows*ncols)
	for r := 0; r < nrows; r++ {
		for c := 0; c < ncols; c++ {
			var v float32
			if c == 0 {
				v = edgeLonShift
			}
			shifts[r*ncols+c] = Shift{Lat: 0, Lon: v}
		}
	}
	a := &Node{
		Index: 0, Name: padName("A"), ParentName: padName("NONE"), Active: true,
		Parent: noIndex, FirstChild: noIndex, NextSibling: noIndex,
		LatMin: 0, LatMax: 2, LatInc: 1,
		LonMin: 0, LonMax: 2, LonInc: 1,
		NRows: nrows, NCols: ncols, Num: nrows * ncols,
		store: &materializedStore{ncols: ncols, shifts: shifts},
	}
	h := newTestHeader(t, a)

	// At the true edge (lon == LonMax), the point is StatusContained and
	// the shift equals the real edge value exactly.
	atEdge := []Point{{Lon: 2, Lat: 1}}
	if _, err := Forward(context.Background(), h, atEdge); err != nil {
		t.Fatalf("Forward at edge: %v", err)
	}
	wantEdgeLon := 2 - edgeLonShift/3600.0
	if math.Abs(atEdge[0].Lon-wantEdgeLon) > 1e-9 {
		t.Errorf("at true edge: lon = %v, want %v", atEdge[0].Lon, wantEdgeLon)
	}

	// Halfway into the halo band beyond the edge, status is OutsideCell
	// and the shift should have decayed to half its edge value.
	halfway := []Point{{Lon: 2.5, Lat: 1}}
	if loc := Locate(h, halfway[0].Lon, halfway[0].Lat); loc.Status != StatusOutsideCell {
		t.Fatalf("Locate(2.5,1) status = %v, want outside-cell", loc.Status)
	}
	if _, err := Forward(context.Background(), h, halfway); err != nil {
		t.Fatalf("Forward halfway: %v", err)
	}
	wantHalfwayLon := 2.5 - 0.5*edgeLonShift/3600.0
	if math.Abs(halfway[0].Lon-wantHalfwayLon) > 1e-9 {
		t.Errorf("halfway into halo: lon = %v, want %v", halfway[0].Lon, wantHalfwayLon)
	}

	// At the outer edge of the halo band (one full cell beyond the grid),
	// the shift has decayed all the way to zero.
	atHaloBoundary := []Point{{Lon: 3, Lat: 1}}
	if _, err := Forward(context.Background(), h, atHaloBoundary); err != nil {
		t.Fatalf("Forward at halo boundary: %v", err)
	}
	if math.Abs(atHaloBoundary[0].Lon-3) > 1e-9 {
		t.Errorf("at halo boundary: lon = %v, want 3 (zero shift)", atHaloBoundary[0].Lon)
	}
}

func TestBatchTransformRespectsCanceledContext(t *testing.T) {
	a := newTestNode(0, "A", "NONE", 0, 10, 0, 10, 1)
	h := newTestHeader(t, a)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pts := []Point{{Lon: 5, Lat: 5}}
	n, err := Forward(ctx, h, pts)
	if err != nil {
		t.Fatalf("Forward with canceled context should not itself error: %v", err)
	}
	if n != 0 {
		t.Errorf("Forward on a canceled context transformed %d points, want 0", n)
	}
}
