package ntv2

import "testing"

func TestEqEpsBasic(t *testing.T) {
	if !eq(1.0, 1.0) {
		t.Errorf("eq(1,1) should be true")
	}
	if !eq(1.0, 1.0+1e-20) {
		t.Errorf("eq should tolerate sub-epsilon differences")
	}
	if eq(1.0, 1.1) {
		t.Errorf("eq(1, 1.1) should be false")
	}
}

func TestValidateCleanGrid(t *testing.T) {
	a := newTestNode(0, "A", "NONE", 0, 10, 0, 10, 1)
	h := newTestHeader(t, a)
	diags, worst := Validate(h)
	if worst != ErrOK {
		t.Fatalf("worst = %v, diags = %v", worst, diags)
	}
}

func TestValidateBadDelta(t *testing.T) {
	a := newTestNode(0, "A", "NONE", 0, 10, 0, 10, 1)
	a.Num = a.Num + 1 // corrupt nrows*ncols vs num
	h := newTestHeader(t, a)
	_, worst := Validate(h)
	if worst != ErrBadDelta {
		t.Fatalf("worst = %v, want ErrBadDelta", worst)
	}
}

func TestValidateSiblingOverlap(t *testing.T) {
	parent := newTestNode(0, "PARENT", "NONE", 0, 10, 0, 10, 1)
	b := newTestNode(1, "B", "PARENT", 2, 4, 2, 4, 0.5)
	c := newTestNode(2, "C", "PARENT", 3, 5, 3, 5, 0.5)
	h := newTestHeader(t, parent, b, c)
	_, worst := Validate(h)
	if worst != ErrSubfileOverlap {
		t.Fatalf("worst = %v, want ErrSubfileOverlap", worst)
	}
}

func TestValidateTopLevelOverlap(t *testing.T) {
	a := newTestNode(0, "A", "NONE", 0, 10, 0, 10, 1)
	b := newTestNode(1, "B", "NONE", 5, 15, 5, 15, 1)
	h := newTestHeader(t, a, b)
	_, worst := Validate(h)
	if worst != ErrParentOverlap {
		t.Fatalf("worst = %v, want ErrParentOverlap", worst)
	}
}

func TestValidateRawPositivityCheckIsNotEpsilonTolerant(t *testing.T) {
	// The validator's lat_inc/lon_inc positivity check is deliberately a
	// raw comparison, not the epsilon-tolerant helper: a negative-zero or
	// tiny-negative increment must fail even though it is "eq" to zero
	// under the tolerant comparison.
	a := newTestNode(0, "A", "NONE", 0, 10, 0, 10, 1)
	a.LatInc = -1e-20 // eq(0, -1e-20) is true, but raw > 0 is false
	h := &Header{Nodes: []*Node{a}, NumRecs: 1}
	a.Active = true
	_ = buildTopology(h)
	diags, worst := Validate(h)
	found := false
	for _, d := range diags {
		if d.Code == ErrLatInc {
			found = true
		}
	}
	if !found {
		t.Fatalf("diagnostics = %v, want one with ErrLatInc", diags)
	}
	// the negative increment also breaks lat_min + (nrows-1)*lat_inc ==
	// lat_max, and ErrBadDelta is the larger (worse) code.
	if worst != ErrBadDelta {
		t.Fatalf("worst = %v, want ErrBadDelta", worst)
	}
}
