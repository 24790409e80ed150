package ntv2

// Shared test fixtures: small synthetic headers built directly from Node
// values rather than real files, the same way the teacher's own
// fixture_test.go builds a synthetic GRIB2 message instead of exercising
// the network path in unit tests.

// newFlatStore builds a materialized store of num cells, every cell
// holding the same (latShift, lonShift) pair, for tests that only care
// about location/halo behavior rather than the interpolated value.
func newFlatStore(ncols, nrows int, lat, lon float32) *materializedStore {
	shifts := make([]Shift, nrows*ncols)
	for i := range shifts {
		shifts[i] = Shift{Lat: lat, Lon: lon}
	}
	return &materializedStore{ncols: ncols, shifts: shifts}
}

// newTestNode builds a single active node with the given degree bounds
// and increments, with a flat shift store.
func newTestNode(index int, name, parentName string, latMin, latMax, lonMin, lonMax, inc float64) *Node {
	nrows := int((latMax-latMin)/inc) + 1
	ncols := int((lonMax-lonMin)/inc) + 1
	n := &Node{
		Index: index, Name: padName(name), ParentName: padName(parentName), Active: true,
		Parent: noIndex, FirstChild: noIndex, NextSibling: noIndex,
		LatMin: latMin, LatMax: latMax, LatInc: inc,
		LonMin: lonMin, LonMax: lonMax, LonInc: inc,
		NRows: nrows, NCols: ncols, Num: nrows * ncols,
	}
	n.store = newFlatStore(ncols, nrows, 1.0, 2.0)
	return n
}

// newTestHeader assembles nodes into a Header and resolves topology,
// mirroring what Load does after reading records off disk.
func newTestHeader(t testingTB, nodes ...*Node) *Header {
	t.Helper()
	h := &Header{
		Units: UnitsSeconds, HdrConv: UnitsSeconds.hdrConv(), DatConv: UnitsSeconds.dataConv(),
		Nodes: nodes, NumRecs: len(nodes),
	}
	if err := buildTopology(h); err != nil {
		t.Fatalf("buildTopology: %v", err)
	}
	computeExtrema(h)
	return h
}

// testingTB is the minimal subset of *testing.T/B used by fixture
// helpers, so they can be shared between Test and Benchmark functions.
type testingTB interface {
	Helper()
	Fatalf(format string, args ...interface{})
}
