package ntv2

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveSwapMatchInputASCIIFallsBackToNative(t *testing.T) {
	h := &Header{Kind: FileASCII, SwapData: true}
	if resolveSwap(h, EndianMatchInput) != resolveSwap(h, EndianNative) {
		t.Errorf("resolveSwap(ASCII, MatchInput) should equal resolveSwap(_, Native)")
	}
}

func TestResolveSwapMatchInputBinaryUsesSwapData(t *testing.T) {
	h := &Header{Kind: FileBinary, SwapData: true}
	if !resolveSwap(h, EndianMatchInput) {
		t.Errorf("resolveSwap(binary, MatchInput) should mirror SwapData")
	}
}

func TestResolveSwapNativeSwapsOnlyOnLittleEndianHosts(t *testing.T) {
	h := &Header{Kind: FileBinary, SwapData: true}
	if resolveSwap(h, EndianNative) != !nativeIsBig {
		t.Errorf("resolveSwap(_, Native) should be %v on this host", !nativeIsBig)
	}
}

func TestResolveSwapBigAndLittleAreComplementary(t *testing.T) {
	h := &Header{Kind: FileBinary, SwapData: false}
	if resolveSwap(h, EndianBig) == resolveSwap(h, EndianLittle) {
		t.Errorf("resolveSwap(Big) and resolveSwap(Little) must disagree for the same header")
	}
}

func TestWriteFileRejectsNilHeader(t *testing.T) {
	if err := WriteFile(nil, "out.gsa", EndianNative); err == nil {
		t.Fatalf("expected an error for a nil header")
	}
}

func TestWriteFileRejectsUnloadedHeader(t *testing.T) {
	h := &Header{}
	if err := WriteFile(h, "out.gsa", EndianNative); err == nil {
		t.Fatalf("expected an error for a header with NumRecs == 0")
	}
}

func TestWriteFileRejectsMissingKeepOrig(t *testing.T) {
	h := &Header{NumRecs: 1}
	if err := WriteFile(h, "out.gsa", EndianNative); err == nil {
		t.Fatalf("expected an error when KeepOrig records were not retained")
	}
}

func TestWriteFileRejectsUnmaterializedData(t *testing.T) {
	a := newTestNode(0, "A", "NONE", 0, 10, 0, 10, 1)
	h := newTestHeader(t, a)
	h.NumRecs = 1
	h.KeepOrig = true
	h.RawOverview = &RawOverview{}
	h.FirstParent = a.Index
	a.store = &lazyStore{} // not materialized

	if err := WriteFile(h, "out.gsa", EndianNative); err == nil {
		t.Fatalf("expected an error when shift data is not materialized")
	}
}

const sampleASCII = `NUM_OREC 11
NUM_SREC 11
NUM_FILE 1
GS_TYPE  SECONDS
VERSION  NTv2.0
SYSTEM_F NAD27
SYSTEM_T NAD83
MAJOR_F  6378206.4
MINOR_F  6356583.8
MAJOR_T  6378137
MINOR_T  6356752.314

SUB_NAME NTV2_0
PARENT   NONE
CREATED  01/01/00
UPDATED  01/01/00
S_LAT    0
N_LAT    3600
E_LONG   -3600
W_LONG   0
LAT_INC  1800
LONG_INC 1800
GS_COUNT 9

1.0 2.0 0.0 0.0
1.1 2.1 0.0 0.0
1.2 2.2 0.0 0.0
1.3 2.3 0.0 0.0
1.4 2.4 0.0 0.0
1.5 2.5 0.0 0.0
1.6 2.6 0.0 0.0
1.7 2.7 0.0 0.0
1.8 2.8 0.0 0.0

END
`

func TestWriteFileASCIIRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "in.gsa")
	if err := os.WriteFile(src, []byte(sampleASCII), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	h, err := Load(src, Options{KeepOrig: true})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer h.Close()

	out := filepath.Join(dir, "out.gsa")
	if err := WriteFile(h, out, EndianNative); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	reloaded, err := Reload(out, Options{KeepOrig: true})
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	defer reloaded.Close()

	if reloaded.NumRecs != h.NumRecs {
		t.Errorf("NumRecs = %d, want %d", reloaded.NumRecs, h.NumRecs)
	}
	if len(reloaded.Nodes) != 1 {
		t.Fatalf("Nodes = %d, want 1", len(reloaded.Nodes))
	}
	if trimmed(reloaded.Nodes[0].Name) != trimmed(h.Nodes[0].Name) {
		t.Errorf("round-tripped name = %q, want %q", trimmed(reloaded.Nodes[0].Name), trimmed(h.Nodes[0].Name))
	}
	if !eq(reloaded.Nodes[0].LatMin, h.Nodes[0].LatMin) || !eq(reloaded.Nodes[0].LonMax, h.Nodes[0].LonMax) {
		t.Errorf("round-tripped bounds differ: got lat_min=%v lon_max=%v, want lat_min=%v lon_max=%v",
			reloaded.Nodes[0].LatMin, reloaded.Nodes[0].LonMax, h.Nodes[0].LatMin, h.Nodes[0].LonMax)
	}
}
