package ntv2

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
)

// Endianness selects binary output byte order.
type Endianness int

const (
	EndianMatchInput Endianness = iota
	EndianBig
	EndianLittle
	EndianNative
)

// nativeIsBig reports whether the host's native byte order is big-endian,
// used to resolve the EndianNative case.
var nativeIsBig = binary.NativeEndian.Uint16([]byte{0, 1}) == 1

// WriteFile writes h out to path (binary or ASCII, chosen by extension).
// Preconditions (per the format's writer contract): the original overview
// and sub-file records must have been retained (KeepOrig) and the first
// top-level parent must have its shift data materialized in memory.
func WriteFile(h *Header, path string, endian Endianness) error {
	if h == nil {
		return newErr(ErrNullHeader, "nil header")
	}
	if path == "" {
		return newErr(ErrNullPath, "empty path")
	}
	if h.NumRecs == 0 {
		return newErr(ErrHdrsNotRead, "header has not been loaded")
	}
	if !h.KeepOrig || h.RawOverview == nil {
		return newErr(ErrOrigDataNotKept, "original records were not retained (load with KeepOrig)")
	}
	first := h.node(h.FirstParent)
	if first == nil {
		return newErr(ErrNoTopLevelParent, "no top-level parent")
	}
	if _, ok := first.store.(*materializedStore); !ok {
		return newErr(ErrDataNotRead, "shift data has not been materialized; load without Lazy before writing")
	}

	switch fileKindFromPath(path) {
	case FileBinary:
		return writeFileBinary(h, path, endian)
	case FileASCII:
		return writeFileASCII(h, path)
	default:
		return newErr(ErrUnknownFileType, "unrecognized extension for %q", path)
	}
}

// resolveSwap decides whether output needs byte-swapping. The binary
// writer encodes big-endian, so a swap yields little-endian output; the
// header's own swap_data is true when the input file was little-endian
// (the reader decodes big-endian first), and the requested output
// endianness picks between them.
func resolveSwap(h *Header, endian Endianness) bool {
	switch endian {
	case EndianBig:
		return false
	case EndianLittle:
		return true
	case EndianNative:
		return !nativeIsBig
	default: // EndianMatchInput
		if h.Kind == FileASCII {
			return !nativeIsBig // ASCII input has no byte order; "match input" falls back to native
		}
		return h.SwapData
	}
}

func writeFileBinary(h *Header, path string, endian Endianness) error {
	f, err := os.Create(path)
	if err != nil {
		return wrapErr(ErrCannotOpenFile, err, "creating %q", path)
	}
	defer f.Close()
	bw := bufio.NewWriter(f)
	wr := &writer{w: bw, swap: resolveSwap(h, endian)}

	if err := writeOverviewBinary(wr, h.RawOverview); err != nil {
		return err
	}
	for _, n := range h.topLevelParents() {
		if err := writeSubfileBinaryRecursive(wr, h, n); err != nil {
			return err
		}
	}
	if err := writeEndBinary(wr); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return wrapErr(ErrIO, err, "flushing %q", path)
	}
	return nil
}

func writeOverviewBinary(wr *writer, ov *RawOverview) error {
	type step struct {
		key string
		i   *int32
		d   *float64
		s   *string
	}
	steps := []step{
		{key: "NUM_OREC", i: &ov.NumOverviewRecs},
		{key: "NUM_SREC", i: &ov.NumSubfileRecs},
		{key: "NUM_FILE", i: &ov.NumFiles},
		{key: "GS_TYPE", s: &ov.GSType},
		{key: "VERSION", s: &ov.Version},
		{key: "SYSTEM_F", s: &ov.SystemFrom},
		{key: "SYSTEM_T", s: &ov.SystemTo},
		{key: "MAJOR_F", d: &ov.MajorFrom},
		{key: "MINOR_F", d: &ov.MinorFrom},
		{key: "MAJOR_T", d: &ov.MajorTo},
		{key: "MINOR_T", d: &ov.MinorTo},
	}
	for _, st := range steps {
		if err := wr.writeName(st.key); err != nil {
			return err
		}
		switch {
		case st.i != nil:
			if err := wr.writeInt32(*st.i); err != nil {
				return err
			}
		case st.d != nil:
			if err := wr.writeFloat64(*st.d); err != nil {
				return err
			}
		case st.s != nil:
			if err := wr.writeName(*st.s); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeSubfileBinaryRecursive(wr *writer, h *Header, n *Node) error {
	if !n.Active {
		return nil
	}
	raw := h.RawSubfiles[n.Index]
	if err := writeSubfileHeaderBinary(wr, raw); err != nil {
		return err
	}
	ms := n.store.(*materializedStore)
	for i := 0; i < n.Num; i++ {
		sh := ms.shifts[i]
		var acc Shift
		if ms.accurs != nil {
			acc = ms.accurs[i]
		}
		if err := wr.writeFloat32(sh.Lat); err != nil {
			return err
		}
		if err := wr.writeFloat32(sh.Lon); err != nil {
			return err
		}
		if err := wr.writeFloat32(acc.Lat); err != nil {
			return err
		}
		if err := wr.writeFloat32(acc.Lon); err != nil {
			return err
		}
	}
	for _, child := range h.children(n) {
		if err := writeSubfileBinaryRecursive(wr, h, child); err != nil {
			return err
		}
	}
	return nil
}

func writeSubfileHeaderBinary(wr *writer, raw *RawSubfile) error {
	if err := wr.writeName("SUB_NAME"); err != nil {
		return err
	}
	if err := wr.writeName(raw.Name); err != nil {
		return err
	}
	if err := wr.writeName("PARENT"); err != nil {
		return err
	}
	if err := wr.writeName(raw.Parent); err != nil {
		return err
	}
	if err := wr.writeName("CREATED"); err != nil {
		return err
	}
	if err := wr.writeName(raw.Created); err != nil {
		return err
	}
	if err := wr.writeName("UPDATED"); err != nil {
		return err
	}
	if err := wr.writeName(raw.Updated); err != nil {
		return err
	}
	doubles := []struct {
		key string
		v   float64
	}{
		{"S_LAT", raw.SLat}, {"N_LAT", raw.NLat}, {"E_LONG", raw.ELon}, {"W_LONG", raw.WLon},
		{"LAT_INC", raw.LatInc}, {"LONG_INC", raw.LonInc},
	}
	for _, d := range doubles {
		if err := wr.writeName(d.key); err != nil {
			return err
		}
		if err := wr.writeFloat64(d.v); err != nil {
			return err
		}
	}
	if err := wr.writeName("GS_COUNT"); err != nil {
		return err
	}
	return wr.writeInt32(raw.GSCount)
}

func writeEndBinary(wr *writer) error {
	if err := wr.writeName(endName); err != nil {
		return err
	}
	var filler [nameLen]byte
	return wr.writeRaw(filler[:])
}

func writeFileASCII(h *Header, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return wrapErr(ErrCannotOpenFile, err, "creating %q", path)
	}
	defer f.Close()
	bw := bufio.NewWriter(f)

	if err := writeOverviewASCII(bw, h.RawOverview); err != nil {
		return err
	}
	for _, n := range h.topLevelParents() {
		if err := writeSubfileASCIIRecursive(bw, h, n); err != nil {
			return err
		}
	}
	if err := writeEndASCII(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return wrapErr(ErrIO, err, "flushing %q", path)
	}
	return nil
}

func writeSubfileASCIIRecursive(w io.Writer, h *Header, n *Node) error {
	if !n.Active {
		return nil
	}
	raw := h.RawSubfiles[n.Index]
	ms := n.store.(*materializedStore)
	if err := writeSubfileASCII(w, raw, ms.shifts, ms.accurs, ms.accurs != nil); err != nil {
		return err
	}
	for _, child := range h.children(n) {
		if err := writeSubfileASCIIRecursive(w, h, child); err != nil {
			return err
		}
	}
	return nil
}
