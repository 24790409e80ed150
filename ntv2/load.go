package ntv2

import (
	"math"
	"os"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// Options configures a Load call. It is a plain process-local struct
// built once by a CLI front-end and passed down, per Design Notes on
// keeping CLI mutable state out of the core (spec Design Notes §9).
type Options struct {
	Lazy     bool    // read shift data on the fly instead of materializing it
	KeepOrig bool    // retain raw overview/sub-file records, required to write back out
	Extent   *Extent // optional crop applied immediately after topology resolution
}

// Load reads an NTv2 file (binary or ASCII, chosen by extension) and
// returns its in-memory model.
func Load(path string, opts Options) (*Header, error) {
	switch fileKindFromPath(path) {
	case FileBinary:
		return loadBinary(path, opts)
	case FileASCII:
		return loadASCII(path, opts)
	default:
		return nil, newErr(ErrUnknownFileType, "unrecognized extension for %q (want .gsb or .gsa)", path)
	}
}

func loadBinary(path string, opts Options) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, wrapErr(ErrCannotOpenFile, err, "opening %q", path)
	}
	swap, pads, err := detectByteOrder(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	rd := &reader{r: f, swap: swap, padsPresent: pads}

	rawOV, err := readOverviewBinary(rd)
	if err != nil {
		f.Close()
		return nil, err
	}

	h := &Header{
		Path:        path,
		Kind:        FileBinary,
		PadsPresent: pads,
		SwapData:    swap,
		KeepOrig:    opts.KeepOrig,
		file:        f,
	}
	units, ok := parseUnits(trimmed(rawOV.GSType))
	if !ok {
		f.Close()
		return nil, newErr(ErrBadGSType, "unrecognized GS_TYPE %q", trimmed(rawOV.GSType))
	}
	h.Units = units
	h.HdrConv = units.hdrConv()
	h.DatConv = units.dataConv()

	rawSubfiles := make([]*RawSubfile, 0, rawOV.NumFiles)
	nodes := make([]*Node, 0, rawOV.NumFiles)
	for i := 0; i < int(rawOV.NumFiles); i++ {
		rawSF, err := readSubfileBinary(rd)
		if err != nil {
			f.Close()
			return nil, err
		}
		n, err := newNodeFromRaw(h, i, rawSF)
		if err != nil {
			f.Close()
			return nil, err
		}
		n.Offset, err = f.Seek(0, 1) // current position: start of this sub-file's shift data
		if err != nil {
			f.Close()
			return nil, wrapErr(ErrIO, err, "locating shift data offset")
		}
		if opts.Lazy {
			if _, err := f.Seek(int64(n.Num)*16, 1); err != nil {
				f.Close()
				return nil, wrapErr(ErrIO, err, "skipping shift data")
			}
			n.store = &lazyStore{h: h, n: n}
		} else {
			shifts, accurs, hasAcc, err := readShiftDataBinary(rd, n.Num, opts.KeepOrig)
			if err != nil {
				f.Close()
				return nil, err
			}
			ms := &materializedStore{ncols: n.NCols, shifts: shifts}
			if hasAcc {
				ms.accurs = accurs
			}
			n.store = ms
		}
		rawSubfiles = append(rawSubfiles, rawSF)
		nodes = append(nodes, n)
	}

	if err := readEndBinary(rd, h); err != nil {
		f.Close()
		return nil, err
	}

	h.NumRecs = len(nodes)
	h.Nodes = nodes
	if opts.KeepOrig {
		h.RawOverview = rawOV
		h.RawSubfiles = rawSubfiles
	}
	if !opts.Lazy {
		h.file = nil
		f.Close()
	}

	return finishLoad(h, opts)
}

func readOverviewBinary(rd *reader) (*RawOverview, error) {
	ov := &RawOverview{}
	var err error
	readField := func(want string, dst *int32) error {
		name, e := rd.readName()
		if e != nil {
			return e
		}
		if trimmed(name) != want {
			return newErr(ErrBadOverviewCount, "expected overview key %s, got %q", want, trimmed(name))
		}
		*dst, e = rd.readInt32()
		return e
	}
	if err = readField("NUM_OREC", &ov.NumOverviewRecs); err != nil {
		return nil, err
	}
	if ov.NumOverviewRecs != 11 {
		return nil, newErr(ErrBadOverviewCount, "NUM_OREC must be 11, got %d", ov.NumOverviewRecs)
	}
	if err = readField("NUM_SREC", &ov.NumSubfileRecs); err != nil {
		return nil, err
	}
	if ov.NumSubfileRecs != 11 {
		return nil, newErr(ErrBadSubfileCount, "NUM_SREC must be 11, got %d", ov.NumSubfileRecs)
	}
	if err = readField("NUM_FILE", &ov.NumFiles); err != nil {
		return nil, err
	}
	if ov.NumFiles <= 0 {
		return nil, newErr(ErrBadFileCount, "NUM_FILE must be at least 1, got %d", ov.NumFiles)
	}
	readName := func(want string) (string, error) {
		key, e := rd.readName()
		if e != nil {
			return "", e
		}
		if trimmed(key) != want {
			return "", newErr(ErrBadOverviewCount, "expected overview key %s, got %q", want, trimmed(key))
		}
		v, e := rd.readName()
		return v, e
	}
	if ov.GSType, err = readName("GS_TYPE"); err != nil {
		return nil, err
	}
	if ov.Version, err = readName("VERSION"); err != nil {
		return nil, err
	}
	if ov.SystemFrom, err = readName("SYSTEM_F"); err != nil {
		return nil, err
	}
	if ov.SystemTo, err = readName("SYSTEM_T"); err != nil {
		return nil, err
	}
	readDouble := func(want string) (float64, error) {
		key, e := rd.readName()
		if e != nil {
			return 0, e
		}
		if trimmed(key) != want {
			return 0, newErr(ErrBadOverviewCount, "expected overview key %s, got %q", want, trimmed(key))
		}
		return rd.readFloat64()
	}
	if ov.MajorFrom, err = readDouble("MAJOR_F"); err != nil {
		return nil, err
	}
	if ov.MinorFrom, err = readDouble("MINOR_F"); err != nil {
		return nil, err
	}
	if ov.MajorTo, err = readDouble("MAJOR_T"); err != nil {
		return nil, err
	}
	if ov.MinorTo, err = readDouble("MINOR_T"); err != nil {
		return nil, err
	}
	return ov, nil
}

func readSubfileBinary(rd *reader) (*RawSubfile, error) {
	sf := &RawSubfile{}
	var err error
	readName := func(want string) (string, error) {
		key, e := rd.readName()
		if e != nil {
			return "", e
		}
		if trimmed(key) != want {
			return "", newErr(ErrBadSubfileCount, "expected sub-file key %s, got %q", want, trimmed(key))
		}
		return rd.readName()
	}
	if sf.Name, err = readName("SUB_NAME"); err != nil {
		return nil, err
	}
	if sf.Parent, err = readName("PARENT"); err != nil {
		return nil, err
	}
	if sf.Created, err = readName("CREATED"); err != nil {
		return nil, err
	}
	if sf.Updated, err = readName("UPDATED"); err != nil {
		return nil, err
	}
	readDouble := func(want string) (float64, error) {
		key, e := rd.readName()
		if e != nil {
			return 0, e
		}
		if trimmed(key) != want {
			return 0, newErr(ErrBadSubfileCount, "expected sub-file key %s, got %q", want, trimmed(key))
		}
		return rd.readFloat64()
	}
	if sf.SLat, err = readDouble("S_LAT"); err != nil {
		return nil, err
	}
	if sf.NLat, err = readDouble("N_LAT"); err != nil {
		return nil, err
	}
	if sf.ELon, err = readDouble("E_LONG"); err != nil {
		return nil, err
	}
	if sf.WLon, err = readDouble("W_LONG"); err != nil {
		return nil, err
	}
	if sf.LatInc, err = readDouble("LAT_INC"); err != nil {
		return nil, err
	}
	if sf.LonInc, err = readDouble("LONG_INC"); err != nil {
		return nil, err
	}
	key, err := rd.readName()
	if err != nil {
		return nil, err
	}
	if trimmed(key) != "GS_COUNT" {
		return nil, newErr(ErrBadSubfileCount, "expected sub-file key GS_COUNT, got %q", trimmed(key))
	}
	if sf.GSCount, err = rd.readInt32(); err != nil {
		return nil, err
	}
	return sf, nil
}

func readShiftDataBinary(rd *reader, num int, keepAccurs bool) (shifts, accurs []Shift, hasAccurs bool, err error) {
	shifts = make([]Shift, num)
	if keepAccurs {
		accurs = make([]Shift, num)
	}
	for i := 0; i < num; i++ {
		lat, e := rd.readFloat32()
		if e != nil {
			return nil, nil, false, e
		}
		lon, e := rd.readFloat32()
		if e != nil {
			return nil, nil, false, e
		}
		latAcc, e := rd.readFloat32()
		if e != nil {
			return nil, nil, false, e
		}
		lonAcc, e := rd.readFloat32()
		if e != nil {
			return nil, nil, false, e
		}
		shifts[i] = Shift{Lat: lat, Lon: lon}
		if keepAccurs {
			accurs[i] = Shift{Lat: latAcc, Lon: lonAcc}
		}
	}
	return shifts, accurs, keepAccurs, nil
}

func readEndBinary(rd *reader, h *Header) error {
	name, err := rd.readName()
	if err != nil {
		h.Fixed = setFlag(h.Fixed, FixMissingEndRecord)
		return nil
	}
	if trimmed(name) != "END" {
		h.Fixed = setFlag(h.Fixed, FixEndNameNotAlpha)
	}
	filler, err := rd.readRaw(nameLen)
	if err != nil {
		return nil
	}
	for _, b := range filler {
		if b != 0 {
			h.Fixed = setFlag(h.Fixed, FixEndPadNotZero)
			break
		}
	}
	return nil
}

// newNodeFromRaw converts a raw sub-file record (file units, file sign
// convention) into a derived Node (degrees, standard sign), applying name
// cleanup and accumulating fixups on the header.
func newNodeFromRaw(h *Header, index int, raw *RawSubfile) (*Node, error) {
	name, fixed := cleanupName(raw.Name)
	h.Fixed |= fixed
	if isBlankName(name) {
		h.Fixed = setFlag(h.Fixed, FixBlankSubfile)
	}
	parentName, fixed2 := cleanupName(raw.Parent)
	h.Fixed |= fixed2

	conv := h.HdrConv
	n := &Node{
		Index:       index,
		Name:        name,
		ParentName:  parentName,
		Active:      true,
		Parent:      noIndex,
		FirstChild:  noIndex,
		NextSibling: noIndex,
		LatMin:      raw.SLat * conv,
		LatMax:      raw.NLat * conv,
		LonMin:      -raw.WLon * conv, // file: positive-west; memory: standard sign
		LonMax:      -raw.ELon * conv,
		LatInc:      raw.LatInc * conv,
		LonInc:      raw.LonInc * conv,
	}
	if n.LatInc <= 0 || n.LonInc <= 0 {
		return nil, newErr(ErrLatInc, "sub-file %q: non-positive increment", trimmed(name))
	}
	n.NRows = int(math.Round((n.LatMax-n.LatMin)/n.LatInc)) + 1
	n.NCols = int(math.Round((n.LonMax-n.LonMin)/n.LonInc)) + 1
	n.Num = n.NRows * n.NCols
	if n.Num != int(raw.GSCount) {
		return nil, newErr(ErrBadDelta, "sub-file %q: nrows*ncols (%d) != GS_COUNT (%d)", trimmed(name), n.Num, raw.GSCount)
	}
	return n, nil
}

func loadASCII(path string, opts Options) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, wrapErr(ErrCannotOpenFile, err, "opening %q", path)
	}
	defer f.Close()

	s := newASCIIScanner(f)
	rawOV, err := readOverviewASCII(s)
	if err != nil {
		return nil, err
	}
	units, ok := parseUnits(trimmed(rawOV.GSType))
	if !ok {
		return nil, newErr(ErrBadGSType, "unrecognized GS_TYPE %q", trimmed(rawOV.GSType))
	}

	h := &Header{
		Path:     path,
		Kind:     FileASCII,
		KeepOrig: opts.KeepOrig,
		Units:    units,
		HdrConv:  units.hdrConv(),
		DatConv:  units.dataConv(),
	}

	rawSubfiles := make([]*RawSubfile, 0, rawOV.NumFiles)
	nodes := make([]*Node, 0, rawOV.NumFiles)
	for i := 0; i < int(rawOV.NumFiles); i++ {
		rawSF, err := readSubfileASCII(s)
		if err != nil {
			return nil, err
		}
		n, err := newNodeFromRaw(h, i, rawSF)
		if err != nil {
			return nil, err
		}
		shifts := make([]Shift, 0, n.Num)
		accurs := make([]Shift, 0, n.Num)
		anyAcc := false
		for j := 0; j < n.Num; j++ {
			sh, acc, hasAcc, err := readGSRecordASCII(s)
			if err != nil {
				return nil, err
			}
			shifts = append(shifts, sh)
			accurs = append(accurs, acc)
			anyAcc = anyAcc || hasAcc
		}
		ms := &materializedStore{ncols: n.NCols, shifts: shifts}
		if anyAcc {
			ms.accurs = accurs
		}
		n.store = ms
		rawSubfiles = append(rawSubfiles, rawSF)
		nodes = append(nodes, n)
	}

	if err := readEndASCII(s, h); err != nil {
		return nil, err
	}

	h.NumRecs = len(nodes)
	h.Nodes = nodes
	if opts.KeepOrig {
		h.RawOverview = rawOV
		h.RawSubfiles = rawSubfiles
	}

	return finishLoad(h, opts)
}

func finishLoad(h *Header, opts Options) (*Header, error) {
	if err := buildTopology(h); err != nil {
		h.Close()
		return nil, err
	}
	computeExtrema(h)

	if opts.Extent != nil {
		if err := Crop(h, *opts.Extent); err != nil {
			h.Close()
			return nil, err
		}
		computeExtrema(h)
	}

	if h.Fixed != 0 {
		glog.V(1).Infof("ntv2: %q loaded with fixups: %v", h.Path, h.Fixed.names())
	}
	return h, nil
}

func computeExtrema(h *Header) {
	first := true
	for _, n := range h.Nodes {
		if !n.Active {
			continue
		}
		if first {
			h.LatMin, h.LatMax, h.LonMin, h.LonMax = n.LatMin, n.LatMax, n.LonMin, n.LonMax
			first = false
			continue
		}
		h.LatMin = math.Min(h.LatMin, n.LatMin)
		h.LatMax = math.Max(h.LatMax, n.LatMax)
		h.LonMin = math.Min(h.LonMin, n.LonMin)
		h.LonMax = math.Max(h.LonMax, n.LonMax)
	}
}

// Reload is a convenience for re-opening a just-written file to verify
// it, wrapping any failure with the path for context.
func Reload(path string, opts Options) (*Header, error) {
	h, err := Load(path, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "reloading %q", path)
	}
	return h, nil
}
