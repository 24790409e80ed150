package ntv2

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// asciiToken is one KEY VALUE line, or a shift-record line's four numbers
// pre-split, tokenized whitespace-delimited with '#' starting a comment.
type asciiToken struct {
	key    string
	fields []string
}

// asciiScanner wraps bufio.Scanner with the comment/blank-line handling
// every ASCII reader in this package needs.
type asciiScanner struct {
	sc   *bufio.Scanner
	line int
}

func newASCIIScanner(r io.Reader) *asciiScanner {
	return &asciiScanner{sc: bufio.NewScanner(r)}
}

// next returns the next non-blank, non-comment line's fields, or nil at EOF.
func (s *asciiScanner) next() ([]string, error) {
	for s.sc.Scan() {
		s.line++
		line := s.sc.Text()
		if idx := strings.IndexByte(line, '#'); idx >= 0 {
			line = line[:idx]
		}
		line = normalizeDecimalMark(line)
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		return fields, nil
	}
	if err := s.sc.Err(); err != nil {
		return nil, wrapErr(ErrIO, err, "reading ascii line %d", s.line)
	}
	return nil, nil
}

// normalizeDecimalMark accepts a locale comma-as-decimal-point input by
// replacing ',' with '.' only when it appears between digits (so it is
// never mistaken for a field separator in a non-numeric context). Kept
// isolated here so the core data model never has to reason about locale.
func normalizeDecimalMark(line string) string {
	b := []byte(line)
	for i, c := range b {
		if c == ',' && i > 0 && i < len(b)-1 && isDigit(b[i-1]) && isDigit(b[i+1]) {
			b[i] = '.'
		}
	}
	return string(b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func parseASCIIFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, newErr(ErrInvalidASCIILine, "invalid numeric field %q", s)
	}
	return v, nil
}

func parseASCIIInt(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, newErr(ErrInvalidASCIILine, "invalid integer field %q", s)
	}
	return int32(v), nil
}

// formatASCIIFloat renders a float with up to 8 decimal digits, trailing
// zeros trimmed and a bare trailing '.' removed, decimal point always '.'.
func formatASCIIFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', 8, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-" {
		s = "0"
	}
	return s
}

func expectKey(fields []string, want string) (string, error) {
	if len(fields) < 1 || !strings.EqualFold(fields[0], want) {
		return "", newErr(ErrInvalidASCIILine, "expected key %q, got %v", want, fields)
	}
	if len(fields) < 2 {
		return "", nil // blank value, as written for an empty name field
	}
	return strings.Join(fields[1:], " "), nil
}

// readOverviewASCII parses the overview record's 11 KEY VALUE lines.
func readOverviewASCII(s *asciiScanner) (*RawOverview, error) {
	ov := &RawOverview{}
	steps := []struct {
		key string
		set func(string) error
	}{
		{"NUM_OREC", func(v string) error {
			n, err := parseASCIIInt(v)
			if err != nil {
				return err
			}
			ov.NumOverviewRecs = n
			if n != 11 {
				return newErr(ErrBadOverviewCount, "NUM_OREC must be 11, got %d", n)
			}
			return nil
		}},
		{"NUM_SREC", func(v string) error {
			n, err := parseASCIIInt(v)
			if err != nil {
				return err
			}
			ov.NumSubfileRecs = n
			if n != 11 {
				return newErr(ErrBadSubfileCount, "NUM_SREC must be 11, got %d", n)
			}
			return nil
		}},
		{"NUM_FILE", func(v string) error {
			n, err := parseASCIIInt(v)
			if err != nil {
				return err
			}
			ov.NumFiles = n
			if n <= 0 {
				return newErr(ErrBadFileCount, "NUM_FILE must be at least 1, got %d", n)
			}
			return nil
		}},
		{"GS_TYPE", func(v string) error { ov.GSType, _ = cleanupName(v); return nil }},
		{"VERSION", func(v string) error { ov.Version, _ = cleanupName(v); return nil }},
		{"SYSTEM_F", func(v string) error { ov.SystemFrom, _ = cleanupName(v); return nil }},
		{"SYSTEM_T", func(v string) error { ov.SystemTo, _ = cleanupName(v); return nil }},
		{"MAJOR_F", func(v string) (err error) { ov.MajorFrom, err = parseASCIIFloat(v); return }},
		{"MINOR_F", func(v string) (err error) { ov.MinorFrom, err = parseASCIIFloat(v); return }},
		{"MAJOR_T", func(v string) (err error) { ov.MajorTo, err = parseASCIIFloat(v); return }},
		{"MINOR_T", func(v string) (err error) { ov.MinorTo, err = parseASCIIFloat(v); return }},
	}
	for _, step := range steps {
		fields, err := s.next()
		if err != nil {
			return nil, err
		}
		if fields == nil {
			return nil, newErr(ErrUnexpectedEOF, "ascii overview: missing %s", step.key)
		}
		val, err := expectKey(fields, step.key)
		if err != nil {
			return nil, err
		}
		if err := step.set(val); err != nil {
			return nil, err
		}
	}
	return ov, nil
}

// readSubfileASCII parses one sub-file's 11 KEY VALUE lines.
func readSubfileASCII(s *asciiScanner) (*RawSubfile, error) {
	sf := &RawSubfile{}
	steps := []struct {
		key string
		set func(string) error
	}{
		{"SUB_NAME", func(v string) error { sf.Name, _ = cleanupName(v); return nil }},
		{"PARENT", func(v string) error { sf.Parent, _ = cleanupName(v); return nil }},
		{"CREATED", func(v string) error { sf.Created, _ = cleanupName(v); return nil }},
		{"UPDATED", func(v string) error { sf.Updated, _ = cleanupName(v); return nil }},
		{"S_LAT", func(v string) (err error) { sf.SLat, err = parseASCIIFloat(v); return }},
		{"N_LAT", func(v string) (err error) { sf.NLat, err = parseASCIIFloat(v); return }},
		{"E_LONG", func(v string) (err error) { sf.ELon, err = parseASCIIFloat(v); return }},
		{"W_LONG", func(v string) (err error) { sf.WLon, err = parseASCIIFloat(v); return }},
		{"LAT_INC", func(v string) (err error) { sf.LatInc, err = parseASCIIFloat(v); return }},
		{"LONG_INC", func(v string) (err error) { sf.LonInc, err = parseASCIIFloat(v); return }},
		{"GS_COUNT", func(v string) (err error) { n, err := parseASCIIInt(v); sf.GSCount = n; return err }},
	}
	for _, step := range steps {
		fields, err := s.next()
		if err != nil {
			return nil, err
		}
		if fields == nil {
			return nil, newErr(ErrUnexpectedEOF, "ascii sub-file: missing %s", step.key)
		}
		val, err := expectKey(fields, step.key)
		if err != nil {
			return nil, err
		}
		if err := step.set(val); err != nil {
			return nil, err
		}
	}
	return sf, nil
}

// readGSRecordASCII parses one "lat lon lat_acc lon_acc" line; accuracies
// default to 0 when omitted.
func readGSRecordASCII(s *asciiScanner) (Shift, Shift, bool, error) {
	fields, err := s.next()
	if err != nil {
		return Shift{}, Shift{}, false, err
	}
	if fields == nil {
		return Shift{}, Shift{}, false, nil
	}
	if len(fields) < 2 {
		return Shift{}, Shift{}, false, newErr(ErrInvalidASCIILine, "grid-shift line needs at least 2 fields, got %d", len(fields))
	}
	parse := func(s string) float32 {
		v, _ := strconv.ParseFloat(s, 32)
		return float32(v)
	}
	shift := Shift{Lat: parse(fields[0]), Lon: parse(fields[1])}
	var acc Shift
	hasAcc := len(fields) >= 4
	if hasAcc {
		acc = Shift{Lat: parse(fields[2]), Lon: parse(fields[3])}
	}
	return shift, acc, hasAcc, nil
}

func readEndASCII(s *asciiScanner, h *Header) error {
	fields, err := s.next()
	if err != nil {
		return err
	}
	if fields == nil || !strings.EqualFold(fields[0], "END") {
		h.Fixed = setFlag(h.Fixed, FixMissingEndRecord)
	}
	return nil
}

// writeOverviewASCII writes the 11 KEY VALUE overview lines.
func writeOverviewASCII(w io.Writer, ov *RawOverview) error {
	_, err := fmt.Fprintf(w,
		"NUM_OREC %d\nNUM_SREC %d\nNUM_FILE %d\nGS_TYPE  %s\nVERSION  %s\nSYSTEM_F %s\nSYSTEM_T %s\nMAJOR_F  %s\nMINOR_F  %s\nMAJOR_T  %s\nMINOR_T  %s\n",
		ov.NumOverviewRecs, ov.NumSubfileRecs, ov.NumFiles,
		trimmed(ov.GSType), trimmed(ov.Version), trimmed(ov.SystemFrom), trimmed(ov.SystemTo),
		formatASCIIFloat(ov.MajorFrom), formatASCIIFloat(ov.MinorFrom),
		formatASCIIFloat(ov.MajorTo), formatASCIIFloat(ov.MinorTo))
	if err != nil {
		return wrapErr(ErrIO, err, "writing ascii overview")
	}
	return nil
}

func writeSubfileASCII(w io.Writer, raw *RawSubfile, shifts, accurs []Shift, hasAccurs bool) error {
	if _, err := fmt.Fprintf(w, "\nSUB_NAME %s\nPARENT   %s\nCREATED  %s\nUPDATED  %s\nS_LAT    %s\nN_LAT    %s\nE_LONG   %s\nW_LONG   %s\nLAT_INC  %s\nLONG_INC %s\nGS_COUNT %d\n\n",
		trimmed(raw.Name), trimmed(raw.Parent), trimmed(raw.Created), trimmed(raw.Updated),
		formatASCIIFloat(raw.SLat), formatASCIIFloat(raw.NLat), formatASCIIFloat(raw.ELon), formatASCIIFloat(raw.WLon),
		formatASCIIFloat(raw.LatInc), formatASCIIFloat(raw.LonInc), raw.GSCount); err != nil {
		return wrapErr(ErrIO, err, "writing ascii sub-file header")
	}
	for i, sh := range shifts {
		var acc Shift
		if hasAccurs {
			acc = accurs[i]
		}
		if _, err := fmt.Fprintf(w, "%-16s%-16s%-16s%s\n",
			formatASCIIFloat(float64(sh.Lat)), formatASCIIFloat(float64(sh.Lon)),
			formatASCIIFloat(float64(acc.Lat)), formatASCIIFloat(float64(acc.Lon))); err != nil {
			return wrapErr(ErrIO, err, "writing ascii grid-shift line")
		}
	}
	return nil
}

func writeEndASCII(w io.Writer) error {
	_, err := fmt.Fprint(w, "\nEND\n")
	if err != nil {
		return wrapErr(ErrIO, err, "writing ascii end record")
	}
	return nil
}
