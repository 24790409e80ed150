package ntv2

// FixFlag is one bit of Header.Fixed, recording a cosmetic malformation the
// loader tolerated and repaired rather than rejecting outright. The set
// pattern (a uint32 bitmask plus named bit constants and a has/set pair)
// mirrors the teacher's MSB-first bitmap accumulator: a flat bit space
// inspected and built up one flag at a time rather than a slice of enums.
type FixFlag uint32

const (
	FixUnprintableChar   FixFlag = 1 << iota // non-printable byte in a name field
	FixLowercaseName                         // lowercase byte in a name field's value (keywords are not checked)
	FixNonAlphaName                          // non-alphanumeric byte after cleanup
	FixBlankParent                           // blank parent name, substituted with NONE
	FixBlankSubfile                          // blank sub-file name
	FixMissingEndRecord                      // end record absent entirely
	FixEndNameNotAlpha                       // end record name not alphabetic
	FixEndPadNotZero                         // end record's trailing 8 bytes not all zero
)

var fixFlagNames = map[FixFlag]string{
	FixUnprintableChar:   "unprintable-char",
	FixLowercaseName:     "lowercase-name",
	FixNonAlphaName:      "non-alpha-name",
	FixBlankParent:       "blank-parent",
	FixBlankSubfile:      "blank-subfile",
	FixMissingEndRecord:  "missing-end-record",
	FixEndNameNotAlpha:   "end-name-not-alpha",
	FixEndPadNotZero:     "end-pad-not-zero",
}

// has reports whether bit is set in the accumulated flags.
func (f FixFlag) has(bits FixFlag) bool { return f&bits != 0 }

// set returns bits with flag added.
func setFlag(bits FixFlag, flag FixFlag) FixFlag { return bits | flag }

// names returns the human-readable names of every set bit, in ascending
// bit order, for use in warning/diagnostic messages.
func (f FixFlag) names() []string {
	var out []string
	for bit := FixFlag(1); bit != 0 && bit <= FixEndPadNotZero; bit <<= 1 {
		if f.has(bit) {
			if n, ok := fixFlagNames[bit]; ok {
				out = append(out, n)
			}
		}
	}
	return out
}

// activeMask tracks which nodes in a flat node array are still active,
// one bit per index, the same flat-bitset shape as FixFlag but sized to
// the node count rather than a fixed warning vocabulary. Used by the
// extent cropper to mark a whole deactivated subtree in one pass before
// the topology resolver re-runs.
type activeMask struct {
	bits []bool
}

func newActiveMask(n int) *activeMask {
	m := &activeMask{bits: make([]bool, n)}
	for i := range m.bits {
		m.bits[i] = true
	}
	return m
}

func (m *activeMask) clear(i int)      { m.bits[i] = false }
func (m *activeMask) isSet(i int) bool { return m.bits[i] }

// countSet mirrors the teacher's countSetBits: how many indices remain
// active, used to decide whether the topology resolver must re-run and
// whether zero nodes remain (an invalid-extent failure).
func (m *activeMask) countSet() int {
	n := 0
	for _, b := range m.bits {
		if b {
			n++
		}
	}
	return n
}
