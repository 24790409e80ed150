package ntv2

import (
	"encoding/binary"
	"io"
	"math"

	"golang.org/x/exp/constraints"
)

const (
	nameLen     = 8 // every name field is exactly 8 bytes, space-padded
	sizeInt     = 4
	sizeFloat   = 4
	sizeDouble  = 8
	noParentName = "NONE    "
	endName      = "END     "
)

// swapUint reverses the byte order of an unsigned integer of width w bytes
// (4 or 8), shared by the int/float/double swap helpers below instead of
// three copy-pasted loops.
func swapUint[T constraints.Unsigned](v T, width int) T {
	var buf [8]byte
	switch width {
	case 4:
		binary.BigEndian.PutUint32(buf[:4], uint32(v))
		return T(binary.LittleEndian.Uint32(buf[:4]))
	case 8:
		binary.BigEndian.PutUint64(buf[:8], uint64(v))
		return T(binary.LittleEndian.Uint64(buf[:8]))
	default:
		panic("ntv2: swapUint: unsupported width")
	}
}

// swapInt32 reverses the 4 bytes of a 32-bit integer.
func swapInt32(v int32) int32 {
	return int32(swapUint(uint32(v), 4))
}

// swapFloat32 reverses the 4 bytes of a 32-bit float.
func swapFloat32(v float32) float32 {
	return math.Float32frombits(swapUint(math.Float32bits(v), 4))
}

// swapFloat64 swaps a double as a *pair* of 4-byte words: each 4-byte half
// is byte-reversed and the two halves trade places. The resulting byte
// order is the same as a plain reversal of all 8 bytes.
func swapFloat64(v float64) float64 {
	bits := math.Float64bits(v)
	hi := uint32(bits >> 32)
	lo := uint32(bits)
	hi, lo = swapUint(lo, 4), swapUint(hi, 4)
	return math.Float64frombits(uint64(hi)<<32 | uint64(lo))
}

// reader wraps an io.ReadSeeker with the pad/swap conventions of the
// binary file format: every int32 field may be followed by a 4-byte zero
// pad, and every multi-byte field may need byte-swapping.
type reader struct {
	r           io.ReadSeeker
	swap        bool
	padsPresent bool
}

func (c *reader) readRaw(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(c.r, buf); err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return nil, newErr(ErrUnexpectedEOF, "unexpected end of file")
		}
		return nil, wrapErr(ErrIO, err, "reading %d bytes", n)
	}
	return buf, nil
}

func (c *reader) readName() (string, error) {
	b, err := c.readRaw(nameLen)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c *reader) readInt32() (int32, error) {
	b, err := c.readRaw(sizeInt)
	if err != nil {
		return 0, err
	}
	v := int32(binary.BigEndian.Uint32(b))
	if c.swap {
		v = swapInt32(v)
	}
	if c.padsPresent {
		if _, err := c.readRaw(sizeInt); err != nil {
			return 0, err
		}
	}
	return v, nil
}

func (c *reader) readFloat32() (float32, error) {
	b, err := c.readRaw(sizeFloat)
	if err != nil {
		return 0, err
	}
	v := math.Float32frombits(binary.BigEndian.Uint32(b))
	if c.swap {
		v = swapFloat32(v)
	}
	return v, nil
}

func (c *reader) readFloat64() (float64, error) {
	b, err := c.readRaw(sizeDouble)
	if err != nil {
		return 0, err
	}
	v := math.Float64frombits(binary.BigEndian.Uint64(b))
	if c.swap {
		v = swapFloat64(v)
	}
	return v, nil
}

// detectByteOrder reads NUM_OREC's value and toggles swap until it equals
// 11, the only value the overview record's NUM_OREC can validly hold. It
// also detects whether 4-byte zero pads follow each integer field by
// peeking the next int32 after NUM_OREC: zero means pads are present.
func detectByteOrder(r io.ReadSeeker) (swap bool, padsPresent bool, err error) {
	if _, err = r.Seek(int64(nameLen), io.SeekStart); err != nil {
		return false, false, wrapErr(ErrIO, err, "seeking past NUM_OREC name")
	}
	var raw [4]byte
	if _, err = io.ReadFull(r, raw[:]); err != nil {
		return false, false, newErr(ErrUnexpectedEOF, "reading NUM_OREC")
	}
	v := int32(binary.BigEndian.Uint32(raw[:]))
	if v != 11 {
		v = swapInt32(v)
		if v != 11 {
			return false, false, newErr(ErrBadOverviewCount, "NUM_OREC is not 11 in either byte order")
		}
		swap = true
	}

	var peek [4]byte
	n, _ := io.ReadFull(r, peek[:])
	if n == 4 && binary.BigEndian.Uint32(peek[:]) == 0 {
		padsPresent = true
	} else if n == 4 {
		if _, err = r.Seek(-4, io.SeekCurrent); err != nil {
			return false, false, wrapErr(ErrIO, err, "rewinding pad peek")
		}
	}

	if _, err = r.Seek(0, io.SeekStart); err != nil {
		return false, false, wrapErr(ErrIO, err, "rewinding to start")
	}
	return swap, padsPresent, nil
}

// writer is the binary-output counterpart of reader: it always emits pad
// words (the on-disk quirk of omitting them is never reproduced on write).
type writer struct {
	w    io.Writer
	swap bool
}

func (c *writer) writeRaw(b []byte) error {
	_, err := c.w.Write(b)
	if err != nil {
		return wrapErr(ErrIO, err, "writing %d bytes", len(b))
	}
	return nil
}

func (c *writer) writeName(s string) error {
	b := make([]byte, nameLen)
	copy(b, padName(s))
	return c.writeRaw(b)
}

func (c *writer) writeInt32(v int32) error {
	if c.swap {
		v = swapInt32(v)
	}
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	if err := c.writeRaw(b[:]); err != nil {
		return err
	}
	var pad [4]byte
	return c.writeRaw(pad[:])
}

func (c *writer) writeFloat32(v float32) error {
	if c.swap {
		v = swapFloat32(v)
	}
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], math.Float32bits(v))
	return c.writeRaw(b[:])
}

func (c *writer) writeFloat64(v float64) error {
	if c.swap {
		v = swapFloat64(v)
	}
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	return c.writeRaw(b[:])
}

// padName truncates or space-pads s to exactly nameLen bytes.
func padName(s string) string {
	if len(s) >= nameLen {
		return s[:nameLen]
	}
	for len(s) < nameLen {
		s += " "
	}
	return s
}
