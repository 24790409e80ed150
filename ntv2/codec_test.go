package ntv2

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

func TestSwapInt32RoundTrip(t *testing.T) {
	vals := []int32{0, 1, -1, 11, 0x7fffffff, -0x7fffffff}
	for _, v := range vals {
		got := swapInt32(swapInt32(v))
		if got != v {
			t.Errorf("swapInt32(swapInt32(%d)) = %d, want %d", v, got, v)
		}
	}
}

func TestSwapFloat32RoundTrip(t *testing.T) {
	vals := []float32{0, 1.5, -1.5, 3.14159, -0.0001}
	for _, v := range vals {
		got := swapFloat32(swapFloat32(v))
		if got != v {
			t.Errorf("swapFloat32(swapFloat32(%v)) = %v, want %v", v, got, v)
		}
	}
}

func TestSwapFloat64RoundTrip(t *testing.T) {
	vals := []float64{0, 1.5, -1.5, 3.14159265358979, -1e10}
	for _, v := range vals {
		got := swapFloat64(swapFloat64(v))
		if got != v {
			t.Errorf("swapFloat64(swapFloat64(%v)) = %v, want %v", v, got, v)
		}
	}
}

func TestSwapFloat64IsWordPairSwap(t *testing.T) {
	// the two 4-byte words trade places and each word's bytes are
	// reversed; byte for byte this is the full 8-byte reversal.
	v := 123.456
	bits := make([]byte, 8)
	binary.BigEndian.PutUint64(bits, math.Float64bits(v))

	want := make([]byte, 8)
	for w := 0; w < 2; w++ {
		for i := 0; i < 4; i++ {
			want[4*w+i] = bits[4*(1-w)+3-i]
		}
	}

	got := swapFloat64(v)
	gotBits := make([]byte, 8)
	binary.BigEndian.PutUint64(gotBits, math.Float64bits(got))

	if !bytes.Equal(gotBits, want) {
		t.Errorf("swapFloat64 bytes = %x, want word-pair swap %x", gotBits, want)
	}
}

func TestDetectByteOrder(t *testing.T) {
	buildOverviewBytes := func(numOrec int32, swapped, withPads bool) []byte {
		var buf bytes.Buffer
		buf.WriteString("NUM_OREC")
		v := numOrec
		if swapped {
			v = swapInt32(v)
		}
		var b [4]byte
		binary.BigEndian.PutUint32(b[:], uint32(v))
		buf.Write(b[:])
		if withPads {
			buf.Write([]byte{0, 0, 0, 0})
		} else {
			buf.Write([]byte{1, 2, 3, 4})
		}
		return buf.Bytes()
	}

	for _, tc := range []struct {
		name       string
		swapped    bool
		withPads   bool
	}{
		{"native, no pads", false, false},
		{"native, pads", false, true},
		{"swapped, no pads", true, false},
		{"swapped, pads", true, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			raw := buildOverviewBytes(11, tc.swapped, tc.withPads)
			r := bytes.NewReader(raw)
			swap, pads, err := detectByteOrder(r)
			if err != nil {
				t.Fatalf("detectByteOrder: %v", err)
			}
			if swap != tc.swapped {
				t.Errorf("swap = %v, want %v", swap, tc.swapped)
			}
			if pads != tc.withPads {
				t.Errorf("pads = %v, want %v", pads, tc.withPads)
			}
		})
	}
}

func TestDetectByteOrderInvalid(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("NUM_OREC")
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], 42)
	buf.Write(b[:])
	_, _, err := detectByteOrder(bytes.NewReader(buf.Bytes()))
	if err == nil {
		t.Fatalf("expected error for NUM_OREC=42 in either byte order")
	}
}

func TestPadName(t *testing.T) {
	cases := map[string]string{
		"END":      "END     ",
		"NONE":     "NONE    ",
		"ABCDEFGH": "ABCDEFGH",
		"ABCDEFGHIJ": "ABCDEFGH",
	}
	for in, want := range cases {
		if got := padName(in); got != want {
			t.Errorf("padName(%q) = %q, want %q", in, got, want)
		}
	}
}
