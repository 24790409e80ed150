package ntv2

import (
	"context"
	"encoding/binary"
	"math"
)

// Shift is a per-cell (lat, lon) offset pair in the file's native unit.
type Shift struct {
	Lat, Lon float32
}

// dataStore abstracts over a materialized in-RAM grid and a lazily-read
// file-backed one, so the interpolator never needs to know which it has.
// The single mutex-guarded {seek; read} critical section lives in the
// lazy implementation, modeled on the teacher's fetchRange: a bounded,
// cancellable single read under a guard, just against a local file
// instead of an HTTP byte range.
type dataStore interface {
	at(ctx context.Context, row, col int) (Shift, error)
	accuracyAt(ctx context.Context, row, col int) (Shift, bool, error)
}

// materializedStore holds every cell of a node's grid in memory, row-major
// south->north, columns east->west (matching the file's column order).
type materializedStore struct {
	ncols  int
	shifts []Shift
	accurs []Shift // nil if accuracies were not kept
}

func (s *materializedStore) at(_ context.Context, row, col int) (Shift, error) {
	return s.shifts[row*s.ncols+col], nil
}

func (s *materializedStore) accuracyAt(_ context.Context, row, col int) (Shift, bool, error) {
	if s.accurs == nil {
		return Shift{}, false, nil
	}
	return s.accurs[row*s.ncols+col], true, nil
}

// lazyStore reads one cell at a time from the backing file, under the
// header's mutex, computing the byte offset from the node's recorded
// offset plus the row/col position within its (possibly cropped) grid.
type lazyStore struct {
	h     *Header
	n     *Node
}

const (
	fieldLatShift = 0
	fieldLonShift = 4
	fieldLatAcc   = 8
	fieldLonAcc   = 12
)

func (s *lazyStore) cellOffset(row, col int) int64 {
	// A file row still holds the cropped-off cells: ESkip bytes of east
	// columns first, WSkip bytes of west columns last; SSkip covers the
	// cropped-off southern rows.
	rowBytes := int64(s.n.NCols)*16 + s.n.WSkip + s.n.ESkip
	return s.n.Offset + s.n.SSkip + int64(row)*rowBytes + s.n.ESkip + int64(col)*16
}

func (s *lazyStore) readField(ctx context.Context, off int64) (float32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.h.mu.Lock()
	defer s.h.mu.Unlock()

	var buf [4]byte
	if _, err := s.h.file.ReadAt(buf[:], off); err != nil {
		return 0, wrapErr(ErrIO, err, "reading shift data at offset %d", off)
	}
	v := math.Float32frombits(binary.BigEndian.Uint32(buf[:]))
	if s.h.SwapData {
		v = swapFloat32(v)
	}
	return v, nil
}

func (s *lazyStore) at(ctx context.Context, row, col int) (Shift, error) {
	off := s.cellOffset(row, col)
	lat, err := s.readField(ctx, off+fieldLatShift)
	if err != nil {
		return Shift{}, err
	}
	lon, err := s.readField(ctx, off+fieldLonShift)
	if err != nil {
		return Shift{}, err
	}
	return Shift{Lat: lat, Lon: lon}, nil
}

func (s *lazyStore) accuracyAt(ctx context.Context, row, col int) (Shift, bool, error) {
	off := s.cellOffset(row, col)
	lat, err := s.readField(ctx, off+fieldLatAcc)
	if err != nil {
		return Shift{}, false, err
	}
	lon, err := s.readField(ctx, off+fieldLonAcc)
	if err != nil {
		return Shift{}, false, err
	}
	return Shift{Lat: lat, Lon: lon}, true, nil
}
