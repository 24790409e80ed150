package ntv2

import (
	"context"
	"math"
	"runtime"
	"sync"
)

// Point is a (longitude, latitude) pair in degrees, standard sign.
type Point struct {
	Lon, Lat float64
}

const maxInverseIterations = 50

// corner indexes the four cells fetched around a located point, named by
// their position in the file's east-to-west column ordering.
type corner int

const (
	cornerLowerRight corner = iota
	cornerLowerLeft
	cornerUpperRight
	cornerUpperLeft
)

// interpolate computes the (lon, lat) shift in degrees at p within the
// located node, applying the halo rule appropriate to loc.Status.
func interpolate(ctx context.Context, h *Header, loc Located, p Point) (Point, error) {
	n := loc.Node
	xFrac := (n.LonMax - p.Lon) / n.LonInc // E -> W
	yFrac := (p.Lat - n.LatMin) / n.LatInc

	icol := int(math.Floor(xFrac))
	irow := int(math.Floor(yFrac))
	xf := xFrac - float64(icol)
	yf := yFrac - float64(irow)

	horz, vert := 0, 0
	if loc.Status == StatusOutsideCell {
		if icol < 0 {
			icol, horz = 0, 1
		} else if icol > n.NCols-2 {
			icol, horz = n.NCols-2, -1
		}
		if irow < 0 {
			irow, vert = 0, -1
		} else if irow > n.NRows-2 {
			irow, vert = n.NRows-2, 1
		}
	}
	if icol < 0 {
		icol = 0
	}
	if irow < 0 {
		irow = 0
	}

	lr, ll, ur, ul, err := fetchCorners(ctx, n, irow, icol, loc.Status, horz, vert)
	if err != nil {
		return Point{}, err
	}

	latShift := bilinear(lr.Lat, ll.Lat, ur.Lat, ul.Lat, xf, yf)
	lonShift := bilinear(lr.Lon, ll.Lon, ur.Lon, ul.Lon, xf, yf)

	conv := h.DatConv / 3600.0
	return Point{
		Lon: -float64(lonShift) * conv, // file convention -> standard: sign flipped
		Lat: float64(latShift) * conv,
	}, nil
}

func bilinear(lr, ll, ur, ul float32, xf, yf float64) float32 {
	return lr + float32((float64(ll-lr))*xf) + float32(float64(ur-lr)*yf) +
		float32((float64((ul-ll)-(ur-lr)))*xf*yf)
}

// fetchCorners returns the four corner shifts in (lowerRight, lowerLeft,
// upperRight, upperLeft) order, applying the halo substitution rule for
// the given status. Column index increases eastward-to-westward per the
// file's storage order: col is the "lower" (east-er) column, col+1 the
// "upper" (west-er) one in this local sense, matching row being the
// south-er row and row+1 the north-er one.
func fetchCorners(ctx context.Context, n *Node, row, col int, status Status, horz, vert int) (lr, ll, ur, ul Shift, err error) {
	at := func(r, c int) (Shift, error) { return n.store.at(ctx, r, c) }

	switch status {
	case StatusContained, StatusOutsideCell:
		if lr, err = at(row, col); err != nil {
			return
		}
		if ll, err = at(row, col+1); err != nil {
			return
		}
		if ur, err = at(row+1, col); err != nil {
			return
		}
		if ul, err = at(row+1, col+1); err != nil {
			return
		}
	case StatusNorth:
		if lr, err = at(row, col); err != nil {
			return
		}
		if ll, err = at(row, col+1); err != nil {
			return
		}
		ur, ul = lr, ll
	case StatusWest:
		if lr, err = at(row, col); err != nil {
			return
		}
		if ur, err = at(row+1, col); err != nil {
			return
		}
		ll, ul = lr, ur
	case StatusNorthWest:
		if lr, err = at(row, col); err != nil {
			return
		}
		ll, ur, ul = lr, lr, lr
	}

	// A phantom row/col of zero shift is assumed one cell beyond each edge
	// of the top-level grid. Moving the real edge values into the slot
	// bilinear() weights by the edge-side fraction, and zeroing the slot
	// it vacated, makes the shift decay linearly to 0 over that one cell.
	if status == StatusOutsideCell {
		if horz == 1 {
			ll, ul = lr, ur
			lr, ur = Shift{}, Shift{}
		} else if horz == -1 {
			lr, ur = ll, ul
			ll, ul = Shift{}, Shift{}
		}
		if vert == -1 {
			ul, ur = ll, lr
			ll, lr = Shift{}, Shift{}
		} else if vert == 1 {
			ll, lr = ul, ur
			ul, ur = Shift{}, Shift{}
		}
	}
	return
}

// Forward applies the forward datum shift to every point, in place where
// located; points the locator cannot find are left unchanged. Returns the
// count of points successfully transformed.
func Forward(ctx context.Context, h *Header, pts []Point) (int, error) {
	return batchTransform(ctx, h, pts, forwardOne)
}

func forwardOne(ctx context.Context, h *Header, p Point) (Point, bool, error) {
	loc := Locate(h, p.Lon, p.Lat)
	if loc.Node == nil {
		return p, false, nil
	}
	shift, err := interpolate(ctx, h, loc, p)
	if err != nil {
		return p, false, err
	}
	return Point{Lon: p.Lon + shift.Lon, Lat: p.Lat + shift.Lat}, true, nil
}

// Inverse applies the inverse datum shift via fixed-point iteration: each
// step re-locates the (possibly migrated) point, computes the forward
// shift at the current estimate, and subtracts from that estimate the
// delta between its forward image and the *original* point.
func Inverse(ctx context.Context, h *Header, pts []Point) (int, error) {
	return batchTransform(ctx, h, pts, inverseOne)
}

func inverseOne(ctx context.Context, h *Header, orig Point) (Point, bool, error) {
	estimate := orig
	ok := false
	for i := 0; i < maxInverseIterations; i++ {
		loc := Locate(h, estimate.Lon, estimate.Lat)
		if loc.Node == nil {
			break
		}
		shift, err := interpolate(ctx, h, loc, estimate)
		if err != nil {
			return orig, false, err
		}
		forwardOfEstimate := Point{Lon: estimate.Lon + shift.Lon, Lat: estimate.Lat + shift.Lat}
		deltaLon := forwardOfEstimate.Lon - orig.Lon
		deltaLat := forwardOfEstimate.Lat - orig.Lat

		next := Point{Lon: estimate.Lon - deltaLon, Lat: estimate.Lat - deltaLat}
		ok = true
		converged := math.Abs(deltaLon) <= eps && math.Abs(deltaLat) <= eps
		estimate = next
		if converged {
			break
		}
	}
	return estimate, ok, nil
}

// batchTransform runs fn over every point, parallelised across a bounded
// worker pool the way the teacher's CLI parallelises its multi-variable
// fetch: a fixed-size semaphore and a WaitGroup, legal here because
// concurrent transform calls on one loaded header are explicitly allowed
// (materialized data, or the lazy store's per-cell mutex).
func batchTransform(ctx context.Context, h *Header, pts []Point, fn func(context.Context, *Header, Point) (Point, bool, error)) (int, error) {
	out := make([]Point, len(pts))
	ok := make([]bool, len(pts))

	workers := runtime.GOMAXPROCS(0)
	if workers > len(pts) {
		workers = len(pts)
	}
	if workers < 1 {
		workers = 1
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var firstErr error
	var mu sync.Mutex

	for i, p := range pts {
		if ctx.Err() != nil {
			break
		}
		i, p := i, p
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			res, transformed, err := fn(ctx, h, p)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			out[i] = res
			ok[i] = transformed
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return 0, firstErr
	}

	count := 0
	for i, p := range pts {
		if ok[i] {
			pts[i] = out[i]
			count++
		} else {
			pts[i] = p
		}
	}
	return count, nil
}
