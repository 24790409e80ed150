// Command ntv2cvt transforms lon/lat points through an NTv2 grid-shift
// file, forward or inverse.
//
// Usage:
//
//	ntv2cvt [flags] ntv2file [lat lon] ...
//
// Examples:
//
//	ntv2cvt ntv2/ntv2data/ntv2_0.gsb 40.0 -105.0
//	ntv2cvt -i -e -106 39 -104 41 -p points.txt ntv2/ntv2data/ntv2_0.gsb
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/esri/ntv2/ntv2"
)

// extentFlag collects the four numbers of -e as they are parsed.
type extentFlag struct {
	vals [4]float64
	set  bool
	n    int
}

func (e *extentFlag) String() string { return "" }
func (e *extentFlag) Set(s string) error {
	if e.n >= 4 {
		return fmt.Errorf("-e takes exactly 4 values")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid extent value %q: %w", s, err)
	}
	e.vals[e.n] = v
	e.n++
	e.set = e.n == 4
	return nil
}

func main() {
	reversed := flag.Bool("r", false, "reversed data (lon lat) instead of (lat lon)")
	lazy := flag.Bool("d", false, "read shift data on the fly (no eager load of data)")
	inverse := flag.Bool("i", false, "inverse transformation")
	forward := flag.Bool("f", false, "forward transformation (default)")
	degFactor := flag.Float64("c", 1.0, "conversion: degrees-per-unit")
	sep := flag.String("s", " ", "output separator")
	pointsFile := flag.String("p", "-", "read points from file (\"-\" or stdin)")
	var extent extentFlag
	flag.Var(&extent, "e", "extent: wlon slat elon nlat")
	flag.Usage = usage
	// -e takes four values; spread them into four -e flags for the flag package.
	var args []string
	for in := os.Args[1:]; len(in) > 0; in = in[1:] {
		if in[0] == "-e" && len(in) >= 5 {
			for _, v := range in[1:5] {
				args = append(args, "-e", v)
			}
			in = in[4:]
			continue
		}
		args = append(args, in[0])
	}
	flag.CommandLine.Parse(args)

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "error: ntv2file is required")
		usage()
		os.Exit(2)
	}
	path := flag.Arg(0)
	coordArgs := flag.Args()[1:]

	opts := ntv2.Options{Lazy: *lazy, KeepOrig: false}
	if extent.set {
		opts.Extent = &ntv2.Extent{WLon: extent.vals[0], SLat: extent.vals[1], ELon: extent.vals[2], NLat: extent.vals[3]}
	}

	h, err := ntv2.Load(path, opts)
	if err != nil {
		fatalf("loading %q: %v", path, errors.Cause(err))
	}
	defer h.Close()
	glog.V(1).Infof("ntv2cvt: loaded %q: %d records, %d top-level parents", path, h.NumRecs, h.NumParents)

	pts, err := readPoints(coordArgs, *pointsFile, *reversed, *degFactor)
	if err != nil {
		fatalf("reading points: %v", err)
	}

	ctx := context.Background()
	var count int
	if *inverse && !*forward {
		count, err = ntv2.Inverse(ctx, h, pts)
	} else {
		count, err = ntv2.Forward(ctx, h, pts)
	}
	if err != nil {
		fatalf("transform failed: %v", err)
	}

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	for _, p := range pts {
		lat, lon := p.Lat, p.Lon
		if *reversed {
			fmt.Fprintf(w, "%.16g%s%.16g\n", lon, *sep, lat)
		} else {
			fmt.Fprintf(w, "%.16g%s%.16g\n", lat, *sep, lon)
		}
	}

	if count != len(pts) {
		os.Exit(1)
	}
}

// readPoints builds the point list either from trailing command-line
// arguments or, if none were given, one pair per line from the -p file.
func readPoints(coordArgs []string, pointsFile string, reversed bool, degFactor float64) ([]ntv2.Point, error) {
	if len(coordArgs) > 0 {
		if len(coordArgs)%2 != 0 {
			return nil, fmt.Errorf("coordinate arguments must come in pairs, got %d", len(coordArgs))
		}
		pts := make([]ntv2.Point, 0, len(coordArgs)/2)
		for i := 0; i < len(coordArgs); i += 2 {
			p, err := parsePoint(coordArgs[i], coordArgs[i+1], reversed, degFactor)
			if err != nil {
				return nil, err
			}
			pts = append(pts, p)
		}
		return pts, nil
	}

	var r *os.File
	if pointsFile == "-" || pointsFile == "" {
		r = os.Stdin
	} else {
		f, err := os.Open(pointsFile)
		if err != nil {
			return nil, fmt.Errorf("opening %q: %w", pointsFile, err)
		}
		defer f.Close()
		r = f
	}

	var pts []ntv2.Point
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		p, err := parsePoint(fields[0], fields[1], reversed, degFactor)
		if err != nil {
			return nil, err
		}
		pts = append(pts, p)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading points: %w", err)
	}
	return pts, nil
}

func parsePoint(a, b string, reversed bool, degFactor float64) (ntv2.Point, error) {
	v1, err := strconv.ParseFloat(a, 64)
	if err != nil {
		return ntv2.Point{}, fmt.Errorf("invalid coordinate %q: %w", a, err)
	}
	v2, err := strconv.ParseFloat(b, 64)
	if err != nil {
		return ntv2.Point{}, fmt.Errorf("invalid coordinate %q: %w", b, err)
	}
	v1 *= degFactor
	v2 *= degFactor
	if reversed {
		return ntv2.Point{Lon: v1, Lat: v2}, nil
	}
	return ntv2.Point{Lat: v1, Lon: v2}, nil
}

func usage() {
	fmt.Fprintln(os.Stderr, `ntv2cvt — transform lon/lat points through an NTv2 grid-shift file

Usage:
  ntv2cvt [-r] [-d] [-i|-f] [-c val] [-s str] [-p file] [-e wlon slat elon nlat] ntv2file [lat lon] ...

Flags:`)
	flag.PrintDefaults()
	fmt.Fprintln(os.Stderr, `
If no coordinate pairs are given on the command line, they are read one
per line from the file named by -p (default "-", meaning stdin).`)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
