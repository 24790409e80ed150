// Command ntv2file inspects, validates, and rewrites NTv2 grid-shift
// files.
//
// Usage:
//
//	ntv2file [flags] file ...
//
// Examples:
//
//	ntv2file -v ntv2/ntv2data/ntv2_0.gsb
//	ntv2file -l -v ntv2/ntv2data/ntv2_0.gsb
//	ntv2file -h -d -a ntv2/ntv2data/ntv2_0.gsb
//	ntv2file -o out.gsa ntv2/ntv2data/ntv2_0.gsb
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/esri/ntv2/ntv2"
)

func main() {
	validate := flag.Bool("v", false, "validate and report issues")
	ignore := flag.Bool("i", false, "ignore validation errors (still reports them)")
	dumpHdrs := flag.Bool("h", false, "dump overview and sub-file headers")
	list := flag.Bool("l", false, "terse one-line-per-sub-file listing")
	dumpData := flag.Bool("d", false, "dump shift data (implies -h)")
	dumpAccur := flag.Bool("a", false, "dump accuracy data along with shifts")
	big := flag.Bool("B", false, "write output in big-endian")
	little := flag.Bool("L", false, "write output in little-endian")
	native := flag.Bool("N", false, "write output in native-endian")
	out := flag.String("o", "", "rewrite the file to this path")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "error: at least one file is required")
		usage()
		os.Exit(2)
	}

	exitCode := 0
	for _, path := range flag.Args() {
		if err := processFile(path, processOptions{
			validate: *validate, ignore: *ignore, dumpHdrs: *dumpHdrs,
			list: *list, dumpData: *dumpData, dumpAccur: *dumpAccur,
			out: *out, endian: resolveEndianFlag(*big, *little, *native),
		}); err != nil {
			fmt.Fprintf(os.Stderr, "error: %s: %v\n", path, err)
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}

type processOptions struct {
	validate, ignore, dumpHdrs, list, dumpData, dumpAccur bool
	out                                                    string
	endian                                                 ntv2.Endianness
}

func resolveEndianFlag(big, little, native bool) ntv2.Endianness {
	switch {
	case big:
		return ntv2.EndianBig
	case little:
		return ntv2.EndianLittle
	case native:
		return ntv2.EndianNative
	default:
		return ntv2.EndianMatchInput
	}
}

func processFile(path string, opts processOptions) error {
	needData := opts.dumpData || opts.out != ""
	keepOrig := opts.out != "" || opts.dumpHdrs || opts.dumpData
	h, err := ntv2.Load(path, ntv2.Options{KeepOrig: keepOrig, Lazy: !needData})
	if err != nil {
		return errors.Wrap(err, "loading")
	}
	defer h.Close()
	glog.V(1).Infof("ntv2file: loaded %q: %d records", path, h.NumRecs)

	fmt.Printf("%s:\n", path)

	if opts.validate {
		diags, worst := ntv2.Validate(h)
		for _, d := range diags {
			fmt.Printf("  [%s] %s\n", d.Code.Band(), d.Message)
		}
		if worst != ntv2.ErrOK && !opts.ignore {
			return fmt.Errorf("validation failed with worst code %d", worst)
		}
	}

	switch {
	case opts.list:
		ntv2.List(os.Stdout, h)
	case opts.dumpHdrs || opts.dumpData:
		mode := ntv2.DumpOverviewOnly | ntv2.DumpSubfiles
		if opts.dumpData {
			mode |= ntv2.DumpData
		}
		if opts.dumpAccur {
			mode |= ntv2.DumpAccuracies
		}
		ntv2.DumpHeader(os.Stdout, h, mode)
	}

	if opts.out != "" {
		if err := ntv2.WriteFile(h, opts.out, opts.endian); err != nil {
			return errors.Wrap(err, "writing")
		}
	}
	return nil
}

func usage() {
	fmt.Fprintln(os.Stderr, `ntv2file — inspect, validate, and rewrite NTv2 grid-shift files

Usage:
  ntv2file [-v] [-i] [-h|-l] [-d|-a] [-B|-L|-N] [-o out] file ...

Flags:`)
	flag.PrintDefaults()
}
