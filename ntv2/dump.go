package ntv2

import (
	"fmt"
	"io"
)

// DumpMode is a bitmask selecting which parts of a header List/Dump
// prints, supplementing the distilled core spec with the original
// implementation's inspection surface (ntv2_dump_ov/sf/hdr/rec/data).
type DumpMode uint32

const (
	DumpOverviewOnly DumpMode = 1 << iota
	DumpSubfiles
	DumpData
	DumpAccuracies
)

// DumpOverview prints the file overview's 11 fields plus the resolved
// unit tag and conversion factors.
func DumpOverview(w io.Writer, h *Header) {
	if h.RawOverview == nil {
		fmt.Fprintf(w, "(overview not retained; reload with KeepOrig)\n")
		return
	}
	ov := h.RawOverview
	fmt.Fprintf(w, "NUM_OREC %d\n", ov.NumOverviewRecs)
	fmt.Fprintf(w, "NUM_SREC %d\n", ov.NumSubfileRecs)
	fmt.Fprintf(w, "NUM_FILE %d\n", ov.NumFiles)
	fmt.Fprintf(w, "GS_TYPE  %s\n", trimmed(ov.GSType))
	fmt.Fprintf(w, "VERSION  %s\n", trimmed(ov.Version))
	fmt.Fprintf(w, "SYSTEM_F %s\n", trimmed(ov.SystemFrom))
	fmt.Fprintf(w, "SYSTEM_T %s\n", trimmed(ov.SystemTo))
	fmt.Fprintf(w, "MAJOR_F  %s\n", formatASCIIFloat(ov.MajorFrom))
	fmt.Fprintf(w, "MINOR_F  %s\n", formatASCIIFloat(ov.MinorFrom))
	fmt.Fprintf(w, "MAJOR_T  %s\n", formatASCIIFloat(ov.MajorTo))
	fmt.Fprintf(w, "MINOR_T  %s\n", formatASCIIFloat(ov.MinorTo))
	fmt.Fprintf(w, "UNITS    %s\n", h.Units)
	fmt.Fprintf(w, "HDR_CONV %g\n", h.HdrConv)
	fmt.Fprintf(w, "DAT_CONV %g\n", h.DatConv)
}

// DumpHeader prints the overview and, depending on mode, the sub-file
// tree and (optionally) its shift/accuracy data, recursing in the same
// order the writer emits records.
func DumpHeader(w io.Writer, h *Header, mode DumpMode) {
	DumpOverview(w, h)
	if mode&DumpSubfiles == 0 {
		return
	}
	for _, n := range h.topLevelParents() {
		dumpSubfileRecursive(w, h, n, mode)
	}
}

func dumpSubfileRecursive(w io.Writer, h *Header, n *Node, mode DumpMode) {
	if !n.Active {
		return
	}
	fmt.Fprintf(w, "\nSUB_NAME %s\n", trimmed(n.Name))
	fmt.Fprintf(w, "PARENT   %s\n", trimmed(n.ParentName))
	fmt.Fprintf(w, "S_LAT    %s\n", formatASCIIFloat(n.LatMin))
	fmt.Fprintf(w, "N_LAT    %s\n", formatASCIIFloat(n.LatMax))
	fmt.Fprintf(w, "W_LONG   %s\n", formatASCIIFloat(n.LonMin))
	fmt.Fprintf(w, "E_LONG   %s\n", formatASCIIFloat(n.LonMax))
	fmt.Fprintf(w, "LAT_INC  %s\n", formatASCIIFloat(n.LatInc))
	fmt.Fprintf(w, "LONG_INC %s\n", formatASCIIFloat(n.LonInc))
	fmt.Fprintf(w, "GS_COUNT %d\n", n.Num)

	if mode&DumpData != 0 {
		if ms, ok := n.store.(*materializedStore); ok {
			for i, sh := range ms.shifts {
				if mode&DumpAccuracies != 0 && ms.accurs != nil {
					acc := ms.accurs[i]
					fmt.Fprintf(w, "%-16s%-16s%-16s%s\n",
						formatASCIIFloat(float64(sh.Lat)), formatASCIIFloat(float64(sh.Lon)),
						formatASCIIFloat(float64(acc.Lat)), formatASCIIFloat(float64(acc.Lon)))
				} else {
					fmt.Fprintf(w, "%-16s%s\n", formatASCIIFloat(float64(sh.Lat)), formatASCIIFloat(float64(sh.Lon)))
				}
			}
		} else {
			fmt.Fprintf(w, "(shift data not materialized; reload without Lazy to dump)\n")
		}
	}

	for _, child := range h.children(n) {
		dumpSubfileRecursive(w, h, child, mode)
	}
}

// List prints one terse line per active sub-file: name, parent, bbox,
// cell count.
func List(w io.Writer, h *Header) {
	for _, n := range h.Nodes {
		if !n.Active {
			continue
		}
		fmt.Fprintf(w, "%-8s parent=%-8s lat=[%g,%g] lon=[%g,%g] cells=%d\n",
			trimmed(n.Name), trimmed(n.ParentName), n.LatMin, n.LatMax, n.LonMin, n.LonMax, n.Num)
	}
}
