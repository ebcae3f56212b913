package interval

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PosType is the coordinate type.  int32 is wide enough for anything a BAM
// file can describe.
type PosType int32

// PosTypeMax is the maximum value that can be represented by a PosType.
const PosTypeMax = math.MaxInt32

// Strand is the orientation of an interval.
type Strand int8

const (
	// Unstranded intervals are printed as ".".
	Unstranded Strand = 0
	// Forward intervals are printed as "+".
	Forward Strand = 1
	// Reverse intervals are printed as "-".
	Reverse Strand = -1
)

// String returns the GTF/BED representation of the strand.
func (s Strand) String() string {
	switch s {
	case Forward:
		return "+"
	case Reverse:
		return "-"
	}
	return "."
}

// ParseStrand parses "+", "-" or "." (an empty string is also unstranded).
func ParseStrand(s string) (Strand, error) {
	switch s {
	case "+":
		return Forward, nil
	case "-":
		return Reverse, nil
	case ".", "":
		return Unstranded, nil
	}
	return Unstranded, fmt.Errorf("interval.ParseStrand: invalid strand %q", s)
}

// Interval is a stranded, 0-based, half-open genomic interval.
// Invariant: 0 <= Start <= End.
type Interval struct {
	Chrom  string
	Start  PosType
	End    PosType
	Strand Strand
}

// Len returns the length of the interval.  It is negative for malformed
// intervals.
func (iv Interval) Len() int {
	return int(iv.End) - int(iv.Start)
}

// SameBucket reports whether iv and other are on the same chromosome and
// strand.  Only such intervals are comparable.
func (iv Interval) SameBucket(other Interval) bool {
	return iv.Chrom == other.Chrom && iv.Strand == other.Strand
}

// Hull extends iv to also cover other.
//
// REQUIRES: iv.SameBucket(other)
func (iv Interval) Hull(other Interval) Interval {
	if !iv.SameBucket(other) {
		panic(fmt.Sprintf("internal error: Hull of %v and %v", iv, other))
	}
	if other.Start < iv.Start {
		iv.Start = other.Start
	}
	if other.End > iv.End {
		iv.End = other.End
	}
	return iv
}

func (iv Interval) String() string {
	return fmt.Sprintf("%s:[%d,%d)/%s", iv.Chrom, iv.Start, iv.End, iv.Strand)
}

// Label is an interval with a name attached, e.g. a called peak.
type Label struct {
	Interval
	Name string
}

// ParseRegionString parses a region string of one of the forms
//   [contig ID]:[1-based first pos]-[last pos]:[strand]
//   [contig ID]:[1-based first pos]-[last pos]
//   [contig ID]:[1-based pos]
//   [contig ID]
// returning a 0-based half-open interval.  The strand defaults to
// Unstranded.  The interval [0, PosTypeMax - 1) is returned if there is no
// positional restriction.
func ParseRegionString(region string) (result Interval, err error) {
	if len(region) == 0 {
		err = fmt.Errorf("interval.ParseRegionString: empty region string")
		return
	}
	colonPos := strings.IndexByte(region, ':')
	if colonPos == -1 {
		result.Chrom = region
		result.Start = 0
		result.End = PosTypeMax - 1
		return
	}
	if colonPos == 0 {
		err = fmt.Errorf("interval.ParseRegionString: empty contig ID")
		return
	}
	result.Chrom = region[0:colonPos]
	rangeStr := region[colonPos+1:]
	if strandPos := strings.IndexByte(rangeStr, ':'); strandPos != -1 {
		if result.Strand, err = ParseStrand(rangeStr[strandPos+1:]); err != nil {
			return
		}
		rangeStr = rangeStr[:strandPos]
	}
	dashPos := strings.IndexByte(rangeStr, '-')
	if dashPos == -1 {
		var pos1 int64
		if pos1, err = strconv.ParseInt(rangeStr, 10, 32); err != nil {
			return
		}
		if pos1 <= 0 {
			err = fmt.Errorf("interval.ParseRegionString: position %v in region string out of range", rangeStr)
			return
		}
		result.Start = PosType(pos1 - 1)
		result.End = PosType(pos1)
		return
	}
	start1Str := rangeStr[:dashPos]
	endStr := rangeStr[dashPos+1:]
	var start1 int
	if start1, err = strconv.Atoi(start1Str); err != nil {
		return
	}
	if start1 <= 0 {
		err = fmt.Errorf("interval.ParseRegionString: position %v in region string out of range", start1Str)
		return
	}
	var end0 int
	if end0, err = strconv.Atoi(endStr); err != nil {
		return
	}
	if end0 < start1 || end0 >= PosTypeMax {
		err = fmt.Errorf("interval.ParseRegionString: invalid range string %v", rangeStr)
		return
	}
	result.Start = PosType(start1 - 1)
	result.End = PosType(end0)
	return
}
