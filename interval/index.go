package interval

import (
	"fmt"

	"github.com/biogo/store/llrb"
)

// Mode selects the payload carried by an Index.
type Mode int

const (
	// Boolean indexes only record whether a position is covered.
	Boolean Mode = iota
	// Labeled indexes record, for every position, the set of labels
	// inserted over it.
	Labeled
)

// segment is a maximal run [start, end) stored in a bucket.  Segments in a
// bucket never overlap.  In a boolean bucket, touching segments are
// coalesced; in a labeled bucket, labels lists the distinct labels covering
// the run.
type segment struct {
	start, end PosType
	labels     []*Label
}

// Compare implements llrb.Comparable.  Segments are ordered by start.
func (s *segment) Compare(c llrb.Comparable) int {
	return int(s.start) - int(c.(*segment).start)
}

func (s *segment) addLabel(l *Label) {
	for _, x := range s.labels {
		if x == l || *x == *l {
			return
		}
	}
	s.labels = append(s.labels, l)
}

type bucketKey struct {
	chrom  string
	strand Strand
}

// Step is one element of the step decomposition of a query interval.
// Covered is false for gaps.  Labels is nil for gaps and for boolean indexes,
// and must not be modified by the caller.
type Step struct {
	Interval
	Covered bool
	Labels  []*Label
}

// Index is a stranded genomic coverage index.  Coverage is stored per
// (chromosome, strand) bucket as a tree of disjoint segments ordered by start
// position, so a query costs O(log(#segments) + #matched segments).
//
// An Index is populated once and then queried; it is not safe for concurrent
// mutation.
type Index struct {
	mode    Mode
	buckets map[bucketKey]*llrb.Tree
}

// NewIndex creates an empty index.
func NewIndex(mode Mode) *Index {
	return &Index{mode: mode, buckets: make(map[bucketKey]*llrb.Tree)}
}

// Mode returns the payload mode of the index.
func (idx *Index) Mode() Mode { return idx.mode }

// NumSegments returns the total number of stored segments.
func (idx *Index) NumSegments() int {
	n := 0
	for _, t := range idx.buckets {
		n += t.Len()
	}
	return n
}

func (idx *Index) bucket(iv Interval, create bool) *llrb.Tree {
	key := bucketKey{iv.Chrom, iv.Strand}
	t := idx.buckets[key]
	if t == nil && create {
		t = &llrb.Tree{}
		idx.buckets[key] = t
	}
	return t
}

func floorSegment(t *llrb.Tree, pos PosType) *segment {
	s, _ := t.Floor(&segment{start: pos}).(*segment)
	return s
}

// segmentsIn returns the segments whose start lies in [from, to).
func segmentsIn(t *llrb.Tree, from, to PosType) []*segment {
	var result []*segment
	if from >= to {
		return result
	}
	t.DoRange(func(c llrb.Comparable) bool {
		result = append(result, c.(*segment))
		return false
	}, &segment{start: from}, &segment{start: to})
	return result
}

// Insert marks iv as covered.  Inserting an already covered region changes
// nothing.  Empty intervals are ignored.
//
// REQUIRES: idx.Mode() == Boolean
func (idx *Index) Insert(iv Interval) {
	if idx.mode != Boolean {
		panic("interval.Index.Insert: index is not boolean")
	}
	if iv.Start < 0 || iv.End < iv.Start {
		panic(fmt.Sprintf("interval.Index.Insert: invalid interval %v", iv))
	}
	if iv.End == iv.Start {
		return
	}
	t := idx.bucket(iv, true)
	lo, hi := iv.Start, iv.End

	// Every segment touching [lo, hi] gets absorbed into one.
	var absorbed []*segment
	if s := floorSegment(t, lo); s != nil && s.start < lo && s.end >= lo {
		absorbed = append(absorbed, s)
	}
	// No segment can start at PosTypeMax, so the bound needs no increment there.
	upper := hi
	if upper < PosTypeMax {
		upper++
	}
	absorbed = append(absorbed, segmentsIn(t, lo, upper)...)
	for _, s := range absorbed {
		if s.start < lo {
			lo = s.start
		}
		if s.end > hi {
			hi = s.end
		}
		t.Delete(s)
	}
	t.Insert(&segment{start: lo, end: hi})
}

// split cuts the segment containing pos (if any) into [start, pos) and
// [pos, end).
func split(t *llrb.Tree, pos PosType) {
	s := floorSegment(t, pos)
	if s == nil || s.start == pos || s.end <= pos {
		return
	}
	right := &segment{start: pos, end: s.end, labels: append([]*Label(nil), s.labels...)}
	s.end = pos
	t.Insert(right)
}

// InsertLabel adds l to the label set of every position in l.Interval.
// Existing labels are kept.  The label is referenced, not copied.  Empty
// intervals are ignored.
//
// REQUIRES: idx.Mode() == Labeled
func (idx *Index) InsertLabel(l *Label) {
	idx.InsertLabelOn(l, l.Strand)
}

// InsertLabelOn is InsertLabel with l placed on the given strand instead of
// its own.  It is used to index unstranded labels on both strands.
func (idx *Index) InsertLabelOn(l *Label, strand Strand) {
	if idx.mode != Labeled {
		panic("interval.Index.InsertLabel: index is not labeled")
	}
	iv := l.Interval
	iv.Strand = strand
	if iv.Start < 0 || iv.End < iv.Start {
		panic(fmt.Sprintf("interval.Index.InsertLabel: invalid interval %v", iv))
	}
	if iv.End == iv.Start {
		return
	}
	t := idx.bucket(iv, true)
	split(t, iv.Start)
	split(t, iv.End)

	var created []*segment
	pos := iv.Start
	for _, s := range segmentsIn(t, iv.Start, iv.End) {
		if s.start > pos {
			created = append(created, &segment{start: pos, end: s.start, labels: []*Label{l}})
		}
		s.addLabel(l)
		pos = s.end
	}
	if pos < iv.End {
		created = append(created, &segment{start: pos, end: iv.End, labels: []*Label{l}})
	}
	for _, s := range created {
		t.Insert(s)
	}
}

// Steps returns the step decomposition of iv: a coordinate-ordered sequence
// of disjoint steps whose union is exactly iv.  Each step is either fully
// covered (with its labels, for a labeled index) or a gap.  Only segments on
// iv's chromosome and strand are considered.  An empty iv yields no steps.
func (idx *Index) Steps(iv Interval) []Step {
	if iv.End <= iv.Start {
		return nil
	}
	var steps []Step
	pos := iv.Start
	add := func(s *segment) {
		start, end := s.start, s.end
		if start < iv.Start {
			start = iv.Start
		}
		if end > iv.End {
			end = iv.End
		}
		if start > pos {
			steps = append(steps, Step{Interval: Interval{iv.Chrom, pos, start, iv.Strand}})
		}
		steps = append(steps, Step{
			Interval: Interval{iv.Chrom, start, end, iv.Strand},
			Covered:  true,
			Labels:   s.labels,
		})
		pos = end
	}
	if t := idx.bucket(iv, false); t != nil {
		if s := floorSegment(t, iv.Start); s != nil && s.start < iv.Start && s.end > iv.Start {
			add(s)
		}
		for _, s := range segmentsIn(t, iv.Start, iv.End) {
			add(s)
		}
	}
	if pos < iv.End {
		steps = append(steps, Step{Interval: Interval{iv.Chrom, pos, iv.End, iv.Strand}})
	}
	return steps
}

// Overlaps reports whether any position of iv is covered.
func (idx *Index) Overlaps(iv Interval) bool {
	for _, step := range idx.Steps(iv) {
		if step.Covered {
			return true
		}
	}
	return false
}

// LabelsIn returns the union of the labels of all steps of iv.
func (idx *Index) LabelsIn(iv Interval) LabelSet {
	set := LabelSet{}
	for _, step := range idx.Steps(iv) {
		for _, l := range step.Labels {
			set.Add(*l)
		}
	}
	return set
}
