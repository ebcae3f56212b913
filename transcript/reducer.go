// Package transcript selects, per transcript, the most downstream exon of an
// annotation and applies strand-aware extension to it.
package transcript

import (
	"fmt"

	"github.com/grailbio/quant3p/encoding/gtf"
	"github.com/grailbio/quant3p/interval"
)

// Exon is an exon of one transcript.  It is never modified once created.
type Exon struct {
	interval.Interval
	TranscriptID string
	// Attrs is the attribute column of the originating feature.
	Attrs gtf.Attributes
}

// Key identifies the downstream-most-exon slot of one transcript.
type Key struct {
	TranscriptID string
	Chrom        string
	Strand       interval.Strand
}

// Key returns the slot key of the exon.
func (e *Exon) Key() Key {
	return Key{e.TranscriptID, e.Chrom, e.Strand}
}

// NewExon creates an Exon from a GTF feature.  It fails if the feature has
// no transcript_id attribute.
func NewExon(f *gtf.Feature) (*Exon, error) {
	id, ok := f.Attrs.Get("transcript_id")
	if !ok {
		return nil, fmt.Errorf("transcript.NewExon: %s feature at %v has no transcript_id", f.Type, f.Interval())
	}
	return &Exon{Interval: f.Interval(), TranscriptID: id, Attrs: f.Attrs}, nil
}

// IsUpstream reports whether e1 lies upstream of e2 on their strand.  On the
// forward strand that means e1 ends before e2; otherwise (reverse or
// unstranded) e1 starts after e2.
//
// REQUIRES: e1 and e2 belong to the same transcript, chromosome and strand.
func IsUpstream(e1, e2 *Exon) bool {
	if e1.Key() != e2.Key() {
		panic(fmt.Sprintf("transcript.IsUpstream: incomparable exons %v (%s) and %v (%s)",
			e1.Interval, e1.TranscriptID, e2.Interval, e2.TranscriptID))
	}
	if e1.Strand == interval.Forward {
		return e1.End < e2.End
	}
	return e1.Start > e2.Start
}

// Extension describes how far exon ends are pushed out, relative to the
// direction of transcription.
type Extension struct {
	FivePrime  int
	ThreePrime int
}

// Apply returns iv extended by the given lengths and clamped at zero.  The
// boolean result is false if the extended interval is empty, in which case
// it must be dropped.  Unstranded intervals are only clamped.
func (x Extension) Apply(iv interval.Interval) (interval.Interval, bool) {
	start, end := int(iv.Start), int(iv.End)
	switch iv.Strand {
	case interval.Forward:
		end += x.ThreePrime
		start -= x.FivePrime
	case interval.Reverse:
		end += x.FivePrime
		start -= x.ThreePrime
	}
	if start < 0 {
		start = 0
	}
	if end > interval.PosTypeMax {
		end = interval.PosTypeMax
	}
	iv.Start = interval.PosType(start)
	iv.End = interval.PosType(end)
	return iv, end > start
}

// Opts configures a Reducer.
type Opts struct {
	// ExtendAll extends every exon instead of only the last exon of each
	// transcript.
	ExtendAll bool
	// Extension is applied to the extended exons.
	Extension Extension
}

// Reducer consumes exons in any order and sends exonic intervals to a sink.
//
// With ExtendAll, every exon is extended and sunk as soon as it is added.
// Otherwise the reducer keeps one slot per Key holding the most downstream
// exon seen so far.  An incoming exon replaces the slot's exon unless it is
// strictly upstream of it, so on ties the newest exon wins.  Whichever exon
// loses the comparison is sunk unextended, and Finish sinks the extended
// slot contents.  Intervals of non-positive length are never sunk.
type Reducer struct {
	opts  Opts
	sink  func(iv interval.Interval)
	keys  []Key
	slots map[Key]*Exon
}

// NewReducer creates a reducer.  Sink may be nil.
func NewReducer(opts Opts, sink func(iv interval.Interval)) *Reducer {
	if sink == nil {
		sink = func(interval.Interval) {}
	}
	return &Reducer{opts: opts, sink: sink, slots: make(map[Key]*Exon)}
}

func (r *Reducer) emit(iv interval.Interval, extend bool) {
	if extend {
		var ok bool
		if iv, ok = r.opts.Extension.Apply(iv); !ok {
			return
		}
	}
	if iv.Len() > 0 {
		r.sink(iv)
	}
}

// Add processes one exon.
func (r *Reducer) Add(e *Exon) {
	if r.opts.ExtendAll {
		r.emit(e.Interval, true)
		return
	}
	key := e.Key()
	old, ok := r.slots[key]
	if !ok {
		r.keys = append(r.keys, key)
		r.slots[key] = e
		return
	}
	if IsUpstream(e, old) {
		r.emit(e.Interval, false)
		return
	}
	r.slots[key] = e
	r.emit(old.Interval, false)
}

// Finish sinks the extended last exon of every transcript, in the order the
// transcripts were first seen.  It is a no-op with ExtendAll.
func (r *Reducer) Finish() {
	for _, key := range r.keys {
		r.emit(r.slots[key].Interval, true)
	}
}

// LastExons returns the current most downstream exon of every transcript,
// in the order the transcripts were first seen.
func (r *Reducer) LastExons() []*Exon {
	exons := make([]*Exon, len(r.keys))
	for i, key := range r.keys {
		exons[i] = r.slots[key]
	}
	return exons
}
