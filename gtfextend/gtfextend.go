// Package gtfextend adds exons to an annotation for peaks (typically MACS2
// narrowPeak calls on 3' RNA-seq data) that lie just downstream of a
// transcript's last exon.
//
// Every input feature is copied to the output.  For each transcript, the
// probe region of ThreePrime bases past the 3' end of its last exon is
// looked up in the peak index; every peak there that does not touch the span
// of any annotated transcript becomes a new exon of the transcript.
package gtfextend

import (
	"context"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/quant3p/encoding/gtf"
	"github.com/grailbio/quant3p/encoding/narrowpeak"
	"github.com/grailbio/quant3p/interval"
	"github.com/grailbio/quant3p/transcript"
	"github.com/grailbio/quant3p/util"
)

// Opts configures gtf-extend.
type Opts struct {
	// Annotation is the input GTF.
	Annotation string
	// Peaks is the narrowPeak file.
	Peaks string
	// Output receives the input features followed by the added exons.
	Output string
	// ExtensionsOut, if nonempty, receives only the added exons.
	ExtensionsOut string
	// ThreePrime is the length of the probe region past the last exon.
	ThreePrime int
	// Source is the GTF source column of added exons.
	Source string
}

// DefaultOpts are the defaults of the gtf-extend command.
var DefaultOpts = Opts{
	ThreePrime: 5000,
	Source:     "extension",
}

// Validate checks that all required paths are set.
func (opts *Opts) Validate() error {
	switch {
	case opts.Annotation == "":
		return errors.New("-annotation is required")
	case opts.Peaks == "":
		return errors.New("-peaks is required")
	case opts.Output == "":
		return errors.New("-out is required")
	}
	return nil
}

// Stats summarizes a run.
type Stats struct {
	// Intragenic is the number of peaks touching a transcript span.
	Intragenic int
	// Added is the number of exons added.
	Added int
}

// Extender collects transcripts from an annotation stream and computes the
// exons to add.
type Extender struct {
	peaks      *interval.Index
	threePrime int
	source     string

	reducer *transcript.Reducer
	keys    []transcript.Key
	spans   map[transcript.Key]interval.Interval
	stats   Stats
}

// NewExtender creates an Extender over the given peaks.  Unstranded peaks
// are indexed on both strands.
func NewExtender(peaks []narrowpeak.Peak, threePrime int, source string) *Extender {
	idx := interval.NewIndex(interval.Labeled)
	for i := range peaks {
		l := peaks[i].Label()
		if l.Strand == interval.Unstranded {
			idx.InsertLabelOn(&l, interval.Forward)
			idx.InsertLabelOn(&l, interval.Reverse)
		} else {
			idx.InsertLabel(&l)
		}
	}
	return &Extender{
		peaks:      idx,
		threePrime: threePrime,
		source:     source,
		reducer:    transcript.NewReducer(transcript.Opts{}, nil),
		spans:      make(map[transcript.Key]interval.Interval),
	}
}

// AddFeature registers one annotation feature.  Only exons matter.
func (x *Extender) AddFeature(f *gtf.Feature) error {
	if f.Type != transcript.ExonFeature {
		return nil
	}
	e, err := transcript.NewExon(f)
	if err != nil {
		return err
	}
	x.reducer.Add(e)
	key := e.Key()
	if span, ok := x.spans[key]; ok {
		x.spans[key] = span.Hull(e.Interval)
	} else {
		x.keys = append(x.keys, key)
		x.spans[key] = e.Interval
	}
	return nil
}

// Probe returns the region searched for peaks downstream of e, and false if
// there is none: unstranded exons are never extended.
func Probe(e *transcript.Exon, threePrime int) (interval.Interval, bool) {
	iv := e.Interval
	switch iv.Strand {
	case interval.Forward:
		end := int(iv.End) + threePrime
		if end > interval.PosTypeMax {
			end = interval.PosTypeMax
		}
		iv.Start, iv.End = iv.End, interval.PosType(end)
	case interval.Reverse:
		start := int(iv.Start) - threePrime
		if start < 0 {
			start = 0
		}
		iv.Start, iv.End = interval.PosType(start), iv.Start
	default:
		return iv, false
	}
	return iv, iv.Len() > 0
}

// Intragenic returns the peaks touching the span of any transcript seen so
// far.
func (x *Extender) Intragenic() interval.LabelSet {
	set := interval.LabelSet{}
	for _, key := range x.keys {
		set.Union(x.peaks.LabelsIn(x.spans[key]))
	}
	return set
}

// Extensions returns the exons to add, grouped by transcript in first-seen
// order, and sorted by peak within a transcript.  An added exon spans its
// peak but takes the chromosome and strand of its transcript, so unstranded
// peaks yield stranded exons.  It must be called after the last AddFeature.
func (x *Extender) Extensions() []*gtf.Feature {
	intragenic := x.Intragenic()
	x.stats.Intragenic = len(intragenic)
	var features []*gtf.Feature
	for _, e := range x.reducer.LastExons() {
		probe, ok := Probe(e, x.threePrime)
		if !ok {
			continue
		}
		for _, peak := range x.peaks.LabelsIn(probe).Difference(intragenic).Sorted() {
			features = append(features, &gtf.Feature{
				Chrom:  e.Chrom,
				Source: x.source,
				Type:   transcript.ExonFeature,
				Start:  peak.Start,
				End:    peak.End,
				Strand: e.Strand,
				Attrs:  e.Attrs,
			})
		}
	}
	x.stats.Added = len(features)
	return features
}

// Stats returns the counters of the last Extensions call.
func (x *Extender) Stats() Stats { return x.stats }

type output struct {
	out *util.Output
	w   *gtf.Writer
}

func createOutput(ctx context.Context, path string) (*output, error) {
	out, err := util.CreateOutput(ctx, path)
	if err != nil {
		return nil, err
	}
	return &output{out: out, w: gtf.NewWriter(out.Writer())}, nil
}

func (o *output) close() error {
	var e errors.Once
	e.Set(o.w.Flush())
	e.Set(o.out.Close())
	return e.Err()
}

// Run executes the gtf-extend job described by opts.
func Run(ctx context.Context, opts Opts) (stats Stats, err error) {
	if err = opts.Validate(); err != nil {
		return
	}
	log.Printf("Loading peaks from %s...", opts.Peaks)
	peaks, err := narrowpeak.ReadFile(ctx, opts.Peaks)
	if err != nil {
		return
	}
	x := NewExtender(peaks, opts.ThreePrime, opts.Source)

	var closeErr errors.Once
	defer func() {
		if err == nil {
			err = closeErr.Err()
		}
	}()
	out, err := createOutput(ctx, opts.Output)
	if err != nil {
		return
	}
	defer func() { closeErr.Set(out.close()) }()
	var side *output
	if opts.ExtensionsOut != "" {
		if side, err = createOutput(ctx, opts.ExtensionsOut); err != nil {
			return
		}
		defer func() { closeErr.Set(side.close()) }()
	}

	log.Printf("Reading annotation %s...", opts.Annotation)
	err = gtf.ReadFile(ctx, opts.Annotation, func(f *gtf.Feature) error {
		if err := x.AddFeature(f); err != nil {
			return err
		}
		return out.w.Write(f)
	})
	if err != nil {
		return
	}
	for _, f := range x.Extensions() {
		if err = out.w.Write(f); err != nil {
			return
		}
		if side != nil {
			if err = side.w.Write(f); err != nil {
				return
			}
		}
	}
	stats = x.Stats()
	log.Printf("Number of intragenic peaks: %d", stats.Intragenic)
	log.Printf("Exons added: %d", stats.Added)
	return
}
