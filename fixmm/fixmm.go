// Package fixmm finds multi-mapped reads that have exactly one alignment in
// the (extended) exonic regions of an annotation and rewrites them as unique
// alignments.
//
// A read aligned to several loci of which only one is plausibly transcribed
// is resolved in two passes over the alignments.  The tally pass counts, for
// every multimapper (NH > 1), the alignments whose aligned blocks touch an
// exonic region.  Reads with a count of exactly one are fixable.  The rewrite
// pass copies every record in order; records of fixable reads get NH:i:1 and
// HI:i:1 in front of their other aux fields and a new mapping quality.
//
// Mates are counted separately: each record of a pair contributes to the
// tally of the shared read name.
package fixmm

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/hts/sam"
	"github.com/grailbio/quant3p/encoding/bam"
	"github.com/grailbio/quant3p/interval"
	"github.com/grailbio/quant3p/transcript"
	"github.com/grailbio/quant3p/util"
)

// Source is a stream of alignments that can be read from the start more
// than once.  bam.PathSource and bam.SliceSource implement it.
type Source interface {
	Open(ctx context.Context) (bam.RecordReader, error)
}

// Tally maps a read name to the number of its exonic multimapped records.
type Tally map[string]int

// Stats summarizes a run.
type Stats struct {
	// Total is the number of records read by the tally pass.
	Total int
	// Exonic is the number of multimapped reads with at least one exonic record.
	Exonic int
	// Fixable is the number of reads with exactly one exonic record.
	Fixable int
	// Rewritten is the number of records modified by the rewrite pass.
	Rewritten int
}

// Resolver decides which multimappers are fixable and rewrites them.
type Resolver struct {
	index   *interval.Index
	newMapQ int
	tally   Tally
	stats   Stats
}

// NewResolver creates a resolver querying the given boolean exon index.
// newMapQ < 0 keeps the mapping quality of fixed records.
func NewResolver(index *interval.Index, newMapQ int) *Resolver {
	return &Resolver{index: index, newMapQ: newMapQ, tally: Tally{}}
}

// IsMultimapper reports whether the record declares more than one reported
// alignment.  Records without an NH tag are not multimappers.
func IsMultimapper(r *sam.Record) (bool, error) {
	nh, ok, err := bam.AuxInt(r, bam.NHTag)
	if err != nil || !ok {
		return false, err
	}
	return nh > 1, nil
}

// isExonic reports whether any aligned block of r touches the index on the
// strand of r.
func (res *Resolver) isExonic(r *sam.Record) bool {
	for _, iv := range bam.Footprint(r) {
		if res.index.Overlaps(iv) {
			return true
		}
	}
	return false
}

// Observe counts one record in the tally.
func (res *Resolver) Observe(r *sam.Record) error {
	res.stats.Total++
	if bam.IsUnmapped(r) {
		return nil
	}
	mm, err := IsMultimapper(r)
	if err != nil || !mm {
		return err
	}
	if res.isExonic(r) {
		res.tally[r.Name]++
	}
	return nil
}

// TallyPass reads all records of src into the tally.
func (res *Resolver) TallyPass(ctx context.Context, src Source) (err error) {
	in, err := src.Open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if e := in.Close(); e != nil && err == nil {
			err = e
		}
	}()
	for {
		r, err := in.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.E(err, fmt.Sprintf("tally pass: record %d", res.stats.Total+1))
		}
		if err := res.Observe(r); err != nil {
			return err
		}
	}
	for _, n := range res.tally {
		if n == 1 {
			res.stats.Fixable++
		}
	}
	res.stats.Exonic = len(res.tally)
	return nil
}

// IsFixable reports whether the named read has exactly one exonic record.
func (res *Resolver) IsFixable(name string) bool {
	return res.tally[name] == 1
}

// Fix rewrites r if its read is fixable.  It reports whether r was modified.
func (res *Resolver) Fix(r *sam.Record) (bool, error) {
	if !res.IsFixable(r.Name) {
		return false, nil
	}
	if err := bam.PrependAux(r, []sam.Tag{bam.NHTag, bam.HITag}, []int{1, 1}); err != nil {
		return false, err
	}
	if res.newMapQ >= 0 {
		r.MapQ = byte(res.newMapQ)
	}
	res.stats.Rewritten++
	return true, nil
}

// Rewrite copies every record of in to w, in order, fixing the records of
// fixable reads.  It closes neither in nor w.
func (res *Resolver) Rewrite(in bam.RecordReader, w bam.RecordWriter) error {
	for n := 1; ; n++ {
		r, err := in.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.E(err, fmt.Sprintf("rewrite pass: record %d", n))
		}
		if _, err := res.Fix(r); err != nil {
			return err
		}
		if err := w.Write(r); err != nil {
			return errors.E(err, "write record", r.Name)
		}
	}
}

// Tally returns the per-read exonic counts collected so far.
func (res *Resolver) Tally() Tally { return res.tally }

// Stats returns the counters collected so far.
func (res *Resolver) Stats() Stats { return res.stats }

// WriteCounts writes the tally as "name\tcount" lines, sorted by name.
func WriteCounts(w io.Writer, tally Tally) error {
	names := make([]string, 0, len(tally))
	for name := range tally {
		names = append(names, name)
	}
	sort.Strings(names)
	out := tsv.NewWriter(w)
	for _, name := range names {
		out.WriteString(name)
		out.WriteUint32(uint32(tally[name]))
		if err := out.EndLine(); err != nil {
			return err
		}
	}
	return out.Flush()
}

func writeCountsFile(ctx context.Context, path string, tally Tally) error {
	out, err := util.CreateOutput(ctx, path)
	if err != nil {
		return err
	}
	var e errors.Once
	e.Set(WriteCounts(out.Writer(), tally))
	e.Set(out.Close())
	if err := e.Err(); err != nil {
		return errors.E(err, "write counts", path)
	}
	return nil
}

// Run executes the whole fix-mm job on src: it builds the exon index from
// opts.Annotation, tallies, writes the optional counts file, and unless
// opts.StatsOnly, writes the rewritten alignments to opts.Output.
func Run(ctx context.Context, opts Opts, src Source) (Stats, error) {
	if err := opts.Validate(); err != nil {
		return Stats{}, err
	}
	log.Printf("Reading annotation %s...", opts.Annotation)
	index, err := transcript.BuildExonIndex(ctx, opts.Annotation, opts.Transcript)
	if err != nil {
		return Stats{}, err
	}
	return Resolve(ctx, index, opts, src)
}

// Resolve is Run with a prebuilt exon index.
func Resolve(ctx context.Context, index *interval.Index, opts Opts, src Source) (Stats, error) {
	res := NewResolver(index, opts.NewMapQ)
	log.Printf("Finding exonic multimappers...")
	if err := res.TallyPass(ctx, src); err != nil {
		return res.Stats(), err
	}
	if opts.CountsOut != "" {
		if err := writeCountsFile(ctx, opts.CountsOut, res.Tally()); err != nil {
			return res.Stats(), err
		}
	}
	stats := res.Stats()
	log.Printf("Number of exonic multimappers: %d", stats.Exonic)
	log.Printf("Number of fixable multimappers: %d", stats.Fixable)
	if opts.StatsOnly {
		return stats, nil
	}

	in, err := src.Open(ctx)
	if err != nil {
		return stats, err
	}
	var e errors.Once
	w, err := bam.CreateWriter(ctx, opts.Output, in.Header())
	if err == nil {
		e.Set(res.Rewrite(in, w))
		e.Set(w.Close())
	}
	e.Set(err)
	e.Set(in.Close())
	stats = res.Stats()
	log.Debug.Printf("Rewrote %d of %d records", stats.Rewritten, stats.Total)
	return stats, e.Err()
}
