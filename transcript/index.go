package transcript

import (
	"context"

	"github.com/grailbio/base/log"
	"github.com/grailbio/quant3p/encoding/gtf"
	"github.com/grailbio/quant3p/interval"
)

// ExonFeature is the GTF feature type that takes part in the reduction.
const ExonFeature = "exon"

// IndexBuilder populates a boolean coverage index with the exonic intervals
// produced by a Reducer.
type IndexBuilder struct {
	Index   *interval.Index
	reducer *Reducer
	nExons  int
}

// NewIndexBuilder creates an IndexBuilder with an empty index.
func NewIndexBuilder(opts Opts) *IndexBuilder {
	b := &IndexBuilder{Index: interval.NewIndex(interval.Boolean)}
	b.reducer = NewReducer(opts, b.Index.Insert)
	return b
}

// AddFeature feeds one annotation feature.  Non-exon features are ignored.
func (b *IndexBuilder) AddFeature(f *gtf.Feature) error {
	if f.Type != ExonFeature {
		return nil
	}
	e, err := NewExon(f)
	if err != nil {
		return err
	}
	b.nExons++
	b.reducer.Add(e)
	return nil
}

// Finish inserts the extended last exons and returns the index.  The builder
// must not be used afterwards.
func (b *IndexBuilder) Finish() *interval.Index {
	b.reducer.Finish()
	log.Printf("Indexed %d exons of %d transcripts into %d segments",
		b.nExons, len(b.reducer.keys), b.Index.NumSegments())
	return b.Index
}

// BuildExonIndex reads the GTF file at path and returns the index of its
// (extended) exonic regions.
func BuildExonIndex(ctx context.Context, path string, opts Opts) (*interval.Index, error) {
	b := NewIndexBuilder(opts)
	if err := gtf.ReadFile(ctx, path, b.AddFeature); err != nil {
		return nil, err
	}
	return b.Finish(), nil
}
