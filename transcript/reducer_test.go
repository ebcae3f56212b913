package transcript

import (
	"context"
	"io/ioutil"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/grailbio/quant3p/encoding/gtf"
	"github.com/grailbio/quant3p/interval"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func exon(id, chrom string, start, end interval.PosType, strand interval.Strand) *Exon {
	return &Exon{
		Interval:     interval.Interval{Chrom: chrom, Start: start, End: end, Strand: strand},
		TranscriptID: id,
	}
}

func collect(opts Opts, exons []*Exon) (*Reducer, []interval.Interval) {
	var ivs []interval.Interval
	r := NewReducer(opts, func(iv interval.Interval) { ivs = append(ivs, iv) })
	for _, e := range exons {
		r.Add(e)
	}
	r.Finish()
	return r, ivs
}

func TestIsUpstream(t *testing.T) {
	a := exon("T", "chr1", 100, 200, interval.Forward)
	b := exon("T", "chr1", 300, 400, interval.Forward)
	expect.True(t, IsUpstream(a, b))
	expect.False(t, IsUpstream(b, a))
	expect.False(t, IsUpstream(a, a))

	c := exon("T", "chr1", 100, 200, interval.Reverse)
	d := exon("T", "chr1", 300, 400, interval.Reverse)
	expect.True(t, IsUpstream(d, c))
	expect.False(t, IsUpstream(c, d))

	for _, other := range []*Exon{
		exon("U", "chr1", 300, 400, interval.Forward),
		exon("T", "chr2", 300, 400, interval.Forward),
		exon("T", "chr1", 300, 400, interval.Reverse),
	} {
		func() {
			defer func() { expect.NotNil(t, recover(), "comparing %v", other) }()
			IsUpstream(a, other)
		}()
	}
}

func TestExtensionApply(t *testing.T) {
	x := Extension{FivePrime: 20, ThreePrime: 50}
	tests := []struct {
		in   interval.Interval
		want interval.Interval
		ok   bool
	}{
		{interval.Interval{Chrom: "chr1", Start: 100, End: 200, Strand: interval.Forward}, interval.Interval{Chrom: "chr1", Start: 80, End: 250, Strand: interval.Forward}, true},
		{interval.Interval{Chrom: "chr1", Start: 100, End: 200, Strand: interval.Reverse}, interval.Interval{Chrom: "chr1", Start: 50, End: 220, Strand: interval.Reverse}, true},
		{interval.Interval{Chrom: "chr1", Start: 10, End: 20, Strand: interval.Reverse}, interval.Interval{Chrom: "chr1", Start: 0, End: 40, Strand: interval.Reverse}, true},
		{interval.Interval{Chrom: "chr1", Start: 10, End: 20, Strand: interval.Unstranded}, interval.Interval{Chrom: "chr1", Start: 10, End: 20, Strand: interval.Unstranded}, true},
	}
	for _, tt := range tests {
		got, ok := x.Apply(tt.in)
		expect.EQ(t, got, tt.want)
		expect.EQ(t, ok, tt.ok)
	}

	// Negative extensions can shrink an interval to nothing.
	got, ok := Extension{ThreePrime: -150}.Apply(interval.Interval{Chrom: "chr1", Start: 100, End: 200, Strand: interval.Forward})
	expect.False(t, ok)
	expect.True(t, got.Start >= 0)
}

func TestExtensionNeverNegative(t *testing.T) {
	rnd := rand.New(rand.NewSource(0))
	for i := 0; i < 1000; i++ {
		start := interval.PosType(rnd.Intn(1000))
		iv := interval.Interval{Chrom: "chr1", Start: start, End: start + interval.PosType(rnd.Intn(100)), Strand: interval.Strand(rnd.Intn(3) - 1)}
		x := Extension{FivePrime: rnd.Intn(2000) - 500, ThreePrime: rnd.Intn(2000) - 500}
		got, ok := x.Apply(iv)
		expect.True(t, got.Start >= 0, "%v %v -> %v", iv, x, got)
		expect.EQ(t, ok, got.Len() > 0)
	}
}

func TestReducerLastExon(t *testing.T) {
	opts := Opts{Extension: Extension{ThreePrime: 50}}
	_, ivs := collect(opts, []*Exon{exon("T", "chr1", 100, 200, interval.Forward)})
	expect.EQ(t, ivs, []interval.Interval{{Chrom: "chr1", Start: 100, End: 250, Strand: interval.Forward}})

	// Non-terminal exons are kept unextended, the last one is extended.
	r, ivs := collect(opts, []*Exon{
		exon("T", "chr1", 300, 400, interval.Forward),
		exon("T", "chr1", 100, 200, interval.Forward),
		exon("T", "chr1", 500, 600, interval.Forward),
		exon("R", "chr1", 500, 600, interval.Reverse),
		exon("R", "chr1", 700, 800, interval.Reverse),
	})
	expect.EQ(t, ivs, []interval.Interval{
		{Chrom: "chr1", Start: 100, End: 200, Strand: interval.Forward},
		{Chrom: "chr1", Start: 300, End: 400, Strand: interval.Forward},
		{Chrom: "chr1", Start: 700, End: 800, Strand: interval.Reverse},
		{Chrom: "chr1", Start: 500, End: 650, Strand: interval.Forward},
		{Chrom: "chr1", Start: 450, End: 600, Strand: interval.Reverse},
	})
	last := r.LastExons()
	assert.EQ(t, len(last), 2)
	expect.EQ(t, last[0].Interval, interval.Interval{Chrom: "chr1", Start: 500, End: 600, Strand: interval.Forward})
	expect.EQ(t, last[1].Interval, interval.Interval{Chrom: "chr1", Start: 500, End: 600, Strand: interval.Reverse})
}

func TestReducerTieKeepsNewest(t *testing.T) {
	first := exon("T", "chr1", 100, 200, interval.Forward)
	second := exon("T", "chr1", 150, 200, interval.Forward)
	r, ivs := collect(Opts{}, []*Exon{first, second})
	expect.True(t, r.LastExons()[0] == second)
	expect.EQ(t, ivs, []interval.Interval{first.Interval, second.Interval})
}

func TestReducerOrderIndependent(t *testing.T) {
	exons := []*Exon{
		exon("T", "chr1", 100, 200, interval.Reverse),
		exon("T", "chr1", 300, 400, interval.Reverse),
		exon("T", "chr1", 50, 80, interval.Reverse),
		exon("T", "chr1", 900, 1000, interval.Reverse),
		exon("T", "chr1", 500, 600, interval.Reverse),
	}
	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		rnd.Shuffle(len(exons), func(i, j int) { exons[i], exons[j] = exons[j], exons[i] })
		r, _ := collect(Opts{}, exons)
		expect.EQ(t, r.LastExons()[0].Interval, interval.Interval{Chrom: "chr1", Start: 50, End: 80, Strand: interval.Reverse})
	}
}

func TestReducerExtendAll(t *testing.T) {
	r, ivs := collect(Opts{ExtendAll: true, Extension: Extension{FivePrime: 10, ThreePrime: 20}}, []*Exon{
		exon("T", "chr1", 100, 200, interval.Forward),
		exon("T", "chr1", 5, 50, interval.Reverse),
	})
	expect.EQ(t, ivs, []interval.Interval{
		{Chrom: "chr1", Start: 90, End: 220, Strand: interval.Forward},
		{Chrom: "chr1", Start: 0, End: 60, Strand: interval.Reverse},
	})
	expect.EQ(t, len(r.LastExons()), 0)
}

func TestReducerDropsEmpty(t *testing.T) {
	_, ivs := collect(Opts{Extension: Extension{ThreePrime: -100}}, []*Exon{
		exon("T", "chr1", 100, 150, interval.Forward),
		exon("U", "chr1", 100, 100, interval.Forward),
	})
	expect.EQ(t, len(ivs), 0)
}

const testGTF = `chr1	test	gene	101	200	.	+	.	gene_id "G1";
chr1	test	exon	101	200	.	+	.	gene_id "G1"; transcript_id "T1";
chr1	test	exon	1001	1100	.	-	.	gene_id "G2"; transcript_id "T2";
chr1	test	exon	2001	2100	.	-	.	gene_id "G2"; transcript_id "T2";
`

func TestBuildExonIndex(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(tmpdir, "a.gtf")
	assert.NoError(t, ioutil.WriteFile(path, []byte(testGTF), 0644))

	idx, err := BuildExonIndex(context.Background(), path, Opts{Extension: Extension{ThreePrime: 50}})
	assert.NoError(t, err)
	expect.True(t, idx.Overlaps(interval.Interval{Chrom: "chr1", Start: 240, End: 250, Strand: interval.Forward}))
	expect.False(t, idx.Overlaps(interval.Interval{Chrom: "chr1", Start: 250, End: 260, Strand: interval.Forward}))
	// T2's last exon is the 5'-most one on the reverse strand.
	expect.True(t, idx.Overlaps(interval.Interval{Chrom: "chr1", Start: 950, End: 960, Strand: interval.Reverse}))
	expect.False(t, idx.Overlaps(interval.Interval{Chrom: "chr1", Start: 940, End: 950, Strand: interval.Reverse}))
	expect.True(t, idx.Overlaps(interval.Interval{Chrom: "chr1", Start: 2000, End: 2010, Strand: interval.Reverse}))
	expect.False(t, idx.Overlaps(interval.Interval{Chrom: "chr1", Start: 1950, End: 2000, Strand: interval.Reverse}))
}

func TestBuildExonIndexMissingTranscriptID(t *testing.T) {
	b := NewIndexBuilder(Opts{})
	f := &gtf.Feature{Chrom: "chr1", Type: "exon", Start: 1, End: 2, Strand: interval.Forward}
	expect.NotNil(t, b.AddFeature(f))
	f.Type = "gene"
	expect.Nil(t, b.AddFeature(f))
}
