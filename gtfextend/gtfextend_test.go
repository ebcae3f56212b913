package gtfextend

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/grailbio/quant3p/encoding/gtf"
	"github.com/grailbio/quant3p/encoding/narrowpeak"
	"github.com/grailbio/quant3p/interval"
	"github.com/grailbio/quant3p/transcript"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func peak(name string, start, end interval.PosType, strand interval.Strand) narrowpeak.Peak {
	return narrowpeak.Peak{Chrom: "chr1", Start: start, End: end, Name: name, Strand: strand}
}

func exonFeature(id string, start, end interval.PosType, strand interval.Strand) *gtf.Feature {
	return &gtf.Feature{
		Chrom: "chr1", Source: "test", Type: "exon", Start: start, End: end, Strand: strand,
		Attrs: gtf.Attributes{{Key: "gene_id", Value: "G" + id, Quoted: true}, {Key: "transcript_id", Value: id, Quoted: true}},
	}
}

type span struct {
	start, end interval.PosType
	strand     interval.Strand
	id         string
}

func spans(features []*gtf.Feature) []span {
	var s []span
	for _, f := range features {
		id, _ := f.Attrs.Get("transcript_id")
		s = append(s, span{f.Start, f.End, f.Strand, id})
	}
	return s
}

func TestExtendScenario(t *testing.T) {
	x := NewExtender([]narrowpeak.Peak{peak("p1", 230, 240, interval.Forward)}, 50, "extension")
	assert.NoError(t, x.AddFeature(exonFeature("T", 100, 200, interval.Forward)))
	exts := x.Extensions()
	assert.EQ(t, len(exts), 1)
	expect.EQ(t, exts[0].Interval(), interval.Interval{Chrom: "chr1", Start: 230, End: 240, Strand: interval.Forward})
	expect.EQ(t, exts[0].Source, "extension")
	expect.EQ(t, exts[0].Type, "exon")
	id, _ := exts[0].Attrs.Get("transcript_id")
	expect.EQ(t, id, "T")
	expect.EQ(t, x.Stats(), Stats{Intragenic: 0, Added: 1})
}

func TestExtendSkipsIntragenicPeaks(t *testing.T) {
	x := NewExtender([]narrowpeak.Peak{
		peak("inside", 520, 530, interval.Forward),
		peak("outside", 900, 950, interval.Forward),
		peak("minus", 50, 60, interval.Reverse),
		peak("far", 5000, 5100, interval.Forward),
	}, 1000, "ext")
	for _, f := range []*gtf.Feature{
		exonFeature("A", 100, 200, interval.Forward),
		// B's span [500, 600) contains "inside", which A's probe also reaches.
		exonFeature("B", 500, 550, interval.Forward),
		exonFeature("B", 580, 600, interval.Forward),
		exonFeature("C", 300, 400, interval.Reverse),
		{Chrom: "chr1", Type: "gene", Start: 0, End: 10000, Strand: interval.Forward},
	} {
		assert.NoError(t, x.AddFeature(f))
	}
	expect.EQ(t, spans(x.Extensions()), []span{
		{900, 950, interval.Forward, "A"},
		{900, 950, interval.Forward, "B"},
		{50, 60, interval.Reverse, "C"},
	})
	expect.EQ(t, x.Stats(), Stats{Intragenic: 1, Added: 3})
	expect.True(t, x.Intragenic().Contains(interval.Label{
		Interval: interval.Interval{Chrom: "chr1", Start: 520, End: 530, Strand: interval.Forward},
		Name:     "inside",
	}))
}

func TestUnstrandedPeaks(t *testing.T) {
	x := NewExtender([]narrowpeak.Peak{
		peak("u1", 210, 220, interval.Unstranded),
		peak("u2", 80, 90, interval.Unstranded),
	}, 50, "ext")
	assert.NoError(t, x.AddFeature(exonFeature("F", 100, 200, interval.Forward)))
	assert.NoError(t, x.AddFeature(exonFeature("R", 100, 200, interval.Reverse)))
	// Unstranded exons have no probe.
	assert.NoError(t, x.AddFeature(exonFeature("U", 100, 200, interval.Unstranded)))
	expect.EQ(t, spans(x.Extensions()), []span{
		{210, 220, interval.Forward, "F"},
		{80, 90, interval.Reverse, "R"},
	})
}

func TestProbe(t *testing.T) {
	e := &transcript.Exon{Interval: interval.Interval{Chrom: "chr1", Start: 100, End: 200, Strand: interval.Reverse}}
	probe, ok := Probe(e, 150)
	expect.True(t, ok)
	expect.EQ(t, probe, interval.Interval{Chrom: "chr1", Start: 0, End: 100, Strand: interval.Reverse})

	e.Start = 0
	_, ok = Probe(e, 150)
	expect.False(t, ok)

	e.Strand = interval.Forward
	probe, ok = Probe(e, 150)
	expect.True(t, ok)
	expect.EQ(t, probe, interval.Interval{Chrom: "chr1", Start: 200, End: 350, Strand: interval.Forward})

	_, ok = Probe(e, 0)
	expect.False(t, ok)
}

const (
	testGTF = `#!genome-build test
chr1	test	gene	101	200	.	+	.	gene_id "G1";
chr1	test	exon	101	200	.	+	.	gene_id "G1"; transcript_id "T1";
`
	testPeaks = "chr1\t229\t240\tpeak_1\t87\t+\t4.5\t10.2\t8.1\t5\n"
)

func TestRun(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	opts := DefaultOpts
	opts.Annotation = filepath.Join(tmpdir, "in.gtf")
	opts.Peaks = filepath.Join(tmpdir, "peaks.narrowPeak")
	opts.Output = filepath.Join(tmpdir, "out.gtf")
	opts.ExtensionsOut = filepath.Join(tmpdir, "extns.gtf")
	assert.NoError(t, ioutil.WriteFile(opts.Annotation, []byte(testGTF), 0644))
	assert.NoError(t, ioutil.WriteFile(opts.Peaks, []byte(testPeaks), 0644))

	stats, err := Run(context.Background(), opts)
	assert.NoError(t, err)
	expect.EQ(t, stats, Stats{Intragenic: 0, Added: 1})

	const added = "chr1\textension\texon\t230\t240\t.\t+\t.\tgene_id \"G1\"; transcript_id \"T1\";\n"
	data, err := ioutil.ReadFile(opts.Output)
	assert.NoError(t, err)
	expect.EQ(t, string(data),
		"chr1\ttest\tgene\t101\t200\t.\t+\t.\tgene_id \"G1\";\n"+
			"chr1\ttest\texon\t101\t200\t.\t+\t.\tgene_id \"G1\"; transcript_id \"T1\";\n"+
			added)
	data, err = ioutil.ReadFile(opts.ExtensionsOut)
	assert.NoError(t, err)
	expect.EQ(t, string(data), added)
}

func TestValidate(t *testing.T) {
	opts := DefaultOpts
	expect.NotNil(t, opts.Validate())
	opts.Annotation, opts.Peaks = "a.gtf", "p.narrowPeak"
	expect.NotNil(t, opts.Validate())
	opts.Output = "out.gtf"
	expect.NoError(t, opts.Validate())
}
