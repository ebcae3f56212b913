package cmd

import (
	"context"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/quant3p/fixmm"
	"github.com/grailbio/quant3p/interval"
	"github.com/grailbio/quant3p/transcript"
)

// printSteps writes the step decomposition of every region against the
// extended exon index of opts.Annotation, one step per line:
//
//   region  chrom  start  end  strand  covered
//
// with 1-based, closed coordinates.
func printSteps(ctx context.Context, w io.Writer, opts fixmm.Opts, regions []string) error {
	queries := make([]interval.Interval, len(regions))
	for i, region := range regions {
		var err error
		if queries[i], err = interval.ParseRegionString(region); err != nil {
			return errors.E(err, "region", region)
		}
	}
	index, err := transcript.BuildExonIndex(ctx, opts.Annotation, opts.Transcript)
	if err != nil {
		return err
	}
	out := tsv.NewWriter(w)
	for i, query := range queries {
		for _, step := range index.Steps(query) {
			out.WriteString(regions[i])
			out.WriteString(step.Chrom)
			out.WriteUint32(uint32(step.Start + 1))
			out.WriteUint32(uint32(step.End))
			out.WriteString(step.Strand.String())
			if step.Covered {
				out.WriteByte('1')
			} else {
				out.WriteByte('0')
			}
			if err := out.EndLine(); err != nil {
				return err
			}
		}
	}
	return out.Flush()
}
