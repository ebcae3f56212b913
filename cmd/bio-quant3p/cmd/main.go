// Package cmd implements the subcommands of bio-quant3p.
package cmd

import (
	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/quant3p/encoding/bam"
	"github.com/grailbio/quant3p/fixmm"
	"github.com/grailbio/quant3p/gtfextend"
	"v.io/x/lib/cmdline"
)

// addTranscriptFlags registers the exon extension flags shared by fix-mm and
// steps.
func addTranscriptFlags(cmd *cmdline.Command, opts *fixmm.Opts) {
	cmd.Flags.StringVar(&opts.Annotation, "annotation", "", "GTF file with the genome annotation (required)")
	cmd.Flags.IntVar(&opts.Transcript.Extension.ThreePrime, "ext-3p", opts.Transcript.Extension.ThreePrime,
		"How far to extend the 3' end of exons")
	cmd.Flags.IntVar(&opts.Transcript.Extension.FivePrime, "ext-5p", opts.Transcript.Extension.FivePrime,
		"How far to extend the 5' end of exons")
	cmd.Flags.BoolVar(&opts.Transcript.ExtendAll, "all-exons", false,
		"Extend all exons of a transcript, not just the last one")
}

func newCmdFixMM() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "fix-mm",
		Short: "Fix NH/HI tags of multimappers with a single exonic alignment",
		Long: `
fix-mm finds multi-mapped reads (NH > 1) that have exactly one alignment
overlapping an exon of the annotation, on the same strand, and rewrites all
records of such reads with NH:i:1 and HI:i:1.  Exons are extended by -ext-3p
bases downstream and -ext-5p bases upstream; by default only the last exon of
each transcript is extended.  Input and output are BAM, or SAM if the path
ends in ".sam".`,
		ArgsName: "input.bam",
	}
	opts := fixmm.DefaultOpts
	addTranscriptFlags(cmd, &opts)
	cmd.Flags.BoolVar(&opts.StatsOnly, "stats-only", false, "Only print multimapper statistics, do not write -out")
	cmd.Flags.StringVar(&opts.CountsOut, "counts-out", "", "File to write the exonic alignment count of every multimapper to")
	cmd.Flags.StringVar(&opts.Output, "out", "", "File to write the fixed alignments to")
	cmd.Flags.IntVar(&opts.NewMapQ, "aqual", opts.NewMapQ,
		"Mapping quality of fixed alignments. Negative values keep the original quality")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return env.UsageErrorf("fix-mm takes one input path, but got %v", argv)
		}
		if opts.Annotation == "" {
			return env.UsageErrorf("-annotation is required")
		}
		if err := opts.Validate(); err != nil {
			return err
		}
		_, err := fixmm.Run(vcontext.Background(), opts, bam.PathSource{Path: argv[0]})
		return err
	})
	return cmd
}

func newCmdGTFExtend() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "gtf-extend",
		Short: "Extend an annotation with peaks downstream of transcripts",
		Long: `
gtf-extend copies the annotation to -out and appends one exon per transcript
and peak for every narrowPeak peak found within -ext-3p bases downstream of the
transcript's last exon.  Peaks that overlap the span of any transcript are
never added.`,
	}
	opts := gtfextend.DefaultOpts
	cmd.Flags.StringVar(&opts.Annotation, "annotation", "", "GTF file with the genome annotation (required)")
	cmd.Flags.StringVar(&opts.Peaks, "peaks", "", ".narrowPeak file with MACS2 peaks (required)")
	cmd.Flags.StringVar(&opts.Output, "out", "", "File to write the extended annotation to (required)")
	cmd.Flags.StringVar(&opts.ExtensionsOut, "extns-out", "", "File to write only the added exons to")
	cmd.Flags.IntVar(&opts.ThreePrime, "ext-3p", opts.ThreePrime, "How far downstream of a transcript to look for peaks")
	cmd.Flags.StringVar(&opts.Source, "source", opts.Source, "Value of the source column of added exons")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return env.UsageErrorf("gtf-extend takes no arguments, but got %v", argv)
		}
		if err := opts.Validate(); err != nil {
			return env.UsageErrorf("%v", err)
		}
		_, err := gtfextend.Run(vcontext.Background(), opts)
		return err
	})
	return cmd
}

func newCmdSteps() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "steps",
		Short:    "Show how regions intersect the extended exons of an annotation",
		ArgsName: "region...",
		ArgsLong: `Each region has the form chr:start-end[:strand], with 1-based, closed
coordinates as in samtools.  The strand is "+", "-" or "." (default).`,
	}
	opts := fixmm.DefaultOpts
	addTranscriptFlags(cmd, &opts)
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if opts.Annotation == "" {
			return env.UsageErrorf("-annotation is required")
		}
		return printSteps(vcontext.Background(), env.Stdout, opts, argv)
	})
	return cmd
}

// Run parses the command line and runs the selected subcommand.
func Run() {
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(
		&cmdline.Command{
			Name:     "bio-quant3p",
			Short:    "Tools for 3' RNA-seq quantification",
			LookPath: false,
			Children: []*cmdline.Command{
				newCmdFixMM(),
				newCmdGTFExtend(),
				newCmdSteps(),
			},
		})
}
