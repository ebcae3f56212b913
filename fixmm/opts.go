package fixmm

import (
	"github.com/grailbio/base/errors"
	"github.com/grailbio/quant3p/transcript"
)

// Opts configures the multimapper fixer.
type Opts struct {
	// Annotation is the GTF file whose exons define the exonic regions.
	Annotation string
	// Transcript controls which exons are extended, and how far.
	Transcript transcript.Opts
	// Output is the path of the rewritten BAM or SAM file.
	Output string
	// StatsOnly skips the rewrite pass.
	StatsOnly bool
	// CountsOut, if nonempty, receives the per-read exonic alignment counts.
	CountsOut string
	// NewMapQ is the mapping quality assigned to fixed records.  A negative
	// value keeps the original quality.
	NewMapQ int
}

// DefaultOpts are the defaults of the fix-mm command.
var DefaultOpts = Opts{
	Transcript: transcript.Opts{
		Extension: transcript.Extension{ThreePrime: 10000},
	},
	NewMapQ: 30,
}

// Validate checks that opts describes a runnable job.  It must be called
// before any input is read.
func (opts *Opts) Validate() error {
	if opts.Output == "" && !opts.StatsOnly {
		return errors.New("please either provide output file or -stats-only flag")
	}
	if opts.NewMapQ > 255 {
		return errors.E(errors.Invalid, "mapping quality must be at most 255")
	}
	return nil
}
