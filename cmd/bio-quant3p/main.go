// bio-quant3p prepares 3' RNA-seq alignments and annotations for
// quantification.
//
// Usage:
//
//   bio-quant3p fix-mm -annotation genes.gtf -out fixed.bam input.bam
//   bio-quant3p gtf-extend -annotation genes.gtf -peaks peaks.narrowPeak -out extended.gtf
//   bio-quant3p steps -annotation genes.gtf chr1:1000-2000:+
package main

import (
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/file/s3file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/quant3p/cmd/bio-quant3p/cmd"
)

func main() {
	shutdown := grail.Init()
	defer shutdown()
	file.RegisterImplementation("s3", func() file.Implementation {
		return s3file.NewImplementation(s3file.NewDefaultProvider(session.Options{}), s3file.Options{})
	})
	cmd.Run()
}
