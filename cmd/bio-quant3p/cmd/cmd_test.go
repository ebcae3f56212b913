package cmd

import (
	"bytes"
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/grailbio/quant3p/fixmm"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"v.io/x/lib/cmdline"
)

const testGTF = `chr1	test	exon	101	200	.	+	.	gene_id "G1"; transcript_id "T1";
`

func writeGTF(t *testing.T, dir string) string {
	path := filepath.Join(dir, "a.gtf")
	assert.NoError(t, ioutil.WriteFile(path, []byte(testGTF), 0644))
	return path
}

func TestPrintSteps(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	opts := fixmm.DefaultOpts
	opts.Annotation = writeGTF(t, tmpdir)
	opts.Transcript.Extension.ThreePrime = 50

	var buf bytes.Buffer
	assert.NoError(t, printSteps(context.Background(), &buf, opts, []string{"chr1:51-300:+", "chr1:51-60:-"}))
	expect.EQ(t, buf.String(),
		"chr1:51-300:+\tchr1\t51\t100\t+\t0\n"+
			"chr1:51-300:+\tchr1\t101\t250\t+\t1\n"+
			"chr1:51-300:+\tchr1\t251\t300\t+\t0\n"+
			"chr1:51-60:-\tchr1\t51\t60\t-\t0\n")

	expect.NotNil(t, printSteps(context.Background(), &buf, opts, []string{":1-2"}))
}

func TestFixMMRequiresOutput(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	var stdout, stderr bytes.Buffer
	env := &cmdline.Env{Stdout: &stdout, Stderr: &stderr}
	err := cmdline.ParseAndRun(newCmdFixMM(), env,
		[]string{"-annotation", writeGTF(t, tmpdir), filepath.Join(tmpdir, "missing.bam")})
	assert.NotNil(t, err)
	assert.HasSubstr(t, err.Error(), "-stats-only")
}
