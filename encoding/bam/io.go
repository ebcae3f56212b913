package bam

import (
	"context"
	"io"
	"runtime"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	biogobam "github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
)

// RecordReader is the Header/Read interface of both sam.Reader and
// biogobam.Reader, plus Close.  Read returns io.EOF at the end of the stream.
type RecordReader interface {
	Header() *sam.Header
	Read() (*sam.Record, error)
	Close() error
}

// RecordWriter writes records after the header given at creation.
type RecordWriter interface {
	Write(r *sam.Record) error
	Close() error
}

// IsSAMPath reports whether path names a SAM (text) file.  Any other path is
// treated as BAM.
func IsSAMPath(path string) bool {
	return strings.HasSuffix(path, ".sam")
}

// PathSource is a re-openable alignment file.
type PathSource struct {
	Path string
}

// Open opens the file for reading from the first record.
func (s PathSource) Open(ctx context.Context) (RecordReader, error) {
	return OpenReader(ctx, s.Path)
}

type fileReader struct {
	ctx context.Context
	in  file.File
	sr  *sam.Reader
	br  *biogobam.Reader
}

// OpenReader opens a BAM or SAM file, depending on the suffix of path.
func OpenReader(ctx context.Context, path string) (RecordReader, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "open alignments", path)
	}
	r := &fileReader{ctx: ctx, in: in}
	if IsSAMPath(path) {
		r.sr, err = sam.NewReader(in.Reader(ctx))
	} else {
		r.br, err = biogobam.NewReader(in.Reader(ctx), runtime.NumCPU())
	}
	if err != nil {
		in.Close(ctx) // nolint: errcheck
		return nil, errors.E(err, "read header", path)
	}
	return r, nil
}

func (r *fileReader) Header() *sam.Header {
	if r.sr != nil {
		return r.sr.Header()
	}
	return r.br.Header()
}

func (r *fileReader) Read() (*sam.Record, error) {
	if r.sr != nil {
		return r.sr.Read()
	}
	return r.br.Read()
}

func (r *fileReader) Close() error {
	var e errors.Once
	if r.br != nil {
		e.Set(r.br.Close())
	}
	e.Set(r.in.Close(r.ctx))
	return e.Err()
}

type fileWriter struct {
	ctx context.Context
	out file.File
	sw  *sam.Writer
	bw  *biogobam.Writer
}

// CreateWriter creates a BAM or SAM file, depending on the suffix of path,
// and writes the header to it.
func CreateWriter(ctx context.Context, path string, header *sam.Header) (RecordWriter, error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return nil, errors.E(err, "create alignments", path)
	}
	w := &fileWriter{ctx: ctx, out: out}
	if IsSAMPath(path) {
		w.sw, err = sam.NewWriter(out.Writer(ctx), header, sam.FlagDecimal)
	} else {
		w.bw, err = biogobam.NewWriter(out.Writer(ctx), header, runtime.NumCPU())
	}
	if err != nil {
		out.Close(ctx) // nolint: errcheck
		return nil, errors.E(err, "write header", path)
	}
	return w, nil
}

// Write writes r.  A record with no base qualities gets 0xff ("*") for every
// base, which BAM requires.
func (w *fileWriter) Write(r *sam.Record) error {
	if w.sw != nil {
		return w.sw.Write(r)
	}
	if len(r.Qual) == 0 && r.Seq.Length > 0 {
		r.Qual = make([]byte, r.Seq.Length)
		for i := range r.Qual {
			r.Qual[i] = 0xff
		}
	}
	return w.bw.Write(r)
}

func (w *fileWriter) Close() error {
	var e errors.Once
	if w.bw != nil {
		e.Set(w.bw.Close())
	}
	e.Set(w.out.Close(w.ctx))
	return e.Err()
}

// SliceSource replays an in-memory list of records.  Every Open starts from
// the first record.
type SliceSource struct {
	Header  *sam.Header
	Records []*sam.Record
}

// Open implements the same contract as PathSource.Open.
func (s *SliceSource) Open(ctx context.Context) (RecordReader, error) {
	return &sliceReader{src: s}, nil
}

type sliceReader struct {
	src *SliceSource
	i   int
}

func (r *sliceReader) Header() *sam.Header { return r.src.Header }

func (r *sliceReader) Read() (*sam.Record, error) {
	if r.i >= len(r.src.Records) {
		return nil, io.EOF
	}
	rec := r.src.Records[r.i]
	r.i++
	return rec, nil
}

func (r *sliceReader) Close() error { return nil }

// SliceWriter collects written records in memory.
type SliceWriter struct {
	Records []*sam.Record
	Closed  bool
}

// Write appends r.
func (w *SliceWriter) Write(r *sam.Record) error {
	w.Records = append(w.Records, r)
	return nil
}

// Close marks the writer closed.
func (w *SliceWriter) Close() error {
	w.Closed = true
	return nil
}
