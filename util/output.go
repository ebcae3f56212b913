// Package util contains small helpers shared by the quant3p tools.
package util

import (
	"context"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/klauspost/compress/gzip"
)

// Output is a file being written through base/file.  Paths ending in ".gz"
// are gzip-compressed.
type Output struct {
	ctx context.Context
	f   file.File
	gz  *gzip.Writer
	w   io.Writer
}

// CreateOutput creates the file at path.  The caller must Close it.
func CreateOutput(ctx context.Context, path string) (*Output, error) {
	f, err := file.Create(ctx, path)
	if err != nil {
		return nil, errors.E(err, "create", path)
	}
	o := &Output{ctx: ctx, f: f, w: f.Writer(ctx)}
	if strings.HasSuffix(path, ".gz") {
		o.gz = gzip.NewWriter(o.w)
		o.w = o.gz
	}
	return o, nil
}

// Writer returns the (possibly compressing) writer for the file contents.
func (o *Output) Writer() io.Writer { return o.w }

// Name returns the path of the file.
func (o *Output) Name() string { return o.f.Name() }

// Close flushes the compressor, if any, and closes the file.
func (o *Output) Close() error {
	var e errors.Once
	if o.gz != nil {
		e.Set(o.gz.Close())
	}
	e.Set(o.f.Close(o.ctx))
	return e.Err()
}
