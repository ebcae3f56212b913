// Package narrowpeak reads MACS2 ".narrowPeak" files.
package narrowpeak

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/quant3p/interval"
)

// Peak is one narrowPeak record.  Start and End are 0-based, half-open.
type Peak struct {
	Chrom          string
	Start          interval.PosType
	End            interval.PosType
	Name           string
	Score          string
	Strand         interval.Strand
	FoldEnrichment float64
	PValue         float64
	QValue         float64
	Summit         int
}

// Label returns the interval/name pair identifying the peak.
func (p *Peak) Label() interval.Label {
	return interval.Label{
		Interval: interval.Interval{Chrom: p.Chrom, Start: p.Start, End: p.End, Strand: p.Strand},
		Name:     p.Name,
	}
}

type row struct {
	Chrom          string
	Start          int
	End            int
	Name           string
	Score          string
	Strand         string
	FoldEnrichment float64
	PValue         float64
	QValue         float64
	Summit         int
}

var errEOF = errors.New("eof")

// Scanner reads peaks from a narrowPeak stream.
type Scanner struct {
	r     *tsv.Reader
	name  string
	nRead int
	err   error
}

// NewScanner creates a Scanner reading from r.  Name is used in error
// messages.
func NewScanner(r io.Reader, name string) *Scanner {
	tr := tsv.NewReader(bufio.NewReader(r))
	tr.Comment = '#'
	return &Scanner{r: tr, name: name}
}

// Scan reads the next peak into p.  Once Scan returns false, it never
// returns true again; Err tells whether the end of the stream was reached.
func (s *Scanner) Scan(p *Peak) bool {
	if s.err != nil {
		return false
	}
	var line row
	if err := s.r.Read(&line); err != nil {
		if err == io.EOF {
			s.err = errEOF
		} else {
			s.err = errors.E(err, fmt.Sprintf("%s: record %d", s.name, s.nRead+1))
		}
		return false
	}
	s.nRead++
	if line.Start < 0 || line.End < line.Start || line.End >= interval.PosTypeMax {
		s.err = fmt.Errorf("%s: record %d: invalid coordinates %d-%d", s.name, s.nRead, line.Start, line.End)
		return false
	}
	strand, err := interval.ParseStrand(line.Strand)
	if err != nil {
		s.err = errors.E(err, fmt.Sprintf("%s: record %d", s.name, s.nRead))
		return false
	}
	*p = Peak{
		Chrom:          line.Chrom,
		Start:          interval.PosType(line.Start),
		End:            interval.PosType(line.End),
		Name:           line.Name,
		Score:          line.Score,
		Strand:         strand,
		FoldEnrichment: line.FoldEnrichment,
		PValue:         line.PValue,
		QValue:         line.QValue,
		Summit:         line.Summit,
	}
	return true
}

// Err returns the first error encountered, or nil at the end of the stream.
func (s *Scanner) Err() error {
	if s.err == errEOF {
		return nil
	}
	return s.err
}

// ReadFile returns all peaks of the (optionally compressed) file at path.
func ReadFile(ctx context.Context, path string) (peaks []Peak, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(err, "open peaks", path)
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	var r io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(r, in.Name()); u != nil {
		r = u
	}
	sc := NewScanner(r, path)
	var p Peak
	for sc.Scan(&p) {
		peaks = append(peaks, p)
	}
	return peaks, sc.Err()
}
