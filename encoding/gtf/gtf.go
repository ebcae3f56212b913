// Package gtf reads and writes GTF (GFF version 2) annotation files.
//
// Coordinates are converted to 0-based half-open intervals on input and back
// to 1-based closed intervals on output.  Attribute order and quoting are
// preserved so that a feature round-trips unchanged.
package gtf

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/quant3p/interval"
)

// Attribute is one "key value;" pair of the attribute column.
type Attribute struct {
	Key   string
	Value string
	// Quoted is true if the value was (or should be) written in double quotes.
	Quoted bool
}

// Attributes is the ordered attribute column of a feature.
type Attributes []Attribute

// Get returns the value of the first attribute named key.
func (a Attributes) Get(key string) (string, bool) {
	for _, attr := range a {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}

// String formats the attributes as a GTF attribute column.
func (a Attributes) String() string {
	var b strings.Builder
	for i, attr := range a {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(attr.Key)
		b.WriteByte(' ')
		if attr.Quoted {
			b.WriteByte('"')
			b.WriteString(attr.Value)
			b.WriteByte('"')
		} else {
			b.WriteString(attr.Value)
		}
		b.WriteByte(';')
	}
	return b.String()
}

// splitFields splits s at semicolons outside double quotes.
func splitFields(s string) []string {
	var (
		fields []string
		quoted bool
		start  int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			quoted = !quoted
		case ';':
			if !quoted {
				fields = append(fields, s[start:i])
				start = i + 1
			}
		}
	}
	return append(fields, s[start:])
}

// ParseAttributes parses a GTF attribute column such as
//   gene_id "G1"; transcript_id "T1"; exon_number 2;
func ParseAttributes(s string) (Attributes, error) {
	var attrs Attributes
	for _, field := range splitFields(s) {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		sep := strings.IndexAny(field, " \t")
		if sep <= 0 {
			return nil, fmt.Errorf("gtf.ParseAttributes: malformed attribute %q", field)
		}
		attr := Attribute{Key: field[:sep], Value: strings.TrimSpace(field[sep+1:])}
		if n := len(attr.Value); n >= 2 && attr.Value[0] == '"' && attr.Value[n-1] == '"' {
			attr.Value = attr.Value[1 : n-1]
			attr.Quoted = true
		}
		attrs = append(attrs, attr)
	}
	return attrs, nil
}

// Feature is one GTF record.
type Feature struct {
	Chrom  string
	Source string
	Type   string
	// Start and End are 0-based, half-open.
	Start  interval.PosType
	End    interval.PosType
	Score  string
	Strand interval.Strand
	Frame  string
	Attrs  Attributes
}

// Interval returns the genomic interval covered by the feature.
func (f *Feature) Interval() interval.Interval {
	return interval.Interval{Chrom: f.Chrom, Start: f.Start, End: f.End, Strand: f.Strand}
}

// row is the raw tab-separated form of a GTF line.
type row struct {
	Chrom      string
	Source     string
	Type       string
	Start      int
	End        int
	Score      string
	Strand     string
	Frame      string
	Attributes string
}

var errEOF = errors.New("eof")

// Scanner reads features from a GTF stream.  Lines starting with '#' are
// skipped.  Scanners are not threadsafe.
type Scanner struct {
	r     *tsv.Reader
	name  string
	nRead int
	err   error
}

// NewScanner creates a Scanner reading from r.  Name is used in error
// messages.
func NewScanner(r io.Reader, name string) *Scanner {
	tr := tsv.NewReader(bufio.NewReaderSize(r, 64<<10))
	tr.Comment = '#'
	tr.LazyQuotes = true
	return &Scanner{r: tr, name: name}
}

// Scan reads the next feature into f.  Once Scan returns false, it never
// returns true again; Err tells whether the end of the stream was reached.
func (s *Scanner) Scan(f *Feature) bool {
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
	if err := s.convert(&line, f); err != nil {
		s.err = errors.E(err, fmt.Sprintf("%s: record %d", s.name, s.nRead))
		return false
	}
	return true
}

func (s *Scanner) convert(line *row, f *Feature) (err error) {
	if line.Start < 1 || line.End < line.Start-1 || line.End >= interval.PosTypeMax {
		return fmt.Errorf("invalid coordinates %d-%d", line.Start, line.End)
	}
	*f = Feature{
		Chrom:  line.Chrom,
		Source: line.Source,
		Type:   line.Type,
		Start:  interval.PosType(line.Start - 1),
		End:    interval.PosType(line.End),
		Score:  line.Score,
		Frame:  line.Frame,
	}
	if f.Strand, err = interval.ParseStrand(line.Strand); err != nil {
		return err
	}
	f.Attrs, err = ParseAttributes(line.Attributes)
	return err
}

// Err returns the first error encountered, or nil at the end of the stream.
func (s *Scanner) Err() error {
	if s.err == errEOF {
		return nil
	}
	return s.err
}

// ReadFile calls fn for every feature of the (optionally compressed) GTF
// file at path, in file order.  It stops at the first error returned by fn.
// The feature passed to fn is freshly allocated and may be retained.
func ReadFile(ctx context.Context, path string, fn func(f *Feature) error) (err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return errors.E(err, "open annotation", path)
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
	for {
		f := &Feature{}
		if !sc.Scan(f) {
			break
		}
		if err = fn(f); err != nil {
			return err
		}
	}
	return sc.Err()
}

// Writer writes features in GTF format.
type Writer struct {
	w *tsv.Writer
}

// NewWriter creates a Writer.  Flush must be called after the last Write.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: tsv.NewWriter(w)}
}

func orDot(s string) string {
	if s == "" {
		return "."
	}
	return s
}

// Write appends one feature.
func (w *Writer) Write(f *Feature) error {
	w.w.WriteString(f.Chrom)
	w.w.WriteString(orDot(f.Source))
	w.w.WriteString(f.Type)
	w.w.WriteUint32(uint32(f.Start + 1))
	w.w.WriteUint32(uint32(f.End))
	w.w.WriteString(orDot(f.Score))
	w.w.WriteString(f.Strand.String())
	w.w.WriteString(orDot(f.Frame))
	w.w.WriteString(f.Attrs.String())
	return w.w.EndLine()
}

// Flush flushes buffered output.
func (w *Writer) Flush() error {
	return w.w.Flush()
}
