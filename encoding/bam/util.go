package bam

import (
	"fmt"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/quant3p/interval"
)

var (
	// NHTag holds the number of reported alignments of a read.
	NHTag = sam.Tag{'N', 'H'}
	// HITag holds the index of an alignment among the NH reported ones.
	HITag = sam.Tag{'H', 'I'}
)

// IsUnmapped returns true if the read is unmapped.
func IsUnmapped(record *sam.Record) bool { return record.Flags&sam.Unmapped != 0 }

// IsReverse returns true if the read is mapped to the reverse strand.
func IsReverse(record *sam.Record) bool { return record.Flags&sam.Reverse != 0 }

// Strand returns the strand the record is aligned to.
func Strand(record *sam.Record) interval.Strand {
	if IsReverse(record) {
		return interval.Reverse
	}
	return interval.Forward
}

// ClearAuxTags removes all aux fields whose tag is in tags.
func ClearAuxTags(r *sam.Record, tags []sam.Tag) {
	dst := r.AuxFields[:0]
	for _, aux := range r.AuxFields {
		keep := true
		for _, tag := range tags {
			if aux.Tag() == tag {
				keep = false
				break
			}
		}
		if keep {
			dst = append(dst, aux)
		}
	}
	r.AuxFields = dst
}

// AuxInt returns the value of the integer aux field with the given tag.  The
// boolean result is false if the field is absent.  It is an error if the
// field does not hold an integer.
func AuxInt(r *sam.Record, tag sam.Tag) (int, bool, error) {
	aux := r.AuxFields.Get(tag)
	if aux == nil {
		return 0, false, nil
	}
	switch v := aux.Value().(type) {
	case int8:
		return int(v), true, nil
	case uint8:
		return int(v), true, nil
	case int16:
		return int(v), true, nil
	case uint16:
		return int(v), true, nil
	case int32:
		return int(v), true, nil
	case uint32:
		return int(v), true, nil
	case int:
		return v, true, nil
	}
	return 0, true, fmt.Errorf("bam.AuxInt: %s: tag %s is not an integer: %v", r.Name, tag, aux)
}

// PrependAux inserts the integer aux fields tags[i]:i:values[i] in front of the
// record's existing aux fields.  Existing fields with the same tags are
// removed.
func PrependAux(r *sam.Record, tags []sam.Tag, values []int) error {
	ClearAuxTags(r, tags)
	fields := make(sam.AuxFields, 0, len(tags)+len(r.AuxFields))
	for i, tag := range tags {
		aux, err := sam.NewAux(tag, values[i])
		if err != nil {
			return fmt.Errorf("bam.PrependAux: %s: %v", r.Name, err)
		}
		fields = append(fields, aux)
	}
	r.AuxFields = append(fields, r.AuxFields...)
	return nil
}

// Footprint returns the reference intervals covered by the aligned bases of
// the record: the spans of its M, = and X CIGAR operations.  Deletions and
// skipped regions advance the reference position without contributing, so a
// spliced read yields one interval per block.  Adjacent blocks, e.g. around
// an insertion, are merged.  Unmapped records have no footprint.
func Footprint(r *sam.Record) []interval.Interval {
	if IsUnmapped(r) || r.Ref == nil {
		return nil
	}
	var (
		chrom  = r.Ref.Name()
		strand = Strand(r)
		pos    = r.Pos
		ivs    []interval.Interval
	)
	for _, op := range r.Cigar {
		n := op.Len()
		switch op.Type() {
		case sam.CigarMatch, sam.CigarEqual, sam.CigarMismatch:
			start, end := interval.PosType(pos), interval.PosType(pos+n)
			if len(ivs) > 0 && ivs[len(ivs)-1].End == start {
				ivs[len(ivs)-1].End = end
			} else {
				ivs = append(ivs, interval.Interval{Chrom: chrom, Start: start, End: end, Strand: strand})
			}
			pos += n
		case sam.CigarDeletion, sam.CigarSkipped:
			pos += n
		}
	}
	return ivs
}
