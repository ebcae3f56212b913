package interval

import "sort"

// LabelSet is a set of labels, keyed by value.
type LabelSet map[Label]struct{}

// Add inserts l into the set.
func (s LabelSet) Add(l Label) { s[l] = struct{}{} }

// Contains reports whether l is in the set.
func (s LabelSet) Contains(l Label) bool {
	_, ok := s[l]
	return ok
}

// Union adds every element of other to s.
func (s LabelSet) Union(other LabelSet) {
	for l := range other {
		s[l] = struct{}{}
	}
}

// Difference returns the elements of s that are not in other.
func (s LabelSet) Difference(other LabelSet) LabelSet {
	result := LabelSet{}
	for l := range s {
		if _, ok := other[l]; !ok {
			result[l] = struct{}{}
		}
	}
	return result
}

// Sorted returns the elements ordered by chromosome, start, end, strand and
// name.
func (s LabelSet) Sorted() []Label {
	labels := make([]Label, 0, len(s))
	for l := range s {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool {
		a, b := labels[i], labels[j]
		if a.Chrom != b.Chrom {
			return a.Chrom < b.Chrom
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		if a.Strand != b.Strand {
			return a.Strand < b.Strand
		}
		return a.Name < b.Name
	})
	return labels
}
