// Package bam provides helpers on top of github.com/grailbio/hts/sam and
// github.com/grailbio/hts/bam: flag predicates, aux tag editing, reference
// footprints of alignments, and path-based record readers and writers that
// pick BAM or SAM by file suffix.
package bam
