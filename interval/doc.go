/*Package interval implements stranded genomic intervals and a coverage index
  over them.

  An Index partitions coverage by (chromosome, strand).  Within a bucket,
  coverage is a set of disjoint segments kept in an ordered tree, so that the
  step decomposition of a query interval costs O(log n) plus the number of
  segments it touches.  A boolean index only tracks whether positions are
  covered (overlapping insertions are merged); a labeled index tracks, for
  every position, the union of the labels inserted over it.

  Coordinates are 0-based and half-open.  Intervals on different chromosomes
  or strands never match each other.
*/
package interval
