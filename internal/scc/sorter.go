package scc

import (
	"slices"

	"github.com/zsiec/ccextract/internal/media"
)

// DefaultOverlap is the number of newest timestamp buckets a Writer holds
// back to absorb reordering.
const DefaultOverlap = 5

// Bucket is every pair that arrived with one timestamp.
type Bucket struct {
	Ticks int64
	Pairs []media.BytePair
}

// Sorter groups pairs by timestamp and releases them in timestamp order.
// Consecutive pairs with the same timestamp share a bucket.
type Sorter struct {
	buckets []Bucket
}

// Add appends pair to the newest bucket if it has the same timestamp,
// otherwise starts a new bucket.
func (s *Sorter) Add(ticks int64, pair media.BytePair) {
	if n := len(s.buckets); n > 0 && s.buckets[n-1].Ticks == ticks {
		s.buckets[n-1].Pairs = append(s.buckets[n-1].Pairs, pair)
		return
	}
	s.buckets = append(s.buckets, Bucket{Ticks: ticks, Pairs: []media.BytePair{pair}})
}

// Drain sorts the buffered buckets by timestamp, keeping arrival order for
// equal timestamps, and returns all but the newest overlap buckets.
func (s *Sorter) Drain(overlap int) []Bucket {
	slices.SortStableFunc(s.buckets, func(a, b Bucket) int {
		return comparePTS(a.Ticks, b.Ticks)
	})
	if overlap < 0 {
		overlap = 0
	}
	if len(s.buckets) <= overlap {
		return nil
	}
	n := len(s.buckets) - overlap
	out := slices.Clone(s.buckets[:n])
	s.buckets = slices.Delete(s.buckets, 0, n)
	return out
}

// Len returns the number of buffered buckets.
func (s *Sorter) Len() int { return len(s.buckets) }

// comparePTS orders two 33-bit timestamps by their shortest distance on the
// PTS circle, so a bucket from just after a wrap sorts after one from just
// before it.
func comparePTS(a, b int64) int {
	d := (a - b) % ptsModulus
	switch {
	case d >= ptsModulus/2:
		d -= ptsModulus
	case d < -ptsModulus/2:
		d += ptsModulus
	}
	switch {
	case d < 0:
		return -1
	case d > 0:
		return 1
	}
	return 0
}
