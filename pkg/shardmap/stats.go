package shardmap

import "math"

// Stats describes how entries are spread over buckets.
//
// Stats reads bucket sizes one at a time; under concurrent writes the totals
// are approximate.
type Stats struct {
	Buckets int     `json:"buckets"`
	Entries int     `json:"entries"`
	Empty   int     `json:"empty_buckets"`
	Min     int     `json:"min"`
	Max     int     `json:"max"`
	Mean    float64 `json:"mean"`
	StdDev  float64 `json:"stddev"`
	Sizes   []int   `json:"-" yaml:"-" table:"-"`
}

// Stats returns per-bucket sizes and their summary.
func (m *Map[K, V]) Stats() Stats {
	sizes := make([]int, len(m.buckets))
	for i, b := range m.buckets {
		sizes[i] = b.Len()
	}
	return summarize(sizes)
}

func summarize(sizes []int) Stats {
	s := Stats{Buckets: len(sizes), Sizes: sizes}
	if len(sizes) == 0 {
		return s
	}

	s.Min = math.MaxInt
	for _, n := range sizes {
		s.Entries += n
		if n == 0 {
			s.Empty++
		}
		s.Min = min(s.Min, n)
		s.Max = max(s.Max, n)
	}
	s.Mean = float64(s.Entries) / float64(len(sizes))

	var sq float64
	for _, n := range sizes {
		d := float64(n) - s.Mean
		sq += d * d
	}
	s.StdDev = math.Sqrt(sq / float64(len(sizes)))
	return s
}
