package engine

import "github.com/montanaflynn/stats"

// Series collects one feature's per-round samples.
type Series struct {
	data stats.Float64Data
}

// Add appends a sample.
func (s *Series) Add(x float64) {
	s.data = append(s.data, x)
}

// N returns the number of samples.
func (s *Series) N() int {
	return s.data.Len()
}

// Mean returns the sample mean, or 0 with no samples.
func (s *Series) Mean() float64 {
	m, err := stats.Mean(s.data)
	if err != nil {
		return 0
	}
	return m
}

// StdDev returns the sample standard deviation, or 0 with fewer than two samples.
func (s *Series) StdDev() float64 {
	if s.N() < 2 {
		return 0
	}
	sd, err := stats.StandardDeviationSample(s.data)
	if err != nil {
		return 0
	}
	return sd
}

// Summary aggregates features across rounds. Samples are held for the whole
// run, which the driver bounds by its observation count.
type Summary struct {
	Surplus   Series
	CESurplus Series
	IMSurplus Series
	EMSurplus Series

	Trades      int // Total actual trades
	NoBenchmark int // Rounds where the benchmark cleared nothing
}

// Add folds one round's features into the summary.
func (s *Summary) Add(f Features) {
	s.Surplus.Add(f.Surplus)
	s.CESurplus.Add(f.CESurplus)
	s.IMSurplus.Add(f.IMSurplus)
	s.EMSurplus.Add(f.EMSurplus)
	s.Trades += f.Trades
	if f.CEPrice == nil {
		s.NoBenchmark++
	}
}

// Efficiency is mean actual surplus over mean benchmark surplus. It is 1
// when the benchmark produced no surplus.
func (s *Summary) Efficiency() float64 {
	ce := s.CESurplus.Mean()
	if ce == 0 {
		return 1
	}
	return s.Surplus.Mean() / ce
}
