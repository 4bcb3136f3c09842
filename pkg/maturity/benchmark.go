package maturity

import (
	"maps"
	"strings"
)

// BenchmarkFor returns the first benchmark whose industry name and the given
// industry contain one another, ignoring case, or the cross-industry average.
// An empty industry matches every name, so it resolves to the first entry.
func BenchmarkFor(industry string) Benchmark {
	needle := strings.ToLower(industry)
	for _, b := range benchmarks {
		name := strings.ToLower(b.Industry)
		if strings.Contains(needle, name) || strings.Contains(name, needle) {
			return b.clone()
		}
	}
	return crossIndustry.clone()
}

// DimensionAverage returns the benchmark for one dimension, falling back to the
// overall average.
func (b Benchmark) DimensionAverage(dimension string) float64 {
	if v, ok := b.DimensionAverages[dimension]; ok {
		return v
	}
	return b.OverallAverage
}

func (b Benchmark) clone() Benchmark {
	b.DimensionAverages = maps.Clone(b.DimensionAverages)
	b.MaturityDistribution = maps.Clone(b.MaturityDistribution)
	return b
}
