package sampler

import "github.com/Dicklesworthstone/coremon/internal/model"

// Engine turns successive CoreSamples into per-core utilization. It keeps
// only the previous sample; callers must not share an Engine across goroutines.
type Engine struct {
	prev model.CoreSample
}

// NewEngine returns an Engine whose previous sample is empty, so the first
// Update only establishes a baseline.
func NewEngine() *Engine { return &Engine{} }

// Update returns one percentage per core of cur and then stores cur as the
// previous sample, whatever it holds.
//
// A core reads 0% when it has no baseline yet (previous total 0), when no
// ticks elapsed, or when a counter went backwards.
func (e *Engine) Update(cur model.CoreSample) []float64 {
	e.resize(len(cur))

	usage := make([]float64, len(cur))
	for i, c := range cur {
		usage[i] = utilization(e.prev[i], c)
	}

	copy(e.prev, cur)
	return usage
}

// Previous returns a copy of the stored baseline.
func (e *Engine) Previous() model.CoreSample {
	out := make(model.CoreSample, len(e.prev))
	copy(out, e.prev)
	return out
}

// resize keeps prev the same length as the incoming sample. New cores start
// from a zero baseline.
func (e *Engine) resize(n int) {
	switch {
	case n < len(e.prev):
		e.prev = e.prev[:n]
	case n > len(e.prev):
		grown := make(model.CoreSample, n)
		copy(grown, e.prev)
		e.prev = grown
	}
}

func utilization(prev, cur model.CoreCounters) float64 {
	if prev.Total == 0 {
		return 0
	}
	// Either counter going backwards means a reset; the whole cycle reads 0.
	if cur.Total < prev.Total || cur.Idle < prev.Idle {
		return 0
	}
	totalDelta := cur.Total - prev.Total
	idleDelta := cur.Idle - prev.Idle
	if totalDelta == 0 || idleDelta > totalDelta {
		return 0
	}
	return (1 - float64(idleDelta)/float64(totalDelta)) * 100
}
