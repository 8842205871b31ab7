package observability

import (
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Histogram tracks the distribution of duration measurements.
// Safe for concurrent observations.
type Histogram struct {
	mu     sync.RWMutex
	values []float64 // microseconds
}

func NewHistogram() *Histogram {
	return &Histogram{values: make([]float64, 0, 256)}
}

// Observe records a duration measurement.
func (h *Histogram) Observe(d time.Duration) {
	micros := float64(d.Microseconds())
	h.mu.Lock()
	h.values = append(h.values, micros)
	h.mu.Unlock()
}

// Snapshot returns the count, mean, percentiles and max.
func (h *Histogram) Snapshot() HistogramSnapshot {
	h.mu.RLock()
	sorted := make([]float64, len(h.values))
	copy(sorted, h.values)
	h.mu.RUnlock()

	if len(sorted) == 0 {
		return HistogramSnapshot{}
	}
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	micros := func(v float64) time.Duration { return time.Duration(v) * time.Microsecond }
	return HistogramSnapshot{
		Count: len(sorted),
		Mean:  micros(sum / float64(len(sorted))),
		P50:   micros(percentile(sorted, 0.50)),
		P95:   micros(percentile(sorted, 0.95)),
		P99:   micros(percentile(sorted, 0.99)),
		Max:   micros(sorted[len(sorted)-1]),
	}
}

type HistogramSnapshot struct {
	Count int           `json:"count"`
	Mean  time.Duration `json:"mean"`
	P50   time.Duration `json:"p50"`
	P95   time.Duration `json:"p95"`
	P99   time.Duration `json:"p99"`
	Max   time.Duration `json:"max"`
}

// percentile interpolates the p-th percentile of sorted values.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := p * float64(len(sorted)-1)
	lower, upper := int(math.Floor(rank)), int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	weight := rank - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// HistogramVec is a set of histograms keyed by label.
type HistogramVec struct {
	mu         sync.RWMutex
	histograms map[string]*Histogram
}

func NewHistogramVec() *HistogramVec {
	return &HistogramVec{histograms: make(map[string]*Histogram)}
}

// WithLabels returns the histogram for label, creating it on first use.
func (hv *HistogramVec) WithLabels(label string) *Histogram {
	hv.mu.RLock()
	h, ok := hv.histograms[label]
	hv.mu.RUnlock()
	if ok {
		return h
	}

	hv.mu.Lock()
	defer hv.mu.Unlock()
	if h, ok := hv.histograms[label]; ok {
		return h
	}
	h = NewHistogram()
	hv.histograms[label] = h
	return h
}

func (hv *HistogramVec) Snapshot() map[string]HistogramSnapshot {
	hv.mu.RLock()
	defer hv.mu.RUnlock()
	out := make(map[string]HistogramSnapshot, len(hv.histograms))
	for label, h := range hv.histograms {
		out[label] = h.Snapshot()
	}
	return out
}

// Counter is a monotonically increasing counter.
type Counter struct {
	value atomic.Int64
}

func NewCounter() *Counter { return &Counter{} }

func (c *Counter) Inc()            { c.value.Add(1) }
func (c *Counter) Add(delta int64) { c.value.Add(delta) }
func (c *Counter) Get() int64      { return c.value.Load() }

// CounterVec is a set of counters keyed by label.
type CounterVec struct {
	mu       sync.RWMutex
	counters map[string]*Counter
}

func NewCounterVec() *CounterVec {
	return &CounterVec{counters: make(map[string]*Counter)}
}

// WithLabels returns the counter for label, creating it on first use.
func (cv *CounterVec) WithLabels(label string) *Counter {
	cv.mu.RLock()
	c, ok := cv.counters[label]
	cv.mu.RUnlock()
	if ok {
		return c
	}

	cv.mu.Lock()
	defer cv.mu.Unlock()
	if c, ok := cv.counters[label]; ok {
		return c
	}
	c = NewCounter()
	cv.counters[label] = c
	return c
}

func (cv *CounterVec) Snapshot() map[string]int64 {
	cv.mu.RLock()
	defer cv.mu.RUnlock()
	out := make(map[string]int64, len(cv.counters))
	for label, c := range cv.counters {
		out[label] = c.Get()
	}
	return out
}

// AtomicGauge is a value that can go up and down.
type AtomicGauge struct {
	value atomic.Int64
}

func NewAtomicGauge() *AtomicGauge { return &AtomicGauge{} }

func (g *AtomicGauge) Set(v int64) { g.value.Store(v) }
func (g *AtomicGauge) Inc()        { g.value.Add(1) }
func (g *AtomicGauge) Dec()        { g.value.Add(-1) }
func (g *AtomicGauge) Get() int64  { return g.value.Load() }
