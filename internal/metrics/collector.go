package metrics

import (
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
)

// Point is one observation of a metric, keyed by the evaluation index that produced it
type Point struct {
	Index  int               `json:"index"`
	Value  float64           `json:"value"`
	Labels map[string]string `json:"labels,omitempty"`
}

// Aggregation holds summary statistics over a set of points
type Aggregation struct {
	Count int64   `json:"count"`
	Sum   float64 `json:"sum"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
}

// Collector collects per-evaluation metrics during a search
type Collector struct {
	mu sync.RWMutex

	startTime time.Time
	endTime   time.Time

	// metric name -> label key -> points
	series map[string]map[string][]Point
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		series:    make(map[string]map[string][]Point),
	}
}

// Start marks the start of metric collection
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startTime = time.Now()
	c.endTime = time.Time{}
}

// Stop marks the end of metric collection
func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endTime = time.Now()
}

// Duration returns the collection window; an unfinished collection is
// measured up to now
func (c *Collector) Duration() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	end := c.endTime
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(c.startTime)
}

// Record records a metric value observed at evaluation index
func (c *Collector) Record(name string, value float64, index int, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := labelKey(labels)
	if c.series[name] == nil {
		c.series[name] = make(map[string][]Point)
	}
	c.series[name][key] = append(c.series[name][key], Point{
		Index:  index,
		Value:  value,
		Labels: maps.Clone(labels),
	})
}

// GetSeries returns a copy of the points recorded for a metric and label set,
// ordered by evaluation index
func (c *Collector) GetSeries(name string, labels map[string]string) []Point {
	c.mu.RLock()
	defer c.mu.RUnlock()

	points := c.series[name][labelKey(labels)]
	if len(points) == 0 {
		return nil
	}
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = Point{Index: p.Index, Value: p.Value, Labels: maps.Clone(p.Labels)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// GetAggregation returns statistics for a metric and exact label set, or nil
// when nothing was recorded
func (c *Collector) GetAggregation(name string, labels map[string]string) *Aggregation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return calculateAggregation(values(c.series[name][labelKey(labels)]))
}

// GetOverallAggregation returns statistics for a metric across every label set
func (c *Collector) GetOverallAggregation(name string) *Aggregation {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var all []float64
	for _, points := range c.series[name] {
		all = append(all, values(points)...)
	}
	return calculateAggregation(all)
}

// GetMetricNames returns the names of all collected metrics, sorted
func (c *Collector) GetMetricNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.series))
}

// GetLabelsForMetric returns every label combination recorded for a metric
func (c *Collector) GetLabelsForMetric(name string) []map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := slices.Sorted(maps.Keys(c.series[name]))
	out := make([]map[string]string, 0, len(keys))
	for _, k := range keys {
		if points := c.series[name][k]; len(points) > 0 {
			out = append(out, maps.Clone(points[0].Labels))
		}
	}
	return out
}

// Clear drops all collected metrics and restarts the window
func (c *Collector) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.series = make(map[string]map[string][]Point)
	c.startTime = time.Now()
	c.endTime = time.Time{}
}

// labelKey creates a key from labels for map lookup
func labelKey(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	var b strings.Builder
	for _, k := range slices.Sorted(maps.Keys(labels)) {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
		b.WriteByte(',')
	}
	return b.String()
}

func values(points []Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

// calculateAggregation computes statistics over vals, sorting it in place
func calculateAggregation(vals []float64) *Aggregation {
	if len(vals) == 0 {
		return nil
	}
	sort.Float64s(vals)

	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return &Aggregation{
		Count: int64(len(vals)),
		Sum:   sum,
		Min:   vals[0],
		Max:   vals[len(vals)-1],
		Mean:  sum / float64(len(vals)),
		P50:   calculatePercentile(vals, 0.50),
		P95:   calculatePercentile(vals, 0.95),
		P99:   calculatePercentile(vals, 0.99),
	}
}

// calculatePercentile interpolates the p-th percentile of a sorted slice
func calculatePercentile(sortedValues []float64, p float64) float64 {
	if len(sortedValues) == 0 {
		return 0.0
	}
	if len(sortedValues) == 1 {
		return sortedValues[0]
	}

	index := p * float64(len(sortedValues)-1)
	lower := int(index)
	upper := lower + 1
	if upper >= len(sortedValues) {
		return sortedValues[len(sortedValues)-1]
	}

	weight := index - float64(lower)
	return sortedValues[lower]*(1-weight) + sortedValues[upper]*weight
}
