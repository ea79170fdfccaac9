package metrics

import (
	"time"

	"github.com/GoSim-25-26J-441/nlo-screen/pkg/models"
)

// Metric names recorded per evaluated configuration
const (
	MetricScore           = "score"
	MetricT0              = "t0"
	MetricContrast        = "contrast"
	MetricKneeIntensity   = "knee_intensity_w_m2"
	MetricSwitchingEnergy = "switching_energy_pj"
	MetricResponseTime    = "response_time_s"
	MetricDegenerate      = "degenerate"
	MetricFailure         = "failures"
)

// kpiMetrics are the metrics broken down per material in a report
var kpiMetrics = []string{
	MetricScore,
	MetricT0,
	MetricContrast,
	MetricKneeIntensity,
	MetricSwitchingEnergy,
	MetricResponseTime,
}

// MaterialLabels creates a labels map for a material
func MaterialLabels(material string) map[string]string {
	return map[string]string{
		"material": material,
	}
}

// RecordEvaluation records the score and KPIs of one record. Knee and
// switching energy are skipped when the knee is undefined.
func RecordEvaluation(collector *Collector, rec models.ScoreRecord) {
	labels := MaterialLabels(rec.Config.Material)
	if !rec.Evaluated() || rec.KPIs == nil {
		collector.Record(MetricFailure, 1, rec.Index, labels)
		return
	}
	k := rec.KPIs
	collector.Record(MetricScore, rec.Score, rec.Index, labels)
	collector.Record(MetricT0, k.T0, rec.Index, labels)
	collector.Record(MetricContrast, k.Contrast, rec.Index, labels)
	collector.Record(MetricResponseTime, k.ResponseTime, rec.Index, labels)
	if k.Degenerate() {
		collector.Record(MetricDegenerate, 1, rec.Index, labels)
		return
	}
	collector.Record(MetricKneeIntensity, k.KneeIntensity, rec.Index, labels)
	collector.Record(MetricSwitchingEnergy, k.SwitchingEnergyPJ, rec.Index, labels)
}

// FromRecords builds a stopped collector holding every record
func FromRecords(records []models.ScoreRecord, duration time.Duration) *Collector {
	c := NewCollector()
	for _, rec := range records {
		RecordEvaluation(c, rec)
	}
	c.mu.Lock()
	c.endTime = c.startTime.Add(duration)
	c.mu.Unlock()
	return c
}

// KPIReport summarizes the KPI distribution of a search, overall and per material
type KPIReport struct {
	Evaluated            int                                `json:"evaluated"`
	Failed               int                                `json:"failed"`
	Degenerate           int                                `json:"degenerate"`
	Duration             time.Duration                      `json:"duration_ns"`
	EvaluationsPerSecond float64                            `json:"evaluations_per_second"`
	Overall              map[string]*Aggregation            `json:"overall"`
	Materials            map[string]map[string]*Aggregation `json:"materials"`
}

// BuildReport aggregates everything the collector holds
func BuildReport(collector *Collector) *KPIReport {
	report := &KPIReport{
		Duration:  collector.Duration(),
		Overall:   make(map[string]*Aggregation),
		Materials: make(map[string]map[string]*Aggregation),
	}
	report.Evaluated = count(collector.GetOverallAggregation(MetricScore))
	report.Failed = count(collector.GetOverallAggregation(MetricFailure))
	report.Degenerate = count(collector.GetOverallAggregation(MetricDegenerate))

	for _, name := range kpiMetrics {
		agg := collector.GetOverallAggregation(name)
		if agg == nil {
			continue
		}
		report.Overall[name] = agg
		for _, labels := range collector.GetLabelsForMetric(name) {
			material := labels["material"]
			if report.Materials[material] == nil {
				report.Materials[material] = make(map[string]*Aggregation)
			}
			report.Materials[material][name] = collector.GetAggregation(name, labels)
		}
	}

	if secs := report.Duration.Seconds(); secs > 0 {
		report.EvaluationsPerSecond = float64(report.Evaluated+report.Failed) / secs
	}
	return report
}

func count(agg *Aggregation) int {
	if agg == nil {
		return 0
	}
	return int(agg.Count)
}
