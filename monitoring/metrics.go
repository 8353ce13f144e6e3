package monitoring

import (
	"sync/atomic"
	"time"

	"cvrisk/risk"
)

// StageUnavailable counts attempts rejected because no model was loaded.
const StageUnavailable = "unavailable"

// Stats holds lock-free evaluation counters.
type Stats struct {
	startedAt time.Time

	evaluations atomic.Int64
	failures    atomic.Int64
	low         atomic.Int64
	medium      atomic.Int64
	high        atomic.Int64
	latencyNS   atomic.Int64
	lastNS      atomic.Int64

	validate    atomic.Int64
	encode      atomic.Int64
	predict     atomic.Int64
	lookup      atomic.Int64
	unavailable atomic.Int64
}

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	StartedAt        time.Time        `json:"started_at"`
	Uptime           string           `json:"uptime"`
	Evaluations      int64            `json:"evaluations"`
	Failures         int64            `json:"failures"`
	Categories       map[string]int64 `json:"categories"`
	FailureStages    map[string]int64 `json:"failure_stages"`
	AvgLatencyMS     float64          `json:"avg_latency_ms"`
	LastEvaluationAt *time.Time       `json:"last_evaluation_at,omitempty"`
	Clients          int              `json:"clients"`
}

func NewStats() *Stats {
	return &Stats{startedAt: time.Now()}
}

func (s *Stats) RecordEvaluation(category risk.Category, latency time.Duration) {
	s.evaluations.Add(1)
	s.latencyNS.Add(int64(latency))
	s.lastNS.Store(time.Now().UnixNano())
	switch category {
	case risk.Low:
		s.low.Add(1)
	case risk.Medium:
		s.medium.Add(1)
	case risk.High:
		s.high.Add(1)
	}
}

func (s *Stats) RecordFailure(stage string) {
	s.failures.Add(1)
	switch stage {
	case risk.StageValidate:
		s.validate.Add(1)
	case risk.StageEncode:
		s.encode.Add(1)
	case risk.StagePredict:
		s.predict.Add(1)
	case risk.StageLookup:
		s.lookup.Add(1)
	case StageUnavailable:
		s.unavailable.Add(1)
	}
}

// Snapshot reads every counter. Counters are read independently, so a
// snapshot taken under load may be off by the evaluations in flight.
func (s *Stats) Snapshot() Snapshot {
	snap := Snapshot{
		StartedAt:   s.startedAt,
		Uptime:      time.Since(s.startedAt).Round(time.Second).String(),
		Evaluations: s.evaluations.Load(),
		Failures:    s.failures.Load(),
		Categories: map[string]int64{
			string(risk.Low):    s.low.Load(),
			string(risk.Medium): s.medium.Load(),
			string(risk.High):   s.high.Load(),
		},
		FailureStages: map[string]int64{
			risk.StageValidate: s.validate.Load(),
			risk.StageEncode:   s.encode.Load(),
			risk.StagePredict:  s.predict.Load(),
			risk.StageLookup:   s.lookup.Load(),
			StageUnavailable:   s.unavailable.Load(),
		},
	}
	if snap.Evaluations > 0 {
		snap.AvgLatencyMS = float64(s.latencyNS.Load()) / float64(snap.Evaluations) / float64(time.Millisecond)
	}
	if last := s.lastNS.Load(); last > 0 {
		t := time.Unix(0, last)
		snap.LastEvaluationAt = &t
	}
	return snap
}
