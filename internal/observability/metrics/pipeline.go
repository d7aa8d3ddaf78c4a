// Package metrics emits standardised pipeline metrics through a statsd sink.
package metrics

import (
	"time"

	"github.com/aikalab/scouter/internal/observability/statsd"
)

// Outcome constants for metric tagging.
const (
	OutcomeCompleted   = "completed"
	OutcomeSkipped     = "skipped"
	OutcomeRateLimited = "rate_limited"
	OutcomeTerminal    = "terminal"
)

// PipelineMetric captures details about one pipeline run for metric emission.
type PipelineMetric struct {
	Outcome  string
	Stage    string
	Duration time.Duration
}

// EmitPipelineRun emits standardised pipeline outcome metrics.
func EmitPipelineRun(sink statsd.Sink, in PipelineMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{"outcome": in.Outcome}
	if in.Stage != "" {
		tags["stage"] = in.Stage
	}

	sink.Count("pipeline.run", 1, tags)
	if in.Duration > 0 {
		sink.Timing("pipeline.duration", in.Duration, CloneTags(tags))
	}
}

// EmitRateLimit counts an admission decision.
func EmitRateLimit(sink statsd.Sink, allowed, failedOpen bool) {
	if sink == nil {
		return
	}
	tags := map[string]string{"allowed": boolTag(allowed)}
	if failedOpen {
		tags["failed_open"] = "true"
	}
	sink.Count("ratelimit.decision", 1, tags)
}

// EmitDelivery counts a push delivery attempt outcome.
func EmitDelivery(sink statsd.Sink, result string, attempts int) {
	if sink == nil {
		return
	}
	sink.Count("delivery.result", 1, map[string]string{"result": result})
	if attempts > 0 {
		sink.Gauge("delivery.attempts", float64(attempts), nil)
	}
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func boolTag(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
