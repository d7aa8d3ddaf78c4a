// Package notify defines the operator notification contract for pipeline
// failures.
package notify

import (
	"context"
	"time"
)

// Severity constants recognised by downstream sinks.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// Stage names used in failure payloads.
const (
	StageEntry    = "entry"
	StageClaim    = "claim"
	StageDownload = "download"
	StageAnalysis = "analysis"
	StageDelivery = "delivery"
	StagePersist  = "persist"
)

// PipelineFailurePayload captures the canonical data we emit for pipeline
// failure notifications.
type PipelineFailurePayload struct {
	JobID      string
	UserID     string
	Stage      string
	Error      string
	Severity   string
	OccurredAt time.Time
	Metadata   map[string]string
}

// Sink describes a destination capable of consuming pipeline failure
// notifications.
type Sink interface {
	SendPipelineFailure(ctx context.Context, payload PipelineFailurePayload) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, payload PipelineFailurePayload) error

// SendPipelineFailure implements the Sink interface.
func (f SinkFunc) SendPipelineFailure(ctx context.Context, payload PipelineFailurePayload) error {
	if f == nil {
		return nil
	}
	return f(ctx, payload)
}
