package failurenotifier

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aikalab/scouter/internal/observability/notify"
)

func TestNotifyPipelineFailureFansOut(t *testing.T) {
	var first, second atomic.Int32

	svc := NewService(Options{Sinks: []SinkRegistration{
		{Name: "a", Sink: notify.SinkFunc(func(ctx context.Context, p notify.PipelineFailurePayload) error {
			first.Add(1)
			return nil
		})},
		{Name: "b", Sink: notify.SinkFunc(func(ctx context.Context, p notify.PipelineFailurePayload) error {
			second.Add(1)
			return errors.New("sink down")
		})},
	}})

	svc.NotifyPipelineFailure(context.Background(), notify.PipelineFailurePayload{JobID: "j1"})

	assert.Equal(t, int32(1), first.Load())
	assert.Equal(t, int32(1), second.Load())
}

func TestNotifyPipelineFailureDefaultsSeverity(t *testing.T) {
	var got notify.PipelineFailurePayload
	svc := NewService(Options{Sinks: []SinkRegistration{
		{Sink: notify.SinkFunc(func(ctx context.Context, p notify.PipelineFailurePayload) error {
			got = p
			return nil
		})},
	}})

	svc.NotifyPipelineFailure(context.Background(), notify.PipelineFailurePayload{JobID: "j1"})
	assert.Equal(t, notify.SeverityCritical, got.Severity)
}

func TestEnabled(t *testing.T) {
	assert.False(t, NewService(Options{}).Enabled())
	assert.False(t, NewService(Options{Sinks: []SinkRegistration{{Name: "nil"}}}).Enabled())

	svc := NewService(Options{Sinks: []SinkRegistration{
		{Sink: notify.SinkFunc(func(ctx context.Context, p notify.PipelineFailurePayload) error { return nil })},
	}})
	assert.True(t, svc.Enabled())
}
