package session_test

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/voxprep/voxprep/internal/observe"
	"github.com/voxprep/voxprep/internal/session"
	"github.com/voxprep/voxprep/pkg/channel"
	"github.com/voxprep/voxprep/pkg/media"
)

// newTestRouter wires a router over fresh fakes and an isolated metrics
// instance.
func newTestRouter(t *testing.T) (*session.Router, *session.Transcript, *session.Scheduler, *fakeClock, *recordSink) {
	t.Helper()

	met, err := observe.NewMetrics(sdkmetric.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	clock := &fakeClock{}
	sink := &recordSink{}
	tr := session.NewTranscript()
	sched := session.NewScheduler(clock, sink, 24000)
	return session.NewRouter(tr, sched, met), tr, sched, clock, sink
}

func TestRouterAggregatesTranscriptionFragments(t *testing.T) {
	t.Parallel()

	router, tr, _, _, _ := newTestRouter(t)
	ctx := context.Background()

	router.Dispatch(ctx, channel.Event{Kind: channel.EventOutputTranscription, Text: "Hello"})
	router.Dispatch(ctx, channel.Event{Kind: channel.EventOutputTranscription, Text: " there"})
	router.Dispatch(ctx, channel.Event{Kind: channel.EventTurnComplete})

	entries := tr.Entries()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Speaker != session.SpeakerAssistant || entries[0].Text != "Hello there" {
		t.Errorf("entry = %+v, want one aggregated assistant utterance", entries[0])
	}
}

func TestRouterSchedulesAudioPayloads(t *testing.T) {
	t.Parallel()

	router, _, sched, _, sink := newTestRouter(t)
	ctx := context.Background()

	// 2400 samples at 24 kHz = 100 ms.
	payload := media.FloatToPCM16(make([]float32, 2400))
	router.Dispatch(ctx, channel.Event{Kind: channel.EventAudio, Audio: payload})
	router.Dispatch(ctx, channel.Event{Kind: channel.EventAudio, Audio: payload})

	calls := sink.snapshot()
	if len(calls) != 2 {
		t.Fatalf("sink received %d payloads, want 2", len(calls))
	}
	if calls[1].start != 100*time.Millisecond {
		t.Errorf("second payload starts at %v, want 100ms", calls[1].start)
	}
	if got := sched.Cursor(); got != 200*time.Millisecond {
		t.Errorf("cursor = %v, want 200ms", got)
	}
}

func TestRouterIgnoresEmptyAudio(t *testing.T) {
	t.Parallel()

	router, _, _, _, sink := newTestRouter(t)

	router.Dispatch(context.Background(), channel.Event{Kind: channel.EventAudio})

	if got := len(sink.snapshot()); got != 0 {
		t.Errorf("sink received %d payloads, want 0", got)
	}
}

func TestRouterInterruptDiscardsQueuedAudio(t *testing.T) {
	t.Parallel()

	router, _, sched, clock, sink := newTestRouter(t)
	ctx := context.Background()

	payload := media.FloatToPCM16(make([]float32, 12000)) // 500 ms
	router.Dispatch(ctx, channel.Event{Kind: channel.EventAudio, Audio: payload})

	clock.Set(200 * time.Millisecond)
	router.Dispatch(ctx, channel.Event{Kind: channel.EventInterrupted})

	if got := sink.discardCount(); got != 1 {
		t.Errorf("discard count = %d, want 1", got)
	}
	if got := sched.Cursor(); got != 200*time.Millisecond {
		t.Errorf("cursor = %v, want 200ms", got)
	}

	// Audio arriving after the interruption plays immediately.
	router.Dispatch(ctx, channel.Event{Kind: channel.EventAudio, Audio: payload})
	calls := sink.snapshot()
	if got := calls[len(calls)-1].start; got != 200*time.Millisecond {
		t.Errorf("post-interrupt payload starts at %v, want 200ms", got)
	}
}

func TestRouterTurnCompleteAfterInterruptionFlushesPartialText(t *testing.T) {
	t.Parallel()

	router, tr, _, _, _ := newTestRouter(t)
	ctx := context.Background()

	router.Dispatch(ctx, channel.Event{Kind: channel.EventOutputTranscription, Text: "As I was say"})
	router.Dispatch(ctx, channel.Event{Kind: channel.EventInterrupted})
	router.Dispatch(ctx, channel.Event{Kind: channel.EventTurnComplete})

	entries := tr.Entries()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Text != "As I was say" {
		t.Errorf("entry text = %q, want the partial utterance", entries[0].Text)
	}
}
