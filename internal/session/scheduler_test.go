package session_test

import (
	"sync"
	"testing"
	"time"

	"github.com/voxprep/voxprep/internal/session"
)

// ── test doubles ─────────────────────────────────────────────────────────────

// fakeClock is a manually advanced session.Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Duration
}

func (c *fakeClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = 0
}

func (c *fakeClock) Set(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = d
}

// scheduleCall records one ScheduleAt invocation.
type scheduleCall struct {
	start   time.Duration
	samples int
}

// recordSink is a session.Sink that records calls instead of playing audio.
type recordSink struct {
	mu       sync.Mutex
	calls    []scheduleCall
	discards int
}

func (s *recordSink) ScheduleAt(start time.Duration, pcm []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, scheduleCall{start: start, samples: len(pcm)})
}

func (s *recordSink) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discards++
}

func (s *recordSink) snapshot() []scheduleCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]scheduleCall, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *recordSink) discardCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.discards
}

// samples returns a silent payload of the given duration at 24 kHz.
func samples(d time.Duration) []float32 {
	return make([]float32, int(d*24000/time.Second))
}

// ── tests ────────────────────────────────────────────────────────────────────

func TestSchedulerBackToBackPayloads(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{}
	sink := &recordSink{}
	sched := session.NewScheduler(clock, sink, 24000)

	if got := sched.Schedule(samples(500 * time.Millisecond)); got != 0 {
		t.Errorf("first payload start = %v, want 0", got)
	}
	if got := sched.Schedule(samples(300 * time.Millisecond)); got != 500*time.Millisecond {
		t.Errorf("second payload start = %v, want 500ms", got)
	}
	if got := sched.Cursor(); got != 800*time.Millisecond {
		t.Errorf("cursor = %v, want 800ms", got)
	}
}

func TestSchedulerIdleGapSnapsToNow(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{}
	sink := &recordSink{}
	sched := session.NewScheduler(clock, sink, 24000)

	// Cursor ends at 1s; the stream then goes quiet until 2s.
	sched.Schedule(samples(time.Second))
	clock.Set(2 * time.Second)

	if got := sched.Schedule(samples(500 * time.Millisecond)); got != 2*time.Second {
		t.Errorf("payload after idle gap starts at %v, want 2s", got)
	}
	if got := sched.Cursor(); got != 2500*time.Millisecond {
		t.Errorf("cursor = %v, want 2.5s", got)
	}

	// Next payload continues gapless from the new cursor.
	if got := sched.Schedule(samples(300 * time.Millisecond)); got != 2500*time.Millisecond {
		t.Errorf("follow-up payload starts at %v, want 2.5s", got)
	}
	if got := sched.Cursor(); got != 2800*time.Millisecond {
		t.Errorf("cursor = %v, want 2.8s", got)
	}
}

func TestSchedulerInterrupt(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{}
	sink := &recordSink{}
	sched := session.NewScheduler(clock, sink, 24000)

	clock.Set(2 * time.Second)
	sched.Schedule(samples(500 * time.Millisecond))
	sched.Schedule(samples(300 * time.Millisecond))

	// Barge-in at 2.6s, mid-way through the queued audio.
	clock.Set(2600 * time.Millisecond)
	sched.Interrupt()

	if got := sink.discardCount(); got != 1 {
		t.Errorf("discard count = %d, want 1", got)
	}
	if got := sched.Cursor(); got != 2600*time.Millisecond {
		t.Errorf("cursor after interrupt = %v, want 2.6s", got)
	}

	// The model's next utterance starts immediately.
	if got := sched.Schedule(samples(100 * time.Millisecond)); got != 2600*time.Millisecond {
		t.Errorf("payload after interrupt starts at %v, want 2.6s", got)
	}
}

func TestSchedulerActivateResetsTimeline(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{}
	sink := &recordSink{}
	sched := session.NewScheduler(clock, sink, 24000)

	clock.Set(5 * time.Second)
	sched.Schedule(samples(time.Second))

	sched.Activate()

	if got := sched.Cursor(); got != 0 {
		t.Errorf("cursor after Activate = %v, want 0", got)
	}
	if got := sched.Now(); got != 0 {
		t.Errorf("clock after Activate = %v, want 0", got)
	}
}

func TestSchedulerSinkReceivesPayloads(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{}
	sink := &recordSink{}
	sched := session.NewScheduler(clock, sink, 24000)

	sched.Schedule(samples(250 * time.Millisecond))
	clock.Set(time.Second)
	sched.Schedule(samples(100 * time.Millisecond))

	calls := sink.snapshot()
	if len(calls) != 2 {
		t.Fatalf("sink received %d calls, want 2", len(calls))
	}
	if calls[0].start != 0 || calls[0].samples != 6000 {
		t.Errorf("first call = %+v, want start 0 with 6000 samples", calls[0])
	}
	if calls[1].start != time.Second || calls[1].samples != 2400 {
		t.Errorf("second call = %+v, want start 1s with 2400 samples", calls[1])
	}
}
