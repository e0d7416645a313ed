package session

import (
	"sync"
	"time"
)

// Sink receives scheduled audio from the [Scheduler] and renders it. The
// production implementation is the playback speaker; tests substitute a
// recording fake.
type Sink interface {
	// ScheduleAt queues pcm to begin playing at the given timeline position.
	ScheduleAt(start time.Duration, pcm []float32)

	// Discard drops all queued, not-yet-played audio immediately.
	Discard()
}

// Scheduler lays model audio payloads onto the playback timeline without
// gaps or overlap. It keeps a cursor marking the end of everything scheduled
// so far: each payload starts at the cursor, or at the current clock position
// when the cursor has fallen into the past (the stream went idle between
// turns).
//
// Scheduler is safe for concurrent use, though the event loop drives it from
// a single goroutine.
type Scheduler struct {
	clock      Clock
	sink       Sink
	sampleRate int

	mu     sync.Mutex
	cursor time.Duration
}

// NewScheduler creates a Scheduler that schedules payloads of the given
// sample rate onto sink, positioned by clock.
func NewScheduler(clock Clock, sink Sink, sampleRate int) *Scheduler {
	return &Scheduler{clock: clock, sink: sink, sampleRate: sampleRate}
}

// Activate resets the timeline for a fresh session: clock zero moves to now
// and the cursor returns to the origin.
func (s *Scheduler) Activate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock.Reset()
	s.cursor = 0
}

// Schedule places pcm at the next gapless position and returns the start
// time it was given.
func (s *Scheduler) Schedule(pcm []float32) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now := s.clock.Now(); s.cursor < now {
		s.cursor = now
	}
	start := s.cursor
	s.sink.ScheduleAt(start, pcm)
	s.cursor += s.payloadDuration(len(pcm))
	return start
}

// Interrupt handles barge-in: queued audio is discarded and the cursor snaps
// back to the present, so the model's next utterance starts immediately.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink.Discard()
	s.cursor = s.clock.Now()
}

// Cursor returns the end position of all scheduled audio.
func (s *Scheduler) Cursor() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Now returns the current playback-timeline position.
func (s *Scheduler) Now() time.Duration {
	return s.clock.Now()
}

func (s *Scheduler) payloadDuration(samples int) time.Duration {
	return time.Duration(samples) * time.Second / time.Duration(s.sampleRate)
}
