// Package playback provides the production audio output sink: a speaker
// backed by the oto library. The session's playback scheduler hands it
// decoded sample buffers with absolute start times on the output timeline;
// the speaker renders them back-to-back, inserting silence for any gap
// between the end of the queued audio and the requested start.
package playback

import (
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/voxprep/voxprep/pkg/media"
)

// bufferSizeBytes is the oto device buffer: 4800 bytes at 24 kHz mono s16 is
// about 100 ms, small enough to keep barge-in latency low.
const bufferSizeBytes = 4800

// Speaker plays scheduled PCM through the default output device.
//
// Speaker implements the session Sink contract. It is safe for concurrent
// use, although the scheduler drives it from a single goroutine.
type Speaker struct {
	otoCtx     *oto.Context
	sampleRate int

	mu      sync.Mutex
	player  *oto.Player
	buf     []byte
	queued  time.Duration // end position of queued audio on the output timeline
	playing bool
	closed  bool
}

// NewSpeaker opens the default output device at the given sample rate
// (mono, signed 16-bit) and blocks until the audio backend is ready.
func NewSpeaker(sampleRate int) (*Speaker, error) {
	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   bufferSizeBytes,
	})
	if err != nil {
		return nil, err
	}
	<-ready

	return &Speaker{otoCtx: otoCtx, sampleRate: sampleRate}, nil
}

// ScheduleAt queues pcm to begin at the given position on the output
// timeline. The scheduler guarantees start is never before the end of
// previously scheduled audio except immediately after Discard, so a positive
// gap is rendered as silence and a negative one only occurs on a fresh
// timeline, where the queue is already empty.
func (s *Speaker) ScheduleAt(start time.Duration, pcm []float32) {
	data := media.FloatToPCM16(pcm)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	if gap := start - s.queued; gap > 0 {
		s.buf = append(s.buf, make([]byte, s.gapBytes(gap))...)
	} else if gap < 0 {
		s.queued = start
	}
	s.buf = append(s.buf, data...)
	s.queued += media.Duration(len(data), s.sampleRate)

	if !s.playing {
		s.playing = true
		s.player = s.otoCtx.NewPlayer(readerFunc(s.read))
		s.player.Play()
	}
}

// Discard drops all queued audio immediately. Called on barge-in.
func (s *Speaker) Discard() {
	s.mu.Lock()
	s.buf = s.buf[:0]
	player := s.player
	s.player = nil
	s.playing = false
	s.mu.Unlock()

	// Reset the device-side buffer too, or the tail of the abandoned
	// utterance keeps playing for another buffer's worth of time.
	if player != nil {
		player.Pause()
		player.Reset()
		player.Close()
	}
}

// Close stops playback and releases the player. Idempotent.
func (s *Speaker) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	player := s.player
	s.player = nil
	s.mu.Unlock()

	if player != nil {
		return player.Close()
	}
	return nil
}

// read is the pull callback for the oto player. It never blocks: when the
// queue is empty it emits silence so the output clock keeps running.
func (s *Speaker) read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	for i := n; i < len(p); i++ {
		p[i] = 0
	}
	return len(p), nil
}

// gapBytes converts a silence duration to a byte count, rounded down to a
// whole sample.
func (s *Speaker) gapBytes(gap time.Duration) int {
	samples := int(gap * time.Duration(s.sampleRate) / time.Second)
	return samples * 2
}

// readerFunc adapts a function to io.Reader for oto.NewPlayer.
type readerFunc func(p []byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }
