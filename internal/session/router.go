package session

import (
	"context"

	"github.com/voxprep/voxprep/internal/observe"
	"github.com/voxprep/voxprep/pkg/channel"
	"github.com/voxprep/voxprep/pkg/media"
)

// Router applies server events to the session's transcript and playback
// scheduler. Events must be dispatched in arrival order from a single
// goroutine; the router itself holds no ordering state.
type Router struct {
	transcript *Transcript
	scheduler  *Scheduler
	metrics    *observe.Metrics
}

// NewRouter wires a Router over the given transcript, scheduler, and metrics.
func NewRouter(transcript *Transcript, scheduler *Scheduler, metrics *observe.Metrics) *Router {
	return &Router{transcript: transcript, scheduler: scheduler, metrics: metrics}
}

// Dispatch applies one server event.
func (r *Router) Dispatch(ctx context.Context, ev channel.Event) {
	switch ev.Kind {
	case channel.EventInputTranscription:
		r.transcript.AddUserFragment(ev.Text)

	case channel.EventOutputTranscription:
		r.transcript.AddAssistantFragment(ev.Text)

	case channel.EventAudio:
		pcm := media.PCM16ToFloat(ev.Audio)
		if len(pcm) == 0 {
			return
		}
		r.scheduler.Schedule(pcm)
		r.metrics.RecordScheduled(ctx, float64(len(pcm))/float64(r.scheduler.sampleRate))

	case channel.EventTurnComplete:
		// Interrupted too: the server sends turnComplete after an
		// interruption as well, which flushes the partial utterance.
		r.transcript.CompleteTurn(r.scheduler.Now())
		r.metrics.TurnsCompleted.Add(ctx, 1)

	case channel.EventInterrupted:
		r.scheduler.Interrupt()
		r.metrics.Interruptions.Add(ctx, 1)
	}
}
