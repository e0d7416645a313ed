// Package channel defines the duplex-channel boundary of voxprep: a
// persistent bidirectional connection to a realtime conversational agent.
//
// A [Provider] dials the remote service and returns a [Channel]. The channel
// carries outbound media chunks (microphone audio, camera frames) via
// [Channel.SendRealtimeInput] and delivers everything the agent sends back as
// a single ordered stream of typed [Event] values. Consuming the event stream
// from one goroutine gives strict sequential processing without any further
// synchronisation, which is what the session router relies on.
//
// Implementations must be safe for concurrent use.
package channel

import (
	"context"
	"errors"
	"fmt"

	"github.com/voxprep/voxprep/pkg/media"
)

// ErrClosed is returned by [Channel.SendRealtimeInput] after the channel has
// been closed, locally or by the remote side.
var ErrClosed = errors.New("channel: closed")

// Error is a fault reported by the remote service over the channel.
// It is fatal to the session: the lifecycle manager tears down on receipt.
type Error struct {
	// Code is the provider-specific error code, zero when unknown.
	Code int

	// Message is the human-readable description from the provider.
	Message string
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("channel: %s (code %d)", e.Message, e.Code)
	}
	return fmt.Sprintf("channel: %s", e.Message)
}

// EventKind discriminates the inbound event union.
type EventKind int

const (
	// EventOpen signals that the remote side acknowledged the session setup.
	// The channel is ready for realtime input from this point on.
	EventOpen EventKind = iota

	// EventInputTranscription carries a partial transcription fragment of the
	// user's own speech, as recognised by the agent.
	EventInputTranscription

	// EventOutputTranscription carries a partial transcription fragment of
	// the agent's synthesised speech.
	EventOutputTranscription

	// EventTurnComplete marks the boundary of one conversation turn.
	EventTurnComplete

	// EventInterrupted signals that the agent's in-progress utterance was
	// abandoned (barge-in). Buffered playback should be discarded.
	EventInterrupted

	// EventAudio carries a chunk of synthesised speech: raw little-endian
	// 16-bit mono PCM at 24 kHz, already decoded from the wire encoding.
	EventAudio

	// EventError carries a fault reported by the remote service.
	EventError
)

// String returns the human-readable name of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventOpen:
		return "OPEN"
	case EventInputTranscription:
		return "INPUT_TRANSCRIPTION"
	case EventOutputTranscription:
		return "OUTPUT_TRANSCRIPTION"
	case EventTurnComplete:
		return "TURN_COMPLETE"
	case EventInterrupted:
		return "INTERRUPTED"
	case EventAudio:
		return "AUDIO"
	case EventError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Event is one inbound message from the agent, already demultiplexed into
// its kind. Only the fields relevant to the kind are populated.
type Event struct {
	Kind EventKind

	// Text is the transcription fragment for the transcription kinds.
	Text string

	// Audio is the decoded PCM payload for [EventAudio].
	Audio []byte

	// Err is the fault for [EventError].
	Err error
}

// Config is the session setup sent at connect time.
type Config struct {
	// Model identifies the remote model to converse with.
	Model string

	// Voice selects the prebuilt speaker voice for synthesised output.
	Voice string

	// SystemInstruction is the fully rendered instruction text, with the
	// session parameters (role, experience) already interpolated.
	SystemInstruction string

	// InputTranscription requests partial transcriptions of the user's speech.
	InputTranscription bool

	// OutputTranscription requests partial transcriptions of the agent's speech.
	OutputTranscription bool
}

// Channel is an open duplex session with the remote agent.
//
// The event stream returned by Events is closed when the session ends, for
// any reason. After it closes, Err reports whether termination was clean
// (nil) or caused by a transport or protocol fault.
type Channel interface {
	// Events returns the ordered stream of inbound events. The stream must be
	// drained promptly; a stalled consumer stalls the channel's receive loop.
	Events() <-chan Event

	// SendRealtimeInput submits one encoded media chunk to the agent.
	// Sends are fire-and-forget with respect to the conversation: ordering is
	// preserved per calling pipeline, not across pipelines.
	SendRealtimeInput(chunk media.Chunk) error

	// Err returns the error that terminated the session, or nil while the
	// session is live or after a clean close.
	Err() error

	// Close terminates the session and closes the event stream. Safe to call
	// more than once; subsequent calls are no-ops and return nil.
	Close() error
}

// Provider dials the remote realtime service.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Connect establishes a new session configured by cfg. The returned
	// Channel accepts realtime input once it emits [EventOpen]. The caller
	// owns the Channel and must call Close.
	Connect(ctx context.Context, cfg Config) (Channel, error)
}
