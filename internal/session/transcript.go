package session

import (
	"strings"
	"sync"
	"time"
)

// Speaker identifies which side of the conversation produced a transcript
// entry.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Entry is one completed utterance in the conversation record.
type Entry struct {
	// Speaker is who said it.
	Speaker Speaker

	// Text is the full utterance, assembled from streamed fragments.
	Text string

	// Timestamp is the playback-timeline position at which the turn
	// completed.
	Timestamp time.Duration
}

// Transcript assembles streamed transcription fragments into turn-level
// entries. Fragments accumulate per speaker until the model signals the end
// of a turn, at which point both pending utterances are flushed atomically —
// the user's first, then the assistant's.
//
// Transcript is safe for concurrent use.
type Transcript struct {
	mu        sync.Mutex
	user      strings.Builder
	assistant strings.Builder
	entries   []Entry
}

// NewTranscript returns an empty Transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// AddUserFragment appends a fragment of the user's speech transcription to
// the pending turn.
func (t *Transcript) AddUserFragment(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.user.WriteString(text)
}

// AddAssistantFragment appends a fragment of the model's speech transcription
// to the pending turn.
func (t *Transcript) AddAssistantFragment(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.assistant.WriteString(text)
}

// CompleteTurn flushes the pending fragments into the entry list, stamped
// with the given timeline position. A speaker whose pending text is empty
// produces no entry. Fragments arriving after CompleteTurn start a new turn.
func (t *Transcript) CompleteTurn(at time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.user.Len() > 0 {
		t.entries = append(t.entries, Entry{Speaker: SpeakerUser, Text: t.user.String(), Timestamp: at})
		t.user.Reset()
	}
	if t.assistant.Len() > 0 {
		t.entries = append(t.entries, Entry{Speaker: SpeakerAssistant, Text: t.assistant.String(), Timestamp: at})
		t.assistant.Reset()
	}
}

// Entries returns a snapshot of all completed entries in order.
func (t *Transcript) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}
