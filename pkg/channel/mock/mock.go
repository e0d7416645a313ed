// Package mock provides in-memory mock implementations of the
// [channel.Provider] and [channel.Channel] interfaces for use in unit tests.
//
// The mock channel is scripted: tests push inbound events with
// [Channel.Emit] and inspect outbound chunks via [Channel.Sent].
// All mocks are safe for concurrent use.
package mock

import (
	"context"
	"sync"

	"github.com/voxprep/voxprep/pkg/channel"
	"github.com/voxprep/voxprep/pkg/media"
)

// ─── Channel ──────────────────────────────────────────────────────────────────

// Channel is a scripted [channel.Channel].
type Channel struct {
	events chan channel.Event
	once   sync.Once

	mu sync.Mutex

	// SendError, when non-nil, is returned by SendRealtimeInput.
	SendError error

	// ErrResult is returned by Err after the event stream closes.
	ErrResult error

	// CallCountClose records how many times Close was called.
	CallCountClose int

	sent []media.Chunk
}

// NewChannel creates a Channel with a buffered event stream.
func NewChannel() *Channel {
	return &Channel{events: make(chan channel.Event, 64)}
}

// Emit delivers one inbound event to the consumer.
func (c *Channel) Emit(ev channel.Event) {
	c.events <- ev
}

// Events implements [channel.Channel].
func (c *Channel) Events() <-chan channel.Event { return c.events }

// SendRealtimeInput implements [channel.Channel]. Chunks are recorded and
// retrievable via [Channel.Sent].
func (c *Channel) SendRealtimeInput(chunk media.Chunk) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendError != nil {
		return c.SendError
	}
	c.sent = append(c.sent, chunk)
	return nil
}

// Sent returns a snapshot of every chunk submitted so far.
func (c *Channel) Sent() []media.Chunk {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]media.Chunk, len(c.sent))
	copy(out, c.sent)
	return out
}

// Err implements [channel.Channel].
func (c *Channel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ErrResult
}

// Close implements [channel.Channel]. The first call closes the event stream;
// subsequent calls are no-ops.
func (c *Channel) Close() error {
	c.mu.Lock()
	c.CallCountClose++
	c.mu.Unlock()
	c.once.Do(func() { close(c.events) })
	return nil
}

// ─── Provider ─────────────────────────────────────────────────────────────────

// Provider is a canned [channel.Provider].
type Provider struct {
	mu sync.Mutex

	// Channel is returned by Connect. When nil and ConnectError is nil, a
	// fresh [NewChannel] is created and stored.
	Channel *Channel

	// ConnectError, when non-nil, is returned instead of a channel.
	ConnectError error

	// CallCountConnect records how many times Connect was called.
	CallCountConnect int

	// LastConfig holds the Config passed to the most recent Connect call.
	LastConfig channel.Config
}

// Connect implements [channel.Provider].
func (p *Provider) Connect(_ context.Context, cfg channel.Config) (channel.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CallCountConnect++
	p.LastConfig = cfg
	if p.ConnectError != nil {
		return nil, p.ConnectError
	}
	if p.Channel == nil {
		p.Channel = NewChannel()
	}
	return p.Channel, nil
}
