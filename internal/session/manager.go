// Package session implements the interview session engine: lifecycle
// management, the media capture pipelines, the playback scheduler, and the
// transcript record.
//
// A [Manager] drives one session at a time through the states idle →
// connecting → active → closed. Capture devices are opened before the live
// channel is dialled, so a missing microphone fails fast without touching
// the network. All server events are consumed by a single event loop
// goroutine, which keeps transcript and playback ordering identical to
// arrival order.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/voxprep/voxprep/internal/config"
	"github.com/voxprep/voxprep/internal/observe"
	"github.com/voxprep/voxprep/pkg/channel"
	"github.com/voxprep/voxprep/pkg/device"
)

// State is the lifecycle phase of a session.
type State string

const (
	// StateIdle means no session has been started yet.
	StateIdle State = "idle"

	// StateConnecting means devices are being opened and the channel dialled.
	StateConnecting State = "connecting"

	// StateActive means the channel is open and media is flowing.
	StateActive State = "active"

	// StateClosed means the session ended; a new one may be started.
	StateClosed State = "closed"
)

var (
	// ErrAlreadyStarted is returned by Start while a session is connecting
	// or active.
	ErrAlreadyStarted = errors.New("session: already started")

	// ErrSuperseded is returned by Start when a concurrent Stop or restart
	// overtook it mid-setup. Resources acquired by the losing Start are
	// released before it returns.
	ErrSuperseded = errors.New("session: start superseded")
)

// Option is a functional option for configuring a [Manager].
type Option func(*Manager)

// WithClock overrides the playback timeline clock. Useful in tests.
func WithClock(c Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithMetrics overrides the metrics instance. Tests use this with an
// isolated meter provider to avoid cross-test pollution.
func WithMetrics(met *observe.Metrics) Option {
	return func(m *Manager) { m.metrics = met }
}

// Manager owns the lifecycle of one interview session at a time.
//
// Manager is safe for concurrent use. Stop is idempotent and may race a
// Start in progress: every async setup step re-checks the session
// generation under the lock and releases whatever it acquired when it lost.
type Manager struct {
	cfg      *config.Config
	provider channel.Provider
	opener   device.Opener
	sink     Sink
	metrics  *observe.Metrics
	clock    Clock

	mu         sync.Mutex
	state      State
	gen        int
	ch         channel.Channel
	dev        *device.Device
	cancel     context.CancelFunc
	done       chan struct{}
	errVal     error
	transcript *Transcript
	scheduler  *Scheduler
	router     *Router
}

// NewManager creates an idle Manager. The provider is dialled and devices
// opened only when [Manager.Start] is called.
func NewManager(cfg *config.Config, provider channel.Provider, opener device.Opener, sink Sink, opts ...Option) *Manager {
	m := &Manager{
		cfg:      cfg,
		provider: provider,
		opener:   opener,
		sink:     sink,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.clock == nil {
		m.clock = NewWallClock()
	}
	if m.metrics == nil {
		m.metrics = observe.DefaultMetrics()
	}
	m.transcript = NewTranscript()
	m.scheduler = NewScheduler(m.clock, m.sink, m.cfg.Audio.OutputSampleRate)
	m.router = NewRouter(m.transcript, m.scheduler, m.metrics)
	return m
}

// Start opens the capture devices, connects the live channel, and launches
// the event loop. It returns once the connection is established; the
// transition to [StateActive] happens when the server acknowledges setup.
//
// Valid from [StateIdle] and [StateClosed]. Device failure closes the
// session without ever dialling the channel.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateConnecting || m.state == StateActive {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.gen++
	gen := m.gen
	m.state = StateConnecting
	m.errVal = nil
	m.done = make(chan struct{})
	m.transcript = NewTranscript()
	m.scheduler = NewScheduler(m.clock, m.sink, m.cfg.Audio.OutputSampleRate)
	m.router = NewRouter(m.transcript, m.scheduler, m.metrics)
	router := m.router
	m.mu.Unlock()

	dev, err := m.opener(ctx, device.Config{
		SampleRate: m.cfg.Audio.InputSampleRate,
		BlockSize:  m.cfg.Audio.BlockSize,
	})
	if err != nil {
		wrapped := fmt.Errorf("session: open capture devices: %w", err)
		slog.Error("could not access the microphone or camera; check that a capture device is connected and not in use", "err", err)
		m.failStart(gen, wrapped)
		return wrapped
	}

	m.mu.Lock()
	if m.gen != gen || m.state != StateConnecting {
		m.mu.Unlock()
		_ = dev.Close()
		return ErrSuperseded
	}
	m.dev = dev
	m.mu.Unlock()

	ch, err := m.provider.Connect(ctx, channel.Config{
		Model:               m.cfg.Channel.Model,
		Voice:               m.cfg.Channel.Voice,
		SystemInstruction:   m.cfg.Interview.RenderInstructions(),
		InputTranscription:  true,
		OutputTranscription: true,
	})
	if err != nil {
		wrapped := fmt.Errorf("session: connect channel: %w", err)
		slog.Error("could not connect to the interview service", "err", err)
		m.failStart(gen, wrapped)
		return wrapped
	}

	m.mu.Lock()
	if m.gen != gen || m.state != StateConnecting {
		m.mu.Unlock()
		_ = ch.Close()
		return ErrSuperseded
	}
	m.ch = ch
	// The session outlives Start's ctx, which is often a short dial
	// timeout. Cancellation of the run is owned by Stop / teardown.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.cancel = cancel
	m.mu.Unlock()

	go m.eventLoop(runCtx, gen, router, ch, dev)
	return nil
}

// failStart moves a losing or failed Start to [StateClosed], releasing
// whatever was acquired so far.
func (m *Manager) failStart(gen int, cause error) {
	m.mu.Lock()
	if m.gen != gen || m.state != StateConnecting {
		m.mu.Unlock()
		return
	}
	m.state = StateClosed
	m.errVal = cause
	dev := m.dev
	m.dev = nil
	done := m.done
	m.mu.Unlock()

	if dev != nil {
		_ = dev.Close()
	}
	close(done)
}

// eventLoop is the single consumer of the channel's event stream. Routing
// every event from one goroutine guarantees transcript and playback order
// matches arrival order.
func (m *Manager) eventLoop(ctx context.Context, gen int, router *Router, ch channel.Channel, dev *device.Device) {
	for {
		select {
		case <-ctx.Done():
			m.teardown(gen, nil)
			return

		case ev, ok := <-ch.Events():
			if !ok {
				m.teardown(gen, ch.Err())
				return
			}
			switch ev.Kind {
			case channel.EventOpen:
				m.activate(ctx, gen, ch, dev)
			case channel.EventError:
				m.teardown(gen, ev.Err)
				return
			default:
				router.Dispatch(ctx, ev)
			}
		}
	}
}

// activate transitions connecting → active and starts the capture
// pipelines.
func (m *Manager) activate(ctx context.Context, gen int, ch channel.Channel, dev *device.Device) {
	m.mu.Lock()
	if m.gen != gen || m.state != StateConnecting {
		m.mu.Unlock()
		return
	}
	m.state = StateActive
	scheduler := m.scheduler
	m.mu.Unlock()

	scheduler.Activate()
	m.metrics.ActiveSessions.Add(ctx, 1)
	slog.Info("session active",
		"role", m.cfg.Interview.Role,
		"experience", m.cfg.Interview.Experience,
		"video", dev.Camera != nil,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return m.runAudioCapture(gctx, ch, dev.Audio)
	})
	if dev.Camera != nil {
		g.Go(func() error {
			return m.runVideoSampler(gctx, ch, dev.Camera)
		})
	}
	go func() {
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("capture pipeline stopped", "err", err)
		}
	}()
}

// teardown is the single funnel through which every session ends: user
// stop, context cancellation, server error, or stream closure. It releases
// all resources exactly once per generation.
func (m *Manager) teardown(gen int, cause error) {
	m.mu.Lock()
	if m.gen != gen || m.state == StateClosed {
		m.mu.Unlock()
		return
	}
	wasActive := m.state == StateActive
	m.state = StateClosed
	if cause != nil && m.errVal == nil {
		m.errVal = cause
	}
	ch := m.ch
	m.ch = nil
	dev := m.dev
	m.dev = nil
	cancel := m.cancel
	m.cancel = nil
	done := m.done
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if ch != nil {
		_ = ch.Close()
	}
	if dev != nil {
		_ = dev.Close()
	}
	m.sink.Discard()

	if wasActive {
		m.metrics.ActiveSessions.Add(context.Background(), -1)
	}
	if cause != nil {
		slog.Error("session ended", "err", cause)
	} else {
		slog.Info("session closed")
	}
	close(done)
}

// Stop ends the current session. It is idempotent: stopping an idle or
// already-closed manager is a no-op, and concurrent calls release resources
// once.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.state == StateIdle || m.state == StateClosed {
		m.mu.Unlock()
		return
	}
	gen := m.gen
	m.mu.Unlock()

	m.teardown(gen, nil)
}

// State returns the current lifecycle phase.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err returns the error that ended the most recent session, or nil after a
// clean stop.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errVal
}

// Transcript returns the conversation record of the current (or most
// recent) session.
func (m *Manager) Transcript() *Transcript {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transcript
}

// Done returns a channel closed when the current session ends. Before the
// first Start it returns an already-closed channel.
func (m *Manager) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return m.done
}
