// Package mock provides in-memory mock implementations of the
// [device.AudioSource] and [device.FrameSource] interfaces, plus a canned
// [device.Opener], for use in unit tests.
//
// All mocks are safe for concurrent use. They record method calls so tests
// can assert on call counts, and they expose exported fields the test can set
// to control behaviour.
package mock

import (
	"context"
	"image"
	"sync"

	"github.com/voxprep/voxprep/pkg/device"
)

// ─── AudioSource ──────────────────────────────────────────────────────────────

// AudioSource is a scripted microphone. Feed blocks with [AudioSource.Emit];
// Close closes the stream.
type AudioSource struct {
	once   sync.Once
	blocks chan []float32

	mu             sync.Mutex
	CallCountClose int
}

// NewAudioSource creates an AudioSource with a buffered block stream.
func NewAudioSource() *AudioSource {
	return &AudioSource{blocks: make(chan []float32, 16)}
}

// Emit delivers one capture block to the stream. Panics if called after Close,
// which is a test bug.
func (a *AudioSource) Emit(block []float32) {
	a.blocks <- block
}

// Blocks implements [device.AudioSource].
func (a *AudioSource) Blocks() <-chan []float32 { return a.blocks }

// Close implements [device.AudioSource]. Closes the stream once.
func (a *AudioSource) Close() error {
	a.mu.Lock()
	a.CallCountClose++
	a.mu.Unlock()
	a.once.Do(func() { close(a.blocks) })
	return nil
}

// ─── FrameSource ──────────────────────────────────────────────────────────────

// FrameSource is a scripted camera.
type FrameSource struct {
	mu sync.Mutex

	// FrameResult is returned by Frame when FrameError is nil. Defaults to a
	// 4×4 gray image when left nil.
	FrameResult image.Image

	// FrameError, when non-nil, is returned by Frame instead of a frame.
	FrameError error

	// CallCountFrame records how many times Frame was called.
	CallCountFrame int

	// CallCountClose records how many times Close was called.
	CallCountClose int
}

// Frame implements [device.FrameSource].
func (f *FrameSource) Frame() (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CallCountFrame++
	if f.FrameError != nil {
		return nil, f.FrameError
	}
	if f.FrameResult == nil {
		return image.NewGray(image.Rect(0, 0, 4, 4)), nil
	}
	return f.FrameResult, nil
}

// SetFrameError swaps the scripted error mid-test.
func (f *FrameSource) SetFrameError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FrameError = err
}

// Close implements [device.FrameSource].
func (f *FrameSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CallCountClose++
	return nil
}

// ─── Opener ───────────────────────────────────────────────────────────────────

// Opener is a canned [device.Opener].
type Opener struct {
	mu sync.Mutex

	// Device is returned on success. When nil and OpenError is nil, a fresh
	// Device with a NewAudioSource and no camera is returned.
	Device *device.Device

	// OpenError, when non-nil, is returned instead of a device.
	OpenError error

	// CallCountOpen records how many times Open was called.
	CallCountOpen int
}

// Open implements [device.Opener] as a method value: pass o.Open where an
// Opener is expected.
func (o *Opener) Open(_ context.Context, _ device.Config) (*device.Device, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.CallCountOpen++
	if o.OpenError != nil {
		return nil, o.OpenError
	}
	if o.Device == nil {
		o.Device = &device.Device{Audio: NewAudioSource()}
	}
	return o.Device, nil
}
