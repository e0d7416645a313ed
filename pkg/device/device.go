// Package device defines the capture-device boundary of voxprep.
//
// A [Device] bundles the two local capture sources a session needs: a
// microphone delivering fixed-size blocks of mono float samples, and an
// optional camera delivering still frames on demand. Concrete sources are
// provided by adapter packages (device/miniaudio for the microphone,
// device/v4l2 for the camera) and by device/mock for tests.
//
// Access is all-or-nothing: an [Opener] either yields every requested source
// or fails with a [*Error]. There is no partial grant — a missing camera when
// video was requested fails the whole open, and the session never dials the
// remote channel.
package device

import (
	"context"
	"errors"
	"fmt"
	"image"
)

// Config describes the audio capture parameters requested from an [Opener].
type Config struct {
	// SampleRate is the microphone capture rate in Hz.
	SampleRate int

	// BlockSize is the number of samples per emitted block.
	BlockSize int
}

// Error reports a capture-device failure: permission denied, no such device,
// or a device that cannot be configured as requested. It is fatal to the
// session being started.
type Error struct {
	// Reason is a short human-readable description suitable for display.
	Reason string

	// Err is the underlying driver error, if any.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("device: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("device: %s", e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// AudioSource is a live microphone stream.
type AudioSource interface {
	// Blocks returns the stream of fixed-size mono sample blocks. The channel
	// is closed when the source is closed. Blocks arrive in capture order.
	Blocks() <-chan []float32

	// Close stops capture and closes the block stream. Idempotent.
	Close() error
}

// FrameSource is a live camera. Frame grabbing is pull-based: the video
// sampler asks for the current frame once per tick.
type FrameSource interface {
	// Frame returns the most recent camera frame. An error means no frame is
	// available right now; callers treat that as a skipped tick, not a fault.
	Frame() (image.Image, error)

	// Close releases the camera. Idempotent.
	Close() error
}

// Device is the bundle of capture sources owned by one session. Camera is nil
// when the session was opened without video.
type Device struct {
	Audio  AudioSource
	Camera FrameSource
}

// Close releases all sources. Safe to call more than once.
func (d *Device) Close() error {
	var errs []error
	if d.Audio != nil {
		errs = append(errs, d.Audio.Close())
	}
	if d.Camera != nil {
		errs = append(errs, d.Camera.Close())
	}
	return errors.Join(errs...)
}

// Opener acquires the local capture devices for a new session. On failure it
// returns a [*Error] (wrapped or not) and no resources remain held.
type Opener func(ctx context.Context, cfg Config) (*Device, error)
