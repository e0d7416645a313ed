// Package miniaudio implements the device.AudioSource interface on top of
// the miniaudio library (via the malgo bindings). It captures mono float
// samples from the default input device and regroups the driver's period
// callbacks into fixed-size blocks.
package miniaudio

import (
	"encoding/binary"
	"log/slog"
	"math"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/voxprep/voxprep/pkg/device"
)

// Compile-time assertion that Source satisfies device.AudioSource.
var _ device.AudioSource = (*Source)(nil)

// blockBuf is the buffer depth of the block stream. At the default block size
// this is roughly a second of audio; a consumer that falls further behind
// loses the oldest unconsumed capture time.
const blockBuf = 8

// Source captures microphone audio through miniaudio.
type Source struct {
	ctx    *malgo.AllocatedContext
	dev    *malgo.Device
	blocks chan []float32

	mu      sync.Mutex
	pending []float32
	dropped bool

	closeOnce sync.Once
	closeErr  error
}

// Open initialises the default capture device at cfg.SampleRate and starts
// streaming. Failure to find or start a device is reported as a
// [*device.Error].
func Open(cfg device.Config) (*Source, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, &device.Error{Reason: "initialise audio backend", Err: err}
	}

	s := &Source{
		ctx:    mctx,
		blocks: make(chan []float32, blockBuf),
	}

	devCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	devCfg.Capture.Format = malgo.FormatF32
	devCfg.Capture.Channels = 1
	devCfg.SampleRate = uint32(cfg.SampleRate)
	devCfg.PeriodSizeInMilliseconds = 20

	blockSize := cfg.BlockSize
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			s.onCapture(input, blockSize)
		},
	}

	dev, err := malgo.InitDevice(mctx.Context, devCfg, callbacks)
	if err != nil {
		_ = mctx.Uninit()
		return nil, &device.Error{Reason: "no capture device available", Err: err}
	}
	s.dev = dev

	if err := dev.Start(); err != nil {
		dev.Uninit()
		_ = mctx.Uninit()
		return nil, &device.Error{Reason: "start capture device", Err: err}
	}

	return s, nil
}

// onCapture runs on the miniaudio capture thread. It accumulates samples and
// emits complete blocks without ever blocking the audio thread: when the
// consumer is behind, the block is dropped.
func (s *Source) onCapture(input []byte, blockSize int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i+4 <= len(input); i += 4 {
		bits := binary.LittleEndian.Uint32(input[i:])
		s.pending = append(s.pending, math.Float32frombits(bits))
	}

	for len(s.pending) >= blockSize {
		block := make([]float32, blockSize)
		copy(block, s.pending[:blockSize])
		s.pending = s.pending[blockSize:]

		select {
		case s.blocks <- block:
		default:
			if !s.dropped {
				s.dropped = true
				slog.Warn("microphone consumer is behind, dropping capture blocks")
			}
		}
	}
}

// Blocks returns the stream of captured sample blocks.
func (s *Source) Blocks() <-chan []float32 { return s.blocks }

// Close stops the device, releases the backend, and closes the block stream.
func (s *Source) Close() error {
	s.closeOnce.Do(func() {
		if s.dev != nil {
			_ = s.dev.Stop()
			s.dev.Uninit()
		}
		if s.ctx != nil {
			s.closeErr = s.ctx.Uninit()
			s.ctx.Free()
		}
		close(s.blocks)
	})
	return s.closeErr
}
