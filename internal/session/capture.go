package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"time"

	"golang.org/x/image/draw"

	"github.com/voxprep/voxprep/pkg/channel"
	"github.com/voxprep/voxprep/pkg/device"
	"github.com/voxprep/voxprep/pkg/media"
)

// frameInterval is the camera sampling period: one frame per second is
// plenty for the model to see the candidate while keeping upload bandwidth
// negligible next to the audio stream.
const frameInterval = time.Second

// runAudioCapture forwards microphone blocks to the channel until the
// context is cancelled or the source closes. A closed channel is a clean
// exit: teardown owns the shutdown, the pipeline just stops feeding it.
func (m *Manager) runAudioCapture(ctx context.Context, ch channel.Channel, src device.AudioSource) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case block, ok := <-src.Blocks():
			if !ok {
				return nil
			}
			chunk := media.Chunk{
				MIMEType: media.MIMEAudioPCM16k,
				Data:     media.FloatToPCM16(block),
			}
			if err := ch.SendRealtimeInput(chunk); err != nil {
				if errors.Is(err, channel.ErrClosed) {
					return nil
				}
				return fmt.Errorf("session: send audio chunk: %w", err)
			}
			m.metrics.AudioChunksSent.Add(ctx, 1)
		}
	}
}

// runVideoSampler grabs one camera frame per second, scales and encodes it,
// and forwards it to the channel. A tick whose frame cannot be captured or
// encoded is skipped and counted; the sampler keeps running.
func (m *Manager) runVideoSampler(ctx context.Context, ch channel.Channel, src device.FrameSource) error {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			frame, err := src.Frame()
			if err != nil {
				m.metrics.RecordFrameDropped(ctx, "capture")
				slog.Debug("skipping camera tick", "err", err)
				continue
			}

			data, err := m.encodeFrame(frame)
			if err != nil {
				m.metrics.RecordFrameDropped(ctx, "encode")
				slog.Debug("skipping unencodable frame", "err", err)
				continue
			}

			chunk := media.Chunk{MIMEType: media.MIMEImageJPEG, Data: data}
			if err := ch.SendRealtimeInput(chunk); err != nil {
				if errors.Is(err, channel.ErrClosed) {
					return nil
				}
				return fmt.Errorf("session: send video frame: %w", err)
			}
			m.metrics.VideoFramesSent.Add(ctx, 1)
		}
	}
}

// encodeFrame scales a captured frame to the configured upload dimensions
// and encodes it as JPEG.
func (m *Manager) encodeFrame(frame image.Image) ([]byte, error) {
	scaled := image.NewRGBA(image.Rect(0, 0, m.cfg.Video.Width, m.cfg.Video.Height))
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), frame, frame.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: m.cfg.Video.Quality}); err != nil {
		return nil, fmt.Errorf("session: encode frame: %w", err)
	}
	return buf.Bytes(), nil
}
