// Package v4l2 implements the device.FrameSource interface for Video4Linux2
// cameras using the blackjack/webcam library. Frames are captured in YUYV
// (YUV 4:2:2) and converted to image.YCbCr on demand.
package v4l2

import (
	"image"
	"sync"

	"github.com/blackjack/webcam"

	"github.com/voxprep/voxprep/pkg/device"
)

// Compile-time assertion that Camera satisfies device.FrameSource.
var _ device.FrameSource = (*Camera)(nil)

// pixFmtYUYV is the V4L2 fourcc for packed YUV 4:2:2 ('YUYV', little-endian).
const pixFmtYUYV = webcam.PixelFormat(0x56595559)

// frameWaitMillis bounds how long a Frame call waits for the driver to
// deliver a buffer before the tick is treated as skipped.
const frameWaitMillis = 200

// Camera grabs frames from a V4L2 capture device.
type Camera struct {
	mu     sync.Mutex
	cam    *webcam.Webcam
	width  int
	height int
	closed bool
}

// Open opens the camera at path (e.g. "/dev/video0") and negotiates a YUYV
// stream close to the requested size. The driver may adjust the dimensions;
// the actual negotiated size is used for conversion.
func Open(path string, width, height int) (*Camera, error) {
	cam, err := webcam.Open(path)
	if err != nil {
		return nil, &device.Error{Reason: "no camera available", Err: err}
	}

	if _, ok := cam.GetSupportedFormats()[pixFmtYUYV]; !ok {
		_ = cam.Close()
		return nil, &device.Error{Reason: "camera does not support YUYV capture"}
	}

	_, w, h, err := cam.SetImageFormat(pixFmtYUYV, uint32(width), uint32(height))
	if err != nil {
		_ = cam.Close()
		return nil, &device.Error{Reason: "configure camera format", Err: err}
	}

	if err := cam.StartStreaming(); err != nil {
		_ = cam.Close()
		return nil, &device.Error{Reason: "start camera stream", Err: err}
	}

	return &Camera{cam: cam, width: int(w), height: int(h)}, nil
}

// Frame grabs the next available frame. An error means the tick should be
// skipped; the camera remains usable for later ticks.
func (c *Camera) Frame() (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, &device.Error{Reason: "camera closed"}
	}

	if err := c.cam.WaitForFrame(frameWaitMillis); err != nil {
		return nil, err
	}
	raw, err := c.cam.ReadFrame()
	if err != nil {
		return nil, err
	}
	if len(raw) < c.width*c.height*2 {
		return nil, &device.Error{Reason: "short camera frame"}
	}

	return yuyvToImage(raw, c.width, c.height), nil
}

// Close releases the camera. Idempotent.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	_ = c.cam.StopStreaming()
	return c.cam.Close()
}

// yuyvToImage unpacks a YUYV buffer into an image.YCbCr with 4:2:2
// subsampling. Each four input bytes describe two horizontally adjacent
// pixels: Y0 Cb Y1 Cr.
func yuyvToImage(raw []byte, width, height int) *image.YCbCr {
	img := image.NewYCbCr(image.Rect(0, 0, width, height), image.YCbCrSubsampleRatio422)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x += 2 {
			i := (y*width + x) * 2
			img.Y[y*img.YStride+x] = raw[i]
			img.Y[y*img.YStride+x+1] = raw[i+2]
			ci := y*img.CStride + x/2
			img.Cb[ci] = raw[i+1]
			img.Cr[ci] = raw[i+3]
		}
	}
	return img
}
