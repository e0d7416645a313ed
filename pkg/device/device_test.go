package device_test

import (
	"errors"
	"testing"

	"github.com/voxprep/voxprep/pkg/device"
	"github.com/voxprep/voxprep/pkg/device/mock"
)

func TestErrorMessageAndUnwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("permission denied")
	err := &device.Error{Reason: "no capture device available", Err: cause}

	if got := err.Error(); got == "" || got == cause.Error() {
		t.Errorf("Error() = %q, want reason and cause", got)
	}
	if !errors.Is(err, cause) {
		t.Error("expected Unwrap to expose the cause")
	}

	bare := &device.Error{Reason: "camera closed"}
	if bare.Error() == "" {
		t.Error("Error() without a cause should still describe the reason")
	}
}

func TestDeviceCloseClosesAllSources(t *testing.T) {
	t.Parallel()

	audio := mock.NewAudioSource()
	camera := &mock.FrameSource{}
	dev := &device.Device{Audio: audio, Camera: camera}

	if err := dev.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if audio.CallCountClose != 1 {
		t.Errorf("audio close count = %d, want 1", audio.CallCountClose)
	}
	if camera.CallCountClose != 1 {
		t.Errorf("camera close count = %d, want 1", camera.CallCountClose)
	}
}

func TestDeviceCloseWithoutCamera(t *testing.T) {
	t.Parallel()

	dev := &device.Device{Audio: mock.NewAudioSource()}
	if err := dev.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
