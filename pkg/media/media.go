// Package media provides the codec utilities shared by the capture and
// playback paths: the text-safe (base64) transport encoding used on the
// duplex channel and the conversions between float sample buffers and
// little-endian 16-bit PCM.
package media

import (
	"encoding/base64"
	"time"
)

// MIME types for the media chunks voxprep produces.
const (
	// MIMEAudioPCM16k tags raw little-endian 16-bit mono PCM at 16 kHz,
	// the input format expected by the live channel.
	MIMEAudioPCM16k = "audio/pcm;rate=16000"

	// MIMEImageJPEG tags a JPEG-compressed camera frame.
	MIMEImageJPEG = "image/jpeg"
)

// Chunk is a single encoded media payload tagged with its content kind.
// Chunks are transient: created by a capture pipeline, sent, discarded.
type Chunk struct {
	// MIMEType identifies the payload format, e.g. [MIMEAudioPCM16k].
	MIMEType string

	// Data is the raw payload. The channel implementation applies the
	// text-safe transport encoding when it serialises the chunk.
	Data []byte
}

// Encode maps arbitrary bytes to the text-safe transport representation.
func Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Decode reverses [Encode]. It returns an error if s is not valid base64.
func Decode(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// FloatToPCM16 converts mono float samples in [-1, 1] to little-endian
// int16 PCM. Out-of-range samples are clamped to the int16 range rather
// than being allowed to wrap.
func FloatToPCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, f := range samples {
		v := int32(f * 32768)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		out[i*2] = byte(v)
		out[i*2+1] = byte(v >> 8)
	}
	return out
}

// PCM16ToFloat converts little-endian int16 PCM to mono float samples in
// [-1, 1). A trailing odd byte is ignored.
func PCM16ToFloat(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := range n {
		s := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		out[i] = float32(s) / 32768
	}
	return out
}

// Duration returns the play time of a little-endian 16-bit mono PCM payload
// of nBytes at the given sample rate. Returns zero for a non-positive rate.
func Duration(nBytes, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := nBytes / 2
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
