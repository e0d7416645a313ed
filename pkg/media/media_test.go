package media_test

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/voxprep/voxprep/pkg/media"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"single byte", []byte{0x7f}},
		{"zero byte", []byte{0x00}},
		{"short", []byte("hi")},
		{"binary", []byte{0x00, 0xff, 0x10, 0x80, 0x7f, 0x01}},
		{"longer", bytes.Repeat([]byte{0xde, 0xad, 0xbe, 0xef}, 100)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			enc := media.Encode(tc.data)
			got, err := media.Decode(enc)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !bytes.Equal(got, tc.data) {
				t.Errorf("round trip mismatch: got %v, want %v", got, tc.data)
			}
		})
	}
}

func TestDecode_InvalidInput(t *testing.T) {
	if _, err := media.Decode("not%%base64"); err == nil {
		t.Error("expected error for invalid base64 input")
	}
}

func TestFloatToPCM16_Scaling(t *testing.T) {
	pcm := media.FloatToPCM16([]float32{0, 0.5, -0.5, -1})
	got := pcmToInt16(pcm)
	want := []int16{0, 16384, -16384, -32768}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestFloatToPCM16_ClampsOutOfRange(t *testing.T) {
	// Values outside [-1, 1] must clamp, not wrap.
	pcm := media.FloatToPCM16([]float32{1.0, 2.5, -3.0})
	got := pcmToInt16(pcm)
	want := []int16{32767, 32767, -32768}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestPCM16ToFloat_RoundTrip(t *testing.T) {
	in := []float32{0, 0.25, -0.25, 0.99}
	out := media.PCM16ToFloat(media.FloatToPCM16(in))
	if len(out) != len(in) {
		t.Fatalf("length mismatch: got %d, want %d", len(out), len(in))
	}
	for i := range in {
		if diff := math.Abs(float64(out[i] - in[i])); diff > 1.0/32768 {
			t.Errorf("sample %d: got %f, want %f (diff %f)", i, out[i], in[i], diff)
		}
	}
}

func TestPCM16ToFloat_IgnoresTrailingOddByte(t *testing.T) {
	out := media.PCM16ToFloat([]byte{0x00, 0x40, 0x7f})
	if len(out) != 1 {
		t.Fatalf("got %d samples, want 1", len(out))
	}
}

func TestDuration(t *testing.T) {
	cases := []struct {
		name   string
		nBytes int
		rate   int
		want   time.Duration
	}{
		{"half second at 24k", 24000, 24000, 500 * time.Millisecond},
		{"one second at 16k", 32000, 16000, time.Second},
		{"empty", 0, 24000, 0},
		{"zero rate", 1000, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := media.Duration(tc.nBytes, tc.rate); got != tc.want {
				t.Errorf("Duration(%d, %d) = %v, want %v", tc.nBytes, tc.rate, got, tc.want)
			}
		})
	}
}

func pcmToInt16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(b[i*2]) | int16(b[i*2+1])<<8
	}
	return out
}
