// Package audiotest holds shared fixtures for package tests: synthetic WAV
// files on an in-memory filesystem and an in-memory PCM cursor.
package audiotest

import (
	"fmt"
	"math"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"
)

// WriteWAV encodes interleaved samples as a linear PCM WAV file at path on fs.
func WriteWAV(tb testing.TB, fs afero.Fs, path string, rate, channels, bitDepth int, samples []int) {
	tb.Helper()

	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		tb.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	f, err := fs.Create(path)
	if err != nil {
		tb.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, bitDepth, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           samples,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		tb.Fatalf("encode %s: %v", path, err)
	}
	if err := enc.Close(); err != nil {
		tb.Fatalf("finish %s: %v", path, err)
	}
}

// WriteStereo writes a 16-bit stereo file holding frames frames of a quiet
// sine tone.
func WriteStereo(tb testing.TB, fs afero.Fs, path string, rate, frames int) {
	tb.Helper()
	WriteWAV(tb, fs, path, rate, 2, 16, Sine(frames, 2, rate, 440, 0.25))
}

// Sine returns interleaved 16-bit samples of a sine tone at amplitude amp.
func Sine(frames, channels, rate int, freq, amp float64) []int {
	out := make([]int, frames*channels)
	for i := range frames {
		v := int(math.Round(amp * 32767 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate))))
		for ch := range channels {
			out[i*channels+ch] = v
		}
	}
	return out
}

// Constant returns frames*channels copies of v.
func Constant(frames, channels, v int) []int {
	out := make([]int, frames*channels)
	for i := range out {
		out[i] = v
	}
	return out
}

// SliceReader is an in-memory stereo PCM cursor.
type SliceReader struct {
	Samples []int16 // interleaved stereo
	pos     int
}

func (r *SliceReader) Frames() int { return len(r.Samples) / 2 }

func (r *SliceReader) Seek(frame int) error {
	if frame < 0 || frame > r.Frames() {
		return fmt.Errorf("seek to frame %d: out of range", frame)
	}
	r.pos = frame * 2
	return nil
}

func (r *SliceReader) ReadFrames(dst []int16) (int, error) {
	n := copy(dst, r.Samples[r.pos:])
	r.pos += n
	return n, nil
}
