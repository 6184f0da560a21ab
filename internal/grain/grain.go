// Package grain cuts short enveloped excerpts out of source files and
// turns them into a stream of fixed-size chunks.
package grain

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/satindergrewal/acouwalk/internal/audio"
)

const (
	DefaultDuration     = time.Second
	DefaultMinFraction  = 0.6
	DefaultMaxTTL       = 10
	DefaultTukeyAlpha   = 0.5
	DefaultChunkSamples = 1024 * 1024

	// MinSourceFrames is the shortest source a grain can be cut from.
	MinSourceFrames = 3
)

var ErrSourceTooShort = errors.New("source too short for a grain")

// Grain is a window into one source file. Toss re-randomises it before
// every extraction.
type Grain struct {
	Start     int
	Length    int
	MaxLength int

	minFraction float64
}

// New sizes a grain for a source at sourceRate. The longest grain lasts d.
func New(sourceRate int, d time.Duration, minFraction float64) *Grain {
	return &Grain{
		MaxLength:   int(int64(sourceRate) * d.Milliseconds() / 1000),
		minFraction: minFraction,
	}
}

// Toss picks a new length and start inside a source of frames frames. The
// length lies in [minFraction, 1] of MaxLength, clamped so the grain fits,
// and Start+Length+1 never exceeds frames.
func (g *Grain) Toss(frames int, rng *rand.Rand) error {
	if frames < MinSourceFrames {
		return fmt.Errorf("%w: %d frames", ErrSourceTooShort, frames)
	}
	limit := min(g.MaxLength, frames-2)
	scale := g.minFraction + (1-g.minFraction)*rng.Float64()
	g.Length = max(int(float64(limit)*scale), 1)
	g.Start = rng.IntN(frames - g.Length - 1)
	return nil
}

// Amplitude returns the envelope gain for frame pos of the grain.
func (g *Grain) Amplitude(pos int, alpha float64) float32 {
	return audio.Tukey(pos, g.Length, alpha)
}

// FrameReader is a seekable cursor over interleaved stereo 16-bit PCM.
type FrameReader interface {
	Seek(frame int) error
	ReadFrames(dst []int16) (int, error)
}

// Extract reads the grain's frames from r, normalises them, applies the
// envelope and reports whether the grain was muted. A single sample at
// either 16-bit extreme mutes the whole grain: the result keeps its length
// but is all zeros.
func Extract(r FrameReader, g *Grain, alpha float64) ([]float32, bool, error) {
	if err := r.Seek(g.Start); err != nil {
		return nil, false, err
	}
	pcm := make([]int16, g.Length*audio.Channels)
	n, err := r.ReadFrames(pcm)
	if err != nil {
		return nil, false, err
	}
	n -= n % audio.Channels
	pcm = pcm[:n]

	out := make([]float32, n)
	clipped := false
	for i, s := range pcm {
		if audio.Clipped(s) {
			clipped = true
		}
		out[i] = audio.Normalize(s) * g.Amplitude(i/audio.Channels, alpha)
	}
	if clipped {
		clear(out)
	}
	return out, clipped, nil
}
