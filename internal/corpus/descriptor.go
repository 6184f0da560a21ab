// Package corpus discovers stereo WAV files, weighs them by duration and
// hands randomly chosen ones to the grain engines.
package corpus

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/satindergrewal/acouwalk/internal/audio"
)

var (
	// ErrNotWAV is returned by Describe for paths without a .wav extension.
	ErrNotWAV = errors.New("not a .wav file")
	// ErrNotStereo marks sources that do not have exactly two channels.
	ErrNotStereo = errors.New("not a stereo file")
)

// Descriptor identifies one usable source file. It is immutable once
// created and always describes a two-channel file.
type Descriptor struct {
	Path       string
	Frames     int
	SampleRate int
	Channels   int
	// Weight is the selection weight in milliseconds: the duration,
	// capped at the configured maximum.
	Weight float64
}

// Corpus is the fixed set of usable sources, built once and shared
// read-only.
type Corpus []Descriptor

// TotalWeight sums the weights of every descriptor.
func (c Corpus) TotalWeight() float64 {
	var sum float64
	for _, d := range c {
		sum += d.Weight
	}
	return sum
}

// IsWAV reports whether path carries a .wav extension in any case.
func IsWAV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".wav")
}

// Describe reads the header of the WAV file at path and builds its
// descriptor. capMs caps the weight when positive.
func Describe(fs afero.Fs, path string, capMs float64) (Descriptor, error) {
	if !IsWAV(path) {
		return Descriptor{}, ErrNotWAV
	}

	r, err := audio.OpenWAV(fs, path)
	if err != nil {
		return Descriptor{}, err
	}
	defer r.Close()

	if r.Channels() != audio.Channels {
		return Descriptor{}, fmt.Errorf("%s: %w (%d channels)", path, ErrNotStereo, r.Channels())
	}
	if r.Frames() == 0 || r.SampleRate() == 0 {
		return Descriptor{}, fmt.Errorf("%s: %w", path, audio.ErrInvalidWAV)
	}

	weight := float64(r.Frames()) / (float64(r.SampleRate()) / 1000)
	if capMs > 0 && weight > capMs {
		slog.Info("capping selection weight", "path", path, "length_ms", weight, "cap_ms", capMs)
		weight = capMs
	}

	return Descriptor{
		Path:       path,
		Frames:     r.Frames(),
		SampleRate: r.SampleRate(),
		Channels:   r.Channels(),
		Weight:     weight,
	}, nil
}
