package audio

import (
	"errors"
	"fmt"

	"github.com/dh1tw/gosamplerate"
	resampler "github.com/tphakala/go-audio-resampler"
)

const (
	ConverterSamplerate = "samplerate"
	ConverterSoxr       = "soxr"
)

var ErrUnknownConverter = errors.New("unknown sample-rate converter")

// Converter changes the sample rate of interleaved float32 audio. One call
// converts one grain; implementations keep no state between calls.
type Converter interface {
	Convert(srcRate, dstRate, channels int, in []float32) ([]float32, error)
}

// NewConverter returns the converter registered under name.
func NewConverter(name string) (Converter, error) {
	switch name {
	case ConverterSamplerate:
		return SincConverter{Quality: gosamplerate.SRC_SINC_BEST_QUALITY}, nil
	case ConverterSoxr:
		return SoxrConverter{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownConverter, name)
	}
}

// SincConverter uses libsamplerate's one-shot API.
type SincConverter struct {
	Quality int
}

func (c SincConverter) Convert(srcRate, dstRate, channels int, in []float32) ([]float32, error) {
	if srcRate == dstRate || len(in) == 0 {
		return in, nil
	}
	out, err := gosamplerate.Simple(in, float64(dstRate)/float64(srcRate), channels, c.Quality)
	if err != nil {
		return nil, fmt.Errorf("samplerate %d->%d: %w", srcRate, dstRate, err)
	}
	return out, nil
}

// SoxrConverter uses the pure-Go soxr port at its high quality preset. It
// only handles stereo input.
type SoxrConverter struct{}

func (c SoxrConverter) Convert(srcRate, dstRate, channels int, in []float32) ([]float32, error) {
	if srcRate == dstRate || len(in) == 0 {
		return in, nil
	}
	if channels != Channels {
		return nil, fmt.Errorf("soxr: %d channels, want %d", channels, Channels)
	}

	left, right := Deinterleave(in)
	outL, outR, err := resampler.ResampleStereoFloat32(left, right, float64(srcRate), float64(dstRate), resampler.QualityHigh)
	if err != nil {
		return nil, fmt.Errorf("soxr %d->%d: %w", srcRate, dstRate, err)
	}
	return Interleave(outL, outR), nil
}

// Deinterleave splits stereo samples into left and right planes.
func Deinterleave(in []float32) (left, right []float32) {
	frames := len(in) / 2
	left = make([]float32, frames)
	right = make([]float32, frames)
	for i := range frames {
		left[i] = in[2*i]
		right[i] = in[2*i+1]
	}
	return left, right
}

// Interleave merges two planes into stereo samples. The shorter plane sets
// the length.
func Interleave(left, right []float32) []float32 {
	frames := min(len(left), len(right))
	out := make([]float32, 2*frames)
	for i := range frames {
		out[2*i] = left[i]
		out[2*i+1] = right[i]
	}
	return out
}
