package audio

import (
	"errors"
	"testing"
)

func TestNewConverter(t *testing.T) {
	for _, name := range []string{ConverterSamplerate, ConverterSoxr} {
		if _, err := NewConverter(name); err != nil {
			t.Errorf("NewConverter(%q): %v", name, err)
		}
	}
	if _, err := NewConverter("linear"); !errors.Is(err, ErrUnknownConverter) {
		t.Errorf("NewConverter(linear) err = %v, want ErrUnknownConverter", err)
	}
}

func TestConvertersPassThroughEqualRates(t *testing.T) {
	in := []float32{0.1, -0.1, 0.2, -0.2}
	for _, c := range []Converter{SincConverter{}, SoxrConverter{}} {
		out, err := c.Convert(44100, 44100, 2, in)
		if err != nil {
			t.Fatalf("%T: %v", c, err)
		}
		if &out[0] != &in[0] {
			t.Errorf("%T: equal rates should return the input unchanged", c)
		}
	}
}

func TestSoxrRejectsMono(t *testing.T) {
	if _, err := (SoxrConverter{}).Convert(44100, 48000, 1, make([]float32, 64)); err == nil {
		t.Error("expected an error for mono input")
	}
}

func TestInterleaveRoundTrip(t *testing.T) {
	in := []float32{1, -1, 2, -2, 3, -3}
	left, right := Deinterleave(in)
	if len(left) != 3 || left[2] != 3 || right[2] != -3 {
		t.Fatalf("Deinterleave = %v %v", left, right)
	}
	out := Interleave(left, right)
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("sample %d = %v, want %v", i, out[i], in[i])
		}
	}
	if got := Interleave([]float32{1, 2}, []float32{3}); len(got) != 2 {
		t.Errorf("uneven planes: len = %d, want 2", len(got))
	}
}
