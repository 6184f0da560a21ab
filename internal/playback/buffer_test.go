package playback

import (
	"testing"

	"github.com/satindergrewal/acouwalk/internal/audio"
)

func assertFloats(t *testing.T, name string, got, want []float32) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: len = %d, want %d", name, len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%s = %v, want %v", name, got, want)
		}
	}
}

func TestFillDeinterleaves(t *testing.T) {
	src := make(chan audio.Chunk, 1)
	src <- audio.Chunk{1, -1, 2, -2, 3, -3, 4, -4}
	b := NewBuffer(src, 44100)

	left, right := make([]float32, 2), make([]float32, 2)
	if !b.Fill(left, right) {
		t.Fatal("Fill returned false")
	}
	assertFloats(t, "left", left, []float32{1, 2})
	assertFloats(t, "right", right, []float32{-1, -2})

	if !b.Fill(left, right) {
		t.Fatal("Fill returned false")
	}
	assertFloats(t, "left", left, []float32{3, 4})
	assertFloats(t, "right", right, []float32{-3, -4})
}

func TestFillReceivesUntilEnough(t *testing.T) {
	src := make(chan audio.Chunk, 3)
	for i := range 3 {
		v := float32(i + 1)
		src <- audio.Chunk{v, -v, v, -v}
	}
	b := NewBuffer(src, 44100)

	left, right := make([]float32, 5), make([]float32, 5)
	if !b.Fill(left, right) {
		t.Fatal("Fill returned false")
	}
	assertFloats(t, "left", left, []float32{1, 1, 2, 2, 3})
	assertFloats(t, "right", right, []float32{-1, -1, -2, -2, -3})
	if b.available() != 1 {
		t.Errorf("available = %d, want 1", b.available())
	}
	if b.Underruns() != 0 {
		t.Errorf("Underruns = %d, want 0", b.Underruns())
	}
}

func TestFillEndOfStream(t *testing.T) {
	src := make(chan audio.Chunk, 1)
	src <- audio.Chunk{0.5, -0.5, 0.25, -0.25}
	close(src)
	b := NewBuffer(src, 44100)

	left := []float32{9, 9, 9, 9}
	right := []float32{9, 9, 9, 9}
	if !b.Fill(left, right) {
		t.Fatal("final partial block should still play")
	}
	assertFloats(t, "left", left, []float32{0.5, 0.25, 0, 0})
	assertFloats(t, "right", right, []float32{-0.5, -0.25, 0, 0})

	if b.Fill(left, right) {
		t.Fatal("Fill should report the end of the stream")
	}
	assertFloats(t, "left", left, []float32{0, 0, 0, 0})
	if b.Underruns() != 0 {
		t.Errorf("end of stream counted as %d underruns", b.Underruns())
	}
}

func TestFillCompacts(t *testing.T) {
	const rate = 4 // compact once more than 8 samples are consumed
	src := make(chan audio.Chunk, 64)
	for i := range 64 {
		v := float32(i)
		src <- audio.Chunk{v, -v, v, -v}
	}
	close(src)
	b := NewBuffer(src, rate)

	left, right := make([]float32, 3), make([]float32, 3)
	frame := 0
	for b.Fill(left, right) {
		for i := range left {
			if frame/2 >= 64 {
				break
			}
			if left[i] != float32(frame/2) {
				t.Fatalf("frame %d: left = %v, want %v", frame, left[i], float32(frame/2))
			}
			frame++
		}
		if len(b.samples) > 2*rate*audio.Channels+8 {
			t.Fatalf("buffer grew to %d samples", len(b.samples))
		}
	}
	if frame != 128 {
		t.Errorf("played %d frames, want 128", frame)
	}
}

func TestFillNonBlocking(t *testing.T) {
	src := make(chan audio.Chunk)
	b := NewBuffer(src, 44100, WithNonBlocking())

	left, right := []float32{1, 1}, []float32{1, 1}
	if !b.Fill(left, right) {
		t.Fatal("open stream should keep playing")
	}
	assertFloats(t, "left", left, []float32{0, 0})
	assertFloats(t, "right", right, []float32{0, 0})
	if b.Underruns() != 1 {
		t.Errorf("Underruns = %d, want 1", b.Underruns())
	}
}

func TestFillTap(t *testing.T) {
	src := make(chan audio.Chunk, 1)
	src <- audio.Chunk{1, 2, 3, 4}
	close(src)

	var tapped [][]float32
	b := NewBuffer(src, 44100, WithTap(func(block []float32) {
		tapped = append(tapped, append([]float32(nil), block...))
	}))

	left, right := make([]float32, 3), make([]float32, 3)
	b.Fill(left, right)
	b.Fill(left, right)

	if len(tapped) != 1 {
		t.Fatalf("tap called %d times, want 1", len(tapped))
	}
	assertFloats(t, "tapped", tapped[0], []float32{1, 2, 3, 4, 0, 0})
	if b.Frames() != 3 {
		t.Errorf("Frames = %d, want 3", b.Frames())
	}
}
