package stream

import (
	"testing"

	"github.com/satindergrewal/acouwalk/internal/audio"
)

func TestFramerCutsFixedFrames(t *testing.T) {
	f := NewFramer(8000) // 160 frames, 320 samples per 20ms
	if f.FrameSamples() != 320 {
		t.Fatalf("FrameSamples = %d, want 320", f.FrameSamples())
	}

	block := make([]float32, 200)
	for i := range block {
		block[i] = float32(i)
	}
	f.Offer(block)
	select {
	case <-f.Frames():
		t.Fatal("frame emitted before enough samples arrived")
	default:
	}

	f.Offer(block)
	select {
	case frame := <-f.Frames():
		if len(frame) != 320 {
			t.Fatalf("len = %d, want 320", len(frame))
		}
		if frame[0] != 0 || frame[199] != 199 || frame[200] != 0 || frame[319] != 119 {
			t.Errorf("frame content wrong: %v %v %v %v", frame[0], frame[199], frame[200], frame[319])
		}
	default:
		t.Fatal("no frame after 400 samples")
	}
	if len(f.pending) != 80 {
		t.Errorf("pending = %d samples, want 80", len(f.pending))
	}
}

func TestFramerCopiesInput(t *testing.T) {
	f := NewFramer(8000)
	block := make([]float32, 320)
	block[0] = 0.5
	f.Offer(block)
	block[0] = -1

	frame := <-f.Frames()
	if frame[0] != 0.5 {
		t.Errorf("frame aliases the offered block: %v", frame[0])
	}
}

func TestFramerDropsWhenFull(t *testing.T) {
	f := NewFramer(8000)
	block := make([]float32, f.FrameSamples())
	for range FramerBuffer + 5 {
		f.Offer(block)
	}
	if f.Dropped() != 5 {
		t.Errorf("Dropped = %d, want 5", f.Dropped())
	}
	if len(f.Frames()) != FramerBuffer {
		t.Errorf("queued = %d, want %d", len(f.Frames()), FramerBuffer)
	}
}

func TestFramerFrameDuration(t *testing.T) {
	for _, rate := range []int{8000, 44100, 48000} {
		f := NewFramer(rate)
		want := audio.FrameSize(rate) * audio.Channels
		if f.FrameSamples() != want {
			t.Errorf("rate %d: FrameSamples = %d, want %d", rate, f.FrameSamples(), want)
		}
	}
}
