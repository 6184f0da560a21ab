package stream

import (
	"context"
	"testing"
	"time"

	"github.com/satindergrewal/acouwalk/internal/audio"
	"github.com/satindergrewal/acouwalk/internal/mixer"
)

func receiveFrame(t *testing.T, l *Listener) audio.Chunk {
	t.Helper()
	select {
	case f := <-l.C:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("no frame for listener")
		return nil
	}
}

func TestBroadcasterSubscriptions(t *testing.T) {
	b := NewBroadcaster()
	ls := []*Listener{b.Subscribe(), b.Subscribe(), b.Subscribe()}
	if n := b.ListenerCount(); n != 3 {
		t.Fatalf("ListenerCount = %d, want 3", n)
	}

	b.Unsubscribe(ls[1])
	if n := b.ListenerCount(); n != 2 {
		t.Errorf("ListenerCount = %d after one unsubscribe, want 2", n)
	}
	select {
	case <-ls[1].Done():
	default:
		t.Error("Done not closed after Unsubscribe")
	}
	select {
	case <-ls[0].Done():
		t.Error("Done closed for a listener still subscribed")
	default:
	}
}

// Mixed blocks are offered to the framer in device-sized pieces; every
// listener must hear the same samples in the same order, cut into 20ms frames.
func TestFramerToBroadcasterCarriesMixedBlocks(t *testing.T) {
	const rate = 8000
	f := NewFramer(rate)
	b := NewBroadcaster()
	listeners := []*Listener{b.Subscribe(), b.Subscribe()}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx, f.Frames())

	var played []float32
	for i := range 4 {
		up := make(audio.Chunk, 256)
		down := make(audio.Chunk, 256)
		for j := range up {
			up[j] = float32(i*256+j) / 2048
			down[j] = -up[j] / 2
		}
		block := mixer.Mix([]audio.Chunk{up, down})
		played = append(played, block...)
		f.Offer(block)
	}

	frames := len(played) / f.FrameSamples()
	if frames != 3 {
		t.Fatalf("expected 3 complete frames from %d samples, got %d", len(played), frames)
	}
	for li, l := range listeners {
		var heard []float32
		for range frames {
			frame := receiveFrame(t, l)
			if len(frame) != f.FrameSamples() {
				t.Fatalf("listener %d: frame of %d samples, want %d", li, len(frame), f.FrameSamples())
			}
			heard = append(heard, frame...)
		}
		for i, v := range heard {
			if v != played[i] {
				t.Fatalf("listener %d: sample %d = %v, want %v", li, i, v, played[i])
			}
		}
	}
	if b.Dropped() != 0 || f.Dropped() != 0 {
		t.Errorf("dropped frames: broadcaster %d, framer %d", b.Dropped(), f.Dropped())
	}
}

func TestBroadcasterDropsForFullListener(t *testing.T) {
	b := NewBroadcaster()
	idle := b.Subscribe()
	busy := b.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	source := make(chan audio.Chunk)
	returned := make(chan struct{})
	go func() {
		b.Run(ctx, source)
		close(returned)
	}()

	const sent = ListenerBuffer + 25
	for i := range sent {
		source <- audio.Chunk{float32(i), float32(-i)}
		receiveFrame(t, busy)
	}
	close(source)
	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after the source closed")
	}

	if got := len(idle.C); got != ListenerBuffer {
		t.Errorf("idle listener holds %d frames, want %d", got, ListenerBuffer)
	}
	if got, want := b.Dropped(), int64(sent-ListenerBuffer); got != want {
		t.Errorf("Dropped = %d, want %d", got, want)
	}
	first := <-idle.C
	if first[0] != 0 {
		t.Errorf("idle listener kept frame %v first, want the oldest", first[0])
	}
}

func TestBroadcasterRunReturns(t *testing.T) {
	tests := []struct {
		name string
		stop func(cancel context.CancelFunc, source chan audio.Chunk)
	}{
		{"context cancelled", func(cancel context.CancelFunc, _ chan audio.Chunk) { cancel() }},
		{"source closed", func(_ context.CancelFunc, source chan audio.Chunk) { close(source) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			source := make(chan audio.Chunk)

			returned := make(chan struct{})
			go func() {
				NewBroadcaster().Run(ctx, source)
				close(returned)
			}()
			tt.stop(cancel, source)

			select {
			case <-returned:
			case <-time.After(2 * time.Second):
				t.Fatal("Run did not return")
			}
		})
	}
}
