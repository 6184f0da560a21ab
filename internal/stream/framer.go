package stream

import (
	"sync/atomic"

	"github.com/satindergrewal/acouwalk/internal/audio"
)

// FramerBuffer is the number of frames the framer queues for the
// broadcaster before it starts dropping.
const FramerBuffer = 50

// Framer cuts the blocks handed to the output device into fixed 20ms
// frames for the network monitor. Offer never blocks, so it is safe to call
// from a real-time audio callback.
type Framer struct {
	size    int // interleaved samples per frame
	pending []float32
	out     chan audio.Chunk
	dropped atomic.Int64
}

func NewFramer(sampleRate int) *Framer {
	size := audio.FrameSize(sampleRate) * audio.Channels
	return &Framer{
		size:    size,
		pending: make([]float32, 0, 2*size),
		out:     make(chan audio.Chunk, FramerBuffer),
	}
}

// Frames is never closed; the broadcaster stops on context cancellation.
func (f *Framer) Frames() <-chan audio.Chunk { return f.out }

// FrameSamples returns the interleaved sample count of every frame.
func (f *Framer) FrameSamples() int { return f.size }

// Dropped counts frames discarded because the broadcaster fell behind.
func (f *Framer) Dropped() int64 { return f.dropped.Load() }

// Offer copies block into the framer and queues every complete frame.
// It must be called from one goroutine at a time.
func (f *Framer) Offer(block []float32) {
	f.pending = append(f.pending, block...)
	for len(f.pending) >= f.size {
		frame := make(audio.Chunk, f.size)
		copy(frame, f.pending[:f.size])
		f.pending = append(f.pending[:0], f.pending[f.size:]...)

		select {
		case f.out <- frame:
		default:
			f.dropped.Add(1)
		}
	}
}
