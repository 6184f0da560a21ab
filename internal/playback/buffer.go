// Package playback bridges the mixed chunk stream to pull-based audio
// devices.
package playback

import (
	"sync/atomic"

	"github.com/satindergrewal/acouwalk/internal/audio"
)

// Buffer adapts a chunk channel to a device callback that asks for a fixed
// number of frames at a time. All methods except the counters must be
// called from a single goroutine, normally the device callback.
type Buffer struct {
	src         <-chan audio.Chunk
	samples     []float32
	consumed    int
	compactAt   int
	nonblocking bool
	tap         func(block []float32)
	eos         bool

	underruns atomic.Int64
	frames    atomic.Int64
}

type Option func(*Buffer)

// WithNonBlocking fills missing frames with silence instead of waiting for
// the next chunk.
func WithNonBlocking() Option {
	return func(b *Buffer) { b.nonblocking = true }
}

// WithTap calls fn with the interleaved samples of every block handed to
// the device, silence padding included. fn runs on the device callback,
// must not block and must not retain block.
func WithTap(fn func(block []float32)) Option {
	return func(b *Buffer) { b.tap = fn }
}

// NewBuffer reads chunks from src. Consumed samples are dropped once more
// than one second of audio at sampleRate has been played.
func NewBuffer(src <-chan audio.Chunk, sampleRate int, opts ...Option) *Buffer {
	b := &Buffer{
		src:       src,
		compactAt: sampleRate * audio.Channels,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Underruns counts blocks that were padded with silence while the stream
// was still open.
func (b *Buffer) Underruns() int64 { return b.underruns.Load() }

// Frames counts frames delivered to the device, padding included.
func (b *Buffer) Frames() int64 { return b.frames.Load() }

func (b *Buffer) available() int {
	return (len(b.samples) - b.consumed) / audio.Channels
}

// Fill writes len(left) frames into left and right. It returns false once
// the chunk stream has ended and nothing was left to play, at which point
// left and right hold silence and the device should stop.
func (b *Buffer) Fill(left, right []float32) bool {
	n := min(len(left), len(right))

	if b.consumed > b.compactAt {
		kept := copy(b.samples, b.samples[b.consumed:])
		b.samples = b.samples[:kept]
		b.consumed = 0
	}

	for !b.eos && b.available() < n {
		if !b.receive() {
			break
		}
	}

	frames := min(n, b.available())
	block := b.samples[b.consumed : b.consumed+frames*audio.Channels]
	for i := range frames {
		left[i] = block[2*i]
		right[i] = block[2*i+1]
	}
	clear(left[frames:n])
	clear(right[frames:n])
	b.consumed += frames * audio.Channels

	if frames < n && !b.eos {
		b.underruns.Add(1)
	}
	if b.eos && frames == 0 {
		return false
	}

	b.frames.Add(int64(n))
	if b.tap != nil {
		b.tap(padded(block, n-frames))
	}
	return true
}

// receive appends the next chunk. It reports false when nothing was
// appended, either because the stream ended or, in non-blocking mode,
// because no chunk was ready.
func (b *Buffer) receive() bool {
	var (
		c  audio.Chunk
		ok bool
	)
	if b.nonblocking {
		select {
		case c, ok = <-b.src:
		default:
			return false
		}
	} else {
		c, ok = <-b.src
	}
	if !ok {
		b.eos = true
		return false
	}
	b.samples = append(b.samples, c...)
	return true
}

func padded(block []float32, silentFrames int) []float32 {
	if silentFrames == 0 {
		return block
	}
	out := make([]float32, len(block)+silentFrames*audio.Channels)
	copy(out, block)
	return out
}
