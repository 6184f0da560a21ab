// Package mixer combines the chunk streams of several grain engines into
// one stereo stream.
package mixer

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/satindergrewal/acouwalk/internal/audio"
)

// OutputBuffer is the capacity of the mixed output channel.
const OutputBuffer = 2

// Mixer averages one chunk from every live input per cycle. An input that
// closes is dropped; when every input has closed the output is closed.
type Mixer struct {
	inputs []<-chan audio.Chunk
	out    chan audio.Chunk
	cycles atomic.Int64
}

func New(inputs []<-chan audio.Chunk) *Mixer {
	return &Mixer{
		inputs: inputs,
		out:    make(chan audio.Chunk, OutputBuffer),
	}
}

// Output is closed when Run returns.
func (m *Mixer) Output() <-chan audio.Chunk { return m.out }

// Cycles returns the number of mixed chunks produced.
func (m *Mixer) Cycles() int64 { return m.cycles.Load() }

// Run mixes until every input has closed or ctx is cancelled.
func (m *Mixer) Run(ctx context.Context) {
	defer close(m.out)

	live := append([]<-chan audio.Chunk(nil), m.inputs...)
	chunks := make([]audio.Chunk, 0, len(live))
	for {
		chunks = chunks[:0]
		open := live[:0]
		for _, in := range live {
			select {
			case c, ok := <-in:
				if !ok {
					continue
				}
				chunks = append(chunks, c)
				open = append(open, in)
			case <-ctx.Done():
				return
			}
		}
		if closed := len(live) - len(open); closed > 0 {
			slog.Debug("mixer inputs closed", "closed", closed, "remaining", len(open))
		}
		live = open

		if len(chunks) == 0 {
			slog.Info("all mixer inputs closed")
			return
		}

		select {
		case m.out <- Mix(chunks):
			m.cycles.Add(1)
		case <-ctx.Done():
			return
		}
	}
}

// Mix returns the element-wise mean of chunks, truncated to the shortest.
func Mix(chunks []audio.Chunk) audio.Chunk {
	if len(chunks) == 0 {
		return nil
	}
	n := len(chunks[0])
	for _, c := range chunks[1:] {
		n = min(n, len(c))
	}

	out := make(audio.Chunk, n)
	for _, c := range chunks {
		for i := range out {
			out[i] += c[i]
		}
	}
	count := float32(len(chunks))
	for i := range out {
		out[i] /= count
	}
	return out
}
