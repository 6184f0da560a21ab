package grain

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"

	"github.com/satindergrewal/acouwalk/internal/audio"
	"github.com/satindergrewal/acouwalk/internal/corpus"
)

type Config struct {
	ID           int
	OutputRate   int
	Duration     time.Duration
	MinFraction  float64
	MaxTTL       int // grains per pick are drawn from [1, MaxTTL)
	TukeyAlpha   float64
	ChunkSamples int // even
}

// DefaultConfig returns the engine settings used when nothing is
// configured.
func DefaultConfig(outputRate int) Config {
	return Config{
		OutputRate:   outputRate,
		Duration:     DefaultDuration,
		MinFraction:  DefaultMinFraction,
		MaxTTL:       DefaultMaxTTL,
		TukeyAlpha:   DefaultTukeyAlpha,
		ChunkSamples: DefaultChunkSamples,
	}
}

// Stats counts engine activity. One Stats may be shared by every engine.
type Stats struct {
	Grains       atomic.Int64
	Muted        atomic.Int64
	Chunks       atomic.Int64
	Skipped      atomic.Int64
	ConvFailures atomic.Int64
}

// Engine turns picked sources into a stream of equal-sized chunks.
type Engine struct {
	cfg   Config
	fs    afero.Fs
	picks <-chan corpus.Descriptor
	conv  audio.Converter
	rng   *rand.Rand
	stats *Stats
	log   *slog.Logger

	out     chan audio.Chunk
	pending []float32
}

func NewEngine(cfg Config, fs afero.Fs, picks <-chan corpus.Descriptor, conv audio.Converter, rng *rand.Rand, stats *Stats) *Engine {
	if stats == nil {
		stats = &Stats{}
	}
	return &Engine{
		cfg:   cfg,
		fs:    fs,
		picks: picks,
		conv:  conv,
		rng:   rng,
		stats: stats,
		log:   slog.With("engine", cfg.ID),
		out:   make(chan audio.Chunk),
	}
}

// Chunks is closed when Run returns.
func (e *Engine) Chunks() <-chan audio.Chunk { return e.out }

// Run receives picks and emits chunks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	defer close(e.out)

	for {
		var d corpus.Descriptor
		select {
		case d = <-e.picks:
		case <-ctx.Done():
			return
		}

		if err := e.play(ctx, d); err != nil {
			if ctx.Err() != nil {
				return
			}
			e.stats.Skipped.Add(1)
			e.log.Warn("cannot use picked file", "path", d.Path, "err", err)
		}
	}
}

// play cuts between 1 and MaxTTL-1 grains from one source.
func (e *Engine) play(ctx context.Context, d corpus.Descriptor) error {
	r, err := audio.OpenWAV(e.fs, d.Path)
	if err != nil {
		return err
	}
	defer r.Close()

	if r.Channels() != audio.Channels {
		return fmt.Errorf("%s: %w", d.Path, corpus.ErrNotStereo)
	}
	rate := r.SampleRate()
	g := New(rate, e.cfg.Duration, e.cfg.MinFraction)
	ttl := 1 + e.rng.IntN(max(e.cfg.MaxTTL-1, 1))

	for range ttl {
		if err := g.Toss(r.Frames(), e.rng); err != nil {
			return err
		}
		samples, muted, err := Extract(r, g, e.cfg.TukeyAlpha)
		if err != nil {
			return err
		}
		e.stats.Grains.Add(1)
		if muted {
			e.stats.Muted.Add(1)
			e.log.Debug("muted clipped grain", "path", d.Path, "start", g.Start, "frames", g.Length)
		}

		if rate != e.cfg.OutputRate {
			samples, err = e.conv.Convert(rate, e.cfg.OutputRate, audio.Channels, samples)
			if err != nil {
				e.stats.ConvFailures.Add(1)
				e.log.Error("sample-rate conversion failed", "path", d.Path, "err", err)
				return nil
			}
		}

		if err := e.accumulate(ctx, samples); err != nil {
			return err
		}
	}
	return nil
}

// accumulate appends samples to the pending buffer and sends every full
// chunk it holds.
func (e *Engine) accumulate(ctx context.Context, samples []float32) error {
	e.pending = append(e.pending, samples...)

	n := e.cfg.ChunkSamples
	for len(e.pending) >= n {
		chunk := make(audio.Chunk, n)
		copy(chunk, e.pending[:n])
		e.pending = append(e.pending[:0], e.pending[n:]...)

		select {
		case e.out <- chunk:
			e.stats.Chunks.Add(1)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
