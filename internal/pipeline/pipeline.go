// Package pipeline assembles the corpus, picker, grain engines, mixer and
// playback buffer into one running stream.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/spf13/afero"

	"github.com/satindergrewal/acouwalk/internal/audio"
	"github.com/satindergrewal/acouwalk/internal/corpus"
	"github.com/satindergrewal/acouwalk/internal/grain"
	"github.com/satindergrewal/acouwalk/internal/mixer"
	"github.com/satindergrewal/acouwalk/internal/playback"
)

type Options struct {
	FS      afero.Fs
	Corpus  corpus.Options
	Engines int
	Grain   grain.Config // ID is assigned per engine
	Conv    audio.Converter
	Seed    uint64 // 0 seeds from the clock

	NonBlocking bool
	Tap         func(block []float32)
}

// Pipeline owns every stage between the file system and the playback
// buffer.
type Pipeline struct {
	opts    Options
	corpus  corpus.Corpus
	seed    uint64
	started time.Time

	picker  *corpus.Picker
	engines []*grain.Engine
	mixer   *mixer.Mixer
	buffer  *playback.Buffer
	stats   grain.Stats
	wg      conc.WaitGroup
}

// New surveys the corpus. It fails with corpus.ErrEmptyCorpus when no
// usable file was found.
func New(ctx context.Context, opts Options) (*Pipeline, error) {
	if opts.Engines < 1 {
		return nil, fmt.Errorf("need at least one grain engine, got %d", opts.Engines)
	}
	if opts.Grain.ChunkSamples < audio.Channels || opts.Grain.ChunkSamples%audio.Channels != 0 {
		return nil, fmt.Errorf("chunk size %d is not a positive even number", opts.Grain.ChunkSamples)
	}
	if opts.Conv == nil {
		return nil, errors.New("no sample-rate converter configured")
	}

	c, err := corpus.Build(ctx, opts.FS, opts.Corpus)
	if err != nil {
		return nil, fmt.Errorf("survey corpus: %w", err)
	}
	if len(c) == 0 {
		return nil, corpus.ErrEmptyCorpus
	}

	seed := opts.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Pipeline{opts: opts, corpus: c, seed: seed}, nil
}

// Corpus returns the surveyed sources.
func (p *Pipeline) Corpus() corpus.Corpus { return p.corpus }

// Start launches the picker, the engines and the mixer, and returns the
// buffer the output device must drain. Cancelling ctx winds every stage
// down; the buffer then reports the end of the stream.
func (p *Pipeline) Start(ctx context.Context) *playback.Buffer {
	p.started = time.Now()
	p.picker = corpus.NewPicker(p.corpus, corpus.NewSelector(rand.New(rand.NewPCG(p.seed, 0))))

	inputs := make([]<-chan audio.Chunk, p.opts.Engines)
	p.engines = make([]*grain.Engine, p.opts.Engines)
	for i := range p.engines {
		cfg := p.opts.Grain
		cfg.ID = i
		rng := rand.New(rand.NewPCG(p.seed, uint64(i)+1))
		p.engines[i] = grain.NewEngine(cfg, p.opts.FS, p.picker.Picks(), p.opts.Conv, rng, &p.stats)
		inputs[i] = p.engines[i].Chunks()
	}
	p.mixer = mixer.New(inputs)

	var opts []playback.Option
	if p.opts.NonBlocking {
		opts = append(opts, playback.WithNonBlocking())
	}
	if p.opts.Tap != nil {
		opts = append(opts, playback.WithTap(p.opts.Tap))
	}
	p.buffer = playback.NewBuffer(p.mixer.Output(), p.opts.Grain.OutputRate, opts...)

	p.wg.Go(func() {
		if err := p.picker.Run(ctx); err != nil {
			slog.Error("picker stopped", "err", err)
		}
	})
	for _, e := range p.engines {
		p.wg.Go(func() { e.Run(ctx) })
	}
	p.wg.Go(func() { p.mixer.Run(ctx) })

	slog.Info("pipeline started",
		"files", len(p.corpus),
		"engines", p.opts.Engines,
		"output_rate", p.opts.Grain.OutputRate,
		"chunk_samples", p.opts.Grain.ChunkSamples,
		"seed", p.seed,
	)
	return p.buffer
}

// Wait blocks until every stage started by Start has returned.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Status is a point-in-time snapshot of pipeline activity.
type Status struct {
	Files        int     `json:"files"`
	CorpusMs     float64 `json:"corpus_ms"`
	Engines      int     `json:"engines"`
	Picks        int64   `json:"picks"`
	Grains       int64   `json:"grains"`
	MutedGrains  int64   `json:"muted_grains"`
	Chunks       int64   `json:"chunks"`
	Skipped      int64   `json:"skipped_picks"`
	ConvFailures int64   `json:"conversion_failures"`
	MixCycles    int64   `json:"mix_cycles"`
	Underruns    int64   `json:"underruns"`
	PlayedFrames int64   `json:"played_frames"`
	Uptime       string  `json:"uptime"`
}

// Status is safe to call from any goroutine once Start has returned.
func (p *Pipeline) Status() Status {
	s := Status{
		Files:        len(p.corpus),
		CorpusMs:     p.corpus.TotalWeight(),
		Engines:      p.opts.Engines,
		Grains:       p.stats.Grains.Load(),
		MutedGrains:  p.stats.Muted.Load(),
		Chunks:       p.stats.Chunks.Load(),
		Skipped:      p.stats.Skipped.Load(),
		ConvFailures: p.stats.ConvFailures.Load(),
	}
	if p.picker != nil {
		s.Picks = p.picker.Count()
		s.MixCycles = p.mixer.Cycles()
		s.Underruns = p.buffer.Underruns()
		s.PlayedFrames = p.buffer.Frames()
		s.Uptime = time.Since(p.started).Round(time.Second).String()
	}
	return s
}
