package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/satindergrewal/acouwalk/internal/audio"
	"github.com/satindergrewal/acouwalk/internal/audiotest"
	"github.com/satindergrewal/acouwalk/internal/corpus"
	"github.com/satindergrewal/acouwalk/internal/grain"
	"github.com/satindergrewal/acouwalk/internal/playback"
)

func testOptions(fs afero.Fs) Options {
	cfg := grain.DefaultConfig(8000)
	cfg.Duration = 50 * time.Millisecond
	cfg.ChunkSamples = 1024
	return Options{
		FS:      fs,
		Corpus:  corpus.Options{Roots: []string{"/wav"}, Workers: 4},
		Engines: 3,
		Grain:   cfg,
		Conv:    audio.SoxrConverter{},
		Seed:    42,
	}
}

func TestPipelinePlaysAndStops(t *testing.T) {
	fs := afero.NewMemMapFs()
	audiotest.WriteStereo(t, fs, "/wav/a.wav", 8000, 8000)
	audiotest.WriteStereo(t, fs, "/wav/b.wav", 8000, 4000)
	audiotest.WriteStereo(t, fs, "/wav/deep/c.wav", 8000, 2000)

	var (
		mu     sync.Mutex
		tapped int
	)
	opts := testOptions(fs)
	opts.Tap = func(block []float32) {
		mu.Lock()
		tapped += len(block)
		mu.Unlock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, err := New(ctx, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(p.Corpus()) != 3 {
		t.Fatalf("corpus has %d files, want 3", len(p.Corpus()))
	}

	buf := p.Start(ctx)
	dev := &playback.Clock{SampleRate: 8000, FramesPerBuffer: 256}
	played := make(chan error, 1)
	go func() { played <- dev.Play(ctx, buf) }()

	deadline := time.After(5 * time.Second)
	for p.Status().MixCycles < 3 {
		select {
		case <-deadline:
			t.Fatalf("no mixing progress: %+v", p.Status())
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-played:
		if err != nil {
			t.Fatalf("Play: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("device did not stop")
	}

	waited := make(chan struct{})
	go func() {
		p.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline stages did not return after cancel")
	}

	st := p.Status()
	if st.Files != 3 || st.Engines != 3 {
		t.Errorf("Files, Engines = %d, %d; want 3, 3", st.Files, st.Engines)
	}
	if st.Picks == 0 || st.Grains == 0 || st.Chunks == 0 {
		t.Errorf("no activity recorded: %+v", st)
	}
	if st.CorpusMs != 1750 {
		t.Errorf("CorpusMs = %v, want 1750", st.CorpusMs)
	}
	mu.Lock()
	defer mu.Unlock()
	if tapped == 0 {
		t.Error("tap never saw a block")
	}
}

func TestPipelineEmptyCorpus(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/wav/readme.txt", []byte("no audio here"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := New(context.Background(), testOptions(fs))
	if !errors.Is(err, corpus.ErrEmptyCorpus) {
		t.Errorf("err = %v, want ErrEmptyCorpus", err)
	}
}

func TestPipelineRejectsBadOptions(t *testing.T) {
	fs := afero.NewMemMapFs()
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"no engines", func(o *Options) { o.Engines = 0 }},
		{"odd chunk", func(o *Options) { o.Grain.ChunkSamples = 1023 }},
		{"no converter", func(o *Options) { o.Conv = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := testOptions(fs)
			tt.mutate(&opts)
			if _, err := New(context.Background(), opts); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
