package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"github.com/satindergrewal/acouwalk/internal/audio"
	"github.com/satindergrewal/acouwalk/internal/config"
	"github.com/satindergrewal/acouwalk/internal/corpus"
	"github.com/satindergrewal/acouwalk/internal/grain"
	"github.com/satindergrewal/acouwalk/internal/pipeline"
	"github.com/satindergrewal/acouwalk/internal/playback"
	"github.com/satindergrewal/acouwalk/internal/stream"
)

// run plays until ctx is cancelled or the device stops.
func run(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	exclude, err := config.LoadExclusions(cfg.Corpus.ExcludeFile)
	if err != nil {
		return err
	}
	conv, err := audio.NewConverter(cfg.Grain.Converter)
	if err != nil {
		return err
	}
	device, err := playback.NewDevice(cfg.Output.Device, cfg.Output.SampleRate, cfg.Output.FramesPerBuffer)
	if err != nil {
		return err
	}

	opts := pipelineOptions(cfg, exclude, conv)
	var mon *stream.Monitor
	if cfg.Server.ListenAddr != "" {
		mon = stream.NewMonitor(cfg.Output.SampleRate)
		opts.Tap = mon.Tap
	}

	p, err := pipeline.New(ctx, opts)
	if err != nil {
		slog.Error("cannot start", "err", err)
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	buf := p.Start(ctx)

	var (
		wg     conc.WaitGroup
		srvErr error
	)
	if mon != nil {
		srv := &http.Server{Addr: cfg.Server.ListenAddr, Handler: newMux(p, mon)}
		wg.Go(func() { mon.Run(ctx) })
		wg.Go(func() {
			<-ctx.Done()
			_ = srv.Close()
		})
		wg.Go(func() {
			slog.Info("monitor listening", "addr", cfg.Server.ListenAddr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				srvErr = err
				cancel()
			}
		})
	}

	slog.Info("playing", "device", cfg.Output.Device, "sample_rate", cfg.Output.SampleRate)
	playErr := device.Play(ctx, buf)
	if playErr != nil {
		slog.Error("output device failed", "device", cfg.Output.Device, "err", playErr)
	}
	cancel()
	p.Wait()
	wg.Wait()

	slog.Info("stopped", "underruns", buf.Underruns(), "frames", buf.Frames())
	return multierr.Combine(playErr, srvErr)
}

func pipelineOptions(cfg config.Config, exclude []string, conv audio.Converter) pipeline.Options {
	return pipeline.Options{
		FS: afero.NewOsFs(),
		Corpus: corpus.Options{
			Roots:   cfg.Corpus.Dirs,
			Exclude: exclude,
			CapMs:   cfg.Corpus.LenCapMs,
			Workers: cfg.Corpus.Workers,
		},
		Engines: cfg.Grain.Engines,
		Grain: grain.Config{
			OutputRate:   cfg.Output.SampleRate,
			Duration:     time.Duration(cfg.Grain.DurationMs) * time.Millisecond,
			MinFraction:  cfg.Grain.MinFraction,
			MaxTTL:       cfg.Grain.MaxTTL,
			TukeyAlpha:   cfg.Grain.TukeyAlpha,
			ChunkSamples: cfg.Grain.ChunkSamples,
		},
		Conv:        conv,
		Seed:        cfg.Grain.Seed,
		NonBlocking: cfg.Output.NonBlocking,
	}
}

type statusSource interface {
	Status() pipeline.Status
}

type statusResponse struct {
	pipeline.Status
	HTTPListeners   int   `json:"http_listeners"`
	WebRTCListeners int   `json:"webrtc_listeners"`
	FramerDropped   int64 `json:"framer_dropped"`
	ListenerDropped int64 `json:"listener_dropped"`
}

func newMux(p statusSource, mon *stream.Monitor) *http.ServeMux {
	mux := http.NewServeMux()
	mon.Register(mux)

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		_ = json.NewEncoder(w).Encode(statusResponse{
			Status:          p.Status(),
			HTTPListeners:   mon.Broadcaster.ListenerCount(),
			WebRTCListeners: mon.PeerCount(),
			FramerDropped:   mon.Framer.Dropped(),
			ListenerDropped: mon.Broadcaster.Dropped(),
		})
	})
	return mux
}
