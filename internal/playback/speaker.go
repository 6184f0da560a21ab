package playback

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// Speaker plays through beep's speaker package.
type Speaker struct {
	SampleRate      int
	FramesPerBuffer int
}

func (d *Speaker) Play(ctx context.Context, b *Buffer) error {
	sr := beep.SampleRate(d.SampleRate)
	if err := speaker.Init(sr, d.FramesPerBuffer); err != nil {
		return fmt.Errorf("speaker init: %w", err)
	}
	defer speaker.Close()

	ended := make(chan struct{})
	speaker.Play(beep.Seq(&bufferStreamer{buf: b}, beep.Callback(func() {
		close(ended)
	})))
	slog.Info("speaker output started", "rate", d.SampleRate, "latency", sr.D(d.FramesPerBuffer).Round(time.Millisecond))

	select {
	case <-ended:
		slog.Info("end of stream")
	case <-ctx.Done():
		speaker.Clear()
	}
	return nil
}

// bufferStreamer exposes a Buffer as a beep.Streamer.
type bufferStreamer struct {
	buf         *Buffer
	left, right []float32
}

func (s *bufferStreamer) Stream(samples [][2]float64) (int, bool) {
	if cap(s.left) < len(samples) {
		s.left = make([]float32, len(samples))
		s.right = make([]float32, len(samples))
	}
	left, right := s.left[:len(samples)], s.right[:len(samples)]

	if !s.buf.Fill(left, right) {
		return 0, false
	}
	for i := range samples {
		samples[i][0] = float64(left[i])
		samples[i][1] = float64(right[i])
	}
	return len(samples), true
}

func (s *bufferStreamer) Err() error { return nil }
