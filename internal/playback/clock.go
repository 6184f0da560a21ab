package playback

import (
	"context"
	"log/slog"
	"time"
)

// Clock is a headless device: it pulls one block per block duration on a
// ticker and discards it. With a tap installed it drives the network
// monitor on machines without a sound card.
type Clock struct {
	SampleRate      int
	FramesPerBuffer int
}

func (d *Clock) Play(ctx context.Context, b *Buffer) error {
	interval := time.Duration(d.FramesPerBuffer) * time.Second / time.Duration(d.SampleRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	left := make([]float32, d.FramesPerBuffer)
	right := make([]float32, d.FramesPerBuffer)
	slog.Info("clock output started", "rate", d.SampleRate, "block", interval)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if !b.Fill(left, right) {
			slog.Info("end of stream")
			return nil
		}
	}
}
