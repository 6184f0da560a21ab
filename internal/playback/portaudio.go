package playback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
	"go.uber.org/multierr"

	"github.com/satindergrewal/acouwalk/internal/audio"
)

// PortAudio plays through the default PortAudio output device.
type PortAudio struct {
	SampleRate      int
	FramesPerBuffer int
}

func (d *PortAudio) Play(ctx context.Context, b *Buffer) (err error) {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}
	defer func() {
		err = multierr.Append(err, portaudio.Terminate())
	}()

	ended := make(chan struct{})
	var once sync.Once
	callback := func(out [][]float32) {
		if !b.Fill(out[0], out[1]) {
			once.Do(func() { close(ended) })
		}
	}

	stream, err := portaudio.OpenDefaultStream(0, audio.Channels, float64(d.SampleRate), d.FramesPerBuffer, callback)
	if err != nil {
		return fmt.Errorf("open portaudio stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		return multierr.Append(fmt.Errorf("start portaudio stream: %w", err), stream.Close())
	}
	slog.Info("portaudio output started", "rate", d.SampleRate, "frames_per_buffer", d.FramesPerBuffer)

	select {
	case <-ended:
		slog.Info("end of stream")
	case <-ctx.Done():
	}

	return multierr.Combine(stream.Stop(), stream.Close())
}
