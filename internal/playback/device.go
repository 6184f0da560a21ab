package playback

import (
	"context"
	"errors"
	"fmt"
)

const (
	DevicePortAudio = "portaudio"
	DeviceBeep      = "beep"
	DeviceNone      = "none"
)

var ErrUnknownDevice = errors.New("unknown output device")

// Device plays a Buffer at real-time cadence until the buffer reports the
// end of the stream or ctx is cancelled.
type Device interface {
	Play(ctx context.Context, b *Buffer) error
}

// NewDevice returns the device registered under name.
func NewDevice(name string, sampleRate, framesPerBuffer int) (Device, error) {
	switch name {
	case DevicePortAudio:
		return &PortAudio{SampleRate: sampleRate, FramesPerBuffer: framesPerBuffer}, nil
	case DeviceBeep:
		return &Speaker{SampleRate: sampleRate, FramesPerBuffer: framesPerBuffer}, nil
	case DeviceNone:
		return &Clock{SampleRate: sampleRate, FramesPerBuffer: framesPerBuffer}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDevice, name)
	}
}
