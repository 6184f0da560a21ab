package stream

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
)

// Monitor lets remote listeners hear what the output device plays.
type Monitor struct {
	Framer      *Framer
	Broadcaster *Broadcaster
	HTTP        *HTTPHandler
	WebRTC      *WebRTCHandler // nil when the output rate is not an Opus rate
}

func NewMonitor(sampleRate int) *Monitor {
	b := NewBroadcaster()
	m := &Monitor{
		Framer:      NewFramer(sampleRate),
		Broadcaster: b,
		HTTP:        NewHTTPHandler(b, sampleRate),
	}

	rtc, err := NewWebRTCHandler(b, sampleRate)
	switch {
	case errors.Is(err, ErrUnsupportedRate):
		slog.Info("WebRTC monitor disabled", "reason", err)
	case err != nil:
		slog.Warn("WebRTC monitor disabled", "err", err)
	default:
		m.WebRTC = rtc
	}
	return m
}

// Tap is installed on the playback buffer.
func (m *Monitor) Tap(block []float32) { m.Framer.Offer(block) }

// Register mounts the monitor's endpoints on mux.
func (m *Monitor) Register(mux *http.ServeMux) {
	mux.Handle("/stream", m.HTTP)
	if m.WebRTC != nil {
		mux.Handle("/offer", m.WebRTC)
	}
}

// PeerCount is zero when WebRTC is disabled.
func (m *Monitor) PeerCount() int {
	if m.WebRTC == nil {
		return 0
	}
	return m.WebRTC.PeerCount()
}

// Run broadcasts frames until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	m.Broadcaster.Run(ctx, m.Framer.Frames())
}
