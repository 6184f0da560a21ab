package stream

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/satindergrewal/acouwalk/internal/audio"
)

// HTTPHandler serves the live mix as an endless 16-bit PCM WAV stream.
type HTTPHandler struct {
	broadcaster *Broadcaster
	sampleRate  int
}

func NewHTTPHandler(b *Broadcaster, sampleRate int) *HTTPHandler {
	return &HTTPHandler{broadcaster: b, sampleRate: sampleRate}
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Cache-Control", "no-cache, no-store")
	w.Header().Set("Connection", "close")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	listener := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(listener)

	slog.Info("HTTP listener connected", "remote", r.RemoteAddr, "listeners", h.broadcaster.ListenerCount())
	defer slog.Info("HTTP listener disconnected", "remote", r.RemoteAddr)

	sw := audio.NewStreamWriter(w, h.sampleRate)
	if err := sw.WriteHeader(); err != nil {
		return
	}
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-listener.C:
			if !ok {
				return
			}
			if err := sw.WriteChunk(frame); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
