package stream

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/satindergrewal/acouwalk/internal/audio"
)

// ListenerBuffer is how many frames a listener may lag, about three seconds
// of 20ms frames. Beyond that its frames are dropped.
const ListenerBuffer = 150

// Broadcaster copies every monitor frame to each subscribed listener.
type Broadcaster struct {
	mu        sync.RWMutex
	listeners map[*Listener]struct{}
	dropped   atomic.Int64
}

// Listener is one subscription. C carries interleaved 20ms frames.
type Listener struct {
	C    chan audio.Chunk
	done chan struct{}
}

// Done is closed by Unsubscribe.
func (l *Listener) Done() <-chan struct{} { return l.done }

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{listeners: make(map[*Listener]struct{})}
}

func (b *Broadcaster) Subscribe() *Listener {
	l := &Listener{
		C:    make(chan audio.Chunk, ListenerBuffer),
		done: make(chan struct{}),
	}
	b.mu.Lock()
	b.listeners[l] = struct{}{}
	b.mu.Unlock()
	return l
}

// Unsubscribe must be called once per listener.
func (b *Broadcaster) Unsubscribe(l *Listener) {
	b.mu.Lock()
	delete(b.listeners, l)
	b.mu.Unlock()
	close(l.done)
}

func (b *Broadcaster) ListenerCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// Dropped counts frames a listener missed because its buffer was full.
func (b *Broadcaster) Dropped() int64 { return b.dropped.Load() }

// Run publishes frames from source until it closes or ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context, source <-chan audio.Chunk) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-source:
			if !ok {
				return
			}
			b.publish(frame)
		}
	}
}

// publish never blocks; a full listener misses the frame. Listeners share
// the frame and must not modify it.
func (b *Broadcaster) publish(frame audio.Chunk) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for l := range b.listeners {
		select {
		case l.C <- frame:
		default:
			b.dropped.Add(1)
		}
	}
}
