package corpus

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
)

// ErrEmptyCorpus is returned when there is nothing to pick from.
var ErrEmptyCorpus = errors.New("corpus is empty")

// Picker publishes randomly selected descriptors on an unbuffered channel
// shared by every grain engine. Each send blocks until one engine receives.
type Picker struct {
	corpus Corpus
	sel    *Selector
	out    chan Descriptor
	picks  atomic.Int64
}

// NewPicker draws from c with sel.
func NewPicker(c Corpus, sel *Selector) *Picker {
	return &Picker{
		corpus: c,
		sel:    sel,
		out:    make(chan Descriptor),
	}
}

// Picks is the channel engines receive from. It is never closed.
func (p *Picker) Picks() <-chan Descriptor { return p.out }

// Count returns the number of descriptors handed out so far.
func (p *Picker) Count() int64 { return p.picks.Load() }

// Run publishes picks until ctx is cancelled.
func (p *Picker) Run(ctx context.Context) error {
	for {
		idx, ok := p.sel.Select(p.corpus, 1)
		if !ok {
			return ErrEmptyCorpus
		}
		d := p.corpus[idx[0]]

		select {
		case p.out <- d:
			p.picks.Add(1)
			slog.Debug("picked", "path", d.Path, "weight_ms", d.Weight)
		case <-ctx.Done():
			return nil
		}
	}
}
