package corpus

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"
)

func TestPickerPublishes(t *testing.T) {
	c := Corpus{
		{Path: "a.wav", Channels: 2, Weight: 10, Frames: 80, SampleRate: 8000},
		{Path: "b.wav", Channels: 2, Weight: 20, Frames: 160, SampleRate: 8000},
	}
	p := NewPicker(c, NewSelector(rand.New(rand.NewPCG(9, 9))))

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- p.Run(ctx) }()

	for range 50 {
		select {
		case d := <-p.Picks():
			if d.Path != "a.wav" && d.Path != "b.wav" {
				t.Fatalf("unexpected pick %q", d.Path)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("no pick published")
		}
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if p.Count() != 50 {
		t.Errorf("Count() = %d, want 50", p.Count())
	}
}

func TestPickerEmptyCorpus(t *testing.T) {
	p := NewPicker(nil, NewSelector(rand.New(rand.NewPCG(1, 1))))
	if err := p.Run(context.Background()); !errors.Is(err, ErrEmptyCorpus) {
		t.Errorf("err = %v, want ErrEmptyCorpus", err)
	}
}
