package corpus

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sourcegraph/conc"
	"github.com/spf13/afero"
)

// ErrProducerClosed reports that the survey channel closed before every
// surveyor delivered its end-of-work sentinel.
var ErrProducerClosed = errors.New("survey channel closed before all surveyors finished")

// Survey is one message from a surveyor to the aggregator. A nil Desc is
// the sentinel a surveyor sends once its path source is exhausted.
type Survey struct {
	Surveyor int
	Desc     *Descriptor
}

// Exclusions is a set of cleaned paths that must never enter the corpus.
type Exclusions map[string]struct{}

// NewExclusions builds the set from paths as listed in an exclusion file.
func NewExclusions(paths []string) Exclusions {
	ex := make(Exclusions, len(paths))
	for _, p := range paths {
		ex[filepath.Clean(p)] = struct{}{}
	}
	return ex
}

// Contains compares the cleaned form of path against the set.
func (ex Exclusions) Contains(path string) bool {
	_, ok := ex[filepath.Clean(path)]
	return ok
}

// Surveyor turns candidate paths into descriptors.
type Surveyor struct {
	ID      int
	FS      afero.Fs
	CapMs   float64
	Exclude Exclusions
}

// Run consumes paths until the channel closes, reporting each usable file
// on out. It then sends its sentinel on out and its ID on done.
func (s *Surveyor) Run(paths <-chan string, out chan<- Survey, done chan<- int) {
	for path := range paths {
		if d, ok := s.survey(path); ok {
			out <- Survey{Surveyor: s.ID, Desc: &d}
		}
	}
	out <- Survey{Surveyor: s.ID}
	done <- s.ID
}

func (s *Surveyor) survey(path string) (Descriptor, bool) {
	if !IsWAV(path) {
		return Descriptor{}, false
	}
	if s.Exclude.Contains(path) {
		slog.Debug("skipping excluded file", "path", path)
		return Descriptor{}, false
	}
	d, err := Describe(s.FS, path, s.CapMs)
	if err != nil {
		slog.Debug("skipping file", "path", path, "err", err)
		return Descriptor{}, false
	}
	return d, true
}

// Aggregate collects descriptors until it has seen one sentinel from each
// of the n surveyors. It blocks for as long as any sentinel is missing.
func Aggregate(n int, in <-chan Survey) (Corpus, error) {
	var c Corpus
	finished := 0
	for finished < n {
		msg, ok := <-in
		if !ok {
			return nil, ErrProducerClosed
		}
		if msg.Desc == nil {
			finished++
			continue
		}
		c = append(c, *msg.Desc)
	}
	return c, nil
}

// Walk sends every regular file under roots on paths. Unreadable entries
// are skipped. Walk does not close paths.
func Walk(ctx context.Context, fs afero.Fs, roots []string, paths chan<- string) error {
	for _, root := range roots {
		err := afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				slog.Debug("skipping unreadable path", "path", path, "err", err)
				return nil
			}
			if !isRegular(fs, path, info) {
				return nil
			}
			select {
			case paths <- path:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// isRegular reports whether path is a regular file, following a symlink to
// its target. Symlinked directories are not descended into.
func isRegular(fs afero.Fs, path string, info os.FileInfo) bool {
	if info.Mode()&os.ModeSymlink == 0 {
		return info.Mode().IsRegular()
	}
	target, err := fs.Stat(path)
	if err != nil {
		slog.Debug("skipping dangling symlink", "path", path, "err", err)
		return false
	}
	return target.Mode().IsRegular()
}

// Options configures Build.
type Options struct {
	Roots   []string
	Exclude []string // paths skipped even when they are usable WAVs
	CapMs   float64  // weight cap in milliseconds, 0 disables it
	Workers int      // surveyor count, at least one is started
}

// Build walks the roots with a pool of surveyors and returns the finished
// corpus. Cancelling ctx stops the walk early; the surveyors still finish
// the sentinel protocol.
func Build(ctx context.Context, fs afero.Fs, opts Options) (Corpus, error) {
	workers := max(opts.Workers, 1)
	exclude := NewExclusions(opts.Exclude)

	paths := make(chan string)
	reports := make(chan Survey)
	done := make(chan int)

	var wg conc.WaitGroup
	wg.Go(func() {
		defer close(paths)
		if err := Walk(ctx, fs, opts.Roots, paths); err != nil {
			slog.Warn("directory walk stopped", "err", err)
		}
	})
	for id := range workers {
		s := &Surveyor{ID: id, FS: fs, CapMs: opts.CapMs, Exclude: exclude}
		wg.Go(func() { s.Run(paths, reports, done) })
	}

	c, err := Aggregate(workers, reports)
	if err != nil {
		return nil, err
	}
	for range workers {
		id := <-done
		slog.Debug("surveyor finished", "surveyor", id)
	}
	wg.Wait()

	slog.Info("corpus ready", "files", len(c), "total_ms", c.TotalWeight())
	return c, nil
}
