package audio

import (
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"
)

const (
	formatPCM        = 1
	formatExtensible = 0xFFFE
)

var (
	ErrInvalidWAV        = errors.New("not a valid WAV file")
	ErrUnsupportedFormat = errors.New("unsupported sample format, want 16-bit linear PCM")
)

// WAVReader is a seekable cursor over the PCM data of a 16-bit WAV file.
type WAVReader struct {
	f         afero.File
	dec       *wav.Decoder
	channels  int
	rate      int
	frames    int
	dataStart int64
	buf       *goaudio.IntBuffer
}

// OpenWAV opens path on fs and parses its header. The caller must Close the
// reader.
func OpenWAV(fs afero.Fs, path string) (*WAVReader, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	r, err := newWAVReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

func newWAVReader(f afero.File) (*WAVReader, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		if dec.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWAV, dec.Err())
		}
		return nil, ErrInvalidWAV
	}
	if dec.NumChans == 0 {
		return nil, fmt.Errorf("%w: zero channels", ErrInvalidWAV)
	}
	if dec.WavAudioFormat != formatPCM && dec.WavAudioFormat != formatExtensible {
		return nil, fmt.Errorf("%w: format tag %d", ErrUnsupportedFormat, dec.WavAudioFormat)
	}
	if dec.BitDepth != BitDepth {
		return nil, fmt.Errorf("%w: %d-bit", ErrUnsupportedFormat, dec.BitDepth)
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("find PCM data: %w", err)
	}
	if dec.PCMChunk == nil {
		return nil, fmt.Errorf("%w: no data chunk", ErrInvalidWAV)
	}

	start, err := dec.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("locate PCM data: %w", err)
	}

	channels := int(dec.NumChans)
	blockAlign := channels * BitDepth / 8
	return &WAVReader{
		f:         f,
		dec:       dec,
		channels:  channels,
		rate:      int(dec.SampleRate),
		frames:    int(dec.PCMLen()) / blockAlign,
		dataStart: start,
		buf: &goaudio.IntBuffer{
			Format:         dec.Format(),
			SourceBitDepth: BitDepth,
		},
	}, nil
}

func (r *WAVReader) Channels() int   { return r.channels }
func (r *WAVReader) SampleRate() int { return r.rate }
func (r *WAVReader) BitDepth() int   { return BitDepth }
func (r *WAVReader) Frames() int     { return r.frames }

// Seek positions the cursor at the given frame of the PCM data.
func (r *WAVReader) Seek(frame int) error {
	if frame < 0 || frame > r.frames {
		return fmt.Errorf("seek to frame %d: out of range [0, %d]", frame, r.frames)
	}
	offset := r.dataStart + int64(frame*r.channels*BitDepth/8)
	if _, err := r.dec.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek to frame %d: %w", frame, err)
	}
	return nil
}

// ReadFrames fills dst with interleaved samples from the cursor and returns
// the number of samples read. Fewer than len(dst) samples are returned only
// at the end of the data.
func (r *WAVReader) ReadFrames(dst []int16) (int, error) {
	const batch = 8192

	n := 0
	for n < len(dst) {
		want := min(len(dst)-n, batch)
		if cap(r.buf.Data) < want {
			r.buf.Data = make([]int, want)
		}
		r.buf.Data = r.buf.Data[:want]

		got, err := r.dec.PCMBuffer(r.buf)
		for i := 0; i < got; i++ {
			dst[n+i] = int16(r.buf.Data[i])
		}
		n += got
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return n, fmt.Errorf("read PCM: %w", err)
		}
		if got == 0 {
			break
		}
	}
	return n, nil
}

func (r *WAVReader) Close() error {
	return r.f.Close()
}
