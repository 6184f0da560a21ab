package audio

import (
	"encoding/binary"
	"io"
	"math"
)

// unknownSize fills the RIFF and data size fields of a WAV stream that has
// no end.
const unknownSize = 0xFFFFFFFF

// StreamWriter encodes chunks as an endless 16-bit stereo WAV body.
type StreamWriter struct {
	w          io.Writer
	sampleRate int
	buf        []byte
}

func NewStreamWriter(w io.Writer, sampleRate int) *StreamWriter {
	return &StreamWriter{w: w, sampleRate: sampleRate}
}

// WriteHeader sends the 44-byte canonical header. It must precede the
// first WriteChunk.
func (s *StreamWriter) WriteHeader() error {
	const blockAlign = Channels * BitDepth / 8

	hdr := make([]byte, 0, 44)
	hdr = append(hdr, "RIFF"...)
	hdr = binary.LittleEndian.AppendUint32(hdr, unknownSize)
	hdr = append(hdr, "WAVEfmt "...)
	hdr = binary.LittleEndian.AppendUint32(hdr, 16)
	hdr = binary.LittleEndian.AppendUint16(hdr, 1)
	hdr = binary.LittleEndian.AppendUint16(hdr, Channels)
	hdr = binary.LittleEndian.AppendUint32(hdr, uint32(s.sampleRate))
	hdr = binary.LittleEndian.AppendUint32(hdr, uint32(s.sampleRate*blockAlign))
	hdr = binary.LittleEndian.AppendUint16(hdr, blockAlign)
	hdr = binary.LittleEndian.AppendUint16(hdr, BitDepth)
	hdr = append(hdr, "data"...)
	hdr = binary.LittleEndian.AppendUint32(hdr, unknownSize)

	_, err := s.w.Write(hdr)
	return err
}

// WriteChunk quantises c to little-endian int16. The encode buffer is
// reused between calls.
func (s *StreamWriter) WriteChunk(c Chunk) error {
	s.buf = s.buf[:0]
	for _, v := range c {
		s.buf = binary.LittleEndian.AppendUint16(s.buf, uint16(Quantize(v)))
	}
	_, err := s.w.Write(s.buf)
	return err
}

// Quantize is the inverse of Normalize. It rounds to the nearest step and
// saturates outside [-1, 1].
func Quantize(v float32) int16 {
	switch {
	case v >= 1:
		return FullScale
	case v <= -1:
		return -FullScale
	}
	return int16(math.Round(float64(v) * FullScale))
}
