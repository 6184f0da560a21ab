package audio

import "time"

const (
	Channels  = 2
	BitDepth  = 16
	FullScale = 32767 // divisor that maps int16 PCM onto [-1, 1]

	// FrameDuration is the packet length of the network monitor.
	FrameDuration = 20 * time.Millisecond
)

// Chunk is a run of interleaved stereo samples in [-1, 1]. Its length is
// always even.
type Chunk []float32

// Frames returns the number of stereo frames in c.
func (c Chunk) Frames() int { return len(c) / Channels }

// FrameSize returns the samples per channel in one FrameDuration at rate.
func FrameSize(rate int) int {
	return rate * int(FrameDuration/time.Millisecond) / 1000
}

// Normalize maps a 16-bit PCM value onto [-1, 1]. -32768 maps slightly
// below -1.
func Normalize(s int16) float32 {
	return float32(s) / FullScale
}

// Clipped reports whether s sits at either extreme of the 16-bit range.
func Clipped(s int16) bool {
	return s == 32767 || s == -32768
}
