package sfzcore

// simdAlignment is the nominal SIMD boundary AudioBuffer pads channel capacity
// to. Go gives us no portable way to pin slice alignment, so this only
// controls how far past numFrames each channel's backing array is sized —
// enough for unrolled-tail style loops to read past the logical end safely.
const simdAlignment = 8

// AudioBuffer is fixed-channel planar float64 storage, one slice per channel,
// each over-allocated to a simdAlignment boundary.
type AudioBuffer struct {
	channels  [][]float64
	numFrames int
}

// NewAudioBuffer allocates a buffer with the given channel count and frame
// capacity.
func NewAudioBuffer(numChannels, numFrames int) *AudioBuffer {
	b := &AudioBuffer{channels: make([][]float64, numChannels)}
	b.Resize(numFrames)
	return b
}

// Resize reallocates every channel to hold numFrames frames, rounded up to
// the SIMD alignment. Existing data is not preserved.
func (b *AudioBuffer) Resize(numFrames int) {
	b.numFrames = numFrames
	capFrames := numFrames
	if r := capFrames % simdAlignment; r != 0 {
		capFrames += simdAlignment - r
	}
	for i := range b.channels {
		b.channels[i] = make([]float64, capFrames)
	}
}

func (b *AudioBuffer) NumChannels() int { return len(b.channels) }
func (b *AudioBuffer) NumFrames() int   { return b.numFrames }
func (b *AudioBuffer) Empty() bool      { return b.numFrames == 0 }

// Channel returns the full logical span (length numFrames) for one channel.
func (b *AudioBuffer) Channel(ch int) []float64 {
	return b.channels[ch][:b.numFrames]
}

// AlignedEnd returns the channel slice extended to the SIMD-aligned capacity,
// allowing unrolled tail processing past the logical frame count.
func (b *AudioBuffer) AlignedEnd(ch int) []float64 {
	return b.channels[ch]
}

// Frame returns a single sample.
func (b *AudioBuffer) Frame(ch, frame int) float64 {
	return b.channels[ch][frame]
}

// SetFrame writes a single sample.
func (b *AudioBuffer) SetFrame(ch, frame int, v float64) {
	b.channels[ch][frame] = v
}

// Clear zeroes every channel's logical span.
func (b *AudioBuffer) Clear() {
	for ch := range b.channels {
		fill(0, b.Channel(ch))
	}
}

// Add performs an element-wise add of src into b (channel-aligned, disjoint
// backing arrays assumed).
func (b *AudioBuffer) Add(src *AudioBuffer) {
	n := min(b.NumChannels(), src.NumChannels())
	for ch := 0; ch < n; ch++ {
		add(src.Channel(ch), b.Channel(ch))
	}
}

// StereoBuffer is the common 2-channel case with named accessors.
type StereoBuffer struct {
	*AudioBuffer
}

func NewStereoBuffer(numFrames int) *StereoBuffer {
	return &StereoBuffer{NewAudioBuffer(2, numFrames)}
}

func (s *StereoBuffer) Left() []float64  { return s.Channel(0) }
func (s *StereoBuffer) Right() []float64 { return s.Channel(1) }

// ReadInterleaved fills this buffer's L/R channels from an interleaved span.
func (s *StereoBuffer) ReadInterleaved(in []float64) {
	readInterleaved(in, s.Left(), s.Right())
}

// WriteInterleaved writes this buffer's L/R channels into an interleaved span.
func (s *StereoBuffer) WriteInterleaved(out []float64) {
	writeInterleaved(s.Left(), s.Right(), out)
}
