package sfzcore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/GeoffreyPlitt/debuggo"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
)

var decodeDebug = debuggo.Debug("sfzcore:filepool:decode")

// DecodedAudio is what the external audio-file-I/O collaborator hands back to
// FilePool: planar float64 PCM plus the metadata a Region's loop opcodes need
// defaults from.
type DecodedAudio struct {
	Data       [][]float64 // one slice per channel, mono duplicated to stereo
	SampleRate int
	Channels   int
	NumFrames  int
	RootKey    int // from embedded metadata, -1 if absent
	LoopBegin  int64
	LoopEnd    int64
	HasLoop    bool
}

// Decoder is the FilePool's audio-file-I/O collaborator (§1's explicit
// external boundary: "Audio-file I/O ... returns decoded PCM and loop/root
// metadata"). The default implementation below wraps the teacher's
// go-audio/wav + mewkiz/flac decode paths.
type Decoder interface {
	Decode(path string) (*DecodedAudio, error)
	DecodePrefix(path string, maxFrames int) (*DecodedAudio, error)
}

// ErrFileNotFound and ErrUnsupportedChannels are the sentinel failures of a
// preload request; other decode failures are reported as *fileDecodeError.
var (
	ErrFileNotFound         = fmt.Errorf("sfzcore: sample file not found")
	ErrUnsupportedChannels  = fmt.Errorf("sfzcore: unsupported channel count (mono/stereo only)")
)

type fileDecodeError struct{ path string; cause error }

func (e *fileDecodeError) Error() string {
	return fmt.Sprintf("sfzcore: failed to decode %s: %v", e.path, e.cause)
}
func (e *fileDecodeError) Unwrap() error { return e.cause }

// defaultDecoder decodes WAV via go-audio/wav and FLAC via mewkiz/flac,
// exactly as the teacher's sample.go does, duplicating mono into both
// channels so every DecodedAudio is at least stereo-shaped for the pipeline.
type defaultDecoder struct{}

func NewDefaultDecoder() Decoder { return defaultDecoder{} }

func (defaultDecoder) Decode(path string) (*DecodedAudio, error) {
	return decodeFile(path, -1)
}

func (defaultDecoder) DecodePrefix(path string, maxFrames int) (*DecodedAudio, error) {
	return decodeFile(path, maxFrames)
}

func decodeFile(path string, maxFrames int) (*DecodedAudio, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, ErrFileNotFound
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".wav":
		return decodeWAV(path, maxFrames)
	case ".flac":
		return decodeFLAC(path, maxFrames)
	default:
		return nil, fmt.Errorf("sfzcore: unsupported audio format %q (supported: .wav, .flac)", ext)
	}
}

func decodeWAV(path string, maxFrames int) (*DecodedAudio, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &fileDecodeError{path, err}
	}
	defer file.Close()

	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		return nil, &fileDecodeError{path, fmt.Errorf("invalid WAV file")}
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, &fileDecodeError{path, err}
	}

	channels := int(decoder.NumChans)
	if channels != 1 && channels != 2 {
		return nil, ErrUnsupportedChannels
	}

	totalFrames := len(buf.Data) / channels
	if maxFrames > 0 && maxFrames < totalFrames {
		totalFrames = maxFrames
	}

	scale := bitDepthScale(int(decoder.BitDepth))
	out := planarFromInterleavedInts(buf.Data, channels, totalFrames, scale)

	return &DecodedAudio{
		Data:       out,
		SampleRate: int(decoder.SampleRate),
		Channels:   2,
		NumFrames:  totalFrames,
		RootKey:    -1,
		HasLoop:    false,
	}, nil
}

func decodeFLAC(path string, maxFrames int) (*DecodedAudio, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &fileDecodeError{path, err}
	}
	defer file.Close()

	stream, err := flac.New(file)
	if err != nil {
		return nil, &fileDecodeError{path, err}
	}
	defer stream.Close()

	if stream.Info == nil {
		return nil, &fileDecodeError{path, fmt.Errorf("no stream info")}
	}

	channels := int(stream.Info.NChannels)
	if channels != 1 && channels != 2 {
		return nil, ErrUnsupportedChannels
	}
	scale := bitDepthScale(int(stream.Info.BitsPerSample))

	left := []float64{}
	right := []float64{}
	for maxFrames <= 0 || len(left) < maxFrames {
		frame, err := stream.ParseNext()
		if err != nil {
			break // EOF or decode boundary; treat as end of stream
		}
		for i := 0; i < len(frame.Subframes[0].Samples); i++ {
			if maxFrames > 0 && len(left) >= maxFrames {
				break
			}
			l := float64(frame.Subframes[0].Samples[i]) / scale
			r := l
			if channels == 2 {
				r = float64(frame.Subframes[1].Samples[i]) / scale
			}
			left = append(left, l)
			right = append(right, r)
		}
	}

	return &DecodedAudio{
		Data:       [][]float64{left, right},
		SampleRate: int(stream.Info.SampleRate),
		Channels:   2,
		NumFrames:  len(left),
		RootKey:    -1,
		HasLoop:    false,
	}, nil
}

func bitDepthScale(bits int) float64 {
	switch bits {
	case 24:
		return 8388608.0
	case 32:
		return 2147483648.0
	default:
		return 32768.0
	}
}

// planarFromInterleavedInts converts go-audio's interleaved int PCM buffer
// into planar float64, duplicating mono into both channels.
func planarFromInterleavedInts(data []int, channels, frames int, scale float64) [][]float64 {
	l := make([]float64, frames)
	r := make([]float64, frames)
	for i := 0; i < frames; i++ {
		if channels == 1 {
			v := float64(data[i]) / scale
			l[i] = v
			r[i] = v
		} else {
			l[i] = float64(data[2*i]) / scale
			r[i] = float64(data[2*i+1]) / scale
		}
	}
	return [][]float64{l, r}
}
