package otoclip

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

const (
	channelCount  = 2
	bytesPerFrame = channelCount * 2 // signed 16-bit little-endian
)

// decodePCM decodes a clip into interleaved stereo s16le at the given rate.
// Clips are not resampled; a rate mismatch is reported as an error.
func decodePCM(path string, rate int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open clip: %w", err)
	}
	defer f.Close()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		return decodeMP3(f, rate)
	case ".wav":
		return decodeWAV(f, rate)
	default:
		return nil, fmt.Errorf("unsupported audio format: %q", ext)
	}
}

func decodeMP3(r io.Reader, rate int) ([]byte, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode mp3: %w", err)
	}
	if d.SampleRate() != rate {
		return nil, fmt.Errorf("mp3 sample rate %d does not match output rate %d", d.SampleRate(), rate)
	}

	pcm, err := io.ReadAll(d)
	if err != nil {
		return nil, fmt.Errorf("failed to decode mp3: %w", err)
	}
	// go-mp3 always emits 16-bit stereo; trim a trailing partial frame
	return pcm[:len(pcm)/bytesPerFrame*bytesPerFrame], nil
}

func decodeWAV(r io.ReadSeeker, rate int) ([]byte, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file")
	}
	if int(d.SampleRate) != rate {
		return nil, fmt.Errorf("wav sample rate %d does not match output rate %d", d.SampleRate, rate)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode wav: %w", err)
	}
	return toStereo16(buf.Data, int(d.NumChans), int(d.BitDepth))
}

// toStereo16 converts interleaved integer samples to stereo s16le.
// Mono is duplicated to both channels; channels past the second are dropped.
func toStereo16(samples []int, chans, bitDepth int) ([]byte, error) {
	if chans < 1 {
		return nil, fmt.Errorf("invalid channel count: %d", chans)
	}
	switch bitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}

	frames := len(samples) / chans
	out := make([]byte, frames*bytesPerFrame)
	for i := 0; i < frames; i++ {
		left := to16(samples[i*chans], bitDepth)
		right := left
		if chans > 1 {
			right = to16(samples[i*chans+1], bitDepth)
		}
		binary.LittleEndian.PutUint16(out[i*bytesPerFrame:], uint16(left))
		binary.LittleEndian.PutUint16(out[i*bytesPerFrame+2:], uint16(right))
	}
	return out, nil
}

func to16(v, bitDepth int) int16 {
	switch bitDepth {
	case 8:
		// 8-bit wav is unsigned
		return int16((v - 128) << 8)
	case 24:
		return int16(v >> 8)
	case 32:
		return int16(v >> 16)
	default:
		return int16(v)
	}
}
