package otoclip

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToStereo16Mono(t *testing.T) {
	out, err := toStereo16([]int{1, -2}, 1, 16)
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0x01, 0x00, 0x01, 0x00,
		0xfe, 0xff, 0xfe, 0xff,
	}, out)
}

func TestToStereo16DropsExtraChannels(t *testing.T) {
	out, err := toStereo16([]int{1, 2, 3, 4, 5, 6}, 3, 16)
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0x01, 0x00, 0x02, 0x00,
		0x04, 0x00, 0x05, 0x00,
	}, out)
}

func TestToStereo16BitDepths(t *testing.T) {
	out, err := toStereo16([]int{128 + 1, 128 - 1}, 2, 8)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x01, 0x00, 0xff}, out)

	out, err = toStereo16([]int{0x012300, 0x7fff00}, 2, 24)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x23, 0x01, 0xff, 0x7f}, out)

	_, err = toStereo16([]int{0}, 1, 12)
	assert.Error(t, err)

	_, err = toStereo16([]int{0}, 0, 16)
	assert.Error(t, err)
}

func TestLoopReaderWraps(t *testing.T) {
	r := &loopReader{data: []byte{1, 2, 3}}

	buf := make([]byte, 7)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, []byte{1, 2, 3, 1, 2, 3, 1}, buf)

	n, err = r.Read(buf[:2])
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []byte{2, 3}, buf[:2])
}

func TestLoopReaderEmpty(t *testing.T) {
	r := &loopReader{}
	n, err := r.Read(make([]byte, 4))
	assert.Equal(t, 0, n)
	assert.Error(t, err)
}

func TestOutputVolume(t *testing.T) {
	assert.InDelta(t, 0.8, outputVolume(80, false, 0.25), 1e-9)
	assert.InDelta(t, 0.2, outputVolume(80, true, 0.25), 1e-9)
	assert.InDelta(t, 1.0, outputVolume(150, false, 0.25), 1e-9)
	assert.InDelta(t, 0.0, outputVolume(-5, false, 0.25), 1e-9)
}

func TestDecodePCMErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := decodePCM(filepath.Join(dir, "missing.wav"), 44100)
	assert.Error(t, err)

	txt := filepath.Join(dir, "clip.aiff")
	require.NoError(t, os.WriteFile(txt, []byte("data"), 0644))
	_, err = decodePCM(txt, 44100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported audio format")

	bad := filepath.Join(dir, "clip.wav")
	require.NoError(t, os.WriteFile(bad, []byte("not a riff file"), 0644))
	_, err = decodePCM(bad, 44100)
	assert.Error(t, err)
}
