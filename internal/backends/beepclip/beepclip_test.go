package beepclip

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/famish99/casterboard/internal/backends"
)

func TestGain(t *testing.T) {
	exp, silent := gain(100, false, -2)
	assert.False(t, silent)
	assert.InDelta(t, 0.0, exp, 1e-9)

	exp, silent = gain(50, false, -2)
	assert.False(t, silent)
	assert.InDelta(t, -1.0, exp, 1e-9)

	exp, silent = gain(50, true, -2)
	assert.False(t, silent)
	assert.InDelta(t, -3.0, exp, 1e-9)

	_, silent = gain(0, false, -2)
	assert.True(t, silent)

	exp, _ = gain(250, false, -2)
	assert.InDelta(t, 0.0, exp, 1e-9, "volume above 100 is clamped")
}

func TestLoadEmptyPathUnloads(t *testing.T) {
	p := New(44100, -2)

	require.NoError(t, p.Load(backends.Source{Path: "", Volume: 80}))
	assert.ErrorIs(t, p.Play(), backends.ErrNoSource)
	assert.Equal(t, backends.StateStopped, p.State())
}

func TestLoadMissingFile(t *testing.T) {
	p := New(44100, -2)

	err := p.Load(backends.Source{Path: filepath.Join(t.TempDir(), "missing.wav"), Volume: 80})
	require.Error(t, err)

	// Play reports the same failure and stays stopped
	assert.Error(t, p.Play())
	assert.Equal(t, backends.StateStopped, p.State())
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.txt")
	require.NoError(t, os.WriteFile(path, []byte("not audio"), 0644))

	p := New(44100, -2)
	err := p.Load(backends.Source{Path: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported audio format")
}

func TestLoadCorruptWav(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFFjunk"), 0644))

	p := New(44100, -2)
	assert.Error(t, p.Load(backends.Source{Path: path}))
	assert.Equal(t, backends.StateStopped, p.State())
}

func TestPauseAndStopWhenIdle(t *testing.T) {
	p := New(44100, -2)

	p.Pause()
	assert.Equal(t, backends.StateStopped, p.State())

	p.Stop()
	assert.Equal(t, backends.StateStopped, p.State())

	p.SetDucking(true)
	assert.True(t, p.ducking)
}

func TestStaleEndCallbackIgnored(t *testing.T) {
	p := New(44100, -2)
	p.state = backends.StatePlaying
	p.gen = 3
	calls := 0
	p.SetOnFinished(func() { calls++ })

	p.finished(2)
	assert.Equal(t, backends.StatePlaying, p.State())
	assert.Equal(t, 0, calls)

	p.finished(3)
	assert.Equal(t, backends.StateStopped, p.State())
	assert.Equal(t, 1, calls)

	p.finished(3)
	assert.Equal(t, 1, calls, "already stopped")
}
