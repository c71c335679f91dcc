package store

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/famish99/casterboard/internal/board"
)

// Format selects the on-disk encoding
type Format int

const (
	// FormatTagged is the self-describing format written by default
	FormatTagged Format = iota
	// FormatLegacy is the positional format of older board files
	FormatLegacy
)

func (f Format) String() string {
	switch f {
	case FormatTagged:
		return "tagged"
	case FormatLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// ParseFormat parses "tagged" or "legacy"
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "tagged":
		return FormatTagged, nil
	case "legacy":
		return FormatLegacy, nil
	default:
		return 0, fmt.Errorf("unknown board file format: %q", s)
	}
}

// Write serializes the board in the given format
func Write(w io.Writer, b *board.Board, format Format) error {
	snap := Capture(b)
	switch format {
	case FormatLegacy:
		return WriteLegacy(w, snap)
	default:
		return WriteTagged(w, snap)
	}
}

// Decode reads a snapshot, detecting the format from the leading magic bytes
func Decode(r io.Reader) (*Snapshot, Format, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read board data: %w", err)
	}

	if bytes.HasPrefix(data, []byte(boardMagic)) {
		snap, err := readTagged(data)
		return snap, FormatTagged, err
	}
	snap, err := readLegacy(data)
	return snap, FormatLegacy, err
}

// Read replaces the board's name and slot configurations with the stream's.
// The board is left untouched on error. Playback is not affected; call
// ReloadAllFromState to push the configuration into the players.
func Read(r io.Reader, b *board.Board) (Format, error) {
	snap, format, err := Decode(r)
	if err != nil {
		return format, err
	}
	snap.Apply(b)
	return format, nil
}

// SaveFile writes the board to path through a temp file and rename
func SaveFile(path string, b *board.Board, format Format) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create board directory: %w", err)
		}
	}

	tempPath := path + ".tmp"
	f, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create board file: %w", err)
	}

	w := bufio.NewWriter(f)
	if err := Write(w, b, format); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write board file: %w", err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write board file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to write board file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to finalize board file: %w", err)
	}

	log.Printf("Saved board %q to %s (%s)", b.Name(), path, format)
	return nil
}

// LoadFile reads a board file into b. See Read.
func LoadFile(path string, b *board.Board) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open board file: %w", err)
	}
	defer f.Close()

	format, err := Read(bufio.NewReader(f), b)
	if err != nil {
		return fmt.Errorf("failed to load board file %s: %w", path, err)
	}

	log.Printf("Loaded board %q from %s (%s)", b.Name(), path, format)
	return nil
}
