package store

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"golang.org/x/text/encoding/unicode"

	"github.com/famish99/casterboard/internal/board"
)

// Legacy board file format (positional, no header):
// - Board name: QString
// - For each label in legacy order:
//   - File path: QString
//   - Volume: int32 big-endian
//   - Loop: u8
//   - Ducking: u8
//
// A QString is a uint32 big-endian byte length followed by UTF-16BE text.
// A length of 0xFFFFFFFF is a null string.

const nullQString = 0xFFFFFFFF

var utf16BE = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// legacyOrder is the slot order of legacy files: labels sorted by letter
func legacyOrder() []board.Label {
	labels := board.Labels()
	sort.Slice(labels, func(i, j int) bool {
		return labels[i].String() < labels[j].String()
	})
	return labels
}

// WriteLegacy writes the snapshot in the legacy positional format
func WriteLegacy(w io.Writer, snap *Snapshot) error {
	if err := writeQString(w, snap.Name); err != nil {
		return fmt.Errorf("failed to write board name: %w", err)
	}

	for _, label := range legacyOrder() {
		st := snap.Slots[label]
		if err := writeQString(w, st.FilePath); err != nil {
			return fmt.Errorf("failed to write slot %s path: %w", label, err)
		}
		if err := binary.Write(w, binary.BigEndian, int32(st.Volume)); err != nil {
			return fmt.Errorf("failed to write slot %s volume: %w", label, err)
		}
		if err := binary.Write(w, binary.BigEndian, [2]uint8{boolByte(st.Loop), boolByte(st.Ducking)}); err != nil {
			return fmt.Errorf("failed to write slot %s flags: %w", label, err)
		}
	}

	return nil
}

// readLegacy parses a legacy stream. The slot count is implicit.
func readLegacy(data []byte) (*Snapshot, error) {
	r := bytes.NewReader(data)
	snap := &Snapshot{Slots: emptySlots()}

	name, err := readQString(r)
	if err != nil {
		return nil, fmt.Errorf("%w: board name: %v", ErrBadFormat, err)
	}
	snap.Name = name

	for _, label := range legacyOrder() {
		st := board.SlotState{}

		if st.FilePath, err = readQString(r); err != nil {
			return nil, fmt.Errorf("%w: slot %s path: %v", ErrBadFormat, label, err)
		}

		var volume int32
		if err := binary.Read(r, binary.BigEndian, &volume); err != nil {
			return nil, fmt.Errorf("%w: slot %s volume: %v", ErrBadFormat, label, err)
		}
		st.Volume = board.ClampVolume(int(volume))

		var flags [2]uint8
		if err := binary.Read(r, binary.BigEndian, &flags); err != nil {
			return nil, fmt.Errorf("%w: slot %s flags: %v", ErrBadFormat, label, err)
		}
		st.Loop = flags[0] != 0
		st.Ducking = flags[1] != 0

		snap.Slots[label] = st
	}

	return snap, nil
}

func writeQString(w io.Writer, s string) error {
	encoded, err := utf16BE.NewEncoder().String(s)
	if err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(encoded))); err != nil {
		return err
	}
	_, err = io.WriteString(w, encoded)
	return err
}

func readQString(r *bytes.Reader) (string, error) {
	var size uint32
	if err := binary.Read(r, binary.BigEndian, &size); err != nil {
		return "", err
	}
	if size == nullQString {
		return "", nil
	}
	if size%2 != 0 {
		return "", fmt.Errorf("odd UTF-16 length %d", size)
	}
	if int64(size) > int64(r.Len()) {
		return "", io.ErrUnexpectedEOF
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	decoded, err := utf16BE.NewDecoder().Bytes(buf)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
