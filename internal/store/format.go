package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/famish99/casterboard/internal/board"
)

// Board file format (tagged):
// - Magic bytes (4): "CSBD"
// - Version (1): 0x02
// - Records until EOF, each:
//   - Tag (4): ASCII
//   - Length (4): uint32 big-endian
//   - Payload (Length bytes)
//
// Top-level tags:
//   NAME  board name, UTF-8
//   SLOT  nested records describing one slot:
//         LABL label letter, PATH clip path (UTF-8), VOLU int32 BE,
//         LOOP u8, DUCK u8
//
// Unknown tags are skipped. Slots are matched by label, so their order and
// count in the file do not need to match the board.

const (
	boardMagic   = "CSBD"
	boardVersion = 0x02

	tagName   = "NAME"
	tagSlot   = "SLOT"
	tagLabel  = "LABL"
	tagPath   = "PATH"
	tagVolume = "VOLU"
	tagLoop   = "LOOP"
	tagDuck   = "DUCK"

	recordHeaderSize = 8
)

// ErrBadFormat is returned for truncated or malformed board files
var ErrBadFormat = errors.New("invalid board file")

// Snapshot is the persisted content of a board
type Snapshot struct {
	Name  string
	Slots [board.NumLabels]board.SlotState
}

// Capture copies the persisted fields out of a board
func Capture(b *board.Board) *Snapshot {
	snap := &Snapshot{Name: b.Name()}
	for i, s := range b.Slots() {
		snap.Slots[i] = s.State()
	}
	return snap
}

// Apply stops every slot, then replaces the board name and every slot
// configuration. Call ReloadAllFromState afterwards to reopen the clips.
func (s *Snapshot) Apply(b *board.Board) {
	b.StopAllSounds()
	b.SetName(s.Name)
	for i, slot := range b.Slots() {
		slot.SetState(s.Slots[i])
	}
}

// emptySlots returns unconfigured slots at the default volume
func emptySlots() [board.NumLabels]board.SlotState {
	var slots [board.NumLabels]board.SlotState
	for i := range slots {
		slots[i].Volume = board.DefaultVolume
	}
	return slots
}

// WriteTagged writes the snapshot in the tagged format
func WriteTagged(w io.Writer, snap *Snapshot) error {
	if _, err := w.Write([]byte(boardMagic)); err != nil {
		return fmt.Errorf("failed to write magic: %w", err)
	}
	if err := binary.Write(w, binary.BigEndian, uint8(boardVersion)); err != nil {
		return fmt.Errorf("failed to write version: %w", err)
	}

	if err := writeRecord(w, tagName, []byte(snap.Name)); err != nil {
		return fmt.Errorf("failed to write board name: %w", err)
	}

	for i, st := range snap.Slots {
		label := board.Label(i)
		var payload bytes.Buffer

		// Writes to a bytes.Buffer cannot fail
		_ = writeRecord(&payload, tagLabel, []byte(label.String()))
		_ = writeRecord(&payload, tagPath, []byte(st.FilePath))
		_ = writeRecord(&payload, tagVolume, binary.BigEndian.AppendUint32(nil, uint32(int32(st.Volume))))
		_ = writeRecord(&payload, tagLoop, []byte{boolByte(st.Loop)})
		_ = writeRecord(&payload, tagDuck, []byte{boolByte(st.Ducking)})

		if err := writeRecord(w, tagSlot, payload.Bytes()); err != nil {
			return fmt.Errorf("failed to write slot %s: %w", label, err)
		}
	}

	return nil
}

func writeRecord(w io.Writer, tag string, payload []byte) error {
	header := make([]byte, recordHeaderSize)
	copy(header, tag)
	binary.BigEndian.PutUint32(header[4:], uint32(len(payload)))

	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// readTagged parses a tagged stream whose magic has already been verified
func readTagged(data []byte) (*Snapshot, error) {
	if len(data) < len(boardMagic)+1 {
		return nil, fmt.Errorf("%w: truncated header", ErrBadFormat)
	}
	if version := data[len(boardMagic)]; version != boardVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadFormat, version)
	}

	snap := &Snapshot{Slots: emptySlots()}
	err := eachRecord(data[len(boardMagic)+1:], func(tag string, payload []byte) error {
		switch tag {
		case tagName:
			snap.Name = string(payload)
		case tagSlot:
			label, st, err := readSlot(payload)
			if err != nil {
				return err
			}
			if !label.Valid() {
				return nil
			}
			snap.Slots[label] = st
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func readSlot(data []byte) (board.Label, board.SlotState, error) {
	st := board.SlotState{Volume: board.DefaultVolume}
	label := board.Label(-1)

	err := eachRecord(data, func(tag string, payload []byte) error {
		switch tag {
		case tagLabel:
			l, err := board.ParseLabel(string(payload))
			if err != nil {
				// Slots from a larger alphabet are ignored
				log.Printf("Skipping slot with unknown label %q", payload)
				return nil
			}
			label = l
		case tagPath:
			st.FilePath = string(payload)
		case tagVolume:
			if len(payload) != 4 {
				return fmt.Errorf("%w: volume record has %d bytes", ErrBadFormat, len(payload))
			}
			st.Volume = board.ClampVolume(int(int32(binary.BigEndian.Uint32(payload))))
		case tagLoop:
			if len(payload) != 1 {
				return fmt.Errorf("%w: loop record has %d bytes", ErrBadFormat, len(payload))
			}
			st.Loop = payload[0] != 0
		case tagDuck:
			if len(payload) != 1 {
				return fmt.Errorf("%w: duck record has %d bytes", ErrBadFormat, len(payload))
			}
			st.Ducking = payload[0] != 0
		}
		return nil
	})
	return label, st, err
}

// eachRecord walks a sequence of tag/length/payload records
func eachRecord(data []byte, fn func(tag string, payload []byte) error) error {
	for len(data) > 0 {
		if len(data) < recordHeaderSize {
			return fmt.Errorf("%w: truncated record header", ErrBadFormat)
		}
		tag := string(data[:4])
		size := binary.BigEndian.Uint32(data[4:recordHeaderSize])
		data = data[recordHeaderSize:]

		if uint64(size) > uint64(len(data)) {
			return fmt.Errorf("%w: record %s overruns stream", ErrBadFormat, tag)
		}
		if err := fn(tag, data[:size]); err != nil {
			return err
		}
		data = data[size:]
	}
	return nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
