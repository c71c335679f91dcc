package board

import (
	"fmt"
	"strings"
)

// Label identifies a slot. Its order fixes grid position and the
// iteration order of broadcasts and serialization.
type Label int

const (
	LabelQ Label = iota
	LabelW
	LabelE
	LabelR
	LabelA
	LabelS
	LabelD
	LabelF
)

// NumLabels is the size of the label alphabet
const NumLabels = 8

// GridColumns is the number of slots per grid row
const GridColumns = 4

var labelNames = [NumLabels]string{"Q", "W", "E", "R", "A", "S", "D", "F"}

// Labels returns the alphabet in order
func Labels() []Label {
	labels := make([]Label, NumLabels)
	for i := range labels {
		labels[i] = Label(i)
	}
	return labels
}

// LabelNames returns the alphabet as strings, in order
func LabelNames() []string {
	return labelNames[:]
}

// Valid reports whether l is part of the alphabet
func (l Label) Valid() bool {
	return l >= 0 && l < NumLabels
}

func (l Label) String() string {
	if !l.Valid() {
		return fmt.Sprintf("Label(%d)", int(l))
	}
	return labelNames[l]
}

// ParseLabel parses a label letter, case-insensitively
func ParseLabel(s string) (Label, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range labelNames {
		if name == s {
			return Label(i), nil
		}
	}
	return 0, fmt.Errorf("unknown slot label: %q", s)
}
