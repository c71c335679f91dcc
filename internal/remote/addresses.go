package remote

import (
	"github.com/hypebeast/go-osc/osc"
)

// Address grammar: "/" segment ("/" segment)*
const (
	addressRoot = "/board"

	// AddressTabName carries the board name as a string
	AddressTabName = addressRoot + "/label/tab_name"
)

// Attribute is the observable slot property named by the second address segment
type Attribute string

const (
	AttrLabel  Attribute = "label"  // clip display name, string
	AttrState  Attribute = "state"  // playback state, int
	AttrVolume Attribute = "volume" // 0..1, float
	AttrLoop   Attribute = "loop"   // 0/1, int
	AttrDuck   Attribute = "duck"   // 0/1, int
)

// SlotAddress returns "/board/<attr>/<label>"
func SlotAddress(attr Attribute, label string) string {
	return addressRoot + "/" + string(attr) + "/" + label
}

// TabNameMessage encodes the board name
func TabNameMessage(name string) *osc.Message {
	return ComposeMessage(AddressTabName, name)
}

// SlotMessage encodes one attribute of one slot
func SlotMessage(attr Attribute, label string, value any) *osc.Message {
	return ComposeMessage(SlotAddress(attr, label), value)
}

// BoolInt encodes a flag as an OSC integer
func BoolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
