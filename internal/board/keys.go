package board

import "unicode"

// KeyCode is a physical key code as delivered by the input layer.
// Letter keys use their upper-case ASCII value.
type KeyCode int

// KeyBinding maps key codes to slot labels. It is fixed for a board's lifetime.
type KeyBinding map[KeyCode]Label

// DefaultKeyBinding binds each label to the key with the same letter
func DefaultKeyBinding() KeyBinding {
	kb := make(KeyBinding, NumLabels)
	for _, l := range Labels() {
		kb[KeyCode(l.String()[0])] = l
	}
	return kb
}

// KeyCodeForRune returns the key code for a typed character
func KeyCodeForRune(r rune) KeyCode {
	return KeyCode(unicode.ToUpper(r))
}
