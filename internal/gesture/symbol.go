// Package gesture turns per-frame classifier output into discrete letter and word events.
package gesture

import "strings"

// Symbol is one unit of classifier output: a letter or a control gesture.
// The zero value None means "no symbol".
type Symbol uint8

const (
	None Symbol = iota
	A
	B
	C
	D
	E
	F
	G
	H
	I
	J
	K
	L
	M
	N
	O
	P
	Q
	R
	S
	T
	U
	V
	W
	X
	Y
	Z
	// Nothing is the "no sign" class of the control alphabet.
	Nothing
	// Space commits the current word.
	Space
	// Delete removes the last letter of the current word.
	Delete
)

// IsLetter reports whether s is one of A..Z.
func (s Symbol) IsLetter() bool {
	return s >= A && s <= Z
}

// IsControl reports whether s is one of the control symbols.
func (s Symbol) IsControl() bool {
	return s == Nothing || s == Space || s == Delete
}

// String returns the letter itself for letters and the classifier label for controls.
func (s Symbol) String() string {
	switch {
	case s.IsLetter():
		return string(rune('A' + s - A))
	case s == Nothing:
		return "nothing"
	case s == Space:
		return "space"
	case s == Delete:
		return "del"
	default:
		return "-"
	}
}

// ParseLabel converts a classifier label to a Symbol.
// Letters are case-insensitive; control labels are "nothing", "space" and "del" (or "delete").
func ParseLabel(label string) (Symbol, bool) {
	label = strings.TrimSpace(label)
	if len(label) == 1 {
		c := label[0]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if c >= 'A' && c <= 'Z' {
			return A + Symbol(c-'A'), true
		}
		return None, false
	}

	switch strings.ToLower(label) {
	case "nothing":
		return Nothing, true
	case "space":
		return Space, true
	case "del", "delete":
		return Delete, true
	}
	return None, false
}

// Word renders a letter sequence as text. Non-letters are skipped.
func Word(letters []Symbol) string {
	var b strings.Builder
	b.Grow(len(letters))
	for _, s := range letters {
		if s.IsLetter() {
			b.WriteByte(byte('A' + s - A))
		}
	}
	return b.String()
}

// Alphabet is the set of symbols a classifier may emit.
type Alphabet uint8

const (
	// AlphabetWithControls is A..Z plus NOTHING, SPACE and DELETE.
	AlphabetWithControls Alphabet = iota
	// AlphabetLetters is A..Z only.
	AlphabetLetters
)

// Contains reports whether s belongs to the alphabet.
func (a Alphabet) Contains(s Symbol) bool {
	if s.IsLetter() {
		return true
	}
	return a == AlphabetWithControls && s.IsControl()
}

// HasControls reports whether the alphabet includes the control symbols.
func (a Alphabet) HasControls() bool {
	return a == AlphabetWithControls
}

// Symbols lists the alphabet in classifier label order.
func (a Alphabet) Symbols() []Symbol {
	out := make([]Symbol, 0, 29)
	for s := A; s <= Z; s++ {
		out = append(out, s)
	}
	if a.HasControls() {
		out = append(out, Nothing, Space, Delete)
	}
	return out
}

// String returns the configuration name of the alphabet.
func (a Alphabet) String() string {
	if a == AlphabetLetters {
		return "letters"
	}
	return "controls"
}

// ParseAlphabet parses "letters" or "controls".
func ParseAlphabet(name string) (Alphabet, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "letters":
		return AlphabetLetters, true
	case "controls", "":
		return AlphabetWithControls, true
	}
	return AlphabetWithControls, false
}
