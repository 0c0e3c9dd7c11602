package model

import (
	"unicode/utf16"
	"unicode/utf8"
)

// Offsets inside text nodes are counted in UTF-16 code units, so that
// positions exchanged with browser based editors point at the same place.

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// TextLength returns the length of s in UTF-16 code units.
func TextLength(s string) int {
	if isASCII(s) {
		return len(s)
	}
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// splitsPair reports whether offset falls between the two halves of a
// surrogate pair of s. Such offsets can't be cut at.
func splitsPair(s string, offset int) bool {
	if offset <= 0 || isASCII(s) {
		return false
	}
	n := 0
	for _, r := range s {
		if n >= offset {
			return false
		}
		if r >= 0x10000 {
			n += 2
			if n > offset {
				return true
			}
		} else {
			n++
		}
	}
	return false
}

func sliceText(s string, from, to int) string {
	if isASCII(s) {
		return s[from:to]
	}
	units := utf16.Encode([]rune(s))
	return string(utf16.Decode(units[from:to]))
}

func textUnits(s string) []uint16 {
	return utf16.Encode([]rune(s))
}
