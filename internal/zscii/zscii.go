// Package zscii implements the `ZSCII` pseudo-op's text encoder (spec.md
// §6.3/§9): pack source text into Z-machine Z-characters, three to a
// 16-bit word, with the high bit of the final word set to mark the end of
// the string.
//
// There is no teacher or pack equivalent of Z-machine text packing; this is
// grounded directly in the Z-machine Standard's encoding rules (alphabet
// tables A0/A1/A2, the version-3 one-shot shift characters 4 and 5, and the
// A2-char-6 ZSCII-escape for characters outside the three alphabets), scoped
// down to the version-3 encoding since the dialect has no `ZSCII VERSION`
// knob of its own.
package zscii

// alphabetA0 holds codes 6..31 of the lowercase alphabet.
const alphabetA0 = "abcdefghijklmnopqrstuvwxyz"

// alphabetA1 holds codes 6..31 of the uppercase alphabet.
const alphabetA1 = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// alphabetA2 holds codes 8..31 of the punctuation/digit alphabet; codes 6
// and 7 are reserved (6 is the ZSCII-escape marker, 7 is newline).
const alphabetA2 = "0123456789.,!?_#'\"/\\-:()"

// Encode packs s into Z-machine text: one Z-character per source
// character where possible (falling back to the A2 escape for characters
// outside the three built-in alphabets), three Z-characters per 16-bit
// word, a short final group padded with Z-character 5, with the last
// word's top bit set.
func Encode(s string) []uint16 {
	var zchars []int
	for _, r := range s {
		c := byte(r)
		switch {
		case c == ' ':
			zchars = append(zchars, 0)
		case indexOf(alphabetA0, c) >= 0:
			zchars = append(zchars, 6+indexOf(alphabetA0, c))
		case indexOf(alphabetA1, c) >= 0:
			zchars = append(zchars, 4, 6+indexOf(alphabetA1, c))
		case indexOf(alphabetA2, c) >= 0:
			zchars = append(zchars, 5, 8+indexOf(alphabetA2, c))
		default:
			// ZSCII escape: shift to A2, char 6, then two Z-characters
			// carrying the 8-bit code as 5-bit top/bottom halves.
			zchars = append(zchars, 5, 6, int(c>>5), int(c&0x1F))
		}
	}
	for len(zchars)%3 != 0 {
		zchars = append(zchars, 5) // pad with A2-shift, a conventional no-op filler
	}

	words := make([]uint16, 0, len(zchars)/3)
	for i := 0; i < len(zchars); i += 3 {
		w := uint16(zchars[i]&0x1F)<<10 | uint16(zchars[i+1]&0x1F)<<5 | uint16(zchars[i+2]&0x1F)
		words = append(words, w)
	}
	if len(words) > 0 {
		words[len(words)-1] |= 0x8000
	}
	return words
}

func indexOf(alphabet string, c byte) int {
	for i := 0; i < len(alphabet); i++ {
		if alphabet[i] == c {
			return i
		}
	}
	return -1
}
