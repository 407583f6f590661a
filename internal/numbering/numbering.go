// Package numbering derives sequential document numbers.
package numbering

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Width is the zero-padded width of a generated number. Larger values are not truncated.
const Width = 4

// ErrExhausted means the highest stored number has no successor.
var ErrExhausted = errors.New("numbering_exhausted")

// Next returns max(ParseInteger(n) for n in existing, default 0) + 1, zero padded.
// Numbers that do not start with digits count as 0 and never block numbering.
func Next(existing []string) (string, error) {
	var highest int64
	for _, number := range existing {
		if v := ParseInteger(number); v > highest {
			highest = v
		}
	}
	if highest == math.MaxInt64 {
		return "", ErrExhausted
	}
	return Format(highest + 1), nil
}

func Format(seq int64) string {
	return fmt.Sprintf("%0*d", Width, seq)
}

// ParseInteger reads an optional sign and the leading decimal digits of s,
// after surrounding whitespace. "0012" is 12, "7b" is 7, "INV-3" is 0.
func ParseInteger(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	negative := false
	switch s[0] {
	case '+':
		s = s[1:]
	case '-':
		negative = true
		s = s[1:]
	}

	var value int64
	digits := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		d := int64(r - '0')
		if value > (math.MaxInt64-d)/10 {
			return 0
		}
		value = value*10 + d
		digits++
	}
	if digits == 0 {
		return 0
	}
	if negative {
		return -value
	}
	return value
}
