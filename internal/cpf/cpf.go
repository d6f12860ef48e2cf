// Package cpf validates and formats Brazilian individual taxpayer numbers.
package cpf

import (
	"fmt"
	"strings"
)

// Normalize strips every non-digit character.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Valid reports whether raw holds an 11-digit CPF with correct check digits.
// Punctuation is ignored.
func Valid(raw string) bool {
	digits := Normalize(raw)
	if len(digits) != 11 {
		return false
	}
	return checkDigit(digits[:9], 10) == digits[9] && checkDigit(digits[:10], 11) == digits[10]
}

func checkDigit(prefix string, weight int) byte {
	sum := 0
	for i := 0; i < len(prefix); i++ {
		sum += int(prefix[i]-'0') * (weight - i)
	}
	rem := (sum * 10) % 11
	if rem == 10 {
		rem = 0
	}
	return byte('0' + rem)
}

// Format renders a CPF as 000.000.000-00. Inputs without 11 digits are
// returned unchanged.
func Format(raw string) string {
	d := Normalize(raw)
	if len(d) != 11 {
		return raw
	}
	return fmt.Sprintf("%s.%s.%s-%s", d[:3], d[3:6], d[6:9], d[9:])
}
