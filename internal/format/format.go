// Package format normalizes free-text asset identifiers into their
// canonical fixed-width forms.
package format

import "strings"

const tagLength = 10

func stripNonAlnum(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func stripNonDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PatNum renders a patrimony tag as "XXXXXXXXX-X". Digits are extracted,
// truncated to ten and left-zero-padded, so any input carrying at least one
// digit normalizes successfully. An input with no digits at all returns ""
// (invalid); it never silently becomes "000000000-0".
func PatNum(s string) string {
	digits := stripNonDigits(s)
	if digits == "" {
		return ""
	}
	if len(digits) > tagLength {
		digits = digits[:tagLength]
	}
	digits = strings.Repeat("0", tagLength-len(digits)) + digits
	return digits[:9] + "-" + digits[9:]
}

// AtmNum renders an ATM tag as "XXX XXXXXX X". Valid only when the input
// holds exactly ten alphanumeric characters; anything else returns "".
func AtmNum(s string) string {
	clean := stripNonAlnum(s)
	if len(clean) != tagLength {
		return ""
	}
	return clean[:3] + " " + clean[3:9] + " " + clean[9:]
}

// Dispatch picks ATM formatting when the raw input contains any letter and
// patrimony formatting otherwise. An empty result signals invalid input.
func Dispatch(s string) string {
	if strings.ContainsFunc(s, func(r rune) bool {
		return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
	}) {
		return AtmNum(s)
	}
	return PatNum(s)
}
