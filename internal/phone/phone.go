// Package phone canonicalizes phone numbers to the E.164 form used as the
// contact identity key.
package phone

import "strings"

// Normalize strips every non-digit and returns "+" followed by the digits,
// prefixing the North American country code "1" when the digits do not
// already start with it. A blank input yields "". A non-blank input with no
// digits, such as a withheld caller ID, yields "+1" so the sender still maps
// to a contact.
func Normalize(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	digits := digitsOf(raw)
	if !strings.HasPrefix(digits, "1") {
		digits = "1" + digits
	}
	return "+" + digits
}

// Candidates lists the stored forms a number may have been saved under:
// the canonical form, the bare national digits and the trimmed raw input.
// Duplicates and blanks are dropped.
func Candidates(raw string) []string {
	canonical := Normalize(raw)
	if canonical == "" {
		return nil
	}
	out := make([]string, 0, 3)
	add := func(v string) {
		if v == "" {
			return
		}
		for _, existing := range out {
			if existing == v {
				return
			}
		}
		out = append(out, v)
	}
	add(canonical)
	add(strings.TrimPrefix(canonical, "+1"))
	add(strings.TrimSpace(raw))
	return out
}

// Dialable reports whether raw carries any digits to dial.
func Dialable(raw string) bool {
	return digitsOf(raw) != ""
}

func digitsOf(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
