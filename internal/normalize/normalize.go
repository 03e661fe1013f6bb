package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MinNameKeyLength is the shortest name key considered learnable.
const MinNameKeyLength = 5

// stripMarks decomposes text and removes combining marks, turning accented
// letters into their base form.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// placeholderKeys are normalized values that carry no identity information.
// Comparison happens after normalization, so "N/A" arrives here as "N A".
var placeholderKeys = map[string]struct{}{
	"NOT INFORMED": {},
	"NO NAME":      {},
	"N A":          {},
	"NA":           {},
	"NONE":         {},
	"NULL":         {},
}

// NameKey converts a raw party name into its canonical lookup key.
// It returns "" when the name normalizes to a placeholder value or to a key
// shorter than MinNameKeyLength.
func NameKey(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	stripped, _, err := transform.String(stripMarks, name)
	if err != nil {
		stripped = name
	}
	stripped = strings.ToUpper(stripped)

	var b strings.Builder
	b.Grow(len(stripped))
	pendingSpace := false
	for _, r := range stripped {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
			continue
		}
		pendingSpace = true
	}

	key := b.String()
	if _, placeholder := placeholderKeys[key]; placeholder {
		return ""
	}
	if len(key) < MinNameKeyLength {
		return ""
	}
	return key
}

// DigitsOnly strips everything but ASCII digits from a document string.
func DigitsOnly(document string) string {
	var b strings.Builder
	b.Grow(len(document))
	for _, r := range document {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
