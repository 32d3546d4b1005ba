// Package knol derives stable identities for imported cards from their text.
package knol

import (
	"strings"

	"github.com/google/uuid"
)

// Namespace scopes the name-based card IDs.
var Namespace = uuid.MustParse("5b0c8f2e-6a55-4f0e-9d3c-2f1e7a9b4c61")

// Normalize concatenates the question and answer after cleaning each part.
// It trims whitespace, lowercases, and normalizes line endings for each field
// before joining them.
func Normalize(question, answer string) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		p = strings.TrimSpace(p)
		return p
	}

	// Joined with a newline so "ab"+"c" and "a"+"bc" stay distinct.
	return normalizePart(question) + "\n" + normalizePart(answer)
}

// ID returns the deterministic card ID for a question and answer. Cards whose
// text differs only in case or surrounding whitespace share an ID, so
// re-importing a file never duplicates a card or resets its schedule.
func ID(question, answer string) uuid.UUID {
	return uuid.NewSHA1(Namespace, []byte(Normalize(question, answer)))
}
