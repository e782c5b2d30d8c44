// ABOUTME: Identifier rules for race records
// ABOUTME: DeriveID slugifies a race name; ValidateID guards file names built from identifiers

package store

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DeriveID turns a human-readable race name into an identifier: the name is lowercased,
// everything but ASCII letters, digits and the space character is dropped, and the remaining
// words are joined with hyphens. Accented letters and tabs are dropped like punctuation, so
// "Vendée Globe" yields "vende-globe". It returns "" when nothing survives.
func DeriveID(name string) string {
	lower := cases.Lower(language.Und).String(name)

	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), "-")
}

// ValidateID reports whether id can be used as a file stem inside a store directory.
func ValidateID(id string) error {
	if id == "" {
		return ErrIdentifierRequired
	}
	if strings.ContainsAny(id, "/\\\x00") || strings.HasPrefix(id, ".") {
		return ErrInvalidIdentifier
	}
	return nil
}
