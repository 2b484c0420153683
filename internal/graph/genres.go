package graph

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var genreTitleCaser = cases.Title(language.English)

// NormalizeGenre canonicalizes a genre name for storage so "Lo-Fi", "lo-fi"
// and " LO-FI " resolve to the same node.
func NormalizeGenre(genre string) string {
	return strings.ToLower(strings.Join(strings.Fields(genre), " "))
}

// DisplayGenre renders a stored genre name for user-facing output.
func DisplayGenre(genre string) string {
	return genreTitleCaser.String(genre)
}
