package curriculum

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Slug derives a stable identifier from a title: lower-cased, with each run
// of whitespace replaced by a single hyphen. Leading and trailing runs are
// kept as hyphens so padded titles keep the IDs already stored for them.
func Slug(title string) string {
	var b strings.Builder
	inSpace := false
	for _, r := range cases.Lower(language.Und).String(title) {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte('-')
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
