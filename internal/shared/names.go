package shared

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeName collapses whitespace and upper-cases the first letter of each
// word. Existing capitals are kept so acronyms such as "ABS" survive.
func NormalizeName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return cases.Title(language.Und, cases.NoLower).String(strings.Join(fields, " "))
}
