package article

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeText folds title and body into the canonical token stream both
// fingerprints are computed over: NFKC form, lower case, punctuation and
// markup characters mapped to spaces, whitespace collapsed. Two texts that
// differ only in formatting normalize to the same string.
func NormalizeText(title, body string) string {
	combined := norm.NFKC.String(title + " " + body)
	combined = strings.ToLower(combined)

	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, combined)

	return strings.Join(strings.Fields(mapped), " ")
}
