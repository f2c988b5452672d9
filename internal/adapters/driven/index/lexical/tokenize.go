package lexical

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldTransformer decomposes text and drops combining marks, so "Café" and
// "cafe" produce the same token.
func foldTransformer() transform.Transformer {
	return transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// Tokenize returns the lowercase, accent-folded terms of text.
// Terms are maximal runs of letters and digits.
func Tokenize(text string) []string {
	folded, _, err := transform.String(foldTransformer(), text)
	if err != nil {
		folded = text
	}
	folded = strings.ToLower(folded)

	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
