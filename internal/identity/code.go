package identity

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CodeKind tells which matcher produced an extracted code.
type CodeKind string

const (
	CodeBracket CodeKind = "bracket"
	CodeBare    CodeKind = "bare"
	CodePromo   CodeKind = "promo"
	CodeParen   CodeKind = "paren"
)

const (
	barePattern  = `[A-Z]{2,3}\d{1,2}-[A-Z]{0,2}\d{1,3}`
	promoPattern = `[PX]-\d{1,3}`
)

type codeMatcher struct {
	kind CodeKind
	re   *regexp.Regexp
}

// Matchers run in order; the first hit wins.
var codeMatchers = []codeMatcher{
	{CodeBracket, regexp.MustCompile(`《\s*([A-Z]{2,4}\d{1,3}-[A-Z]{0,3}\d{1,3})\s*》`)},
	{CodeBare, regexp.MustCompile(`\b(` + barePattern + `)\b`)},
	{CodePromo, regexp.MustCompile(`\b(` + promoPattern + `)\b`)},
	// Parenthesized codes match case-insensitively.
	{CodeParen, regexp.MustCompile(`(?i)\(\s*(` + barePattern + `|` + promoPattern + `)\s*\)`)},
}

// Code is a structured product code found in a listing name.
type Code struct {
	Value string
	Kind  CodeKind
}

// ExtractCode returns the first product code found in name. Full-width input is
// compatibility normalized first, so "ＳＶ１-００１" matches like "SV1-001".
func ExtractCode(name string) (Code, bool) {
	text := norm.NFKC.String(name)
	for _, m := range codeMatchers {
		if sub := m.re.FindStringSubmatch(text); len(sub) > 1 {
			return Code{Value: strings.ToUpper(sub[1]), Kind: m.kind}, true
		}
	}
	return Code{}, false
}
