package identity

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	bracketCodeRe = regexp.MustCompile(`《[^》]*》`)
	bareCodeRe    = regexp.MustCompile(`\b(?:` + barePattern + `|` + promoPattern + `)\b`)
	parenCodeRe   = regexp.MustCompile(`(?i)\(\s*(?:` + barePattern + `|` + promoPattern + `)\s*\)`)
	squareRe      = regexp.MustCompile(`【[^】]*】|\[[^\]]*\]|〔[^〕]*〕|〈[^〉]*〉`)
	rarityParenRe = regexp.MustCompile(`(?i)\(\s*(?:SAR|SSR|CSR|CHR|SR|AR|UR|HR|RR|RRR|PR|ACE|TR|K|R|U|C)\s*\)`)
	rarityWordRe  = regexp.MustCompile(`\b(?:SAR|SSR|CSR|CHR|UR|HR|RRR)\b`)
	emptyParenRe  = regexp.MustCompile(`\(\s*\)`)
	spaceRe       = regexp.MustCompile(`\s+`)
)

// Listing decorations that describe condition or packaging rather than the product.
var decorationKeywords = []string{
	"PSA10",
	"PSA9",
	"BGS10",
	"美品",
	"未開封",
	"中古",
	"傷あり",
	"キズあり",
	"状態A-",
	"状態A",
	"状態B",
	"状態C",
	"パラレル",
	"プロモ",
	"※",
}

// BaseName strips codes, bracketed rarity markers and decorations from name so
// reprints of the same product compare equal. An empty string means nothing
// meaningful was left.
func BaseName(name string) string {
	text := norm.NFKC.String(name)
	text = bracketCodeRe.ReplaceAllString(text, " ")
	text = parenCodeRe.ReplaceAllString(text, " ")
	text = squareRe.ReplaceAllString(text, " ")
	text = rarityParenRe.ReplaceAllString(text, " ")
	text = bareCodeRe.ReplaceAllString(text, " ")
	text = rarityWordRe.ReplaceAllString(text, " ")
	for _, keyword := range decorationKeywords {
		text = strings.ReplaceAll(text, keyword, " ")
	}
	text = emptyParenRe.ReplaceAllString(text, " ")
	text = spaceRe.ReplaceAllString(text, " ")
	return strings.TrimFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
}
