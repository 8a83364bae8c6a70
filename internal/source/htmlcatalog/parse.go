package htmlcatalog

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"tcgprice/internal/source"
)

var (
	numberRe = regexp.MustCompile(`\d[\d,]*`)
	spacesRe = regexp.MustCompile(`\s+`)
)

func cleanText(s string) string {
	return strings.TrimSpace(spacesRe.ReplaceAllString(s, " "))
}

// parseNumber returns the first number in s, ignoring thousands separators.
func parseNumber(s string) int {
	match := numberRe.FindString(s)
	if match == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(match, ",", ""))
	if err != nil {
		return 0
	}
	return n
}

// ParsePrice extracts a yen amount such as "¥1,200 (税込)". Zero means no price.
func ParsePrice(text string) int {
	return parseNumber(text)
}

// ParseStock extracts a stock count from text like "在庫: 3点". It returns nil
// when the text carries no number.
func ParseStock(text string) *int {
	if numberRe.FindString(text) == "" {
		return nil
	}
	n := parseNumber(text)
	return &n
}

func resolveURL(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if base == nil {
		return parsed.String()
	}
	return base.ResolveReference(parsed).String()
}

func (c *Catalog) parseDocument(doc *goquery.Document, base *url.URL) []source.Listing {
	var listings []source.Listing
	doc.Find(c.src.ItemSelector).Each(func(_ int, item *goquery.Selection) {
		if listing, ok := c.parseItem(item, base); ok {
			listings = append(listings, listing)
		}
	})
	return listings
}

func (c *Catalog) parseItem(item *goquery.Selection, base *url.URL) (source.Listing, bool) {
	name := cleanText(item.Find(c.src.NameSelector).First().Text())
	if name == "" {
		return source.Listing{}, false
	}
	listing := source.Listing{
		Name:  name,
		Price: ParsePrice(item.Find(c.src.PriceSelector).First().Text()),
	}

	link := item.Find(c.src.LinkSelector).First()
	href, ok := link.Attr("href")
	if !ok {
		href, ok = link.Find("a").First().Attr("href")
	}
	if !ok {
		href, _ = item.Attr("href")
	}
	listing.URL = resolveURL(base, href)

	if c.src.StockSelector != "" {
		listing.StockText = cleanText(item.Find(c.src.StockSelector).First().Text())
		listing.Stock = ParseStock(listing.StockText)
	}
	if c.src.ImageSelector != "" {
		img := item.Find(c.src.ImageSelector).First()
		src, ok := img.Attr("data-src")
		if !ok || strings.TrimSpace(src) == "" {
			src, _ = img.Attr("src")
		}
		listing.ImageURL = resolveURL(base, src)
	}
	if c.src.SoldOutSelector != "" {
		if marker := item.Find(c.src.SoldOutSelector); marker.Length() > 0 {
			zero := 0
			listing.Stock = &zero
			if listing.StockText == "" {
				listing.StockText = cleanText(marker.First().Text())
			}
			if listing.StockText == "" {
				listing.StockText = "sold out"
			}
		}
	}
	return listing, true
}

// totalPages reads the page count from a total-count pattern or from the
// pager links. It returns zero when neither reveals it.
func (c *Catalog) totalPages(doc *goquery.Document, page int) int {
	if c.totalPattern != nil && c.src.PerPage > 0 {
		if m := c.totalPattern.FindStringSubmatch(doc.Text()); len(m) > 1 {
			if count := parseNumber(m[1]); count > 0 {
				return (count + c.src.PerPage - 1) / c.src.PerPage
			}
		}
	}
	if c.src.PageLinkSelector == "" {
		return 0
	}
	highest := 0
	doc.Find(c.src.PageLinkSelector).Each(func(_ int, link *goquery.Selection) {
		n := 0
		if c.pagePattern != nil {
			href, _ := link.Attr("href")
			if m := c.pagePattern.FindStringSubmatch(href); len(m) > 1 {
				n = parseNumber(m[1])
			}
		} else if v, err := strconv.Atoi(cleanText(link.Text())); err == nil {
			n = v
		}
		if n > highest {
			highest = n
		}
	})
	if highest == 0 {
		return 0
	}
	if page > highest {
		highest = page
	}
	return highest
}
