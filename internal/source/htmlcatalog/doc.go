// Package htmlcatalog implements source.Catalog for shops described purely by
// configuration: URL templates plus CSS selectors evaluated with goquery.
//
// Pages are fetched over plain HTTP, or rendered in headless Chrome through
// chromedp when a source sets render = "browser". The page count comes from a
// total-count pattern divided by per_page, or from the highest page number in
// the pager links.
package htmlcatalog
