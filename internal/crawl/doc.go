// Package crawl implements the resumable catalog crawl.
//
// A Cursor records the next page to fetch for a shop. The Crawler loads it,
// fetches pages up to a per-run budget, ingests each page and persists the
// advanced cursor after every page. When the last page is fetched the cursor
// wraps back to page 1. Fetch errors leave the stored cursor untouched.
package crawl
