// Package source defines the listing adapter boundary between shop catalogs
// and the ingestion pipeline.
//
// A Catalog can be searched by keyword and paged through for the resumable
// crawl. Adapters own their own timeouts; callers treat a search failure as an
// empty result and a page failure as a reason to stop the crawl run.
package source
