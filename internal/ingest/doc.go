// Package ingest turns adapter listings into stored prices.
//
// Each listing is resolved to a canonical card and written through the
// change-aware price upsert. A bad listing is logged and skipped; it never
// aborts the surrounding page or keyword.
package ingest
