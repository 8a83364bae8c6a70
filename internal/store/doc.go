// Package store persists cards, prices, crawl cursors and the batch job
// tables in SQLite.
//
// The price ledger is append-only and change-only: UpsertIfChanged writes a
// row only when (price, stock) differs from the latest row for the same card
// and shop, and keeps one daily history snapshot per pair in the same
// transaction. Cards are created idempotently by exact name and only ever
// gain a detail URL, code or base name where those were still NULL.
//
// Schema changes ship as numbered files under migrations/ and are applied in
// order at open time. Timestamps are stored as fixed-width UTC text so string
// comparison in SQL matches chronological order.
package store
