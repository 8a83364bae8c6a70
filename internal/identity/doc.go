// Package identity maps raw listing names onto canonical cards.
//
// Identify derives the search form, product code and base name of a name;
// Resolver persists the result through an idempotent get-or-create keyed by
// the exact name. Linker runs as a batch pass that copies codes onto uncoded
// cards whose base name points at a single coded product, which ties
// text-only catalogs to catalogs that print codes without merging rows.
package identity
