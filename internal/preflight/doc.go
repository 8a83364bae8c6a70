// Package preflight provides readiness checks for the filesystem paths,
// binaries and shop endpoints tcgprice depends on.
//
// The CLI "tcgprice doctor" command runs RunAll and prints one line per check.
// Network checks are opt-in so the command stays usable offline. Checks for
// features that are switched off are skipped.
package preflight
