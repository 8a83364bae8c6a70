// Package fetchqueue drains the keyword fetch queue.
//
// A run first deletes old finished items and returns items stranded in
// processing by an interrupted run to pending. It then takes pending items by
// priority and age, marks each processing, ingests the keyword across every
// searchable shop and marks it done. A failed item goes back to pending and
// is retried by a later run.
package fetchqueue
