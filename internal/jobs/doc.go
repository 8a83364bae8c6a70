// Package jobs runs the batch job classes.
//
// Every run takes the job class lock, tags its context with a fresh run ID,
// seeds shops from configuration, does its work and then writes one
// batch_logs row with its counts. Failures are also published to the operator
// notifier. A run that finds its lock held returns ErrJobRunning without side
// effects.
package jobs
