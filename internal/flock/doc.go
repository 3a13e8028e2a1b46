// Package flock guards a check-in against a second, overlapping run for the
// same reservation, as happens when a cron entry fires again while a slow
// run is still backing off.
//
//	lock, err := flock.Acquire(path)
//	if errors.Is(err, flock.ErrLocked) {
//	    // another run holds it
//	}
//	defer lock.Release()
//
// Locks are advisory, exclusive and non-blocking, and the operating system
// drops them when the holding process dies, so a crashed run never leaves a
// stale lock behind.
package flock
