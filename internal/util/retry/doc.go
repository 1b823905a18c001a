// Package retry repeats an operation with exponential backoff until it
// succeeds, fails permanently or the context ends.
//
// Errors are retried unless they are wrapped with [Fatal] or rejected by
// the predicate given with [If].
package retry
