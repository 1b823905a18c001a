// Package async runs independent operations concurrently.
//
// [Run] starts every operation at once, waits for all of them and reports
// the first failure. Backends use it to issue independent listing calls in
// parallel.
package async
