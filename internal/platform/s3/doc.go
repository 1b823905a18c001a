// Package s3 provides a small client for S3-compatible object storage.
//
// It covers what the object key store needs: bucket checks, and reading,
// writing, listing and deleting small objects. Missing objects and buckets
// are reported as ErrNotFound so callers can tell them apart from
// transport or permission failures.
package s3
