package repository

import "errors"

var (
	// ErrRecordNotFound is returned when no record is stored under a key.
	ErrRecordNotFound = errors.New("record not found")

	// ErrInvalidKey is returned when a key is empty or contains path separators.
	ErrInvalidKey = errors.New("invalid record key")

	// ErrBucketNotFound is returned when the configured object storage bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")
)
