package model

import "errors"

var (
	// ErrRemoteWriteFailed wraps store/network errors on a mutation.
	// Always surfaced to the caller, optimistic state rolled back.
	ErrRemoteWriteFailed = errors.New("remote write failed")

	// ErrRemoteReadFailed wraps store/network errors on a query.
	// Surfaced to the caller, cache left untouched.
	ErrRemoteReadFailed = errors.New("remote read failed")

	ErrNotFound = errors.New("not found")
)
