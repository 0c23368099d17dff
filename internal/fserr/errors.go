// Package fserr defines the small closed set of error kinds NewFS's core
// surfaces to callers, shared between the allocator, the block IO adapter
// and the persistence engine so callers can compare with errors.Is
// regardless of which layer produced the failure.
package fserr

import "errors"

var (
	// ErrIO is returned when a read or write to the underlying device failed.
	ErrIO = errors.New("newfs: io error")
	// ErrNoSpace is returned when a bitmap allocator has no free bit left
	// within its logical capacity.
	ErrNoSpace = errors.New("newfs: no space left")
	// ErrNotFound is returned when a name or dentry could not be located.
	ErrNotFound = errors.New("newfs: not found")
	// ErrInval is returned for illegal operations, such as dropping the root.
	ErrInval = errors.New("newfs: invalid operation")
)
