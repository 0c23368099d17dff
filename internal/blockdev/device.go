// Package blockdev provides the narrow driver capability NewFS's core
// consumes (seek/read/write/ioctl in fixed IO units, spec §4.1 and §6) and
// the aligned-access adapter layered on top of it. No caching happens at
// this layer — every Adapter call touches the Device.
package blockdev

import "io"

// Device is the external collaborator the core drives: a raw device (or a
// regular file standing in for one in tests) that supports random access
// in whole IO units, plus the two ioctl-style queries spec §6 names:
// device size in bytes and IO unit in bytes.
type Device interface {
	io.ReaderAt
	io.WriterAt
	io.Closer

	// Size returns the total device size in bytes.
	Size() (int64, error)
	// IOUnit returns the device's atomic read/write granularity in bytes.
	IOUnit() (int, error)
}
