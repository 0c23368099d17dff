package blockdev

import (
	"fmt"

	"github.com/2003jiahang/newfs/internal/fserr"
)

// Adapter translates arbitrary (offset, length) byte-range requests into
// aligned reads/writes of the underlying Device's IO unit (spec §4.1),
// grounded directly on newfs_driver_read/newfs_driver_write from the
// original implementation. No caching happens here; every call touches
// the device.
type Adapter struct {
	dev    Device
	ioUnit int
}

// NewAdapter queries dev's IO unit once and wraps it.
func NewAdapter(dev Device) (*Adapter, error) {
	unit, err := dev.IOUnit()
	if err != nil {
		return nil, fmt.Errorf("blockdev: query io unit: %w: %w", fserr.ErrIO, err)
	}
	if unit <= 0 {
		return nil, fmt.Errorf("blockdev: device reported non-positive io unit %d: %w", unit, fserr.ErrIO)
	}
	return &Adapter{dev: dev, ioUnit: unit}, nil
}

// IOUnit returns the device's atomic access granularity in bytes.
func (a *Adapter) IOUnit() int {
	return a.ioUnit
}

// Size returns the device's total size in bytes.
func (a *Adapter) Size() (int64, error) {
	sz, err := a.dev.Size()
	if err != nil {
		return 0, fmt.Errorf("blockdev: query size: %w: %w", fserr.ErrIO, err)
	}
	return sz, nil
}

// Close closes the underlying device. core.Superblock.Unmount calls this
// as its last step, so callers that mount a device do not close it again
// themselves.
func (a *Adapter) Close() error {
	return a.dev.Close()
}

func roundDown(v, unit int64) int64 {
	return (v / unit) * unit
}

func roundUp(v, unit int64) int64 {
	return ((v + unit - 1) / unit) * unit
}

// Read fills buf (len(buf) bytes) from offset, performing a sequential,
// IO-unit-aligned read into a scratch buffer and copying out the
// requested slice.
func (a *Adapter) Read(offset int64, buf []byte) error {
	unit := int64(a.ioUnit)
	alignedOff := roundDown(offset, unit)
	bias := offset - alignedOff
	alignedLen := roundUp(bias+int64(len(buf)), unit)

	scratch := make([]byte, alignedLen)
	if _, err := a.dev.ReadAt(scratch, alignedOff); err != nil {
		return fmt.Errorf("blockdev: read at %d: %w: %w", alignedOff, fserr.ErrIO, err)
	}

	copy(buf, scratch[bias:bias+int64(len(buf))])
	return nil
}

// Write stores buf at offset via read-modify-write: the aligned scratch
// range is read, overwritten in place, then written back in full.
func (a *Adapter) Write(offset int64, buf []byte) error {
	unit := int64(a.ioUnit)
	alignedOff := roundDown(offset, unit)
	bias := offset - alignedOff
	alignedLen := roundUp(bias+int64(len(buf)), unit)

	scratch := make([]byte, alignedLen)
	if _, err := a.dev.ReadAt(scratch, alignedOff); err != nil {
		return fmt.Errorf("blockdev: read-modify-write, read at %d: %w: %w", alignedOff, fserr.ErrIO, err)
	}

	copy(scratch[bias:bias+int64(len(buf))], buf)

	if _, err := a.dev.WriteAt(scratch, alignedOff); err != nil {
		return fmt.Errorf("blockdev: write at %d: %w: %w", alignedOff, fserr.ErrIO, err)
	}
	return nil
}
