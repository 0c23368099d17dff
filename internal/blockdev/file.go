package blockdev

import "os"

// FileDevice backs a Device with a plain *os.File, reporting a caller-given
// IO unit. This is what format/fsck tooling and tests use for a "disk
// image" file, and what the Linux raw-device driver falls back to when the
// opened path isn't a block special file (see linux.go).
type FileDevice struct {
	f      *os.File
	ioUnit int
}

// OpenFile opens path (creating it if it doesn't exist) as a FileDevice
// reporting ioUnit as its atomic access granularity.
func OpenFile(path string, ioUnit int) (*FileDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	return &FileDevice{f: f, ioUnit: ioUnit}, nil
}

func (d *FileDevice) ReadAt(p []byte, off int64) (int, error) {
	return d.f.ReadAt(p, off)
}

func (d *FileDevice) WriteAt(p []byte, off int64) (int, error) {
	return d.f.WriteAt(p, off)
}

func (d *FileDevice) Close() error {
	return d.f.Close()
}

func (d *FileDevice) Size() (int64, error) {
	fi, err := d.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func (d *FileDevice) IOUnit() (int, error) {
	return d.ioUnit, nil
}

// Truncate grows or shrinks the backing file to size bytes, used by
// format-time tooling and tests to pre-size a disk image file before
// mount computes its geometry.
func (d *FileDevice) Truncate(size int64) error {
	return d.f.Truncate(size)
}
