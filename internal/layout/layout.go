// Package layout defines NewFS's on-disk record shapes and the region
// layout computed at mount/format time (spec §3, §4.3). Records are
// fixed-size and encoded little-endian throughout: the medium is local to
// one host, so unlike the teacher's squashfs codec (which must detect an
// image's byte order via its magic prefix, see super.go's Marshal/
// Unmarshal) there is no foreign-endianness case to handle.
package layout

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/2003jiahang/newfs/internal/fserr"
)

// MagicNumber identifies a device as already holding a NewFS image.
// Mount compares this against the superblock's first four bytes to decide
// fresh-format vs load-existing (grounded on newfs_mount's magic check).
const MagicNumber uint32 = 0x4e465321 // "NFS!"

// RootIno is the inode number of the filesystem root directory.
const RootIno uint32 = 0

// MaxBlocksPerFile bounds how many data block pointers an inode carries.
// The original header defining this constant was not present in the
// retrieved source, so this is a chosen value, recorded as an Open
// Question decision in DESIGN.md.
const MaxBlocksPerFile = 6

// MaxFileName bounds a dentry's name length in bytes, including the NUL
// terminator implied by the fixed-size array encoding. Chosen for the same
// reason as MaxBlocksPerFile.
const MaxFileName = 60

// FileType distinguishes a dentry/inode as a directory or a regular file.
type FileType uint32

const (
	FileTypeRegular FileType = iota
	FileTypeDirectory
)

// SuperblockDisk is the fixed-size on-disk superblock record, written once
// at offset 0 and rewritten at unmount (spec §3.1).
type SuperblockDisk struct {
	Magic          uint32
	IOUnit         uint32 // device-reported IO unit in bytes, at format time
	LogicalBlock   uint32 // 2 * IOUnit
	InodeMapBlocks uint32
	DataMapBlocks  uint32
	InodeBlocks    uint32
	InodeCount     uint32 // logical inode-bitmap capacity
	DataBlockCount uint32 // logical data-bitmap capacity
	DataStartBlk   uint32 // first logical block of the data region
}

// diskSize is the encoded byte length of a fixed-size record. Computed via
// binary.Size rather than hardcoded so every codec stays in lockstep with
// its struct definition.
func diskSize(v interface{}) int {
	n := binary.Size(v)
	if n < 0 {
		panic(fmt.Sprintf("layout: %T is not a fixed-size record", v))
	}
	return n
}

// SuperblockDiskSize is the encoded size of SuperblockDisk in bytes.
var SuperblockDiskSize = diskSize(SuperblockDisk{})

// MarshalBinary encodes the superblock record.
func (s *SuperblockDisk) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, s); err != nil {
		return nil, fmt.Errorf("layout: marshal superblock: %w: %w", fserr.ErrInval, err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a superblock record from data.
func (s *SuperblockDisk) UnmarshalBinary(data []byte) error {
	if len(data) < SuperblockDiskSize {
		return fmt.Errorf("layout: superblock record too short (%d < %d): %w", len(data), SuperblockDiskSize, fserr.ErrInval)
	}
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, s); err != nil {
		return fmt.Errorf("layout: unmarshal superblock: %w: %w", fserr.ErrInval, err)
	}
	return nil
}

// InodeDisk is the fixed-size on-disk inode record (spec §3.2). Block
// pointers are always MaxBlocksPerFile wide regardless of Size, mirroring
// the original's fixed-array inode shape.
type InodeDisk struct {
	Ino      uint32
	Type     FileType
	Size     uint32 // bytes for a regular file, dentry count for a directory
	Blocks   [MaxBlocksPerFile]uint32
	BlockCnt uint32 // number of entries in Blocks actually in use
}

// InodeDiskSize is the encoded size of InodeDisk in bytes.
var InodeDiskSize = diskSize(InodeDisk{})

// MarshalBinary encodes the inode record.
func (n *InodeDisk) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, n); err != nil {
		return nil, fmt.Errorf("layout: marshal inode: %w: %w", fserr.ErrInval, err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes an inode record from data.
func (n *InodeDisk) UnmarshalBinary(data []byte) error {
	if len(data) < InodeDiskSize {
		return fmt.Errorf("layout: inode record too short (%d < %d): %w", len(data), InodeDiskSize, fserr.ErrInval)
	}
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, n); err != nil {
		return fmt.Errorf("layout: unmarshal inode: %w: %w", fserr.ErrInval, err)
	}
	return nil
}

// DentryDisk is the fixed-size on-disk directory-entry record (spec §3.3),
// stored MaxFileName bytes of name plus the child inode number and type.
// Directory content is a flat sequence of these records across the
// directory inode's data blocks.
type DentryDisk struct {
	Name [MaxFileName]byte
	Ino  uint32
	Type FileType
	Valid uint32 // 0 = free slot, 1 = occupied; a directory's blocks are
	              // over-allocated in whole DentryDisk units (spec §4.4)
}

// DentryDiskSize is the encoded size of DentryDisk in bytes.
var DentryDiskSize = diskSize(DentryDisk{})

// MarshalBinary encodes the dentry record.
func (d *DentryDisk) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, d); err != nil {
		return nil, fmt.Errorf("layout: marshal dentry: %w: %w", fserr.ErrInval, err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a dentry record from data.
func (d *DentryDisk) UnmarshalBinary(data []byte) error {
	if len(data) < DentryDiskSize {
		return fmt.Errorf("layout: dentry record too short (%d < %d): %w", len(data), DentryDiskSize, fserr.ErrInval)
	}
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, d); err != nil {
		return fmt.Errorf("layout: unmarshal dentry: %w: %w", fserr.ErrInval, err)
	}
	return nil
}

// NameString returns the dentry's name with the trailing NUL padding
// trimmed.
func (d *DentryDisk) NameString() string {
	n := bytes.IndexByte(d.Name[:], 0)
	if n < 0 {
		n = len(d.Name)
	}
	return string(d.Name[:n])
}

// SetName copies name into the fixed-size Name field. A name longer than
// MaxFileName-1 bytes (room for the NUL terminator) is rejected with
// fserr.ErrInval and the record is left unchanged.
func (d *DentryDisk) SetName(name string) error {
	if len(name) > MaxFileName-1 {
		return fmt.Errorf("layout: name %q exceeds %d bytes: %w", name, MaxFileName-1, fserr.ErrInval)
	}
	d.Name = [MaxFileName]byte{}
	copy(d.Name[:], name)
	return nil
}

// Geometry holds the region layout computed once at format (or recovered
// at load) time (spec §4.3): how many logical blocks each region spans
// and where it starts, all derived from the device's reported IO unit
// rather than compile-time constants, since NewFS treats the logical
// block size as device-dependent.
type Geometry struct {
	IOUnit         int
	LogicalBlock   int // 2 * IOUnit
	InodeMapBlocks int
	DataMapBlocks  int
	InodeBlocks    int
	InodeCount     int
	DataBlockCount int
	DataStartBlk   int

	InodePerBlock  int // LogicalBlock / InodeDiskSize
	DentryPerBlock int // LogicalBlock / DentryDiskSize
}

// regionLayout is the block offset, in logical blocks, where each region
// begins, counting from the superblock at block 0.
type regionLayout struct {
	InodeMapStart int
	DataMapStart  int
	InodeStart    int
	DataStart     int
}

func (g *Geometry) regions() regionLayout {
	return regionLayout{
		InodeMapStart: 1,
		DataMapStart:  1 + g.InodeMapBlocks,
		InodeStart:    1 + g.InodeMapBlocks + g.DataMapBlocks,
		DataStart:     1 + g.InodeMapBlocks + g.DataMapBlocks + g.InodeBlocks,
	}
}

// ComputeGeometry derives a Geometry from a device's IO unit and total
// size, reserving a fixed inode count and spending the remainder of the
// device on the data region, mirroring newfs_mount's region layout order:
// superblock, inode bitmap, data bitmap, inode table, data blocks.
func ComputeGeometry(ioUnit int, deviceSize int64, inodeCount int) (*Geometry, error) {
	if ioUnit <= 0 {
		return nil, fmt.Errorf("layout: non-positive io unit %d: %w", ioUnit, fserr.ErrInval)
	}
	logicalBlock := ioUnit * 2

	g := &Geometry{
		IOUnit:       ioUnit,
		LogicalBlock: logicalBlock,
		InodeCount:   inodeCount,
	}
	g.InodePerBlock = logicalBlock / InodeDiskSize
	g.DentryPerBlock = logicalBlock / DentryDiskSize
	if g.InodePerBlock == 0 || g.DentryPerBlock == 0 {
		return nil, fmt.Errorf("layout: logical block %d too small for fixed records: %w", logicalBlock, fserr.ErrInval)
	}

	g.InodeMapBlocks = ceilDiv(inodeCount, 8*logicalBlock)
	g.InodeBlocks = ceilDiv(inodeCount, g.InodePerBlock)

	totalBlocks := int(deviceSize) / logicalBlock
	reserved := 1 + g.InodeMapBlocks + g.InodeBlocks
	if totalBlocks <= reserved {
		return nil, fmt.Errorf("layout: device too small for %d inodes: %w", inodeCount, fserr.ErrNoSpace)
	}

	// One data-bitmap block covers 8*logicalBlock data blocks; solve for a
	// data-map size consistent with the blocks it must itself carve out of
	// the remaining space.
	remaining := totalBlocks - reserved
	dataMapBlocks := ceilDiv(remaining, 8*logicalBlock+1)
	if dataMapBlocks < 1 {
		dataMapBlocks = 1
	}
	dataBlockCount := remaining - dataMapBlocks
	if dataBlockCount <= 0 {
		return nil, fmt.Errorf("layout: device too small to host a data region: %w", fserr.ErrNoSpace)
	}

	g.DataMapBlocks = dataMapBlocks
	g.DataBlockCount = dataBlockCount
	g.DataStartBlk = g.regions().DataStart

	return g, nil
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// ToDisk converts a Geometry into the on-disk superblock record.
func (g *Geometry) ToDisk() SuperblockDisk {
	return SuperblockDisk{
		Magic:          MagicNumber,
		IOUnit:         uint32(g.IOUnit),
		LogicalBlock:   uint32(g.LogicalBlock),
		InodeMapBlocks: uint32(g.InodeMapBlocks),
		DataMapBlocks:  uint32(g.DataMapBlocks),
		InodeBlocks:    uint32(g.InodeBlocks),
		InodeCount:     uint32(g.InodeCount),
		DataBlockCount: uint32(g.DataBlockCount),
		DataStartBlk:   uint32(g.DataStartBlk),
	}
}

// FromDisk rebuilds a Geometry from a loaded superblock record, recomputing
// the per-block record counts from the recovered logical block size.
func FromDisk(s *SuperblockDisk) *Geometry {
	g := &Geometry{
		IOUnit:         int(s.IOUnit),
		LogicalBlock:   int(s.LogicalBlock),
		InodeMapBlocks: int(s.InodeMapBlocks),
		DataMapBlocks:  int(s.DataMapBlocks),
		InodeBlocks:    int(s.InodeBlocks),
		InodeCount:     int(s.InodeCount),
		DataBlockCount: int(s.DataBlockCount),
		DataStartBlk:   int(s.DataStartBlk),
	}
	if g.LogicalBlock > 0 {
		g.InodePerBlock = g.LogicalBlock / InodeDiskSize
		g.DentryPerBlock = g.LogicalBlock / DentryDiskSize
	}
	return g
}

// BlockOffset returns the byte offset of logical block n on the device.
func (g *Geometry) BlockOffset(n int) int64 {
	return int64(n) * int64(g.LogicalBlock)
}

// InodeMapOffset returns the byte offset of the inode bitmap region.
func (g *Geometry) InodeMapOffset() int64 { return g.BlockOffset(g.regions().InodeMapStart) }

// DataMapOffset returns the byte offset of the data bitmap region.
func (g *Geometry) DataMapOffset() int64 { return g.BlockOffset(g.regions().DataMapStart) }

// InodeTableOffset returns the byte offset of the inode table region.
func (g *Geometry) InodeTableOffset() int64 { return g.BlockOffset(g.regions().InodeStart) }

// InodeOffset returns the byte offset of inode record ino within the
// inode table.
func (g *Geometry) InodeOffset(ino int) int64 {
	blk := ino / g.InodePerBlock
	slot := ino % g.InodePerBlock
	return g.InodeTableOffset() + int64(blk)*int64(g.LogicalBlock) + int64(slot*InodeDiskSize)
}

// DataBlockOffset returns the byte offset of data block index (relative to
// the start of the data region).
func (g *Geometry) DataBlockOffset(index int) int64 {
	return g.BlockOffset(g.DataStartBlk+index)
}
