// Package bitmap implements the LSB-first allocation bitmap used for both
// the inode table and the data region (spec §4.2). It is grounded on
// newfs_utils.c's newfs_alloc_inode/newfs_alloc_data_blk scan and on the
// teacher repo's byte-oriented flag handling in mode.go.
package bitmap

import "github.com/2003jiahang/newfs/internal/fserr"

// Bitmap is a linear bit array scanned LSB-first within each byte. It
// tracks a logical capacity that may be smaller than the number of bits
// physically backed by its storage (a bitmap block may have trailing bits
// past the useful range, per spec §4.2).
type Bitmap struct {
	bits     []byte
	capacity int // number of usable bits; bits beyond this are never handed out
}

// New wraps backing as a bitmap with the given logical bit capacity.
// backing must be at least ceil(capacity/8) bytes.
func New(backing []byte, capacity int) *Bitmap {
	return &Bitmap{bits: backing, capacity: capacity}
}

// Bytes returns the backing storage, for persistence to disk.
func (b *Bitmap) Bytes() []byte {
	return b.bits
}

// Capacity returns the logical bit capacity.
func (b *Bitmap) Capacity() int {
	return b.capacity
}

// Test reports whether the bit at index is set.
func (b *Bitmap) Test(index int) bool {
	if index < 0 || index >= b.capacity {
		return false
	}
	return b.bits[index/8]&(1<<uint(index%8)) != 0
}

// Alloc scans byte by byte, bit 0..7 LSB-first within each byte, for the
// first clear bit, sets it, and returns its global index. It returns
// fserr.ErrNoSpace once the scan reaches the logical capacity, even if the
// backing array has further (unusable) bytes.
func (b *Bitmap) Alloc() (int, error) {
	index := 0
	for byteCursor := 0; byteCursor < len(b.bits); byteCursor++ {
		for bitCursor := 0; bitCursor < 8; bitCursor++ {
			if index >= b.capacity {
				return 0, fserr.ErrNoSpace
			}
			if b.bits[byteCursor]&(1<<uint(bitCursor)) == 0 {
				b.bits[byteCursor] |= 1 << uint(bitCursor)
				return index, nil
			}
			index++
		}
	}
	return 0, fserr.ErrNoSpace
}

// Free clears the bit at index.
func (b *Bitmap) Free(index int) {
	if index < 0 || index/8 >= len(b.bits) {
		return
	}
	b.bits[index/8] &^= 1 << uint(index%8)
}

// Count returns the number of set bits within the logical capacity.
func (b *Bitmap) Count() int {
	n := 0
	for i := 0; i < b.capacity; i++ {
		if b.Test(i) {
			n++
		}
	}
	return n
}

// Grid returns the bitmap as a [][]bool, 8 columns wide, LSB first within
// each row-byte — a direct port of newfs_debug.c's newfs_dump_inode_map /
// newfs_dump_data_map, returning data instead of printing it.
func (b *Bitmap) Grid() [][]bool {
	rows := make([][]bool, len(b.bits))
	for byteCursor := range b.bits {
		row := make([]bool, 8)
		for bitCursor := 0; bitCursor < 8; bitCursor++ {
			row[bitCursor] = b.bits[byteCursor]&(1<<uint(bitCursor)) != 0
		}
		rows[byteCursor] = row
	}
	return rows
}
