package core

import (
	"fmt"

	"github.com/2003jiahang/newfs/internal/fserr"
	"github.com/2003jiahang/newfs/internal/layout"
)

// Mkdir creates an empty directory named name under parent.
func (sb *Superblock) Mkdir(parent *Dentry, name string) (*Dentry, error) {
	parentInode, err := sb.Inode(parent)
	if err != nil {
		return nil, err
	}
	if !parentInode.IsDir() {
		return nil, fmt.Errorf("core: %q is not a directory: %w", parent.Name, fserr.ErrInval)
	}

	child, err := sb.AllocInode(layout.FileTypeDirectory)
	if err != nil {
		return nil, err
	}

	dentry, err := sb.AllocDentry(parentInode, parent, name, child.Ino, layout.FileTypeDirectory)
	if err != nil {
		sb.DropInode(child)
		return nil, err
	}
	dentry.childrenLoaded = true
	child.Dentry = dentry
	return dentry, nil
}

// Create creates an empty regular file named name under parent.
func (sb *Superblock) Create(parent *Dentry, name string) (*Dentry, error) {
	parentInode, err := sb.Inode(parent)
	if err != nil {
		return nil, err
	}
	if !parentInode.IsDir() {
		return nil, fmt.Errorf("core: %q is not a directory: %w", parent.Name, fserr.ErrInval)
	}

	child, err := sb.AllocInode(layout.FileTypeRegular)
	if err != nil {
		return nil, err
	}

	dentry, err := sb.AllocDentry(parentInode, parent, name, child.Ino, layout.FileTypeRegular)
	if err != nil {
		sb.DropInode(child)
		return nil, err
	}
	child.Dentry = dentry
	return dentry, nil
}

// ReadFile reads up to length bytes starting at offset from a regular
// file, grounded on newfs_read_file(inode, out, length, offset). A
// negative length reads through to the current end of file. If the
// inode's data buffer was never populated (Data is nil, BlockCnt 0), it
// returns a zero-filled buffer rather than touching the device — a
// "bug-compatible" quirk preserved from newfs_read_file (spec §9), where
// an empty/never-written file's read path short-circuits on a nil
// in-memory buffer instead of issuing any device read.
func (sb *Superblock) ReadFile(d *Dentry, offset, length int) ([]byte, error) {
	n, err := sb.Inode(d)
	if err != nil {
		return nil, err
	}
	if n.IsDir() {
		return nil, fmt.Errorf("core: %q is a directory: %w", d.Name, fserr.ErrInval)
	}
	if offset < 0 {
		offset = 0
	}

	size := int(n.Size)
	if offset >= size {
		return []byte{}, nil
	}
	end := size
	if length >= 0 && offset+length < end {
		end = offset + length
	}

	if n.Data == nil {
		return make([]byte, end-offset), nil
	}
	out := make([]byte, end-offset)
	copy(out, n.Data[offset:end])
	return out, nil
}

// WriteFile writes data at offset into a regular file, growing its
// buffer (and block list, up to layout.MaxBlocksPerFile blocks) as
// needed, preserving existing bytes outside the written range and
// zero-filling any new region a write skips over — grounded on
// newfs_write_file(inode, data, length, offset)'s block-growth loop and
// spec §4.8's grow/preserve/zero-fill semantics.
func (sb *Superblock) WriteFile(d *Dentry, data []byte, offset int) error {
	n, err := sb.Inode(d)
	if err != nil {
		return err
	}
	if n.IsDir() {
		return fmt.Errorf("core: %q is a directory: %w", d.Name, fserr.ErrInval)
	}
	if offset < 0 {
		return fmt.Errorf("core: negative write offset: %w", fserr.ErrInval)
	}

	sb.mu.Lock()
	defer sb.mu.Unlock()

	newSize := offset + len(data)
	if int(n.Size) > newSize {
		newSize = int(n.Size)
	}

	blockSize := sb.geometry.LogicalBlock
	neededBlocks := uint32(ceilDivInt(newSize, blockSize))
	if int(neededBlocks) > layout.MaxBlocksPerFile {
		return fmt.Errorf("core: file exceeds %d blocks: %w", layout.MaxBlocksPerFile, fserr.ErrNoSpace)
	}

	for n.BlockCnt < neededBlocks {
		blk, err := sb.allocDataBlockLocked()
		if err != nil {
			return err
		}
		n.Blocks[n.BlockCnt] = blk
		n.BlockCnt++
	}

	grown := make([]byte, newSize)
	copy(grown, n.Data)
	copy(grown[offset:offset+len(data)], data)
	n.Data = grown
	n.Size = uint32(newSize)
	n.dirty = true
	return nil
}

func ceilDivInt(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

// Unlink removes name from parent and frees the target's inode and data
// blocks, whether it is a regular file or a directory. Directories must be
// empty to unlink.
func (sb *Superblock) Unlink(parent *Dentry, name string) error {
	parentInode, err := sb.Inode(parent)
	if err != nil {
		return err
	}

	target := parent.find(name)
	if target == nil {
		return fmt.Errorf("core: %q: %w", name, fserr.ErrNotFound)
	}

	if target.Type == layout.FileTypeDirectory {
		childInode, err := sb.Inode(target)
		if err != nil {
			return err
		}
		if childInode.Size > 0 {
			return fmt.Errorf("core: %q is not empty: %w", name, fserr.ErrInval)
		}
	}

	if err := sb.DropDentry(parentInode, parent, name); err != nil {
		return err
	}

	targetInode, err := sb.Inode(target)
	if err != nil {
		return err
	}
	return sb.DropInode(targetInode)
}
