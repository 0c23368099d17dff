package core

import (
	"fmt"

	"github.com/2003jiahang/newfs/internal/fserr"
	"github.com/2003jiahang/newfs/internal/layout"
)

// AllocInode allocates a free inode bit, creates the in-memory Inode, and
// registers it in the cache, grounded on newfs_alloc_inode's bitmap scan.
func (sb *Superblock) AllocInode(typ layout.FileType) (*Inode, error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	idx, err := sb.inodeMap.Alloc()
	if err != nil {
		return nil, err
	}

	n := newInode(sb, uint32(idx), typ)
	n.loaded = true
	n.dirty = true
	sb.inodeCache[n.Ino] = n
	sb.log.WithField("op", "alloc_inode").WithField("ino", n.Ino).Debugf("allocated inode")
	return n, nil
}

// allocDataBlockLocked scans the data bitmap for a free block, grounded on
// newfs_alloc_data_blk.
func (sb *Superblock) allocDataBlockLocked() (uint32, error) {
	idx, err := sb.dataMap.Alloc()
	if err != nil {
		return 0, err
	}
	return uint32(idx), nil
}

// AllocDentry creates a new directory entry named name under parent,
// pointing at child, and head-inserts it into parent's children list —
// grounded on newfs_alloc_dentry. The on-disk record goes into the first
// free (Valid == 0) slot of parent's existing blocks; a fresh data block
// is allocated only when every existing slot is occupied.
func (sb *Superblock) AllocDentry(parentInode *Inode, parentDentry *Dentry, name string, childIno uint32, childType layout.FileType) (*Dentry, error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if parentDentry.find(name) != nil {
		return nil, fmt.Errorf("core: %q already exists: %w", name, fserr.ErrInval)
	}

	perBlock := sb.geometry.DentryPerBlock
	slotIndex := -1
	for i := 0; i < int(parentInode.BlockCnt)*perBlock; i++ {
		off := dentrySlotOffset(sb.geometry.LogicalBlock, perBlock, i)
		if off+layout.DentryDiskSize > len(parentInode.Data) {
			break
		}
		var slot layout.DentryDisk
		if err := slot.UnmarshalBinary(parentInode.Data[off : off+layout.DentryDiskSize]); err != nil {
			return nil, err
		}
		if slot.Valid == 0 {
			slotIndex = i
			break
		}
	}
	if slotIndex < 0 {
		slotIndex = int(parentInode.BlockCnt) * perBlock
		blk, err := sb.allocDataBlockLocked()
		if err != nil {
			return nil, err
		}
		parentInode.Blocks[parentInode.BlockCnt] = blk
		parentInode.BlockCnt++
		parentInode.Data = append(parentInode.Data, make([]byte, sb.geometry.LogicalBlock)...)
	}

	var rec layout.DentryDisk
	if err := rec.SetName(name); err != nil {
		return nil, err
	}
	rec.Ino = childIno
	rec.Type = childType
	rec.Valid = 1

	data, err := rec.MarshalBinary()
	if err != nil {
		return nil, err
	}
	off := dentrySlotOffset(sb.geometry.LogicalBlock, perBlock, slotIndex)
	copy(parentInode.Data[off:off+layout.DentryDiskSize], data)

	parentInode.Size++
	parentInode.dirty = true

	child := &Dentry{Name: name, Ino: childIno, Type: childType}
	parentDentry.addChild(child)
	sb.log.WithField("op", "alloc_dentry").WithField("ino", childIno).WithField("path", name).Debugf("linked dentry")
	return child, nil
}

// DropDentry removes name from parent's children list and marks its
// on-disk slot invalid, grounded on newfs_drop_dentry's linked-list
// unlink. It does not free the child inode or its data blocks; callers
// that are deleting the underlying file call DropInode separately.
func (sb *Superblock) DropDentry(parentInode *Inode, parentDentry *Dentry, name string) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	removed := parentDentry.removeChild(name)
	if removed == nil {
		return fmt.Errorf("core: %q: %w", name, fserr.ErrNotFound)
	}
	parentInode.Size--

	perBlock := sb.geometry.DentryPerBlock
	for i := 0; i < int(parentInode.BlockCnt)*perBlock; i++ {
		off := dentrySlotOffset(sb.geometry.LogicalBlock, perBlock, i)
		if off+layout.DentryDiskSize > len(parentInode.Data) {
			break
		}
		var rec layout.DentryDisk
		if err := rec.UnmarshalBinary(parentInode.Data[off : off+layout.DentryDiskSize]); err != nil {
			return err
		}
		if rec.Valid == 1 && rec.Ino == removed.Ino && rec.NameString() == name {
			rec.Valid = 0
			data, err := rec.MarshalBinary()
			if err != nil {
				return err
			}
			copy(parentInode.Data[off:off+layout.DentryDiskSize], data)
			break
		}
	}

	parentInode.dirty = true
	sb.log.WithField("op", "drop_dentry").WithField("ino", removed.Ino).WithField("path", name).Debugf("unlinked dentry")
	return nil
}

// DropInode frees inode n's data blocks and its own bitmap bit. This
// fixes a bug present in the original newfs_drop_inode, which cleared the
// data bitmap at index inode->ino instead of iterating the inode's
// block_pointer[] — a transcription error that happened to be harmless
// only when an inode's number coincided with one of its own block
// indices. NewFS iterates Blocks[0:BlockCnt] instead (spec §9). Dropping
// the root is refused outright.
func (sb *Superblock) DropInode(n *Inode) error {
	if n.Ino == layout.RootIno {
		return fmt.Errorf("core: cannot drop root inode: %w", fserr.ErrInval)
	}

	sb.mu.Lock()
	defer sb.mu.Unlock()

	for i := uint32(0); i < n.BlockCnt; i++ {
		sb.dataMap.Free(int(n.Blocks[i]))
	}
	sb.inodeMap.Free(int(n.Ino))
	delete(sb.inodeCache, n.Ino)
	sb.log.WithField("op", "drop_inode").WithField("ino", n.Ino).Debugf("freed inode")
	return nil
}

// dentrySlotOffset maps a flat dentry slot index to its byte offset within
// a directory inode's concatenated block buffer, respecting block
// boundaries: a logical block holds exactly perBlock entries, with any
// remainder bytes (when logicalBlock isn't an exact multiple of
// DentryDiskSize) left unused at the end of the block rather than
// letting an entry straddle two blocks.
func dentrySlotOffset(logicalBlock, perBlock, slotIndex int) int {
	blockIndex := slotIndex / perBlock
	withinBlock := slotIndex % perBlock
	return blockIndex*logicalBlock + withinBlock*layout.DentryDiskSize
}
