// Package core implements NewFS's in-memory inode/dentry tree, the
// persistence engine that lazily loads and recursively flushes it, and
// the path resolver that walks it. It is grounded on the teacher's
// inode.go (GetInode/GetInodeRef lazy-load shape) and dir.go (directory
// entry traversal), re-purposed from squashfs's read-only image format to
// NewFS's mutable block device.
package core

import (
	"sync"

	"github.com/2003jiahang/newfs/internal/layout"
)

// Inode is the in-memory representation of a file or directory. A
// directory's children are reached through its naming Dentry, not stored
// here directly, mirroring the original's dentry-owns-children /
// inode-owns-data split.
type Inode struct {
	mu sync.Mutex

	sb *Superblock

	Ino  uint32
	Type layout.FileType
	Size uint32

	Blocks   [layout.MaxBlocksPerFile]uint32
	BlockCnt uint32

	// Data caches the inode's block-backed content once loaded: the
	// directory-entry list for a directory, or raw bytes for a regular
	// file. Nil until first touched (lazy load).
	Data []byte

	// Dentry back-references the Dentry that names this inode. An inode
	// may be reachable via exactly one name in NewFS (no hard links), so
	// this is a single pointer, not a list, and it is non-owning: Dentry
	// does not keep Inode alive on its own, Superblock's inode cache does.
	Dentry *Dentry

	loaded bool // whether Data has been populated from disk
	dirty  bool // whether the in-memory record differs from disk
}

// newInode allocates a bare in-memory inode; callers set Type/Size/Blocks
// and register it in the superblock's cache.
func newInode(sb *Superblock, ino uint32, typ layout.FileType) *Inode {
	return &Inode{sb: sb, Ino: ino, Type: typ}
}

// MarkDirty flags the inode for persistence at the next sync.
func (n *Inode) MarkDirty() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.dirty = true
}

// IsDir reports whether the inode is a directory.
func (n *Inode) IsDir() bool {
	return n.Type == layout.FileTypeDirectory
}

func (n *Inode) toDisk() layout.InodeDisk {
	d := layout.InodeDisk{
		Ino:      n.Ino,
		Type:     n.Type,
		Size:     n.Size,
		BlockCnt: n.BlockCnt,
	}
	d.Blocks = n.Blocks
	return d
}

func (n *Inode) fromDisk(d *layout.InodeDisk) {
	n.Ino = d.Ino
	n.Type = d.Type
	n.Size = d.Size
	n.BlockCnt = d.BlockCnt
	n.Blocks = d.Blocks
}
