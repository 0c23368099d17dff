package core

import (
	"fmt"
	"sync"

	"github.com/2003jiahang/newfs/internal/bitmap"
	"github.com/2003jiahang/newfs/internal/blockdev"
	"github.com/2003jiahang/newfs/internal/fserr"
	"github.com/2003jiahang/newfs/internal/layout"
	"github.com/2003jiahang/newfs/internal/nflog"
)

// DefaultInodeCount is the inode-bitmap capacity chosen at format time
// when the caller does not override it via WithInodeCount.
const DefaultInodeCount = 4096

// Superblock is the mounted filesystem's in-memory root: the region
// geometry, both bitmaps, the aligned device adapter, the inode cache,
// and the root dentry. It is the single point of synchronization for
// allocation and persistence, mirroring the teacher's *Superblock as the
// hub object every Inode holds a back-reference to.
type Superblock struct {
	mu sync.Mutex

	adapter  *blockdev.Adapter
	geometry *layout.Geometry

	inodeMap *bitmap.Bitmap
	dataMap  *bitmap.Bitmap

	inodeCache map[uint32]*Inode
	root       *Dentry

	log     nflogLogger
	mounted bool
}

// Option configures a Superblock at Mount time, following the teacher's
// functional-option shape (options.go's Option func(*Superblock) error).
type Option func(*mountConfig) error

type mountConfig struct {
	inodeCount int
	logger     nflogLogger
}

// WithInodeCount overrides DefaultInodeCount for a fresh format. Ignored
// when mounting an existing image, whose inode count is read from disk.
func WithInodeCount(n int) Option {
	return func(c *mountConfig) error {
		if n <= 0 {
			return fmt.Errorf("core: inode count must be positive: %w", fserr.ErrInval)
		}
		c.inodeCount = n
		return nil
	}
}

// WithLogger overrides the default logger, which discards all output.
func WithLogger(l nflogLogger) Option {
	return func(c *mountConfig) error {
		c.logger = l
		return nil
	}
}

// nflogLogger is the narrow logging surface core depends on, satisfied by
// *logrus.Logger (see internal/nflog).
type nflogLogger = nflog.Logger

// Mount opens dev through an aligned blockdev.Adapter and either loads an
// existing NewFS image (magic number present) or formats a fresh one,
// grounded on newfs_mount's two-branch fresh-vs-existing dispatch.
func Mount(dev blockdev.Device, opts ...Option) (*Superblock, error) {
	cfg := mountConfig{inodeCount: DefaultInodeCount}
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	adapter, err := blockdev.NewAdapter(dev)
	if err != nil {
		return nil, err
	}

	sb := &Superblock{
		adapter:    adapter,
		inodeCache: make(map[uint32]*Inode),
	}
	if cfg.logger != nil {
		sb.log = cfg.logger
	} else {
		sb.log = nflog.Discard()
	}

	var sbDisk layout.SuperblockDisk
	sbBuf := make([]byte, layout.SuperblockDiskSize)
	if err := adapter.Read(0, sbBuf); err != nil {
		return nil, err
	}
	_ = sbDisk.UnmarshalBinary(sbBuf)

	if sbDisk.Magic == layout.MagicNumber {
		sb.geometry = layout.FromDisk(&sbDisk)
		if err := sb.loadBitmaps(); err != nil {
			return nil, err
		}
		if err := sb.loadRoot(); err != nil {
			return nil, err
		}
		sb.log.WithField("op", "mount").Infof("mounted existing image")
	} else {
		size, err := adapter.Size()
		if err != nil {
			return nil, err
		}
		geom, err := layout.ComputeGeometry(adapter.IOUnit(), size, cfg.inodeCount)
		if err != nil {
			return nil, err
		}
		sb.geometry = geom
		if err := sb.formatFresh(); err != nil {
			return nil, err
		}
		sb.log.WithField("op", "mount").Infof("formatted fresh image")
	}

	sb.mounted = true
	return sb, nil
}

// formatFresh initializes empty bitmaps, writes the superblock record,
// and allocates inode 0 as the root directory.
func (sb *Superblock) formatFresh() error {
	g := sb.geometry

	inodeMapBytes := make([]byte, g.InodeMapBlocks*g.LogicalBlock)
	dataMapBytes := make([]byte, g.DataMapBlocks*g.LogicalBlock)
	sb.inodeMap = bitmap.New(inodeMapBytes, g.InodeCount)
	sb.dataMap = bitmap.New(dataMapBytes, g.DataBlockCount)

	disk := g.ToDisk()
	data, err := disk.MarshalBinary()
	if err != nil {
		return err
	}
	if err := sb.adapter.Write(0, data); err != nil {
		return err
	}
	if err := sb.writeBitmaps(); err != nil {
		return err
	}

	root := newInode(sb, layout.RootIno, layout.FileTypeDirectory)
	root.Size = 0
	if _, err := sb.inodeMap.Alloc(); err != nil { // consume inode 0 for root
		return err
	}
	sb.inodeCache[root.Ino] = root
	root.loaded = true
	root.dirty = true

	sb.root = &Dentry{Name: "/", Ino: root.Ino, Type: layout.FileTypeDirectory, childrenLoaded: true}
	root.Dentry = sb.root

	if err := sb.syncInodeLocked(root); err != nil {
		return err
	}
	return sb.writeBitmaps()
}

func (sb *Superblock) loadBitmaps() error {
	g := sb.geometry
	inodeMapBytes := make([]byte, g.InodeMapBlocks*g.LogicalBlock)
	if err := sb.adapter.Read(g.InodeMapOffset(), inodeMapBytes); err != nil {
		return err
	}
	dataMapBytes := make([]byte, g.DataMapBlocks*g.LogicalBlock)
	if err := sb.adapter.Read(g.DataMapOffset(), dataMapBytes); err != nil {
		return err
	}
	sb.inodeMap = bitmap.New(inodeMapBytes, g.InodeCount)
	sb.dataMap = bitmap.New(dataMapBytes, g.DataBlockCount)
	return nil
}

func (sb *Superblock) writeBitmaps() error {
	if err := sb.adapter.Write(sb.geometry.InodeMapOffset(), sb.inodeMap.Bytes()); err != nil {
		return err
	}
	return sb.adapter.Write(sb.geometry.DataMapOffset(), sb.dataMap.Bytes())
}

// loadRoot reads the root inode and recursively hydrates its directory
// tree, grounded on newfs_read_inode's recursive directory deserialization.
func (sb *Superblock) loadRoot() error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	root := &Dentry{Name: "/", Ino: layout.RootIno, Type: layout.FileTypeDirectory}
	sb.root = root

	n, err := sb.readInodeLocked(layout.RootIno, layout.FileTypeDirectory)
	if err != nil {
		return err
	}
	n.Dentry = root
	return sb.loadChildrenLocked(root, n)
}

// Unmount recursively flushes every loaded inode, writes back the
// superblock record and both bitmaps, and closes the underlying device —
// grounded on newfs_umount's
// recursive sync followed by bitmap/superblock write-back and close.
func (sb *Superblock) Unmount() error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if !sb.mounted {
		return fmt.Errorf("core: unmount: %w", fserr.ErrInval)
	}

	root, ok := sb.inodeCache[sb.root.Ino]
	if ok {
		if err := sb.syncInodeLocked(root); err != nil {
			return err
		}
	}
	disk := sb.geometry.ToDisk()
	data, err := disk.MarshalBinary()
	if err != nil {
		return err
	}
	if err := sb.adapter.Write(0, data); err != nil {
		return err
	}
	if err := sb.writeBitmaps(); err != nil {
		return err
	}

	sb.log.WithField("op", "unmount").Infof("flushed and unmounted")
	sb.mounted = false
	return sb.adapter.Close()
}

// Root returns the root directory dentry.
func (sb *Superblock) Root() *Dentry {
	return sb.root
}

// Geometry exposes the mounted filesystem's region layout, for fsck/usage
// tooling.
func (sb *Superblock) Geometry() *layout.Geometry {
	return sb.geometry
}
