//go:build fuse

// Package fuseadapter exposes a mounted NewFS filesystem over FUSE. It
// depends on core but core never imports it, the same external-collaborator
// split the teacher enforces between its inode.go and the build-tag-gated
// inode_fuse.go/inode_linux.go: the on-disk/in-memory engine stays free of
// any FUSE dependency, and this package adapts it to hanwen/go-fuse's
// high-level Node API instead of reproducing the teacher's lower-level
// fuse.RawFileSystem style (Lookup/OpenDir/ReadDir/fillEntry in
// inode_fuse.go), which squashfs needs because it also juggles an NFS
// export table and a dual root-inode-number scheme NewFS has no
// equivalent of.
package fuseadapter

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/2003jiahang/newfs/core"
	"github.com/2003jiahang/newfs/internal/fserr"
	"github.com/2003jiahang/newfs/internal/layout"
)

// Root is the FUSE root node, wrapping the mounted Superblock's root
// dentry. Every other node in the tree is a *Node, created on demand by
// Lookup, Mkdir and Create.
type Root struct {
	fs.Inode
	sb *core.Superblock
}

// NewRoot builds the FUSE Inode tree root for an already-mounted sb.
func NewRoot(sb *core.Superblock) *Root {
	return &Root{sb: sb}
}

var (
	_ fs.InodeEmbedder  = (*Root)(nil)
	_ fs.NodeLookuper   = (*Root)(nil)
	_ fs.NodeReaddirer  = (*Root)(nil)
	_ fs.NodeGetattrer  = (*Root)(nil)
	_ fs.NodeMkdirer    = (*Root)(nil)
	_ fs.NodeCreater    = (*Root)(nil)
	_ fs.NodeUnlinker   = (*Root)(nil)
)

// Node wraps a non-root dentry. Its directory methods go through the same
// shared helper functions below as Root's rather than duplicating logic,
// and it adds Open/Read/Write for regular files.
type Node struct {
	fs.Inode
	sb     *core.Superblock
	dentry *core.Dentry
}

var (
	_ fs.InodeEmbedder = (*Node)(nil)
	_ fs.NodeLookuper  = (*Node)(nil)
	_ fs.NodeReaddirer = (*Node)(nil)
	_ fs.NodeGetattrer = (*Node)(nil)
	_ fs.NodeOpener    = (*Node)(nil)
	_ fs.NodeReader    = (*Node)(nil)
	_ fs.NodeWriter    = (*Node)(nil)
	_ fs.NodeMkdirer   = (*Node)(nil)
	_ fs.NodeCreater   = (*Node)(nil)
	_ fs.NodeUnlinker  = (*Node)(nil)
)

func errnoFor(err error) syscall.Errno {
	switch {
	case err == nil:
		return 0
	case isErr(err, fserr.ErrNotFound):
		return syscall.ENOENT
	case isErr(err, fserr.ErrNoSpace):
		return syscall.ENOSPC
	case isErr(err, fserr.ErrInval):
		return syscall.EINVAL
	default:
		return syscall.EIO
	}
}

func isErr(err, target error) bool {
	for err != nil {
		if err == target {
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func attrFromDentry(sb *core.Superblock, d *core.Dentry, out *fuse.AttrOut) syscall.Errno {
	n, err := sb.Inode(d)
	if err != nil {
		return errnoFor(err)
	}
	out.Ino = uint64(n.Ino)
	if n.IsDir() {
		out.Mode = syscall.S_IFDIR | 0755
	} else {
		out.Mode = syscall.S_IFREG | 0644
		out.Size = uint64(n.Size)
	}
	return 0
}

func childInode(ctx context.Context, parentNode *fs.Inode, sb *core.Superblock, parentDentry, child *core.Dentry) *fs.Inode {
	stable := fs.StableAttr{Ino: uint64(child.Ino)}
	if child.Type == layout.FileTypeDirectory {
		stable.Mode = syscall.S_IFDIR
	} else {
		stable.Mode = syscall.S_IFREG
	}
	node := &Node{sb: sb, dentry: child}
	return parentNode.NewInode(ctx, node, stable)
}

func lookup(ctx context.Context, inode *fs.Inode, sb *core.Superblock, dentry *core.Dentry, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	n, err := sb.Inode(dentry)
	if err != nil {
		return nil, errnoFor(err)
	}
	if !n.IsDir() {
		return nil, syscall.ENOTDIR
	}
	child, err := sb.LookupExact(fullPath(dentry, name))
	if err != nil {
		return nil, errnoFor(err)
	}
	if errno := attrFromDentry(sb, child, &out.Attr); errno != 0 {
		return nil, errno
	}
	return childInode(ctx, inode, sb, dentry, child), 0
}

// fullPath reconstructs an absolute path for dentry/name by walking
// Parent pointers, since Superblock.Lookup takes a path rather than a
// direct dentry reference.
func fullPath(dentry *core.Dentry, name string) string {
	var segs []string
	for d := dentry; d != nil && d.Parent != nil; d = d.Parent {
		segs = append([]string{d.Name}, segs...)
	}
	segs = append(segs, name)
	p := "/"
	for _, s := range segs {
		if p != "/" {
			p += "/"
		}
		p += s
	}
	return p
}

func readdir(sb *core.Superblock, dentry *core.Dentry) (fs.DirStream, syscall.Errno) {
	if err := sb.OpenDir(dentry); err != nil {
		return nil, errnoFor(err)
	}
	var entries []fuse.DirEntry
	for child := dentry.Children; child != nil; child = child.Sibling {
		mode := uint32(syscall.S_IFREG)
		if child.Type == layout.FileTypeDirectory {
			mode = syscall.S_IFDIR
		}
		entries = append(entries, fuse.DirEntry{Name: child.Name, Ino: uint64(child.Ino), Mode: mode})
	}
	return fs.NewListDirStream(entries), 0
}

func (r *Root) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	return lookup(ctx, &r.Inode, r.sb, r.sb.Root(), name, out)
}

func (r *Root) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	return readdir(r.sb, r.sb.Root())
}

func (r *Root) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	return attrFromDentry(r.sb, r.sb.Root(), out)
}

func (r *Root) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	return mkdir(ctx, &r.Inode, r.sb, r.sb.Root(), name, out)
}

func (r *Root) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	return create(ctx, &r.Inode, r.sb, r.sb.Root(), name, out)
}

func (r *Root) Unlink(ctx context.Context, name string) syscall.Errno {
	return unlink(r.sb, r.sb.Root(), name)
}

func (n *Node) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	return lookup(ctx, &n.Inode, n.sb, n.dentry, name, out)
}

func (n *Node) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	return readdir(n.sb, n.dentry)
}

func (n *Node) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	return attrFromDentry(n.sb, n.dentry, out)
}

func (n *Node) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

func (n *Node) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	data, err := n.sb.ReadFile(n.dentry, int(off), len(dest))
	if err != nil {
		return nil, errnoFor(err)
	}
	return fuse.ReadResultData(data), 0
}

func (n *Node) Write(ctx context.Context, f fs.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	if err := n.sb.WriteFile(n.dentry, data, int(off)); err != nil {
		return 0, errnoFor(err)
	}
	return uint32(len(data)), 0
}

func (n *Node) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	return mkdir(ctx, &n.Inode, n.sb, n.dentry, name, out)
}

func (n *Node) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	return create(ctx, &n.Inode, n.sb, n.dentry, name, out)
}

func (n *Node) Unlink(ctx context.Context, name string) syscall.Errno {
	return unlink(n.sb, n.dentry, name)
}

func mkdir(ctx context.Context, inode *fs.Inode, sb *core.Superblock, parent *core.Dentry, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	child, err := sb.Mkdir(parent, name)
	if err != nil {
		return nil, errnoFor(err)
	}
	if errno := attrFromDentry(sb, child, &out.Attr); errno != 0 {
		return nil, errno
	}
	return childInode(ctx, inode, sb, parent, child), 0
}

func create(ctx context.Context, inode *fs.Inode, sb *core.Superblock, parent *core.Dentry, name string, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	child, err := sb.Create(parent, name)
	if err != nil {
		return nil, nil, 0, errnoFor(err)
	}
	if errno := attrFromDentry(sb, child, &out.Attr); errno != 0 {
		return nil, nil, 0, errno
	}
	return childInode(ctx, inode, sb, parent, child), nil, fuse.FOPEN_KEEP_CACHE, 0
}

func unlink(sb *core.Superblock, parent *core.Dentry, name string) syscall.Errno {
	return errnoFor(sb.Unlink(parent, name))
}
