package core

import (
	"github.com/2003jiahang/newfs/internal/layout"
)

// Dentry is the in-memory directory-entry node: a name bound to an inode
// number, linked into its parent's children via head-insertion (spec
// §4.4), grounded on newfs_alloc_dentry's linked-list insert.
type Dentry struct {
	Name   string
	Ino    uint32
	Type   layout.FileType
	Parent *Dentry

	// Sibling is the next entry in the parent's singly linked child list.
	// Named for what it is rather than transliterated from the original's
	// field name, since the two are the same linked-list pointer.
	Sibling *Dentry

	// Children is the head of this dentry's own child list, populated
	// only when this dentry names a directory. New entries are inserted
	// at the head, so the order will typically not match creation order
	// read back from disk in recursive-load order.
	Children *Dentry

	// childrenLoaded marks whether Children has been populated from disk
	// for this directory. A directory can have zero children and still
	// be "loaded", so this can't be inferred from Children == nil alone.
	childrenLoaded bool
}

// addChild head-inserts child into d's children list.
func (d *Dentry) addChild(child *Dentry) {
	child.Parent = d
	child.Sibling = d.Children
	d.Children = child
}

// removeChild unlinks child from d's children list by name, mirroring
// newfs_drop_dentry's singly linked unlink.
func (d *Dentry) removeChild(name string) *Dentry {
	var prev *Dentry
	cur := d.Children
	for cur != nil {
		if cur.Name == name {
			if prev == nil {
				d.Children = cur.Sibling
			} else {
				prev.Sibling = cur.Sibling
			}
			cur.Sibling = nil
			cur.Parent = nil
			return cur
		}
		prev = cur
		cur = cur.Sibling
	}
	return nil
}

// find looks up a child by exact name equality. This is the corrected
// behavior spec.md calls for: the original newfs_lookup compared names
// with memcmp bounded by strlen(fname), so a stored name that merely
// started with the requested token (e.g. "foo2" when looking up "foo")
// would incorrectly match. NewFS fixes that here and documents the
// original quirk instead of reproducing it (see DESIGN.md).
func (d *Dentry) find(name string) *Dentry {
	for cur := d.Children; cur != nil; cur = cur.Sibling {
		if cur.Name == name {
			return cur
		}
	}
	return nil
}
