package core

import (
	"fmt"
	"strings"

	"github.com/2003jiahang/newfs/internal/fserr"
)

// Lookup tokenizes path by '/' and walks the tree from root, lazily
// loading each directory it passes through — grounded on
// newfs_lookup(path, &found, &is_root). The original compared names with
// memcmp bounded by strlen(token), a prefix-equality bug that let a
// stored entry merely starting with the requested token match (spec §9
// calls this out explicitly as a known source quirk). NewFS's resolver
// uses exact name equality throughout (see Dentry.find) instead of
// reproducing it.
//
// found reports whether path fully resolved. When it does not — the
// final component is absent, or an intermediate component names a
// regular file rather than a directory — Lookup returns the nearest
// existing ancestor dentry instead of nil, so callers (e.g. a create
// operation) can decide whether to fill in the missing entry themselves,
// per spec §7/§8 scenario 6. isRoot reports whether path names the root
// itself ("/" or ""). err is reserved for genuine I/O/load failures, not
// for an unresolved path — an unresolved path is reported via found,
// never via err.
func (sb *Superblock) Lookup(path string) (dentry *Dentry, found bool, isRoot bool, err error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.lookupLocked(path)
}

func (sb *Superblock) lookupLocked(path string) (*Dentry, bool, bool, error) {
	path = strings.Trim(path, "/")
	cur := sb.root
	if path == "" {
		return cur, true, true, nil
	}

	tokens := strings.Split(path, "/")
	for _, tok := range tokens {
		if tok == "" {
			continue
		}

		n, err := sb.readInodeLocked(cur.Ino, cur.Type)
		if err != nil {
			return nil, false, false, err
		}
		if !n.IsDir() {
			// Depth remains but the current dentry names a regular file:
			// not found, but not an error either — return the nearest
			// existing ancestor (the file itself).
			return cur, false, false, nil
		}
		if !cur.childrenLoaded {
			if err := sb.loadChildrenLocked(cur, n); err != nil {
				return nil, false, false, err
			}
		}

		next := cur.find(tok)
		if next == nil {
			return cur, false, false, nil
		}
		cur = next
	}
	return cur, true, false, nil
}

// LookupExact is a convenience over Lookup for callers that have no use
// for partial resolution: it reports an absent path as fserr.ErrNotFound
// rather than returning the nearest ancestor.
func (sb *Superblock) LookupExact(path string) (*Dentry, error) {
	d, found, _, err := sb.Lookup(path)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("core: %q: %w", path, fserr.ErrNotFound)
	}
	return d, nil
}

// LookupParent resolves all but the final path component and returns the
// parent directory's Dentry plus the final component's name, for
// create/unlink style operations that need to mutate the parent. The
// parent must fully exist; LookupParent reports fserr.ErrNotFound if it
// does not.
func (sb *Superblock) LookupParent(path string) (*Dentry, string, error) {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil, "", fmt.Errorf("core: empty path: %w", fserr.ErrInval)
	}

	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		root, err := sb.LookupExact("/")
		if err != nil {
			return nil, "", err
		}
		return root, path, nil
	}

	parent, err := sb.LookupExact(path[:idx])
	if err != nil {
		return nil, "", err
	}
	return parent, path[idx+1:], nil
}

// CalcDepth returns path's directory depth, counting '/' separators,
// grounded on newfs_calc_lvl.
func CalcDepth(path string) int {
	path = strings.Trim(path, "/")
	if path == "" {
		return 0
	}
	return strings.Count(path, "/") + 1
}

// Inode returns the loaded Inode for dentry, lazily loading it first.
func (sb *Superblock) Inode(d *Dentry) (*Inode, error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	return sb.readInodeLocked(d.Ino, d.Type)
}

// OpenDir ensures d's own Children list is populated, loading it if it
// has not been loaded yet. Loading a directory's children also loads the
// children of every directory beneath it (see loadChildrenLocked), so for
// a directory reached through Lookup or Mount this is normally a no-op.
func (sb *Superblock) OpenDir(d *Dentry) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	n, err := sb.readInodeLocked(d.Ino, d.Type)
	if err != nil {
		return err
	}
	if !n.IsDir() {
		return fmt.Errorf("core: %q is not a directory: %w", d.Name, fserr.ErrInval)
	}
	return sb.loadChildrenLocked(d, n)
}
