package core_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2003jiahang/newfs/core"
	"github.com/2003jiahang/newfs/internal/blockdev"
	"github.com/2003jiahang/newfs/internal/fserr"
)

// newTestDevice creates a small fresh FileDevice-backed image: 64 KiB
// total, a 64-byte IO unit (128-byte logical block), sized generously
// enough to exercise directory-block growth within a test run.
func newTestDevice(t *testing.T) blockdev.Device {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image.newfs")
	dev, err := blockdev.OpenFile(path, 64)
	require.NoError(t, err)

	// Pre-size the backing file so ComputeGeometry sees a real device size.
	require.NoError(t, dev.Truncate(64*1024))
	return dev
}

func TestMountFormatsFreshDevice(t *testing.T) {
	sb, err := core.Mount(newTestDevice(t), core.WithInodeCount(16))
	require.NoError(t, err)
	defer sb.Unmount()

	root := sb.Root()
	assert.Equal(t, "/", root.Name)

	usage := sb.Usage()
	assert.Equal(t, 1, usage.InodesUsed) // root consumes inode 0
	assert.Equal(t, 16, usage.InodesTotal)
}

func TestMkdirAndLookup(t *testing.T) {
	sb, err := core.Mount(newTestDevice(t), core.WithInodeCount(16))
	require.NoError(t, err)
	defer sb.Unmount()

	root := sb.Root()
	child, err := sb.Mkdir(root, "etc")
	require.NoError(t, err)
	assert.Equal(t, "etc", child.Name)

	found, ok, _, err := sb.Lookup("/etc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, child.Ino, found.Ino)
}

func TestLookupExactNameNotPrefix(t *testing.T) {
	sb, err := core.Mount(newTestDevice(t), core.WithInodeCount(16))
	require.NoError(t, err)
	defer sb.Unmount()

	root := sb.Root()
	_, err = sb.Mkdir(root, "foo2")
	require.NoError(t, err)

	// A lookup of "foo" must not match the stored entry "foo2" — this is
	// the corrected exact-equality behavior, not the original's
	// strlen-bounded prefix comparison.
	_, err = sb.LookupExact("/foo")
	assert.True(t, errors.Is(err, fserr.ErrNotFound))
}

func TestLookupMissingPathNotFound(t *testing.T) {
	sb, err := core.Mount(newTestDevice(t), core.WithInodeCount(16))
	require.NoError(t, err)
	defer sb.Unmount()

	_, err = sb.LookupExact("/nope")
	assert.True(t, errors.Is(err, fserr.ErrNotFound))
}

func TestLookupMissingPathReturnsNearestAncestor(t *testing.T) {
	sb, err := core.Mount(newTestDevice(t), core.WithInodeCount(16))
	require.NoError(t, err)
	defer sb.Unmount()

	root := sb.Root()
	a, err := sb.Mkdir(root, "a")
	require.NoError(t, err)

	// lookup("/a/zz") with /a existing but "zz" absent must return /a's
	// dentry with found=false, not an error — scenario 6 in spec §8.
	ancestor, found, isRoot, err := sb.Lookup("/a/zz")
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, isRoot)
	assert.Equal(t, a.Ino, ancestor.Ino)
}

func TestCreateWriteReadFile(t *testing.T) {
	sb, err := core.Mount(newTestDevice(t), core.WithInodeCount(16))
	require.NoError(t, err)
	defer sb.Unmount()

	root := sb.Root()
	f, err := sb.Create(root, "hello.txt")
	require.NoError(t, err)

	payload := make([]byte, 300) // spans multiple 128-byte blocks
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, sb.WriteFile(f, payload, 0))

	out, err := sb.ReadFile(f, 0, -1)
	require.NoError(t, err)
	assert.Equal(t, payload, out)
}

func TestWriteFileAtOffsetPreservesSurroundingBytes(t *testing.T) {
	sb, err := core.Mount(newTestDevice(t), core.WithInodeCount(16))
	require.NoError(t, err)
	defer sb.Unmount()

	root := sb.Root()
	f, err := sb.Create(root, "patched.txt")
	require.NoError(t, err)

	require.NoError(t, sb.WriteFile(f, []byte("hello world"), 0))
	require.NoError(t, sb.WriteFile(f, []byte("NEW"), 6))

	out, err := sb.ReadFile(f, 0, -1)
	require.NoError(t, err)
	assert.Equal(t, "hello NEWld", string(out))

	// write at an offset past the current end grows and zero-fills the gap
	require.NoError(t, sb.WriteFile(f, []byte("X"), 20))
	out, err = sb.ReadFile(f, 0, -1)
	require.NoError(t, err)
	require.Len(t, out, 21)
	assert.Equal(t, byte('X'), out[20])
	assert.Equal(t, byte(0), out[15])
}

func TestReadFileNeverWrittenReturnsEmptyBuffer(t *testing.T) {
	sb, err := core.Mount(newTestDevice(t), core.WithInodeCount(16))
	require.NoError(t, err)
	defer sb.Unmount()

	root := sb.Root()
	f, err := sb.Create(root, "empty.txt")
	require.NoError(t, err)

	out, err := sb.ReadFile(f, 0, -1)
	require.NoError(t, err)
	assert.Len(t, out, 0)
}

func TestDirectoryGrowsAcrossMultipleBlocks(t *testing.T) {
	sb, err := core.Mount(newTestDevice(t), core.WithInodeCount(16))
	require.NoError(t, err)
	defer sb.Unmount()

	root := sb.Root()
	for i := 0; i < 3; i++ {
		_, err := sb.Create(root, string(rune('a'+i)))
		require.NoError(t, err)
	}

	rootInode, err := sb.Inode(root)
	require.NoError(t, err)
	// DentryPerBlock is 1 with this test geometry, so three entries force
	// three distinct data blocks.
	assert.EqualValues(t, 3, rootInode.BlockCnt)

	for i := 0; i < 3; i++ {
		name := string(rune('a' + i))
		found, err := sb.LookupExact("/" + name)
		require.NoError(t, err)
		assert.Equal(t, name, found.Name)
	}
}

func TestLookupResultChildrenLoadableViaOpenDir(t *testing.T) {
	sb, err := core.Mount(newTestDevice(t), core.WithInodeCount(16))
	require.NoError(t, err)
	defer sb.Unmount()

	root := sb.Root()
	sub, err := sb.Mkdir(root, "sub")
	require.NoError(t, err)
	_, err = sb.Create(sub, "leaf.txt")
	require.NoError(t, err)

	found, err := sb.LookupExact("/sub")
	require.NoError(t, err)
	require.NoError(t, sb.OpenDir(found))

	assert.NotNil(t, found.Children)
	assert.Equal(t, "leaf.txt", found.Children.Name)
}

func TestUnlinkRemovesFileAndFreesInode(t *testing.T) {
	sb, err := core.Mount(newTestDevice(t), core.WithInodeCount(16))
	require.NoError(t, err)
	defer sb.Unmount()

	root := sb.Root()
	f, err := sb.Create(root, "doomed.txt")
	require.NoError(t, err)
	require.NoError(t, sb.WriteFile(f, []byte("bye"), 0))

	before := sb.Usage()
	require.NoError(t, sb.Unlink(root, "doomed.txt"))
	after := sb.Usage()

	assert.Less(t, after.InodesUsed, before.InodesUsed)
	assert.Less(t, after.DataBlocksUsed, before.DataBlocksUsed)

	_, err = sb.LookupExact("/doomed.txt")
	assert.True(t, errors.Is(err, fserr.ErrNotFound))
}

func TestUnlinkEmptiedDirectoryIsRemovable(t *testing.T) {
	sb, err := core.Mount(newTestDevice(t), core.WithInodeCount(16))
	require.NoError(t, err)
	defer sb.Unmount()

	root := sb.Root()
	d, err := sb.Mkdir(root, "d")
	require.NoError(t, err)
	_, err = sb.Create(d, "f")
	require.NoError(t, err)
	require.NoError(t, sb.Unlink(d, "f"))

	// Unlink must decrement the parent's entry count so an emptied
	// directory is reported empty, not wrongly still "not empty".
	require.NoError(t, sb.Unlink(root, "d"))

	_, err = sb.LookupExact("/d")
	assert.True(t, errors.Is(err, fserr.ErrNotFound))
}

func TestDropInodeRefusesRoot(t *testing.T) {
	sb, err := core.Mount(newTestDevice(t), core.WithInodeCount(16))
	require.NoError(t, err)
	defer sb.Unmount()

	root := sb.Root()
	rootInode, err := sb.Inode(root)
	require.NoError(t, err)

	err = sb.DropInode(rootInode)
	assert.True(t, errors.Is(err, fserr.ErrInval))
}

func TestFsckCleanTreeReportsOK(t *testing.T) {
	sb, err := core.Mount(newTestDevice(t), core.WithInodeCount(16))
	require.NoError(t, err)
	defer sb.Unmount()

	root := sb.Root()
	dir, err := sb.Mkdir(root, "d")
	require.NoError(t, err)
	f, err := sb.Create(dir, "f")
	require.NoError(t, err)
	require.NoError(t, sb.WriteFile(f, []byte("data"), 0))

	report, err := sb.Fsck()
	require.NoError(t, err)
	assert.True(t, report.OK(), "unexpected problems: %v", report.Problems)
}

func TestDumpMapsMatchUsageCounts(t *testing.T) {
	sb, err := core.Mount(newTestDevice(t), core.WithInodeCount(16))
	require.NoError(t, err)
	defer sb.Unmount()

	root := sb.Root()
	_, err = sb.Mkdir(root, "x")
	require.NoError(t, err)

	grid := sb.DumpInodeMap()
	set := 0
	for _, row := range grid {
		for _, bit := range row {
			if bit {
				set++
			}
		}
	}
	usage := sb.Usage()
	assert.Equal(t, usage.InodesUsed, set)
}

func TestMountRoundTripsAcrossUnmount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.newfs")
	dev, err := blockdev.OpenFile(path, 64)
	require.NoError(t, err)
	require.NoError(t, dev.Truncate(64*1024))

	sb, err := core.Mount(dev, core.WithInodeCount(16))
	require.NoError(t, err)
	root := sb.Root()
	_, err = sb.Mkdir(root, "persisted")
	require.NoError(t, err)
	require.NoError(t, sb.Unmount())

	dev2, err := blockdev.OpenFile(path, 64)
	require.NoError(t, err)
	sb2, err := core.Mount(dev2, core.WithInodeCount(16))
	require.NoError(t, err)
	defer sb2.Unmount()

	found, err := sb2.LookupExact("/persisted")
	require.NoError(t, err)
	assert.Equal(t, "persisted", found.Name)
}
