package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuperblockRoundTrip(t *testing.T) {
	in := SuperblockDisk{
		Magic:          MagicNumber,
		IOUnit:         512,
		LogicalBlock:   1024,
		InodeMapBlocks: 1,
		DataMapBlocks:  2,
		InodeBlocks:    4,
		InodeCount:     128,
		DataBlockCount: 4096,
		DataStartBlk:   8,
	}

	data, err := in.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, data, SuperblockDiskSize)

	var out SuperblockDisk
	require.NoError(t, out.UnmarshalBinary(data))
	assert.Equal(t, in, out)
}

func TestInodeRoundTrip(t *testing.T) {
	in := InodeDisk{
		Ino:      7,
		Type:     FileTypeRegular,
		Size:     4096,
		BlockCnt: 2,
	}
	in.Blocks[0] = 10
	in.Blocks[1] = 11

	data, err := in.MarshalBinary()
	require.NoError(t, err)

	var out InodeDisk
	require.NoError(t, out.UnmarshalBinary(data))
	assert.Equal(t, in, out)
}

func TestDentrySetNameAndRoundTrip(t *testing.T) {
	var d DentryDisk
	require.NoError(t, d.SetName("hello.txt"))
	d.Ino = 3
	d.Type = FileTypeRegular
	d.Valid = 1

	data, err := d.MarshalBinary()
	require.NoError(t, err)

	var out DentryDisk
	require.NoError(t, out.UnmarshalBinary(data))
	assert.Equal(t, "hello.txt", out.NameString())
	assert.Equal(t, uint32(3), out.Ino)
	assert.Equal(t, uint32(1), out.Valid)
}

func TestDentrySetNameTooLong(t *testing.T) {
	var d DentryDisk
	long := make([]byte, MaxFileName)
	for i := range long {
		long[i] = 'a'
	}
	err := d.SetName(string(long))
	assert.Error(t, err)
}

func TestComputeGeometryBasic(t *testing.T) {
	// 64 MiB device, 512-byte IO unit, 1024 inodes.
	g, err := ComputeGeometry(512, 64*1024*1024, 1024)
	require.NoError(t, err)

	assert.Equal(t, 1024, g.LogicalBlock)
	assert.Greater(t, g.InodeBlocks, 0)
	assert.Greater(t, g.DataBlockCount, 0)
	assert.Greater(t, g.DataStartBlk, 0)
	assert.Greater(t, g.InodePerBlock, 0)
	assert.Greater(t, g.DentryPerBlock, 0)
}

func TestComputeGeometryTooSmall(t *testing.T) {
	_, err := ComputeGeometry(512, 4096, 1024)
	assert.Error(t, err)
}

func TestGeometryDiskRoundTrip(t *testing.T) {
	g, err := ComputeGeometry(512, 64*1024*1024, 1024)
	require.NoError(t, err)

	disk := g.ToDisk()
	g2 := FromDisk(&disk)

	assert.Equal(t, g.LogicalBlock, g2.LogicalBlock)
	assert.Equal(t, g.InodePerBlock, g2.InodePerBlock)
	assert.Equal(t, g.DentryPerBlock, g2.DentryPerBlock)
	assert.Equal(t, g.DataStartBlk, g2.DataStartBlk)
}

func TestInodeOffsetMonotonic(t *testing.T) {
	g, err := ComputeGeometry(512, 64*1024*1024, 1024)
	require.NoError(t, err)

	off0 := g.InodeOffset(0)
	off1 := g.InodeOffset(1)
	assert.Less(t, off0, off1)
}
