// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package quotafile_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.lukeshu.com/xfs-scrub-ng/lib/quotafile"
	"git.lukeshu.com/xfs-scrub-ng/lib/xfsmount"
	"git.lukeshu.com/xfs-scrub-ng/lib/xfsprim"
)

func newTestMount(t *testing.T) *xfsmount.Mount {
	t.Helper()
	mount, err := xfsmount.New(
		xfsmount.Geometry{BlockSize: 4096},
		xfsmount.Capacities{DBlocks: 1000, RBlocks: 500, MaxICount: 65536, ICount: 100},
		xfsmount.QuotaAccounting|xfsmount.QuotaUser)
	require.NoError(t, err)
	return mount
}

// countingMapper counts how many lookups reach the underlying mapper,
// so that tests can observe the file's mapping cache.
type countingMapper struct {
	inner quotafile.ExtentMapper
	calls int
}

var _ quotafile.ExtentMapper = (*countingMapper)(nil)

// MapExtents implements quotafile.ExtentMapper.
func (m *countingMapper) MapExtents(ctx context.Context, off xfsprim.FileOff, count int64) ([]quotafile.Extent, error) {
	m.calls++
	return m.inner.MapExtents(ctx, off, count)
}

// AllExtents implements quotafile.ExtentMapper.
func (m *countingMapper) AllExtents(ctx context.Context) ([]quotafile.Extent, error) {
	return m.inner.AllExtents(ctx)
}

func TestFileMappingCache(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mount := newTestMount(t)

	mapper := &countingMapper{inner: quotafile.NewExtentList([]quotafile.Extent{
		{StartOff: 0, StartBlock: 10, BlockCount: 4, State: quotafile.ExtentWritten},
	})}
	file := quotafile.NewFile(mount, xfsprim.DqTypeUser, quotafile.NewStore(), mapper)

	file.LockShared()
	exts, err := file.MapExtents(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, exts, 1)
	assert.Equal(t, 1, mapper.calls)

	// a repeated single-block lookup is served from the cache
	exts, err = file.MapExtents(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, exts, 1)
	assert.Equal(t, 1, mapper.calls)

	// multi-block lookups bypass the cache
	_, err = file.MapExtents(ctx, 0, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, mapper.calls)
	file.UnlockShared()

	file.LockExcl()
	file.InvalidateMappings()
	file.UnlockExcl()

	file.LockShared()
	_, err = file.MapExtents(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, mapper.calls)
	file.UnlockShared()
}

func TestRegistry(t *testing.T) {
	t.Parallel()
	mount := newTestMount(t)

	userFile := quotafile.NewFile(mount, xfsprim.DqTypeUser, quotafile.NewStore(), quotafile.NewExtentList(nil))
	reg := new(quotafile.Registry)
	reg.Install(userFile)

	got, ok := reg.Lookup(xfsprim.DqTypeUser)
	assert.True(t, ok)
	assert.Same(t, userFile, got)

	_, ok = reg.Lookup(xfsprim.DqTypeGroup)
	assert.False(t, ok)

	var seen []xfsprim.DqType
	reg.Range(func(typ xfsprim.DqType, _ *quotafile.File) bool {
		seen = append(seen, typ)
		return true
	})
	assert.Equal(t, []xfsprim.DqType{xfsprim.DqTypeUser}, seen)
}

func TestSnapshotBuild(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	snap := quotafile.Snapshot{
		Geometry:   xfsmount.Geometry{BlockSize: 4096, DqPerChunk: 4},
		Capacities: xfsmount.Capacities{DBlocks: 1000, RBlocks: 500, MaxICount: 65536, ICount: 100},
		QuotaOn:    []xfsprim.DqType{xfsprim.DqTypeUser},
		Files: []quotafile.FileSnapshot{
			{
				Type: xfsprim.DqTypeUser,
				Records: []quotafile.Record{
					{ID: 5, Blk: quotafile.Resource{Count: 10}},
				},
				Extents: []quotafile.Extent{
					{StartOff: 1, StartBlock: 10, BlockCount: 1, State: quotafile.ExtentWritten},
				},
			},
		},
	}

	mount, reg, err := snap.Build()
	require.NoError(t, err)
	assert.True(t, mount.QuotaOn(xfsprim.DqTypeUser))
	assert.False(t, mount.QuotaOn(xfsprim.DqTypeGroup))

	file, ok := reg.Lookup(xfsprim.DqTypeUser)
	require.True(t, ok)
	rec, ok := file.Store().Lookup(5)
	require.True(t, ok)
	assert.Equal(t, uint64(10), rec.Blk.Count)
	// the store holds a copy, not the snapshot's own record
	assert.NotSame(t, &snap.Files[0].Records[0], rec)

	exts, err := file.AllExtents(ctx)
	require.NoError(t, err)
	assert.Len(t, exts, 1)

	snap.QuotaOn = append(snap.QuotaOn, xfsprim.DqType(9))
	_, _, err = snap.Build()
	assert.Error(t, err)
}

func TestSnapshotBuildNoQuota(t *testing.T) {
	t.Parallel()
	snap := quotafile.Snapshot{
		Geometry:   xfsmount.Geometry{BlockSize: 4096},
		Capacities: xfsmount.Capacities{DBlocks: 1000},
	}
	mount, _, err := snap.Build()
	require.NoError(t, err)
	for _, typ := range xfsprim.DqTypes() {
		assert.False(t, mount.QuotaOn(typ))
	}
}
