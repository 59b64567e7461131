// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package xfsmount_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.lukeshu.com/xfs-scrub-ng/lib/xfsmount"
	"git.lukeshu.com/xfs-scrub-ng/lib/xfsprim"
)

func TestNewValidation(t *testing.T) {
	t.Parallel()
	type TestCase struct {
		InputGeom xfsmount.Geometry
		OK        bool
	}
	testcases := map[string]TestCase{
		"ok":            {InputGeom: xfsmount.Geometry{BlockSize: 4096}, OK: true},
		"ok-small":      {InputGeom: xfsmount.Geometry{BlockSize: 512}, OK: true},
		"zero":          {InputGeom: xfsmount.Geometry{BlockSize: 0}},
		"not-pow2":      {InputGeom: xfsmount.Geometry{BlockSize: 4000}},
		"sub-record":    {InputGeom: xfsmount.Geometry{BlockSize: 128}},
		"explicit-dqpc": {InputGeom: xfsmount.Geometry{BlockSize: 4096, DqPerChunk: 4}, OK: true},
	}
	for tcName, tc := range testcases {
		tc := tc
		t.Run(tcName, func(t *testing.T) {
			t.Parallel()
			_, err := xfsmount.New(tc.InputGeom, xfsmount.Capacities{}, 0)
			if tc.OK {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestGeometryDerivation(t *testing.T) {
	t.Parallel()
	mount, err := xfsmount.New(xfsmount.Geometry{BlockSize: 4096}, xfsmount.Capacities{}, 0)
	require.NoError(t, err)
	// 4096/136 records fit in one block
	assert.Equal(t, uint32(30), mount.Geometry().DqPerChunk)
}

func TestChunkOff(t *testing.T) {
	t.Parallel()
	mount, err := xfsmount.New(xfsmount.Geometry{BlockSize: 4096, DqPerChunk: 4}, xfsmount.Capacities{}, 0)
	require.NoError(t, err)

	assert.Equal(t, xfsprim.FileOff(0), mount.ChunkOff(0))
	assert.Equal(t, xfsprim.FileOff(0), mount.ChunkOff(3))
	assert.Equal(t, xfsprim.FileOff(1), mount.ChunkOff(4))
	assert.Equal(t, xfsprim.FileOff(0x3fffffff), mount.MaxChunkOff())
}

func TestQuotaOn(t *testing.T) {
	t.Parallel()
	type TestCase struct {
		InputFlags xfsmount.QuotaFlags
		On         []xfsprim.DqType
	}
	testcases := map[string]TestCase{
		"off": {InputFlags: 0},
		// without the accounting bit, per-type bits mean nothing
		"no-accounting": {InputFlags: xfsmount.QuotaUser | xfsmount.QuotaGroup},
		"user-only": {
			InputFlags: xfsmount.QuotaAccounting | xfsmount.QuotaUser,
			On:         []xfsprim.DqType{xfsprim.DqTypeUser},
		},
		"all": {
			InputFlags: xfsmount.QuotaAccounting | xfsmount.QuotaUser | xfsmount.QuotaGroup | xfsmount.QuotaProj,
			On:         xfsprim.DqTypes(),
		},
	}
	for tcName, tc := range testcases {
		tc := tc
		t.Run(tcName, func(t *testing.T) {
			t.Parallel()
			mount, err := xfsmount.New(xfsmount.Geometry{BlockSize: 4096}, xfsmount.Capacities{}, tc.InputFlags)
			require.NoError(t, err)
			for _, typ := range xfsprim.DqTypes() {
				want := false
				for _, on := range tc.On {
					if on == typ {
						want = true
					}
				}
				assert.Equal(t, want, mount.QuotaOn(typ), "type %v", typ)
			}
		})
	}
}

func TestQuotaFlagsFormat(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "0x0(none)", xfsmount.QuotaFlags(0).String())
	assert.Equal(t, "0x3(ACCOUNTING|USER)",
		(xfsmount.QuotaAccounting | xfsmount.QuotaUser).String())
	assert.Equal(t, "0xd(ACCOUNTING|GROUP|PROJ)",
		(xfsmount.QuotaAccounting | xfsmount.QuotaGroup | xfsmount.QuotaProj).String())
}

func TestFsbToDaddr(t *testing.T) {
	t.Parallel()
	mount, err := xfsmount.New(xfsmount.Geometry{BlockSize: 4096}, xfsmount.Capacities{DBlocks: 100}, 0)
	require.NoError(t, err)

	// 4096-byte blocks are 8 sectors each
	assert.Equal(t, xfsprim.DAddr(0), mount.FsbToDaddr(0))
	assert.Equal(t, xfsprim.DAddr(40), mount.FsbToDaddr(5))

	assert.True(t, mount.ValidFsBlock(0))
	assert.True(t, mount.ValidFsBlock(99))
	assert.False(t, mount.ValidFsBlock(100))
	assert.False(t, mount.ValidFsBlock(-1))
}

func TestCapacitiesTrackICount(t *testing.T) {
	t.Parallel()
	mount, err := xfsmount.New(xfsmount.Geometry{BlockSize: 4096}, xfsmount.Capacities{ICount: 100}, 0)
	require.NoError(t, err)

	assert.Equal(t, uint64(100), mount.Capacities().ICount)
	mount.ICount().Add(5)
	mount.ICount().Add(-2)
	assert.Equal(t, uint64(103), mount.Capacities().ICount)
}
