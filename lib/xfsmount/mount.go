// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package xfsmount implements the per-filesystem state that the
// scrubbers validate records against: static geometry, resource
// capacities, feature and quota-enablement flags, and the live inode
// counter.
package xfsmount

import (
	"fmt"
	"math/bits"

	"git.lukeshu.com/xfs-scrub-ng/lib/fmtutil"
	"git.lukeshu.com/xfs-scrub-ng/lib/xfsprim"
)

// OnDiskRecordSize is the size of one on-disk quota record, in bytes.
const OnDiskRecordSize = 136

// Geometry is the static shape of the filesystem.
type Geometry struct {
	// BlockSize is the filesystem block size in bytes; must be a
	// power of two and at least OnDiskRecordSize.
	BlockSize uint32
	// DqPerChunk is how many quota records are stored in one
	// extent chunk of a quota file.  If zero, it is derived as
	// BlockSize/OnDiskRecordSize.
	DqPerChunk uint32
}

// Capacities is a point-in-time snapshot of the filesystem's resource
// capacities.  ICount is the live inode count, which is only
// approximately fresh; everything else is quasi-static.
type Capacities struct {
	DBlocks   uint64
	RBlocks   uint64
	MaxICount uint64
	ICount    uint64
	Reflink   bool
}

// QuotaFlags says which parts of quota tracking are enabled.
type QuotaFlags uint8

const (
	QuotaAccounting QuotaFlags = 1 << iota
	QuotaUser
	QuotaGroup
	QuotaProj
)

var quotaFlagNames = []string{
	"ACCOUNTING",
	"USER",
	"GROUP",
	"PROJ",
}

var _ fmt.Stringer = QuotaFlags(0)

// String implements fmt.Stringer.
func (fl QuotaFlags) String() string {
	return fmtutil.BitfieldString(fl, quotaFlagNames, fmtutil.HexLower)
}

func (fl QuotaFlags) Has(req QuotaFlags) bool { return fl&req == req }

func typeFlag(typ xfsprim.DqType) QuotaFlags {
	switch typ {
	case xfsprim.DqTypeUser:
		return QuotaUser
	case xfsprim.DqTypeGroup:
		return QuotaGroup
	case xfsprim.DqTypeProj:
		return QuotaProj
	default:
		panic(fmt.Errorf("should not happen: unexpected DqType=%v", typ))
	}
}

type Mount struct {
	geom     Geometry
	caps     Capacities
	qflags   QuotaFlags
	blockLog uint8

	icount ShardedCounter
}

// New validates the geometry, seeds the live inode counter from
// caps.ICount, and returns a ready Mount.
func New(geom Geometry, caps Capacities, qflags QuotaFlags) (*Mount, error) {
	if geom.BlockSize == 0 || geom.BlockSize&(geom.BlockSize-1) != 0 {
		return nil, fmt.Errorf("xfsmount: block size %d is not a power of two", geom.BlockSize)
	}
	if geom.BlockSize < OnDiskRecordSize {
		return nil, fmt.Errorf("xfsmount: block size %d is smaller than one quota record (%d)",
			geom.BlockSize, OnDiskRecordSize)
	}
	if geom.DqPerChunk == 0 {
		geom.DqPerChunk = geom.BlockSize / OnDiskRecordSize
	}
	mount := &Mount{
		geom:     geom,
		caps:     caps,
		qflags:   qflags,
		blockLog: uint8(bits.TrailingZeros32(geom.BlockSize)),
	}
	mount.icount.Add(int64(caps.ICount))
	return mount, nil
}

func (m *Mount) Geometry() Geometry { return m.geom }

// Capacities returns the current capacity snapshot; ICount is summed
// from the live counter at call time.
func (m *Mount) Capacities() Capacities {
	caps := m.caps
	caps.ICount = uint64(m.icount.Sum())
	return caps
}

// ICount is the live inode counter; filesystem operations adjust it
// as inodes are allocated and freed.
func (m *Mount) ICount() *ShardedCounter { return &m.icount }

// QuotaOn returns whether quota accounting is enabled system-wide and
// for the given quota type.
func (m *Mount) QuotaOn(typ xfsprim.DqType) bool {
	return m.qflags.Has(QuotaAccounting | typeFlag(typ))
}

// ChunkOff returns the logical chunk offset within a quota file at
// which the record for the given identity is stored.
func (m *Mount) ChunkOff(id xfsprim.DqID) xfsprim.FileOff {
	return xfsprim.FileOff(uint64(id) / uint64(m.geom.DqPerChunk))
}

// MaxChunkOff is the largest chunk offset that any representable
// identity can map to; no quota-file extent may reach past it.
func (m *Mount) MaxChunkOff() xfsprim.FileOff {
	return m.ChunkOff(xfsprim.DqIDMax)
}

func (m *Mount) ValidFileOff(off xfsprim.FileOff) bool {
	return off >= 0 && off <= xfsprim.MaxFileOff
}

func (m *Mount) ValidFsBlock(fsb xfsprim.FsBlock) bool {
	return fsb >= 0 && uint64(fsb) < m.caps.DBlocks
}

// FsbToDaddr converts a filesystem block number to a disk address.
func (m *Mount) FsbToDaddr(fsb xfsprim.FsBlock) xfsprim.DAddr {
	return xfsprim.DAddr(fsb) << (m.blockLog - 9)
}
