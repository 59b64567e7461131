// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package quotafile

import (
	"context"
	"fmt"
	"sort"

	"git.lukeshu.com/xfs-scrub-ng/lib/xfsprim"
)

// ExtentState is the allocation state of an extent mapping.
type ExtentState int8

const (
	ExtentHole ExtentState = iota
	ExtentWritten
	ExtentUnwritten
	ExtentDelalloc
)

var _ fmt.Stringer = ExtentHole

// String implements fmt.Stringer.
func (st ExtentState) String() string {
	switch st {
	case ExtentHole:
		return "hole"
	case ExtentWritten:
		return "written"
	case ExtentUnwritten:
		return "unwritten"
	case ExtentDelalloc:
		return "delalloc"
	default:
		return fmt.Sprintf("ExtentState(%d)", int8(st))
	}
}

// Extent is one mapping [StartOff, StartOff+BlockCount) ->
// StartBlock within a quota file.  Extents are produced by an
// ExtentMapper and never mutated by consumers.
type Extent struct {
	StartOff   xfsprim.FileOff
	StartBlock xfsprim.FsBlock
	BlockCount int64
	State      ExtentState
}

// LastOff is the last logical offset that the extent covers.
func (ext Extent) LastOff() xfsprim.FileOff {
	return ext.StartOff + xfsprim.FileOff(ext.BlockCount) - 1
}

func (ext Extent) IsWritten() bool { return ext.State == ExtentWritten }

// An ExtentMapper resolves logical offsets within a quota file to
// extent mappings.
type ExtentMapper interface {
	// MapExtents returns the mappings overlapping
	// [off, off+count), in ascending StartOff order.  A healthy
	// file yields exactly one mapping per mapped offset, but a
	// corrupt one may yield zero or several; callers must treat
	// those as findings, not as mapper failures.
	MapExtents(ctx context.Context, off xfsprim.FileOff, count int64) ([]Extent, error)
	// AllExtents returns every mapping in the file, in ascending
	// StartOff order.
	AllExtents(ctx context.Context) ([]Extent, error)
}

// extentList is an ExtentMapper over a fixed in-memory extent list.
type extentList struct {
	exts []Extent
}

var _ ExtentMapper = (*extentList)(nil)

// NewExtentList returns an ExtentMapper serving the given mappings.
// The list is copied and sorted by StartOff; overlapping or otherwise
// malformed mappings are preserved as-is so that corrupt layouts can
// be expressed.
func NewExtentList(exts []Extent) ExtentMapper {
	dup := make([]Extent, len(exts))
	copy(dup, exts)
	sort.SliceStable(dup, func(i, j int) bool {
		return dup[i].StartOff < dup[j].StartOff
	})
	return &extentList{exts: dup}
}

// MapExtents implements ExtentMapper.
func (el *extentList) MapExtents(_ context.Context, off xfsprim.FileOff, count int64) ([]Extent, error) {
	end := off + xfsprim.FileOff(count)
	var ret []Extent
	for _, ext := range el.exts {
		if ext.BlockCount <= 0 {
			continue
		}
		if ext.StartOff < end && ext.LastOff() >= off {
			ret = append(ret, ext)
		}
	}
	return ret, nil
}

// AllExtents implements ExtentMapper.
func (el *extentList) AllExtents(context.Context) ([]Extent, error) {
	return el.exts, nil
}
