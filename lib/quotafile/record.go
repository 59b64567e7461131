// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package quotafile implements the quota special file: the
// per-identity records it stores, the extent mappings that back them,
// and the two lock domains (the region lock over the file and the
// per-record lock) that guard them.
package quotafile

import (
	"fmt"
	"sync"

	"git.lukeshu.com/xfs-scrub-ng/lib/xfsprim"
)

// ResourceClass is one of the independently-tracked usage categories
// within a quota record.
type ResourceClass int8

const (
	ClassBlock ResourceClass = iota
	ClassInode
	ClassRTBlock
)

var _ fmt.Stringer = ClassBlock

// String implements fmt.Stringer.
func (class ResourceClass) String() string {
	switch class {
	case ClassBlock:
		return "blk"
	case ClassInode:
		return "ino"
	case ClassRTBlock:
		return "rtb"
	default:
		return fmt.Sprintf("ResourceClass(%d)", int8(class))
	}
}

// Classes lists the resource classes in validation order.
func Classes() []ResourceClass {
	return []ResourceClass{ClassBlock, ClassInode, ClassRTBlock}
}

// Resource is the accounting state of one ResourceClass within a
// record.  A zero SoftLimit or HardLimit means "no limit".  Timer is
// the grace-period expiry (Unix seconds); it must be nonzero exactly
// when usage exceeds a nonzero limit.
type Resource struct {
	Count     uint64
	SoftLimit uint64
	HardLimit uint64
	Timer     int64
}

// Record is the in-memory form of one quota record.  FileOff and
// BlockNo are cached copies of where the record lives within the
// quota file and on disk; the scrubbers cross-check them against the
// actual extent mappings.
//
// A Record's fields (other than ID) must only be accessed while
// holding the record lock.
type Record struct {
	ID xfsprim.DqID

	Blk Resource
	Ino Resource
	RTB Resource

	FileOff xfsprim.FileOff
	BlockNo xfsprim.DAddr

	mu sync.Mutex
}

func (rec *Record) Lock()         { rec.mu.Lock() }
func (rec *Record) TryLock() bool { return rec.mu.TryLock() }
func (rec *Record) Unlock()       { rec.mu.Unlock() }

// Res returns the Resource for the given class.
func (rec *Record) Res(class ResourceClass) *Resource {
	switch class {
	case ClassBlock:
		return &rec.Blk
	case ClassInode:
		return &rec.Ino
	case ClassRTBlock:
		return &rec.RTB
	default:
		panic(fmt.Errorf("should not happen: unexpected ResourceClass=%v", class))
	}
}
