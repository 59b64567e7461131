// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package quotafile

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru"

	"git.lukeshu.com/xfs-scrub-ng/lib/textui"
	"git.lukeshu.com/xfs-scrub-ng/lib/xfsmount"
	"git.lukeshu.com/xfs-scrub-ng/lib/xfsprim"
)

var bmapCacheSize = textui.Tunable(128)

// File is one quota special file: the record store for one DqType
// plus the extent mappings backing it.
//
// The region lock guards the file's storage mapping as a whole.  The
// canonical lock order is region lock before record lock; see the
// scrubber for the one documented deviation.
type File struct {
	mount *xfsmount.Mount
	typ   xfsprim.DqType
	store *Store
	bmap  ExtentMapper

	region sync.RWMutex
	cache  *lru.ARCCache // singleton mapping lookups, keyed by FileOff
}

func NewFile(mount *xfsmount.Mount, typ xfsprim.DqType, store *Store, bmap ExtentMapper) *File {
	cache, _ := lru.NewARC(bmapCacheSize)
	return &File{
		mount: mount,
		typ:   typ,
		store: store,
		bmap:  bmap,
		cache: cache,
	}
}

func (f *File) Mount() *xfsmount.Mount { return f.mount }
func (f *File) Type() xfsprim.DqType   { return f.typ }
func (f *File) Store() *Store          { return f.store }

func (f *File) LockExcl()     { f.region.Lock() }
func (f *File) UnlockExcl()   { f.region.Unlock() }
func (f *File) LockShared()   { f.region.RLock() }
func (f *File) UnlockShared() { f.region.RUnlock() }

// MapExtents resolves the mappings overlapping [off, off+count).
// Single-block lookups are served from an LRU cache; the cache only
// holds results observed under the region lock, which the caller must
// hold in at least shared mode.
func (f *File) MapExtents(ctx context.Context, off xfsprim.FileOff, count int64) ([]Extent, error) {
	if count != 1 {
		return f.bmap.MapExtents(ctx, off, count)
	}
	if cached, ok := f.cache.Get(off); ok {
		//nolint:forcetypeassert // Typed wrapper around untyped lib.
		return cached.([]Extent), nil
	}
	exts, err := f.bmap.MapExtents(ctx, off, count)
	if err != nil {
		return nil, err
	}
	f.cache.Add(off, exts)
	return exts, nil
}

// AllExtents returns the file's full extent list.  The caller must
// hold the region lock.
func (f *File) AllExtents(ctx context.Context) ([]Extent, error) {
	return f.bmap.AllExtents(ctx)
}

// InvalidateMappings drops the mapping cache; callers that change the
// file's extent layout must call this while holding the region lock
// exclusively.
func (f *File) InvalidateMappings() {
	f.cache.Purge()
}
