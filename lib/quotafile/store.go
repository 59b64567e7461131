// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package quotafile

import (
	"context"
	"sync"

	"github.com/google/btree"

	"git.lukeshu.com/xfs-scrub-ng/lib/xfsprim"
)

// A RecordIterator yields records in non-decreasing ID order, one at
// a time, each already holding its record lock.  Next returns
// (nil, nil) at end of sequence.  The caller must Unlock each
// returned record exactly once.
type RecordIterator interface {
	Next(ctx context.Context) (*Record, error)
}

type recordItem struct {
	rec *Record
}

// Less implements btree.Item.
func (a recordItem) Less(b btree.Item) bool {
	//nolint:forcetypeassert // The tree only ever holds recordItems.
	return a.rec.ID < b.(recordItem).rec.ID
}

// Store is an ID-ordered in-memory quota record store.
type Store struct {
	mu   sync.RWMutex
	tree *btree.BTree
}

func NewStore() *Store {
	return &Store{
		tree: btree.New(32),
	}
}

// Insert adds a record, replacing any existing record with the same
// ID.
func (s *Store) Insert(rec *Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.ReplaceOrInsert(recordItem{rec: rec})
}

func (s *Store) Lookup(id xfsprim.DqID) (*Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item := s.tree.Get(recordItem{rec: &Record{ID: id}})
	if item == nil {
		return nil, false
	}
	//nolint:forcetypeassert // The tree only ever holds recordItems.
	return item.(recordItem).rec, true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}

// firstFrom returns the record with the lowest ID >= id, or nil.
func (s *Store) firstFrom(id xfsprim.DqID) *Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ret *Record
	s.tree.AscendGreaterOrEqual(recordItem{rec: &Record{ID: id}}, func(item btree.Item) bool {
		//nolint:forcetypeassert // The tree only ever holds recordItems.
		ret = item.(recordItem).rec
		return false
	})
	return ret
}

// Iter returns a RecordIterator over the store, ascending by ID.
func (s *Store) Iter() RecordIterator {
	return &storeIter{store: s}
}

type storeIter struct {
	store *Store
	pos   xfsprim.DqID
	done  bool
}

var _ RecordIterator = (*storeIter)(nil)

// Next implements RecordIterator.
func (it *storeIter) Next(_ context.Context) (*Record, error) {
	if it.done {
		return nil, nil
	}
	rec := it.store.firstFrom(it.pos)
	if rec == nil {
		it.done = true
		return nil, nil
	}
	if rec.ID == xfsprim.DqIDMax {
		it.done = true
	} else {
		it.pos = rec.ID + 1
	}
	rec.Lock()
	return rec, nil
}
