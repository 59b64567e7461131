// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package xfsmount

import (
	"sync/atomic"
)

const counterShards = 16

// A ShardedCounter is an approximate aggregate counter that many
// writers may update concurrently without contending on a single
// cache line.  Sum walks the shards, so a concurrent-with-updates Sum
// is only a reasonably fresh snapshot, never an instantaneous truth;
// that is all the scrubbers need.
//
// The zero ShardedCounter is ready to use.
type ShardedCounter struct {
	shards [counterShards]counterShard
	next   uint32
}

type counterShard struct {
	n int64
	_ [7]int64 // keep shards on separate cache lines
}

// Add adds delta to the counter.
func (c *ShardedCounter) Add(delta int64) {
	shard := atomic.AddUint32(&c.next, 1) % counterShards
	atomic.AddInt64(&c.shards[shard].n, delta)
}

// Sum returns the current total across all shards.
func (c *ShardedCounter) Sum() int64 {
	var total int64
	for i := range c.shards {
		total += atomic.LoadInt64(&c.shards[i].n)
	}
	return total
}
