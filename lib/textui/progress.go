// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package textui

import (
	"context"
	"fmt"
	"time"

	"github.com/datawire/dlib/dlog"
)

// Stats is a snapshot of how far along an operation is.
type Stats interface {
	comparable
	fmt.Stringer
}

// Progress logs a Stats line at most once per interval, plus a final
// line when Done is called.  Unlike a plain ticker it never logs a
// stale value, because values only flow through Set.
//
// Progress methods must all be called from the same goroutine.
type Progress[T Stats] struct {
	ctx      context.Context //nolint:containedctx // Not used for cancellation, only to carry the logger.
	lvl      dlog.LogLevel
	interval time.Duration

	has     bool
	cur     T
	lastVal T
	lastAt  time.Time
}

func NewProgress[T Stats](ctx context.Context, lvl dlog.LogLevel, interval time.Duration) *Progress[T] {
	return &Progress[T]{
		ctx:      ctx,
		lvl:      lvl,
		interval: interval,
	}
}

func (p *Progress[T]) Set(val T) {
	p.cur = val
	p.has = true
	if now := time.Now(); p.lastAt.IsZero() || now.Sub(p.lastAt) >= p.interval {
		p.flush(now)
	}
}

func (p *Progress[T]) Done() {
	if p.has {
		p.flush(time.Now())
	}
}

func (p *Progress[T]) flush(now time.Time) {
	if p.cur == p.lastVal && !p.lastAt.IsZero() {
		return
	}
	dlog.Log(p.ctx, p.lvl, p.cur.String())
	p.lastVal = p.cur
	p.lastAt = now
}
