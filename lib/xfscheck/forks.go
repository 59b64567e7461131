// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package xfscheck

import (
	"context"

	"git.lukeshu.com/xfs-scrub-ng/lib/quotafile"
)

// A ForkValidator performs generic structural validation of a
// metadata file's storage fork, before any file-specific checks run.
// Implementations report findings through the Scrub and return an
// error only for operational failures.
type ForkValidator interface {
	CheckFork(ctx context.Context, sc *Scrub) error
}

// BasicForkValidator checks the structural shape that every metadata
// fork must have: non-empty mappings at non-negative offsets, in
// ascending order, with no two mappings overlapping, and no mapping
// in an unknown allocation state.
type BasicForkValidator struct{}

var _ ForkValidator = BasicForkValidator{}

// CheckFork implements ForkValidator.
func (BasicForkValidator) CheckFork(ctx context.Context, sc *Scrub) error {
	exts, err := sc.File.AllExtents(ctx)
	if err != nil {
		return err
	}
	prevEnd := int64(-1)
	for _, ext := range exts {
		if ext.BlockCount <= 0 || ext.StartOff < 0 {
			sc.FileCorrupt(ctx, ext.StartOff)
			return nil
		}
		switch ext.State {
		case quotafile.ExtentHole, quotafile.ExtentWritten, quotafile.ExtentUnwritten, quotafile.ExtentDelalloc:
			// valid state tags
		default:
			sc.FileCorrupt(ctx, ext.StartOff)
			return nil
		}
		if int64(ext.StartOff) <= prevEnd {
			sc.FileCorrupt(ctx, ext.StartOff)
			return nil
		}
		prevEnd = int64(ext.LastOff())
	}
	return nil
}
