// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package quotafile

import (
	"git.lukeshu.com/go/typedsync"

	"git.lukeshu.com/xfs-scrub-ng/lib/xfsprim"
)

// Registry maps each quota type to its special file.
//
// The zero Registry is ready to use.
type Registry struct {
	files typedsync.Map[xfsprim.DqType, *File]
}

func (reg *Registry) Install(f *File) {
	reg.files.Store(f.Type(), f)
}

func (reg *Registry) Lookup(typ xfsprim.DqType) (*File, bool) {
	return reg.files.Load(typ)
}

func (reg *Registry) Range(fn func(typ xfsprim.DqType, f *File) bool) {
	reg.files.Range(fn)
}
