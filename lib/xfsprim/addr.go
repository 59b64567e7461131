// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package xfsprim

import (
	"fmt"

	"git.lukeshu.com/xfs-scrub-ng/lib/fmtutil"
)

type (
	// FileOff is a logical offset within a file, in units of
	// filesystem blocks.
	FileOff int64
	// FsBlock is a physical filesystem block number.
	FsBlock int64
	// DAddr is a physical disk address, in units of 512-byte
	// sectors.
	DAddr int64
)

// MaxFileOff is the largest logical offset that the on-disk extent
// format can express; the startoff field is 54 bits wide.
const MaxFileOff FileOff = (1 << 54) - 1

func formatAddr(addr int64, f fmt.State, verb rune) {
	switch verb {
	case 'v', 's', 'q':
		str := fmt.Sprintf("%#016x", addr)
		fmt.Fprintf(f, fmtutil.FmtStateString(f, verb), str)
	default:
		fmt.Fprintf(f, fmtutil.FmtStateString(f, verb), addr)
	}
}

func (a FsBlock) Format(f fmt.State, verb rune) { formatAddr(int64(a), f, verb) }
func (a DAddr) Format(f fmt.State, verb rune)   { formatAddr(int64(a), f, verb) }
