// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package xfsprim_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"git.lukeshu.com/xfs-scrub-ng/lib/xfsprim"
)

func TestAddrFormat(t *testing.T) {
	t.Parallel()
	type TestCase struct {
		InputAddr xfsprim.DAddr
		InputFmt  string
		Output    string
	}
	addr := xfsprim.DAddr(0x1f4d20)
	testcases := map[string]TestCase{
		"v":   {InputAddr: addr, InputFmt: "%v", Output: "0x00000000001f4d20"},
		"s":   {InputAddr: addr, InputFmt: "%s", Output: "0x00000000001f4d20"},
		"q":   {InputAddr: addr, InputFmt: "%q", Output: `"0x00000000001f4d20"`},
		"x":   {InputAddr: addr, InputFmt: "%x", Output: "1f4d20"},
		"d":   {InputAddr: addr, InputFmt: "%d", Output: "2051360"},
		"neg": {InputAddr: -1, InputFmt: "%v", Output: "-0x000000000000001"},
	}
	for tcName, tc := range testcases {
		tc := tc
		t.Run(tcName, func(t *testing.T) {
			t.Parallel()
			actual := fmt.Sprintf(tc.InputFmt, tc.InputAddr)
			assert.Equal(t, tc.Output, actual)
		})
	}
}

func TestDqTypeFormat(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "user", xfsprim.DqTypeUser.String())
	assert.Equal(t, "group", xfsprim.DqTypeGroup.String())
	assert.Equal(t, "project", xfsprim.DqTypeProj.String())
	assert.Equal(t, "DqType(9)", xfsprim.DqType(9).String())
}
