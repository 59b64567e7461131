// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package xfsprim implements the primitive types that the other
// xfs-scrub-ng packages are built on.
package xfsprim

import (
	"fmt"
	"math"
)

// DqID is the identity (user ID, group ID, or project ID) that a
// quota record is keyed by.  ID 0 is reserved for the default record,
// which supplies fallback limits and is not an ordinary identity.
type DqID uint32

const DqIDMax DqID = math.MaxUint32

// DqType identifies which of the independently-tracked quota
// families a record or quota file belongs to.
type DqType int8

const (
	DqTypeUser DqType = iota + 1
	DqTypeGroup
	DqTypeProj
)

var _ fmt.Stringer = DqTypeUser

// String implements fmt.Stringer.
func (typ DqType) String() string {
	switch typ {
	case DqTypeUser:
		return "user"
	case DqTypeGroup:
		return "group"
	case DqTypeProj:
		return "project"
	default:
		return fmt.Sprintf("DqType(%d)", int8(typ))
	}
}

// DqTypes lists the valid DqTypes, in on-disk order.
func DqTypes() []DqType {
	return []DqType{DqTypeUser, DqTypeGroup, DqTypeProj}
}
