// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Package xfscheck implements online consistency checking of
// filesystem metadata while the filesystem stays mounted and in use.
//
// Checks never repair anything; they classify what they see as either
// corruption or warnings, and those classifications are never
// surfaced as errors.  Only genuine operational failures (I/O errors,
// resource exhaustion) make a check return a non-nil error.
package xfscheck

import (
	"context"
	"errors"
	"fmt"

	"github.com/datawire/dlib/dlog"

	"git.lukeshu.com/xfs-scrub-ng/lib/quotafile"
	"git.lukeshu.com/xfs-scrub-ng/lib/xfsmount"
	"git.lukeshu.com/xfs-scrub-ng/lib/xfsprim"
)

// Kind is the externally-requested scrub type code.
type Kind int8

const (
	KindQuotaUser Kind = iota + 1
	KindQuotaGroup
	KindQuotaProj
)

var _ fmt.Stringer = KindQuotaUser

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindQuotaUser:
		return "quota-user"
	case KindQuotaGroup:
		return "quota-group"
	case KindQuotaProj:
		return "quota-project"
	default:
		return fmt.Sprintf("Kind(%d)", int8(k))
	}
}

var (
	// ErrNotApplicable means the requested check does not apply
	// to this filesystem (the feature is disabled); it is a clean
	// skip, not a failure.
	ErrNotApplicable = errors.New("scrub type not applicable to this filesystem")
	// ErrInvalidKind means the scrub type code is outside the
	// known set.
	ErrInvalidKind = errors.New("invalid scrub type")
)

// errStopScan is an internal sentinel: a check found corruption and
// there is no point continuing, but the scan as a whole still
// succeeds.  It must never escape to callers.
var errStopScan = errors.New("should not escape: stop scanning")

// Severity classifies a finding.
type Severity int8

const (
	SevWarning Severity = iota + 1
	SevCorrupt
)

var _ fmt.Stringer = SevCorrupt

// String implements fmt.Stringer.
func (sev Severity) String() string {
	switch sev {
	case SevWarning:
		return "warning"
	case SevCorrupt:
		return "corrupt"
	default:
		return fmt.Sprintf("Severity(%d)", int8(sev))
	}
}

// A Finding pins one flagged condition to the logical chunk offset
// that it implicates.
type Finding struct {
	Sev Severity
	Off xfsprim.FileOff
}

// Result is what a completed scrub reports.  Corrupt and Warning are
// sticky; Incomplete means the scan was cancelled before it could
// finish, with whatever flags were already set preserved.
type Result struct {
	Corrupt    bool
	Warning    bool
	Incomplete bool
	Findings   []Finding
}

type lockMode int8

const (
	lockNone lockMode = iota
	lockShared
	lockExcl
)

// Scrub is the context for one scrub invocation.
type Scrub struct {
	Mount *xfsmount.Mount
	File  *quotafile.File
	Iter  quotafile.RecordIterator
	Forks ForkValidator

	regionLock lockMode
	res        Result
}

// Result returns the accumulated flags and findings.
func (sc *Scrub) Result() Result { return sc.res }

// FileCorrupt marks the quota file corrupt at the given logical chunk
// offset.
func (sc *Scrub) FileCorrupt(ctx context.Context, off xfsprim.FileOff) {
	sc.res.Corrupt = true
	sc.res.Findings = append(sc.res.Findings, Finding{Sev: SevCorrupt, Off: off})
	dlog.Debugf(ctx, "corruption at quota file offset %d", off)
}

// FileWarn flags the given logical chunk offset for administrator
// review.
func (sc *Scrub) FileWarn(ctx context.Context, off xfsprim.FileOff) {
	sc.res.Warning = true
	sc.res.Findings = append(sc.res.Findings, Finding{Sev: SevWarning, Off: off})
	dlog.Debugf(ctx, "warning at quota file offset %d", off)
}

// shouldTerminate polls for cooperative cancellation.  A pending
// cancellation marks the result incomplete; already-set flags are
// preserved and no further checks run.
func (sc *Scrub) shouldTerminate(ctx context.Context) bool {
	if ctx.Err() != nil {
		sc.res.Incomplete = true
		return true
	}
	return false
}

func (sc *Scrub) lockRegion(mode lockMode) {
	if sc.regionLock != lockNone {
		panic(fmt.Errorf("should not happen: region lock already held (mode=%d)", sc.regionLock))
	}
	switch mode {
	case lockShared:
		sc.File.LockShared()
	case lockExcl:
		sc.File.LockExcl()
	default:
		panic(fmt.Errorf("should not happen: unexpected lock mode %d", mode))
	}
	sc.regionLock = mode
}

func (sc *Scrub) unlockRegion() {
	switch sc.regionLock {
	case lockShared:
		sc.File.UnlockShared()
	case lockExcl:
		sc.File.UnlockExcl()
	case lockNone:
		return
	}
	sc.regionLock = lockNone
}

// Teardown releases anything the scrub still holds.  It is safe to
// call on every exit path, including after a successful run.
func (sc *Scrub) Teardown() {
	sc.unlockRegion()
}
