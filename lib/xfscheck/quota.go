// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package xfscheck

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/datawire/dlib/dlog"

	"git.lukeshu.com/xfs-scrub-ng/lib/quotafile"
	"git.lukeshu.com/xfs-scrub-ng/lib/textui"
	"git.lukeshu.com/xfs-scrub-ng/lib/xfsmount"
	"git.lukeshu.com/xfs-scrub-ng/lib/xfsprim"
)

// QuotaType converts a scrub type code to a quota type.
func QuotaType(kind Kind) (xfsprim.DqType, error) {
	switch kind {
	case KindQuotaUser:
		return xfsprim.DqTypeUser, nil
	case KindQuotaGroup:
		return xfsprim.DqTypeGroup, nil
	case KindQuotaProj:
		return xfsprim.DqTypeProj, nil
	default:
		return 0, fmt.Errorf("%w: %v", ErrInvalidKind, kind)
	}
}

// SetupQuota gets us ready to scrub a quota file: it checks that
// quota tracking applies at all, resolves the special file for the
// requested type, and takes the region lock exclusively.  On success
// the caller owns the returned Scrub and must eventually call
// Teardown on it.
func SetupQuota(ctx context.Context, mount *xfsmount.Mount, reg *quotafile.Registry, kind Kind) (*Scrub, error) {
	typ, err := QuotaType(kind)
	if err != nil {
		return nil, err
	}
	if !mount.QuotaOn(typ) {
		return nil, fmt.Errorf("%w: %v quota is off", ErrNotApplicable, typ)
	}
	file, ok := reg.Lookup(typ)
	if !ok {
		return nil, fmt.Errorf("%v quota is on but has no quota file", typ)
	}

	sc := &Scrub{
		Mount: mount,
		File:  file,
		Iter:  file.Store().Iter(),
		Forks: BasicForkValidator{},
	}
	sc.lockRegion(lockExcl)
	return sc, nil
}

// quotaScan carries the cross-record state of one quota scrub.
type quotaScan struct {
	sc     *Scrub
	lastID xfsprim.DqID
}

// Quota scrubs all of a quota type's records.  The Scrub must have
// come from SetupQuota, so the region lock is held exclusively on
// entry; Quota always drops it before returning.
//
// Corruption and warnings are reported via sc.Result(), never as an
// error; a non-nil error is an operational failure.
func Quota(ctx context.Context, sc *Scrub) error {
	ctx = dlog.WithField(ctx, "scrub.quota", sc.File.Type())

	// Look for problem extents.  If the file's own shape is
	// untrustworthy there is no point validating records against
	// it.
	err := sc.quotaFileExtents(ctx)
	if err != nil || sc.res.Corrupt {
		sc.unlockRegion()
		return err
	}

	// Record validation takes the region lock per record, so the
	// exclusive hold from setup has to go.
	sc.unlockRegion()

	scan := quotaScan{sc: sc}
	progress := textui.NewProgress[quotaScanStats](ctx, dlog.LogLevelInfo, textui.Tunable(1*time.Second))
	stats := quotaScanStats{}
	for {
		var rec *quotafile.Record
		rec, err = sc.Iter.Next(ctx)
		if err != nil || rec == nil {
			break
		}
		err = scan.record(ctx, rec)
		rec.Unlock()
		if err != nil {
			break
		}
		stats.Records++
		progress.Set(stats)
	}
	progress.Done()

	// Finding corruption stops the scan but is not a failure of
	// the scan.
	if errors.Is(err, errStopScan) {
		err = nil
	}
	if err != nil {
		return fmt.Errorf("quota %v: offset %d: %w",
			sc.File.Type(), sc.Mount.ChunkOff(scan.lastID), err)
	}
	return nil
}

type quotaScanStats struct {
	Records int
}

var _ fmt.Stringer = quotaScanStats{}

// String implements fmt.Stringer.
func (s quotaScanStats) String() string {
	return textui.Sprintf("scanned %d records", s.Records)
}

// quotaFileExtents validates the quota file's own extent list.  The
// caller must hold the region lock exclusively.
func (sc *Scrub) quotaFileExtents(ctx context.Context) error {
	// Invoke the generic fork validator first.
	if err := sc.Forks.CheckFork(ctx, sc); err != nil || sc.res.Corrupt {
		return err
	}

	// Check for problems that apply only to quota files: nothing
	// may be delalloc or unwritten, and nothing may sit above the
	// chunk that the highest representable identity maps to.
	maxOff := sc.Mount.MaxChunkOff()
	exts, err := sc.File.AllExtents(ctx)
	if err != nil {
		return err
	}
	for _, ext := range exts {
		if sc.shouldTerminate(ctx) {
			break
		}
		if !ext.IsWritten() || ext.StartOff > maxOff || ext.LastOff() > maxOff {
			sc.FileCorrupt(ctx, ext.StartOff)
			break
		}
	}
	return nil
}

// record runs all per-record checks on one locked record.  The record
// is delivered locked by the iterator; the caller unlocks it.
func (scan *quotaScan) record(ctx context.Context, rec *quotafile.Record) error {
	sc := scan.sc

	if sc.shouldTerminate(ctx) {
		return errStopScan
	}

	// We want to validate the extent mapping for the storage
	// backing this record, which needs the region lock.  The
	// canonical order is region lock first, then record lock, but
	// the iterator gave us a locked record; drop the record lock
	// to take the region lock.  Every field we check below is
	// read after the record lock is re-taken, so the window where
	// the record is unlocked cannot feed us stale values.
	rec.Unlock()
	sc.lockRegion(lockShared)
	rec.Lock()

	// Except for the default record, the record we got must have
	// a higher id than the previous one.
	off := sc.Mount.ChunkOff(rec.ID)
	if rec.ID != 0 && rec.ID <= scan.lastID {
		sc.FileCorrupt(ctx, off)
	}
	scan.lastID = rec.ID

	err := sc.recordBmap(ctx, rec, off)
	sc.unlockRegion()
	if err != nil {
		return err
	}

	sc.recordLimits(ctx, rec, off)

	if sc.res.Corrupt {
		return errStopScan
	}
	return nil
}

// recordBmap checks that there is exactly one written extent backing
// this record, at the address the record says.  The caller must hold
// the region lock (shared is enough) and the record lock.
func (sc *Scrub) recordBmap(ctx context.Context, rec *quotafile.Record, off xfsprim.FileOff) error {
	if !sc.Mount.ValidFileOff(off) {
		sc.FileCorrupt(ctx, off)
		return nil
	}

	if rec.FileOff != off {
		sc.FileCorrupt(ctx, off)
		return nil
	}

	exts, err := sc.File.MapExtents(ctx, off, 1)
	if err != nil {
		return err
	}
	if len(exts) != 1 {
		sc.FileCorrupt(ctx, off)
		return nil
	}

	ext := exts[0]
	if !sc.Mount.ValidFsBlock(ext.StartBlock) {
		sc.FileCorrupt(ctx, off)
	}
	if sc.Mount.FsbToDaddr(ext.StartBlock) != rec.BlockNo {
		sc.FileCorrupt(ctx, off)
	}
	if !ext.IsWritten() {
		sc.FileCorrupt(ctx, off)
	}
	return nil
}

// recordLimits checks the accounting fields of one record against
// each other and against the filesystem's capacities.  The caller
// must hold the record lock.
func (sc *Scrub) recordLimits(ctx context.Context, rec *quotafile.Record, off xfsprim.FileOff) {
	caps := sc.Mount.Capacities()

	classCap := func(class quotafile.ResourceClass) uint64 {
		switch class {
		case quotafile.ClassBlock:
			return caps.DBlocks
		case quotafile.ClassInode:
			return caps.MaxICount
		case quotafile.ClassRTBlock:
			return caps.RBlocks
		default:
			panic(fmt.Errorf("should not happen: unexpected ResourceClass=%v", class))
		}
	}

	for _, class := range quotafile.Classes() {
		res := rec.Res(class)

		// Warn if the hard limit is larger than the
		// filesystem.  Administrators can do this, though in
		// production it seems suspect, which is why we flag
		// it for review.  The default record's limits are not
		// real administrative limits, so it is exempt.
		if rec.ID != 0 && res.HardLimit > classCap(class) {
			sc.FileWarn(ctx, off)
		}

		// Complain about corruption if the soft limit is
		// greater than the hard limit.
		if res.SoftLimit != 0 && res.HardLimit != 0 && res.SoftLimit > res.HardLimit {
			sc.FileCorrupt(ctx, off)
		}
	}

	// Check that usage doesn't exceed physical limits.  On a
	// reflink filesystem shared extents legitimately let apparent
	// usage exceed physical space, so it only rates a warning
	// there.
	if rec.Blk.Count > caps.DBlocks {
		if caps.Reflink {
			sc.FileWarn(ctx, off)
		} else {
			sc.FileCorrupt(ctx, off)
		}
	}
	if rec.RTB.Count > caps.RBlocks {
		if caps.Reflink {
			sc.FileWarn(ctx, off)
		} else {
			sc.FileCorrupt(ctx, off)
		}
	}
	// Inode accounting has no sharing slack; compare against the
	// live inode count, not the nominal capacity.
	if rec.Ino.Count > caps.ICount {
		sc.FileCorrupt(ctx, off)
	}

	// Usage can exceed the hard limits if the admin lowered a
	// limit below the existing usage.  Flag it for review; the
	// default record is again exempt.
	if rec.ID != 0 {
		for _, class := range quotafile.Classes() {
			res := rec.Res(class)
			if res.HardLimit != 0 && res.Count > res.HardLimit {
				sc.FileWarn(ctx, off)
			}
		}
	}

	for _, class := range quotafile.Classes() {
		sc.recordTimer(ctx, off, rec.Res(class))
	}
}

// recordTimer complains if a quota timer is incorrectly set: the
// timer must be running exactly when usage exceeds a nonzero limit.
func (sc *Scrub) recordTimer(ctx context.Context, off xfsprim.FileOff, res *quotafile.Resource) {
	over := (res.SoftLimit != 0 && res.Count > res.SoftLimit) ||
		(res.HardLimit != 0 && res.Count > res.HardLimit)
	if over != (res.Timer != 0) {
		sc.FileCorrupt(ctx, off)
	}
}
