// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package quotafile

import (
	"fmt"

	"git.lukeshu.com/xfs-scrub-ng/lib/xfsmount"
	"git.lukeshu.com/xfs-scrub-ng/lib/xfsprim"
)

// Snapshot is the JSON-loadable description of a filesystem's quota
// state, used to exercise the scrubbers without a live kernel.
type Snapshot struct {
	Geometry   xfsmount.Geometry
	Capacities xfsmount.Capacities
	QuotaOn    []xfsprim.DqType
	Files      []FileSnapshot
}

// FileSnapshot describes one quota file: its records and the extent
// mappings backing them, exactly as they would be observed on disk
// (including any corruption to be detected).
type FileSnapshot struct {
	Type    xfsprim.DqType
	Records []Record
	Extents []Extent
}

// Build constructs the Mount and Registry described by the snapshot.
func (snap *Snapshot) Build() (*xfsmount.Mount, *Registry, error) {
	qflags := xfsmount.QuotaFlags(0)
	if len(snap.QuotaOn) > 0 {
		qflags |= xfsmount.QuotaAccounting
	}
	for _, typ := range snap.QuotaOn {
		switch typ {
		case xfsprim.DqTypeUser:
			qflags |= xfsmount.QuotaUser
		case xfsprim.DqTypeGroup:
			qflags |= xfsmount.QuotaGroup
		case xfsprim.DqTypeProj:
			qflags |= xfsmount.QuotaProj
		default:
			return nil, nil, fmt.Errorf("quotafile: snapshot: invalid quota type %v", typ)
		}
	}

	mount, err := xfsmount.New(snap.Geometry, snap.Capacities, qflags)
	if err != nil {
		return nil, nil, err
	}

	reg := new(Registry)
	for i := range snap.Files {
		fileSnap := &snap.Files[i]
		store := NewStore()
		for j := range fileSnap.Records {
			// copy field-by-field; the snapshot stays pristine,
			// and the record lock is not copyable
			src := &fileSnap.Records[j]
			store.Insert(&Record{
				ID:      src.ID,
				Blk:     src.Blk,
				Ino:     src.Ino,
				RTB:     src.RTB,
				FileOff: src.FileOff,
				BlockNo: src.BlockNo,
			})
		}
		reg.Install(NewFile(mount, fileSnap.Type, store, NewExtentList(fileSnap.Extents)))
	}
	return mount, reg, nil
}
