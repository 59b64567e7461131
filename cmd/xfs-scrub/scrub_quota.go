// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"errors"
	"fmt"
	"os"

	"git.lukeshu.com/go/lowmemjson"
	"github.com/datawire/dlib/dlog"
	"github.com/datawire/ocibuild/pkg/cliutil"
	"github.com/spf13/cobra"

	"git.lukeshu.com/xfs-scrub-ng/lib/textui"
	"git.lukeshu.com/xfs-scrub-ng/lib/xfscheck"
	"git.lukeshu.com/xfs-scrub-ng/lib/xfsprim"
)

// quotaReport is one quota type's scrub outcome, for --report output.
type quotaReport struct {
	Type       xfsprim.DqType
	Skipped    bool
	Corrupt    bool
	Warning    bool
	Incomplete bool
	Findings   []xfscheck.Finding
}

func init() {
	var reportFlag string
	cmd := subcommand{
		Command: cobra.Command{
			Use:   "quota [user|group|project]...",
			Short: "Check the quota records of the requested quota types (default: all)",
			Args:  cliutil.WrapPositionalArgs(cobra.ArbitraryArgs),
		},
		RunE: func(env *env, cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			kinds, err := quotaKinds(args)
			if err != nil {
				return err
			}

			var reports []quotaReport
			for _, kind := range kinds {
				report, err := runQuotaScrub(cmd, env, kind)
				if err != nil {
					return err
				}
				reports = append(reports, report)
			}

			if reportFlag != "" {
				dlog.Infof(ctx, "Writing scrub report to %s...", reportFlag)
				fh, err := os.Create(reportFlag)
				if err != nil {
					return err
				}
				err = writeJSONFile(fh, reports, lowmemjson.ReEncoderConfig{
					Indent:                "\t",
					ForceTrailingNewlines: true,
					CompactIfUnder:        80, //nolint:gomnd // This is what looks nice.
				})
				if _err := fh.Close(); err == nil && _err != nil {
					err = _err
				}
				if err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Command.Flags().StringVar(&reportFlag, "report", "", "also write a JSON report to `report.json`")
	scrubbers = append(scrubbers, cmd)
}

func runQuotaScrub(cmd *cobra.Command, env *env, kind xfscheck.Kind) (quotaReport, error) {
	ctx := cmd.Context()

	sc, err := xfscheck.SetupQuota(ctx, env.Mount, env.Reg, kind)
	if errors.Is(err, xfscheck.ErrNotApplicable) {
		dlog.Infof(ctx, "%v: skipping: %v", kind, err)
		textui.Fprintf(os.Stdout, "%v: skipped (not applicable)\n", kind)
		return quotaReport{Skipped: true}, nil
	}
	if err != nil {
		return quotaReport{}, err
	}
	defer sc.Teardown()

	if err := xfscheck.Quota(ctx, sc); err != nil {
		return quotaReport{}, err
	}

	result := sc.Result()
	verdict := "ok"
	switch {
	case result.Corrupt:
		verdict = "CORRUPT"
	case result.Warning:
		verdict = "suspect"
	}
	if result.Incomplete {
		verdict += " (incomplete)"
	}
	textui.Fprintf(os.Stdout, "%v: %v\n", kind, verdict)
	for _, finding := range result.Findings {
		textui.Fprintf(os.Stdout, "  %v at quota file offset %d\n", finding.Sev, finding.Off)
	}

	typ, _ := xfscheck.QuotaType(kind)
	return quotaReport{
		Type:       typ,
		Corrupt:    result.Corrupt,
		Warning:    result.Warning,
		Incomplete: result.Incomplete,
		Findings:   result.Findings,
	}, nil
}

func quotaKinds(args []string) ([]xfscheck.Kind, error) {
	if len(args) == 0 {
		return []xfscheck.Kind{xfscheck.KindQuotaUser, xfscheck.KindQuotaGroup, xfscheck.KindQuotaProj}, nil
	}
	var ret []xfscheck.Kind
	for _, arg := range args {
		switch arg {
		case "user":
			ret = append(ret, xfscheck.KindQuotaUser)
		case "group":
			ret = append(ret, xfscheck.KindQuotaGroup)
		case "project":
			ret = append(ret, xfscheck.KindQuotaProj)
		default:
			return nil, fmt.Errorf("invalid quota type: %q", arg)
		}
	}
	return ret, nil
}
