// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package main

import (
	"os"

	"github.com/datawire/ocibuild/pkg/cliutil"
	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"git.lukeshu.com/xfs-scrub-ng/lib/textui"
	"git.lukeshu.com/xfs-scrub-ng/lib/xfsprim"
)

func init() {
	inspectors = append(inspectors, subcommand{
		Command: cobra.Command{
			Use:   "spew-records",
			Short: "Spew all quota records as parsed",
			Args:  cliutil.WrapPositionalArgs(cobra.NoArgs),
		},
		RunE: func(env *env, cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			spew := spew.NewDefaultConfig()
			spew.DisablePointerAddresses = true
			spew.DisableMethods = true

			for _, typ := range xfsprim.DqTypes() {
				file, ok := env.Reg.Lookup(typ)
				if !ok {
					continue
				}
				iter := file.Store().Iter()
				for {
					rec, err := iter.Next(ctx)
					if err != nil {
						return err
					}
					if rec == nil {
						break
					}
					textui.Fprintf(os.Stdout, "%v/%d = ", typ, rec.ID)
					spew.Dump(rec)
					_, _ = os.Stdout.WriteString("\n")
					rec.Unlock()
				}
			}
			return nil
		},
	})
}
