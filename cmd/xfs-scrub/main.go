// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

// Command xfs-scrub checks the metadata of a live filesystem, given a
// snapshot of its state.  It reports corruption and suspect values;
// it never repairs anything.
package main

import (
	"context"
	"os"

	"github.com/datawire/dlib/dgroup"
	"github.com/datawire/dlib/dlog"
	"github.com/datawire/ocibuild/pkg/cliutil"
	"github.com/spf13/cobra"

	"git.lukeshu.com/xfs-scrub-ng/lib/quotafile"
	"git.lukeshu.com/xfs-scrub-ng/lib/textui"
	"git.lukeshu.com/xfs-scrub-ng/lib/xfsmount"
)

// env is what every subcommand runs against: the mount state and the
// quota files resolved from the loaded snapshot.
type env struct {
	Mount *xfsmount.Mount
	Reg   *quotafile.Registry
}

type subcommand struct {
	cobra.Command
	RunE func(*env, *cobra.Command, []string) error
}

var inspectors, scrubbers []subcommand

func main() {
	logLevelFlag := textui.LogLevelFlag{
		Level: dlog.LogLevelInfo,
	}
	var fsFlag string

	argparser := &cobra.Command{
		Use:   "xfs-scrub {[flags]|SUBCOMMAND}",
		Short: "Check (but don't repair) a live filesystem's metadata",

		Args: cliutil.WrapPositionalArgs(cliutil.OnlySubcommands),
		RunE: cliutil.RunSubcommands,

		SilenceErrors: true, // main() will handle this after .ExecuteContext() returns
		SilenceUsage:  true, // our FlagErrorFunc will handle it

		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}
	argparser.SetFlagErrorFunc(cliutil.FlagErrorFunc)
	argparser.SetHelpTemplate(cliutil.HelpTemplate)
	argparser.PersistentFlags().Var(&logLevelFlag, "verbosity", "set the verbosity")
	argparser.PersistentFlags().StringVar(&fsFlag, "fs", "", "load filesystem state from JSON file `snapshot.json`")
	if err := argparser.MarkPersistentFlagFilename("fs"); err != nil {
		panic(err)
	}
	if err := argparser.MarkPersistentFlagRequired("fs"); err != nil {
		panic(err)
	}

	argparserInspect := &cobra.Command{
		Use:   "inspect {[flags]|SUBCOMMAND}",
		Short: "Dump filesystem state without checking it",

		Args: cliutil.WrapPositionalArgs(cliutil.OnlySubcommands),
		RunE: cliutil.RunSubcommands,
	}
	argparser.AddCommand(argparserInspect)

	argparserScrub := &cobra.Command{
		Use:   "scrub {[flags]|SUBCOMMAND}",
		Short: "Check filesystem metadata",

		Args: cliutil.WrapPositionalArgs(cliutil.OnlySubcommands),
		RunE: cliutil.RunSubcommands,
	}
	argparser.AddCommand(argparserScrub)

	for _, cmdgrp := range []struct {
		parent   *cobra.Command
		children []subcommand
	}{
		{argparserInspect, inspectors},
		{argparserScrub, scrubbers},
	} {
		for _, child := range cmdgrp.children {
			cmd := child.Command
			runE := child.RunE
			cmd.RunE = func(cmd *cobra.Command, args []string) error {
				ctx := cmd.Context()
				logger := textui.NewLogger(os.Stderr, logLevelFlag.Level)
				ctx = dlog.WithLogger(ctx, logger)
				dlog.SetFallbackLogger(logger.WithField("xfs-scrub.THIS_IS_A_BUG", true))

				grp := dgroup.NewGroup(ctx, dgroup.GroupConfig{
					EnableSignalHandling: true,
				})
				grp.Go("main", func(ctx context.Context) error {
					snap, err := readJSONFile[quotafile.Snapshot](ctx, fsFlag)
					if err != nil {
						return err
					}
					mount, reg, err := snap.Build()
					if err != nil {
						return err
					}

					cmd.SetContext(ctx)
					return runE(&env{Mount: mount, Reg: reg}, cmd, args)
				})
				return grp.Wait()
			}
			cmdgrp.parent.AddCommand(&cmd)
		}
	}

	if err := argparser.ExecuteContext(context.Background()); err != nil {
		textui.Fprintf(os.Stderr, "%v: error: %v\n", argparser.CommandPath(), err)
		os.Exit(1)
	}
}
