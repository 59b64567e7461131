// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package textui_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/datawire/dlib/dlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.lukeshu.com/xfs-scrub-ng/lib/textui"
)

func TestLogger(t *testing.T) {
	t.Parallel()
	var out strings.Builder
	logger := textui.NewLogger(&out, dlog.LogLevelInfo)
	ctx := dlog.WithLogger(context.Background(), logger)

	dlog.Debug(ctx, "quiet")
	dlog.Info(ctx, "loud")

	assert.NotContains(t, out.String(), "quiet")
	assert.Contains(t, out.String(), "level=info")
	assert.Contains(t, out.String(), "loud")
}

func TestLogLevelFlag(t *testing.T) {
	t.Parallel()
	var lvl textui.LogLevelFlag
	require.NoError(t, lvl.Set("info"))
	assert.Equal(t, dlog.LogLevelInfo, lvl.Level)
	require.NoError(t, lvl.Set("ERROR"))
	assert.Equal(t, dlog.LogLevelError, lvl.Level)
	assert.Equal(t, "error", lvl.String())
	assert.Error(t, lvl.Set("bogus"))
	assert.Equal(t, "loglevel", lvl.Type())
}

type testStats int

// String implements fmt.Stringer.
func (s testStats) String() string { return textui.Sprintf("stats=%d", int(s)) }

func TestProgress(t *testing.T) {
	t.Parallel()
	var out strings.Builder
	ctx := dlog.WithLogger(context.Background(), textui.NewLogger(&out, dlog.LogLevelInfo))

	progress := textui.NewProgress[testStats](ctx, dlog.LogLevelInfo, time.Hour)
	progress.Set(1)
	// within the interval, further values are withheld
	progress.Set(2)
	progress.Set(3)
	progress.Done()

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "stats=1")
	assert.Contains(t, lines[1], "stats=3")
}

func TestProgressSkipsUnchanged(t *testing.T) {
	t.Parallel()
	var out strings.Builder
	ctx := dlog.WithLogger(context.Background(), textui.NewLogger(&out, dlog.LogLevelInfo))

	progress := textui.NewProgress[testStats](ctx, dlog.LogLevelInfo, time.Hour)
	progress.Set(1)
	progress.Done()

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	assert.Len(t, lines, 1)
}
