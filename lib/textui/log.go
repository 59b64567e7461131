// Copyright (C) 2023  Luke Shumaker <lukeshu@lukeshu.com>
//
// SPDX-License-Identifier: GPL-2.0-or-later

package textui

import (
	"fmt"
	"io"

	"github.com/datawire/dlib/dlog"
	"github.com/sirupsen/logrus"
)

// NewLogger returns a dlog.Logger that writes human-oriented lines to
// out, suppressing everything below lvl.
func NewLogger(out io.Writer, lvl dlog.LogLevel) dlog.Logger {
	backend := logrus.New()
	backend.SetOutput(out)
	backend.SetLevel(logrusLevel(lvl))
	backend.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.0000",
	})
	return dlog.WrapLogrus(backend)
}

func logrusLevel(lvl dlog.LogLevel) logrus.Level {
	switch lvl {
	case dlog.LogLevelError:
		return logrus.ErrorLevel
	case dlog.LogLevelWarn:
		return logrus.WarnLevel
	case dlog.LogLevelInfo:
		return logrus.InfoLevel
	case dlog.LogLevelDebug:
		return logrus.DebugLevel
	case dlog.LogLevelTrace:
		return logrus.TraceLevel
	default:
		panic(fmt.Errorf("invalid log level: %#v", lvl))
	}
}
