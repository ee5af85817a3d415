// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

func parseLevel(value string, def slog.Level) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return def
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	// Numeric slog levels, such as -4 for debug.
	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		return slog.Level(n)
	}
	return def
}

// newLogger returns the logger the configuration asks for: a text handler
// over a rotating log file when log.filename is set, over stderr otherwise.
// Verbose logging is at debug level, which includes every candidate call.
// The returned function closes the log file.
func newLogger(v *viper.Viper, stderr io.Writer) (*slog.Logger, func() error) {
	level := parseLevel(v.GetString(logLevelKey), slog.LevelInfo)
	if v.GetBool(logVerboseKey) {
		level = slog.LevelDebug
	}

	w := stderr
	closer := func() error { return nil }
	if name := strings.TrimSpace(v.GetString(logFilenameKey)); name != "" {
		lj := &lumberjack.Logger{
			Filename:   name,
			MaxSize:    v.GetInt(logMaxSizeKey),
			MaxBackups: v.GetInt(logMaxBackupsKey),
			MaxAge:     v.GetInt(logMaxAgeKey),
			Compress:   v.GetBool(logCompressKey),
		}
		w, closer = lj, lj.Close
	}
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(h), closer
}
