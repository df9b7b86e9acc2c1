/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// cliLog is the process-level console logger for startup/shutdown
// banners and fatal errors. Packages under pkg/ log through
// logutil-go's structured, per-component loggers; this one is the
// binary's own, human-readable console sink on top of it.
var cliLog zerolog.Logger

// initLogging configures cliLog's level from the node's configured
// log level.
func initLogging(level string) {
	zerolog.SetGlobalLevel(parseLevel(level))

	cliLog = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
