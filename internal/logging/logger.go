//----------------------------------------------------------------------
// This file is part of pico-wifi-settings.
// Copyright (C) 2025-present pico-wifi-settings contributors
//
// pico-wifi-settings is free software: you can redistribute it and/or
// modify it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// pico-wifi-settings is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public
// License along with this program. If not, see <http://www.gnu.org/licenses/>.
//
// SPDX-License-Identifier: AGPL3.0-or-later
//----------------------------------------------------------------------

// Package logging owns construction of the process-wide zap logger, so
// every other package just accepts a *zap.Logger and this is the only
// place that decides the encoding, level, and output sink. Silent by
// default: an embedded build that never sets PICO_WIFI_LOG_LEVEL
// produces no log traffic at all.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LevelEnvVar controls verbosity. Unset or empty means silent.
const LevelEnvVar = "PICO_WIFI_LOG_LEVEL"

var global *zap.Logger

// Init builds the process-wide logger from an explicit level, falling
// back to LevelEnvVar, falling back to silence.
func Init(level string) error {
	if level == "" {
		level = os.Getenv(LevelEnvVar)
	}
	if level == "" {
		global = zap.NewNop()
		return nil
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	built, err := cfg.Build()
	if err != nil {
		return err
	}
	global = built
	return nil
}

// L returns the process-wide logger, building a silent one on first use
// if Init was never called.
func L() *zap.Logger {
	if global == nil {
		global = zap.NewNop()
	}
	return global
}

// Sync flushes any buffered log entries; call before process exit.
func Sync() {
	if global != nil {
		_ = global.Sync()
	}
}
