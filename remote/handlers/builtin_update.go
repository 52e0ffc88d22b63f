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

package handlers

import (
	"go.uber.org/zap"

	rcrypto "github.com/jwhitham/pico-wifi-settings/remote/crypto"
	"github.com/jwhitham/pico-wifi-settings/remote/session"
	"github.com/jwhitham/pico-wifi-settings/settings"
)

// SettingsRefreshed is invoked after a successful UPDATE_HANDLER write:
// the wiring layer uses it to re-derive the hashed secret and hostname
// that the *next* handshake will use, matching the original's refresh
// of both buffers (a session already past the handshake keeps its own
// already-derived keys).
type SettingsRefreshed func(secret rcrypto.Core, hostname string)

// UpdateHandler rewrites the settings blob atomically via the store's
// save procedure. On success it returns the written size as the
// handler result and refreshes the hashed secret and hostname. There is
// no stage-2: the reply is sent and the session stays open for further
// requests.
func UpdateHandler(store *settings.Store, onRefreshed SettingsRefreshed, log *zap.Logger) session.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return session.Handler{
		Stage1: func(msgType byte, data *[session.MaxDataSize]byte, inSize int, inParam int32, outSize *int) int32 {
			*outSize = 0
			if err := store.Save(data[:inSize]); err != nil {
				log.Warn("settings update rejected", zap.Error(err))
				return -1
			}
			blob, err := store.Load()
			if err != nil {
				log.Error("settings reload after update failed", zap.Error(err))
				return int32(inSize)
			}
			secretRaw, _ := blob.Lookup("update_secret")
			hostname, _ := blob.Lookup("name")
			if onRefreshed != nil {
				onRefreshed(rcrypto.DeriveSecret(secretRaw), string(hostname))
			}
			return int32(inSize)
		},
	}
}

// Rebooter performs the platform-specific, flash-safe reset sequence.
// The hardware build quiesces the other core and arms a watchdog; the
// host/test build just records what was requested.
type Rebooter interface {
	Reboot()
	RebootToBootloader()
}

// UpdateRebootHandler rewrites the settings blob and resets in one
// round trip. Stage1 has nothing to validate ahead of time, but it must
// still pass the client's payload length through as outSize: the
// session only hands Stage2 the reply buffer up to outSize bytes, so a
// zeroed outSize would make the save below always see size==0 and
// silently reboot without persisting anything.
func UpdateRebootHandler(store *settings.Store, reboot Rebooter, allowMemoryAccess bool) session.Handler {
	return session.Handler{
		Stage1: func(msgType byte, data *[session.MaxDataSize]byte, inSize int, inParam int32, outSize *int) int32 {
			*outSize = inSize
			return inParam
		},
		Stage2: func(data *[session.MaxDataSize]byte, size int, param int32) {
			if size > 0 {
				_ = store.Save(data[:size])
			}
			if allowMemoryAccess && param == 1 {
				reboot.RebootToBootloader()
				return
			}
			reboot.Reboot()
		},
	}
}
