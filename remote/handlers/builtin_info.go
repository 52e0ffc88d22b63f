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
	"bytes"
	"fmt"

	"github.com/jwhitham/pico-wifi-settings/flashrange"
	"github.com/jwhitham/pico-wifi-settings/remote/session"
)

// InfoProvider supplies the live values PicoInfoHandler reports;
// implemented by the wiring layer (typically a thin adapter over a
// connmgr.Manager and a settings.Store).
type InfoProvider interface {
	ConnectStatusText() string
	HWStatusText() string
	IPStatusText() string
	Hostname() string
}

// PicoInfoHandler builds the PICO_INFO_HANDLER built-in: a one-shot
// handler producing a newline-separated key=value diagnostic text. Per
// spec it requires in_size=0, in_param=0.
func PicoInfoHandler(layout flashrange.Layout, boardID string, versionText string, info InfoProvider) session.Handler {
	return session.Handler{
		Stage1: func(msgType byte, data *[session.MaxDataSize]byte, inSize int, inParam int32, outSize *int) int32 {
			if inSize != 0 || inParam != 0 {
				*outSize = 0
				return -1
			}
			var buf bytes.Buffer
			program := layout.Program()
			reusable := layout.Reusable()
			settings := layout.Settings()

			addString(&buf, "program", fmt.Sprintf("0x%08x", program.StartOffset))
			addU32(&buf, "program_size", program.Size)
			addString(&buf, "reusable", fmt.Sprintf("0x%08x", reusable.StartOffset))
			addU32(&buf, "reusable_size", reusable.Size)
			addString(&buf, "settings", fmt.Sprintf("0x%08x", settings.StartOffset))
			addU32(&buf, "settings_size", settings.Size)
			addU32(&buf, "all_flash_size", layout.All().Size)
			addString(&buf, "connect_status", info.ConnectStatusText())
			addString(&buf, "hw_status", info.HWStatusText())
			addString(&buf, "ip_status", info.IPStatusText())
			addString(&buf, "name", info.Hostname())
			addString(&buf, "board_id", boardID)
			addString(&buf, "version", versionText)

			n := copy(data[:], buf.Bytes())
			*outSize = n
			return int32(n)
		},
	}
}

func addString(buf *bytes.Buffer, key, value string) {
	buf.WriteString(key)
	buf.WriteByte('=')
	buf.WriteString(value)
	buf.WriteByte('\n')
}

func addU32(buf *bytes.Buffer, key string, value uint32) {
	addString(buf, key, fmt.Sprintf("%d", value))
}
