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

// Package handlers implements the Handler Registry and its built-in
// message types, on top of the Remote Session's Registry interface.
package handlers

import "github.com/jwhitham/pico-wifi-settings/remote/session"

// Built-in message-type IDs, drawn from the reserved 120..127 range.
const (
	IDPicoInfo     byte = 120
	IDUpdate       byte = 121
	IDUpdateReboot byte = 122
	IDRead         byte = 123
	IDWriteFlash   byte = 124
	IDOTAUpdate    byte = 125
)

// Table is an indexed registry of handler entries, one slot per
// msg_type byte in the reserved and user ranges. Registration replaces
// any previous entry for that id.
type Table struct {
	entries map[byte]session.Handler
}

// NewTable returns an empty registry.
func NewTable() *Table {
	return &Table{entries: make(map[byte]session.Handler)}
}

// Register installs or replaces the handler for msgType.
func (t *Table) Register(msgType byte, h session.Handler) {
	t.entries[msgType] = h
}

// Lookup implements session.Registry.
func (t *Table) Lookup(msgType byte) (session.Handler, bool) {
	h, ok := t.entries[msgType]
	return h, ok
}
