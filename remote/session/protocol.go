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

// Package session implements the per-connection Remote Session state
// machine: block-aligned handshake, key derivation, and the encrypted
// request/reply cycle that drives a Handler Registry.
package session

// BlockSize is the wire unit: every message is a whole number of these.
const BlockSize = 16

// MaxDataSize is the largest payload a single encrypted request or
// reply may carry.
const MaxDataSize = 4096

// maxGreetingBlocks is the limit implied by the greeting's one-byte
// block-count field (spec design notes §9).
const maxGreetingBlocks = 255

// ProtocolVersion is the greeting's advertised protocol version byte.
const ProtocolVersion = 1

// Message type IDs, spec §6.
const (
	IDGreeting      byte = 70
	IDRequest       byte = 71
	IDChallenge     byte = 72
	IDAuthentication byte = 73
	IDResponse      byte = 74
	IDAcknowledge   byte = 75
	IDOK            byte = 76
	IDAuthError     byte = 77
	IDVersionError  byte = 78
	IDBadMsgError   byte = 79
	IDBadParamError byte = 80
	IDBadHandlerError byte = 81
	IDNoSecretError byte = 82
	IDCorruptError  byte = 83
	IDUnknownError  byte = 84
)

// Built-in and user handler ID ranges, spec §3/§6.
const (
	FirstBuiltinHandler = 120
	LastBuiltinHandler  = 127
	FirstUserHandler    = 128
	LastUserHandler     = 143
)
