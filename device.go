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

// Package picowifi wires the Flash Range, Settings Store, Connection
// Manager, and Remote Control Service packages onto a concrete board:
// it supplies the Device abstraction each platform build implements and
// the status-LED reporter shared by both.
package picowifi

import "net"

// Device is the hardware abstraction each platform build provides.
type Device interface {
	// LED turns the status LED on or off, if the board has one.
	LED(on bool)

	// BoardID returns the stable identifier (typically a flash/MAC
	// derived hex string) reported by the PICO_INFO_HANDLER and
	// advertised by the discovery responder.
	BoardID() string
}

// Listener is satisfied by both a real net.Listener (hardware build, via
// the seqs TCP stack) and the host build's net.Listener over the Linux
// network stack; kept as its own name so call sites read in terms of the
// Remote Control Service rather than a raw net import.
type Listener = net.Listener
