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

package connmgr

import "fmt"

// ConnectStatusText formats a one-line human-readable summary of the
// connection state and, where relevant, the selected slot number — the
// Go analogue of get_connect_status_text(buf, n).
func (m *Manager) ConnectStatusText() string {
	switch m.Context.State {
	case Uninitialised:
		return "not initialised"
	case InitialisationError:
		return fmt.Sprintf("initialisation failed (code %d)", m.Context.HWErrorCode)
	case StorageEmptyError:
		return "no WiFi settings configured"
	case Disconnected:
		return "disconnected"
	case TryToConnect:
		return "waiting to scan"
	case Scanning:
		return "scanning for access points"
	case Connecting:
		return fmt.Sprintf("connecting to slot %d", m.Context.SelectedSlot)
	case ConnectedIP:
		return fmt.Sprintf("connected (slot %d)", m.Context.SelectedSlot)
	default:
		return "unknown"
	}
}

// HWStatusText reports the last hardware error code recorded, if any.
func (m *Manager) HWStatusText() string {
	if m.Context.HWErrorCode == 0 {
		return "ok"
	}
	return fmt.Sprintf("hardware error %d", m.Context.HWErrorCode)
}

// IPStatusText reports the acquired IPv4 address, or that none is held.
func (m *Manager) IPStatusText() string {
	if m.Context.State != ConnectedIP {
		return "no IP address"
	}
	addr := m.radio.IPv4()
	return fmt.Sprintf("%d.%d.%d.%d",
		byte(addr>>24), byte(addr>>16), byte(addr>>8), byte(addr))
}

// Hostname returns Context.Hostname: the name loaded at Init, or the
// value the caller last stored there.
func (m *Manager) Hostname() string {
	return m.Context.Hostname
}

// SlotStatusText summarizes every slot's last known status, in index
// order, for diagnostics.
func (m *Manager) SlotStatusText() string {
	s := ""
	for i := 0; i < MaxSSIDs; i++ {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("%d:%s", i+1, m.Context.SlotStatusList[i])
	}
	return s
}
