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

// Package connmgr implements the Connection Manager: a periodic state
// machine that scans for WiFi access points, joins the highest-priority
// configured slot, and tracks link/IP health.
package connmgr

import "time"

// MaxSSIDs bounds the number of configured access-point slots.
const MaxSSIDs = 8

// PeriodicTimeMS is the nominal tick interval of the worker.
const PeriodicTimeMS = 1000

// RepeatScanTimeMS is the holdoff applied after a scan finds nothing.
const RepeatScanTimeMS = 10_000

// ConnectTimeoutMS bounds how long a single join attempt may run.
const ConnectTimeoutMS = 30_000

// State is the ConnectionState enum from spec §3.
type State int

const (
	Uninitialised State = iota
	InitialisationError
	StorageEmptyError
	Disconnected
	TryToConnect
	Scanning
	Connecting
	ConnectedIP
)

func (s State) String() string {
	switch s {
	case Uninitialised:
		return "UNINITIALISED"
	case InitialisationError:
		return "INITIALISATION_ERROR"
	case StorageEmptyError:
		return "STORAGE_EMPTY_ERROR"
	case Disconnected:
		return "DISCONNECTED"
	case TryToConnect:
		return "TRY_TO_CONNECT"
	case Scanning:
		return "SCANNING"
	case Connecting:
		return "CONNECTING"
	case ConnectedIP:
		return "CONNECTED_IP"
	default:
		return "UNKNOWN"
	}
}

// SlotStatus is the per-slot status enum from spec §3.
type SlotStatus int

const (
	NotFound SlotStatus = iota
	Found
	Attempt
	Failed
	BadAuth
	Timeout
	Success
	Lost
)

func (s SlotStatus) String() string {
	switch s {
	case NotFound:
		return "NOT_FOUND"
	case Found:
		return "FOUND"
	case Attempt:
		return "ATTEMPT"
	case Failed:
		return "FAILED"
	case BadAuth:
		return "BADAUTH"
	case Timeout:
		return "TIMEOUT"
	case Success:
		return "SUCCESS"
	case Lost:
		return "LOST"
	default:
		return "UNKNOWN"
	}
}

// Slot is one configured access-point entry read from the settings
// store.
type Slot struct {
	Index    int
	SSID     string
	BSSID    []byte // 6 bytes, nil if not configured
	Password string
	Present  bool
}

// HasBSSID reports whether this slot was configured with a BSSID.
func (s Slot) HasBSSID() bool {
	return len(s.BSSID) == 6
}

// Open reports whether this slot has no password (open network).
func (s Slot) Open() bool {
	return s.Password == ""
}

// Context is the ConnectionContext singleton from spec §3.
type Context struct {
	State                  State
	SelectedSlot           int
	SlotStatusList         [MaxSSIDs]SlotStatus
	ScanHoldoffDeadline    time.Time
	ConnectTimeoutDeadline time.Time
	HWErrorCode            int
	Hostname               string
}
