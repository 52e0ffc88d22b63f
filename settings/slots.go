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

package settings

import (
	"fmt"
	"strconv"

	"github.com/jwhitham/pico-wifi-settings/connmgr"
)

// SlotReader adapts a Store to connmgr.SettingsReader, decoding the
// ssid<N>/bssid<N>/pass<N>/country/name keys documented in spec §3.
type SlotReader struct {
	Store *Store
}

// Slot implements connmgr.SettingsReader.
func (r SlotReader) Slot(index int) (connmgr.Slot, bool) {
	blob, err := r.Store.Load()
	if err != nil {
		return connmgr.Slot{}, false
	}
	ssidKey := "ssid" + strconv.Itoa(index)
	bssidKey := "bssid" + strconv.Itoa(index)
	passKey := "pass" + strconv.Itoa(index)

	ssid, ssidOK := blob.Lookup(ssidKey)
	bssidText, bssidOK := blob.Lookup(bssidKey)
	if !ssidOK && !bssidOK {
		return connmgr.Slot{}, false
	}
	pass, _ := blob.Lookup(passKey)

	slot := connmgr.Slot{Index: index, SSID: string(ssid), Password: string(pass), Present: true}
	if bssidOK {
		if mac, err := parseBSSID(string(bssidText)); err == nil {
			slot.BSSID = mac
		}
	}
	return slot, true
}

// Country implements connmgr.SettingsReader.
func (r SlotReader) Country() string {
	blob, err := r.Store.Load()
	if err != nil {
		return ""
	}
	v, _ := blob.Lookup("country")
	return string(v)
}

// Hostname implements connmgr.SettingsReader.
func (r SlotReader) Hostname() string {
	blob, err := r.Store.Load()
	if err != nil {
		return ""
	}
	v, _ := blob.Lookup("name")
	return string(v)
}

// parseBSSID decodes "xx:xx:xx:xx:xx:xx" into 6 raw bytes.
func parseBSSID(text string) ([]byte, error) {
	var mac [6]byte
	n, err := fmt.Sscanf(text, "%x:%x:%x:%x:%x:%x",
		&mac[0], &mac[1], &mac[2], &mac[3], &mac[4], &mac[5])
	if err != nil || n != 6 {
		return nil, fmt.Errorf("malformed bssid %q", text)
	}
	return mac[:], nil
}
