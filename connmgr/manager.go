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

import (
	"time"

	"go.uber.org/zap"
)

// Manager drives Context through the state-transition table, polled
// once per tick by the caller's own periodic worker loop.
type Manager struct {
	Context Context

	radio    Radio
	settings SettingsReader
	log      *zap.Logger

	// slots is the snapshot of configured slots taken when a scan
	// begins; scan results are matched against this fixed snapshot, not
	// against a fresh re-read, so BSSID/SSID priority is evaluated
	// consistently for the whole scan.
	slots [MaxSSIDs]Slot

	connectRequested bool

	// awaitingScanResults is true only for the tick(s) spent waiting on
	// the radio's own over-the-air scan; once a scan's results have been
	// applied, re-entering Scanning after a failed join re-evaluates the
	// same snapshot without asking the radio to scan again.
	awaitingScanResults bool
}

// NewManager constructs a Manager in the Uninitialised state.
func NewManager(radio Radio, settings SettingsReader, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{radio: radio, settings: settings, log: log}
}

// Init brings up the radio and moves to Disconnected, or to
// InitialisationError if the driver reports a failure.
func (m *Manager) Init() error {
	country := m.settings.Country()
	if err := m.radio.Init(country); err != nil {
		m.Context.State = InitialisationError
		m.log.Error("radio init failed", zap.Error(err))
		return err
	}
	m.Context.Hostname = m.settings.Hostname()
	m.Context.State = Disconnected
	return nil
}

// Deinit tears down the radio and returns to Uninitialised.
func (m *Manager) Deinit() {
	m.radio.Leave()
	m.radio.Deinit()
	m.Context = Context{State: Uninitialised}
}

// Connect requests that the manager start (or resume) trying to join a
// configured network. It is a no-op once already past Disconnected.
func (m *Manager) Connect() {
	m.connectRequested = true
	if m.Context.State == Disconnected {
		m.Context.State = TryToConnect
	}
}

// Disconnect forces the manager back to Disconnected and leaves the
// current network, if any.
func (m *Manager) Disconnect() {
	m.connectRequested = false
	m.radio.Leave()
	for i := range m.Context.SlotStatusList {
		m.Context.SlotStatusList[i] = NotFound
	}
	m.Context.SelectedSlot = 0
	m.Context.State = Disconnected
}

// IsConnected reports whether the manager currently holds an IP lease.
func (m *Manager) IsConnected() bool {
	return m.Context.State == ConnectedIP
}

// HasNoWiFiDetails reports whether neither ssid1 nor bssid1 exists, the
// single cheap check the manager uses to decide whether any settings
// have ever been written at all.
func (m *Manager) HasNoWiFiDetails() bool {
	_, present := m.settings.Slot(1)
	return !present
}

// Tick advances the state machine by one step. It should be called
// roughly every PeriodicTimeMS.
func (m *Manager) Tick(now time.Time) {
	switch m.Context.State {
	case Uninitialised, InitialisationError, Disconnected:
		// No autonomous transitions; Connect()/Init() move these.

	case StorageEmptyError:
		if !m.HasNoWiFiDetails() {
			m.Context.State = TryToConnect
		}

	case TryToConnect:
		m.tickTryToConnect(now)

	case Scanning:
		m.tickScanning(now)

	case Connecting:
		m.tickConnecting(now)

	case ConnectedIP:
		m.tickConnectedIP()
	}
}

func (m *Manager) tickTryToConnect(now time.Time) {
	if m.HasNoWiFiDetails() {
		m.radio.Leave()
		m.Context.State = StorageEmptyError
		return
	}
	if now.Before(m.Context.ScanHoldoffDeadline) {
		return
	}
	m.radio.Leave()
	if err := m.radio.StartScan(); err != nil {
		m.log.Warn("scan failed to start", zap.Error(err))
		m.Context.ScanHoldoffDeadline = now.Add(RepeatScanTimeMS * time.Millisecond)
		return
	}
	for i := range m.Context.SlotStatusList {
		m.Context.SlotStatusList[i] = NotFound
	}
	for i := 0; i < MaxSSIDs; i++ {
		slot, present := m.settings.Slot(i + 1)
		slot.Index = i + 1
		slot.Present = present
		m.slots[i] = slot
	}
	m.awaitingScanResults = true
	m.Context.State = Scanning
}

// tickScanning waits for the in-flight over-the-air scan to complete,
// then selects a slot. Re-entering Scanning after a failed join (via
// backToScanning) leaves awaitingScanResults false, so the tick that
// observes the Scanning state goes straight to re-selecting from the
// snapshot already taken, without paying for another scan.
func (m *Manager) tickScanning(now time.Time) {
	if m.awaitingScanResults {
		results, done := m.radio.ScanResults()
		if !done {
			return
		}
		m.applyScanResults(results)
		m.awaitingScanResults = false
	}
	m.selectAndJoin(now)
}

// selectAndJoin picks the lowest-index Found slot from the current scan
// snapshot and starts joining it, or falls back to TryToConnect (after a
// holdoff) if no configured slot was seen.
func (m *Manager) selectAndJoin(now time.Time) {
	idx := m.lowestFoundSlotIndex()
	if idx == 0 {
		m.Context.ScanHoldoffDeadline = now.Add(RepeatScanTimeMS * time.Millisecond)
		m.Context.State = TryToConnect
		return
	}

	m.Context.SelectedSlot = idx
	m.radio.Leave()

	slot, present := m.settings.Slot(idx)
	if !present {
		// The slot vanished from the store between scan and join: record
		// the attempt but do not try to join a record that no longer
		// exists, and move on to the next candidate.
		m.Context.SlotStatusList[idx-1] = Attempt
		m.Context.SelectedSlot = 0
		m.selectAndJoin(now)
		return
	}

	m.Context.SlotStatusList[idx-1] = Attempt
	m.beginJoin(slot, now)
	m.Context.State = Connecting
}

// applyScanResults marks slots Found according to the snapshot taken at
// scan start. BSSID matches are resolved in a first pass so that a
// slot pinned to a specific access point always wins over any other
// slot that merely shares its SSID.
func (m *Manager) applyScanResults(results []ScanResult) {
	bssidMatched := make([]bool, len(results))
	for _, slot := range m.slots {
		if !slot.Present || !slot.HasBSSID() {
			continue
		}
		for i, r := range results {
			if bssidEqual(slot.BSSID, r.BSSID[:]) {
				m.Context.SlotStatusList[slot.Index-1] = Found
				bssidMatched[i] = true
				break
			}
		}
	}
	for _, slot := range m.slots {
		if !slot.Present || slot.HasBSSID() {
			continue
		}
		if m.Context.SlotStatusList[slot.Index-1] == Found {
			continue
		}
		for i, r := range results {
			if !bssidMatched[i] && r.SSID == slot.SSID {
				m.Context.SlotStatusList[slot.Index-1] = Found
				break
			}
		}
	}
}

func bssidEqual(a, b []byte) bool {
	if len(a) != 6 || len(b) != 6 {
		return false
	}
	for i := 0; i < 6; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (m *Manager) lowestFoundSlotIndex() int {
	for i := 0; i < MaxSSIDs; i++ {
		if m.Context.SlotStatusList[i] == Found {
			return i + 1
		}
	}
	return 0
}

func (m *Manager) beginJoin(slot Slot, now time.Time) {
	if slot.HasBSSID() {
		m.radio.Join("", slot.BSSID, slot.Password)
	} else {
		m.radio.Join(slot.SSID, nil, slot.Password)
	}
	m.Context.ConnectTimeoutDeadline = now.Add(ConnectTimeoutMS * time.Millisecond)
}

func (m *Manager) tickConnecting(now time.Time) {
	slotIdx := m.Context.SelectedSlot
	switch m.radio.LinkStatus() {
	case LinkUp:
		if m.radio.IPv4() != 0 {
			m.Context.SlotStatusList[slotIdx-1] = Success
			m.Context.State = ConnectedIP
		} else if now.After(m.Context.ConnectTimeoutDeadline) {
			m.Context.SlotStatusList[slotIdx-1] = Timeout
			m.backToScanning()
		}
	case LinkBadAuth:
		m.Context.SlotStatusList[slotIdx-1] = BadAuth
		m.backToScanning()
	case LinkFailed:
		m.Context.SlotStatusList[slotIdx-1] = Failed
		m.backToScanning()
	case LinkJoining, LinkDown:
		if now.After(m.Context.ConnectTimeoutDeadline) {
			m.Context.SlotStatusList[slotIdx-1] = Timeout
			m.backToScanning()
		}
	}
}

// backToScanning returns to the Scanning state after a failed join.
// Selection of the next candidate happens on a subsequent tick (from
// tickScanning), not here, so a caller observing the state between
// attempts sees Scanning rather than an immediate jump straight to the
// next Connecting attempt.
func (m *Manager) backToScanning() {
	m.Context.SelectedSlot = 0
	m.Context.State = Scanning
}

func (m *Manager) tickConnectedIP() {
	slotIdx := m.Context.SelectedSlot
	if m.radio.LinkStatus() != LinkUp || m.radio.IPv4() == 0 {
		if slotIdx >= 1 && slotIdx <= MaxSSIDs {
			m.Context.SlotStatusList[slotIdx-1] = Lost
		}
		m.Context.SelectedSlot = 0
		m.Context.State = TryToConnect
	}
}
