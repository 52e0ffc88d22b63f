//go:build !rp2350

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

package picowifi

import (
	"context"
	"fmt"
	"net"

	"github.com/jwhitham/pico-wifi-settings/connmgr"
)

// LinuxDevice is the host-testable stand-in for the real board: no LED,
// a synthetic board ID, and an in-memory radio/flash pair good enough to
// drive the whole stack without hardware.
type LinuxDevice struct {
	boardID string
}

func (dev *LinuxDevice) LED(on bool) {}

func (dev *LinuxDevice) BoardID() string { return dev.boardID }

// InitDevice constructs the Linux build's Device.
func InitDevice() Device {
	return &LinuxDevice{boardID: "0000000000000000"}
}

// SetupListener returns a plain TCP listener on the given port; there is
// no WiFi to join on this platform, so host/ip/ssid/passwd are ignored.
func (dev *LinuxDevice) SetupListener(_, _, _, _ string, port uint16) (net.Listener, error) {
	cfg := new(net.ListenConfig)
	return cfg.Listen(context.Background(), "tcp", fmt.Sprintf(":%d", port))
}

// FakeRadio is an in-memory connmgr.Radio for host testing and the
// example program's desktop build: it reports every access point whose
// SSID is a key of Networks as found by the next scan, and joins resolve
// immediately: a known SSID with the matching password comes up with an
// address, a wrong password reports LinkBadAuth, and an unknown SSID or
// a BSSID-only join reports LinkFailed.
type FakeRadio struct {
	Networks map[string]string // ssid -> password, "" = open
	ip       uint32
	link     connmgr.LinkStatus
}

func NewFakeRadio() *FakeRadio {
	return &FakeRadio{Networks: map[string]string{}}
}

func (r *FakeRadio) Init(string) error { return nil }
func (r *FakeRadio) Deinit()           {}
func (r *FakeRadio) StartScan() error  { return nil }

func (r *FakeRadio) ScanResults() ([]connmgr.ScanResult, bool) {
	results := make([]connmgr.ScanResult, 0, len(r.Networks))
	for ssid := range r.Networks {
		results = append(results, connmgr.ScanResult{SSID: ssid})
	}
	return results, true
}

func (r *FakeRadio) Join(ssid string, bssid []byte, password string) error {
	if ssid == "" {
		r.link = connmgr.LinkFailed
		return fmt.Errorf("fake radio: BSSID join unsupported")
	}
	want, ok := r.Networks[ssid]
	if !ok {
		r.link = connmgr.LinkFailed
		return nil
	}
	if want != password {
		r.link = connmgr.LinkBadAuth
		return nil
	}
	r.link = connmgr.LinkUp
	r.ip = 0x7f000001
	return nil
}

func (r *FakeRadio) Leave() {
	r.link = connmgr.LinkDown
	r.ip = 0
}

func (r *FakeRadio) LinkStatus() connmgr.LinkStatus { return r.link }
func (r *FakeRadio) IPv4() uint32                   { return r.ip }

// FakeFlasher is an in-memory settings.Flasher for host testing.
type FakeFlasher struct {
	mem []byte
}

func NewFakeFlasher(size uint32) *FakeFlasher {
	mem := make([]byte, size)
	for i := range mem {
		mem[i] = 0xFF
	}
	return &FakeFlasher{mem: mem}
}

func (f *FakeFlasher) EraseRange(offset, size uint32) error {
	for i := offset; i < offset+size; i++ {
		f.mem[i] = 0xFF
	}
	return nil
}

func (f *FakeFlasher) ProgramPage(offset uint32, page []byte) error {
	copy(f.mem[offset:], page)
	return nil
}

func (f *FakeFlasher) ReadRange(offset, size uint32) ([]byte, error) {
	out := make([]byte, size)
	copy(out, f.mem[offset:offset+size])
	return out, nil
}

func (f *FakeFlasher) SafeExecute(fn func() error) error {
	return fn()
}
