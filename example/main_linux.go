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

package main

import (
	"fmt"
	"net"

	"go.uber.org/zap"

	"github.com/jwhitham/pico-wifi-settings/flashrange"
	"github.com/jwhitham/pico-wifi-settings/internal/logging"
	picowifi "github.com/jwhitham/pico-wifi-settings"
	"github.com/jwhitham/pico-wifi-settings/settings"
)

// fakeRebooter stands in for the watchdog-reset sequence on a desktop
// build: there is no bootloader to jump to, so it just logs intent.
type fakeRebooter struct {
	log *zap.Logger
}

func (r *fakeRebooter) Reboot()             { r.log.Info("reboot requested") }
func (r *fakeRebooter) RebootToBootloader() { r.log.Info("reboot-to-bootloader requested") }

func main() {
	_ = logging.Init("debug")
	defer logging.Sync()
	log := logging.L()

	dev := picowifi.InitDevice().(*picowifi.LinuxDevice)
	radio := picowifi.NewFakeRadio()
	radio.Networks["home"] = "correcthorsebatterystaple"

	layout := flashrange.Layout{
		FlashSize:    2 * 1024 * 1024,
		SectorSize:   4096,
		ProgramEnd:   512 * 1024,
		SettingsSize: 4096,
		ReservedTail: 4096,
	}
	flasher := picowifi.NewFakeFlasher(layout.FlashSize)
	settingsRange := layout.Settings()
	store := settings.NewStore(flasher, settingsRange.StartOffset, settingsRange.Size, log)

	listener, err := dev.SetupListener("", "", "", "", RemotePort)
	if err != nil {
		log.Fatal("listen failed", zap.Error(err))
	}
	packetConn, err := net.ListenPacket("udp", fmt.Sprintf(":%d", RemotePort))
	if err != nil {
		log.Fatal("listen udp failed", zap.Error(err))
	}

	reboot := &fakeRebooter{log: log}
	if err := run(dev, radio, store, layout, listener, packetConn, reboot, log); err != nil {
		log.Fatal("run exited", zap.Error(err))
	}
}
