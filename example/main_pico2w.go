//go:build rp2350

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
	"machine"
	"time"

	"github.com/soypat/seqs/stacks"
	"go.uber.org/zap"

	"github.com/jwhitham/pico-wifi-settings/flashrange"
	"github.com/jwhitham/pico-wifi-settings/internal/logging"
	picowifi "github.com/jwhitham/pico-wifi-settings"
	"github.com/jwhitham/pico-wifi-settings/settings"
)

// rp2350Flasher wraps the onboard QSPI flash through TinyGo's machine
// package.
type rp2350Flasher struct{}

func (rp2350Flasher) EraseRange(offset, size uint32) error {
	return machine.Flash.EraseBlocks(int64(offset)/int64(machine.Flash.EraseBlockSize()),
		int(size)/int(machine.Flash.EraseBlockSize()))
}

func (rp2350Flasher) ProgramPage(offset uint32, page []byte) error {
	_, err := machine.Flash.WriteAt(page, int64(offset))
	return err
}

func (rp2350Flasher) ReadRange(offset, size uint32) ([]byte, error) {
	buf := make([]byte, size)
	_, err := machine.Flash.ReadAt(buf, int64(offset))
	return buf, err
}

func (rp2350Flasher) SafeExecute(fn func() error) error {
	mask := machine.DisableInterrupts()
	defer machine.EnableInterrupts(mask)
	return fn()
}

// watchdogRebooter implements handlers.Rebooter using the RP2350's
// watchdog timer, triggered deliberately rather than after a trapped
// panic.
type watchdogRebooter struct{}

func (watchdogRebooter) Reboot() {
	machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 1})
	machine.Watchdog.Start()
	for {
	}
}

func (watchdogRebooter) RebootToBootloader() {
	machine.EnterBootloader()
}

func main() {
	_ = logging.Init("info")
	defer logging.Sync()
	log := logging.L()

	dev := picowifi.InitDevice().(*picowifi.Pico2WDevice)
	radio, err := picowifi.NewPico2WRadio(dev, "pico-wifi", nil)
	if err != nil {
		log.Fatal("radio init failed", zap.Error(err))
	}

	layout := flashrange.Layout{
		FlashSize:    4 * 1024 * 1024,
		SectorSize:   4096,
		ProgramEnd:   1024 * 1024,
		SettingsSize: 4096,
		ReservedTail: 4096,
	}
	flasher := rp2350Flasher{}
	settingsRange := layout.Settings()
	store := settings.NewStore(flasher, settingsRange.StartOffset, settingsRange.Size, log)

	listener, err := dev.SetupListener(radio.Stack(), RemotePort)
	if err != nil {
		log.Fatal("listen failed", zap.Error(err))
	}
	packetConn, err := stacks.NewUDPConn(radio.Stack(), stacks.UDPConnConfig{
		TxBufSize: 512,
		RxBufSize: 512,
	})
	if err != nil {
		log.Fatal("listen udp failed", zap.Error(err))
	}
	if err := packetConn.ListenUDP(RemotePort); err != nil {
		log.Fatal("bind udp failed", zap.Error(err))
	}

	reboot := watchdogRebooter{}
	defer func() {
		if r := recover(); r != nil {
			log.Error("recovered panic", zap.Any("panic", r))
			time.Sleep(5 * time.Second)
			reboot.Reboot()
		}
	}()
	if err := run(dev, radio, store, layout, listener, packetConn, reboot, log); err != nil {
		log.Error("run exited", zap.Error(err))
	}
}
