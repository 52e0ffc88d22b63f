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

// Package main wires the Flash Range, Settings Store, Connection
// Manager, Remote Control Service, and Discovery Responder together:
// one small platform-specific file per build tag constructs the
// concrete device, radio, and listener, and run (build-tag free) does
// the rest.
package main

import (
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/jwhitham/pico-wifi-settings/connmgr"
	"github.com/jwhitham/pico-wifi-settings/flashrange"
	picowifi "github.com/jwhitham/pico-wifi-settings"
	rcrypto "github.com/jwhitham/pico-wifi-settings/remote/crypto"
	"github.com/jwhitham/pico-wifi-settings/remote/discovery"
	"github.com/jwhitham/pico-wifi-settings/remote/handlers"
	"github.com/jwhitham/pico-wifi-settings/remote/session"
	"github.com/jwhitham/pico-wifi-settings/settings"
)

// RemotePort is the fixed TCP/UDP port for the Remote Control Service
// and Discovery Responder, per spec §6.
const RemotePort = 1404

// VersionText is stamped into the greeting and PICO_INFO_HANDLER reply.
var VersionText = "pico-wifi-settings/dev"

// boardTransport adapts a net.Conn to session.Transport.
type boardTransport struct {
	conn net.Conn
}

func (t *boardTransport) Write(block []byte) (session.WriteResult, error) {
	_, err := t.conn.Write(block)
	if err != nil {
		return session.WriteError, err
	}
	return session.WriteAccepted, nil
}

func (t *boardTransport) Close() { t.conn.Close() }

// runRemoteSession drives one session synchronously to completion; the
// spec's listener backlog of 1 means only one session is ever active, so
// a single goroutine per accepted connection is sufficient.
func runRemoteSession(conn net.Conn, registry session.Registry, secret rcrypto.Core, boardID string, log *zap.Logger) {
	defer conn.Close()
	transport := &boardTransport{conn: conn}
	s := session.New(transport, registry, secret, boardID, VersionText, nil, log)
	s.Start()

	buf := make([]byte, 256)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			s.OnRecv(buf[:n])
		}
		if err != nil {
			s.OnErr(err)
			return
		}
		if s.State() == session.Disconnect {
			return
		}
		s.OnSent()
	}
}

// acceptLoop enforces a backlog of 1: only the first pending connection
// is served; any further connection that arrives while one is active is
// accepted and closed immediately with no bytes written.
func acceptLoop(listener net.Listener, registry session.Registry, secretRef func() rcrypto.Core, boardID string, log *zap.Logger) {
	busy := make(chan struct{}, 1)
	busy <- struct{}{}
	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Error("accept failed", zap.Error(err))
			return
		}
		select {
		case <-busy:
			go func() {
				runRemoteSession(conn, registry, secretRef(), boardID, log)
				busy <- struct{}{}
			}()
		default:
			conn.Close()
		}
	}
}

// buildRegistry installs every built-in handler.
func buildRegistry(layout flashrange.Layout, store *settings.Store, mgr *connmgr.Manager, boardID string,
	flasher settings.Flasher, reboot handlers.Rebooter, onSettingsRefreshed handlers.SettingsRefreshed, log *zap.Logger) *handlers.Table {

	table := handlers.NewTable()
	table.Register(handlers.IDPicoInfo, handlers.PicoInfoHandler(layout, boardID, VersionText, mgr))
	table.Register(handlers.IDUpdate, handlers.UpdateHandler(store, onSettingsRefreshed, log))
	table.Register(handlers.IDUpdateReboot, handlers.UpdateRebootHandler(store, reboot, true))
	table.Register(handlers.IDRead, handlers.ReadHandler(layout, flasher, 0x20000000, 256*1024))
	table.Register(handlers.IDWriteFlash, handlers.WriteFlashHandler(layout, layout.SectorSize, flasher, log))
	table.Register(handlers.IDOTAUpdate, handlers.OTAFirmwareUpdateHandler(layout, layout.SectorSize, flasher, reboot, log))
	return table
}

// run starts the Connection Manager's periodic worker, the Remote
// Control Service listener, and the Discovery Responder, and blocks
// until the Discovery Responder's loop returns, passing on its error.
// It is shared by every platform's main().
func run(dev picowifi.Device, radio connmgr.Radio, store *settings.Store, layout flashrange.Layout,
	listener net.Listener, packetConn net.PacketConn, reboot handlers.Rebooter, log *zap.Logger) error {

	settingsReader := settings.SlotReader{Store: store}
	mgr := connmgr.NewManager(radio, settingsReader, log)
	if err := mgr.Init(); err != nil {
		return err
	}
	mgr.Connect()

	go func() {
		for {
			mgr.Tick(time.Now())
			time.Sleep(connmgr.PeriodicTimeMS * time.Millisecond)
		}
	}()

	boardID := dev.BoardID()
	blob, _ := store.Load()
	secretRaw, _ := blob.Lookup("update_secret")
	secret := rcrypto.DeriveSecret(secretRaw)
	currentSecret := secret

	onRefreshed := func(newSecret rcrypto.Core, newHostname string) {
		currentSecret = newSecret
		mgr.Context.Hostname = newHostname
	}

	table := buildRegistry(layout, store, mgr, boardID, store.Flasher, reboot, onRefreshed, log)

	go acceptLoop(listener, table, func() rcrypto.Core { return currentSecret }, boardID, log)

	responder := discovery.NewResponder(boardID, log)
	return responder.ListenAndServe(packetConn)
}
