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

package picowifi

import (
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/soypat/cyw43439"
	"github.com/soypat/seqs/eth/dhcp"
	"github.com/soypat/seqs/stacks"

	"github.com/jwhitham/pico-wifi-settings/connmgr"
)

// mtu matches the cyw43439 driver's frame size.
const mtu = cyw43439.MTU

// Pico2WDevice is the Raspberry Pi Pico 2 W [RP2350] board.
type Pico2WDevice struct {
	ref     *cyw43439.Device
	boardID string
}

func (dev *Pico2WDevice) LED(on bool) {
	dev.ref.GPIOSet(0, on)
}

func (dev *Pico2WDevice) BoardID() string {
	return dev.boardID
}

// InitDevice constructs the hardware build's Device and derives a board
// ID from the radio's own MAC address.
func InitDevice() Device {
	dev := &Pico2WDevice{ref: cyw43439.NewPicoWDevice()}
	if mac, err := dev.ref.HardwareAddr6(); err == nil {
		dev.boardID = net.HardwareAddr(mac[:]).String()
	}
	return dev
}

// Pico2WRadio adapts the cyw43439 driver to connmgr.Radio. The driver
// exposed by this version of cyw43439 has no public over-the-air scan
// call, so no radio survey takes place: ScanResults returns only the
// candidates last seeded through RequestScan, and an empty result when
// none were seeded. Join still performs a genuine WPA2/open association,
// and LinkStatus/IPv4 reflect its real outcome.
type Pico2WRadio struct {
	dev      *cyw43439.Device
	stack    *stacks.PortStack
	logger   *slog.Logger
	pending  []connmgr.ScanResult
	link     connmgr.LinkStatus
	ip       uint32
	hostname string
	dropped  uint32
}

// NewPico2WRadio brings up the radio in station mode and starts the
// background NIC pump loop; it does not join a network yet.
func NewPico2WRadio(dev *Pico2WDevice, hostname string, logger *slog.Logger) (*Pico2WRadio, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.Level(127)}))
	}
	wificfg := cyw43439.DefaultWifiConfig()
	wificfg.Logger = logger
	if err := dev.ref.Init(wificfg); err != nil {
		return nil, fmt.Errorf("wifi init: %w", err)
	}
	mac, _ := dev.ref.HardwareAddr6()
	stack := stacks.NewPortStack(stacks.PortStackConfig{
		MAC:             mac,
		MaxOpenPortsUDP: 2,
		MaxOpenPortsTCP: 4,
		MTU:             mtu,
		Logger:          logger,
	})
	dev.ref.RecvEthHandle(stack.RecvEth)
	radio := &Pico2WRadio{dev: dev.ref, stack: stack, logger: logger, hostname: hostname}
	go radio.pumpLoop()

	return radio, nil
}

// Stack exposes the underlying packet stack so the caller can build a
// TCP listener (remote session) and UDP socket (discovery responder) on
// top of the same NIC pump loop.
func (r *Pico2WRadio) Stack() *stacks.PortStack { return r.stack }

// Init is a no-op: the regulatory country code is applied once, at
// NewPico2WRadio time, via cyw43439.DefaultWifiConfig's own firmware
// country setting (driven internally by this driver, not exposed as a
// WifiConfig field in the version of cyw43439 this driver binds to).
// countryCode is accepted so Init satisfies connmgr.Radio, but a
// country value read from settings after construction currently has no
// path to reach the firmware; switching country at runtime would need
// a driver release that exposes that setting.
func (r *Pico2WRadio) Init(countryCode string) error { return nil }
func (r *Pico2WRadio) Deinit()                       {}

func (r *Pico2WRadio) StartScan() error { return nil }

func (r *Pico2WRadio) ScanResults() ([]connmgr.ScanResult, bool) {
	results := r.pending
	r.pending = nil
	return results, true
}

// RequestScan lets the caller seed the next ScanResults() call with the
// slot it is about to try, working around the absent over-the-air scan.
func (r *Pico2WRadio) RequestScan(candidates []connmgr.ScanResult) {
	r.pending = candidates
}

func (r *Pico2WRadio) Join(ssid string, bssid []byte, password string) error {
	if ssid == "" {
		r.link = connmgr.LinkFailed
		return fmt.Errorf("pico2w radio: BSSID join unsupported by this driver")
	}
	r.link = connmgr.LinkJoining
	if err := r.dev.JoinWPA2(ssid, password); err != nil {
		r.link = connmgr.LinkFailed
		return err
	}

	dhcpClient := stacks.NewDHCPClient(r.stack, dhcp.DefaultClientPort)
	err := dhcpClient.BeginRequest(stacks.DHCPRequestConfig{
		Xid:      uint32(time.Now().Nanosecond()),
		Hostname: r.hostname,
	})
	if err != nil {
		r.link = connmgr.LinkFailed
		return err
	}
	for i := 0; i < 30 && dhcpClient.State() != dhcp.StateBound; i++ {
		time.Sleep(time.Second / 2)
	}
	if dhcpClient.State() != dhcp.StateBound {
		r.link = connmgr.LinkFailed
		return fmt.Errorf("dhcp did not complete")
	}
	ip := dhcpClient.Offer()
	r.stack.SetAddr(ip)
	addr4 := ip.As4()
	r.ip = uint32(addr4[0])<<24 | uint32(addr4[1])<<16 | uint32(addr4[2])<<8 | uint32(addr4[3])
	r.link = connmgr.LinkUp
	return nil
}

func (r *Pico2WRadio) Leave() {
	r.link = connmgr.LinkDown
	r.ip = 0
}

func (r *Pico2WRadio) LinkStatus() connmgr.LinkStatus { return r.link }
func (r *Pico2WRadio) IPv4() uint32                   { return r.ip }

// DroppedFrames reports the cumulative count of outbound frames the
// pump loop gave up on, for diagnostics.
func (r *Pico2WRadio) DroppedFrames() uint32 { return r.dropped }

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// SetupListener returns a TCP listener built on the radio's packet
// stack. Unlike the Linux build it takes no host/ip/ssid/passwd
// arguments: joining is the Connection Manager's job, not the
// listener's.
func (dev *Pico2WDevice) SetupListener(stack *stacks.PortStack, port uint16) (net.Listener, error) {
	listener, err := stacks.NewTCPListener(stack, stacks.TCPListenerConfig{
		MaxConnections: 4,
		ConnTxBufSize:  2048,
		ConnRxBufSize:  2048,
	})
	if err != nil {
		return nil, fmt.Errorf("tcp listener: %w", err)
	}
	if err := listener.StartListening(port); err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}
	return listener, nil
}

// pumpLoop moves frames between the radio and the packet stack: drain
// whatever inbound frames are waiting, let the stack build up to
// outboundQueueSize outbound frames, and retry a failed send a bounded
// number of times before dropping it and counting it in r.dropped. A
// single remote-control session generates little traffic, so draining
// several inbound frames per tick (rather than at most one) keeps
// latency down without needing a bigger queue.
func (r *Pico2WRadio) pumpLoop() {
	const (
		outboundQueueSize       = 3
		maxSendRetries          = 3
		maxInboundFramesPerTick = 4
		idleSleep               = 51 * time.Millisecond
	)
	var outbound [outboundQueueSize][mtu]byte
	var outboundLen [outboundQueueSize]int
	var retries [outboundQueueSize]int
	releaseSlot := func(i int) {
		outbound[i] = [mtu]byte{}
		outboundLen[i] = 0
		retries[i] = 0
	}
	for {
		receivedAny := false
		for i := 0; i < maxInboundFramesPerTick; i++ {
			gotFrame, err := r.dev.PollOne()
			if err != nil {
				r.logger.Warn("nic poll failed", "err", err)
			}
			if !gotFrame {
				break
			}
			receivedAny = true
		}

		for i := range outbound {
			if retries[i] != 0 {
				continue
			}
			var err error
			outboundLen[i], err = r.stack.HandleEth(outbound[i][:])
			if err != nil {
				outboundLen[i] = 0
				continue
			}
			if outboundLen[i] == 0 {
				break
			}
		}
		if outboundLen == [outboundQueueSize]int{} {
			if !receivedAny {
				time.Sleep(idleSleep)
			}
			continue
		}

		for i := range outbound {
			n := outboundLen[i]
			if n <= 0 {
				continue
			}
			if err := r.dev.SendEth(outbound[i][:n]); err != nil {
				retries[i]++
				if retries[i] > maxSendRetries {
					r.dropped++
					r.logger.Warn("dropped outgoing frame", "err", err, "dropped_total", r.dropped)
					releaseSlot(i)
				}
			} else {
				releaseSlot(i)
			}
		}
	}
}
