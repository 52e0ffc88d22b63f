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

// Package discovery implements the UDP Discovery Responder: a board
// announces its board ID to any client that asks for a substring match,
// without needing to know an IP address in advance.
package discovery

import (
	"net"
	"strings"

	"go.uber.org/zap"
)

const (
	requestMagic = "PWS?"
	replyMagic   = "PWS:"
	// maxQueryLen bounds the hex-prefix-plus-NUL window in the request
	// packet: magic (4 B) + up to 16 hex chars + NUL, 21 B total.
	maxQueryLen = 16
)

// Responder answers discovery queries with BoardID whenever the query is
// a substring of it.
type Responder struct {
	BoardID string
	log     *zap.Logger
}

// NewResponder constructs a Responder for the given board ID.
func NewResponder(boardID string, log *zap.Logger) *Responder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Responder{BoardID: boardID, log: log}
}

// Handle parses one request packet and returns the reply to send, or
// ok=false if the packet is malformed or does not match and should be
// silently dropped.
func (r *Responder) Handle(packet []byte) (reply []byte, ok bool) {
	if len(packet) < len(requestMagic)+1 || string(packet[:len(requestMagic)]) != requestMagic {
		return nil, false
	}
	rest := packet[len(requestMagic):]
	nul := -1
	for i, b := range rest {
		if b == 0 {
			nul = i
			break
		}
	}
	if nul < 0 || nul > maxQueryLen {
		return nil, false
	}
	// An empty query is a valid substring of every board ID (same as
	// strstr(board_id, "") in the original responder), so it always
	// matches and replies with the full board ID.
	query := string(rest[:nul])
	if !strings.Contains(r.BoardID, query) {
		return nil, false
	}
	return []byte(replyMagic + r.BoardID), true
}

// ListenAndServe runs the responder loop against a net.PacketConn — the
// Linux build's UDP socket, or the hardware build's adapter over the
// seqs packet stack's UDP endpoint. It blocks until the connection
// errors or is closed.
func (r *Responder) ListenAndServe(pc net.PacketConn) error {
	buf := make([]byte, 64)
	for {
		n, addr, err := pc.ReadFrom(buf)
		if err != nil {
			return err
		}
		reply, ok := r.Handle(buf[:n])
		if !ok {
			continue
		}
		if _, err := pc.WriteTo(reply, addr); err != nil {
			r.log.Warn("discovery reply failed", zap.Error(err))
		}
	}
}
