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
	"sync/atomic"
	"time"

	"github.com/jwhitham/pico-wifi-settings/connmgr"
	"github.com/jwhitham/pico-wifi-settings/internal/errs"
)

// Status drives the board LED in a blink pattern that encodes the
// Connection Manager's state and the last application-level error code,
// so a board with no serial console attached still reports its health.
type Status struct {
	dev  Device
	curr atomic.Int32 // connmgr.State, or a negative errs.Code
}

// NewStatus starts the background blink loop.
func NewStatus(dev Device) *Status {
	s := new(Status)
	s.dev = dev
	go s.run()
	return s
}

func (s *Status) run() {
	for {
		time.Sleep(5 * time.Second)
		num := int(s.curr.Load())
		if num < 0 {
			num = -num
		}
		for num > 5 {
			s.dev.LED(true)
			time.Sleep(1000 * time.Millisecond)
			s.dev.LED(false)
			time.Sleep(300 * time.Millisecond)
			num -= 5
		}
		for i := 0; i < num; i++ {
			s.dev.LED(true)
			time.Sleep(150 * time.Millisecond)
			s.dev.LED(false)
			time.Sleep(150 * time.Millisecond)
		}
	}
}

// SetState reports the Connection Manager's current state by blinking
// its ordinal value on every cycle of the blink loop.
func (s *Status) SetState(state connmgr.State) {
	s.curr.Store(int32(state))
}

// SetError reports an application error code, encoded as a negative
// value so the blink loop can tell it apart from a connection state.
func (s *Status) SetError(code errs.Code) {
	s.curr.Store(-int32(code))
}

// Get returns the raw encoded value currently being blinked.
func (s *Status) Get() int32 {
	return s.curr.Load()
}

// Trap recovers a panic from the calling goroutine and reports it as
// errs.Generic before the loop it guards continues, mirroring the
// invariant-violation-as-panic design note: a violated invariant blinks
// an error code rather than taking the whole board down.
func (s *Status) Trap(pause time.Duration) {
	if r := recover(); r != nil {
		s.SetError(errs.Generic)
	}
	time.Sleep(pause)
}
