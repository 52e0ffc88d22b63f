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

package discovery

import "testing"

func TestDiscoveryMatchingSubstringReplies(t *testing.T) {
	r := NewResponder("00E6614854ABCDEF", nil)
	req := append([]byte("PWS?"), append([]byte("E6614854"), 0)...)
	reply, ok := r.Handle(req)
	if !ok {
		t.Fatal("expected a reply for a matching substring")
	}
	want := "PWS:00E6614854ABCDEF"
	if string(reply) != want {
		t.Fatalf("reply = %q, want %q", reply, want)
	}
}

func TestDiscoveryNonMatchingQueryIsDropped(t *testing.T) {
	r := NewResponder("00E6614854ABCDEF", nil)
	req := append([]byte("PWS?"), append([]byte("FFFFFFFF"), 0)...)
	if _, ok := r.Handle(req); ok {
		t.Fatal("expected no reply for a non-matching query")
	}
}

func TestDiscoveryWrongMagicIsDropped(t *testing.T) {
	r := NewResponder("00E6614854ABCDEF", nil)
	req := append([]byte("XXXX"), append([]byte("00E6"), 0)...)
	if _, ok := r.Handle(req); ok {
		t.Fatal("expected no reply for wrong magic")
	}
}

func TestDiscoveryMissingNULIsDropped(t *testing.T) {
	r := NewResponder("00E6614854ABCDEF", nil)
	req := append([]byte("PWS?"), []byte("E6614854")...) // no NUL terminator
	if _, ok := r.Handle(req); ok {
		t.Fatal("expected no reply when the NUL terminator is missing")
	}
}

func TestDiscoveryEmptyQueryMatchesEveryBoard(t *testing.T) {
	r := NewResponder("00E6614854ABCDEF", nil)
	req := append([]byte("PWS?"), 0)
	reply, ok := r.Handle(req)
	if !ok {
		t.Fatal("expected a reply for an empty query")
	}
	want := "PWS:00E6614854ABCDEF"
	if string(reply) != want {
		t.Fatalf("reply = %q, want %q", reply, want)
	}
}
