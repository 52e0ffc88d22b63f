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
	"testing"

	"github.com/jwhitham/pico-wifi-settings/internal/errs"
)

// fakeFlasher is an in-memory Flasher used to test Store without real
// hardware, counting primitive calls the way spec §8's round-trip
// property expects.
type fakeFlasher struct {
	mem           []byte
	erases        int
	programs      int
	corruptOffset int // if >= 0, flips a bit at this offset right after programming, before verify
}

func newFakeFlasher(size uint32) *fakeFlasher {
	return &fakeFlasher{mem: make([]byte, size), corruptOffset: -1}
}

func (f *fakeFlasher) EraseRange(offset, size uint32) error {
	f.erases++
	for i := uint32(0); i < size; i++ {
		f.mem[offset+i] = 0xFF
	}
	return nil
}

func (f *fakeFlasher) ProgramPage(offset uint32, page []byte) error {
	f.programs++
	copy(f.mem[offset:], page)
	if f.corruptOffset >= 0 {
		idx := uint32(f.corruptOffset)
		f.mem[idx] ^= 0x01
		f.corruptOffset = -1
	}
	return nil
}

func (f *fakeFlasher) ReadRange(offset, size uint32) ([]byte, error) {
	out := make([]byte, size)
	copy(out, f.mem[offset:offset+size])
	return out, nil
}

func (f *fakeFlasher) SafeExecute(fn func() error) error {
	return fn()
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func TestSaveRoundTripSizeMatrix(t *testing.T) {
	const settingsSize = 4096
	sizes := []int{0, 1, PageSize - 1, PageSize, PageSize + 1, settingsSize - PageSize - 13, settingsSize - 1, settingsSize}

	for _, size := range sizes {
		flasher := newFakeFlasher(settingsSize)
		store := NewStore(flasher, 0, settingsSize, nil)
		blob := make([]byte, size)
		for i := range blob {
			blob[i] = byte('a' + i%26)
		}

		if err := store.Save(blob); err != nil {
			t.Fatalf("size=%d: Save failed: %v", size, err)
		}
		if flasher.erases != 1 {
			t.Fatalf("size=%d: erases=%d, want 1", size, flasher.erases)
		}
		wantPrograms := ceilDiv(size, PageSize)
		if flasher.programs != wantPrograms {
			t.Fatalf("size=%d: programs=%d, want %d", size, flasher.programs, wantPrograms)
		}
	}
}

func TestSaveCorruptionDetected(t *testing.T) {
	const settingsSize = 4096
	flasher := newFakeFlasher(settingsSize)
	flasher.corruptOffset = 10
	store := NewStore(flasher, 0, settingsSize, nil)

	err := store.Save([]byte("ssid1=home\npass1=secret\n"))
	if err != errs.InvalidData {
		t.Fatalf("got %v, want InvalidData", err)
	}
}

func TestSaveRejectsOversizeWithoutErasing(t *testing.T) {
	const settingsSize = 4096
	flasher := newFakeFlasher(settingsSize)
	store := NewStore(flasher, 0, settingsSize, nil)

	blob := make([]byte, settingsSize+1)
	err := store.Save(blob)
	if err != errs.InvalidArg {
		t.Fatalf("got %v, want InvalidArg", err)
	}
	if flasher.erases != 0 {
		t.Fatal("oversize blob must not trigger an erase")
	}
}

func TestSaveShortBlobVerifiesTrailingFF(t *testing.T) {
	const settingsSize = 4096
	flasher := newFakeFlasher(settingsSize)
	store := NewStore(flasher, 0, settingsSize, nil)

	if err := store.Save([]byte("a=1\n")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if flasher.mem[4] != 0xFF {
		t.Fatal("byte after short blob should read 0xFF")
	}
}
