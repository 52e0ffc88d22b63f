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

package flashrange

import "testing"

func TestAlignSector(t *testing.T) {
	r := FlashRange{StartOffset: 4097, Size: 10}
	aligned := r.AlignSector(4096)
	if aligned.StartOffset != 4096 {
		t.Fatalf("start = %d, want 4096", aligned.StartOffset)
	}
	if aligned.Size != 4096 {
		t.Fatalf("size = %d, want 4096", aligned.Size)
	}
}

func TestContainsAndOverlaps(t *testing.T) {
	outer := FlashRange{StartOffset: 0, Size: 100}
	inner := FlashRange{StartOffset: 10, Size: 20}
	if !outer.Contains(inner) {
		t.Fatal("expected outer to contain inner")
	}
	disjoint := FlashRange{StartOffset: 100, Size: 10}
	if outer.Overlaps(disjoint) {
		t.Fatal("adjacent ranges should not overlap")
	}
	touching := FlashRange{StartOffset: 99, Size: 10}
	if !outer.Overlaps(touching) {
		t.Fatal("expected overlap at shared byte 99")
	}
}

func TestLayoutRegionsDoNotOverlap(t *testing.T) {
	l := Layout{
		FlashSize:    2 * 1024 * 1024,
		SectorSize:   4096,
		ProgramEnd:   512 * 1024,
		SettingsSize: 4096,
		ReservedTail: 4096,
	}
	prog := l.Program()
	reusable := l.Reusable()
	settings := l.Settings()

	if prog.Overlaps(reusable) {
		t.Fatal("program overlaps reusable")
	}
	if reusable.Overlaps(settings) {
		t.Fatal("reusable overlaps settings")
	}
	if !l.All().Contains(settings) {
		t.Fatal("settings region not contained in whole flash")
	}
}

func TestIsSectorAligned(t *testing.T) {
	aligned := FlashRange{StartOffset: 4096, Size: 8192}
	if !aligned.IsSectorAligned(4096) {
		t.Fatal("expected aligned range to report aligned")
	}
	unaligned := FlashRange{StartOffset: 100, Size: 8192}
	if unaligned.IsSectorAligned(4096) {
		t.Fatal("expected unaligned start to report unaligned")
	}
}
