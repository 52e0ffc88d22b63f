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

// Layout answers the four standing queries: where the running program
// lives, where the reusable area is, where the settings blob is, and the
// extent of the whole flash chip.
type Layout struct {
	FlashSize      uint32
	SectorSize     uint32
	ProgramEnd     uint32 // offset immediately after the linked program image
	SettingsSize   uint32
	ReservedTail   uint32 // bytes at the top of flash the platform reserves (e.g. boot2/partition table)
	LogicalBase    uintptr
}

// Program is the region occupied by the running program image, offset 0
// through ProgramEnd, sector-aligned.
func (l Layout) Program() FlashRange {
	return FlashRange{StartOffset: 0, Size: l.ProgramEnd}.AlignSector(l.SectorSize)
}

// Settings is the fixed-size settings blob region, immediately below the
// reserved tail.
func (l Layout) Settings() FlashRange {
	start := l.FlashSize - l.ReservedTail - l.SettingsSize
	return FlashRange{StartOffset: start, Size: l.SettingsSize}.AlignSector(l.SectorSize)
}

// Reusable is everything between the end of the program and the start of
// the settings region (and always excludes the reserved tail).
func (l Layout) Reusable() FlashRange {
	prog := l.Program()
	set := l.Settings()
	if set.StartOffset <= prog.End() {
		return FlashRange{StartOffset: prog.End(), Size: 0}
	}
	return FlashRange{StartOffset: prog.End(), Size: set.StartOffset - prog.End()}
}

// All is the whole-flash region.
func (l Layout) All() FlashRange {
	return FlashRange{StartOffset: 0, Size: l.FlashSize}
}

// ToLogical translates r using this layout's base offset.
func (l Layout) ToLogical(r FlashRange) LogicalRange {
	return ToLogical(r, l.LogicalBase)
}
