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
	"bytes"

	"github.com/jwhitham/pico-wifi-settings/internal/errs"
	"github.com/jwhitham/pico-wifi-settings/internal/logging"
	"go.uber.org/zap"
)

// PageSize is the typical flash program granularity.
const PageSize = 256

// Flasher is the platform-provided primitive set the store writes
// through. SafeExecute must quiesce every other execution context and
// disable interrupts for the duration of fn, per the platform's
// safe-flash-execute contract.
type Flasher interface {
	EraseRange(offset, size uint32) error
	ProgramPage(offset uint32, page []byte) error
	ReadRange(offset, size uint32) ([]byte, error)
	SafeExecute(fn func() error) error
}

// Store owns the settings region: its flash offset, its fixed size
// (SETTINGS_SIZE), and the Flasher used to persist it.
type Store struct {
	Flasher Flasher
	Offset  uint32
	Size    uint32
	log     *zap.Logger
}

// NewStore constructs a Store. A nil logger falls back to the
// process-wide logger from logging.L(), which is silent unless
// logging.Init configured a level.
func NewStore(f Flasher, offset, size uint32, log *zap.Logger) *Store {
	if log == nil {
		log = logging.L()
	}
	return &Store{Flasher: f, Offset: offset, Size: size, log: log}
}

// Load reads the whole settings region into memory as a Blob.
func (s *Store) Load() (Blob, error) {
	raw, err := s.Flasher.ReadRange(s.Offset, s.Size)
	if err != nil {
		return nil, err
	}
	return Blob(raw), nil
}

// Save writes blob (which must be at most s.Size bytes) to the settings
// region: erase, page-program (padding the final short page with 0xFF),
// verify by readback, and — if the blob is shorter than the region — a
// trailing 0xFF check that the terminator byte immediately following
// the written data is actually unwritten. Every primitive runs inside
// the Flasher's safe-execute scope.
func (s *Store) Save(blob []byte) error {
	if uint32(len(blob)) > s.Size {
		return errs.InvalidArg
	}

	return s.Flasher.SafeExecute(func() error {
		if err := s.Flasher.EraseRange(s.Offset, s.Size); err != nil {
			return err
		}

		for pageOff := 0; pageOff < len(blob); pageOff += PageSize {
			end := pageOff + PageSize
			if end > len(blob) {
				end = len(blob)
			}
			page := blob[pageOff:end]
			if len(page) < PageSize {
				padded := make([]byte, PageSize)
				copy(padded, page)
				for i := len(page); i < PageSize; i++ {
					padded[i] = 0xFF
				}
				page = padded
			}
			if err := s.Flasher.ProgramPage(s.Offset+uint32(pageOff), page); err != nil {
				return err
			}
		}

		written, err := s.Flasher.ReadRange(s.Offset, uint32(len(blob)))
		if err != nil {
			return err
		}
		if !bytes.Equal(written, blob) {
			s.log.Warn("settings verify mismatch", zap.Int("size", len(blob)))
			return errs.InvalidData
		}

		if uint32(len(blob)) < s.Size {
			tail, err := s.Flasher.ReadRange(s.Offset+uint32(len(blob)), 1)
			if err != nil {
				return err
			}
			if len(tail) != 1 || tail[0] != 0xFF {
				s.log.Warn("settings terminator byte not 0xFF after save")
				return errs.InvalidData
			}
		}
		return nil
	})
}
