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

package handlers

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"errors"

	"go.uber.org/zap"

	"github.com/jwhitham/pico-wifi-settings/flashrange"
	"github.com/jwhitham/pico-wifi-settings/remote/session"
	"github.com/jwhitham/pico-wifi-settings/settings"
)

// memKindFlash/memKindSRAM are carried in the request's in_param to pick
// which address space READ_HANDLER reads from.
const (
	memKindFlash int32 = 0
	memKindSRAM  int32 = 1
)

// ReadHandler implements the memory-access-option READ_HANDLER: given a
// (start, size) request it refuses any range outside flash or the given
// SRAM window and copies the bytes into the reply buffer.
func ReadHandler(layout flashrange.Layout, flasher settings.Flasher, sramBase, sramSize uint32) session.Handler {
	return session.Handler{
		Stage1: func(msgType byte, data *[session.MaxDataSize]byte, inSize int, inParam int32, outSize *int) int32 {
			*outSize = 0
			if inSize != 8 {
				return -1
			}
			offset := binary.LittleEndian.Uint32(data[0:4])
			size := binary.LittleEndian.Uint32(data[4:8])
			if size == 0 || size > session.MaxDataSize {
				return -1
			}
			req := flashrange.FlashRange{StartOffset: offset, Size: size}

			var raw []byte
			var err error
			switch inParam {
			case memKindFlash:
				if !layout.All().Contains(req) {
					return -1
				}
				raw, err = flasher.ReadRange(offset, size)
			case memKindSRAM:
				if offset < sramBase || req.End() > sramBase+sramSize {
					return -1
				}
				raw, err = readSRAM(offset, size)
			default:
				return -1
			}
			if err != nil {
				return -1
			}
			n := copy(data[:], raw)
			*outSize = n
			return int32(n)
		},
	}
}

// readSRAM does not read memory: on every build it returns size zero
// bytes. The SRAM window bounds check is done by ReadHandler before it
// calls this.
func readSRAM(offset, size uint32) ([]byte, error) {
	return make([]byte, size), nil
}

// WriteFlashHandler implements the memory-access-option
// WRITE_FLASH_HANDLER: the target flash offset is carried in in_param and
// the whole request payload is the data to write. The target address
// must be sector-aligned, the size a whole number of sectors, and the
// whole range must lie within the reusable region. Erases, programs, and
// verifies by readback.
func WriteFlashHandler(layout flashrange.Layout, sectorSize uint32, flasher settings.Flasher, log *zap.Logger) session.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return session.Handler{
		Stage1: func(msgType byte, data *[session.MaxDataSize]byte, inSize int, inParam int32, outSize *int) int32 {
			*outSize = 0
			offset := uint32(inParam)
			payload := data[:inSize]
			target := flashrange.FlashRange{StartOffset: offset, Size: uint32(len(payload))}
			if !target.IsSectorAligned(sectorSize) {
				log.Warn("write_flash: misaligned target", zap.Uint32("offset", offset), zap.Int("size", len(payload)))
				return -1
			}
			if !layout.Reusable().Contains(target) {
				log.Warn("write_flash: target outside reusable region", zap.Uint32("offset", offset))
				return -1
			}
			if err := writeAndVerify(flasher, offset, payload); err != nil {
				log.Error("write_flash failed", zap.Error(err))
				return -1
			}
			return int32(len(payload))
		},
	}
}

func writeAndVerify(flasher settings.Flasher, offset uint32, payload []byte) error {
	return flasher.SafeExecute(func() error {
		size := uint32(len(payload))
		if err := flasher.EraseRange(offset, size); err != nil {
			return err
		}
		for off := uint32(0); off < size; off += settings.PageSize {
			end := off + settings.PageSize
			if end > size {
				end = size
			}
			page := make([]byte, settings.PageSize)
			for i := range page {
				page[i] = 0xFF
			}
			copy(page, payload[off:end])
			if err := flasher.ProgramPage(offset+off, page); err != nil {
				return err
			}
		}
		readback, err := flasher.ReadRange(offset, size)
		if err != nil {
			return err
		}
		if subtle.ConstantTimeCompare(readback, payload) != 1 {
			return errVerifyMismatch
		}
		return nil
	})
}

var errVerifyMismatch = errors.New("write_flash: readback did not match")

// otaRequestSize is the fixed layout of an OTA validation request:
// source offset, target offset, size (all uint32, little-endian),
// followed by the SHA-256 of the source range's current contents.
const otaRequestSize = 4 + 4 + 4 + sha256.Size

func parseOTARequest(data []byte) (source, target flashrange.FlashRange, hash [sha256.Size]byte, ok bool) {
	if len(data) != otaRequestSize {
		return source, target, hash, false
	}
	sourceOff := binary.LittleEndian.Uint32(data[0:4])
	targetOff := binary.LittleEndian.Uint32(data[4:8])
	size := binary.LittleEndian.Uint32(data[8:12])
	copy(hash[:], data[12:12+sha256.Size])
	return flashrange.FlashRange{StartOffset: sourceOff, Size: size},
		flashrange.FlashRange{StartOffset: targetOff, Size: size}, hash, true
}

// OTAFirmwareUpdateHandler validates an OTA request in stage-1 — both
// ranges must be sector-aligned; the source must lie in the reusable
// region and the target in the whole-flash region; source and target
// must not overlap each other or the settings region; and the source's
// current contents must hash to the caller-supplied SHA-256 — then, in
// stage-2, copies source to target sector-by-sector and resets, but only
// if stage-1's validation actually passed.
func OTAFirmwareUpdateHandler(layout flashrange.Layout, sectorSize uint32, flasher settings.Flasher, reboot Rebooter, log *zap.Logger) session.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return session.Handler{
		Stage1: func(msgType byte, data *[session.MaxDataSize]byte, inSize int, inParam int32, outSize *int) int32 {
			source, target, wantHash, ok := parseOTARequest(data[:inSize])
			*outSize = inSize // preserve the request for stage-2 to re-parse
			if !ok {
				return -1
			}
			if !source.IsSectorAligned(sectorSize) || !target.IsSectorAligned(sectorSize) {
				log.Warn("ota: misaligned range")
				return -1
			}
			if !layout.Reusable().Contains(source) {
				log.Warn("ota: source outside reusable region")
				return -1
			}
			if !layout.All().Contains(target) {
				log.Warn("ota: target outside flash")
				return -1
			}
			if source.Overlaps(target) {
				log.Warn("ota: source/target overlap")
				return -1
			}
			if target.Overlaps(layout.Settings()) {
				log.Warn("ota: target overlaps settings region")
				return -1
			}
			sourceBytes, err := flasher.ReadRange(source.StartOffset, source.Size)
			if err != nil {
				log.Error("ota: read source failed", zap.Error(err))
				return -1
			}
			actualHash := sha256.Sum256(sourceBytes)
			if subtle.ConstantTimeCompare(actualHash[:], wantHash[:]) != 1 {
				log.Warn("ota: source hash mismatch")
				return -1
			}
			return 0
		},
		Stage2: otaStage2(flasher, reboot),
	}
}

func otaStage2(flasher settings.Flasher, reboot Rebooter) session.Stage2Func {
	return func(data *[session.MaxDataSize]byte, size int, param int32) {
		if param < 0 {
			return
		}
		source, target, _, ok := parseOTARequest(data[:size])
		if !ok {
			return
		}
		_ = flasher.SafeExecute(func() error {
			sourceBytes, err := flasher.ReadRange(source.StartOffset, source.Size)
			if err != nil {
				return err
			}
			if err := flasher.EraseRange(target.StartOffset, target.Size); err != nil {
				return err
			}
			for off := uint32(0); off < target.Size; off += settings.PageSize {
				end := off + settings.PageSize
				if end > target.Size {
					end = target.Size
				}
				page := make([]byte, settings.PageSize)
				for i := range page {
					page[i] = 0xFF
				}
				copy(page, sourceBytes[off:end])
				if err := flasher.ProgramPage(target.StartOffset+off, page); err != nil {
					return err
				}
			}
			return nil
		})
		if reboot != nil {
			reboot.Reboot()
		}
	}
}
