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

package crypto

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
)

// HeaderSize is the wire size of EncMessageHeader: exactly one block.
const HeaderSize = 16

// DataHashSize is the truncated SHA-256 length carried in the header.
const DataHashSize = 7

// Header is the 16-byte EncMessageHeader. The wire format is explicitly
// little-endian regardless of host byte order — the original
// implementation used native byte order here, which the design notes
// flag as a portability bug to fix in any rewrite.
type Header struct {
	DataSize          uint32
	ParameterOrResult int32
	MsgType           byte
	DataHash          [DataHashSize]byte
}

// Encode serializes the header to exactly HeaderSize bytes.
func (h Header) Encode() [HeaderSize]byte {
	var out [HeaderSize]byte
	binary.LittleEndian.PutUint32(out[0:4], h.DataSize)
	binary.LittleEndian.PutUint32(out[4:8], uint32(h.ParameterOrResult))
	out[8] = h.MsgType
	copy(out[9:16], h.DataHash[:])
	return out
}

// DecodeHeader parses a 16-byte wire block into a Header.
func DecodeHeader(b []byte) Header {
	var h Header
	h.DataSize = binary.LittleEndian.Uint32(b[0:4])
	h.ParameterOrResult = int32(binary.LittleEndian.Uint32(b[4:8]))
	h.MsgType = b[8]
	copy(h.DataHash[:], b[9:16])
	return h
}

// ComputeDataHash hashes the header's first 9 bytes (everything but the
// hash field itself) concatenated with data, truncated to DataHashSize.
func ComputeDataHash(headerPrefix [9]byte, data []byte) [DataHashSize]byte {
	hash := sha256.New()
	hash.Write(headerPrefix[:])
	hash.Write(data)
	sum := hash.Sum(nil)
	var out [DataHashSize]byte
	copy(out[:], sum[:DataHashSize])
	return out
}

// HeaderPrefix extracts the 9 hashed bytes (data_size, parameter_or_result,
// msg_type) from an encoded header.
func HeaderPrefix(encoded [HeaderSize]byte) [9]byte {
	var out [9]byte
	copy(out[:], encoded[:9])
	return out
}

// VerifyDataHash recomputes the data hash and compares it in constant
// time against the header's carried hash, per the design note calling
// for constant-time comparison in place of the original's byte compare.
func VerifyDataHash(h Header, data []byte) bool {
	encoded := h.Encode()
	got := ComputeDataHash(HeaderPrefix(encoded), data)
	return subtle.ConstantTimeCompare(got[:], h.DataHash[:]) == 1
}

// ConstantTimeEqual compares two equal-length byte slices without
// branching on their content, used for HMAC and challenge comparisons.
func ConstantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
