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

// Package crypto implements the Remote Crypto Core: hashed-secret
// derivation, HMAC-SHA-256 challenge binding, AES-256-CBC block crypto
// with per-direction chained IVs, and the authenticated 16-byte message
// header. Uses the standard library's crypto primitives directly; see
// DESIGN.md for why no pack dependency fits here better.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
)

// StretchRounds is the number of SHA-256 iterations used to turn a raw
// shared secret into a fixed 32-byte hashed key.
const StretchRounds = 4096

// ChallengeSize is the length of both the client and server challenges.
const ChallengeSize = 15

// Core holds the hashed secret derived from the settings store's
// update_secret value.
type Core struct {
	HashedKey [32]byte
	Valid     bool
}

// DeriveSecret stretches raw into a Core. An empty secret yields an
// invalid Core (Valid=false, HashedKey all zero): an unconfigured
// update secret disables remote authentication rather than accepting
// every request.
func DeriveSecret(raw []byte) Core {
	if len(raw) == 0 {
		return Core{}
	}
	var h [32]byte
	buf := make([]byte, 0, len(h)+len(raw))
	for i := 0; i < StretchRounds; i++ {
		buf = buf[:0]
		buf = append(buf, h[:]...)
		buf = append(buf, raw...)
		h = sha256.Sum256(buf)
	}
	return Core{HashedKey: h, Valid: true}
}

// GenerateAuth computes HMAC-SHA-256 keyed by the hashed secret over
// clientChallenge || serverChallenge || tag, truncated to outLen bytes.
// tag is the 2-byte ASCII context code ("CA", "SA", "CK", "SK").
func (c Core) GenerateAuth(clientChallenge, serverChallenge []byte, tag string, outLen int) []byte {
	mac := hmac.New(sha256.New, c.HashedKey[:])
	mac.Write(clientChallenge)
	mac.Write(serverChallenge)
	mac.Write([]byte(tag))
	sum := mac.Sum(nil)
	if outLen > len(sum) {
		outLen = len(sum)
	}
	return sum[:outLen]
}

// Stream is one direction of the AES-256-CBC block cipher, chaining its
// IV across every block crypted through it for the lifetime of a
// session. A session owns two Streams: one for encryption, one for
// decryption, each with an independently chained IV starting at zero.
type Stream struct {
	mode cipher.BlockMode
}

// NewEncryptStream builds an encrypting Stream keyed by key, with a
// zero initial IV.
func NewEncryptStream(key [32]byte) (*Stream, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	return &Stream{mode: cipher.NewCBCEncrypter(block, make([]byte, aes.BlockSize))}, nil
}

// NewDecryptStream builds a decrypting Stream keyed by key, with a
// zero initial IV.
func NewDecryptStream(key [32]byte) (*Stream, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	return &Stream{mode: cipher.NewCBCDecrypter(block, make([]byte, aes.BlockSize))}, nil
}

// CryptBlock processes exactly one 16-byte block, chaining the stream's
// IV forward. dst and src may overlap exactly as with CryptBlocks.
func (s *Stream) CryptBlock(dst, src []byte) {
	s.mode.CryptBlocks(dst, src)
}
