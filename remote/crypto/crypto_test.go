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

import "testing"

func TestDeriveSecretEmptyIsInvalid(t *testing.T) {
	c := DeriveSecret(nil)
	if c.Valid {
		t.Fatal("empty secret must derive an invalid Core")
	}
}

func TestDeriveSecretDeterministic(t *testing.T) {
	a := DeriveSecret([]byte("shared-secret"))
	b := DeriveSecret([]byte("shared-secret"))
	if a.HashedKey != b.HashedKey {
		t.Fatal("same raw secret must derive the same hashed key")
	}
	other := DeriveSecret([]byte("different"))
	if a.HashedKey == other.HashedKey {
		t.Fatal("different raw secrets must derive different keys")
	}
}

func TestGenerateAuthTruncation(t *testing.T) {
	core := DeriveSecret([]byte("secret"))
	c := make([]byte, ChallengeSize)
	s := make([]byte, ChallengeSize)
	auth := core.GenerateAuth(c, s, "CA", 15)
	if len(auth) != 15 {
		t.Fatalf("len=%d, want 15", len(auth))
	}
	key := core.GenerateAuth(c, s, "CK", 32)
	if len(key) != 32 {
		t.Fatalf("len=%d, want 32", len(key))
	}
}

func TestGenerateAuthTagsAreIndependent(t *testing.T) {
	core := DeriveSecret([]byte("secret"))
	c := []byte("client-chal-15b")
	s := []byte("server-chal-15b")
	ca := core.GenerateAuth(c, s, "CA", 15)
	sa := core.GenerateAuth(c, s, "SA", 15)
	if ConstantTimeEqual(ca, sa) {
		t.Fatal("different context tags must not collide")
	}
}

func TestStreamChainsIVAcrossBlocks(t *testing.T) {
	var key [32]byte
	for i := range key {
		key[i] = byte(i)
	}
	enc, err := NewEncryptStream(key)
	if err != nil {
		t.Fatal(err)
	}
	block1 := []byte("AAAAAAAAAAAAAAAA")
	block2 := []byte("AAAAAAAAAAAAAAAA")
	c1 := make([]byte, 16)
	c2 := make([]byte, 16)
	enc.CryptBlock(c1, block1)
	enc.CryptBlock(c2, block2)
	if string(c1) == string(c2) {
		t.Fatal("identical plaintext blocks must encrypt differently once the IV has chained")
	}

	dec, err := NewDecryptStream(key)
	if err != nil {
		t.Fatal(err)
	}
	p1 := make([]byte, 16)
	p2 := make([]byte, 16)
	dec.CryptBlock(p1, c1)
	dec.CryptBlock(p2, c2)
	if string(p1) != string(block1) || string(p2) != string(block2) {
		t.Fatal("round trip through independent decrypt stream failed")
	}
}

func TestHeaderEncodeLittleEndian(t *testing.T) {
	h := Header{DataSize: 0x01020304, ParameterOrResult: -1, MsgType: 0x7A}
	enc := h.Encode()
	if enc[0] != 0x04 || enc[1] != 0x03 || enc[2] != 0x02 || enc[3] != 0x01 {
		t.Fatalf("data_size not little-endian: %x", enc[:4])
	}
	if enc[8] != 0x7A {
		t.Fatalf("msg_type at wrong offset: %x", enc[8])
	}
	back := DecodeHeader(enc[:])
	if back.DataSize != h.DataSize || back.ParameterOrResult != h.ParameterOrResult || back.MsgType != h.MsgType {
		t.Fatalf("round trip mismatch: %+v vs %+v", back, h)
	}
}

func TestVerifyDataHashDetectsTampering(t *testing.T) {
	data := []byte("hello, settings")
	h := Header{DataSize: uint32(len(data)), MsgType: 5}
	encoded := h.Encode()
	h.DataHash = ComputeDataHash(HeaderPrefix(encoded), data)

	if !VerifyDataHash(h, data) {
		t.Fatal("untampered header/data must verify")
	}
	h.DataHash[0] ^= 0x01
	if VerifyDataHash(h, data) {
		t.Fatal("tampered hash must fail verification")
	}
}
