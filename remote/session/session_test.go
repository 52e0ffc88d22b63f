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

package session

import (
	"bytes"
	"strings"
	"testing"

	rcrypto "github.com/jwhitham/pico-wifi-settings/remote/crypto"
)

// fakeTransport captures every block written to it and never reports
// WriteOutOfBuffers, so tests can drive the state machine synchronously.
type fakeTransport struct {
	sent   [][]byte
	closed bool
}

func (f *fakeTransport) Write(block []byte) (WriteResult, error) {
	f.sent = append(f.sent, append([]byte(nil), block...))
	return WriteAccepted, nil
}

func (f *fakeTransport) Close() { f.closed = true }

type mapRegistry map[byte]Handler

func (m mapRegistry) Lookup(id byte) (Handler, bool) {
	h, ok := m[id]
	return h, ok
}

const testMsgType byte = 128

func upperEchoHandler() Handler {
	return Handler{
		Stage1: func(msgType byte, data *[MaxDataSize]byte, inSize int, inParam int32, outSize *int) int32 {
			for i := 0; i < inSize; i++ {
				c := data[i]
				if c >= 'a' && c <= 'z' {
					data[i] = c - 'a' + 'A'
				}
			}
			*outSize = inSize
			return int32(inSize)
		},
	}
}

// clientHandshake drives a Session through the cleartext handshake
// using transport.sent as the server's outbound queue, and returns the
// client- and server-side crypto material needed to exchange encrypted
// messages afterward.
func clientHandshake(t *testing.T, s *Session, transport *fakeTransport, secretRaw []byte) (clientEnc, clientDec *rcrypto.Stream) {
	t.Helper()
	core := rcrypto.DeriveSecret(secretRaw)

	clientChallenge := bytes.Repeat([]byte{0x11}, rcrypto.ChallengeSize)

	s.Start()
	// 4 header bytes + 16-byte board ID + "v1.0\r\n" = 26 bytes, padded to 2 blocks.
	if len(transport.sent) != 2 {
		t.Fatalf("expected 2 greeting blocks, got %d blocks", len(transport.sent))
	}
	transport.sent = nil

	var req [BlockSize]byte
	req[0] = IDRequest
	copy(req[1:], clientChallenge)
	s.OnRecv(req[:])

	if len(transport.sent) != 1 || transport.sent[0][0] != IDChallenge {
		t.Fatalf("expected a challenge block, got %v", transport.sent)
	}
	serverChallenge := append([]byte(nil), transport.sent[0][1:1+rcrypto.ChallengeSize]...)
	transport.sent = nil

	auth := core.GenerateAuth(clientChallenge, serverChallenge, "CA", rcrypto.ChallengeSize)
	var authBlock [BlockSize]byte
	authBlock[0] = IDAuthentication
	copy(authBlock[1:], auth)
	s.OnRecv(authBlock[:])

	if len(transport.sent) != 1 || transport.sent[0][0] != IDResponse {
		t.Fatalf("expected a response block, got %v", transport.sent)
	}
	expectedSA := core.GenerateAuth(clientChallenge, serverChallenge, "SA", rcrypto.ChallengeSize)
	if !bytes.Equal(transport.sent[0][1:1+rcrypto.ChallengeSize], expectedSA) {
		t.Fatal("server authentication response did not match expected HMAC")
	}
	transport.sent = nil

	var ack [BlockSize]byte
	ack[0] = IDAcknowledge
	s.OnRecv(ack[:])

	ckBytes := core.GenerateAuth(clientChallenge, serverChallenge, "CK", 32)
	skBytes := core.GenerateAuth(clientChallenge, serverChallenge, "SK", 32)
	var ck, sk [32]byte
	copy(ck[:], ckBytes)
	copy(sk[:], skBytes)

	clientEncStream, err := rcrypto.NewEncryptStream(ck)
	if err != nil {
		t.Fatal(err)
	}
	clientDecStream, err := rcrypto.NewDecryptStream(sk)
	if err != nil {
		t.Fatal(err)
	}
	return clientEncStream, clientDecStream
}

func sendEncryptedRequest(s *Session, clientEnc *rcrypto.Stream, msgType byte, payload []byte) {
	header := rcrypto.Header{DataSize: uint32(len(payload)), MsgType: msgType}
	encoded := header.Encode()
	header.DataHash = rcrypto.ComputeDataHash(rcrypto.HeaderPrefix(encoded), payload)
	encoded = header.Encode()

	var headerCipher [BlockSize]byte
	clientEnc.CryptBlock(headerCipher[:], encoded[:])
	s.OnRecv(headerCipher[:])

	for off := 0; off < len(payload); off += BlockSize {
		var plain [BlockSize]byte
		end := off + BlockSize
		if end > len(payload) {
			end = len(payload)
		}
		copy(plain[:], payload[off:end])
		var cipher [BlockSize]byte
		clientEnc.CryptBlock(cipher[:], plain[:])
		s.OnRecv(cipher[:])
	}
}

func decryptReply(t *testing.T, clientDec *rcrypto.Stream, blocks [][]byte) (rcrypto.Header, []byte) {
	t.Helper()
	if len(blocks) == 0 {
		t.Fatal("no reply blocks")
	}
	var headerPlain [BlockSize]byte
	clientDec.CryptBlock(headerPlain[:], blocks[0])
	header := rcrypto.DecodeHeader(headerPlain[:])

	var payload []byte
	for _, b := range blocks[1:] {
		var plain [BlockSize]byte
		clientDec.CryptBlock(plain[:], b)
		payload = append(payload, plain[:]...)
	}
	if int(header.DataSize) <= len(payload) {
		payload = payload[:header.DataSize]
	}
	return header, payload
}

func TestHandshakeAndEncryptedRequest(t *testing.T) {
	secret := []byte("shared-secret")
	transport := &fakeTransport{}
	registry := mapRegistry{testMsgType: upperEchoHandler()}
	s := New(transport, registry, rcrypto.DeriveSecret(secret), "0123456789ABCDEF", "v1.0", strings.NewReader(strings.Repeat("\x22", 64)), nil)

	clientEnc, clientDec := clientHandshake(t, s, transport, secret)

	if s.State() != ExpectEncRequestHeader {
		t.Fatalf("state = %v, want ExpectEncRequestHeader", s.State())
	}

	sendEncryptedRequest(s, clientEnc, testMsgType, []byte("hello"))

	if len(transport.sent) == 0 {
		t.Fatal("expected an encrypted reply")
	}
	header, payload := decryptReply(t, clientDec, transport.sent)
	if header.MsgType != IDOK {
		t.Fatalf("msg_type = %d, want IDOK", header.MsgType)
	}
	if header.ParameterOrResult != 5 {
		t.Fatalf("result = %d, want 5", header.ParameterOrResult)
	}
	if string(payload) != "HELLO" {
		t.Fatalf("payload = %q, want HELLO", payload)
	}
	if s.State() != ExpectEncRequestHeader {
		t.Fatalf("state after reply = %v, want ExpectEncRequestHeader (ready for another request)", s.State())
	}
}

func TestNoSecretConfigured(t *testing.T) {
	transport := &fakeTransport{}
	registry := mapRegistry{}
	s := New(transport, registry, rcrypto.DeriveSecret(nil), "0123456789ABCDEF", "v1.0", nil, nil)
	s.Start()
	transport.sent = nil

	var req [BlockSize]byte
	req[0] = IDRequest
	s.OnRecv(req[:])

	if len(transport.sent) != 1 || transport.sent[0][0] != IDNoSecretError {
		t.Fatalf("expected a cleartext NO_SECRET_ERROR block, got %v", transport.sent)
	}
	if s.State() != Disconnect || !transport.closed {
		t.Fatal("expected session to disconnect after NO_SECRET_ERROR")
	}
}

func TestBadClientAuthentication(t *testing.T) {
	secret := []byte("shared-secret")
	transport := &fakeTransport{}
	registry := mapRegistry{}
	s := New(transport, registry, rcrypto.DeriveSecret(secret), "0123456789ABCDEF", "v1.0", nil, nil)
	s.Start()
	transport.sent = nil

	var req [BlockSize]byte
	req[0] = IDRequest
	s.OnRecv(req[:])
	transport.sent = nil

	var authBlock [BlockSize]byte
	authBlock[0] = IDAuthentication
	copy(authBlock[1:], bytes.Repeat([]byte{0xFF}, rcrypto.ChallengeSize)) // wrong HMAC
	s.OnRecv(authBlock[:])

	if len(transport.sent) != 1 || transport.sent[0][0] != IDAuthError {
		t.Fatalf("expected AUTH_ERROR, got %v", transport.sent)
	}
	if s.State() != Disconnect || !transport.closed {
		t.Fatal("expected session to disconnect after AUTH_ERROR")
	}
}

func TestHashTamperingClosesWithCorruptError(t *testing.T) {
	secret := []byte("shared-secret")
	transport := &fakeTransport{}
	registry := mapRegistry{testMsgType: upperEchoHandler()}
	s := New(transport, registry, rcrypto.DeriveSecret(secret), "0123456789ABCDEF", "v1.0", nil, nil)
	clientEnc, clientDec := clientHandshake(t, s, transport, secret)

	header := rcrypto.Header{DataSize: 5, MsgType: testMsgType}
	encoded := header.Encode()
	header.DataHash = rcrypto.ComputeDataHash(rcrypto.HeaderPrefix(encoded), []byte("hello"))
	header.DataHash[0] ^= 0x01 // tamper
	encoded = header.Encode()

	var headerCipher [BlockSize]byte
	clientEnc.CryptBlock(headerCipher[:], encoded[:])
	s.OnRecv(headerCipher[:])

	payload := []byte("hello")
	for off := 0; off < len(payload); off += BlockSize {
		var plain [BlockSize]byte
		copy(plain[:], payload[off:])
		var cipher [BlockSize]byte
		clientEnc.CryptBlock(cipher[:], plain[:])
		s.OnRecv(cipher[:])
	}

	if len(transport.sent) == 0 {
		t.Fatal("expected an encrypted CORRUPT_ERROR reply")
	}
	replyHeader, _ := decryptReply(t, clientDec, transport.sent)
	if replyHeader.MsgType != IDCorruptError {
		t.Fatalf("msg_type = %d, want IDCorruptError", replyHeader.MsgType)
	}
	if s.State() != Disconnect || !transport.closed {
		t.Fatal("expected session to disconnect after CORRUPT_ERROR")
	}
}

func TestTwoStageHandlerClosesAfterReply(t *testing.T) {
	secret := []byte("shared-secret")
	transport := &fakeTransport{}
	var stage2Called bool
	registry := mapRegistry{
		testMsgType: {
			Stage1: func(msgType byte, data *[MaxDataSize]byte, inSize int, inParam int32, outSize *int) int32 {
				*outSize = 0
				return 42
			},
			Stage2: func(data *[MaxDataSize]byte, size int, param int32) {
				stage2Called = true
				if param != 42 {
					t.Fatalf("stage2 param = %d, want 42", param)
				}
			},
		},
	}
	s := New(transport, registry, rcrypto.DeriveSecret(secret), "0123456789ABCDEF", "v1.0", nil, nil)
	clientEnc, _ := clientHandshake(t, s, transport, secret)

	sendEncryptedRequest(s, clientEnc, testMsgType, nil)

	if !stage2Called {
		t.Fatal("stage2 was not invoked")
	}
	if s.State() != Disconnect || !transport.closed {
		t.Fatal("expected session to close after two-stage handler ran")
	}
}
