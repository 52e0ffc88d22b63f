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
	"crypto/rand"
	"io"

	rcrypto "github.com/jwhitham/pico-wifi-settings/remote/crypto"
	"go.uber.org/zap"
)

// State is the SessionState enum from spec §3.
type State int

const (
	SendGreeting State = iota
	ExpectRequest
	SendChallenge
	ExpectAuthentication
	SendAuthentication
	ExpectAcknowledge

	ExpectEncRequestHeader
	ExpectEncRequestPayload
	SendEncReplyHeader
	SendEncReplyPayload
	SendEncReplyHeaderWithCallback2
	ExecuteCallback2

	SendBadMsgError
	SendAuthError
	SendNoSecretError
	SendCorruptError
	SendBadParamError
	SendBadHandlerError
	Disconnect
)

// WriteResult reports what happened when a block was handed to the
// transport, mirroring the lwip tcp_write() contract the original
// implementation is built on (spec design notes §9).
type WriteResult int

const (
	WriteAccepted WriteResult = iota
	WriteOutOfBuffers
	WriteError
)

// Transport is the abstraction a Session drives. Implementations exist
// for the hardware TCP stack (seqs) and for an in-memory fake used by
// tests.
type Transport interface {
	// Write hands one BlockSize-byte block to the transport. It must
	// not block; WriteOutOfBuffers means the session should retry the
	// same block after the next OnSent callback.
	Write(block []byte) (WriteResult, error)
	// Close closes the underlying connection.
	Close()
}

// Stage1Func validates and executes the first (always-returning) half
// of a handler. data is the shared MaxDataSize request/reply buffer;
// inSize/inParam describe the request; outSize starts at MaxDataSize
// and the handler may shrink it to describe the reply it produced.
type Stage1Func func(msgType byte, data *[MaxDataSize]byte, inSize int, inParam int32, outSize *int) int32

// Stage2Func is the second half of a two-stage handler, run only after
// the stage-1 reply has been fully flushed to the transport. It never
// returns control to the session — the connection is closed immediately
// afterward (reboot, OTA).
type Stage2Func func(data *[MaxDataSize]byte, size int, param int32)

// Handler is the tagged union described in spec design notes §9:
// Stage2 nil means a one-shot handler, non-nil means two-stage.
type Handler struct {
	Stage1 Stage1Func
	Stage2 Stage2Func
}

// Registry is the Handler Registry's read interface, as consumed by a
// Session.
type Registry interface {
	Lookup(msgType byte) (Handler, bool)
}

// Session is the per-TCP-connection state machine.
type Session struct {
	transport Transport
	registry  Registry
	secret    rcrypto.Core
	boardID   string
	versionText string
	rng       io.Reader
	log       *zap.Logger

	state State

	clientChallenge [rcrypto.ChallengeSize]byte
	serverChallenge [rcrypto.ChallengeSize]byte

	encStream *rcrypto.Stream // server -> client, keyed by SK
	decStream *rcrypto.Stream // client -> server, keyed by CK

	requestHeader rcrypto.Header
	data          [MaxDataSize]byte
	dataIndex     int

	inputBuf  [BlockSize]byte
	inputFill int

	outQueue   [][BlockSize]byte
	afterSent  func()

	pendingStage2      Stage2Func
	pendingStage2Size  int
	pendingStage2Param int32
}

// New constructs a Session. rng supplies challenge randomness (use
// crypto/rand.Reader in production, a deterministic source in tests).
func New(t Transport, registry Registry, secret rcrypto.Core, boardID, versionText string, rng io.Reader, log *zap.Logger) *Session {
	if rng == nil {
		rng = rand.Reader
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		transport:   t,
		registry:    registry,
		secret:      secret,
		boardID:     boardID,
		versionText: versionText,
		rng:         rng,
		log:         log,
		state:       SendGreeting,
	}
}

// State returns the current SessionState, mainly for tests.
func (s *Session) State() State {
	return s.state
}

// Start runs the accept event: composes and sends the greeting.
func (s *Session) Start() {
	blocks := s.buildGreeting()
	s.sendBlocks(blocks, func() {
		s.state = ExpectRequest
	})
}

// OnRecv feeds newly-received bytes into the block assembler, invoking
// handleBlock once a whole BlockSize-byte block is available. Arrival
// order is preserved; each full block is consumed strictly before the
// next is assembled, per spec §5's ordering guarantee.
func (s *Session) OnRecv(data []byte) {
	for _, b := range data {
		s.inputBuf[s.inputFill] = b
		s.inputFill++
		if s.inputFill == BlockSize {
			block := s.inputBuf
			s.inputFill = 0
			s.handleBlock(block)
		}
	}
}

// OnSent notifies the session that the transport has freed whatever
// buffer previously reported WriteOutOfBuffers, so the queued block
// (if any) should be retried.
func (s *Session) OnSent() {
	s.pump()
}

// OnErr notifies the session that the transport failed outside of a
// Write call (e.g. a reset from the peer).
func (s *Session) OnErr(err error) {
	s.log.Debug("session transport error", zap.Error(err))
	s.state = Disconnect
}

func (s *Session) sendBlocks(blocks [][BlockSize]byte, cont func()) {
	s.outQueue = blocks
	s.afterSent = cont
	s.pump()
}

func (s *Session) pump() {
	for len(s.outQueue) > 0 {
		block := s.outQueue[0]
		result, err := s.transport.Write(block[:])
		if err != nil {
			s.state = Disconnect
			s.transport.Close()
			return
		}
		switch result {
		case WriteOutOfBuffers:
			return
		case WriteError:
			s.state = Disconnect
			s.transport.Close()
			return
		}
		s.outQueue = s.outQueue[1:]
	}
	cont := s.afterSent
	s.afterSent = nil
	if cont != nil {
		cont()
	}
}

func (s *Session) handleBlock(block [BlockSize]byte) {
	switch s.state {
	case ExpectRequest:
		s.handleRequest(block)
	case ExpectAuthentication:
		s.handleAuthentication(block)
	case ExpectAcknowledge:
		s.handleAcknowledge(block)
	case ExpectEncRequestHeader:
		s.handleEncHeader(block)
	case ExpectEncRequestPayload:
		s.handleEncPayload(block)
	default:
		// Input-buffer overflow policy: a full block arrived while the
		// session was not in a state that accepts input (e.g. a
		// stage-2 callback is pending). Disconnect without processing.
		s.state = Disconnect
		s.transport.Close()
	}
}

func (s *Session) handleRequest(block [BlockSize]byte) {
	if block[0] != IDRequest {
		s.sendClearError(IDBadMsgError)
		return
	}
	if !s.secret.Valid {
		s.sendClearError(IDNoSecretError)
		return
	}
	copy(s.clientChallenge[:], block[1:1+rcrypto.ChallengeSize])
	if _, err := io.ReadFull(s.rng, s.serverChallenge[:]); err != nil {
		s.state = Disconnect
		s.transport.Close()
		return
	}
	var out [BlockSize]byte
	out[0] = IDChallenge
	copy(out[1:], s.serverChallenge[:])
	s.sendBlocks([][BlockSize]byte{out}, func() {
		s.state = ExpectAuthentication
	})
}

func (s *Session) handleAuthentication(block [BlockSize]byte) {
	if block[0] != IDAuthentication {
		s.sendClearError(IDBadMsgError)
		return
	}
	expected := s.secret.GenerateAuth(s.clientChallenge[:], s.serverChallenge[:], "CA", rcrypto.ChallengeSize)
	if !rcrypto.ConstantTimeEqual(block[1:1+rcrypto.ChallengeSize], expected) {
		s.sendClearError(IDAuthError)
		return
	}
	auth := s.secret.GenerateAuth(s.clientChallenge[:], s.serverChallenge[:], "SA", rcrypto.ChallengeSize)
	var out [BlockSize]byte
	out[0] = IDResponse
	copy(out[1:], auth)
	s.sendBlocks([][BlockSize]byte{out}, func() {
		s.state = ExpectAcknowledge
	})
}

func (s *Session) handleAcknowledge(block [BlockSize]byte) {
	if block[0] != IDAcknowledge {
		s.sendClearError(IDBadMsgError)
		return
	}
	ckBytes := s.secret.GenerateAuth(s.clientChallenge[:], s.serverChallenge[:], "CK", 32)
	skBytes := s.secret.GenerateAuth(s.clientChallenge[:], s.serverChallenge[:], "SK", 32)
	var ck, sk [32]byte
	copy(ck[:], ckBytes)
	copy(sk[:], skBytes)

	dec, err := rcrypto.NewDecryptStream(ck)
	if err != nil {
		s.state = Disconnect
		s.transport.Close()
		return
	}
	enc, err := rcrypto.NewEncryptStream(sk)
	if err != nil {
		s.state = Disconnect
		s.transport.Close()
		return
	}
	s.decStream = dec
	s.encStream = enc
	s.state = ExpectEncRequestHeader
}

func (s *Session) sendClearError(id byte) {
	var out [BlockSize]byte
	out[0] = id
	s.sendBlocks([][BlockSize]byte{out}, func() {
		s.state = Disconnect
		s.transport.Close()
	})
}

func (s *Session) handleEncHeader(block [BlockSize]byte) {
	var plain [BlockSize]byte
	s.decStream.CryptBlock(plain[:], block[:])
	header := rcrypto.DecodeHeader(plain[:])

	if _, ok := s.registry.Lookup(header.MsgType); !ok {
		s.sendEncError(IDBadHandlerError)
		return
	}
	if header.DataSize > MaxDataSize {
		s.sendEncError(IDBadParamError)
		return
	}

	s.requestHeader = header
	s.dataIndex = 0
	if header.DataSize == 0 {
		s.dispatch()
		return
	}
	s.state = ExpectEncRequestPayload
}

func (s *Session) handleEncPayload(block [BlockSize]byte) {
	var plain [BlockSize]byte
	s.decStream.CryptBlock(plain[:], block[:])
	remaining := int(s.requestHeader.DataSize) - s.dataIndex
	n := BlockSize
	if remaining < n {
		n = remaining
	}
	copy(s.data[s.dataIndex:], plain[:n])
	s.dataIndex += BlockSize
	if s.dataIndex >= int(s.requestHeader.DataSize) {
		s.dispatch()
	}
}

func (s *Session) dispatch() {
	size := int(s.requestHeader.DataSize)
	if !rcrypto.VerifyDataHash(s.requestHeader, s.data[:size]) {
		s.sendEncError(IDCorruptError)
		return
	}

	handler, ok := s.registry.Lookup(s.requestHeader.MsgType)
	if !ok {
		s.sendEncError(IDBadHandlerError)
		return
	}

	outSize := MaxDataSize
	result := handler.Stage1(s.requestHeader.MsgType, &s.data, size, s.requestHeader.ParameterOrResult, &outSize)
	if outSize > MaxDataSize {
		outSize = MaxDataSize
	}
	if outSize < 0 {
		outSize = 0
	}

	if handler.Stage2 != nil {
		s.pendingStage2 = handler.Stage2
		s.pendingStage2Size = outSize
		s.pendingStage2Param = result
		s.sendEncReply(result, 0, func() {
			s.state = ExecuteCallback2
			stage2 := s.pendingStage2
			size := s.pendingStage2Size
			param := s.pendingStage2Param
			s.pendingStage2 = nil
			stage2(&s.data, size, param)
			s.transport.Close()
			s.state = Disconnect
		})
		return
	}

	s.sendEncReply(result, outSize, func() {
		s.state = ExpectEncRequestHeader
	})
}

// sendEncReply builds and encrypts a reply header (and, if replySize>0,
// the payload held in s.data[:replySize]) and sends it, invoking cont
// once every block has been accepted by the transport.
func (s *Session) sendEncReply(result int32, replySize int, cont func()) {
	header := rcrypto.Header{
		DataSize:          uint32(replySize),
		ParameterOrResult: result,
		MsgType:           IDOK,
	}
	blocks := s.encryptHeaderAndPayload(header, s.data[:replySize])
	s.sendBlocks(blocks, cont)
}

func (s *Session) sendEncError(id byte) {
	header := rcrypto.Header{MsgType: id}
	blocks := s.encryptHeaderAndPayload(header, nil)
	s.sendBlocks(blocks, func() {
		s.state = Disconnect
		s.transport.Close()
	})
}

func (s *Session) encryptHeaderAndPayload(header rcrypto.Header, payload []byte) [][BlockSize]byte {
	encoded := header.Encode()
	header.DataHash = rcrypto.ComputeDataHash(rcrypto.HeaderPrefix(encoded), payload)
	encoded = header.Encode()

	blocks := make([][BlockSize]byte, 0, 1+(len(payload)+BlockSize-1)/BlockSize)
	var headerCipher [BlockSize]byte
	s.encStream.CryptBlock(headerCipher[:], encoded[:])
	blocks = append(blocks, headerCipher)

	for off := 0; off < len(payload); off += BlockSize {
		var plain [BlockSize]byte
		end := off + BlockSize
		if end > len(payload) {
			end = len(payload)
		}
		copy(plain[:], payload[off:end])
		var cipher [BlockSize]byte
		s.encStream.CryptBlock(cipher[:], plain[:])
		blocks = append(blocks, cipher)
	}
	return blocks
}

func (s *Session) buildGreeting() [][BlockSize]byte {
	const headerLen = 4 + 16 // id/ver/count/pad + board id hex
	text := s.versionText + "\r\n"
	total := headerLen + len(text)
	numBlocks := (total + BlockSize - 1) / BlockSize
	if numBlocks > maxGreetingBlocks {
		panic("greeting exceeds maxGreetingBlocks")
	}
	buf := make([]byte, numBlocks*BlockSize)
	buf[0] = IDGreeting
	buf[1] = ProtocolVersion
	buf[2] = byte(numBlocks)
	buf[3] = 0
	copy(buf[4:20], s.boardID)
	copy(buf[20:], text)

	blocks := make([][BlockSize]byte, numBlocks)
	for i := 0; i < numBlocks; i++ {
		copy(blocks[i][:], buf[i*BlockSize:(i+1)*BlockSize])
	}
	return blocks
}
