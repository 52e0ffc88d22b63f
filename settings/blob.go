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

// Package settings implements the flat key=value text blob held in the
// settings flash region: parsing, enumeration, in-RAM mutation, and the
// erase/program/verify persistence cycle.
package settings

// terminators are the bytes that end the logical file early, per the
// blob's EOF rule.
func isTerminator(b byte) bool {
	return b == 0x00 || b == 0x1A || b == 0xFF
}

func isEOL(b byte) bool {
	return b == '\n' || b == '\r'
}

// Blob is the settings region interpreted as a sequence of key=value
// lines, terminated early by isTerminator or by the end of the slice.
type Blob []byte

// logicalEnd returns the index of the first terminator byte, or len(b)
// if none is present. This is a byte-level scan, not UTF-8 aware: the
// blob may contain an invalid-UTF-8 0xFF terminator byte that a rune
// decoder would otherwise misread.
func (b Blob) logicalEnd() int {
	for i, c := range []byte(b) {
		if isTerminator(c) {
			return i
		}
	}
	return len(b)
}

// lineState is the key=value line parser's state machine: NEW_LINE,
// KEY, VALUE, WAIT_FOR_NEW_LINE. A separate SEPARATOR state is folded
// into KEY here, since the '=' is simply the event that ends KEY.
type lineState int

const (
	stateNewLine lineState = iota
	stateKey
	stateValue
	stateWaitForNewLine
)

// parseLine parses one key=value line (or skips one malformed line)
// starting at pos, within the logical region [0, end). It returns the
// key and value slices (both nil/empty if the line was malformed or
// empty-keyed) and the index of the following line.
func parseLine(b Blob, pos, end int) (key, value Blob, next int) {
	state := stateNewLine
	keyStart := pos
	i := pos
	for i < end {
		c := b[i]
		switch state {
		case stateNewLine:
			if isEOL(c) {
				i++
				keyStart = i
				continue
			}
			if c == ' ' || c == '\t' {
				// malformed line: leading whitespace before the key
				state = stateWaitForNewLine
				continue
			}
			state = stateKey
			keyStart = i
		case stateKey:
			if c == '=' {
				key = b[keyStart:i]
				state = stateValue
				i++
				valueStart := i
				for i < end && !isEOL(b[i]) {
					i++
				}
				value = b[valueStart:i]
				if len(key) == 0 {
					key, value = nil, nil
				}
				// consume the single EOL byte that ended the value, if any
				if i < end && isEOL(b[i]) {
					i++
				}
				next = i
				return
			}
			if isEOL(c) {
				// malformed line: no '=' before EOL
				state = stateWaitForNewLine
				continue
			}
			i++
		case stateWaitForNewLine:
			if isEOL(c) {
				i++
				next = i
				return nil, nil, next
			}
			i++
		}
	}
	// Reached the end of the logical region without a terminating EOL.
	// The '=' branch above always returns before the loop condition is
	// re-checked, so state here is stateNewLine or stateWaitForNewLine
	// (an empty tail) or stateKey (a final line with no '=' at all) —
	// in every case there is no well-formed key=value pair to report.
	return nil, nil, end
}

// Lookup scans the blob for the first line whose key exactly matches
// key, honoring the early-terminator rule, and returns that line's value
// (a sub-slice of the blob, not a copy) with found=true. See
// LookupTruncated for a copy capped to a caller-supplied buffer.
func (b Blob) Lookup(key string) (value []byte, found bool) {
	if len(key) == 0 {
		return nil, false
	}
	end := b.logicalEnd()
	pos := 0
	for pos < end {
		k, v, next := parseLine(b, pos, end)
		if next <= pos {
			break
		}
		if len(k) == len(key) && string(k) == key {
			return v, true
		}
		pos = next
	}
	return nil, false
}

// LookupTruncated behaves like Lookup but copies at most len(out) bytes
// of the value into out, returning the number of bytes copied and
// whether the key was found at all (truncation is signalled by
// copied < full value length, which the caller can detect by comparing
// against len(out)).
func (b Blob) LookupTruncated(key string, out []byte) (copied int, found bool) {
	v, ok := b.Lookup(key)
	if !ok {
		return 0, false
	}
	n := copy(out, v)
	return n, true
}

// Entry is one decoded key=value pair returned by NextKey.
type Entry struct {
	Key   string
	Value string
}

// NextKey resumes enumeration from a byte cursor, skipping malformed
// lines, and returns the next well-formed entry plus the cursor to
// resume from. ok is false once the logical end of the blob is reached.
func (b Blob) NextKey(cursor int) (entry Entry, next int, ok bool) {
	end := b.logicalEnd()
	pos := cursor
	for pos < end {
		k, v, nxt := parseLine(b, pos, end)
		if nxt <= pos {
			break
		}
		if len(k) > 0 {
			return Entry{Key: string(k), Value: string(v)}, nxt, true
		}
		pos = nxt
	}
	return Entry{}, end, false
}
