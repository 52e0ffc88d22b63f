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

import "testing"

func TestLookupFindsKey(t *testing.T) {
	b := Blob("ssid1=home\npass1=secret\n")
	v, ok := b.Lookup("pass1")
	if !ok || string(v) != "secret" {
		t.Fatalf("got %q, %v", v, ok)
	}
}

func TestLookupRejectsLeadingSpace(t *testing.T) {
	b := Blob(" key=a\n")
	if _, ok := b.Lookup("key"); ok {
		t.Fatal("expected no match for a line with leading whitespace")
	}
}

func TestLookupStopsAtTerminator(t *testing.T) {
	b := Blob("key1=a\n\xffkey2=b\n")
	if _, ok := b.Lookup("key2"); ok {
		t.Fatal("key after terminator byte must not be visible")
	}
	if v, ok := b.Lookup("key1"); !ok || string(v) != "a" {
		t.Fatalf("key before terminator should still be found, got %q %v", v, ok)
	}
}

func TestLookupEmptyKeyAlwaysFails(t *testing.T) {
	b := Blob("key=value\n")
	if _, ok := b.Lookup(""); ok {
		t.Fatal("zero-length key must never match")
	}
}

func TestLookupFirstOccurrenceWins(t *testing.T) {
	b := Blob("key=first\nkey=second\n")
	v, ok := b.Lookup("key")
	if !ok || string(v) != "first" {
		t.Fatalf("got %q, %v", v, ok)
	}
}

func TestLookupValueTerminatedByEOF(t *testing.T) {
	b := Blob("key=partial")
	v, ok := b.Lookup("key")
	if !ok || string(v) != "partial" {
		t.Fatalf("got %q, %v", v, ok)
	}
}

func TestLookupTruncated(t *testing.T) {
	b := Blob("key=0123456789\n")
	out := make([]byte, 4)
	n, ok := b.LookupTruncated("key", out)
	if !ok || n != 4 || string(out) != "0123" {
		t.Fatalf("n=%d ok=%v out=%q", n, ok, out)
	}
}

func TestNextKeyEnumeratesInOrder(t *testing.T) {
	b := Blob("a=1\nb=2\nc=3\n")
	var got []string
	cursor := 0
	for {
		entry, next, ok := b.NextKey(cursor)
		if !ok {
			break
		}
		got = append(got, entry.Key+"="+entry.Value)
		cursor = next
	}
	want := []string{"a=1", "b=2", "c=3"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestNextKeySkipsMalformedLines(t *testing.T) {
	b := Blob("noequals\n =leadingspace\nreal=1\n")
	entry, _, ok := b.NextKey(0)
	if !ok || entry.Key != "real" {
		t.Fatalf("got %+v, ok=%v", entry, ok)
	}
}

func TestSetReplacesExistingValue(t *testing.T) {
	content := []byte("ssid1=old\npass1=x\n")
	out, ok := Set(content, 1024, "ssid1", "new")
	if !ok {
		t.Fatal("Set failed unexpectedly")
	}
	b := Blob(out)
	v, found := b.Lookup("ssid1")
	if !found || string(v) != "new" {
		t.Fatalf("got %q, %v", v, found)
	}
	if v2, _ := b.Lookup("pass1"); string(v2) != "x" {
		t.Fatalf("unrelated key corrupted: %q", v2)
	}
}

func TestSetInsertsNewKeyBeforeIncompleteTrailingLine(t *testing.T) {
	content := []byte("a=1\nincomplete")
	out, ok := Set(content, 1024, "b", "2")
	if !ok {
		t.Fatal("Set failed unexpectedly")
	}
	if string(out) != "a=1\nb=2\nincomplete" {
		t.Fatalf("got %q", out)
	}
}

func TestSetReturnsFalseOnCapacityOverflow(t *testing.T) {
	content := []byte("a=1\n")
	_, ok := Set(content, 4, "b", "2345678")
	if ok {
		t.Fatal("expected capacity overflow to be rejected")
	}
}

func TestDiscardRemovesAllOccurrencesAndTerminates(t *testing.T) {
	content := []byte("k=1\nk=2\nk=3\nother=x\n")
	out := Discard(content, "k")
	b := Blob(out)
	if _, found := b.Lookup("k"); found {
		t.Fatal("key should be gone entirely")
	}
	if v, found := b.Lookup("other"); !found || string(v) != "x" {
		t.Fatalf("unrelated key corrupted: %q %v", v, found)
	}
}

func TestDiscardOfAbsentKeyIsNoOp(t *testing.T) {
	content := []byte("other=x\n")
	out := Discard(content, "missing")
	if string(out) != string(content) {
		t.Fatalf("got %q, want unchanged %q", out, content)
	}
}
