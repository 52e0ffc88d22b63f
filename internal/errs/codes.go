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

// Package errs holds the small error enum that crosses the application
// boundary (settings store, connection manager, remote handlers) instead
// of an open-ended set of Go error values.
package errs

// Code is the small signed error enum exported operations return.
type Code int

const (
	OK Code = iota
	InvalidArg
	InvalidData
	InvalidState
	InsufficientResources
	ResourceInUse
	BadAlignment
	InvalidAddress
	ModifiedData
	UnsupportedModification
	NotPermitted
	Generic
)

var names = [...]string{
	"ok",
	"invalid-arg",
	"invalid-data",
	"invalid-state",
	"insufficient-resources",
	"resource-in-use",
	"bad-alignment",
	"invalid-address",
	"modified-data",
	"unsupported-modification",
	"not-permitted",
	"generic",
}

// String renders the code's canonical name.
func (c Code) String() string {
	if c < 0 || int(c) >= len(names) {
		return "generic"
	}
	return names[c]
}

// Error makes Code usable directly as an error value, so Code composes
// with fmt.Errorf("%w", ...). Success is reported as a nil error, not as
// OK: an error value holding OK would still compare non-nil.
func (c Code) Error() string {
	return c.String()
}

// Is lets errors.Is(err, errs.InvalidData) work against wrapped codes.
func (c Code) Is(target error) bool {
	other, ok := target.(Code)
	return ok && other == c
}
