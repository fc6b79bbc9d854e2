// Copyright 2021 FerretDB Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package errkind classifies errors that cross a pipeline component
// boundary into the kinds the propagation policy distinguishes between.
package errkind

import (
	"errors"
	"fmt"

	"github.com/AlekSi/lazyerrors"
)

// Kind is the classification of an error for propagation purposes.
type Kind int

// Error kinds, matching the propagation policy: recover locally at the
// record level; surface to the connection level only for framing-fatal
// errors; surface to the process level only for configuration and bind
// failures.
const (
	// Config is a malformed or missing required setting; fatal at startup.
	Config Kind = iota

	// Framing is a splitter that cannot recover alignment; fatal for the connection.
	Framing

	// Decode is a malformed record; per-record, logged and skipped.
	Decode

	// Encode is a serialization failure; per-record, logged and skipped.
	Encode

	// Transport is a socket or producer I/O error.
	Transport

	// Overloaded is backpressure from downstream; retry after a fixed delay.
	Overloaded

	// Disconnected is EOF on a stream; normal termination for that connection.
	Disconnected
)

// String returns the kind's lower-case name, used in log lines.
func (k Kind) String() string {
	switch k {
	case Config:
		return "config"
	case Framing:
		return "framing"
	case Decode:
		return "decode"
	case Encode:
		return "encode"
	case Transport:
		return "transport"
	case Overloaded:
		return "overloaded"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Error is a classified, located error.
type Error struct {
	Kind Kind
	err  error
}

// New returns a new classified Error wrapping a formatted message, annotated
// with the caller's file:line by lazyerrors.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, err: lazyerrors.Errorf(format, args...)}
}

// Wrap classifies an existing error, annotating it with the caller's
// file:line by lazyerrors. Wrap(kind, nil) returns nil.
func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}

	return &Error{Kind: kind, err: lazyerrors.Error(err)}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Kind, e.err)
}

// Unwrap allows errors.Is/errors.As to see through to the wrapped cause.
func (e *Error) Unwrap() error { return e.err }

// Is reports whether err is, or wraps, an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}

	return e.Kind == kind
}
