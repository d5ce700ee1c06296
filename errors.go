// Copyright (c) 2024 The afg developers. All rights reserved.
// Project site: https://github.com/gotmc/afg
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package afg

import (
	"errors"
	"fmt"
)

// Error kinds returned by the driver. Concrete errors wrap one of these, so
// callers should test with errors.Is.
var (
	// ErrInvalidIntent reports a configuration that cannot be rendered as a
	// command, e.g. an apply with amplitude but no frequency.
	ErrInvalidIntent = errors.New("invalid intent")

	// ErrInvalidWaveform reports a sample sequence or slot the instrument
	// cannot accept.
	ErrInvalidWaveform = errors.New("invalid waveform")

	// ErrParse reports a query response that could not be coerced to the
	// expected type.
	ErrParse = errors.New("parse error")

	// ErrTransport is matched by every *TransportError.
	ErrTransport = errors.New("transport failure")
)

// TransportError records the command the transport failed on. The
// underlying error is returned unchanged by Unwrap.
type TransportError struct {
	Op  string // "write" or "query"
	Cmd string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("afg: %s %q: %s", e.Op, e.Cmd, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is reports ErrTransport as a match so callers need not know the concrete
// type.
func (e *TransportError) Is(target error) bool { return target == ErrTransport }

func invalidIntent(format string, a ...any) error {
	return fmt.Errorf("afg: %w: %s", ErrInvalidIntent, fmt.Sprintf(format, a...))
}

func invalidWaveform(format string, a ...any) error {
	return fmt.Errorf("afg: %w: %s", ErrInvalidWaveform, fmt.Sprintf(format, a...))
}
