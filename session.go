// Copyright (c) 2024 The afg developers. All rights reserved.
// Project site: https://github.com/gotmc/afg
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package afg

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/gotmc/query"
	"github.com/sirupsen/logrus"
)

// Transport is a line-oriented instrument connection. Write sends one
// command; Query sends one command and returns the single response line.
// Implementations need not be safe for concurrent use.
type Transport interface {
	Write(cmd string) error
	Query(cmd string) (string, error)
	Close() error
}

// ErrClosed is returned, wrapped in a *TransportError, by every call on a
// closed Session.
var ErrClosed = errors.New("session closed")

// Session drives one function generator over a Transport. It keeps no copy
// of the instrument's settings: every getter queries the instrument.
//
// Calls are serialized, and multi-command operations hold the session for
// the whole sequence, so a Session may be shared between goroutines.
type Session struct {
	mu     sync.Mutex
	t      Transport
	log    logrus.FieldLogger
	closed bool
}

// SessionOption applies an option to the session.
type SessionOption func(*Session)

// WithLogger logs every command and response at debug level.
func WithLogger(l logrus.FieldLogger) SessionOption {
	return func(s *Session) { s.log = l }
}

// NewSession takes ownership of t. Close must be called to release it.
func NewSession(t Transport, opts ...SessionOption) *Session {
	s := Session{t: t}
	for _, opt := range opts {
		opt(&s)
	}
	if s.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		s.log = l
	}
	return &s
}

// Close closes the transport. Closing an already closed session is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.log.Debug("closing session")
	return s.t.Close()
}

// write sends cmd. The caller must hold s.mu.
func (s *Session) write(cmd string) error {
	if s.closed {
		return &TransportError{Op: "write", Cmd: cmd, Err: ErrClosed}
	}
	s.log.WithField("cmd", cmd).Debug("write")
	if err := s.t.Write(cmd); err != nil {
		return &TransportError{Op: "write", Cmd: cmd, Err: err}
	}
	return nil
}

// ask sends cmd and returns the trimmed response. The caller must hold s.mu.
func (s *Session) ask(cmd string) (string, error) {
	if s.closed {
		return "", &TransportError{Op: "query", Cmd: cmd, Err: ErrClosed}
	}
	resp, err := query.String(s.t, cmd)
	if err != nil {
		return "", &TransportError{Op: "query", Cmd: cmd, Err: err}
	}
	resp = strings.TrimSpace(resp)
	s.log.WithFields(logrus.Fields{"cmd": cmd, "resp": resp}).Debug("query")
	return resp, nil
}

// send writes cmds in order, stopping at the first failure. Commands already
// written are not undone.
func (s *Session) send(cmds ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cmd := range cmds {
		if err := s.write(cmd); err != nil {
			return err
		}
	}
	return nil
}

// Query sends a raw command and returns the response with surrounding
// whitespace removed.
func (s *Session) Query(cmd string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ask(cmd)
}

// Command sends a raw command.
func (s *Session) Command(cmd string) error {
	return s.send(cmd)
}

// Identify returns the identification string, formatted by the instrument
// as "GW INSTEK,AFG-2125,SN:XXXXXXXX,Vm.mm".
func (s *Session) Identify() (string, error) {
	return s.Query(cmdIdentify)
}

// Reset restores the factory default state.
func (s *Session) Reset() error { return s.send(cmdReset) }

// Clear clears the event registers and the error queue.
func (s *Session) Clear() error { return s.send(cmdClear) }

// NextError pops one entry from the instrument's error queue.
func (s *Session) NextError() (string, error) {
	return s.Query(cmdError)
}

// Save stores the current configuration or user waveform in slot.
func (s *Session) Save(slot int) error {
	cmd, err := RenderSave(slot)
	if err != nil {
		return err
	}
	return s.send(cmd)
}

// Recall loads the configuration or user waveform stored in slot.
func (s *Session) Recall(slot int) error {
	cmd, err := RenderRecall(slot)
	if err != nil {
		return err
	}
	return s.send(cmd)
}

// Apply sets the function and its parameters and enables the output.
func (s *Session) Apply(in ApplyIntent) error {
	cmd, err := RenderApply(in)
	if err != nil {
		return err
	}
	return s.send(cmd)
}

// SetArbitraryWaveform uploads samples to the volatile buffer and saves them
// to slot. Select the waveform with Apply or SetFunction using the User
// function.
func (s *Session) SetArbitraryWaveform(samples []float64, slot int) error {
	cmds, err := RenderArbitrary(samples, slot)
	if err != nil {
		return err
	}
	return s.send(cmds...)
}

// ConfigureAM configures amplitude modulation of the current carrier.
func (s *Session) ConfigureAM(m Modulation) error {
	cmds, err := RenderAM(m)
	if err != nil {
		return err
	}
	return s.send(cmds...)
}

// ConfigureFM configures frequency modulation of the current carrier.
func (s *Session) ConfigureFM(m Modulation) error {
	cmds, err := RenderFM(m)
	if err != nil {
		return err
	}
	return s.send(cmds...)
}

// ConfigureSweep configures a frequency sweep of the current waveform.
func (s *Session) ConfigureSweep(sw Sweep) error {
	cmds, err := RenderSweep(sw)
	if err != nil {
		return err
	}
	return s.send(cmds...)
}

func (s *Session) set(path string, v Argument) error {
	cmd, err := RenderSet(path, v)
	if err != nil {
		return err
	}
	return s.send(cmd)
}

func (s *Session) getFloat(path string) (float64, error) {
	resp, err := s.Query(RenderQuery(path))
	if err != nil {
		return 0, err
	}
	v, err := ParseFloat(resp)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

func (s *Session) getEnum(path string, allowed ...string) (string, error) {
	resp, err := s.Query(RenderQuery(path))
	if err != nil {
		return "", err
	}
	return ParseEnum(resp, allowed...), nil
}

// SetFunction selects the output function, keeping the current frequency,
// amplitude and offset.
func (s *Session) SetFunction(f Function) error { return s.set(PathFunction, f) }

// Function returns the current output function.
func (s *Session) Function() (Function, error) {
	v, err := s.getEnum(PathFunction, "SIN", "SQU", "RAMP", "NOIS", "USER")
	return Function(v), err
}

// SetFrequency sets the output frequency in Hz.
func (s *Session) SetFrequency(p Param) error { return s.set(PathFrequency, p) }

// Frequency returns the output frequency in Hz.
func (s *Session) Frequency() (float64, error) { return s.getFloat(PathFrequency) }

// SetAmplitude sets the output amplitude in the current voltage unit.
func (s *Session) SetAmplitude(p Param) error { return s.set(PathAmplitude, p) }

// Amplitude returns the output amplitude in the current voltage unit.
func (s *Session) Amplitude() (float64, error) { return s.getFloat(PathAmplitude) }

// SetOffset sets the DC offset in volts.
func (s *Session) SetOffset(p Param) error { return s.set(PathOffset, p) }

// Offset returns the DC offset in volts.
func (s *Session) Offset() (float64, error) { return s.getFloat(PathOffset) }

// SetDutyCycle sets the square wave duty cycle in percent.
func (s *Session) SetDutyCycle(p Param) error { return s.set(PathDutyCycle, p) }

// DutyCycle returns the square wave duty cycle in percent.
func (s *Session) DutyCycle() (float64, error) { return s.getFloat(PathDutyCycle) }

// SetRampSymmetry sets the ramp symmetry in percent.
func (s *Session) SetRampSymmetry(p Param) error { return s.set(PathSymmetry, p) }

// RampSymmetry returns the ramp symmetry in percent.
func (s *Session) RampSymmetry() (float64, error) { return s.getFloat(PathSymmetry) }

// SetOutput enables or disables the front panel output.
func (s *Session) SetOutput(on bool) error { return s.set(PathOutput, State(on)) }

// Output reports whether the output is enabled.
func (s *Session) Output() (bool, error) {
	resp, err := s.Query(RenderQuery(PathOutput))
	if err != nil {
		return false, err
	}
	on, err := ParseBool(resp)
	if err != nil {
		return false, fmt.Errorf("%s: %w", PathOutput, err)
	}
	return on, nil
}

// SetOutputLoad sets the termination the amplitude is calibrated for.
func (s *Session) SetOutputLoad(l Load) error { return s.set(PathOutputLoad, l) }

// OutputLoad returns the output termination setting.
func (s *Session) OutputLoad() (Load, error) {
	v, err := s.getEnum(PathOutputLoad, "DEF", "INF")
	return Load(v), err
}

// SetVoltageUnit sets the amplitude unit.
func (s *Session) SetVoltageUnit(u VoltageUnit) error { return s.set(PathVoltageUnit, u) }

// VoltageUnit returns the amplitude unit.
func (s *Session) VoltageUnit() (VoltageUnit, error) {
	v, err := s.getEnum(PathVoltageUnit, "VPP", "VRMS", "DBM")
	return VoltageUnit(v), err
}
