// Copyright (c) 2024 The afg developers. All rights reserved.
// Project site: https://github.com/gotmc/afg
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package afg

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SCPI command paths for the scalar settings.
const (
	PathFunction    = "SOUR:FUNC"
	PathFrequency   = "SOUR:FREQ"
	PathAmplitude   = "SOUR:AMPL"
	PathOffset      = "SOUR:DCO"
	PathDutyCycle   = "SOUR:SQU:DCYC"
	PathSymmetry    = "SOUR:RAMP:SYMM"
	PathOutput      = "OUTP"
	PathOutputLoad  = "OUTP:LOAD"
	PathVoltageUnit = "SOUR:VOLT:UNIT"
)

// IEEE 488.2 common commands.
const (
	cmdIdentify = "*IDN?"
	cmdReset    = "*RST"
	cmdClear    = "*CLS"
	cmdSave     = "*SAV"
	cmdRecall   = "*RCL"
	cmdError    = "SYST:ERR?"
)

// ApplyIntent configures the output function and, optionally, its
// frequency, amplitude and offset. The electrical parameters are positional
// on the wire, so they must be given as a prefix: Amplitude requires
// Frequency, Offset requires both.
type ApplyIntent struct {
	Function  Function
	Frequency Param
	Amplitude Param
	Offset    Param
}

// RenderApply renders the SOUR:APPL command for the intent, e.g.
// "SOUR:APPL:SIN 1000,1,0".
func RenderApply(in ApplyIntent) (string, error) {
	fn, err := in.Function.arg()
	if err != nil {
		return "", err
	}
	if in.Amplitude.IsSet() && !in.Frequency.IsSet() {
		return "", invalidIntent("amplitude given without frequency")
	}
	if in.Offset.IsSet() && !(in.Frequency.IsSet() && in.Amplitude.IsSet()) {
		return "", invalidIntent("offset given without frequency and amplitude")
	}
	cmd := "SOUR:APPL:" + fn
	var vals []string
	for _, p := range []Param{in.Frequency, in.Amplitude, in.Offset} {
		if !p.IsSet() {
			break
		}
		s, err := p.arg()
		if err != nil {
			return "", err
		}
		vals = append(vals, s)
	}
	if len(vals) > 0 {
		cmd += " " + strings.Join(vals, ",")
	}
	return cmd, nil
}

// RenderSet renders a single-parameter set command such as "SOUR:FREQ 1000"
// or "OUTP ON".
func RenderSet(path string, v Argument) (string, error) {
	s, err := v.arg()
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return path + " " + s, nil
}

// RenderQuery returns the query form of a command path.
func RenderQuery(path string) string {
	return path + "?"
}

// RenderSave renders *SAV for a user slot.
func RenderSave(slot int) (string, error) {
	if err := ValidateSlot(slot); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %d", cmdSave, slot), nil
}

// RenderRecall renders *RCL for a user slot.
func RenderRecall(slot int) (string, error) {
	if err := ValidateSlot(slot); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s %d", cmdRecall, slot), nil
}

// ParseFloat parses a numeric response such as "+1.000000E+03".
func ParseFloat(text string) (float64, error) {
	s := strings.TrimSpace(text)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("afg: %w: %q is not a number", ErrParse, s)
	}
	return v, nil
}

// ParseEnum trims an enumerated response. allowed documents the values the
// instrument is expected to return; membership is not enforced since the
// instrument is the source of truth.
func ParseEnum(text string, allowed ...string) string {
	return strings.TrimSpace(text)
}

// ParseBool parses a state response, which the instrument reports either
// as 1/0 or ON/OFF.
func ParseBool(text string) (bool, error) {
	s := strings.ToUpper(strings.TrimSpace(text))
	switch s {
	case "1", "ON":
		return true, nil
	case "0", "OFF":
		return false, nil
	}
	v, err := ParseFloat(s)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}
