// Copyright (c) 2024 The afg developers. All rights reserved.
// Project site: https://github.com/gotmc/afg
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package afg

// Argument is a value that can follow a command path: a Param or one of the
// enumerated settings below.
type Argument interface {
	arg() (string, error)
}

// Function selects the output waveform. Values returned by the instrument
// are passed through without validation.
type Function string

// Available output functions.
const (
	Sine   Function = "SIN"
	Square Function = "SQU"
	Ramp   Function = "RAMP"
	Noise  Function = "NOIS"
	User   Function = "USER"
)

var functionDesc = map[Function]string{
	Sine:   "Sine",
	Square: "Square",
	Ramp:   "Ramp",
	Noise:  "Noise",
	User:   "User-defined arbitrary waveform",
}

// Description returns a human readable name for f.
func (f Function) Description() string {
	if d, ok := functionDesc[f]; ok {
		return d
	}
	return string(f)
}

func (f Function) arg() (string, error) {
	if _, ok := functionDesc[f]; !ok {
		return "", invalidIntent("unknown function %q", string(f))
	}
	return string(f), nil
}

// modulating reports whether f may be used as an internal modulation
// waveform.
func (f Function) modulating() bool {
	return f == Sine || f == Square || f == Ramp
}

// Source selects where a modulating signal comes from.
type Source string

// Modulation sources.
const (
	Internal Source = "INT"
	External Source = "EXT"
)

func (s Source) arg() (string, error) {
	if s != Internal && s != External {
		return "", invalidIntent("unknown modulation source %q", string(s))
	}
	return string(s), nil
}

// Spacing selects linear or logarithmic sweep steps.
type Spacing string

// Sweep spacings.
const (
	Linear      Spacing = "LIN"
	Logarithmic Spacing = "LOG"
)

func (s Spacing) arg() (string, error) {
	if s != Linear && s != Logarithmic {
		return "", invalidIntent("unknown sweep spacing %q", string(s))
	}
	return string(s), nil
}

// Trigger selects what starts a sweep.
type Trigger string

// Sweep trigger sources.
const (
	Immediate       Trigger = "IMM"
	ExternalTrigger Trigger = "EXT"
)

func (t Trigger) arg() (string, error) {
	if t != Immediate && t != ExternalTrigger {
		return "", invalidIntent("unknown trigger source %q", string(t))
	}
	return string(t), nil
}

// Load is the output termination the amplitude is calibrated for.
type Load string

// Output loads. LoadDefault is 50 ohm.
const (
	LoadDefault  Load = "DEF"
	LoadInfinite Load = "INF"
)

func (l Load) arg() (string, error) {
	if l != LoadDefault && l != LoadInfinite {
		return "", invalidIntent("unknown output load %q", string(l))
	}
	return string(l), nil
}

// VoltageUnit is the unit amplitude values are expressed in.
type VoltageUnit string

// Amplitude units.
const (
	Vpp  VoltageUnit = "VPP"
	Vrms VoltageUnit = "VRMS"
	DBm  VoltageUnit = "DBM"
)

func (u VoltageUnit) arg() (string, error) {
	if u != Vpp && u != Vrms && u != DBm {
		return "", invalidIntent("unknown voltage unit %q", string(u))
	}
	return string(u), nil
}

// State is an ON/OFF switch argument.
type State bool

func (s State) arg() (string, error) {
	if s {
		return "ON", nil
	}
	return "OFF", nil
}
