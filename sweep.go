// Copyright (c) 2024 The afg developers. All rights reserved.
// Project site: https://github.com/gotmc/afg
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package afg

// Sweep configures a frequency sweep of the waveform set up with Apply.
// Rate is in sweeps per second.
type Sweep struct {
	Enabled bool
	Start   Param
	Stop    Param
	Spacing Spacing
	Rate    Param
	Trigger Trigger
}

// DefaultSweep returns a 10 Hz to 10 kHz linear sweep at 1 Hz, immediately
// triggered, disabled.
func DefaultSweep() Sweep {
	return Sweep{
		Start:   Num(10),
		Stop:    Num(10000),
		Spacing: Linear,
		Rate:    Num(1),
		Trigger: Immediate,
	}
}

// RenderSweep returns the commands configuring a frequency sweep, in the
// order they must be sent. Every field is required when enabled.
func RenderSweep(s Sweep) ([]string, error) {
	if !s.Enabled {
		cmd, _ := RenderSet("SOUR:SWE:STAT", State(false))
		return []string{cmd}, nil
	}
	steps := []struct {
		path string
		v    Argument
	}{
		{"SOUR:SWE:STAT", State(true)},
		{"SOUR:FREQ:STAR", s.Start},
		{"SOUR:FREQ:STOP", s.Stop},
		{"SOUR:SWE:SPAC", s.Spacing},
		{"SOUR:SWE:RATE", s.Rate},
		{"SOUR:SWE:SOUR", s.Trigger},
	}
	cmds := make([]string, 0, len(steps))
	for _, st := range steps {
		cmd, err := RenderSet(st.path, st.v)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}
