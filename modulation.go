// Copyright (c) 2024 The afg developers. All rights reserved.
// Project site: https://github.com/gotmc/afg
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package afg

import "fmt"

// Modulation configures AM or FM of the carrier set up with Apply. Depth is
// the AM depth in percent, or the FM peak deviation in Hz.
//
// InternalFunction and InternalFrequency only apply to the Internal source;
// an unset InternalFunction or InternalFrequency leaves the instrument's
// current value in place.
//
// Enabling with the External source sends only the state and depth
// commands; no source selection is sent, so an instrument left on the
// internal source stays there. Select the external source beforehand, for
// example with Session.Command("SOUR:AM:SOUR EXT").
type Modulation struct {
	Enabled           bool
	Source            Source
	InternalFunction  Function
	InternalFrequency Param
	Depth             Param
}

// DefaultAM returns the power-on AM settings: internal 100 Hz sine at 100%
// depth, disabled.
func DefaultAM() Modulation {
	return Modulation{
		Source:            Internal,
		InternalFunction:  Sine,
		InternalFrequency: Num(100),
		Depth:             Num(100),
	}
}

// DefaultFM returns the power-on FM settings: internal 100 Hz sine with a
// 100 Hz deviation, disabled.
func DefaultFM() Modulation {
	return Modulation{
		Source:            Internal,
		InternalFunction:  Sine,
		InternalFrequency: Num(100),
		Depth:             Num(100),
	}
}

// RenderAM returns the commands configuring amplitude modulation, in the
// order they must be sent.
func RenderAM(m Modulation) ([]string, error) {
	return renderModulation("SOUR:AM", "DEPT", m)
}

// RenderFM returns the commands configuring frequency modulation, in the
// order they must be sent.
func RenderFM(m Modulation) ([]string, error) {
	return renderModulation("SOUR:FM", "DEV", m)
}

func renderModulation(root, depthNode string, m Modulation) ([]string, error) {
	state := fmt.Sprintf("%s:STAT", root)
	if !m.Enabled {
		cmd, _ := RenderSet(state, State(false))
		return []string{cmd}, nil
	}
	if _, err := m.Source.arg(); err != nil {
		return nil, err
	}
	if !m.Depth.IsSet() {
		return nil, invalidIntent("%s enabled without %s", root, depthNode)
	}

	type step struct {
		path string
		v    Argument
	}
	steps := []step{{state, State(true)}}
	if m.Source == Internal {
		steps = append(steps, step{root + ":SOUR", m.Source})
		if m.InternalFunction != "" {
			if !m.InternalFunction.modulating() {
				return nil, invalidIntent("%s cannot modulate with %q", root, string(m.InternalFunction))
			}
			steps = append(steps, step{root + ":INT:FUNC", m.InternalFunction})
		}
		if m.InternalFrequency.IsSet() {
			steps = append(steps, step{root + ":INT:FREQ", m.InternalFrequency})
		}
	}
	steps = append(steps, step{root + ":" + depthNode, m.Depth})

	cmds := make([]string, 0, len(steps))
	for _, s := range steps {
		cmd, err := RenderSet(s.path, s.v)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}
