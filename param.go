// Copyright (c) 2024 The afg developers. All rights reserved.
// Project site: https://github.com/gotmc/afg
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package afg

import (
	"math"
	"strconv"
)

type paramKind uint8

const (
	paramUnset paramKind = iota
	paramNumeric
	paramSentinel
)

// Param is a parameter value sent to the instrument. It is either a finite
// number or one of the sentinels Min, Max and Def, which the instrument
// resolves itself. The zero Param is unset and renders nothing.
type Param struct {
	kind  paramKind
	num   float64
	token string
}

// Sentinel parameters.
var (
	Min = Param{kind: paramSentinel, token: "MIN"}
	Max = Param{kind: paramSentinel, token: "MAX"}
	Def = Param{kind: paramSentinel, token: "DEF"}
)

// Num returns a numeric parameter.
func Num(v float64) Param { return Param{kind: paramNumeric, num: v} }

// IsSet reports whether p carries a value.
func (p Param) IsSet() bool { return p.kind != paramUnset }

// IsSentinel reports whether p is one of Min, Max or Def.
func (p Param) IsSentinel() bool { return p.kind == paramSentinel }

// Float returns the numeric value of p. The boolean is false for sentinel
// and unset parameters.
func (p Param) Float() (float64, bool) {
	return p.num, p.kind == paramNumeric
}

func (p Param) String() string {
	switch p.kind {
	case paramNumeric:
		return formatNumber(p.num)
	case paramSentinel:
		return p.token
	}
	return "<unset>"
}

func (p Param) arg() (string, error) {
	switch p.kind {
	case paramNumeric:
		if math.IsNaN(p.num) || math.IsInf(p.num, 0) {
			return "", invalidIntent("non-finite parameter %v", p.num)
		}
		return formatNumber(p.num), nil
	case paramSentinel:
		return p.token, nil
	}
	return "", invalidIntent("parameter not set")
}

// formatNumber renders v in the shortest decimal form that round-trips,
// never using an exponent.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
