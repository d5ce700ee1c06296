// Copyright (c) 2024 The afg developers. All rights reserved.
// Project site: https://github.com/gotmc/afg
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package afg

import (
	"math"
	"strconv"
	"strings"
)

// Arbitrary waveform limits of the instrument.
const (
	MaxSamples = 4096 // DAC memory depth
	FullScale  = 511  // largest DAC code magnitude

	MinSlot = 10
	MaxSlot = 19
)

// ValidateSlot checks that slot is one of the user slots 10 through 19.
// Slots 0 through 9 hold factory settings.
func ValidateSlot(slot int) error {
	if slot < MinSlot || slot > MaxSlot {
		return invalidWaveform("invalid slot %d (must be %d-%d)", slot, MinSlot, MaxSlot)
	}
	return nil
}

// EncodeSamples scales samples so the largest magnitude maps to FullScale
// and rounds each to the nearest DAC code, halves away from zero. The
// input's absolute level is discarded; amplitude and offset settings set the
// electrical scale. An all-zero input encodes to all-zero codes.
func EncodeSamples(samples []float64) ([]int, error) {
	if len(samples) < 1 || len(samples) > MaxSamples {
		return nil, invalidWaveform("invalid sample count %d (must be 1-%d)", len(samples), MaxSamples)
	}
	var peak float64
	for i, x := range samples {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, invalidWaveform("sample %d is not finite", i)
		}
		peak = math.Max(peak, math.Abs(x))
	}
	codes := make([]int, len(samples))
	if peak == 0 {
		return codes, nil
	}
	// Normalize before scaling: FullScale/peak overflows for subnormal peaks.
	for i, x := range samples {
		codes[i] = int(math.Round(x / peak * FullScale))
	}
	return codes, nil
}

// RenderDAC renders the upload of codes into the volatile waveform buffer,
// starting at address 0.
func RenderDAC(codes []int) string {
	var b strings.Builder
	b.Grow(len("DATA:DAC VOLATILE,0") + 5*len(codes))
	b.WriteString("DATA:DAC VOLATILE,0")
	for _, c := range codes {
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(c))
	}
	return b.String()
}

// RenderArbitrary encodes samples and returns the upload command followed by
// the save to slot.
func RenderArbitrary(samples []float64, slot int) ([]string, error) {
	save, err := RenderSave(slot)
	if err != nil {
		return nil, err
	}
	codes, err := EncodeSamples(samples)
	if err != nil {
		return nil, err
	}
	return []string{RenderDAC(codes), save}, nil
}
