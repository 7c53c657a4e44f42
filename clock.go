// Copyright (c) 2025 The rx888 developers. All rights reserved.
// Project site: https://github.com/gotmc/rx888
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package rx888

import (
	"fmt"
	"math"
)

// Reference crystal frequencies the clock generator accepts.
const (
	RefClock27M uint32 = 27000000
	RefClock10M uint32 = 10000000
)

const (
	// maxPLLFrequency is the highest internal PLL frequency the clock
	// generator supports.
	maxPLLFrequency = 900000000
	// fractionDenominator is the fixed 20-bit denominator of the
	// fractional multiplier.
	fractionDenominator = 1048575
	// minPLLInputFreq keeps the PLL feedback divider within its valid
	// range; requests below it are doubled for planning purposes.
	minPLLInputFreq = 1000000
)

// ClockPlan reports the ADC frequency actually achievable for a requested
// sample rate and reference crystal. The plan is diagnostic only: the rate
// sent to the hardware with the ADC start command is the unmodified request,
// even when the plan had to double a sub-1 MHz request to keep the divider
// in range.
type ClockPlan struct {
	RequestedFreq float64
	ReferenceFreq uint32
	Divider       uint32
	Multiplier    uint32
	Numerator     uint32
	Denominator   uint32
	PLLFreq       uint32
	ActualPLLFreq float64
	ActualADCFreq float64
}

// PlanClock computes the clock plan for the requested ADC frequency with
// the given reference crystal.
//
// Adapted from clock planning code by Franco Venturi, K4VZ.
func PlanClock(frequency float64, xtalFreq uint32) ClockPlan {
	plan := ClockPlan{
		RequestedFreq: frequency,
		ReferenceFreq: xtalFreq,
		Denominator:   fractionDenominator,
	}
	for frequency < minPLLInputFreq {
		frequency *= 2
	}
	// The divider must be an even integer.
	divider := uint32(maxPLLFrequency / frequency)
	if divider%2 == 1 {
		divider--
	}
	pllFreq := uint32(float64(divider) * frequency)

	// The multiplier has an integer part and a 20-bit fraction; the
	// denominator stays pinned at its maximum for simplicity.
	mult := pllFreq / xtalFreq
	leftover := pllFreq % xtalFreq
	num := uint32(math.Round(float64(leftover) * fractionDenominator / float64(xtalFreq)))

	plan.Divider = divider
	plan.Multiplier = mult
	plan.Numerator = num
	plan.PLLFreq = pllFreq
	plan.ActualPLLFreq = float64(xtalFreq) *
		(float64(mult) + float64(num)/float64(fractionDenominator))
	plan.ActualADCFreq = plan.ActualPLLFreq / float64(divider)
	return plan
}

func (plan ClockPlan) String() string {
	return fmt.Sprintf("PLL %d * (%d + %d/%d) = %.2f Hz; ADC %.2f Hz for requested %.0f Hz",
		plan.ReferenceFreq, plan.Multiplier, plan.Numerator, plan.Denominator,
		plan.ActualPLLFreq, plan.ActualADCFreq, plan.RequestedFreq)
}
