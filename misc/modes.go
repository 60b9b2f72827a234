// Calculates:
// Usable rtl-sdr sample rates.
// Down-converter decimation and intermediate rate for each.
// Number of 25kHz carriers covered by the captured bandwidth.

package main

import (
	"fmt"
)

const (
	SymbolRate   = 18000
	TargetRate   = 4 * SymbolRate
	CarrierWidth = 25000

	// Valid sample rates fall in one of two bands:
	// http://cgit.osmocom.org/rtl-sdr/tree/src/librtlsdr.c#n1069
	LowerMin = 225e3
	LowerMax = 300e3
	UpperMin = 900e3
	UpperMax = 3.2e6
)

func main() {
	for rate := int(LowerMin); rate <= int(UpperMax); rate += CarrierWidth {
		if float64(rate) > LowerMax && float64(rate) < UpperMin {
			continue
		}

		decimation := rate / (4 * TargetRate)
		if decimation < 1 {
			decimation = 1
		}
		intermediate := float64(rate) / float64(decimation)
		step := intermediate / TargetRate

		fmt.Printf("SampleRate:%d Decimation:%d IntermediateRate:%.1f Step:%.4f Carriers:%d\n",
			rate, decimation, intermediate, step, rate/CarrierWidth,
		)
	}
}
