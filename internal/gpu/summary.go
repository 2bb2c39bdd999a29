// Package gpu reports a best-effort summary of the local graphics hardware.
// The summary is informational only; nothing in the engine branches on it.
package gpu

import "math"

// VendorUnknown is reported when no detection backend is available.
const VendorUnknown = "unknown"

// Summary describes the most capable GPU found on the machine.
type Summary struct {
	Vendor string   `json:"vendor"`
	VRAMGB *float64 `json:"vram_gb,omitempty"`
}

// Unknown returns the summary used when detection is unavailable or fails.
func Unknown() *Summary {
	return &Summary{Vendor: VendorUnknown}
}

// bytesToGB converts a byte count to GiB rounded to one decimal place.
func bytesToGB(b uint64) float64 {
	return math.Round(float64(b)/(1<<30)*10) / 10
}
