package units

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// ErrInvalidQuantity is returned when a byte quantity cannot be parsed.
var ErrInvalidQuantity = errors.New("units: invalid byte quantity")

// bytesPerGigabyte is the SI gigabyte.
const bytesPerGigabyte = float64(humanize.GByte)

// ParseBytes parses a human-readable byte quantity such as "0.25 GB",
// "250MB" or "1.5 GiB" into a byte count.
//
// A bare number is interpreted as bytes.
func ParseBytes(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidQuantity)
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidQuantity, s, err)
	}
	return n, nil
}

// Gigabytes converts a byte count to (SI) gigabytes.
func Gigabytes(b uint64) float64 {
	return float64(b) / bytesPerGigabyte
}

// FromGigabytes converts (SI) gigabytes to a byte count.
// Negative values clamp to zero.
func FromGigabytes(gb float64) uint64 {
	if gb <= 0 {
		return 0
	}
	return uint64(gb * bytesPerGigabyte)
}

// Format renders a byte count for logs, e.g. "250 MB".
func Format(b uint64) string {
	return humanize.Bytes(b)
}
