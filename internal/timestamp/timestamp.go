// Package timestamp converts between seconds and HH:MM:SS strings.
package timestamp

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bembido/video-to-quiz/internal/domain"
)

// maxSeconds bounds Format's input so the int64 conversion stays exact.
const maxSeconds = 1 << 53

// Format renders seconds as zero-padded HH:MM:SS. Negative and NaN input is clamped to zero,
// +Inf and huge values to maxSeconds, and fractions are truncated. Hours are not capped at 99.
func Format(seconds float64) string {
	switch {
	case seconds < 0 || math.IsNaN(seconds):
		seconds = 0
	case seconds > maxSeconds:
		seconds = maxSeconds
	}
	total := int64(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// Parse accepts "S", "M:S" or "H:M:S" and returns the total in seconds.
func Parse(text string) (int64, error) {
	parts := strings.Split(strings.TrimSpace(text), ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("%w: %q has too many fields", domain.ErrInvalidTimestamp, text)
	}
	var total int64
	mult := int64(1)
	for i := len(parts) - 1; i >= 0; i-- {
		n, err := strconv.ParseInt(parts[i], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", domain.ErrInvalidTimestamp, text)
		}
		total += n * mult
		mult *= 60
	}
	return total, nil
}
