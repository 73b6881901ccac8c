package extractor

import (
	"strings"
)

// maxOrderDigits is the longest order id kept from xPed.
const maxOrderDigits = 5

// OrderIDFromText extracts the order id (pedido) from the raw xPed text.
//
// The leading run of decimal digits of the trimmed text is used. Runs of
// 4 or 5 digits are kept verbatim, longer runs are cut to their first 5
// digits, and shorter runs are kept as they are. Text that does not start
// with a digit has no order id.
func OrderIDFromText(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)

	end := 0
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	if end == 0 {
		return "", false
	}

	digits := raw[:end]
	if len(digits) > maxOrderDigits {
		digits = digits[:maxOrderDigits]
	}
	return digits, true
}
