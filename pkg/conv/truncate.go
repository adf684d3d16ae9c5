package conv

import "unicode/utf8"

// TruncationMarker is appended to text cut down to a platform limit.
const TruncationMarker = "\n…(truncated)"

// Truncate limits text to maxRunes characters, including the marker.
// Counting runes keeps multi-byte characters intact.
func Truncate(text string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}

	marker := []rune(TruncationMarker)
	keep := maxRunes - len(marker)
	if keep <= 0 {
		return string([]rune(text)[:maxRunes])
	}
	return string([]rune(text)[:keep]) + TruncationMarker
}
