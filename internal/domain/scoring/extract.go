package scoring

import (
	"fmt"
	"strconv"
	"strings"
)

// ExtractValue returns the numeric magnitude of a nutrient entry. Composite
// entries are read through their total part. Every character other than
// ASCII digits and '.' is dropped before parsing.
//
// The returned value is always usable: when nothing parsable remains it is
// 0 and the error (wrapping ErrUnparsable) only describes why.
func ExtractValue(v Value) (float64, error) {
	if v.Kind() == KindMalformed {
		return 0, fmt.Errorf("%w: malformed entry", ErrUnparsable)
	}
	return ParseMagnitude(v.Total())
}

// ParseMagnitude parses strings such as "18.7g", "2300mg" or "143kcal".
func ParseMagnitude(s string) (float64, error) {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= '0' && c <= '9') || c == '.' {
			b.WriteByte(c)
		}
	}
	digits := b.String()
	if strings.Trim(digits, ".") == "" {
		return 0, fmt.Errorf("%w: no digits in %q", ErrUnparsable, s)
	}
	f, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrUnparsable, s, err)
	}
	return f, nil
}
