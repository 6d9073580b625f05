package workflow

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

type RangeErrorKind int

const (
	RangeMalformed RangeErrorKind = iota + 1
	RangeOutOfRange
	RangeStartNotBeforeEnd
)

func (k RangeErrorKind) String() string {
	switch k {
	case RangeMalformed:
		return "malformed"
	case RangeOutOfRange:
		return "out_of_range"
	case RangeStartNotBeforeEnd:
		return "start_not_before_end"
	default:
		return "unknown"
	}
}

type RangeError struct {
	Kind  RangeErrorKind
	Input string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("cut range %q: %s", e.Input, e.Kind)
}

// ParseRange reads "MM:SS-MM:SS" or "SS-SS". Each side may use either form.
// Spaces are ignored, and empty or zero-padded minute/second components
// count as zero. Bounds against the audio are checked by ValidateRange.
func ParseRange(text string) (int, int, error) {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)

	startText, endText, found := strings.Cut(compact, "-")
	if !found {
		return 0, 0, &RangeError{Kind: RangeMalformed, Input: text}
	}
	start, ok := parseOffset(startText)
	if !ok {
		return 0, 0, &RangeError{Kind: RangeMalformed, Input: text}
	}
	end, ok := parseOffset(endText)
	if !ok {
		return 0, 0, &RangeError{Kind: RangeMalformed, Input: text}
	}
	return start, end, nil
}

// ValidateRange reports out-of-range before ordering problems, matching the
// order users see the two messages in.
func ValidateRange(start, end, duration int) error {
	input := fmt.Sprintf("%d-%d", start, end)
	if start < 0 || end < 0 || start > duration || end > duration {
		return &RangeError{Kind: RangeOutOfRange, Input: input}
	}
	if start >= end {
		return &RangeError{Kind: RangeStartNotBeforeEnd, Input: input}
	}
	return nil
}

func parseOffset(s string) (int, bool) {
	minutes, seconds, hasColon := strings.Cut(s, ":")
	if !hasColon {
		if s == "" {
			return 0, false
		}
		return parseDigits(s)
	}
	m, ok := parseDigits(strings.TrimLeft(minutes, "0"))
	if !ok {
		return 0, false
	}
	sec, ok := parseDigits(strings.TrimLeft(seconds, "0"))
	if !ok {
		return 0, false
	}
	if m > (math.MaxInt-sec)/60 {
		return 0, false
	}
	return m*60 + sec, true
}

// parseDigits accepts only ASCII digits; an empty string is zero.
func parseDigits(s string) (int, bool) {
	if s == "" {
		return 0, true
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
