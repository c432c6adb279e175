package dotosu

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MAX_PARSE_VALUE bounds every number read from a beatmap.
const MAX_PARSE_VALUE = math.MaxInt32

func parseInt(s string) (int, error) {
	return parseIntLimit(s, MAX_PARSE_VALUE)
}

func parseIntLimit(s string, limit int) (int, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w %q", ErrInvalidNumber, s)
	}
	if v > int64(limit) {
		return 0, ErrNumberOverflow
	}
	if v < -int64(limit) {
		return 0, ErrNumberUnderflow
	}
	return int(v), nil
}

func parseFloat(s string) (float64, error) {
	return parseFloatLimit(s, MAX_PARSE_VALUE)
}

func parseFloatLimit(s string, limit float64) (float64, error) {
	v, err := parseFloatAllowNaN(s, limit)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) {
		return 0, ErrNaN
	}
	return v, nil
}

// parseFloatAllowNaN is parseFloatLimit without the NaN check, for beat lengths.
func parseFloatAllowNaN(s string, limit float64) (float64, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w %q", ErrInvalidNumber, s)
	}
	if v > limit {
		return 0, ErrNumberOverflow
	}
	if v < -limit {
		return 0, ErrNumberUnderflow
	}
	return v, nil
}

func parseBoolInt(s string) (bool, error) {
	v, err := parseInt(s)
	if err != nil {
		return false, err
	}
	return v == 1, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// formatFloat writes v in fixed-point with the fewest digits that read back exactly.
func formatFloat(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// set stores parse(s) in dst, leaving dst untouched when parsing fails.
func set[T any](dst *T, parse func(string) (T, error), s string) error {
	v, err := parse(s)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}
