package ippopt

import (
	"fmt"
	"strconv"
	"strings"
)

// Resolution is a print resolution in dots per inch.
type Resolution struct {
	X int
	Y int
}

func (r Resolution) String() string {
	if r.X == r.Y {
		return fmt.Sprintf("%ddpi", r.X)
	}
	return fmt.Sprintf("%dx%ddpi", r.X, r.Y)
}

// ParseResolution parses "600dpi" or "600x300dpi". A bare number or any
// other suffix is rejected.
func ParseResolution(s string) (Resolution, bool) {
	prefix, ok := strings.CutSuffix(s, "dpi")
	if !ok {
		return Resolution{}, false
	}
	xs, ys, cross := strings.Cut(prefix, "x")
	if !cross {
		ys = xs
	}
	x, errX := strconv.Atoi(xs)
	y, errY := strconv.Atoi(ys)
	if errX != nil || errY != nil || x <= 0 || y <= 0 {
		return Resolution{}, false
	}
	return Resolution{X: x, Y: y}, true
}

// ParseResolutionList parses a comma-separated supported-resolutions
// list such as "300dpi,600dpi". Malformed entries are skipped.
func ParseResolutionList(s string) []Resolution {
	var out []Resolution
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if r, ok := ParseResolution(part); ok {
			out = append(out, r)
		}
	}
	return out
}

// ParseBool interprets IPP boolean text. "true" and "yes" are true,
// "false" and "no" are false; anything else is not a boolean.
func ParseBool(s string) (v, ok bool) {
	switch s {
	case "true", "yes":
		return true, true
	case "false", "no":
		return false, true
	}
	return false, false
}

// ParseKeywordList splits a comma-separated keyword list, dropping
// empty entries.
func ParseKeywordList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
