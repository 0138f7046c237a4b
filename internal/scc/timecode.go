package scc

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	ticksPerSecond = 90000
	framesPerSec   = 30
	ticksPerFrame  = ticksPerSecond / framesPerSec
)

// FormatTimeCode renders non-negative 90 kHz ticks as HH:MM:SS:FF at 30
// frames per second. Partial frames are truncated.
func FormatTimeCode(ticks int64) string {
	h := ticks / (3600 * ticksPerSecond)
	ticks -= h * 3600 * ticksPerSecond
	m := ticks / (60 * ticksPerSecond)
	ticks -= m * 60 * ticksPerSecond
	s := ticks / ticksPerSecond
	f := ticks % ticksPerSecond / ticksPerFrame
	return fmt.Sprintf("%02d:%02d:%02d:%02d", h, m, s, f)
}

// ParseTimeCode converts HH:MM:SS:FF, or HH:MM:SS;FF for drop-frame, to
// ticks.
func ParseTimeCode(tc string) (int64, error) {
	parts := strings.FieldsFunc(tc, func(r rune) bool { return r == ':' || r == ';' })
	if len(parts) != 4 || strings.Count(tc, ":")+strings.Count(tc, ";") != 3 {
		return 0, fmt.Errorf("time code %q: want HH:MM:SS:FF", tc)
	}
	var v [4]int64
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("time code %q: bad field %q", tc, p)
		}
		v[i] = n
	}
	if v[1] > 59 || v[2] > 59 || v[3] >= framesPerSec {
		return 0, fmt.Errorf("time code %q: field out of range", tc)
	}
	frames := (v[0]*3600+v[1]*60+v[2])*framesPerSec + v[3]
	return frames * ticksPerFrame, nil
}
