// Package cues turns decoder events into flat subtitle cues and collapses
// incremental repaints.
package cues

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/zsiec/ccextract/internal/cea608"
	"github.com/zsiec/ccextract/internal/media"
)

// DefaultMergeGap is the largest gap between two cues that Merge bridges.
const DefaultMergeGap = 250 * time.Millisecond

// Assemble converts events into cues ordered by start time. With
// combineRows every event becomes one cue with its rows joined by newlines;
// otherwise each row becomes a cue spanning the event.
func Assemble(events []cea608.Event, combineRows bool) []media.Cue {
	var out []media.Cue
	for _, ev := range events {
		start, end := media.TicksToDuration(ev.Start), media.TicksToDuration(ev.End)
		if combineRows {
			var lines []string
			var style media.Style
			for _, r := range ev.Rows {
				line := cleanText(r.Text)
				if line == "" {
					continue
				}
				if len(lines) == 0 {
					style = r.Style
				}
				lines = append(lines, line)
			}
			if len(lines) == 0 {
				continue
			}
			out = append(out, media.Cue{
				Start:   start,
				End:     end,
				Text:    strings.Join(lines, "\n"),
				Style:   style,
				Channel: ev.Channel,
			})
			continue
		}
		for _, r := range ev.Rows {
			text := cleanText(r.Text)
			if text == "" {
				continue
			}
			out = append(out, media.Cue{Start: start, End: end, Text: text, Style: r.Style, Channel: ev.Channel})
		}
	}
	slices.SortStableFunc(out, func(a, b media.Cue) int {
		switch {
		case a.Start < b.Start:
			return -1
		case a.Start > b.Start:
			return 1
		}
		return 0
	})
	return out
}

func cleanText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Merge collapses roll-up style repaints in one forward pass. When a cue
// starts within maxGap of the previous cue's end and its text extends the
// previous text, the previous cue is removed and the later one takes over
// its start time. Only neighbours are compared. A merged cue is checked
// again against the cue before it, so no mergeable neighbours remain.
func Merge(cues []media.Cue, maxGap time.Duration) []media.Cue {
	out := make([]media.Cue, 0, len(cues))
	for _, next := range cues {
		out = append(out, next)
		for n := len(out); n >= 2 && mergeable(out[n-2], out[n-1], maxGap); n-- {
			out[n-1].Start = out[n-2].Start
			out = slices.Delete(out, n-2, n-1)
		}
	}
	return out
}

func mergeable(cur, next media.Cue, maxGap time.Duration) bool {
	return next.Start-cur.End <= maxGap && strings.HasPrefix(next.Text, cur.Text)
}
