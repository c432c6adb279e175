package dotosu

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

type BreakPeriod struct{ Start, End float64 }

func (b BreakPeriod) Duration() float64 { return b.End - b.Start }

// Events keeps the parts of [Events] that describe the beatmap itself.
// Storyboard commands are not interpreted.
type Events struct {
	formatState

	BackgroundFile   string
	BackgroundOffset Vec2
	VideoFile        string
	VideoOffset      int
	Breaks           []BreakPeriod
}

func NewEvents() *Events { return &Events{} }

func (e *Events) OnLine(section Section, line string) error {
	if section != SectionEvents {
		return nil
	}
	parts := splitCSV(trimComment(line))
	if len(parts) < 3 {
		return skipLine(fmt.Errorf("%w: event needs at least 3 fields", ErrInvalidLine))
	}

	switch parts[0] {
	case "0", "Background":
		return skipLine(e.background(parts))
	case "1", "Video":
		return skipLine(e.video(parts))
	case "2", "Break":
		return skipLine(e.addBreak(parts))
	case "4", "Sprite":
		if e.BackgroundFile == "" && len(parts) >= 4 {
			e.BackgroundFile = cleanFilename(parts[3])
		}
	}
	return nil
}

func (e *Events) background(parts []string) error {
	var off Vec2
	if len(parts) >= 5 {
		x, err := parseInt(parts[3])
		if err != nil {
			return err
		}
		y, err := parseInt(parts[4])
		if err != nil {
			return err
		}
		off = Vec2{X: x, Y: y}
	}
	e.BackgroundFile = cleanFilename(parts[2])
	e.BackgroundOffset = off
	return nil
}

func (e *Events) video(parts []string) error {
	fn := cleanFilename(parts[2])
	if !isVideoFile(fn) {
		e.BackgroundFile = fn
		return nil
	}
	offset, err := parseInt(parts[1])
	if err != nil {
		return err
	}
	e.VideoFile = fn
	e.VideoOffset = offset
	return nil
}

func (e *Events) addBreak(parts []string) error {
	offset := e.timeOffset()
	start, err := parseFloat(parts[1])
	if err != nil {
		return err
	}
	end, err := parseFloat(parts[2])
	if err != nil {
		return err
	}
	start += offset
	end = max(start, end+offset)
	e.Breaks = append(e.Breaks, BreakPeriod{Start: start, End: end})
	return nil
}

// InBreak reports whether t falls inside a break period.
func (e *Events) InBreak(t float64) bool {
	for _, b := range e.Breaks {
		if t >= b.Start && t <= b.End {
			return true
		}
	}
	return false
}

func isVideoFile(fn string) bool {
	switch strings.ToLower(filepath.Ext(fn)) {
	case ".avi", ".flv", ".mp4", ".m4v", ".mkv", ".mov", ".wmv", ".mpg", ".mpeg", ".ogv", ".webm":
		return true
	}
	return false
}

func cleanFilename(s string) string {
	s = strings.Trim(s, "\"")
	s = strings.ReplaceAll(s, "\\\\", "\\")
	return standardisePath(s)
}

// splitCSV splits on commas outside double quotes. Quotes are kept.
func splitCSV(line string) []string {
	var out []string
	var cur strings.Builder
	inQ := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			inQ = !inQ
			cur.WriteByte(c)
		case c == ',' && !inQ:
			out = append(out, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(out, strings.TrimSpace(cur.String()))
}

func quote(s string) string { return "\"" + s + "\"" }

func (e *Events) encode(w *sectionWriter) {
	offset := e.timeOffset()
	w.header(SectionEvents)
	w.line("//Background and Video events")
	if e.BackgroundFile != "" {
		w.line(fmt.Sprintf("0,0,%s,%d,%d", quote(e.BackgroundFile), e.BackgroundOffset.X, e.BackgroundOffset.Y))
	}
	if e.VideoFile != "" {
		w.line("Video," + strconv.Itoa(e.VideoOffset) + "," + quote(e.VideoFile))
	}
	w.line("//Break Periods")
	for _, b := range e.Breaks {
		w.line("2," + formatFloat(b.Start-offset) + "," + formatFloat(b.End-offset))
	}
}
