package dotosu

import (
	"strconv"
	"strings"
)

type Editor struct {
	formatState

	Bookmarks       []int
	DistanceSpacing float64
	BeatDivisor     int
	GridSize        int
	TimelineZoom    float64
}

func NewEditor() *Editor {
	return &Editor{DistanceSpacing: 1, BeatDivisor: 4, GridSize: 4, TimelineZoom: 1}
}

func (e *Editor) OnLine(section Section, line string) error {
	if section != SectionEditor {
		return nil
	}
	k, v := splitKeyVal(trimComment(line))
	switch k {
	case "Bookmarks":
		e.Bookmarks = parseBookmarks(v)
	case "DistanceSpacing":
		return skipLine(set(&e.DistanceSpacing, parseFloat, v))
	case "BeatDivisor":
		d, err := parseInt(v)
		if err != nil {
			return skipLine(err)
		}
		e.BeatDivisor = clampInt(d, 1, 16)
	case "GridSize":
		return skipLine(set(&e.GridSize, parseInt, v))
	case "TimelineZoom":
		z, err := parseFloat(v)
		if err != nil {
			return skipLine(err)
		}
		e.TimelineZoom = max(0, z)
	}
	return nil
}

// parseBookmarks drops entries that are not integers.
func parseBookmarks(v string) []int {
	var out []int
	for _, p := range strings.Split(v, ",") {
		if n, err := parseInt(p); err == nil {
			out = append(out, n)
		}
	}
	return out
}

func (e *Editor) encode(w *sectionWriter) {
	w.header(SectionEditor)
	if len(e.Bookmarks) > 0 {
		marks := make([]string, len(e.Bookmarks))
		for i, b := range e.Bookmarks {
			marks[i] = strconv.Itoa(b)
		}
		w.kv("Bookmarks", strings.Join(marks, ","))
	}
	w.kv("DistanceSpacing", formatFloat(e.DistanceSpacing))
	w.kv("BeatDivisor", strconv.Itoa(e.BeatDivisor))
	w.kv("GridSize", strconv.Itoa(e.GridSize))
	w.kv("TimelineZoom", formatFloat(e.TimelineZoom))
}
