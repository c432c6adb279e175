package main

import (
	"math"

	"osumap/dotosu"
)

type ObjectCounts struct {
	Circles  int
	Sliders  int
	Spinners int
	Holds    int
}

type DifficultySummary struct {
	HP               float64
	CS               float64
	OD               float64
	AR               float64
	SliderMultiplier float64
	SliderTickRate   float64
}

// Summary is the JSON view of a decoded beatmap printed by `decode` and
// returned by POST /decode.
type Summary struct {
	FormatVersion int
	Mode          string
	Title         string
	Artist        string
	Creator       string
	Version       string
	BeatmapID     int
	BeatmapSetID  int
	AudioFilename string
	Background    string `json:",omitempty"`

	Difficulty DifficultySummary
	Counts     ObjectCounts
	MinBPM     float64
	MaxBPM     float64
	DrainStart float64
	DrainEnd   float64
	Breaks     int

	ComboColours int
	SkippedLines int
	Sliders      []SliderTiming `json:",omitempty"`
}

func Summarize(b *dotosu.Beatmap, skipped int) Summary {
	s := Summary{
		FormatVersion: b.FormatVersion(),
		Mode:          b.General.Mode.String(),
		Title:         b.Metadata.Title,
		Artist:        b.Metadata.Artist,
		Creator:       b.Metadata.Creator,
		Version:       b.Metadata.Version,
		BeatmapID:     b.Metadata.BeatmapID,
		BeatmapSetID:  b.Metadata.BeatmapSetID,
		AudioFilename: b.General.AudioFilename,
		Background:    b.Events.BackgroundFile,
		Difficulty: DifficultySummary{
			HP:               b.Difficulty.HPDrainRate,
			CS:               b.Difficulty.CircleSize,
			OD:               b.Difficulty.OverallDifficulty,
			AR:               b.Difficulty.ApproachRate,
			SliderMultiplier: b.Difficulty.SliderMultiplier,
			SliderTickRate:   b.Difficulty.SliderTickRate,
		},
		Breaks:       len(b.Events.Breaks),
		ComboColours: len(b.Colours.ComboColours),
		SkippedLines: skipped,
		Sliders:      SliderTimings(b),
	}

	counts := b.HitObjects.Counts()
	s.Counts = ObjectCounts{
		Circles:  counts[dotosu.KindCircle],
		Sliders:  counts[dotosu.KindSlider],
		Spinners: counts[dotosu.KindSpinner],
		Holds:    counts[dotosu.KindHold],
	}

	s.MinBPM, s.MaxBPM = math.Inf(1), math.Inf(-1)
	for _, tp := range b.TimingPoints.Points {
		red, ok := tp.(dotosu.UninheritedPoint)
		if !ok {
			continue
		}
		s.MinBPM = min(s.MinBPM, red.BPM())
		s.MaxBPM = max(s.MaxBPM, red.BPM())
	}
	if math.IsInf(s.MinBPM, 0) {
		s.MinBPM, s.MaxBPM = 0, 0
	}

	if objs := b.HitObjects.Objects; len(objs) > 0 {
		s.DrainStart = objs[0].StartTime()
		for _, obj := range objs {
			s.DrainEnd = max(s.DrainEnd, b.EndTime(obj))
		}
	}
	return s
}
