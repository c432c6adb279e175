package main

import (
	"math"

	"osumap/dotosu"
)

// SliderTiming is the playback timing of one slider.
type SliderTiming struct {
	Time       float64
	Type       string
	Slides     int
	Distance   float64 // reconciled path length in osu!pixels
	Duration   float64 // all slides, ms
	Ticks      int     // per slide
	EndX, EndY float64
}

// SliderTimings walks the hit objects alongside the timing points, tracking
// the current red line (tempo) and green line (velocity). A red line resets
// the velocity.
func SliderTimings(beatmap *dotosu.Beatmap) []SliderTiming {
	var out []SliderTiming

	timingPoints := beatmap.TimingPoints.Points
	timingPointIndex := 0
	var lastRedLine *dotosu.UninheritedPoint
	var lastGreenLine *dotosu.InheritedPoint
	if red, ok := beatmap.TimingPoints.TimingPointAt(math.Inf(-1)); ok {
		lastRedLine = &red
	}

	for _, object := range beatmap.HitObjects.Objects {
		for timingPointIndex < len(timingPoints) && timingPoints[timingPointIndex].StartTime() <= object.StartTime() {
			switch tp := timingPoints[timingPointIndex].(type) {
			case dotosu.UninheritedPoint:
				lastRedLine = &tp
				lastGreenLine = nil
			case dotosu.InheritedPoint:
				lastGreenLine = &tp
			}
			timingPointIndex++
		}

		slider, ok := object.(dotosu.Slider)
		if !ok {
			continue
		}

		beatLength := dotosu.DEFAULT_BEAT_LENGTH
		if lastRedLine != nil {
			beatLength = lastRedLine.BeatLen()
		}
		sv := 1.0
		if lastGreenLine != nil {
			sv = lastGreenLine.SliderVelocity()
		}

		curve := slider.Path.Curve()
		visualLength := curve.Distance()
		timeLength := visualLength / (beatmap.Difficulty.SliderMultiplier * 100 * sv) * beatLength
		ticks := max(0, int(math.Floor((timeLength-min(36, timeLength/2))/beatLength*beatmap.Difficulty.SliderTickRate)))

		// odd slide counts end at the tail, even ones back at the head
		end := curve.PositionAtProgress(float64(slider.Slides % 2))

		out = append(out, SliderTiming{
			Time:     slider.Time,
			Type:     slider.Path.Type().String(),
			Slides:   slider.Slides,
			Distance: visualLength,
			Duration: timeLength * float64(slider.Slides),
			Ticks:    ticks,
			EndX:     end.X,
			EndY:     end.Y,
		})
	}
	return out
}
