package dotosu

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"
)

type EffectFlags uint8

const (
	EffectKiai         EffectFlags = 1 << 0
	EffectOmitFirstBar EffectFlags = 1 << 3
)

const (
	DEFAULT_BEAT_LENGTH = 60_000.0 / 60
	MIN_BEAT_LENGTH     = 6.0
	MAX_BEAT_LENGTH     = 60_000.0
)

// PointBase holds the fields every timing point row carries. BeatLength is
// the raw value as written.
type PointBase struct {
	Time        float64
	BeatLength  float64
	Meter       int
	SampleSet   SampleSet
	SampleIndex int
	Volume      int
	Effects     EffectFlags
}

func (p PointBase) Base() PointBase    { return p }
func (p PointBase) StartTime() float64 { return p.Time }
func (p PointBase) Kiai() bool         { return p.Effects&EffectKiai != 0 }
func (p PointBase) OmitFirstBar() bool { return p.Effects&EffectOmitFirstBar != 0 }

// TimingPoint is a row of [TimingPoints]: an UninheritedPoint (red line) or
// an InheritedPoint (green line).
type TimingPoint interface {
	Base() PointBase
	StartTime() float64
	Kiai() bool
	SliderVelocity() float64
	timingPoint()
}

// UninheritedPoint sets the tempo; BeatLength is the beat interval in ms.
type UninheritedPoint struct{ PointBase }

// InheritedPoint scales slider velocity; BeatLength is -100/multiplier.
type InheritedPoint struct{ PointBase }

func (UninheritedPoint) timingPoint() {}
func (InheritedPoint) timingPoint()   {}

// BeatLen is the clamped beat interval.
func (u UninheritedPoint) BeatLen() float64 {
	return clampFloat(u.BeatLength, MIN_BEAT_LENGTH, MAX_BEAT_LENGTH)
}

func (u UninheritedPoint) BPM() float64 { return 60_000 / u.BeatLen() }

func (UninheritedPoint) SliderVelocity() float64 { return 1 }

func (g InheritedPoint) SliderVelocity() float64 {
	if math.IsNaN(g.BeatLength) || g.BeatLength >= 0 {
		return 1
	}
	return clampFloat(100/-g.BeatLength, 0.1, 10)
}

func isUninherited(tp TimingPoint) bool {
	_, ok := tp.(UninheritedPoint)
	return ok
}

type TimingPoints struct {
	formatState

	Points []TimingPoint

	defaultSet    SampleSet
	defaultVolume int
}

func NewTimingPoints() *TimingPoints {
	return &TimingPoints{defaultSet: SampleNormal, defaultVolume: 100}
}

// setDefaults takes the fallbacks for missing sample fields from [General].
func (t *TimingPoints) setDefaults(g *General) {
	t.defaultSet = g.SampleSet
	t.defaultVolume = g.SampleVolume
}

func (t *TimingPoints) OnLine(section Section, line string) error {
	if section != SectionTimingPoints {
		return nil
	}
	tp, err := t.parse(strings.Split(trimComment(line), ","))
	if err != nil {
		return skipLine(err)
	}
	t.Points = append(t.Points, tp)
	return nil
}

func (t *TimingPoints) parse(parts []string) (TimingPoint, error) {
	if len(parts) < 2 {
		return nil, fmt.Errorf("%w: timing point needs time and beat length", ErrInvalidLine)
	}
	field := func(i int) (string, bool) {
		if i < len(parts) {
			return strings.TrimSpace(parts[i]), true
		}
		return "", false
	}

	p := PointBase{
		Meter:     4,
		SampleSet: t.defaultSet,
		Volume:    t.defaultVolume,
	}
	uninherited := true

	time, err := parseFloat(parts[0])
	if err != nil {
		return nil, err
	}
	p.Time = time + t.timeOffset()

	if p.BeatLength, err = parseFloatAllowNaN(parts[1], MAX_PARSE_VALUE); err != nil {
		return nil, err
	}

	if s, ok := field(2); ok && !strings.HasPrefix(s, "0") {
		if p.Meter, err = parseInt(s); err != nil {
			return nil, err
		}
		if p.Meter < 1 {
			return nil, ErrInvalidMeter
		}
	}
	if s, ok := field(3); ok {
		id, err := parseInt(s)
		if err != nil {
			return nil, err
		}
		if set := toSampleSet(id); set != SampleNone {
			p.SampleSet = set
		}
	}
	if s, ok := field(4); ok {
		if p.SampleIndex, err = parseInt(s); err != nil {
			return nil, err
		}
	}
	if s, ok := field(5); ok {
		if p.Volume, err = parseInt(s); err != nil {
			return nil, err
		}
	}
	if s, ok := field(6); ok {
		uninherited = strings.HasPrefix(s, "1")
	}
	if s, ok := field(7); ok {
		fx, err := parseInt(s)
		if err != nil {
			return nil, err
		}
		p.Effects = EffectFlags(fx) & (EffectKiai | EffectOmitFirstBar)
	}

	if p.SampleSet == SampleNone {
		p.SampleSet = SampleNormal
	}
	if !uninherited {
		return InheritedPoint{p}, nil
	}
	if math.IsNaN(p.BeatLength) {
		return nil, ErrTimingPointNaN
	}
	return UninheritedPoint{p}, nil
}

// Finish orders points by time. At equal times red lines come first so that
// lookups see the tempo before its modifiers.
func (t *TimingPoints) Finish() {
	slices.SortStableFunc(t.Points, func(a, b TimingPoint) int {
		switch {
		case a.StartTime() < b.StartTime():
			return -1
		case a.StartTime() > b.StartTime():
			return 1
		case isUninherited(a) && !isUninherited(b):
			return -1
		case !isUninherited(a) && isUninherited(b):
			return 1
		}
		return 0
	})
}

// TimingPointAt returns the uninherited point in effect at time, falling back
// to the first red line for times before it.
func (t *TimingPoints) TimingPointAt(time float64) (UninheritedPoint, bool) {
	var first, found *UninheritedPoint
	for _, tp := range t.Points {
		red, ok := tp.(UninheritedPoint)
		if !ok {
			continue
		}
		if first == nil {
			first = &red
		}
		if red.Time > time {
			break
		}
		found = &red
	}
	if found == nil {
		found = first
	}
	if found == nil {
		return UninheritedPoint{}, false
	}
	return *found, true
}

// InheritedPointAt returns the most recent point of either kind at or before
// time. Red lines after a green one reset the slider velocity.
func (t *TimingPoints) InheritedPointAt(time float64) (TimingPoint, bool) {
	i := sort.Search(len(t.Points), func(i int) bool { return t.Points[i].StartTime() > time })
	if i == 0 {
		return nil, false
	}
	return t.Points[i-1], true
}

// SliderVelocityAt is the velocity multiplier in effect at time.
func (t *TimingPoints) SliderVelocityAt(time float64) float64 {
	tp, ok := t.InheritedPointAt(time)
	if !ok {
		return 1
	}
	return tp.SliderVelocity()
}

func (t *TimingPoints) encode(w *sectionWriter) {
	offset := t.timeOffset()
	w.header(SectionTimingPoints)
	for _, tp := range t.Points {
		p := tp.Base()
		w.line(strings.Join([]string{
			formatFloat(p.Time - offset),
			formatFloat(p.BeatLength),
			strconv.Itoa(p.Meter),
			strconv.Itoa(int(p.SampleSet)),
			strconv.Itoa(p.SampleIndex),
			strconv.Itoa(p.Volume),
			boolInt(isUninherited(tp)),
			strconv.Itoa(int(p.Effects)),
		}, ","))
	}
}
