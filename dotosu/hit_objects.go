package dotosu

import (
	"cmp"
	"fmt"
	"math"
	"math/bits"
	"slices"
	"strconv"
	"strings"
)

// MAX_COORDINATE_VALUE bounds positions and control points.
const MAX_COORDINATE_VALUE = 131_072

const MAX_SLIDES = 9000

// ---------- HitObject enums & typed variants ----------

type ObjectKind uint8

const (
	KindCircle ObjectKind = iota
	KindSlider
	KindSpinner
	KindHold
)

func (k ObjectKind) String() string {
	switch k {
	case KindSlider:
		return "slider"
	case KindSpinner:
		return "spinner"
	case KindHold:
		return "hold"
	default:
		return "circle"
	}
}

type HitObjectTypeFlags int

const (
	TypeCircle     HitObjectTypeFlags = 1 << iota // 1
	TypeSlider                                    // 2
	TypeNewCombo                                  // 4
	TypeSpinner                                   // 8
	TypeComboSkip1                                // 16
	TypeComboSkip2                                // 32
	TypeComboSkip3                                // 64
	TypeHold       HitObjectTypeFlags = 1 << 7    // 128

	typeKindMask  = TypeCircle | TypeSlider | TypeSpinner | TypeHold
	typeComboMask = TypeComboSkip1 | TypeComboSkip2 | TypeComboSkip3
)

type Vec2 struct{ X, Y int }

// HitObject is closed over Circle, Slider, Spinner and Hold.
type HitObject interface {
	Kind() ObjectKind
	StartTime() float64
	EndTime() float64
	NewCombo() bool
	ComboOffset() int
	Pos() Vec2
	HitSound() HitSoundFlags
	Sample() HitSample
	Flags() HitObjectTypeFlags
}

type BaseHO struct {
	PosXY      Vec2
	Time       float64
	IsNewCombo bool
	ComboSkip  int
	Sound      HitSoundFlags
	SampleHS   HitSample
}

func (b BaseHO) StartTime() float64      { return b.Time }
func (b BaseHO) NewCombo() bool          { return b.IsNewCombo }
func (b BaseHO) ComboOffset() int        { return b.ComboSkip }
func (b BaseHO) Pos() Vec2               { return b.PosXY }
func (b BaseHO) HitSound() HitSoundFlags { return b.Sound }
func (b BaseHO) Sample() HitSample       { return b.SampleHS }

func (b BaseHO) flags(kind HitObjectTypeFlags) HitObjectTypeFlags {
	f := kind | HitObjectTypeFlags(b.ComboSkip<<4)&typeComboMask
	if b.IsNewCombo {
		f |= TypeNewCombo
	}
	return f
}

type Circle struct{ BaseHO }

func (Circle) Kind() ObjectKind            { return KindCircle }
func (c Circle) EndTime() float64          { return c.Time }
func (c Circle) Flags() HitObjectTypeFlags { return c.flags(TypeCircle) }

type Slider struct {
	BaseHO
	Path       *SliderPath
	Slides     int
	EdgeSounds []HitSoundFlags // head, repeats..., tail
	EdgeSets   []EdgeSet
}

func (Slider) Kind() ObjectKind            { return KindSlider }
func (s Slider) Flags() HitObjectTypeFlags { return s.flags(TypeSlider) }

// EndTime of a slider needs timing information, see SliderDuration.
func (s Slider) EndTime() float64 { return s.Time }

// Length is the reconciled path length in osu!pixels.
func (s Slider) Length() float64 { return s.Path.Curve().Distance() }

func (s Slider) RepeatCount() int { return max(0, s.Slides-1) }

type Spinner struct {
	BaseHO
	End float64
}

func (Spinner) Kind() ObjectKind            { return KindSpinner }
func (s Spinner) EndTime() float64          { return s.End }
func (s Spinner) Flags() HitObjectTypeFlags { return s.flags(TypeSpinner) }

type Hold struct {
	BaseHO
	End float64
}

func (Hold) Kind() ObjectKind            { return KindHold }
func (h Hold) EndTime() float64          { return h.End }
func (h Hold) Flags() HitObjectTypeFlags { return h.flags(TypeHold) }

// ---------- section model ----------

type HitObjects struct {
	formatState

	Objects []HitObject

	mode GameMode
}

func NewHitObjects() *HitObjects { return &HitObjects{} }

// setMode selects the curve tolerance for sliders decoded from now on.
func (h *HitObjects) setMode(mode GameMode) { h.mode = mode }

func (h *HitObjects) OnLine(section Section, line string) error {
	if section != SectionHitObjects {
		return nil
	}
	obj, err := h.parse(strings.Split(trimComment(line), ","))
	if err != nil {
		return skipLine(err)
	}
	h.Objects = append(h.Objects, obj)
	return nil
}

func (h *HitObjects) parse(parts []string) (HitObject, error) {
	if len(parts) < 5 {
		return nil, fmt.Errorf("%w: hit object needs at least 5 fields", ErrInvalidLine)
	}
	offset := h.timeOffset()

	x, err := parseCoordinate(parts[0])
	if err != nil {
		return nil, err
	}
	y, err := parseCoordinate(parts[1])
	if err != nil {
		return nil, err
	}
	start, err := parseFloat(parts[2])
	if err != nil {
		return nil, err
	}
	typ, err := parseInt(parts[3])
	if err != nil {
		return nil, err
	}
	sound, err := parseHitSoundFlags(parts[4])
	if err != nil {
		return nil, err
	}

	flags := HitObjectTypeFlags(typ)
	kindBits := flags & typeKindMask
	if bits.OnesCount(uint(kindBits)) != 1 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHitObjectType, typ)
	}

	newCombo := flags&TypeNewCombo != 0
	base := BaseHO{
		PosXY:      Vec2{X: x, Y: y},
		Time:       start + offset,
		IsNewCombo: newCombo,
		Sound:      sound,
	}
	if newCombo {
		base.ComboSkip = int(flags&typeComboMask) >> 4
	}
	field := func(i int) string {
		if i < len(parts) {
			return parts[i]
		}
		return ""
	}

	switch kindBits {
	case TypeCircle:
		if base.SampleHS, err = parseHitSample(field(5)); err != nil {
			return nil, err
		}
		return Circle{BaseHO: base}, nil

	case TypeSlider:
		return h.parseSlider(base, parts)

	case TypeSpinner:
		if len(parts) < 6 {
			return nil, fmt.Errorf("%w: spinner needs an end time", ErrInvalidLine)
		}
		end, err := parseFloat(parts[5])
		if err != nil {
			return nil, err
		}
		if base.SampleHS, err = parseHitSample(field(6)); err != nil {
			return nil, err
		}
		return Spinner{BaseHO: base, End: max(base.Time, end+offset)}, nil

	default: // TypeHold
		end := base.Time
		if s := field(5); strings.TrimSpace(s) != "" {
			endStr, sample, _ := strings.Cut(s, ":")
			e, err := parseFloat(endStr)
			if err != nil {
				return nil, err
			}
			end = max(base.Time, e+offset)
			if base.SampleHS, err = parseHitSample(sample); err != nil {
				return nil, err
			}
		}
		return Hold{BaseHO: base, End: end}, nil
	}
}

// parseSlider reads `curve,slides,length,edgeSounds,edgeSets,hitSample`.
func (h *HitObjects) parseSlider(base BaseHO, parts []string) (HitObject, error) {
	if len(parts) < 7 {
		return nil, fmt.Errorf("%w: slider needs a curve and a slide count", ErrInvalidLine)
	}
	segments, err := parseCurve(base.PosXY, parts[5])
	if err != nil {
		return nil, err
	}
	slides, err := parseInt(parts[6])
	if err != nil {
		return nil, err
	}
	if slides > MAX_SLIDES {
		return nil, fmt.Errorf("%w: %d", ErrTooManySlides, slides)
	}

	length := 0.0
	if len(parts) > 7 {
		if length, err = parseFloatLimit(parts[7], MAX_COORDINATE_VALUE); err != nil {
			return nil, err
		}
		length = max(0, length)
	}

	s := Slider{BaseHO: base, Slides: max(1, slides)}
	if len(parts) > 8 {
		s.EdgeSounds = parseEdgeSounds(parts[8])
	}
	if len(parts) > 9 {
		if s.EdgeSets, err = parseEdgeSets(parts[9]); err != nil {
			return nil, err
		}
	}
	if len(parts) > 10 {
		if s.SampleHS, err = parseHitSample(parts[10]); err != nil {
			return nil, err
		}
	}
	s.Path = NewSegmentedSliderPath(segments, length, h.mode)
	return s, nil
}

// parseCurve turns "B|x:y|x:y" into typed segments of absolute control
// points, the first one headed by the slider position. A type letter after
// the first one starts a new segment at the point that follows it; that
// point also closes the previous segment.
func parseCurve(head Vec2, curve string) ([]PathSegment, error) {
	tokens := strings.Split(strings.TrimSpace(curve), "|")
	if len(tokens) == 0 || tokens[0] == "" {
		return nil, fmt.Errorf("%w: empty curve", ErrInvalidLine)
	}
	first := PathBezier
	rest := tokens
	if isCurveLetter(tokens[0]) {
		first = parsePathType(tokens[0])
		rest = tokens[1:]
	}

	segments := []PathSegment{{Type: first, Points: []Vec2{head}}}
	total := 1
	pending, hasPending := PathBezier, false
	for _, tok := range rest {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if isCurveLetter(tok) {
			if hasPending {
				return nil, fmt.Errorf("%w: path type %q without a control point", ErrInvalidLine, tok)
			}
			pending, hasPending = parsePathType(tok), true
			continue
		}
		p, err := parseControlPoint(tok)
		if err != nil {
			return nil, err
		}
		cur := &segments[len(segments)-1]
		cur.Points = append(cur.Points, p)
		if hasPending {
			segments = append(segments, PathSegment{Type: pending, Points: []Vec2{p}})
			hasPending = false
		}
		total++
	}
	if hasPending {
		return nil, fmt.Errorf("%w: curve ends with a path type", ErrInvalidLine)
	}
	if total < 2 {
		return nil, ErrTooFewControlPoints
	}
	return segments, nil
}

func parseControlPoint(tok string) (Vec2, error) {
	xs, ys, ok := strings.Cut(tok, ":")
	if !ok {
		return Vec2{}, fmt.Errorf("%w: control point %q", ErrInvalidLine, tok)
	}
	x, err := parseCoordinate(xs)
	if err != nil {
		return Vec2{}, err
	}
	y, err := parseCoordinate(ys)
	if err != nil {
		return Vec2{}, err
	}
	return Vec2{X: x, Y: y}, nil
}

func isCurveLetter(tok string) bool {
	if tok == "" {
		return false
	}
	c := tok[0]
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func parseCoordinate(s string) (int, error) {
	f, err := parseFloatLimit(s, MAX_COORDINATE_VALUE)
	if err != nil {
		return 0, err
	}
	return int(math.Trunc(f)), nil
}

// Finish orders objects by start time. The first circle or slider, and any
// circle or slider right after a spinner, starts a new combo.
func (h *HitObjects) Finish() {
	slices.SortStableFunc(h.Objects, func(a, b HitObject) int {
		switch {
		case a.StartTime() < b.StartTime():
			return -1
		case a.StartTime() > b.StartTime():
			return 1
		}
		return 0
	})
	for i, obj := range h.Objects {
		if i == 0 || h.Objects[i-1].Kind() == KindSpinner {
			h.Objects[i] = withNewCombo(obj, false)
		}
	}
}

// applyBreaks starts a new combo on the first object after each break.
// Objects must already be sorted.
func (h *HitObjects) applyBreaks(breaks []BreakPeriod) {
	breaks = slices.Clone(breaks)
	slices.SortStableFunc(breaks, func(a, b BreakPeriod) int { return cmp.Compare(a.End, b.End) })

	next := 0
	for i, obj := range h.Objects {
		forced := false
		for next < len(breaks) && breaks[next].End < obj.StartTime() {
			forced = true
			next++
		}
		if forced {
			h.Objects[i] = withNewCombo(obj, true)
		}
	}
}

// withNewCombo returns obj with its new combo flag set. Holds never start a
// combo; spinners only when spinners is set.
func withNewCombo(obj HitObject, spinners bool) HitObject {
	switch o := obj.(type) {
	case Circle:
		o.IsNewCombo = true
		return o
	case Slider:
		o.IsNewCombo = true
		return o
	case Spinner:
		if spinners {
			o.IsNewCombo = true
		}
		return o
	}
	return obj
}

// Counts returns the number of objects of each kind.
func (h *HitObjects) Counts() map[ObjectKind]int {
	out := make(map[ObjectKind]int, 4)
	for _, obj := range h.Objects {
		out[obj.Kind()]++
	}
	return out
}

func (h *HitObjects) encode(w *sectionWriter) {
	offset := h.timeOffset()
	w.header(SectionHitObjects)
	for _, obj := range h.Objects {
		p := obj.Pos()
		fields := []string{
			strconv.Itoa(p.X),
			strconv.Itoa(p.Y),
			formatFloat(obj.StartTime() - offset),
			strconv.Itoa(int(obj.Flags())),
			strconv.Itoa(int(obj.HitSound())),
		}
		switch obj := obj.(type) {
		case Circle:
			fields = append(fields, obj.SampleHS.String())
		case Slider:
			fields = append(fields,
				encodeCurve(obj.Path),
				strconv.Itoa(obj.Slides),
				formatFloat(obj.Path.ExpectedLength),
				joinEdgeSounds(obj.EdgeSounds),
				joinEdgeSets(obj.EdgeSets),
				obj.SampleHS.String(),
			)
		case Spinner:
			fields = append(fields, formatFloat(obj.End-offset), obj.SampleHS.String())
		case Hold:
			fields = append(fields, formatFloat(obj.End-offset)+":"+obj.SampleHS.String())
		}
		w.line(strings.Join(fields, ","))
	}
}

// encodeCurve writes each segment's letter followed by its points. The head
// is implied, and a boundary point is written once, after the letter of the
// segment it starts.
func encodeCurve(p *SliderPath) string {
	var tokens []string
	for i, seg := range p.Segments {
		tokens = append(tokens, seg.Type.Letter())
		pts := seg.Points
		if i == 0 && len(pts) > 0 {
			pts = pts[1:]
		}
		if i < len(p.Segments)-1 && len(pts) > 0 {
			pts = pts[:len(pts)-1]
		}
		for _, cp := range pts {
			tokens = append(tokens, strconv.Itoa(cp.X)+":"+strconv.Itoa(cp.Y))
		}
	}
	return strings.Join(tokens, "|")
}
