package dotosu

import (
	"math"
	"reflect"
	"strings"
	"testing"
)

func TestHitObjectKindBits(t *testing.T) {
	skipped := 0
	b, err := DecodeString("[HitObjects]\n"+
		"0,0,100,3,0\n"+ // circle and slider
		"0,0,200,4,0\n"+ // new combo only
		"0,0,300,0,0\n"+
		"0,0,400\n"+
		"0,0,500,1,0\n",
		WithSkippedCount(&skipped))
	if err != nil {
		t.Fatal(err)
	}
	if skipped != 4 {
		t.Fatalf("skipped = %d, want 4", skipped)
	}
	if len(b.HitObjects.Objects) != 1 || b.HitObjects.Objects[0].StartTime() != 500 {
		t.Fatalf("objects = %+v", b.HitObjects.Objects)
	}
}

func TestHitObjectNewCombo(t *testing.T) {
	b := decodeString(t, "[HitObjects]\n"+
		"0,0,0,1,0\n"+ // first object: forced
		"0,0,100,1,0\n"+
		"0,0,200,8,0,300\n"+ // spinner without the bit
		"0,0,400,1,0\n"+ // after a spinner: forced
		"0,0,500,37,0\n") // new combo, skip 2

	objs := b.HitObjects.Objects
	want := []bool{true, false, false, true, true}
	for i, obj := range objs {
		if obj.NewCombo() != want[i] {
			t.Errorf("object %d: NewCombo = %v, want %v", i, obj.NewCombo(), want[i])
		}
	}
	if objs[4].ComboOffset() != 2 {
		t.Errorf("combo offset = %d, want 2", objs[4].ComboOffset())
	}
	if objs[0].ComboOffset() != 0 {
		t.Errorf("forced new combo must not carry an offset")
	}
	if objs[4].Flags() != TypeCircle|TypeNewCombo|TypeComboSkip2 {
		t.Errorf("flags = %d", objs[4].Flags())
	}
}

func TestHitObjectComboOffsetNeedsNewCombo(t *testing.T) {
	b := decodeString(t, "[HitObjects]\n0,0,0,1,0\n0,0,100,49,0\n")
	obj := b.HitObjects.Objects[1]
	if obj.NewCombo() || obj.ComboOffset() != 0 {
		t.Fatalf("offset without new combo kept: %+v", obj)
	}
}

func TestHitObjectSlider(t *testing.T) {
	b := decodeString(t, "[HitObjects]\n"+
		"100,100,1000,6,2,B|200:200|300:100,2,250.5,2|0|8,1:2|0:0|3:0,2:1:5:70:hit.wav\n")

	s, ok := b.HitObjects.Objects[0].(Slider)
	if !ok {
		t.Fatalf("got %T", b.HitObjects.Objects[0])
	}
	if s.Kind() != KindSlider || !s.NewCombo() || s.HitSound() != HitSoundWhistle {
		t.Fatalf("slider = %+v", s)
	}
	if s.Path.Type() != PathBezier || s.Slides != 2 || s.RepeatCount() != 1 {
		t.Fatalf("path = %+v slides = %d", s.Path, s.Slides)
	}
	wantPts := []Vec2{{100, 100}, {200, 200}, {300, 100}}
	if got := s.Path.ControlPoints(); !reflect.DeepEqual(got, wantPts) {
		t.Fatalf("control points = %v", got)
	}
	if s.Path.ExpectedLength != 250.5 {
		t.Fatalf("length = %v", s.Path.ExpectedLength)
	}
	if math.Abs(s.Length()-250.5) > 1e-9 {
		t.Fatalf("curve distance = %v", s.Length())
	}
	if len(s.EdgeSounds) != 3 || s.EdgeSounds[2] != HitSoundClap {
		t.Fatalf("edge sounds = %v", s.EdgeSounds)
	}
	if len(s.EdgeSets) != 3 || s.EdgeSets[0] != (EdgeSet{SampleNormal, SampleSoft}) {
		t.Fatalf("edge sets = %v", s.EdgeSets)
	}
	want := HitSample{NormalSet: SampleSoft, AdditionSet: SampleNormal, Index: 5, Volume: 70, Filename: "hit.wav"}
	if s.Sample() != want {
		t.Fatalf("sample = %+v", s.Sample())
	}
}

func TestHitObjectSliderErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"too many slides", "0,0,0,2,0,L|100:0,9001,100"},
		{"no control points", "0,0,0,2,0,L,1,100"},
		{"bad point", "0,0,0,2,0,L|100,1,100"},
		{"missing slides", "0,0,0,2,0,L|100:0"},
		{"coordinate overflow", "0,0,0,2,0,L|200000:0,1,100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			skipped := 0
			b, err := DecodeString("[HitObjects]\n"+tt.line+"\n", WithSkippedCount(&skipped))
			if err != nil {
				t.Fatal(err)
			}
			if skipped != 1 || len(b.HitObjects.Objects) != 0 {
				t.Fatalf("skipped = %d, objects = %d", skipped, len(b.HitObjects.Objects))
			}
		})
	}
}

func TestHitObjectSliderDefaults(t *testing.T) {
	b := decodeString(t, "[HitObjects]\n0,0,0,2,0,L|100:0,0,-5\n")
	s := b.HitObjects.Objects[0].(Slider)
	if s.Slides != 1 {
		t.Fatalf("slides = %d, want 1", s.Slides)
	}
	if s.Path.ExpectedLength != 0 || s.Length() != 100 {
		t.Fatalf("negative length must mean natural length, got %v / %v", s.Path.ExpectedLength, s.Length())
	}
}

func TestHitObjectSegmentLetters(t *testing.T) {
	b := decodeString(t, "[HitObjects]\n"+
		"0,0,0,2,0,P|50:50|L|100:0|200:0,1,0\n"+
		"0,0,100,2,0,B|100:0|B|100:100,1,0\n"+
		"0,0,200,2,0,L|100:0|100:0|200:0,1,0\n")
	objs := b.HitObjects.Objects

	arc := objs[0].(Slider)
	want := []PathSegment{
		{PathPerfect, []Vec2{{0, 0}, {50, 50}, {100, 0}}},
		{PathLinear, []Vec2{{100, 0}, {200, 0}}},
	}
	if !reflect.DeepEqual(arc.Path.Segments, want) {
		t.Fatalf("segments = %+v", arc.Path.Segments)
	}
	if want := 50*math.Pi + 100; math.Abs(arc.Length()-want) > 0.5 {
		t.Fatalf("arc then line: length = %v, want %v", arc.Length(), want)
	}

	// the letter shares 100:100 with the first segment, leaving a quadratic curve
	quad := objs[1].(Slider)
	if len(quad.Path.Segments) != 2 || len(quad.Path.Segments[0].Points) != 3 {
		t.Fatalf("segments = %+v", quad.Path.Segments)
	}
	single := ComputeCurve(PathBezier, []Vec2{{0, 0}, {100, 0}, {100, 100}}, 0, ModeOsu)
	if math.Abs(quad.Length()-single.Distance()) > 1e-9 || quad.Length() >= 200 {
		t.Fatalf("length = %v, want %v", quad.Length(), single.Distance())
	}

	// a repeated point splits a segment without a letter
	lines := objs[2].(Slider)
	if len(lines.Path.Segments) != 1 || math.Abs(lines.Length()-200) > 1e-9 {
		t.Fatalf("repeated point: %+v length %v", lines.Path.Segments, lines.Length())
	}
}

func TestHitObjectSegmentLettersRoundTrip(t *testing.T) {
	for _, curve := range []string{
		"P|50:50|L|100:0|200:0",
		"B|100:0|B|100:100",
		"B|L|100:0",
		"C|10:10|20:0|P|30:10|40:0",
		"L|100:0|100:0|200:0",
	} {
		t.Run(curve, func(t *testing.T) {
			b := decodeString(t, "[HitObjects]\n0,0,0,2,0,"+curve+",1,0\n")
			s := b.HitObjects.Objects[0].(Slider)
			if got := encodeCurve(s.Path); got != curve {
				t.Fatalf("encoded %q", got)
			}
		})
	}
}

func TestHitObjectPerfectNeedsThreePoints(t *testing.T) {
	// the end point 200:0 belongs to the P segment, four points in all
	b := decodeString(t, "[HitObjects]\n0,0,0,2,0,P|50:50|100:0|L|200:0|300:0,1,0\n")
	s := b.HitObjects.Objects[0].(Slider)
	if s.Path.Segments[0].Type != PathPerfect || len(s.Path.Segments[0].Points) != 4 {
		t.Fatalf("segments = %+v", s.Path.Segments)
	}
	bezier := ComputeCurve(PathBezier, []Vec2{{0, 0}, {50, 50}, {100, 0}, {200, 0}}, 0, ModeOsu)
	if want := bezier.Distance() + 100; math.Abs(s.Length()-want) > 1e-9 {
		t.Fatalf("length = %v, want %v", s.Length(), want)
	}
}

func TestHitObjectCurveLetterErrors(t *testing.T) {
	for _, curve := range []string{"L|100:0|B|L|200:0", "L|100:0|B"} {
		skipped := 0
		b, err := DecodeString("[HitObjects]\n0,0,0,2,0,"+curve+",1,100\n", WithSkippedCount(&skipped))
		if err != nil {
			t.Fatal(err)
		}
		if skipped != 1 || len(b.HitObjects.Objects) != 0 {
			t.Errorf("%s: skipped = %d, objects = %d", curve, skipped, len(b.HitObjects.Objects))
		}
	}
}

func TestHitObjectSpinnerAndHold(t *testing.T) {
	b := decodeString(t, "[General]\nMode: 3\n\n[HitObjects]\n"+
		"256,192,1000,8,0,500\n"+
		"64,192,2000,128,0,2500:1:2:0:50:\n"+
		"64,192,3000,128,0\n")

	objs := b.HitObjects.Objects
	if sp := objs[0].(Spinner); sp.EndTime() != 1000 {
		t.Errorf("spinner end = %v, want clamped to start", sp.EndTime())
	}
	h := objs[1].(Hold)
	if h.EndTime() != 2500 || h.Sample().NormalSet != SampleNormal || h.Sample().Volume != 50 {
		t.Errorf("hold = %+v", h)
	}
	if objs[2].EndTime() != 3000 {
		t.Errorf("hold without end = %v", objs[2].EndTime())
	}
}

func TestHitObjectsSortedStable(t *testing.T) {
	b := decodeString(t, "[HitObjects]\n"+
		"1,0,300,1,0\n"+
		"2,0,100,1,0\n"+
		"3,0,300,1,0\n"+
		"4,0,200,1,0\n")

	var xs []int
	for _, obj := range b.HitObjects.Objects {
		xs = append(xs, obj.Pos().X)
	}
	want := []int{2, 4, 1, 3}
	for i := range want {
		if xs[i] != want[i] {
			t.Fatalf("order = %v, want %v", xs, want)
		}
	}
	counts := b.HitObjects.Counts()
	if counts[KindCircle] != 4 {
		t.Fatalf("counts = %v", counts)
	}
}

func TestSliderDuration(t *testing.T) {
	b, err := DecodeFile("testdata/sample.osu")
	if err != nil {
		t.Fatal(err)
	}
	s := b.HitObjects.Objects[1].(Slider)
	// 100 * 1.8 px per beat of 500ms
	want := 200 / (100 * 1.8 / 500)
	if got := b.SliderDuration(s); math.Abs(got-want) > 1e-9 {
		t.Fatalf("duration = %v, want %v", got, want)
	}
	if got := b.EndTime(s); math.Abs(got-(1000+want)) > 1e-9 {
		t.Fatalf("end time = %v", got)
	}
}

func TestHitObjectNewComboFollowsSortedOrder(t *testing.T) {
	b := decodeString(t, "[HitObjects]\n"+
		"256,192,100,8,0,150\n"+
		"0,0,0,1,0\n"+
		"0,0,200,1,0\n")

	want := []bool{true, false, true}
	for i, obj := range b.HitObjects.Objects {
		if obj.NewCombo() != want[i] {
			t.Errorf("object %d at %v: NewCombo = %v, want %v", i, obj.StartTime(), obj.NewCombo(), want[i])
		}
	}

	out, err := EncodeToString(b)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "0,0,200,5,0,") {
		t.Fatalf("circle after the spinner lost its new combo:\n%s", out)
	}
	again, err := DecodeString(out)
	if err != nil {
		t.Fatal(err)
	}
	for i, obj := range again.HitObjects.Objects {
		if obj.NewCombo() != want[i] {
			t.Errorf("round trip object %d: NewCombo = %v, want %v", i, obj.NewCombo(), want[i])
		}
	}
	out2, err := EncodeToString(again)
	if err != nil {
		t.Fatal(err)
	}
	if out2 != out {
		t.Fatalf("second encoding differs:\n%s\n---\n%s", out, out2)
	}
}

func TestHitObjectNewComboAfterBreak(t *testing.T) {
	b := decodeString(t, "[Events]\n2,100,200\n2,900,1000\n2,500,600\n\n[HitObjects]\n"+
		"0,0,0,1,0\n"+
		"0,0,50,1,0\n"+
		"0,0,300,8,0,350\n"+ // spinner after a break
		"0,0,400,1,0\n"+
		"0,0,700,128,0,750\n"+ // holds never start a combo
		"0,0,800,1,0\n"+
		"0,0,1000,1,0\n"+ // break ends at the same time
		"0,0,1100,1,0\n")

	want := []bool{true, false, true, true, false, false, false, true}
	objs := b.HitObjects.Objects
	if len(objs) != len(want) {
		t.Fatalf("got %d objects", len(objs))
	}
	for i, obj := range objs {
		if obj.NewCombo() != want[i] {
			t.Errorf("object %d at %v: NewCombo = %v, want %v", i, obj.StartTime(), obj.NewCombo(), want[i])
		}
	}
}
