package dotosu

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestEncodeRoundTrip(t *testing.T) {
	b1, err := DecodeFile("testdata/sample.osu")
	if err != nil {
		t.Fatal(err)
	}
	s1, err := EncodeToString(b1)
	if err != nil {
		t.Fatal(err)
	}
	b2, err := DecodeString(s1)
	if err != nil {
		t.Fatal(err)
	}
	s2, err := EncodeToString(b2)
	if err != nil {
		t.Fatal(err)
	}
	if s1 != s2 {
		t.Fatalf("encoding is not stable:\n%s\n---\n%s", s1, s2)
	}

	if !reflect.DeepEqual(b1.General, b2.General) {
		t.Errorf("general: %+v vs %+v", b1.General, b2.General)
	}
	if !reflect.DeepEqual(b1.Editor, b2.Editor) {
		t.Errorf("editor: %+v vs %+v", b1.Editor, b2.Editor)
	}
	if !reflect.DeepEqual(b1.Metadata, b2.Metadata) {
		t.Errorf("metadata: %+v vs %+v", b1.Metadata, b2.Metadata)
	}
	if !reflect.DeepEqual(b1.Difficulty, b2.Difficulty) {
		t.Errorf("difficulty: %+v vs %+v", b1.Difficulty, b2.Difficulty)
	}
	if !reflect.DeepEqual(b1.Events, b2.Events) {
		t.Errorf("events: %+v vs %+v", b1.Events, b2.Events)
	}
	if !reflect.DeepEqual(b1.TimingPoints, b2.TimingPoints) {
		t.Errorf("timing points: %+v vs %+v", b1.TimingPoints, b2.TimingPoints)
	}
	if !reflect.DeepEqual(b1.Colours, b2.Colours) {
		t.Errorf("colours: %+v vs %+v", b1.Colours, b2.Colours)
	}

	o1, o2 := b1.HitObjects.Objects, b2.HitObjects.Objects
	if len(o1) != len(o2) {
		t.Fatalf("hit objects: %d vs %d", len(o1), len(o2))
	}
	for i := range o1 {
		if o1[i].Kind() != o2[i].Kind() || o1[i].StartTime() != o2[i].StartTime() ||
			o1[i].Flags() != o2[i].Flags() || o1[i].Sample() != o2[i].Sample() {
			t.Errorf("hit object %d: %+v vs %+v", i, o1[i], o2[i])
		}
	}
	s1a, s2a := o1[1].(Slider), o2[1].(Slider)
	if !reflect.DeepEqual(s1a.Path.Segments, s2a.Path.Segments) || s1a.Length() != s2a.Length() {
		t.Errorf("slider path changed")
	}
}

func TestEncodeSampleContents(t *testing.T) {
	b, err := DecodeFile("testdata/sample.osu")
	if err != nil {
		t.Fatal(err)
	}
	out, err := EncodeToString(b)
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"osu file format v14\n",
		"AudioFilename: audio.mp3\n",
		"SampleSet: Soft\n",
		"Title:Test Song\n",
		"TitleUnicode:テストソング\n",
		"Tags:test //not a comment\n",
		"SliderMultiplier:1.8\n",
		"0,0,\"bg.jpg\",0,0\n",
		"2,10000,15000\n",
		"2000,-50,4,2,0,60,0,1\n",
		"Combo2 : 0,200,255\n",
		"SliderBorder : 10,20,30\n",
		"256,192,500,5,0,0:0:0:0:\n",
		"100,100,1000,2,0,L|300:100,1,200,,,0:0:0:0:\n",
		"256,192,3000,12,0,4000,0:0:0:0:\n",
		"64,64,5000,5,2,0:0:0:0:\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output is missing %q", want)
		}
	}

	order := []Section{SectionGeneral, SectionEditor, SectionMetadata, SectionDifficulty,
		SectionEvents, SectionTimingPoints, SectionColours, SectionHitObjects}
	last := -1
	for _, s := range order {
		i := strings.Index(out, "\n["+string(s)+"]\n")
		if i <= last {
			t.Fatalf("section %s out of order", s)
		}
		last = i
	}
	if !strings.Contains(out, "\n\n[Editor]\n") {
		t.Fatal("sections must be separated by a blank line")
	}
}

func TestEncodeOmitsEmptyColours(t *testing.T) {
	out, err := EncodeToString(NewBeatmap())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "[Colours]") {
		t.Fatal("empty colours section was written")
	}
	if !strings.HasPrefix(out, "osu file format v14\n") {
		t.Fatalf("missing version line: %q", out[:20])
	}
}

func TestEncodeEarlyVersion(t *testing.T) {
	input := "osu file format v4\n\n" +
		"[General]\nPreviewTime: 1000\n\n" +
		"[Events]\n2,300,400\n\n" +
		"[TimingPoints]\n100,500,4,1,0,100,1,0\n\n" +
		"[HitObjects]\n64,64,100,1,0\n256,192,200,8,0,900\n"

	b, err := DecodeString(input)
	if err != nil {
		t.Fatal(err)
	}
	if b.General.PreviewTime != 1024 || b.Events.Breaks[0].Start != 324 {
		t.Fatalf("offset not applied: %d %+v", b.General.PreviewTime, b.Events.Breaks)
	}

	out, err := EncodeToString(b)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"osu file format v4\n",
		"PreviewTime: 1000\n",
		"2,300,400\n",
		"100,500,4,1,0,100,1,0\n",
		"64,64,100,5,0,0:0:0:0:\n",
		"256,192,200,8,0,900,0:0:0:0:\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output is missing %q:\n%s", want, out)
		}
	}
}

func TestEncodeFloatFormatting(t *testing.T) {
	tests := map[float64]string{
		0:        "0",
		1.4:      "1.4",
		-100:     "-100",
		0.000001: "0.000001",
		1e21:     "1000000000000000000000",
	}
	for in, want := range tests {
		if got := formatFloat(in); got != want {
			t.Errorf("formatFloat(%v) = %q, want %q", in, got, want)
		}
	}
}

var errSink = errors.New("disk full")

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errSink }

func TestEncodeWriteError(t *testing.T) {
	if err := Encode(failingWriter{}, NewBeatmap()); !errors.Is(err, errSink) {
		t.Fatalf("got %v, want %v", err, errSink)
	}
}

func TestEncodeFile(t *testing.T) {
	b, err := DecodeFile("testdata/sample.osu")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "out.osu")
	if err := EncodeFile(path, b); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := EncodeToString(b)
	if string(data) != want {
		t.Fatal("file contents differ from EncodeToString")
	}
}
