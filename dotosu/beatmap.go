package dotosu

import (
	"bytes"
	"io"
	"os"
	"strings"
)

// Beatmap is a full .osu file. It is itself a SectionDecoder that fans lines
// out to the section models.
type Beatmap struct {
	formatState

	General      *General
	Editor       *Editor
	Metadata     *Metadata
	Difficulty   *Difficulty
	Events       *Events
	TimingPoints *TimingPoints
	Colours      *Colours
	HitObjects   *HitObjects
}

func NewBeatmap() *Beatmap {
	return &Beatmap{
		General:      NewGeneral(),
		Editor:       NewEditor(),
		Metadata:     NewMetadata(),
		Difficulty:   NewDifficulty(),
		Events:       NewEvents(),
		TimingPoints: NewTimingPoints(),
		Colours:      NewColours(),
		HitObjects:   NewHitObjects(),
	}
}

type versioned interface {
	setVersion(int)
}

func (b *Beatmap) sections() []SectionDecoder {
	return []SectionDecoder{
		b.General, b.Editor, b.Metadata, b.Difficulty,
		b.Events, b.TimingPoints, b.Colours, b.HitObjects,
	}
}

func (b *Beatmap) sectionFor(s Section) SectionDecoder {
	switch s {
	case SectionGeneral:
		return b.General
	case SectionEditor:
		return b.Editor
	case SectionMetadata:
		return b.Metadata
	case SectionDifficulty:
		return b.Difficulty
	case SectionEvents:
		return b.Events
	case SectionTimingPoints:
		return b.TimingPoints
	case SectionColours:
		return b.Colours
	case SectionHitObjects:
		return b.HitObjects
	}
	return nil
}

func (b *Beatmap) HandleFormatVersion(line string) error {
	if err := b.formatState.HandleFormatVersion(line); err != nil {
		return err
	}
	b.SetFormatVersion(b.version)
	return nil
}

// SetFormatVersion changes the version of the map and every section. It also
// decides the timing offset applied when encoding.
func (b *Beatmap) SetFormatVersion(v int) {
	b.version = v
	for _, s := range b.sections() {
		s.(versioned).setVersion(v)
	}
}

func (b *Beatmap) ShouldSkipLine(section Section, line string) bool {
	if d := b.sectionFor(section); d != nil {
		return d.ShouldSkipLine(section, line)
	}
	return DefaultSkipLine(line)
}

func (b *Beatmap) OnSectionHeader(section Section) {
	// sections later in the file read settings from [General]
	b.TimingPoints.setDefaults(b.General)
	b.Difficulty.setMode(b.General.Mode)
	b.HitObjects.setMode(b.General.Mode)

	if d := b.sectionFor(section); d != nil {
		d.OnSectionHeader(section)
	}
}

func (b *Beatmap) OnLine(section Section, line string) error {
	d := b.sectionFor(section)
	if d == nil {
		return nil
	}
	return d.OnLine(section, line)
}

func (b *Beatmap) Finish() {
	for _, s := range b.sections() {
		if f, ok := s.(Finisher); ok {
			f.Finish()
		}
	}
	b.HitObjects.applyBreaks(b.Events.Breaks)
}

// SliderDuration is the time in ms a slider takes to complete all slides,
// from the slider multiplier and the timing in effect at its start.
func (b *Beatmap) SliderDuration(s Slider) float64 {
	red, ok := b.TimingPoints.TimingPointAt(s.Time)
	beatLen := DEFAULT_BEAT_LENGTH
	if ok {
		beatLen = red.BeatLen()
	}
	sv := b.TimingPoints.SliderVelocityAt(s.Time)
	velocity := 100 * b.Difficulty.SliderMultiplier * sv / beatLen
	if velocity <= 0 {
		return 0
	}
	return s.Length() / velocity * float64(s.Slides)
}

// EndTime is the end of any hit object, resolving slider durations.
func (b *Beatmap) EndTime(obj HitObject) float64 {
	if s, ok := obj.(Slider); ok {
		return s.Time + b.SliderDuration(s)
	}
	return obj.EndTime()
}

// ---------- entry points ----------

// Decode reads a full beatmap. Malformed lines are skipped; the only errors
// are fatal ones (I/O and the version marker).
func Decode(r io.Reader, opts ...Option) (*Beatmap, error) {
	b := NewBeatmap()
	if err := DecodeSections(r, b, opts...); err != nil {
		return nil, err
	}
	return b, nil
}

func DecodeBytes(data []byte, opts ...Option) (*Beatmap, error) {
	return Decode(bytes.NewReader(data), opts...)
}

func DecodeString(s string, opts ...Option) (*Beatmap, error) {
	return Decode(strings.NewReader(s), opts...)
}

func DecodeFile(path string, opts ...Option) (*Beatmap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newIOError("open", path, err)
	}
	defer f.Close()

	b, err := Decode(f, opts...)
	if ioErr, ok := err.(*IOError); ok && ioErr.Path == "" {
		ioErr.Path = path
	}
	return b, err
}
