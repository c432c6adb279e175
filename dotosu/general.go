package dotosu

import (
	"strconv"
	"strings"
)

type GameMode uint8

const (
	ModeOsu GameMode = iota
	ModeTaiko
	ModeCatch
	ModeMania
)

func (m GameMode) String() string {
	switch m {
	case ModeTaiko:
		return "taiko"
	case ModeCatch:
		return "fruits"
	case ModeMania:
		return "mania"
	default:
		return "osu"
	}
}

func parseGameMode(s string) (GameMode, error) {
	v, err := parseInt(s)
	if err != nil {
		return ModeOsu, err
	}
	if v < 0 || v > int(ModeMania) {
		return ModeOsu, ErrInvalidMode
	}
	return GameMode(v), nil
}

type SampleSet uint8

const (
	SampleNone SampleSet = iota
	SampleNormal
	SampleSoft
	SampleDrum
)

func (s SampleSet) String() string {
	switch s {
	case SampleNormal:
		return "Normal"
	case SampleSoft:
		return "Soft"
	case SampleDrum:
		return "Drum"
	default:
		return "None"
	}
}

// parseSampleSet accepts either the name or the number of a bank.
func parseSampleSet(s string) (SampleSet, error) {
	switch strings.TrimSpace(s) {
	case "0", "None":
		return SampleNone, nil
	case "1", "Normal":
		return SampleNormal, nil
	case "2", "Soft":
		return SampleSoft, nil
	case "3", "Drum":
		return SampleDrum, nil
	}
	return SampleNone, ErrInvalidSampleSet
}

func toSampleSet(id int) SampleSet {
	switch id {
	case 1:
		return SampleNormal
	case 2:
		return SampleSoft
	case 3:
		return SampleDrum
	default:
		return SampleNone
	}
}

type CountdownType uint8

const (
	CountdownNone CountdownType = iota
	CountdownNormal
	CountdownHalfSpeed
	CountdownDoubleSpeed
)

func parseCountdown(s string) (CountdownType, error) {
	switch strings.TrimSpace(s) {
	case "0", "None":
		return CountdownNone, nil
	case "1", "Normal":
		return CountdownNormal, nil
	case "2", "Half speed":
		return CountdownHalfSpeed, nil
	case "3", "Double speed":
		return CountdownDoubleSpeed, nil
	}
	return CountdownNone, ErrInvalidCountdown
}

// General is the [General] section.
type General struct {
	formatState

	AudioFilename            string
	AudioLeadIn              int
	PreviewTime              int
	SampleSet                SampleSet
	SampleVolume             int
	StackLeniency            float64
	Mode                     GameMode
	LetterboxInBreaks        bool
	SpecialStyle             bool
	WidescreenStoryboard     bool
	EpilepsyWarning          bool
	SamplesMatchPlaybackRate bool
	Countdown                CountdownType
	CountdownOffset          int
}

func NewGeneral() *General {
	return &General{
		PreviewTime:   -1,
		SampleSet:     SampleNormal,
		SampleVolume:  100,
		StackLeniency: 0.7,
		Countdown:     CountdownNormal,
	}
}

func (g *General) OnLine(section Section, line string) error {
	if section != SectionGeneral {
		return nil
	}
	k, v := splitKeyVal(trimComment(line))
	return skipLine(g.setField(k, v))
}

func (g *General) setField(key, v string) error {
	switch key {
	case "AudioFilename":
		g.AudioFilename = standardisePath(v)
	case "AudioLeadIn":
		return set(&g.AudioLeadIn, parseInt, v)
	case "PreviewTime":
		t, err := parseInt(v)
		if err != nil {
			return err
		}
		if t != -1 {
			t += versionOffset(g.FormatVersion())
		}
		g.PreviewTime = t
	case "SampleSet":
		return set(&g.SampleSet, parseSampleSet, v)
	case "SampleVolume":
		vol, err := parseInt(v)
		if err != nil {
			return err
		}
		g.SampleVolume = clampInt(vol, 0, 100)
	case "StackLeniency":
		f, err := parseFloat(v)
		if err != nil {
			return err
		}
		g.StackLeniency = clampFloat(f, 0, 1)
	case "Mode":
		return set(&g.Mode, parseGameMode, v)
	case "LetterboxInBreaks":
		return set(&g.LetterboxInBreaks, parseBoolInt, v)
	case "SpecialStyle":
		return set(&g.SpecialStyle, parseBoolInt, v)
	case "WidescreenStoryboard":
		return set(&g.WidescreenStoryboard, parseBoolInt, v)
	case "EpilepsyWarning":
		return set(&g.EpilepsyWarning, parseBoolInt, v)
	case "SamplesMatchPlaybackRate":
		return set(&g.SamplesMatchPlaybackRate, parseBoolInt, v)
	case "Countdown":
		return set(&g.Countdown, parseCountdown, v)
	case "CountdownOffset":
		return set(&g.CountdownOffset, parseInt, v)
	}
	return nil
}

func (g *General) encode(w *sectionWriter) {
	offset := versionOffset(g.FormatVersion())
	preview := g.PreviewTime
	if preview != -1 {
		preview -= offset
	}
	w.header(SectionGeneral)
	w.kv("AudioFilename", g.AudioFilename)
	w.kv("AudioLeadIn", strconv.Itoa(g.AudioLeadIn))
	w.kv("PreviewTime", strconv.Itoa(preview))
	w.kv("Countdown", strconv.Itoa(int(g.Countdown)))
	w.kv("SampleSet", g.SampleSet.String())
	w.kv("SampleVolume", strconv.Itoa(g.SampleVolume))
	w.kv("StackLeniency", formatFloat(g.StackLeniency))
	w.kv("Mode", strconv.Itoa(int(g.Mode)))
	w.kv("LetterboxInBreaks", boolInt(g.LetterboxInBreaks))
	w.kv("SpecialStyle", boolInt(g.SpecialStyle))
	w.kv("WidescreenStoryboard", boolInt(g.WidescreenStoryboard))
	w.kv("EpilepsyWarning", boolInt(g.EpilepsyWarning))
	w.kv("SamplesMatchPlaybackRate", boolInt(g.SamplesMatchPlaybackRate))
	w.kv("CountdownOffset", strconv.Itoa(g.CountdownOffset))
}

func standardisePath(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
