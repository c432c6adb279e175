package dotosu

import (
	"fmt"
	"strconv"
	"strings"
)

type HitSoundFlags uint8

const (
	HitSoundNormal  HitSoundFlags = 1 << iota // 1
	HitSoundWhistle                           // 2
	HitSoundFinish                            // 4
	HitSoundClap                              // 8
)

// HitSample is the trailing `normalSet:additionSet:index:volume:filename` field.
type HitSample struct {
	NormalSet   SampleSet
	AdditionSet SampleSet
	Index       int
	Volume      int
	Filename    string
}

// EdgeSet is one `normal:addition` entry of a slider's edge sets.
type EdgeSet struct {
	NormalSet   SampleSet
	AdditionSet SampleSet
}

func parseHitSoundFlags(s string) (HitSoundFlags, error) {
	v, err := parseInt(s)
	if err != nil {
		return 0, err
	}
	return HitSoundFlags(v & 0xf), nil
}

// parseHitSample fills as many fields as the string provides.
func parseHitSample(s string) (HitSample, error) {
	var hs HitSample
	if strings.TrimSpace(s) == "" {
		return hs, nil
	}
	parts := strings.SplitN(s, ":", 5)
	ints := [4]int{}
	for i := 0; i < len(parts) && i < 4; i++ {
		v, err := parseInt(parts[i])
		if err != nil {
			return hs, fmt.Errorf("hit sample: %w", err)
		}
		ints[i] = v
	}
	hs.NormalSet = toSampleSet(ints[0])
	hs.AdditionSet = toSampleSet(ints[1])
	hs.Index = ints[2]
	hs.Volume = ints[3]
	if len(parts) == 5 {
		hs.Filename = strings.Trim(strings.TrimSpace(parts[4]), "\"")
	}
	return hs, nil
}

func (hs HitSample) String() string {
	return strings.Join([]string{
		strconv.Itoa(int(hs.NormalSet)),
		strconv.Itoa(int(hs.AdditionSet)),
		strconv.Itoa(hs.Index),
		strconv.Itoa(hs.Volume),
		hs.Filename,
	}, ":")
}

func parseEdgeSounds(s string) []HitSoundFlags {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []HitSoundFlags
	for _, p := range strings.Split(s, "|") {
		// unparsable entries fall back to no sound rather than dropping the row
		f, _ := parseHitSoundFlags(p)
		out = append(out, f)
	}
	return out
}

func parseEdgeSets(s string) ([]EdgeSet, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []EdgeSet
	for _, p := range strings.Split(s, "|") {
		pair := strings.SplitN(p, ":", 2)
		normal, err := parseInt(pair[0])
		if err != nil {
			return nil, fmt.Errorf("edge set: %w", err)
		}
		addition := 0
		if len(pair) == 2 {
			if addition, err = parseInt(pair[1]); err != nil {
				return nil, fmt.Errorf("edge set: %w", err)
			}
		}
		out = append(out, EdgeSet{NormalSet: toSampleSet(normal), AdditionSet: toSampleSet(addition)})
	}
	return out, nil
}

func joinEdgeSounds(sounds []HitSoundFlags) string {
	parts := make([]string, len(sounds))
	for i, s := range sounds {
		parts[i] = strconv.Itoa(int(s))
	}
	return strings.Join(parts, "|")
}

func joinEdgeSets(sets []EdgeSet) string {
	parts := make([]string, len(sets))
	for i, s := range sets {
		parts[i] = strconv.Itoa(int(s.NormalSet)) + ":" + strconv.Itoa(int(s.AdditionSet))
	}
	return strings.Join(parts, "|")
}
