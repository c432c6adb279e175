package dotosu

const MAX_MANIA_KEY_COUNT = 18

type Difficulty struct {
	formatState

	HPDrainRate       float64
	CircleSize        float64
	OverallDifficulty float64
	ApproachRate      float64
	SliderMultiplier  float64
	SliderTickRate    float64

	seenAR bool
	mania  bool
}

func NewDifficulty() *Difficulty {
	return &Difficulty{
		HPDrainRate:       5,
		CircleSize:        5,
		OverallDifficulty: 5,
		ApproachRate:      5,
		SliderMultiplier:  1.4,
		SliderTickRate:    1,
	}
}

// setMode widens the CircleSize range for mania key counts.
func (d *Difficulty) setMode(mode GameMode) { d.mania = mode == ModeMania }

func (d *Difficulty) OnLine(section Section, line string) error {
	if section != SectionDifficulty {
		return nil
	}
	k, v := splitKeyVal(trimComment(line))
	var dst *float64
	lo, hi := -10.0, 10.0
	switch k {
	case "HPDrainRate":
		dst = &d.HPDrainRate
	case "CircleSize":
		dst = &d.CircleSize
		if d.mania {
			hi = MAX_MANIA_KEY_COUNT
		}
	case "OverallDifficulty":
		dst = &d.OverallDifficulty
	case "ApproachRate":
		dst = &d.ApproachRate
	case "SliderMultiplier":
		dst, lo, hi = &d.SliderMultiplier, 0.4, 3.6
	case "SliderTickRate":
		dst, lo, hi = &d.SliderTickRate, 0.5, 8
	default:
		return nil
	}

	f, err := parseFloat(v)
	if err != nil {
		return skipLine(err)
	}
	*dst = clampFloat(f, lo, hi)

	switch k {
	case "ApproachRate":
		d.seenAR = true
	case "OverallDifficulty":
		if !d.seenAR {
			d.ApproachRate = d.OverallDifficulty
		}
	}
	return nil
}

// Finish drops per-decode scratch state.
func (d *Difficulty) Finish() { d.seenAR = false }

func (d *Difficulty) encode(w *sectionWriter) {
	w.header(SectionDifficulty)
	w.kvTight("HPDrainRate", formatFloat(d.HPDrainRate))
	w.kvTight("CircleSize", formatFloat(d.CircleSize))
	w.kvTight("OverallDifficulty", formatFloat(d.OverallDifficulty))
	w.kvTight("ApproachRate", formatFloat(d.ApproachRate))
	w.kvTight("SliderMultiplier", formatFloat(d.SliderMultiplier))
	w.kvTight("SliderTickRate", formatFloat(d.SliderTickRate))
}
