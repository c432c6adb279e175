package dotosu

import (
	"fmt"
	"strconv"
	"strings"
)

// Colour is RGBA; alpha is 255 unless the row gives a fourth component.
type Colour struct{ R, G, B, A uint8 }

func (c Colour) String() string {
	s := fmt.Sprintf("%d,%d,%d", c.R, c.G, c.B)
	if c.A != 255 {
		s += "," + strconv.Itoa(int(c.A))
	}
	return s
}

type CustomColour struct {
	Name   string
	Colour Colour
}

type Colours struct {
	formatState

	ComboColours  []Colour
	CustomColours []CustomColour
}

func NewColours() *Colours { return &Colours{} }

func (c *Colours) OnLine(section Section, line string) error {
	if section != SectionColours {
		return nil
	}
	k, v := splitKeyVal(trimComment(line))
	col, err := parseColour(v)
	if err != nil {
		return skipLine(err)
	}
	if isComboKey(k) {
		c.ComboColours = append(c.ComboColours, col)
		return nil
	}
	c.SetCustom(k, col)
	return nil
}

// SetCustom replaces an existing colour of the same name or appends a new one.
func (c *Colours) SetCustom(name string, col Colour) {
	for i := range c.CustomColours {
		if c.CustomColours[i].Name == name {
			c.CustomColours[i].Colour = col
			return
		}
	}
	c.CustomColours = append(c.CustomColours, CustomColour{Name: name, Colour: col})
}

// Custom looks up a named colour such as SliderBorder.
func (c *Colours) Custom(name string) (Colour, bool) {
	for _, cc := range c.CustomColours {
		if cc.Name == name {
			return cc.Colour, true
		}
	}
	return Colour{}, false
}

func isComboKey(k string) bool {
	rest, ok := strings.CutPrefix(k, "Combo")
	if !ok {
		return false
	}
	_, err := strconv.Atoi(rest)
	return rest == "" || err == nil
}

func parseColour(v string) (Colour, error) {
	parts := strings.Split(v, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return Colour{}, ErrInvalidColour
	}
	var comp [4]uint8
	comp[3] = 255
	for i, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return Colour{}, fmt.Errorf("%w: %q", ErrInvalidColour, p)
		}
		comp[i] = uint8(n)
	}
	return Colour{R: comp[0], G: comp[1], B: comp[2], A: comp[3]}, nil
}

func (c *Colours) encode(w *sectionWriter) {
	if len(c.ComboColours) == 0 && len(c.CustomColours) == 0 {
		return
	}
	w.header(SectionColours)
	for i, col := range c.ComboColours {
		w.line(fmt.Sprintf("Combo%d : %s", i+1, col))
	}
	for _, cc := range c.CustomColours {
		w.line(fmt.Sprintf("%s : %s", cc.Name, cc.Colour))
	}
}
