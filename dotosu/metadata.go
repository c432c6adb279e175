package dotosu

import "strconv"

// Metadata keeps its values verbatim: titles and tags may legitimately contain `//`.
type Metadata struct {
	formatState

	Title         string
	TitleUnicode  string
	Artist        string
	ArtistUnicode string
	Creator       string
	Version       string
	Source        string
	Tags          string
	BeatmapID     int
	BeatmapSetID  int
}

func NewMetadata() *Metadata {
	return &Metadata{BeatmapSetID: -1}
}

// ShouldSkipLine only skips blank lines.
func (m *Metadata) ShouldSkipLine(section Section, line string) bool {
	if section != SectionMetadata {
		return DefaultSkipLine(line)
	}
	return isBlank(line)
}

func (m *Metadata) OnLine(section Section, line string) error {
	if section != SectionMetadata {
		return nil
	}
	k, v := splitKeyVal(line)
	switch k {
	case "Title":
		m.Title = v
	case "TitleUnicode":
		m.TitleUnicode = v
	case "Artist":
		m.Artist = v
	case "ArtistUnicode":
		m.ArtistUnicode = v
	case "Creator":
		m.Creator = v
	case "Version":
		m.Version = v
	case "Source":
		m.Source = v
	case "Tags":
		m.Tags = v
	case "BeatmapID":
		return skipLine(set(&m.BeatmapID, parseInt, v))
	case "BeatmapSetID":
		return skipLine(set(&m.BeatmapSetID, parseInt, v))
	}
	return nil
}

func (m *Metadata) encode(w *sectionWriter) {
	w.header(SectionMetadata)
	w.kvTight("Title", m.Title)
	w.kvTight("TitleUnicode", m.TitleUnicode)
	w.kvTight("Artist", m.Artist)
	w.kvTight("ArtistUnicode", m.ArtistUnicode)
	w.kvTight("Creator", m.Creator)
	w.kvTight("Version", m.Version)
	w.kvTight("Source", m.Source)
	w.kvTight("Tags", m.Tags)
	w.kvTight("BeatmapID", strconv.Itoa(m.BeatmapID))
	w.kvTight("BeatmapSetID", strconv.Itoa(m.BeatmapSetID))
}
