package dotosu

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"go.uber.org/zap"
)

const (
	EARLY_VERSION_TIMING_OFFSET = 24
	LATEST_VERSION              = 14
	FIRST_LAZER_VERSION         = 128
	VERSION_PREFIX              = "osu file format v"
)

// Section is the name inside a `[Name]` header. Unknown names are valid
// sections too, their lines are simply skipped.
type Section string

const (
	SectionNone         Section = ""
	SectionGeneral      Section = "General"
	SectionEditor       Section = "Editor"
	SectionMetadata     Section = "Metadata"
	SectionDifficulty   Section = "Difficulty"
	SectionEvents       Section = "Events"
	SectionTimingPoints Section = "TimingPoints"
	SectionColours      Section = "Colours"
	SectionHitObjects   Section = "HitObjects"
)

// Known reports whether the section is one the decoder interprets.
func (s Section) Known() bool {
	switch s {
	case SectionGeneral, SectionEditor, SectionMetadata, SectionDifficulty,
		SectionEvents, SectionTimingPoints, SectionColours, SectionHitObjects:
		return true
	}
	return false
}

// SectionDecoder is implemented by every section model and by Beatmap.
//
// OnLine returns nil when the line was consumed, a *LineError when only that
// line is bad, and any other error to abort the decode.
type SectionDecoder interface {
	HandleFormatVersion(line string) error
	ShouldSkipLine(section Section, line string) bool
	OnSectionHeader(section Section)
	OnLine(section Section, line string) error
}

// Finisher is implemented by decoders that post-process once all lines are read.
type Finisher interface {
	Finish()
}

// ---------- shared protocol defaults ----------

// formatState carries the parts of the protocol that most section models share.
type formatState struct {
	version int
}

func (f *formatState) HandleFormatVersion(line string) error {
	v, err := ParseFormatVersion(line)
	if err != nil {
		return err
	}
	f.version = v
	return nil
}

// FormatVersion is the declared version, or LATEST_VERSION when none was read.
func (f *formatState) FormatVersion() int {
	if f.version == 0 {
		return LATEST_VERSION
	}
	return f.version
}

func (f *formatState) setVersion(v int) { f.version = v }

// timeOffset is added to every timestamp read from legacy files.
func (f *formatState) timeOffset() float64 {
	return float64(versionOffset(f.FormatVersion()))
}

func (f *formatState) ShouldSkipLine(_ Section, line string) bool {
	return DefaultSkipLine(line)
}

func (f *formatState) OnSectionHeader(Section) {}

// DefaultSkipLine skips blank lines and full-line `//` comments.
func DefaultSkipLine(line string) bool {
	return isBlank(line) || strings.HasPrefix(line, "//")
}

func isBlank(line string) bool { return strings.TrimSpace(line) == "" }

func versionOffset(version int) int {
	if version < 5 {
		return EARLY_VERSION_TIMING_OFFSET
	}
	return 0
}

// ParseFormatVersion reads the number after the last 'v' of a version marker.
func ParseFormatVersion(line string) (int, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, VERSION_PREFIX) {
		return 0, &FormatVersionError{Line: line, Err: ErrInvalidFormat}
	}
	raw := line[strings.LastIndexByte(line, 'v')+1:]
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &FormatVersionError{Line: line, Err: fmt.Errorf("%w: %w", ErrInvalidFormat, err)}
	}
	if !supportedVersion(v) {
		return 0, &FormatVersionError{Line: line, Err: ErrUnsupportedVersion}
	}
	return v, nil
}

func supportedVersion(v int) bool {
	return (v >= 1 && v <= LATEST_VERSION) || v == FIRST_LAZER_VERSION
}

// ---------- driver ----------

type decodeConfig struct {
	logger  *zap.Logger
	reader  []ReaderOption
	skipped *int
}

// Option configures a decode.
type Option func(*decodeConfig)

// WithLogger reports every discarded line on logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *decodeConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithReaderOptions forwards options to the LineReader.
func WithReaderOptions(opts ...ReaderOption) Option {
	return func(c *decodeConfig) { c.reader = append(c.reader, opts...) }
}

// WithSkippedCount stores the number of discarded lines in n.
func WithSkippedCount(n *int) Option {
	return func(c *decodeConfig) { c.skipped = n }
}

type driverState int

const (
	stateBeforeContent driverState = iota
	stateInSection
)

// DecodeSections feeds every line of r through d.
func DecodeSections(r io.Reader, d SectionDecoder, opts ...Option) error {
	cfg := decodeConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	lr := NewLineReader(r, cfg.reader...)
	state := stateBeforeContent
	section := SectionNone
	sawContent := false
	skipped := 0

	for lr.Next() {
		line := strings.TrimRightFunc(lr.Line(), unicode.IsSpace)

		if !sawContent && !isBlank(line) {
			sawContent = true
			if strings.HasPrefix(strings.TrimSpace(line), VERSION_PREFIX) {
				if err := d.HandleFormatVersion(line); err != nil {
					return err
				}
				continue
			}
		}

		if name, ok := sectionHeader(line); ok {
			state = stateInSection
			section = name
			d.OnSectionHeader(section)
			continue
		}

		if state == stateBeforeContent || d.ShouldSkipLine(section, line) {
			continue
		}

		err := d.OnLine(section, line)
		if err == nil {
			continue
		}
		var le *LineError
		if !errors.As(err, &le) {
			return err
		}
		if le.Section == SectionNone {
			le.Section = section
		}
		if le.Line == "" {
			le.Line = line
		}
		skipped++
		cfg.logger.Warn("skipped malformed line",
			zap.String("section", string(le.Section)),
			zap.String("line", le.Line),
			zap.Error(le.Err),
		)
	}
	if err := lr.Err(); err != nil {
		return newIOError("read", "", err)
	}

	if f, ok := d.(Finisher); ok {
		f.Finish()
	}
	if cfg.skipped != nil {
		*cfg.skipped = skipped
	}
	return nil
}

func sectionHeader(line string) (Section, bool) {
	if !strings.HasPrefix(line, "[") {
		return SectionNone, false
	}
	end := strings.IndexByte(line, ']')
	if end < 0 {
		return SectionNone, false
	}
	return Section(line[1:end]), true
}

// ---------- line helpers shared by the section models ----------

// trimComment cuts an inline `//` comment.
func trimComment(line string) string {
	if i := strings.Index(line, "//"); i >= 0 {
		return line[:i]
	}
	return line
}

// splitKeyVal splits on the first colon and trims both halves.
func splitKeyVal(line string) (key, val string) {
	i := strings.IndexByte(line, ':')
	if i < 0 {
		return strings.TrimSpace(line), ""
	}
	return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:])
}
