package dotosu

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// sectionWriter buffers output and remembers the first write error, so the
// section encoders can write without checking every call.
type sectionWriter struct {
	w       *bufio.Writer
	err     error
	started bool
}

func newSectionWriter(w io.Writer) *sectionWriter {
	return &sectionWriter{w: bufio.NewWriter(w)}
}

func (sw *sectionWriter) line(s string) {
	if sw.err != nil {
		return
	}
	if _, err := sw.w.WriteString(s); err != nil {
		sw.err = err
		return
	}
	if err := sw.w.WriteByte('\n'); err != nil {
		sw.err = err
	}
}

// header starts a section, separated from the previous one by a blank line.
func (sw *sectionWriter) header(s Section) {
	if sw.started {
		sw.line("")
	}
	sw.started = true
	sw.line("[" + string(s) + "]")
}

func (sw *sectionWriter) kv(k, v string) { sw.line(k + ": " + v) }

func (sw *sectionWriter) kvTight(k, v string) { sw.line(k + ":" + v) }

func (sw *sectionWriter) flush() error {
	if sw.err != nil {
		return sw.err
	}
	return sw.w.Flush()
}

func boolInt(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Encode writes b in canonical form. The version line keeps the decoded
// version, so legacy timing offsets are undone on the way out.
func Encode(w io.Writer, b *Beatmap) error {
	sw := newSectionWriter(w)
	sw.line(VERSION_PREFIX + strconv.Itoa(b.FormatVersion()))
	sw.line("")

	b.General.encode(sw)
	b.Editor.encode(sw)
	b.Metadata.encode(sw)
	b.Difficulty.encode(sw)
	b.Events.encode(sw)
	b.TimingPoints.encode(sw)
	b.Colours.encode(sw)
	b.HitObjects.encode(sw)
	return sw.flush()
}

func EncodeToString(b *Beatmap) (string, error) {
	var sb strings.Builder
	if err := Encode(&sb, b); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// EncodeFile writes b to path, replacing any existing file.
func EncodeFile(path string, b *Beatmap) error {
	f, err := os.Create(path)
	if err != nil {
		return newIOError("create", path, err)
	}
	if err := Encode(f, b); err != nil {
		f.Close()
		return newIOError("write", path, err)
	}
	if err := f.Close(); err != nil {
		return newIOError("close", path, fmt.Errorf("flush: %w", err))
	}
	return nil
}
