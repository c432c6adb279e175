package dotosu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// LineReader turns a byte stream into lines. A leading byte-order mark selects
// UTF-8 or UTF-16 and is dropped; line terminators (LF or CRLF) are removed.
// Every other line is handed out as is, whatever its length.
type LineReader struct {
	br   *bufio.Reader
	line string
	done bool
	err  error
}

type readerConfig struct {
	fallback encoding.Encoding
}

type ReaderOption func(*readerConfig)

// WithCharset decodes BOM-less input with enc instead of UTF-8.
func WithCharset(enc encoding.Encoding) ReaderOption {
	return func(c *readerConfig) {
		if enc != nil {
			c.fallback = enc
		}
	}
}

// CharsetByName resolves a WHATWG label such as "shift_jis" or "windows-1252".
func CharsetByName(name string) (encoding.Encoding, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("charset %q: %w", name, err)
	}
	return enc, nil
}

func NewLineReader(r io.Reader, opts ...ReaderOption) *LineReader {
	cfg := readerConfig{fallback: unicode.UTF8}
	for _, opt := range opts {
		opt(&cfg)
	}

	decoded := transform.NewReader(r, unicode.BOMOverride(cfg.fallback.NewDecoder()))
	return &LineReader{br: bufio.NewReaderSize(decoded, 64*1024)}
}

// Next advances to the next line. It returns false at the end of input or on
// the first read error, which Err then reports.
func (lr *LineReader) Next() bool {
	if lr.done {
		return false
	}
	line, err := lr.br.ReadString('\n')
	if err != nil {
		lr.done = true
		if !errors.Is(err, io.EOF) {
			lr.err = err
			lr.line = ""
			return false
		}
		if line == "" {
			lr.line = ""
			return false
		}
	}
	line = strings.TrimSuffix(line, "\n")
	lr.line = strings.TrimSuffix(line, "\r")
	return true
}

func (lr *LineReader) Line() string { return lr.line }

func (lr *LineReader) Err() error { return lr.err }
