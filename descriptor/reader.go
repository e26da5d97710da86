package descriptor

import (
	"bufio"
	"io"
	"strings"
)

// LineReader reads a byte stream one line at a time with single-line
// peek and a running byte offset. Section parsers use it to find
// document boundaries (and, in bare-document mode, to stop early).
type LineReader struct {
	br     *bufio.Reader
	peeked *string
	offset int64 // byte offset of the next unread line
}

// NewLineReader creates a LineReader over r.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{br: bufio.NewReader(r)}
}

// Offset returns the byte offset of the next line ReadLine would return.
func (lr *LineReader) Offset() int64 { return lr.offset }

// PeekLine returns the next line without consuming it. Returns io.EOF
// when the stream is exhausted. The trailing newline is stripped.
func (lr *LineReader) PeekLine() (string, error) {
	if lr.peeked != nil {
		return *lr.peeked, nil
	}
	line, err := lr.br.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	lr.peeked = &line
	return line, nil
}

// ReadLine returns the next line and advances the reader. Returns
// io.EOF when the stream is exhausted.
func (lr *LineReader) ReadLine() (string, error) {
	line, err := lr.PeekLine()
	if err != nil {
		return "", err
	}
	lr.peeked = nil
	lr.offset += int64(len(line))
	return line, nil
}

// PeekKeyword returns the keyword of the next line, stripping the
// legacy "opt " prefix. Returns "" at end of stream.
func (lr *LineReader) PeekKeyword() string {
	line, err := lr.PeekLine()
	if err != nil {
		return ""
	}
	line = strings.TrimPrefix(line, "opt ")
	if idx := strings.IndexAny(line, " \t"); idx >= 0 {
		line = line[:idx]
	}
	return strings.TrimRight(line, "\r\n")
}

// ReadUntil reads lines until the next line begins with one of the
// given keywords or the stream ends. The boundary line is not consumed.
// When ignoreFirst is set the first line is consumed without a boundary
// check, which lets callers collect a record that itself begins with a
// boundary keyword.
func (lr *LineReader) ReadUntil(keywords []string, ignoreFirst bool) ([]string, error) {
	var lines []string

	if ignoreFirst {
		line, err := lr.ReadLine()
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return nil, err
		}
		lines = append(lines, strings.TrimRight(line, "\r\n"))
	}

	for {
		_, err := lr.PeekLine()
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return nil, err
		}
		if matchesAny(lr.PeekKeyword(), keywords) {
			return lines, nil
		}
		line, err := lr.ReadLine()
		if err != nil {
			return nil, err
		}
		lines = append(lines, strings.TrimRight(line, "\r\n"))
	}
}

// SkipUntil discards lines until the next line begins with one of the
// given keywords or the stream ends. The boundary line is not consumed.
func (lr *LineReader) SkipUntil(keywords []string) error {
	for {
		_, err := lr.PeekLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if matchesAny(lr.PeekKeyword(), keywords) {
			return nil
		}
		if _, err := lr.ReadLine(); err != nil {
			return err
		}
	}
}

func matchesAny(keyword string, keywords []string) bool {
	for _, kw := range keywords {
		if keyword == kw {
			return true
		}
	}
	return false
}
