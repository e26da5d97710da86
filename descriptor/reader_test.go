package descriptor

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineReaderPeekAndRead(t *testing.T) {
	lr := NewLineReader(strings.NewReader("one\ntwo\n"))

	peeked, err := lr.PeekLine()
	require.NoError(t, err)
	assert.Equal(t, "one\n", peeked)
	assert.Equal(t, int64(0), lr.Offset())

	// Peek does not consume.
	line, err := lr.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "one\n", line)
	assert.Equal(t, int64(4), lr.Offset())

	line, err = lr.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "two\n", line)

	_, err = lr.ReadLine()
	assert.Equal(t, io.EOF, err)
}

func TestLineReaderNoTrailingNewline(t *testing.T) {
	lr := NewLineReader(strings.NewReader("only"))
	line, err := lr.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "only", line)
	_, err = lr.ReadLine()
	assert.Equal(t, io.EOF, err)
}

func TestLineReaderPeekKeyword(t *testing.T) {
	lr := NewLineReader(strings.NewReader("r moria 1.2.3.4\nopt fingerprint ABCD\nbare\n"))

	assert.Equal(t, "r", lr.PeekKeyword())
	_, err := lr.ReadLine()
	require.NoError(t, err)

	// Legacy compatibility prefix is transparent.
	assert.Equal(t, "fingerprint", lr.PeekKeyword())
	_, err = lr.ReadLine()
	require.NoError(t, err)

	assert.Equal(t, "bare", lr.PeekKeyword())
	_, err = lr.ReadLine()
	require.NoError(t, err)

	assert.Equal(t, "", lr.PeekKeyword())
}

func TestReadUntil(t *testing.T) {
	lr := NewLineReader(strings.NewReader("network-status-version 3\nvote-status consensus\nr moria\ns Fast\n"))

	lines, err := lr.ReadUntil([]string{"r"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"network-status-version 3", "vote-status consensus"}, lines)

	// The boundary line itself was not consumed.
	assert.Equal(t, "r", lr.PeekKeyword())
}

func TestReadUntilIgnoreFirst(t *testing.T) {
	lr := NewLineReader(strings.NewReader("r moria\ns Fast\nr other\n"))

	// A record beginning with a boundary keyword needs its first line
	// consumed unconditionally.
	lines, err := lr.ReadUntil([]string{"r"}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"r moria", "s Fast"}, lines)

	lines, err = lr.ReadUntil([]string{"r"}, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"r other"}, lines)
}

func TestReadUntilNilKeywordsReadsToEOF(t *testing.T) {
	lr := NewLineReader(strings.NewReader("a 1\nb 2\n"))
	lines, err := lr.ReadUntil(nil, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a 1", "b 2"}, lines)
}

func TestSkipUntil(t *testing.T) {
	lr := NewLineReader(strings.NewReader("r one\ns Fast\nr two\ndirectory-footer\n"))

	require.NoError(t, lr.SkipUntil([]string{"directory-footer"}))
	assert.Equal(t, "directory-footer", lr.PeekKeyword())

	// Skipping past EOF is not an error.
	lr = NewLineReader(strings.NewReader("r one\n"))
	require.NoError(t, lr.SkipUntil([]string{"directory-footer"}))
	assert.Equal(t, "", lr.PeekKeyword())
}
