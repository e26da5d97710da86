package descriptor

import "strings"

const (
	blockStartPrefix = "-----BEGIN "
	blockMarkerEnd   = "-----"
	blockEndPrefix   = "-----END "
)

// TokenizeOptions controls tokenization behavior.
type TokenizeOptions struct {
	// Validate enables content checks. When false, records whose value
	// violates the printable-ASCII rule are dropped instead of failing.
	// Grammar failures (malformed lines, unterminated blocks) are fatal
	// regardless, since they corrupt tokenization itself.
	Validate bool

	// NonASCIIFields lists keywords whose values may contain arbitrary
	// bytes (contact strings, platform strings in lenient environments).
	NonASCIIFields map[string]bool

	// ExtraKeywords lists keywords routed into the secondary ordered
	// sequence (Entries.Extra) instead of the main record set. Used for
	// keywords whose relative order matters to downstream consumers,
	// such as accept/reject policy lines.
	ExtraKeywords map[string]bool
}

// Tokenize splits raw document bytes into an ordered sequence of
// (keyword, value, optional-block) records. Blank lines are skipped and
// the legacy "opt " compatibility prefix is stripped before keyword
// matching.
func Tokenize(raw []byte, opts TokenizeOptions) (*Entries, error) {
	return TokenizeLines(strings.Split(string(raw), "\n"), opts)
}

// TokenizeLines is Tokenize over pre-split lines (without trailing
// newlines). Section parsers that already hold a line slice use this
// to avoid a join/split round trip.
func TokenizeLines(lines []string, opts TokenizeOptions) (*Entries, error) {
	entries := newEntries()

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSuffix(lines[i], "\r")
		if line == "" {
			continue
		}

		// Legacy compatibility prefix, no semantic effect.
		line = strings.TrimPrefix(line, "opt ")

		keyword, value, ok := splitKeywordLine(line)
		if !ok {
			return nil, NewError(KindMalformedLine, line, "line does not match the keyword-line grammar")
		}

		entry := &Entry{Keyword: keyword, Value: value}

		// A keyword line may be followed by an armored block.
		if i+1 < len(lines) {
			if blockType, isBlock := blockStart(strings.TrimSuffix(lines[i+1], "\r")); isBlock {
				block, consumed, err := readBlock(lines[i+1:], blockType)
				if err != nil {
					return nil, err
				}
				entry.Block = block
				i += consumed
			}
		}

		if !opts.NonASCIIFields[keyword] && !isPrintableASCII(value) {
			if opts.Validate {
				return nil, NewError(KindNonASCIIField, line, "field %q contains non-printable or non-ascii bytes", keyword)
			}
			continue // drop the offending record
		}

		if opts.ExtraKeywords[keyword] {
			entries.extra = append(entries.extra, entry)
		} else {
			entries.add(entry)
		}
	}

	return entries, nil
}

// splitKeywordLine splits a line into keyword and value. The keyword
// uses the character class [a-zA-Z0-9-] and is separated from the value
// by spaces or tabs.
func splitKeywordLine(line string) (keyword, value string, ok bool) {
	end := 0
	for end < len(line) && isKeywordChar(line[end]) {
		end++
	}
	if end == 0 {
		return "", "", false
	}
	keyword = line[:end]
	rest := line[end:]
	if rest == "" {
		return keyword, "", true
	}
	if rest[0] != ' ' && rest[0] != '\t' {
		return "", "", false
	}
	return keyword, strings.TrimLeft(rest, " \t"), true
}

// blockStart reports whether a line opens an armored block and, if so,
// the block type between the markers.
func blockStart(line string) (string, bool) {
	if !strings.HasPrefix(line, blockStartPrefix) || !strings.HasSuffix(line, blockMarkerEnd) {
		return "", false
	}
	blockType := line[len(blockStartPrefix) : len(line)-len(blockMarkerEnd)]
	if blockType == "" {
		return "", false
	}
	for i := 0; i < len(blockType); i++ {
		if !isKeywordChar(blockType[i]) && blockType[i] != ' ' {
			return "", false
		}
	}
	return blockType, true
}

// readBlock consumes lines[0:] until the END marker matching blockType,
// returning the block and how many lines were consumed.
func readBlock(lines []string, blockType string) (*Block, int, error) {
	endMarker := blockEndPrefix + blockType + blockMarkerEnd
	for i := 0; i < len(lines); i++ {
		if strings.TrimSuffix(lines[i], "\r") == endMarker {
			return &Block{
				Type: blockType,
				Raw:  strings.Join(lines[:i+1], "\n"),
			}, i + 1, nil
		}
	}
	return nil, 0, NewError(KindUnterminatedBlock, lines[0], "block %q is never closed", blockType)
}

func isKeywordChar(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '-'
}

// isPrintableASCII reports whether s contains only printable ASCII
// bytes (0x20-0x7E) or tabs.
func isPrintableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if (s[i] < 0x20 || s[i] > 0x7e) && s[i] != '\t' {
			return false
		}
	}
	return true
}
