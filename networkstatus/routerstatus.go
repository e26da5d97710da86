package networkstatus

import (
	"io"
	"strings"
	"time"

	"github.com/martinemde/netdoc/descriptor"
)

// RouterStatusEntry is one relay's entry in the router section. The
// entry's fields are parsed against the document it belongs to: flag
// classification uses the header's known-flags line, and the r line's
// shape depends on the document flavor.
type RouterStatusEntry struct {
	Nickname  string
	Identity  string
	Digest    string
	Published time.Time
	Address   string
	ORPort    int
	DirPort   int // zero means the relay has no dir-port

	// ORAddresses holds the additional addresses of the entry's a
	// lines, verbatim.
	ORAddresses []string

	// Flags are the s line's tokens in wire order. UnknownFlags are the
	// subset the document's known-flags line does not declare.
	Flags        []string
	UnknownFlags []string

	// VersionLine is the raw v value. Version is parsed from it when
	// the line advertises a Tor version.
	VersionLine string
	Version     *descriptor.Version

	Protocols string

	Bandwidth         int64
	MeasuredBandwidth int64
	IsUnmeasured      bool

	// PolicySummary is the raw p value, e.g. "accept 80,443".
	PolicySummary string

	// MicrodescriptorHashes holds the m line values. Votes may carry
	// several; a microdescriptor consensus carries one digest.
	MicrodescriptorHashes []string

	UnrecognizedLines []string
}

var routerFieldTable = []docField{
	{"r", true, true, true},
	{"a", true, true, false},
	{"s", true, true, false},
	{"v", true, true, false},
	{"pr", true, true, false},
	{"w", true, true, false},
	{"p", true, true, false},
	{"m", true, true, false},
}

var routerRepeatable = map[string]bool{"a": true, "m": true}

// NewRouterStatusEntry parses one router entry's lines in the context
// of its document.
func NewRouterStatusEntry(lines []string, doc *Document, validate bool) (*RouterStatusEntry, error) {
	entries, err := descriptor.TokenizeLines(lines, descriptor.TokenizeOptions{Validate: validate})
	if err != nil {
		return nil, err
	}

	if validate {
		if err := validateFieldSet(entries, routerFieldTable, doc.isVote, routerRepeatable); err != nil {
			return nil, err
		}
		all := entries.All()
		if len(all) > 0 && all[0].Keyword != "r" {
			return nil, descriptor.NewError(descriptor.KindMisorderedField, all[0].Keyword+" "+all[0].Value,
				"router entry must begin with an r line")
		}
	}

	entry := &RouterStatusEntry{}
	if err := entry.parseRLine(entries, doc, validate); err != nil {
		return nil, err
	}
	for _, e := range entries.Get("a") {
		entry.ORAddresses = append(entry.ORAddresses, e.Value)
	}
	entry.parseFlags(entries, doc)
	if err := entry.parseVersion(entries, validate); err != nil {
		return nil, err
	}
	if e, ok := entries.First("pr"); ok {
		entry.Protocols = e.Value
	}
	if err := entry.parseBandwidth(entries, validate); err != nil {
		return nil, err
	}
	if err := entry.parsePolicy(entries, validate); err != nil {
		return nil, err
	}
	for _, e := range entries.Get("m") {
		entry.MicrodescriptorHashes = append(entry.MicrodescriptorHashes, e.Value)
	}

	for _, e := range entries.All() {
		if routerKeyword(e.Keyword) {
			continue
		}
		line := e.Keyword
		if e.Value != "" {
			line += " " + e.Value
		}
		entry.UnrecognizedLines = append(entry.UnrecognizedLines, line)
	}

	return entry, nil
}

func routerKeyword(keyword string) bool {
	for _, f := range routerFieldTable {
		if f.keyword == keyword {
			return true
		}
	}
	return false
}

// parseRLine parses the mandatory first line. The microdescriptor
// flavor omits the descriptor digest, so its r line is one field
// shorter.
func (e *RouterStatusEntry) parseRLine(entries *descriptor.Entries, doc *Document, validate bool) error {
	entry, ok := entries.First("r")
	if !ok {
		if validate {
			return descriptor.NewError(descriptor.KindMissingField, "",
				"router entry has no r line")
		}
		return nil
	}
	line := "r " + entry.Value

	want := 8
	if doc.IsMicrodescriptor() {
		want = 7
	}
	fields := strings.Fields(entry.Value)
	if len(fields) != want {
		if validate {
			return descriptor.NewError(descriptor.KindMalformedLine, line,
				"r line must carry %d values, got %d", want, len(fields))
		}
		return nil
	}

	e.Nickname = fields[0]
	e.Identity = fields[1]
	rest := fields[2:]
	if !doc.IsMicrodescriptor() {
		e.Digest = rest[0]
		rest = rest[1:]
	}

	published, err := descriptor.ParseTimestamp(rest[0] + " " + rest[1])
	if err != nil {
		if validate {
			return lineErr(err, line)
		}
		return nil
	}
	orPort, err := descriptor.ParseInt(rest[3])
	if err != nil {
		if validate {
			return lineErr(err, line)
		}
		return nil
	}
	dirPort, err := descriptor.ParseInt(rest[4])
	if err != nil {
		if validate {
			return lineErr(err, line)
		}
		return nil
	}

	e.Published = published
	e.Address = rest[2]
	e.ORPort = orPort
	e.DirPort = dirPort
	return nil
}

func (e *RouterStatusEntry) parseFlags(entries *descriptor.Entries, doc *Document) {
	entry, ok := entries.First("s")
	if !ok {
		return
	}
	e.Flags = strings.Fields(entry.Value)

	known, err := doc.KnownFlags()
	if err != nil {
		return
	}
	knownSet := make(map[string]bool, len(known))
	for _, flag := range known {
		knownSet[flag] = true
	}
	for _, flag := range e.Flags {
		if !knownSet[flag] {
			e.UnknownFlags = append(e.UnknownFlags, flag)
		}
	}
}

func (e *RouterStatusEntry) parseVersion(entries *descriptor.Entries, validate bool) error {
	entry, ok := entries.First("v")
	if !ok {
		return nil
	}
	e.VersionLine = entry.Value

	// Only Tor's own version strings are parsed; other implementations
	// advertise arbitrary text here.
	rest, isTor := strings.CutPrefix(entry.Value, "Tor ")
	if !isTor {
		return nil
	}
	version, err := descriptor.ParseVersion(rest)
	if err != nil {
		if validate {
			return lineErr(err, "v "+entry.Value)
		}
		return nil
	}
	e.Version = &version
	return nil
}

func (e *RouterStatusEntry) parseBandwidth(entries *descriptor.Entries, validate bool) error {
	entry, ok := entries.First("w")
	if !ok {
		return nil
	}
	line := "w " + entry.Value

	seenBandwidth := false
	for _, field := range strings.Fields(entry.Value) {
		key, value, found := strings.Cut(field, "=")
		if !found || key == "" {
			if validate {
				return descriptor.NewError(descriptor.KindMalformedLine, line,
					"w entry %q is not a key=value pair", field)
			}
			continue
		}
		n, err := descriptor.ParseInt(value)
		if err != nil {
			if validate {
				return lineErr(err, line)
			}
			continue
		}
		switch key {
		case "Bandwidth":
			e.Bandwidth = int64(n)
			seenBandwidth = true
		case "Measured":
			e.MeasuredBandwidth = int64(n)
		case "Unmeasured":
			e.IsUnmeasured = n == 1
		}
	}
	if validate && !seenBandwidth {
		return descriptor.NewError(descriptor.KindMissingField, line,
			"w line must carry a Bandwidth value")
	}
	return nil
}

func (e *RouterStatusEntry) parsePolicy(entries *descriptor.Entries, validate bool) error {
	entry, ok := entries.First("p")
	if !ok {
		return nil
	}
	if validate && !strings.HasPrefix(entry.Value, "accept ") && !strings.HasPrefix(entry.Value, "reject ") {
		return descriptor.NewError(descriptor.KindMalformedLine, "p "+entry.Value,
			"p line must be an accept or reject summary")
	}
	e.PolicySummary = entry.Value
	return nil
}

// EntryReader streams router entries one at a time without holding the
// whole router section in memory. The header and authority sections are
// parsed when the reader is constructed; the footer is parsed when the
// router section is exhausted, so footer-backed document fields are
// available only after Scan returns false with a nil Err.
type EntryReader struct {
	lr   *descriptor.LineReader
	doc  *Document
	opts Options

	entry *RouterStatusEntry
	err   error
	done  bool
}

// NewEntryReader parses the document prefix from r and positions the
// reader at the first router entry.
func NewEntryReader(r io.Reader, opts Options) (*EntryReader, error) {
	lr := descriptor.NewLineReader(r)
	doc, err := parseDocumentPrefix(lr, opts)
	if err != nil {
		return nil, err
	}
	return &EntryReader{lr: lr, doc: doc, opts: opts}, nil
}

// Scan advances to the next router entry. It returns false when the
// router section ends (the footer is then parsed) or on error; check
// Err to tell the two apart.
func (er *EntryReader) Scan() bool {
	if er.done || er.err != nil {
		return false
	}
	if er.lr.PeekKeyword() != "r" {
		er.done = true
		if err := er.doc.parseFooter(er.lr); err != nil {
			er.err = err
			return false
		}
		er.err = er.doc.finalize(er.opts)
		return false
	}

	lines, err := er.lr.ReadUntil(routerBoundaries, true)
	if err != nil {
		er.err = err
		return false
	}
	entry, err := NewRouterStatusEntry(lines, er.doc, er.opts.Validate)
	if err != nil {
		er.err = err
		return false
	}
	er.entry = entry
	return true
}

// Entry returns the router entry produced by the last successful Scan.
func (er *EntryReader) Entry() *RouterStatusEntry { return er.entry }

// Err returns the first error the reader hit, if any.
func (er *EntryReader) Err() error { return er.err }

// Document returns the document the entries belong to. Footer-backed
// fields are populated once the stream is exhausted.
func (er *EntryReader) Document() *Document { return er.doc }
