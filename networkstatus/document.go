package networkstatus

import (
	"bytes"
	"io"
	"strings"
	"time"

	"github.com/martinemde/netdoc/descriptor"
)

// DocumentHandler selects how much of the router section Parse retains.
type DocumentHandler int

const (
	// HandlerEntries leaves the document's router collection empty; the
	// entries themselves are streamed through an EntryReader.
	HandlerEntries DocumentHandler = iota
	// HandlerDocument collects every router entry onto the document.
	HandlerDocument
	// HandlerBareDocument parses the router section only far enough to
	// locate the footer. Entries are discarded, not materialized.
	HandlerBareDocument
)

// Options control document parsing.
type Options struct {
	// Validate enables structural validation. When false, recoverable
	// field failures fall back to their declared defaults instead of
	// failing the parse.
	Validate bool

	// Lazy defers attribute materialization until first read. Field
	// accessors resolve and cache on demand; with Validate set, a
	// resolution failure surfaces from the accessor instead of from
	// Parse.
	Lazy bool

	// Handler selects the router-section materialization mode.
	Handler DocumentHandler
}

// Section boundary keywords, in the order sections appear on the wire.
var (
	headerBoundaries = []string{"dir-source", "r", "directory-footer", "directory-signature", "bandwidth-weights"}
	routerBoundaries = []string{"r", "bandwidth-weights", "directory-footer", "directory-signature"}
	footerBoundaries = []string{"bandwidth-weights", "directory-footer", "directory-signature"}
)

// Param is one entry of the header's params line. Params are kept in
// their wire order, which the format requires to be ascending by key.
type Param struct {
	Key   string
	Value int32
}

// Document is a parsed v3 network-status document. Exactly one of
// IsVote and IsConsensus is true. A Document is immutable once parsing
// succeeds, except for the lazy resolution cache, which makes a lazily
// parsed Document unsafe for unsynchronized concurrent reads.
type Document struct {
	validate bool

	headerEntries *descriptor.Entries
	footerEntries *descriptor.Entries
	resolved      map[*fieldSpec]error

	version          string
	flavor           string
	isVote           bool
	isConsensus      bool
	consensusMethod  int
	consensusMethods []int

	published      time.Time
	validAfter     time.Time
	freshUntil     time.Time
	validUntil     time.Time
	voteSeconds    int
	distSeconds    int
	clientVersions []descriptor.Version
	serverVersions []descriptor.Version
	knownFlags     []string
	params         []Param

	bandwidthWeights map[string]int32

	authorities  []*DirectoryAuthority
	routers      []*RouterStatusEntry
	signatures   []*DocumentSignature
	unrecognized []string
	footerOffset int64
}

// Parse parses a complete network-status document from raw bytes.
func Parse(raw []byte, opts Options) (*Document, error) {
	return ParseFile(bytes.NewReader(raw), opts)
}

// ParseFile parses a network-status document from a byte stream. The
// stream is consumed to completion (HandlerBareDocument still reads to
// the end of input to reach the footer).
func ParseFile(r io.Reader, opts Options) (*Document, error) {
	lr := descriptor.NewLineReader(r)

	doc, err := parseDocumentPrefix(lr, opts)
	if err != nil {
		return nil, err
	}

	switch opts.Handler {
	case HandlerDocument:
		for lr.PeekKeyword() == "r" {
			lines, err := lr.ReadUntil(routerBoundaries, true)
			if err != nil {
				return nil, err
			}
			entry, err := NewRouterStatusEntry(lines, doc, opts.Validate)
			if err != nil {
				return nil, err
			}
			doc.routers = append(doc.routers, entry)
		}
	default:
		// Entries and bare-document modes do not retain router entries.
		if err := lr.SkipUntil(footerBoundaries); err != nil {
			return nil, err
		}
	}

	if err := doc.parseFooter(lr); err != nil {
		return nil, err
	}
	if err := doc.finalize(opts); err != nil {
		return nil, err
	}
	return doc, nil
}

// parseDocumentPrefix consumes the header and authority sections,
// leaving the reader positioned at the router section (or footer).
func parseDocumentPrefix(lr *descriptor.LineReader, opts Options) (*Document, error) {
	// Tor metrics archives prefix documents with an annotation line.
	if line, err := lr.PeekLine(); err == nil && strings.HasPrefix(line, "@type ") {
		if _, err := lr.ReadLine(); err != nil {
			return nil, err
		}
	}

	headerLines, err := lr.ReadUntil(headerBoundaries, false)
	if err != nil {
		return nil, err
	}
	entries, err := descriptor.TokenizeLines(headerLines, descriptor.TokenizeOptions{Validate: opts.Validate})
	if err != nil {
		return nil, err
	}

	doc := &Document{
		validate:      opts.Validate,
		headerEntries: entries,
		resolved:      make(map[*fieldSpec]error),
	}
	if err := doc.parseHeader(); err != nil {
		return nil, err
	}

	for lr.PeekKeyword() == "dir-source" {
		lines, err := lr.ReadUntil(headerBoundaries, true)
		if err != nil {
			return nil, err
		}
		auth, err := parseAuthority(lines, doc.isVote, opts.Validate)
		if err != nil {
			return nil, err
		}
		doc.authorities = append(doc.authorities, auth)
	}

	return doc, nil
}

// finalize materializes registry fields after all sections are read.
// Lazy documents keep their entries and resolve on first access.
func (d *Document) finalize(opts Options) error {
	if opts.Lazy {
		return nil
	}
	return d.materialize()
}

// Version returns the network-status-version value (currently "3").
func (d *Document) Version() string { return d.version }

// IsMicrodescriptor reports whether the version line carried the
// "microdesc" flavor tag.
func (d *Document) IsMicrodescriptor() bool { return d.flavor == "microdesc" }

// IsVote reports whether this document is a vote.
func (d *Document) IsVote() bool { return d.isVote }

// IsConsensus reports whether this document is a consensus.
func (d *Document) IsConsensus() bool { return d.isConsensus }

// ConsensusMethod returns the method a consensus was generated with.
// Defaults to 1 when the document does not state one. Zero for votes.
func (d *Document) ConsensusMethod() int { return d.consensusMethod }

// ConsensusMethods returns the methods a vote supports. Defaults to
// [1] when the document does not state them. Nil for consensuses.
func (d *Document) ConsensusMethods() []int { return d.consensusMethods }

// MeetsConsensusMethod reports whether the document was produced by, or
// supports, the given consensus method. Several optional sections of
// the format are gated on this predicate.
func (d *Document) MeetsConsensusMethod(method int) bool {
	if d.isVote {
		for _, m := range d.consensusMethods {
			if m >= method {
				return true
			}
		}
		return false
	}
	return d.consensusMethod >= method
}

// Published returns the vote's publication time (votes only).
func (d *Document) Published() (time.Time, error) {
	err := d.resolve("Published")
	return d.published, err
}

// ValidAfter returns the start of the document's validity interval.
func (d *Document) ValidAfter() (time.Time, error) {
	err := d.resolve("ValidAfter")
	return d.validAfter, err
}

// FreshUntil returns the time until which the document is fresh.
func (d *Document) FreshUntil() (time.Time, error) {
	err := d.resolve("FreshUntil")
	return d.freshUntil, err
}

// ValidUntil returns the end of the document's validity interval.
func (d *Document) ValidUntil() (time.Time, error) {
	err := d.resolve("ValidUntil")
	return d.validUntil, err
}

// VotingDelay returns the vote-seconds and dist-seconds values of the
// voting-delay line.
func (d *Document) VotingDelay() (voteSeconds, distSeconds int, err error) {
	err = d.resolve("VotingDelay")
	return d.voteSeconds, d.distSeconds, err
}

// ClientVersions returns the recommended client versions.
func (d *Document) ClientVersions() ([]descriptor.Version, error) {
	err := d.resolve("ClientVersions")
	return d.clientVersions, err
}

// ServerVersions returns the recommended server versions.
func (d *Document) ServerVersions() ([]descriptor.Version, error) {
	err := d.resolve("ServerVersions")
	return d.serverVersions, err
}

// KnownFlags returns the router status flags the document defines.
func (d *Document) KnownFlags() ([]string, error) {
	err := d.resolve("KnownFlags")
	return d.knownFlags, err
}

// Params returns the header's tunable parameters in wire order.
func (d *Document) Params() ([]Param, error) {
	err := d.resolve("Params")
	return d.params, err
}

// BandwidthWeights returns the footer's path-selection weight map
// (consensus only). Empty when the footer carries none.
func (d *Document) BandwidthWeights() (map[string]int32, error) {
	err := d.resolve("BandwidthWeights")
	if d.bandwidthWeights == nil {
		return map[string]int32{}, err
	}
	return d.bandwidthWeights, err
}

// Authorities returns the directory authorities in wire order.
func (d *Document) Authorities() []*DirectoryAuthority { return d.authorities }

// Routers returns the router entries. Only populated under
// HandlerDocument; the other handlers leave this empty by contract.
func (d *Document) Routers() []*RouterStatusEntry { return d.routers }

// Signatures returns the footer's directory signatures in wire order.
func (d *Document) Signatures() []*DocumentSignature { return d.signatures }

// FooterOffset returns the byte offset at which the footer section
// begins (the end of input when the document has no footer). Callers
// slicing the raw document, such as signature checkers, use it to
// locate the tail without reparsing.
func (d *Document) FooterOffset() int64 { return d.footerOffset }

// UnrecognizedLines returns header and footer lines whose keywords the
// parser does not know. Unrecognized content is never an error.
func (d *Document) UnrecognizedLines() []string { return d.unrecognized }

// collectUnrecognized records entries no field spec or structural
// keyword claims.
func (d *Document) collectUnrecognized(entries *descriptor.Entries) {
	for _, entry := range entries.All() {
		if knownKeyword(entry.Keyword) {
			continue
		}
		line := entry.Keyword
		if entry.Value != "" {
			line += " " + entry.Value
		}
		d.unrecognized = append(d.unrecognized, line)
	}
}
