package networkstatus

import (
	"time"

	"github.com/martinemde/netdoc/descriptor"
)

// fieldSpec ties a document keyword to the parser that materializes its
// attribute group and to the reset that restores the group's declared
// defaults. A single line can set several logical attributes (e.g.
// voting-delay sets both delay values), so failure rolls back the whole
// group, not just the first field.
type fieldSpec struct {
	keyword string
	footer  bool     // resolves against the footer entries, not the header
	attrs   []string // public attribute names this spec is responsible for
	parse   func(d *Document, entries *descriptor.Entries) error
	reset   func(d *Document)
}

// fieldRegistry indexes the specs by keyword and by attribute name. It
// is built once and never mutated afterward; documents parsed on
// separate goroutines share it freely.
type fieldRegistry struct {
	specs     []*fieldSpec
	byKeyword map[string]*fieldSpec
	byAttr    map[string]*fieldSpec
}

var registry = buildRegistry()

func buildRegistry() *fieldRegistry {
	specs := []*fieldSpec{
		{
			keyword: "published",
			attrs:   []string{"Published"},
			parse:   parsePublished,
			reset:   func(d *Document) { d.published = time.Time{} },
		},
		{
			keyword: "valid-after",
			attrs:   []string{"ValidAfter"},
			parse:   parseValidAfter,
			reset:   func(d *Document) { d.validAfter = time.Time{} },
		},
		{
			keyword: "fresh-until",
			attrs:   []string{"FreshUntil"},
			parse:   parseFreshUntil,
			reset:   func(d *Document) { d.freshUntil = time.Time{} },
		},
		{
			keyword: "valid-until",
			attrs:   []string{"ValidUntil"},
			parse:   parseValidUntil,
			reset:   func(d *Document) { d.validUntil = time.Time{} },
		},
		{
			keyword: "voting-delay",
			attrs:   []string{"VotingDelay"},
			parse:   parseVotingDelay,
			reset:   func(d *Document) { d.voteSeconds, d.distSeconds = 0, 0 },
		},
		{
			keyword: "client-versions",
			attrs:   []string{"ClientVersions"},
			parse:   parseClientVersions,
			reset:   func(d *Document) { d.clientVersions = nil },
		},
		{
			keyword: "server-versions",
			attrs:   []string{"ServerVersions"},
			parse:   parseServerVersions,
			reset:   func(d *Document) { d.serverVersions = nil },
		},
		{
			keyword: "known-flags",
			attrs:   []string{"KnownFlags"},
			parse:   parseKnownFlags,
			reset:   func(d *Document) { d.knownFlags = nil },
		},
		{
			keyword: "params",
			attrs:   []string{"Params"},
			parse:   parseParams,
			reset:   func(d *Document) { d.params = nil },
		},
		{
			keyword: "bandwidth-weights",
			footer:  true,
			attrs:   []string{"BandwidthWeights"},
			parse:   parseBandwidthWeights,
			reset:   func(d *Document) { d.bandwidthWeights = nil },
		},
	}

	reg := &fieldRegistry{
		specs:     specs,
		byKeyword: make(map[string]*fieldSpec, len(specs)),
		byAttr:    make(map[string]*fieldSpec),
	}
	for _, spec := range specs {
		reg.byKeyword[spec.keyword] = spec
		for _, attr := range spec.attrs {
			reg.byAttr[attr] = spec
		}
	}
	return reg
}

// structuralKeywords are consumed by the section state machine itself
// rather than through the field registry.
var structuralKeywords = map[string]bool{
	"network-status-version": true,
	"vote-status":            true,
	"consensus-method":       true,
	"consensus-methods":      true,
	"directory-footer":       true,
	"directory-signature":    true,
}

func knownKeyword(keyword string) bool {
	if structuralKeywords[keyword] {
		return true
	}
	_, ok := registry.byKeyword[keyword]
	return ok
}

// resolve materializes the attribute group owning the named attribute.
// Results (including errors, under validation) are cached: repeated
// reads observe the first outcome. Without validation a failed group
// reverts to its defaults and the error is swallowed.
func (d *Document) resolve(attr string) error {
	spec, ok := registry.byAttr[attr]
	if !ok {
		return nil
	}
	if err, done := d.resolved[spec]; done {
		return err
	}

	entries := d.headerEntries
	if spec.footer {
		entries = d.footerEntries
	}

	var err error
	if entries != nil {
		err = spec.parse(d, entries)
	}
	if err != nil {
		spec.reset(d)
		if !d.validate {
			err = nil
		}
	}
	d.resolved[spec] = err
	return err
}

// materialize resolves every attribute group. Under validation the
// first failure aborts; otherwise failed groups keep their defaults.
func (d *Document) materialize() error {
	for _, spec := range registry.specs {
		if err := d.resolve(spec.attrs[0]); err != nil {
			return err
		}
	}
	return nil
}
