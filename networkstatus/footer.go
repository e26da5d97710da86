package networkstatus

import (
	"strings"

	"github.com/martinemde/netdoc/descriptor"
)

// DocumentSignature is one directory-signature line of the footer with
// its signature block. The two-value form predates signature method
// negotiation and implies sha1.
type DocumentSignature struct {
	Method    string
	Identity  string
	KeyDigest string
	Signature string
}

// bandwidthWeightKeys is the full set a bandwidth-weights line must
// carry: one weight per position/flag combination of the path
// selection algorithm.
var bandwidthWeightKeys = []string{
	"Wbd", "Wbe", "Wbg", "Wbm",
	"Wdb",
	"Web", "Wed", "Wee", "Weg", "Wem",
	"Wgb", "Wgd", "Wgg", "Wgm",
	"Wmb", "Wmd", "Wme", "Wmg", "Wmm",
}

// parseFooter consumes the rest of the stream as the footer section.
// The footer starts at the first directory-footer, bandwidth-weights,
// or directory-signature line; everything before that was claimed by
// the earlier sections.
func (d *Document) parseFooter(lr *descriptor.LineReader) error {
	d.footerOffset = lr.Offset()
	lines, err := lr.ReadUntil(nil, false)
	if err != nil {
		return err
	}
	entries, err := descriptor.TokenizeLines(lines, descriptor.TokenizeOptions{Validate: d.validate})
	if err != nil {
		return err
	}
	d.footerEntries = entries

	if d.validate {
		if err := d.validateFooterShape(entries); err != nil {
			return err
		}
	}

	if err := d.parseSignatures(entries); err != nil {
		return err
	}

	d.collectUnrecognized(entries)
	return nil
}

// validateFooterShape enforces the footer's field table plus the
// consensus-method gating of the directory-footer marker and the
// bandwidth-weights line, both of which appeared with method 9.
func (d *Document) validateFooterShape(entries *descriptor.Entries) error {
	// A document may end at the router section; an absent footer is not
	// a violation.
	if entries.Len() == 0 {
		return nil
	}

	var repeatable map[string]bool
	if d.isConsensus {
		// A consensus carries one signature per authority; a vote has
		// exactly one.
		repeatable = map[string]bool{"directory-signature": true}
	}
	if err := validateFieldSet(entries, footerFieldTable, d.isVote, repeatable); err != nil {
		return err
	}

	meets9 := d.MeetsConsensusMethod(9)
	if entries.Count("directory-footer") > 0 && !meets9 {
		return descriptor.NewError(descriptor.KindDisallowedField, "directory-footer",
			"directory-footer requires consensus method 9 or later")
	}
	if entries.Count("bandwidth-weights") > 0 && !meets9 {
		return descriptor.NewError(descriptor.KindDisallowedField, "bandwidth-weights",
			"bandwidth-weights requires consensus method 9 or later")
	}
	if d.isConsensus && meets9 {
		all := entries.All()
		if len(all) == 0 || all[0].Keyword != "directory-footer" {
			return descriptor.NewError(descriptor.KindMissingField, "",
				"footer must begin with a directory-footer line")
		}
	}
	return nil
}

func (d *Document) parseSignatures(entries *descriptor.Entries) error {
	for _, entry := range entries.Get("directory-signature") {
		sig, err := parseSignature(entry, d.validate)
		if err != nil {
			return err
		}
		if sig != nil {
			d.signatures = append(d.signatures, sig)
		}
	}
	return nil
}

func parseSignature(entry *descriptor.Entry, validate bool) (*DocumentSignature, error) {
	line := "directory-signature " + entry.Value

	sig := &DocumentSignature{}
	fields := strings.Fields(entry.Value)
	switch len(fields) {
	case 2:
		sig.Method = "sha1"
		sig.Identity, sig.KeyDigest = fields[0], fields[1]
	case 3:
		sig.Method, sig.Identity, sig.KeyDigest = fields[0], fields[1], fields[2]
	default:
		if validate {
			return nil, descriptor.NewError(descriptor.KindMalformedLine, line,
				"directory-signature must carry two or three values, got %d", len(fields))
		}
		return nil, nil
	}

	if entry.Block == nil {
		if validate {
			return nil, descriptor.NewError(descriptor.KindMissingField, line,
				"directory-signature must be followed by a signature block")
		}
		return nil, nil
	}
	sig.Signature = entry.Block.Raw
	return sig, nil
}

// parseBandwidthWeights materializes the footer's weight map. The line
// must carry exactly the known weight keys, each an integer; negative
// weights are in range (Tor has published them).
func parseBandwidthWeights(d *Document, entries *descriptor.Entries) error {
	entry, ok := entries.First("bandwidth-weights")
	if !ok {
		return nil
	}
	line := "bandwidth-weights " + entry.Value

	weights := make(map[string]int32, len(bandwidthWeightKeys))
	for _, field := range strings.Fields(entry.Value) {
		key, value, found := strings.Cut(field, "=")
		if !found || key == "" {
			return descriptor.NewError(descriptor.KindMalformedLine, line,
				"bandwidth-weights entry %q is not a key=value pair", field)
		}
		n, err := descriptor.ParseInt32(value)
		if err != nil {
			return lineErr(err, line)
		}
		weights[key] = n
	}

	for _, key := range bandwidthWeightKeys {
		if _, ok := weights[key]; !ok {
			return descriptor.NewError(descriptor.KindMissingField, line,
				"bandwidth-weights is missing the %s weight", key)
		}
	}
	if len(weights) != len(bandwidthWeightKeys) {
		for key := range weights {
			if !isBandwidthWeightKey(key) {
				return descriptor.NewError(descriptor.KindDisallowedField, line,
					"bandwidth-weights carries unknown weight %s", key)
			}
		}
	}

	d.bandwidthWeights = weights
	return nil
}

func isBandwidthWeightKey(key string) bool {
	for _, k := range bandwidthWeightKeys {
		if k == key {
			return true
		}
	}
	return false
}
