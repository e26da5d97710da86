package networkstatus

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/martinemde/netdoc/descriptor"
)

// docField describes one known field of a document section: which roles
// it is legal for and whether it is mandatory when legal. Table order
// is the canonical on-wire order; known fields must appear in it.
type docField struct {
	keyword     string
	inVote      bool
	inConsensus bool
	mandatory   bool
}

var headerFieldTable = []docField{
	{"network-status-version", true, true, true},
	{"vote-status", true, true, true},
	{"consensus-methods", true, false, false},
	{"consensus-method", false, true, false},
	{"published", true, false, true},
	{"valid-after", true, true, true},
	{"fresh-until", true, true, true},
	{"valid-until", true, true, true},
	{"voting-delay", true, true, true},
	{"client-versions", true, true, false},
	{"server-versions", true, true, false},
	{"known-flags", true, true, true},
	{"params", true, true, false},
}

var footerFieldTable = []docField{
	{"directory-footer", true, true, false},
	{"bandwidth-weights", false, true, false},
	{"directory-signature", true, true, true},
}

// parseHeader resolves the structural header fields that gate the rest
// of the state machine (version, role, consensus methods) and, under
// validation, checks presence, role exclusivity, ordering, and
// duplicates against the canonical field table.
func (d *Document) parseHeader() error {
	if err := d.parseVersion(); err != nil {
		return err
	}
	if err := d.parseVoteStatus(); err != nil {
		return err
	}
	if err := d.parseConsensusMethods(); err != nil {
		return err
	}

	if d.validate {
		if err := validateFieldSet(d.headerEntries, headerFieldTable, d.isVote, nil); err != nil {
			return err
		}
		// params appeared with consensus method 7; its presence in an
		// older document is a format violation.
		if d.headerEntries.Count("params") > 0 && !d.MeetsConsensusMethod(7) {
			return descriptor.NewError(descriptor.KindDisallowedField, "",
				"params line requires consensus method 7 or later")
		}
	}

	d.collectUnrecognized(d.headerEntries)
	return nil
}

func (d *Document) parseVersion() error {
	entry, ok := d.headerEntries.First("network-status-version")
	if !ok {
		if d.validate {
			return descriptor.NewError(descriptor.KindMissingField, "",
				"document has no network-status-version line")
		}
		return nil
	}

	fields := strings.Fields(entry.Value)
	if len(fields) == 0 || len(fields) > 2 {
		if d.validate {
			return descriptor.NewError(descriptor.KindMalformedVersion, entry.Value,
				"network-status-version must be a version with an optional flavor tag")
		}
		return nil
	}

	d.version = fields[0]
	if len(fields) == 2 {
		d.flavor = fields[1]
	}
	if d.validate && d.version != "3" {
		return descriptor.NewError(descriptor.KindMalformedVersion, entry.Value,
			"unsupported network-status-version %q", d.version)
	}
	return nil
}

func (d *Document) parseVoteStatus() error {
	entry, ok := d.headerEntries.First("vote-status")
	switch {
	case ok && entry.Value == "vote":
		d.isVote = true
	case ok && entry.Value == "consensus":
		d.isConsensus = true
	case ok:
		if d.validate {
			return descriptor.NewError(descriptor.KindMalformedLine, "vote-status "+entry.Value,
				"vote-status must be \"vote\" or \"consensus\"")
		}
		d.isConsensus = true // lenient default so section gating can proceed
	default:
		if d.validate {
			return descriptor.NewError(descriptor.KindMissingField, "",
				"document has no vote-status line")
		}
		d.isConsensus = true
	}
	return nil
}

func (d *Document) parseConsensusMethods() error {
	if d.isVote {
		entry, ok := d.headerEntries.First("consensus-methods")
		if ok {
			for _, field := range strings.Fields(entry.Value) {
				method, err := descriptor.ParseInt(field)
				if err != nil {
					if d.validate {
						return lineErr(err, "consensus-methods "+entry.Value)
					}
					continue
				}
				d.consensusMethods = append(d.consensusMethods, method)
			}
		}
		if len(d.consensusMethods) == 0 {
			// A vote that predates the consensus-methods line supports
			// only method 1.
			d.consensusMethods = []int{1}
		}
		return nil
	}

	d.consensusMethod = 1
	if entry, ok := d.headerEntries.First("consensus-method"); ok {
		method, err := descriptor.ParseInt(entry.Value)
		if err != nil {
			if d.validate {
				return lineErr(err, "consensus-method "+entry.Value)
			}
			return nil
		}
		d.consensusMethod = method
	}
	return nil
}

// validateFieldSet checks a section's entries against its canonical
// field table: known fields in table order, no field belonging to the
// other document role, every mandatory field present, and no
// duplicates. Keywords listed in repeatable may appear more than once.
// Unknown keywords are exempt from all checks.
func validateFieldSet(entries *descriptor.Entries, table []docField, isVote bool, repeatable map[string]bool) error {
	index := make(map[string]int, len(table))
	for i, f := range table {
		index[f.keyword] = i
	}

	cursor := -1
	for _, entry := range entries.All() {
		idx, known := index[entry.Keyword]
		if !known {
			continue
		}
		if idx < cursor {
			return descriptor.NewError(descriptor.KindMisorderedField, entry.Keyword+" "+entry.Value,
				"%s appears out of the format's canonical order", entry.Keyword)
		}
		cursor = idx
	}

	for _, f := range table {
		legal := f.inVote
		if !isVote {
			legal = f.inConsensus
		}
		count := entries.Count(f.keyword)
		switch {
		case count == 0:
			if legal && f.mandatory {
				return descriptor.NewError(descriptor.KindMissingField, "",
					"%s is mandatory for this document and is absent", f.keyword)
			}
		case !legal:
			role := "a consensus"
			if isVote {
				role = "a vote"
			}
			return descriptor.NewError(descriptor.KindDisallowedField, f.keyword,
				"%s is not allowed in %s", f.keyword, role)
		case count > 1 && !repeatable[f.keyword]:
			return descriptor.NewError(descriptor.KindDuplicateField, f.keyword,
				"%s appears %d times but may appear at most once", f.keyword, count)
		}
	}
	return nil
}

// --- Registry parse functions ---

func parsePublished(d *Document, entries *descriptor.Entries) error {
	return parseTimestampField(entries, "published", &d.published)
}

func parseValidAfter(d *Document, entries *descriptor.Entries) error {
	return parseTimestampField(entries, "valid-after", &d.validAfter)
}

func parseFreshUntil(d *Document, entries *descriptor.Entries) error {
	return parseTimestampField(entries, "fresh-until", &d.freshUntil)
}

func parseValidUntil(d *Document, entries *descriptor.Entries) error {
	return parseTimestampField(entries, "valid-until", &d.validUntil)
}

func parseTimestampField(entries *descriptor.Entries, keyword string, target *time.Time) error {
	entry, ok := entries.First(keyword)
	if !ok {
		return nil
	}
	t, err := descriptor.ParseTimestamp(entry.Value)
	if err != nil {
		return lineErr(err, keyword+" "+entry.Value)
	}
	*target = t
	return nil
}

func parseVotingDelay(d *Document, entries *descriptor.Entries) error {
	entry, ok := entries.First("voting-delay")
	if !ok {
		return nil
	}
	line := "voting-delay " + entry.Value

	fields := strings.Fields(entry.Value)
	if len(fields) != 2 {
		return descriptor.NewError(descriptor.KindMalformedLine, line,
			"voting-delay must carry exactly two values")
	}
	values := make([]int, 2)
	for i, field := range fields {
		n, err := descriptor.ParseInt(field)
		if err != nil {
			return lineErr(err, line)
		}
		if n < 0 {
			return descriptor.NewError(descriptor.KindMalformedInteger, line,
				"voting-delay values must be non-negative")
		}
		values[i] = n
	}
	d.voteSeconds, d.distSeconds = values[0], values[1]
	return nil
}

func parseClientVersions(d *Document, entries *descriptor.Entries) error {
	return parseVersionsField(entries, "client-versions", !d.validate, &d.clientVersions)
}

func parseServerVersions(d *Document, entries *descriptor.Entries) error {
	return parseVersionsField(entries, "server-versions", !d.validate, &d.serverVersions)
}

func parseVersionsField(entries *descriptor.Entries, keyword string, lenient bool, target *[]descriptor.Version) error {
	entry, ok := entries.First(keyword)
	if !ok {
		return nil
	}
	versions, err := descriptor.ParseVersionList(entry.Value, lenient)
	if err != nil {
		return lineErr(err, keyword+" "+entry.Value)
	}
	*target = versions
	return nil
}

func parseKnownFlags(d *Document, entries *descriptor.Entries) error {
	entry, ok := entries.First("known-flags")
	if !ok {
		return nil
	}
	// strings.Fields drops the blank tokens runs of whitespace produce.
	d.knownFlags = strings.Fields(entry.Value)
	return nil
}

// Parameter ranges. A few minimums are cross-referential and are
// substituted in checkParamRange.
const (
	minParam = math.MinInt32
	maxParam = math.MaxInt32
)

var paramRanges = map[string][2]int32{
	"circwindow":                  {100, 1000},
	"CircuitPriorityHalflifeMsec": {-1, maxParam},
	"perconnbwrate":               {1, maxParam},
	"perconnbwburst":              {1, maxParam},
	"refuseunknownexits":          {0, 1},
	"bwweightscale":               {1, maxParam},
	"cbtdisabled":                 {0, 1},
	"cbtnummodes":                 {1, 20},
	"cbtrecentcount":              {3, 1000},
	"cbtmaxtimeouts":              {3, 10000},
	"cbtmincircs":                 {1, 1000},
	"cbtquantile":                 {10, 99},
	"cbtclosequantile":            {minParam, 99},
	"cbttestfreq":                 {1, maxParam},
	"cbtmintimeout":               {500, maxParam},
	"cbtinitialtimeout":           {minParam, maxParam},
}

func parseParams(d *Document, entries *descriptor.Entries) error {
	entry, ok := entries.First("params")
	if !ok {
		return nil
	}
	// A params line with no value means no parameters were declared;
	// defaults apply, same as an absent line.
	if strings.TrimSpace(entry.Value) == "" {
		return nil
	}
	line := "params " + entry.Value

	var params []Param
	values := make(map[string]int32)
	for _, field := range strings.Fields(entry.Value) {
		key, value, found := strings.Cut(field, "=")
		if !found || key == "" {
			return descriptor.NewError(descriptor.KindMalformedLine, line,
				"params entry %q is not a key=value pair", field)
		}
		n, err := descriptor.ParseInt32(value)
		if err != nil {
			return lineErr(err, line)
		}
		params = append(params, Param{Key: key, Value: n})
		values[key] = n
	}

	if !sort.SliceIsSorted(params, func(i, j int) bool { return params[i].Key < params[j].Key }) {
		return descriptor.NewError(descriptor.KindUnsortedParameterKeys, line,
			"params keys must appear in ascending order")
	}

	for _, p := range params {
		if err := checkParamRange(p, values); err != nil {
			return lineErr(err, line)
		}
	}

	d.params = params
	return nil
}

// checkParamRange enforces a parameter's numeric range. Two minimums
// depend on the value of another parameter from the same line.
func checkParamRange(p Param, values map[string]int32) error {
	bounds, known := paramRanges[p.Key]
	if !known {
		return nil
	}
	minimum, maximum := bounds[0], bounds[1]

	switch p.Key {
	case "cbtclosequantile":
		if quantile, ok := values["cbtquantile"]; ok && quantile > minimum {
			minimum = quantile
		}
	case "cbtinitialtimeout":
		if timeout, ok := values["cbtmintimeout"]; ok && timeout > minimum {
			minimum = timeout
		}
	}

	if p.Value < minimum || p.Value > maximum {
		return descriptor.NewError(descriptor.KindOutOfRangeParameter, "",
			"%s must be within %d..%d, got %d", p.Key, minimum, maximum, p.Value)
	}
	return nil
}

// lineErr attaches the offending raw line to a ParseError that was
// built without one.
func lineErr(err error, line string) error {
	if pe, ok := err.(*descriptor.ParseError); ok && pe.Line == "" {
		pe.Line = line
	}
	return err
}
