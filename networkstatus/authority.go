package networkstatus

import (
	"strings"
	"time"

	"github.com/martinemde/netdoc/descriptor"
)

// DirectoryAuthority is one authority's entry in a network-status
// document. In a consensus the authority carries the digest of its
// vote; in a vote it embeds its key certificate. Never both.
type DirectoryAuthority struct {
	Nickname    string
	Fingerprint string
	Hostname    string
	Address     string
	DirPort     int // zero means the authority has no dir-port
	ORPort      int
	Contact     string

	// IsLegacy marks a secondary "-legacy" identity published by an
	// authority during a key transition.
	IsLegacy bool

	// VoteDigest is set in consensus documents.
	VoteDigest string

	// LegacyDirKey and KeyCertificate are set in vote documents.
	LegacyDirKey   string
	KeyCertificate *KeyCertificate

	UnrecognizedLines []string
}

// KeyCertificate is the signed identity/signing-key bundle embedded in
// a vote's authority entry.
type KeyCertificate struct {
	Version       int // only version 3 is recognized
	Address       string
	Port          int
	Fingerprint   string
	IdentityKey   string
	Published     time.Time
	Expires       time.Time
	SigningKey    string
	CrossCert     string
	Certification string

	UnrecognizedLines []string
}

var certFieldTable = []docField{
	{"dir-key-certificate-version", true, true, true},
	{"dir-address", true, true, false},
	{"fingerprint", true, true, true},
	{"dir-identity-key", true, true, true},
	{"dir-key-published", true, true, true},
	{"dir-key-expires", true, true, true},
	{"dir-signing-key", true, true, true},
	{"dir-key-crosscert", true, true, false},
	{"dir-key-certification", true, true, true},
}

// parseAuthority parses one authority block, including an embedded key
// certificate when the block carries one.
func parseAuthority(lines []string, isVote, validate bool) (*DirectoryAuthority, error) {
	authLines, certLines := splitCertificate(lines)

	entries, err := descriptor.TokenizeLines(authLines, descriptor.TokenizeOptions{
		Validate:       validate,
		NonASCIIFields: map[string]bool{"contact": true},
	})
	if err != nil {
		return nil, err
	}

	auth := &DirectoryAuthority{}
	if err := auth.parseDirSource(entries, validate); err != nil {
		return nil, err
	}

	if entry, ok := entries.First("contact"); ok {
		auth.Contact = entry.Value
	}
	if entry, ok := entries.First("vote-digest"); ok {
		auth.VoteDigest = entry.Value
	}
	if entry, ok := entries.First("legacy-dir-key"); ok {
		auth.LegacyDirKey = entry.Value
	}

	if validate {
		for _, keyword := range []string{"dir-source", "contact", "vote-digest", "legacy-dir-key"} {
			if entries.Count(keyword) > 1 {
				return nil, descriptor.NewError(descriptor.KindDuplicateField, keyword,
					"%s appears more than once in an authority entry", keyword)
			}
		}
		if isVote {
			if auth.VoteDigest != "" {
				return nil, descriptor.NewError(descriptor.KindDisallowedField, "vote-digest "+auth.VoteDigest,
					"vote-digest is not allowed in a vote's authority entry")
			}
			if certLines == nil && !auth.IsLegacy {
				return nil, descriptor.NewError(descriptor.KindMissingField, "",
					"authority %q in a vote must embed a key certificate", auth.Nickname)
			}
		} else {
			if certLines != nil {
				return nil, descriptor.NewError(descriptor.KindDisallowedField, certLines[0],
					"a consensus authority entry must not embed a key certificate")
			}
			if auth.VoteDigest == "" {
				return nil, descriptor.NewError(descriptor.KindMissingField, "",
					"authority %q in a consensus must carry a vote-digest", auth.Nickname)
			}
			if auth.LegacyDirKey != "" {
				return nil, descriptor.NewError(descriptor.KindDisallowedField, "legacy-dir-key "+auth.LegacyDirKey,
					"legacy-dir-key is not allowed in a consensus authority entry")
			}
		}
	}

	if certLines != nil && (isVote || !validate) {
		cert, err := parseKeyCertificate(certLines, validate)
		if err != nil {
			return nil, err
		}
		auth.KeyCertificate = cert
	}

	for _, entry := range entries.All() {
		switch entry.Keyword {
		case "dir-source", "contact", "vote-digest", "legacy-dir-key":
		default:
			line := entry.Keyword
			if entry.Value != "" {
				line += " " + entry.Value
			}
			auth.UnrecognizedLines = append(auth.UnrecognizedLines, line)
		}
	}

	return auth, nil
}

// splitCertificate divides an authority block at the start of its
// embedded certificate, if one is present.
func splitCertificate(lines []string) (authLines, certLines []string) {
	for i, line := range lines {
		keyword, _, _ := strings.Cut(strings.TrimPrefix(line, "opt "), " ")
		if keyword == "dir-key-certificate-version" {
			return lines[:i], lines[i:]
		}
	}
	return lines, nil
}

func (a *DirectoryAuthority) parseDirSource(entries *descriptor.Entries, validate bool) error {
	entry, ok := entries.First("dir-source")
	if !ok {
		if validate {
			return descriptor.NewError(descriptor.KindMissingField, "",
				"authority entry has no dir-source line")
		}
		return nil
	}
	line := "dir-source " + entry.Value

	fields := strings.Fields(entry.Value)
	if len(fields) != 6 {
		if validate {
			return descriptor.NewError(descriptor.KindMalformedLine, line,
				"dir-source must carry six values, got %d", len(fields))
		}
		return nil
	}

	dirPort, err := descriptor.ParseInt(fields[4])
	if err != nil {
		if validate {
			return lineErr(err, line)
		}
		return nil
	}
	orPort, err := descriptor.ParseInt(fields[5])
	if err != nil {
		if validate {
			return lineErr(err, line)
		}
		return nil
	}

	a.Nickname = fields[0]
	a.Fingerprint = fields[1]
	a.Hostname = fields[2]
	a.Address = fields[3]
	a.DirPort = dirPort
	a.ORPort = orPort
	a.IsLegacy = strings.HasSuffix(a.Nickname, "-legacy")
	return nil
}

// parseKeyCertificate parses the certificate sub-document of a vote's
// authority entry. The block must start with dir-key-certificate-version
// and end with dir-key-certification.
func parseKeyCertificate(lines []string, validate bool) (*KeyCertificate, error) {
	entries, err := descriptor.TokenizeLines(lines, descriptor.TokenizeOptions{Validate: validate})
	if err != nil {
		return nil, err
	}

	if validate {
		if err := validateFieldSet(entries, certFieldTable, true, nil); err != nil {
			return nil, err
		}
		all := entries.All()
		if all[len(all)-1].Keyword != "dir-key-certification" {
			return nil, descriptor.NewError(descriptor.KindMisorderedField, "",
				"key certificate must end with dir-key-certification")
		}
	}

	cert := &KeyCertificate{}

	if entry, ok := entries.First("dir-key-certificate-version"); ok {
		version, err := descriptor.ParseInt(entry.Value)
		if err != nil {
			if validate {
				return nil, lineErr(err, "dir-key-certificate-version "+entry.Value)
			}
		} else {
			cert.Version = version
		}
		if validate && cert.Version != 3 {
			return nil, descriptor.NewError(descriptor.KindMalformedVersion, entry.Value,
				"unrecognized key certificate version %d", cert.Version)
		}
	}

	if entry, ok := entries.First("dir-address"); ok {
		host, port, found := strings.Cut(entry.Value, ":")
		portNum, err := descriptor.ParseInt(port)
		if !found || host == "" || err != nil {
			if validate {
				return nil, descriptor.NewError(descriptor.KindMalformedLine, "dir-address "+entry.Value,
					"dir-address must be an address:port pair")
			}
		} else {
			cert.Address = host
			cert.Port = portNum
		}
	}

	if entry, ok := entries.First("fingerprint"); ok {
		cert.Fingerprint = entry.Value
	}

	if err := parseCertTimestamp(entries, "dir-key-published", &cert.Published, validate); err != nil {
		return nil, err
	}
	if err := parseCertTimestamp(entries, "dir-key-expires", &cert.Expires, validate); err != nil {
		return nil, err
	}

	blocks := []struct {
		keyword string
		target  *string
	}{
		{"dir-identity-key", &cert.IdentityKey},
		{"dir-signing-key", &cert.SigningKey},
		{"dir-key-crosscert", &cert.CrossCert},
		{"dir-key-certification", &cert.Certification},
	}
	for _, b := range blocks {
		entry, ok := entries.First(b.keyword)
		if !ok {
			continue
		}
		if entry.Block == nil {
			if validate {
				return nil, descriptor.NewError(descriptor.KindMissingField, b.keyword,
					"%s must be followed by a key block", b.keyword)
			}
			continue
		}
		*b.target = entry.Block.Raw
	}

	for _, entry := range entries.All() {
		if certKeyword(entry.Keyword) {
			continue
		}
		line := entry.Keyword
		if entry.Value != "" {
			line += " " + entry.Value
		}
		cert.UnrecognizedLines = append(cert.UnrecognizedLines, line)
	}

	return cert, nil
}

func parseCertTimestamp(entries *descriptor.Entries, keyword string, target *time.Time, validate bool) error {
	entry, ok := entries.First(keyword)
	if !ok {
		return nil
	}
	t, err := descriptor.ParseTimestamp(entry.Value)
	if err != nil {
		if validate {
			return lineErr(err, keyword+" "+entry.Value)
		}
		return nil
	}
	*target = t
	return nil
}

func certKeyword(keyword string) bool {
	for _, f := range certFieldTable {
		if f.keyword == keyword {
			return true
		}
	}
	return false
}
