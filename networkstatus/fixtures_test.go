package networkstatus

import "strings"

// Fixture documents modeled on real v3 directory material, trimmed to
// one authority and one router.

const consensusFixture = `network-status-version 3
vote-status consensus
consensus-method 11
valid-after 2012-07-12 10:00:00
fresh-until 2012-07-12 11:00:00
valid-until 2012-07-12 13:00:00
voting-delay 300 300
client-versions 0.2.2.35,0.2.3.19-rc
server-versions 0.2.2.35,0.2.3.19-rc
known-flags Authority Exit Fast Guard Running Stable Valid
params bwweightscale=10000 circwindow=1000
dir-source moria1 D586D18309DED4CD6D57C18FDB97EFA96D330566 128.31.0.39 128.31.0.39 9131 9101
contact 1024D/28988BF5 arma mit edu
vote-digest 0B6D4CA9431B4E6B0EB42EE8C9F5B58A845C6A67
r moria1 SPfwvYYp6d8SFh0aZTKLJYLIUjs vBWciIBO1MRTJ6kTH8Og8fv6HVE 2012-07-12 08:36:22 128.31.0.34 9101 9131
s Authority Fast Guard Running Stable Valid
v Tor 0.2.3.19-rc
w Bandwidth=20
p accept 80,443
directory-footer
bandwidth-weights Wbd=3335 Wbe=0 Wbg=3536 Wbm=10000 Wdb=10000 Web=10000 Wed=3329 Wee=10000 Weg=3329 Wem=10000 Wgb=10000 Wgd=3335 Wgg=6464 Wgm=6464 Wmb=10000 Wmd=3335 Wme=0 Wmg=3536 Wmm=10000
directory-signature D586D18309DED4CD6D57C18FDB97EFA96D330566 0B6D4CA9431B4E6B0EB42EE8C9F5B58A845C6A67
-----BEGIN SIGNATURE-----
c2lnbmF0dXJl
-----END SIGNATURE-----
`

const voteFixture = `network-status-version 3
vote-status vote
consensus-methods 1 9 10 11
published 2012-07-12 09:00:00
valid-after 2012-07-12 10:00:00
fresh-until 2012-07-12 11:00:00
valid-until 2012-07-12 13:00:00
voting-delay 300 300
client-versions 0.2.2.35,0.2.3.19-rc
server-versions 0.2.2.35,0.2.3.19-rc
known-flags Authority Exit Fast Guard Running Stable Valid
params cbtquantile=80 circwindow=500
dir-source moria1 D586D18309DED4CD6D57C18FDB97EFA96D330566 128.31.0.39 128.31.0.39 9131 9101
contact 1024D/28988BF5 arma mit edu
dir-key-certificate-version 3
fingerprint D586D18309DED4CD6D57C18FDB97EFA96D330566
dir-identity-key
-----BEGIN RSA PUBLIC KEY-----
MIIBigKCAYEAtXeTFLKdkSeS
-----END RSA PUBLIC KEY-----
dir-key-published 2011-11-28 21:51:04
dir-key-expires 2012-11-28 21:51:04
dir-signing-key
-----BEGIN RSA PUBLIC KEY-----
MIGJAoGBALPSUInyuEu6NV3NjozplaniIEBzQXEjv1x9pW1rN0IvsSrnJYhh6lTH
-----END RSA PUBLIC KEY-----
dir-key-certification
-----BEGIN SIGNATURE-----
Y2VydGlmaWNhdGlvbg
-----END SIGNATURE-----
r moria1 SPfwvYYp6d8SFh0aZTKLJYLIUjs vBWciIBO1MRTJ6kTH8Og8fv6HVE 2012-07-12 08:36:22 128.31.0.34 9101 9131
s Authority Fast Guard Running Stable Valid
v Tor 0.2.3.19-rc
w Bandwidth=20
p accept 80,443
m 9,10,11 sha256=IQI5X2A5p0WVN/MgwncqOaHF2f0HEGFEaxSON+uKRhU
directory-signature D586D18309DED4CD6D57C18FDB97EFA96D330566 0B6D4CA9431B4E6B0EB42EE8C9F5B58A845C6A67
-----BEGIN SIGNATURE-----
c2lnbmF0dXJl
-----END SIGNATURE-----
`

// withoutLine removes every line that begins with the given keyword.
func withoutLine(doc, keyword string) string {
	var kept []string
	for _, line := range strings.Split(doc, "\n") {
		if strings.HasPrefix(line, keyword+" ") || line == keyword {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// replaceLine rewrites the first line that begins with the given
// keyword.
func replaceLine(doc, keyword, replacement string) string {
	lines := strings.Split(doc, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, keyword+" ") || line == keyword {
			lines[i] = replacement
			return strings.Join(lines, "\n")
		}
	}
	return doc
}

// swapLines exchanges the first lines beginning with the two keywords.
func swapLines(doc, a, b string) string {
	lines := strings.Split(doc, "\n")
	ai, bi := -1, -1
	for i, line := range lines {
		if ai < 0 && (strings.HasPrefix(line, a+" ") || line == a) {
			ai = i
		}
		if bi < 0 && (strings.HasPrefix(line, b+" ") || line == b) {
			bi = i
		}
	}
	if ai >= 0 && bi >= 0 {
		lines[ai], lines[bi] = lines[bi], lines[ai]
	}
	return strings.Join(lines, "\n")
}
