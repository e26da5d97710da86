package networkstatus

import (
	"strings"
	"testing"
	"time"

	"github.com/martinemde/netdoc/descriptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterStatusEntry(t *testing.T) {
	doc, err := Parse([]byte(consensusFixture), Options{Validate: true, Handler: HandlerDocument})
	require.NoError(t, err)

	require.Len(t, doc.Routers(), 1)
	router := doc.Routers()[0]
	assert.Equal(t, "moria1", router.Nickname)
	assert.Equal(t, "SPfwvYYp6d8SFh0aZTKLJYLIUjs", router.Identity)
	assert.Equal(t, "vBWciIBO1MRTJ6kTH8Og8fv6HVE", router.Digest)
	assert.Equal(t, time.Date(2012, 7, 12, 8, 36, 22, 0, time.UTC), router.Published)
	assert.Equal(t, "128.31.0.34", router.Address)
	assert.Equal(t, 9101, router.ORPort)
	assert.Equal(t, 9131, router.DirPort)
	assert.Equal(t, []string{"Authority", "Fast", "Guard", "Running", "Stable", "Valid"}, router.Flags)
	assert.Empty(t, router.UnknownFlags)
	require.NotNil(t, router.Version)
	assert.Equal(t, "0.2.3.19-rc", router.Version.Raw)
	assert.Equal(t, int64(20), router.Bandwidth)
	assert.False(t, router.IsUnmeasured)
	assert.Equal(t, "accept 80,443", router.PolicySummary)
}

func TestRouterUnknownFlags(t *testing.T) {
	raw := replaceLine(consensusFixture, "s", "s Authority Fast FutureFlag Running")
	doc, err := Parse([]byte(raw), Options{Validate: true, Handler: HandlerDocument})
	require.NoError(t, err)

	router := doc.Routers()[0]
	assert.Equal(t, []string{"Authority", "Fast", "FutureFlag", "Running"}, router.Flags)
	assert.Equal(t, []string{"FutureFlag"}, router.UnknownFlags)
}

func TestRouterRLineShape(t *testing.T) {
	raw := replaceLine(consensusFixture, "r", "r moria1 SPfwvYYp6d8SFh0aZTKLJYLIUjs 2012-07-12 08:36:22 128.31.0.34 9101 9131")
	_, err := Parse([]byte(raw), Options{Validate: true, Handler: HandlerDocument})
	require.Error(t, err)
	assert.True(t, descriptor.IsKind(err, descriptor.KindMalformedLine))

	doc, err := Parse([]byte(raw), Options{Handler: HandlerDocument})
	require.NoError(t, err)
	require.Len(t, doc.Routers(), 1)
	assert.Equal(t, "", doc.Routers()[0].Nickname)
}

func TestRouterVersionLine(t *testing.T) {
	// Non-Tor implementations advertise arbitrary version text.
	raw := replaceLine(consensusFixture, "v", "v Whatever 1.2")
	doc, err := Parse([]byte(raw), Options{Validate: true, Handler: HandlerDocument})
	require.NoError(t, err)
	router := doc.Routers()[0]
	assert.Equal(t, "Whatever 1.2", router.VersionLine)
	assert.Nil(t, router.Version)

	raw = replaceLine(consensusFixture, "v", "v Tor bogus")
	_, err = Parse([]byte(raw), Options{Validate: true, Handler: HandlerDocument})
	require.Error(t, err)
	assert.True(t, descriptor.IsKind(err, descriptor.KindMalformedVersion))
}

func TestRouterBandwidthLine(t *testing.T) {
	raw := replaceLine(consensusFixture, "w", "w Bandwidth=850 Measured=1200 Unmeasured=1")
	doc, err := Parse([]byte(raw), Options{Validate: true, Handler: HandlerDocument})
	require.NoError(t, err)
	router := doc.Routers()[0]
	assert.Equal(t, int64(850), router.Bandwidth)
	assert.Equal(t, int64(1200), router.MeasuredBandwidth)
	assert.True(t, router.IsUnmeasured)

	raw = replaceLine(consensusFixture, "w", "w Measured=1200")
	_, err = Parse([]byte(raw), Options{Validate: true, Handler: HandlerDocument})
	require.Error(t, err)
	assert.True(t, descriptor.IsKind(err, descriptor.KindMissingField))
}

func TestRouterPolicySummary(t *testing.T) {
	raw := replaceLine(consensusFixture, "p", "p permit all")
	_, err := Parse([]byte(raw), Options{Validate: true, Handler: HandlerDocument})
	require.Error(t, err)
	assert.True(t, descriptor.IsKind(err, descriptor.KindMalformedLine))

	raw = replaceLine(consensusFixture, "p", "p reject 1-65535")
	doc, err := Parse([]byte(raw), Options{Validate: true, Handler: HandlerDocument})
	require.NoError(t, err)
	assert.Equal(t, "reject 1-65535", doc.Routers()[0].PolicySummary)
}

func TestRouterDuplicateLine(t *testing.T) {
	raw := replaceLine(consensusFixture, "w", "w Bandwidth=20\nw Bandwidth=30")
	_, err := Parse([]byte(raw), Options{Validate: true, Handler: HandlerDocument})
	require.Error(t, err)
	assert.True(t, descriptor.IsKind(err, descriptor.KindDuplicateField))
}

func TestRouterLineOrder(t *testing.T) {
	raw := swapLines(consensusFixture, "v", "w")
	_, err := Parse([]byte(raw), Options{Validate: true, Handler: HandlerDocument})
	require.Error(t, err)
	assert.True(t, descriptor.IsKind(err, descriptor.KindMisorderedField))
}

func TestRouterAdditionalAddresses(t *testing.T) {
	raw := replaceLine(consensusFixture, "s",
		"a [2001:db8::1]:9101\na [2001:db8::2]:9101\ns Authority Fast Guard Running Stable Valid")
	doc, err := Parse([]byte(raw), Options{Validate: true, Handler: HandlerDocument})
	require.NoError(t, err)
	assert.Equal(t, []string{"[2001:db8::1]:9101", "[2001:db8::2]:9101"}, doc.Routers()[0].ORAddresses)
}

func TestRouterUnrecognizedLines(t *testing.T) {
	raw := replaceLine(consensusFixture, "p", "p accept 80,443\nid ed25519 mDbzUbq0hbpfDvSEpaNAcXcHHXc")
	doc, err := Parse([]byte(raw), Options{Validate: true, Handler: HandlerDocument})
	require.NoError(t, err)
	assert.Equal(t, []string{"id ed25519 mDbzUbq0hbpfDvSEpaNAcXcHHXc"}, doc.Routers()[0].UnrecognizedLines)
}

func TestEntryReaderStreamsRouters(t *testing.T) {
	second := "r other PPfwvYYp6d8SFh0aZTKLJYLIUjs wBWciIBO1MRTJ6kTH8Og8fv6HVE 2012-07-12 08:40:00 128.31.0.35 9001 0\n" +
		"s Fast Running Valid\n"
	raw := strings.Replace(consensusFixture, "directory-footer", second+"directory-footer", 1)

	er, err := NewEntryReader(strings.NewReader(raw), Options{Validate: true})
	require.NoError(t, err)

	var entries []*RouterStatusEntry
	for er.Scan() {
		entries = append(entries, er.Entry())
	}
	require.NoError(t, er.Err())
	require.Len(t, entries, 2)
	assert.Equal(t, "moria1", entries[0].Nickname)
	assert.Equal(t, "other", entries[1].Nickname)

	// A relay without a dir-port reports zero.
	assert.Equal(t, 0, entries[1].DirPort)
}

func TestEntryReaderPropagatesEntryError(t *testing.T) {
	raw := replaceLine(consensusFixture, "w", "w Bandwidth=notanumber")
	er, err := NewEntryReader(strings.NewReader(raw), Options{Validate: true})
	require.NoError(t, err)

	for er.Scan() {
	}
	require.Error(t, er.Err())
	assert.True(t, descriptor.IsKind(er.Err(), descriptor.KindMalformedInteger))
}
