// Package networkstatus parses v3 Tor network-status documents, both
// consensus and vote flavors.
//
// A document is consumed in a single pass over four sections: the
// header (version, vote-status, time bounds, flags, tunable
// parameters), zero or more directory-authority blocks (each carrying
// either a vote-digest or an embedded key certificate depending on the
// document's role), the router-status section, and the footer
// (bandwidth weights and directory signatures). Which fields are legal,
// mandatory, or repeatable depends on whether the document is a vote or
// a consensus and on the consensus-method value embedded in the header.
//
// Three materialization modes are offered through Options.Handler:
// HandlerDocument collects every router entry onto the document,
// HandlerBareDocument parses the router section only far enough to
// reach the footer, and HandlerEntries (via EntryReader) streams
// entries one at a time without retaining them.
//
// Usage:
//
//	doc, err := networkstatus.Parse(raw, networkstatus.Options{
//	    Validate: true,
//	    Handler:  networkstatus.HandlerDocument,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	validAfter, _ := doc.ValidAfter()
//	fmt.Println(validAfter, len(doc.Routers()))
//
// Validation is structural only: field presence, ordering, role
// exclusivity, and numeric ranges. Cryptographic verification of the
// embedded signatures is out of scope.
package networkstatus
