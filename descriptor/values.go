package descriptor

import (
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the fixed timestamp format used throughout the
// directory document formats.
const TimeLayout = "2006-01-02 15:04:05"

// ParseTimestamp parses a "YYYY-MM-DD HH:MM:SS" timestamp (UTC).
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, &ParseError{
			Kind:    KindMalformedTimestamp,
			Message: "timestamp " + strconv.Quote(s) + " is not in YYYY-MM-DD HH:MM:SS form",
			Cause:   err,
		}
	}
	return t, nil
}

// ParseInt parses a signed decimal integer. An explicit leading '+'
// sign is rejected, matching the directory format's integer grammar.
func ParseInt(s string) (int, error) {
	if strings.HasPrefix(s, "+") {
		return 0, NewError(KindMalformedInteger, "", "integer %q must not carry an explicit plus sign", s)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &ParseError{
			Kind:    KindMalformedInteger,
			Message: "invalid integer " + strconv.Quote(s),
			Cause:   err,
		}
	}
	return n, nil
}

// ParseInt32 is ParseInt constrained to the signed 32-bit range used by
// document parameters.
func ParseInt32(s string) (int32, error) {
	if strings.HasPrefix(s, "+") {
		return 0, NewError(KindMalformedInteger, "", "integer %q must not carry an explicit plus sign", s)
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, &ParseError{
			Kind:    KindMalformedInteger,
			Message: "invalid 32-bit integer " + strconv.Quote(s),
			Cause:   err,
		}
	}
	return int32(n), nil
}

// Version is a parsed Tor version string: major.minor.micro with an
// optional fourth patch level and an optional -status suffix
// (e.g. "0.2.3.19-rc").
type Version struct {
	Major  int
	Minor  int
	Micro  int
	Patch  int
	Status string
	Raw    string
}

// String returns the original text representation of the version.
func (v Version) String() string { return v.Raw }

// ParseVersion parses a Tor version string.
func ParseVersion(s string) (Version, error) {
	v := Version{Raw: s}

	rest := s
	if idx := strings.IndexByte(rest, '-'); idx >= 0 {
		v.Status = rest[idx+1:]
		rest = rest[:idx]
		if v.Status == "" {
			return Version{}, NewError(KindMalformedVersion, "", "version %q has an empty status suffix", s)
		}
	}

	parts := strings.Split(rest, ".")
	if len(parts) < 3 || len(parts) > 4 {
		return Version{}, NewError(KindMalformedVersion, "", "version %q must have three or four dotted components", s)
	}

	nums := make([]int, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || strings.HasPrefix(part, "+") {
			return Version{}, NewError(KindMalformedVersion, "", "version %q has a non-numeric component %q", s, part)
		}
		nums[i] = n
	}

	v.Major, v.Minor, v.Micro = nums[0], nums[1], nums[2]
	if len(nums) == 4 {
		v.Patch = nums[3]
	}
	return v, nil
}

// ParseVersionList parses a comma-separated version list. When lenient
// is true, individually unparsable entries are dropped; otherwise the
// first bad entry fails the whole list.
func ParseVersionList(s string, lenient bool) ([]Version, error) {
	var versions []Version
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := ParseVersion(part)
		if err != nil {
			if lenient {
				continue
			}
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, nil
}
