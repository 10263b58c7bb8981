// Package urlcheck decides which candidate lines are fetchable https URLs.
package urlcheck

import (
	"net/netip"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// Validity is the outcome of classifying one candidate.
type Validity int

const (
	Invalid Validity = iota
	Valid
)

func (v Validity) String() string {
	if v == Valid {
		return "valid"
	}
	return "invalid"
}

const maxLabelLen = 63

// Classify reports whether raw is a well-formed absolute URL with the https
// scheme and a routable host: an IP literal, or a domain name of at least
// two labels ending in an ICANN top-level domain. Unicode host names are
// accepted.
func Classify(raw string) Validity {
	if raw == "" || strings.ContainsFunc(raw, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	}) {
		return Invalid
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Invalid
	}
	if !strings.EqualFold(u.Scheme, "https") || u.Opaque != "" {
		return Invalid
	}
	if strings.Contains(u.EscapedPath(), "//") {
		return Invalid
	}
	if port := u.Port(); port != "" {
		n, err := strconv.Atoi(port)
		if err != nil || n < 1 || n > 65535 {
			return Invalid
		}
	}

	host := u.Hostname()
	if host == "" {
		return Invalid
	}
	if _, err := netip.ParseAddr(host); err == nil {
		return Valid
	}
	if !validDomain(host) {
		return Invalid
	}
	return Valid
}

// IsValid is shorthand for Classify(raw) == Valid.
func IsValid(raw string) bool {
	return Classify(raw) == Valid
}

// Partition splits urls into valid and invalid lists, each in input order.
func Partition(urls []string) (valid, invalid []string) {
	for _, u := range urls {
		if IsValid(u) {
			valid = append(valid, u)
		} else {
			invalid = append(invalid, u)
		}
	}
	return valid, invalid
}

// validDomain checks host in its ASCII form, so internationalized names
// are converted to punycode before the label and suffix checks.
func validDomain(host string) bool {
	ascii, err := idna.Lookup.ToASCII(strings.TrimSuffix(host, "."))
	if err != nil {
		return false
	}
	host = strings.ToLower(ascii)
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if !validLabel(label) {
			return false
		}
	}

	tld := labels[len(labels)-1]
	if _, err := strconv.Atoi(tld); err == nil {
		// all-numeric TLDs only appear in malformed IPv4 addresses
		return false
	}
	suffix, icann := publicsuffix.PublicSuffix(tld)
	return icann && suffix == tld
}

func validLabel(label string) bool {
	if label == "" || len(label) > maxLabelLen {
		return false
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
		default:
			return false
		}
	}
	return true
}
