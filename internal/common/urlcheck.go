package common

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	// hostLabelPattern matches one DNS label: alphanumeric edges, hyphens
	// allowed inside, 63 characters max.
	hostLabelPattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)

	// tldPattern requires an alphabetic top-level label of at least two
	// characters, which also rejects bare hostnames like "localhost".
	tldPattern = regexp.MustCompile(`^[a-zA-Z]{2,}$`)
)

// IsValidURL reports whether the string is a well-formed http or https URL
// with a plausible public hostname. It is a pure syntactic check: no DNS
// lookup, no reachability probe.
func IsValidURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}

	host := parsed.Hostname()
	if host == "" {
		return false
	}
	if strings.HasPrefix(host, ".") || strings.HasSuffix(host, ".") || strings.Contains(host, "..") {
		return false
	}

	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if !hostLabelPattern.MatchString(label) {
			return false
		}
	}
	return tldPattern.MatchString(labels[len(labels)-1])
}

// ExtractDomain returns the hostname of a URL, or "" when the URL does not
// parse or carries no host.
func ExtractDomain(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}
