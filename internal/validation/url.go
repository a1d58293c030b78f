package validation

import (
	"net/url"
	"strings"
)

// MaxURLLength is the standard browser URL limit.
const MaxURLLength = 2048

// ValidateBaseURL checks that raw is an absolute http(s) URL usable as an
// API or app base. Paths are allowed (for reverse-proxy prefixes); query
// strings and fragments are not, since request paths are appended verbatim.
func ValidateBaseURL(name, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return newError(name, "%s cannot be empty", name)
	}
	if len(raw) > MaxURLLength {
		return newError(name, "%s exceeds maximum length of %d characters", name, MaxURLLength)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return newError(name, "invalid %s: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return newError(name, "invalid %s %q: scheme must be http or https", name, raw)
	}
	if u.Host == "" {
		return newError(name, "invalid %s %q: missing host", name, raw)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return newError(name, "invalid %s %q: must not contain a query or fragment", name, raw)
	}
	if u.User != nil {
		return newError(name, "invalid %s: credentials in the URL are not supported", name)
	}
	return nil
}
