// Package deeplink builds and parses the invite links shared outside the
// app: scheme://join/<token> and its web equivalent
// https://<host>/join/<token>.
package deeplink

import (
	"fmt"
	"net/url"
	"strings"
)

// Build returns the native deep link for an invite token.
func Build(scheme, token string) string {
	return fmt.Sprintf("%s://join/%s", scheme, token)
}

// BuildWeb returns the https fallback link for an invite token.
func BuildWeb(host, token string) string {
	return fmt.Sprintf("https://%s/join/%s", host, token)
}

// Parse extracts the invite token from either link form. It accepts
// scheme://join/<token> and http(s)://<host>/join/<token>.
func Parse(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid invite link: %w", err)
	}
	var path string
	switch {
	case u.Scheme == "http" || u.Scheme == "https":
		path = strings.TrimPrefix(u.Path, "/")
	case u.Scheme != "":
		// custom scheme: host carries the "join" segment
		path = u.Host + u.Path
	default:
		return "", fmt.Errorf("invite link missing scheme: %q", raw)
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] != "join" || parts[1] == "" {
		return "", fmt.Errorf("not an invite link: %q", raw)
	}
	return parts[1], nil
}
