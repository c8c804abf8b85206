package model

import (
	"net/url"
	"strings"
)

// NormalizeLinkedInURL canonicalizes a LinkedIn URL for use as an upsert
// key: scheme and host are lowercased, tracking query parameters and
// fragments are dropped, and the trailing slash is trimmed. Invalid URLs
// are returned trimmed so the caller can still store what the user gave.
func NormalizeLinkedInURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return strings.TrimRight(raw, "/")
	}
	u.Scheme = "https"
	u.Host = strings.ToLower(u.Host)
	u.Host = strings.TrimPrefix(u.Host, "www.")
	u.Host = "www." + u.Host
	u.RawQuery = ""
	u.Fragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	return u.String()
}
