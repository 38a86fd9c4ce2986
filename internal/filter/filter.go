package filter

import (
	"net/url"
	"strings"
)

// HostFilter accepts absolute http(s) URLs whose host contains any of the
// allowed keywords and none of the blocked ones. Matching is
// case-insensitive. An empty allow list accepts every host.
type HostFilter struct {
	allowed []string
	blocked []string
}

// NewHostFilter returns a filter over host keywords (case-insensitive substring).
func NewHostFilter(allowed, blocked []string) *HostFilter {
	return &HostFilter{
		allowed: lowerAll(allowed),
		blocked: lowerAll(blocked),
	}
}

// Match reports whether rawURL may be queued.
func (f *HostFilter) Match(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}

	for _, kw := range f.blocked {
		if strings.Contains(host, kw) {
			return false
		}
	}

	if len(f.allowed) == 0 {
		return true
	}
	for _, kw := range f.allowed {
		if strings.Contains(host, kw) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
