package hackernews

import (
	"fmt"
	"net/url"
	"strings"
)

// HostClassifier derives the short "comhead" label shown next to a story
// title. On multi-tenant hosts (blog platforms where many authors share one
// domain) the first path segment is kept so different authors stay distinct.
type HostClassifier struct {
	multiTenant []string
}

// NewHostClassifier builds a classifier for the given multi-tenant domains,
// e.g. "medium.com" or "github.io".
func NewHostClassifier(multiTenant []string) *HostClassifier {
	hosts := make([]string, 0, len(multiTenant))
	for _, h := range multiTenant {
		h = strings.Trim(strings.ToLower(strings.TrimSpace(h)), ".")
		if h != "" {
			hosts = append(hosts, h)
		}
	}
	return &HostClassifier{multiTenant: hosts}
}

// Classify returns the label for rawURL.
func (c *HostClassifier) Classify(rawURL string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(rawURL))
	switch {
	case strings.HasPrefix(s, "//"):
		s = "http:" + s
	case !strings.Contains(s, "://"):
		s = "http://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("comhead: parse %q: %w", rawURL, err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("comhead: no host in %q", rawURL)
	}
	if strings.HasPrefix(host, "www.") && strings.Count(host, ".") > 1 {
		host = strings.TrimPrefix(host, "www.")
	}
	if domain, ok := c.tenantDomain(host); ok {
		if seg := firstSegment(u.Path); seg != "" {
			return domain + "/" + seg, nil
		}
	}
	return host, nil
}

func (c *HostClassifier) tenantDomain(host string) (string, bool) {
	for _, d := range c.multiTenant {
		if host == d || strings.HasSuffix(host, "."+d) {
			return d, true
		}
	}
	return "", false
}

func firstSegment(p string) string {
	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			return seg
		}
	}
	return ""
}
