package server

import (
	"net/http"
	"net/url"
	"strings"
)

// OriginChecker gates websocket upgrades by Origin header. An empty
// allow-list accepts everything, which keeps local development and
// non-browser clients working.
type OriginChecker struct {
	allowedOrigins map[string]struct{}
}

func NewOriginChecker(allowedOrigins []string) *OriginChecker {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			allowed[origin] = struct{}{}
		}
	}

	return &OriginChecker{
		allowedOrigins: allowed,
	}
}

func (c *OriginChecker) Check(r *http.Request) bool {
	if len(c.allowedOrigins) == 0 {
		return true
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}

	_, ok := c.allowedOrigins[parsed.Scheme+"://"+parsed.Host]

	return ok
}
