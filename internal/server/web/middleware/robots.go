package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pandeptwidyaop/uatrack/internal/server/metrics"
	"github.com/pandeptwidyaop/uatrack/pkg/logger"
)

// RobotsPath is always reachable, whoever asks for it.
const RobotsPath = "/robots.txt"

// Default policy: Microsoft Graph Connectors may index the root page only.
const (
	DefaultBlockedMarker    = "GraphConnectors"
	DefaultBlockedUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko; GraphConnectors) Chrome/76.0.3809.132 Safari/537.36"
	DeniedMessage           = "Access denied. This resource is not available to Microsoft Graph Connectors. " +
		"Please check robots.txt for allowed paths."
)

// RobotsPolicy describes which crawler is blocked and from where.
type RobotsPolicy struct {
	// BlockedMarker matches the crawler when contained in the user agent (case-insensitive).
	BlockedMarker string
	// BlockedUserAgent matches the crawler when equal to the user agent (case-insensitive).
	BlockedUserAgent string
	// BlockedPaths are denied on exact, case-insensitive match.
	BlockedPaths []string
	// BlockedPrefixes are denied on case-insensitive prefix match.
	BlockedPrefixes []string
}

// DefaultRobotsPolicy returns the built-in policy.
func DefaultRobotsPolicy() RobotsPolicy {
	return RobotsPolicy{
		BlockedMarker:    DefaultBlockedMarker,
		BlockedUserAgent: DefaultBlockedUserAgent,
		BlockedPaths:     []string{"/RequestDashboard", "/TestApi", "/Privacy", "/Error"},
		BlockedPrefixes:  []string{"/lib/", "/css/", "/js/"},
	}
}

// IsBlockedUserAgent reports whether userAgent identifies the blocked crawler.
func (p RobotsPolicy) IsBlockedUserAgent(userAgent string) bool {
	if userAgent == "" {
		return false
	}
	if p.BlockedMarker != "" && strings.Contains(strings.ToLower(userAgent), strings.ToLower(p.BlockedMarker)) {
		return true
	}
	return p.BlockedUserAgent != "" && strings.EqualFold(userAgent, p.BlockedUserAgent)
}

// IsPathBlocked reports whether path is off limits to the blocked crawler.
// The root path is always allowed.
func (p RobotsPolicy) IsPathBlocked(path string) bool {
	if path == "" || path == "/" {
		return false
	}

	for _, blocked := range p.BlockedPaths {
		if strings.EqualFold(path, blocked) {
			return true
		}
	}

	lower := strings.ToLower(path)
	for _, prefix := range p.BlockedPrefixes {
		if prefix != "" && strings.HasPrefix(lower, strings.ToLower(prefix)) {
			return true
		}
	}

	return false
}

// ShouldBlock decides whether a request for path from userAgent is denied.
// Any internal fault allows the request.
func (p RobotsPolicy) ShouldBlock(path, userAgent string) (blocked bool) {
	defer func() {
		if recover() != nil {
			blocked = false
		}
	}()

	if isRobotsPath(path) {
		return false
	}
	if !p.IsBlockedUserAgent(userAgent) {
		return false
	}
	return p.IsPathBlocked(path)
}

// RobotsTxt renders a robots.txt body matching the policy.
func (p RobotsPolicy) RobotsTxt() string {
	var b strings.Builder

	b.WriteString("User-agent: *\n")
	b.WriteString("Allow: /\n")

	if p.BlockedMarker != "" {
		b.WriteString("\n")
		fmt.Fprintf(&b, "User-agent: %s\n", p.BlockedMarker)
		b.WriteString("Allow: /$\n")
		for _, path := range p.BlockedPaths {
			fmt.Fprintf(&b, "Disallow: %s\n", path)
		}
		for _, prefix := range p.BlockedPrefixes {
			fmt.Fprintf(&b, "Disallow: %s\n", prefix)
		}
	}

	return b.String()
}

func isRobotsPath(path string) bool {
	return strings.HasPrefix(strings.ToLower(path), RobotsPath)
}

// RobotsEnforcer denies the blocked crawler before the rest of the pipeline runs.
type RobotsEnforcer struct {
	policy  RobotsPolicy
	metrics *metrics.Metrics
}

// NewRobotsEnforcer creates an enforcer for policy. m may be nil.
func NewRobotsEnforcer(policy RobotsPolicy, m *metrics.Metrics) *RobotsEnforcer {
	return &RobotsEnforcer{policy: policy, metrics: m}
}

// Enforce wraps next, answering denied requests with 403 without calling next.
func (e *RobotsEnforcer) Enforce(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "" {
			path = "/"
		}
		userAgents := r.Header.Values("User-Agent")
		userAgent := strings.Join(userAgents, ",")

		if e.shouldBlock(path, userAgents) {
			logger.WarnEvent().
				Str("path", path).
				Str("user_agent", userAgent).
				Msg("Blocked request from Microsoft Graph Connectors")
			e.metrics.Denied()
			writeDenied(w)
			return
		}

		if !isRobotsPath(path) && e.isBlockedUserAgent(userAgents) {
			logger.InfoEvent().
				Str("path", path).
				Msg("Allowed request from Microsoft Graph Connectors (root page allowed)")
		}

		next.ServeHTTP(w, r)
	})
}

// shouldBlock checks every User-Agent line as well as their combined value,
// so a marker cannot hide behind an earlier header line.
func (e *RobotsEnforcer) shouldBlock(path string, userAgents []string) bool {
	if e.policy.ShouldBlock(path, strings.Join(userAgents, ",")) {
		return true
	}
	for _, ua := range userAgents {
		if e.policy.ShouldBlock(path, ua) {
			return true
		}
	}
	return false
}

func (e *RobotsEnforcer) isBlockedUserAgent(userAgents []string) bool {
	if e.policy.IsBlockedUserAgent(strings.Join(userAgents, ",")) {
		return true
	}
	for _, ua := range userAgents {
		if e.policy.IsBlockedUserAgent(ua) {
			return true
		}
	}
	return false
}

func writeDenied(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusForbidden)
	w.Write([]byte(DeniedMessage))
}
