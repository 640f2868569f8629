// Package classifier maps a User-Agent header to a client category and,
// where possible, a display name for the client.
package classifier

import (
	"strings"
	"unicode/utf8"

	"github.com/pandeptwidyaop/uatrack/internal/db/models"
	apperrors "github.com/pandeptwidyaop/uatrack/pkg/errors"
	"github.com/pandeptwidyaop/uatrack/pkg/logger"
)

// unknownClientMaxLength bounds the display name used for unrecognised agents.
const unknownClientMaxLength = 50

// Classifier classifies user agents against an ordered rule table.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	rules *Rules
}

// New creates a classifier. A nil rules table selects DefaultRules.
func New(rules *Rules) *Classifier {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Classifier{rules: rules}
}

// Classify returns the category of userAgent and the detected client name.
// An empty client means no name could be derived. Classify never panics:
// internal faults resolve to (UserAgentUnknown, "").
func (c *Classifier) Classify(userAgent string) (uaType models.UserAgentType, client string) {
	if strings.TrimSpace(userAgent) == "" {
		return models.UserAgentUnknown, ""
	}

	defer func() {
		if err := apperrors.FromPanic(recover()); err != nil {
			logger.ErrorEvent().
				Err(err).
				Str("user_agent", userAgent).
				Msg("Error classifying user agent")
			uaType, client = models.UserAgentUnknown, ""
		}
	}()

	for _, category := range c.rules.Categories {
		for _, pattern := range category.Patterns {
			loc := pattern.FindStringIndex(userAgent)
			if loc == nil {
				continue
			}

			client = c.clientName(userAgent, userAgent[loc[0]:loc[1]])
			logger.DebugEvent().
				Str("user_agent_type", category.Type.String()).
				Str("user_agent", userAgent).
				Msg("Classified user agent")
			return category.Type, client
		}
	}

	for _, browser := range c.rules.Browsers {
		if browser.MatchString(userAgent) {
			logger.DebugEvent().
				Str("user_agent", userAgent).
				Msg("Classified user agent as human browser")
			return models.UserAgentHuman, browserName(userAgent)
		}
	}

	logger.DebugEvent().
		Str("user_agent", userAgent).
		Msg("Could not classify user agent")
	return models.UserAgentUnknown, abbreviate(userAgent, unknownClientMaxLength)
}

// clientName prefers a known display name, falling back to the matched text.
func (c *Classifier) clientName(userAgent, matched string) string {
	lower := strings.ToLower(userAgent)
	for _, cn := range c.rules.ClientNames {
		key := cn.lower
		if key == "" {
			key = strings.ToLower(cn.Substring)
		}
		if key != "" && strings.Contains(lower, key) {
			return cn.Name
		}
	}
	return matched
}

func browserName(userAgent string) string {
	lower := strings.ToLower(userAgent)
	has := func(s string) bool { return strings.Contains(lower, s) }

	switch {
	case has("chrome") && !has("chromium"):
		return "Chrome"
	case has("firefox"):
		return "Firefox"
	case has("safari") && !has("chrome"):
		return "Safari"
	case has("edge"):
		return "Edge"
	case has("opera"):
		return "Opera"
	default:
		return "Browser"
	}
}

func abbreviate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return models.Truncate(s, max) + "..."
}
