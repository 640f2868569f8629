package classifier

import (
	"regexp"
	"strings"
	"sync"

	"github.com/pandeptwidyaop/uatrack/internal/db/models"
)

// CategoryRule holds the matchers of one category, tried in slice order.
type CategoryRule struct {
	Type     models.UserAgentType
	Patterns []*regexp.Regexp
}

// ClientName maps a case-insensitive substring to a display name.
type ClientName struct {
	Substring string
	Name      string

	lower string
}

// Rules is the immutable, ordered rule table used by a Classifier.
// Categories are tried in slice order, so priority is the position in the slice.
type Rules struct {
	Categories  []CategoryRule
	ClientNames []ClientName
	Browsers    []*regexp.Regexp
}

// CategorySpec is the uncompiled form of a CategoryRule.
type CategorySpec struct {
	Type     models.UserAgentType
	Patterns []string
}

// RuleSpec is the uncompiled form of a rule table.
type RuleSpec struct {
	Categories  []CategorySpec
	ClientNames []ClientName
	Browsers    []string
}

var (
	defaultRulesOnce sync.Once
	defaultRules     *Rules
)

// DefaultRules returns the built-in rule table. It is compiled once and shared.
func DefaultRules() *Rules {
	defaultRulesOnce.Do(func() {
		defaultRules = MustCompile(defaultSpec())
	})
	return defaultRules
}

// Compile builds a Rules table, compiling each pattern case-insensitively.
func Compile(spec RuleSpec) (*Rules, error) {
	rules := &Rules{
		Categories:  make([]CategoryRule, 0, len(spec.Categories)),
		ClientNames: make([]ClientName, 0, len(spec.ClientNames)),
		Browsers:    make([]*regexp.Regexp, 0, len(spec.Browsers)),
	}

	for _, c := range spec.Categories {
		rule := CategoryRule{Type: c.Type, Patterns: make([]*regexp.Regexp, 0, len(c.Patterns))}
		for _, p := range c.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, err
			}
			rule.Patterns = append(rule.Patterns, re)
		}
		rules.Categories = append(rules.Categories, rule)
	}

	for _, cn := range spec.ClientNames {
		cn.lower = strings.ToLower(cn.Substring)
		rules.ClientNames = append(rules.ClientNames, cn)
	}

	for _, p := range spec.Browsers {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, err
		}
		rules.Browsers = append(rules.Browsers, re)
	}

	return rules, nil
}

// MustCompile is like Compile but panics on an invalid pattern.
func MustCompile(spec RuleSpec) *Rules {
	rules, err := Compile(spec)
	if err != nil {
		panic(err)
	}
	return rules
}

func defaultSpec() RuleSpec {
	var spec RuleSpec

	add := func(t models.UserAgentType, patterns ...string) {
		spec.Categories = append(spec.Categories, CategorySpec{Type: t, Patterns: patterns})
	}

	// Priority order matters: a generic "bot" must not shadow the specific categories above it.
	add(models.UserAgentSearchBot,
		`Googlebot`, `Bingbot`, `Slurp`, `DuckDuckBot`, `Baiduspider`, `YandexBot`,
		`facebookexternalhit`, `spider`, `crawler`)
	add(models.UserAgentSocialBot,
		`facebookexternalhit`, `Twitterbot`, `LinkedInBot`, `WhatsApp`, `TelegramBot`, `Discordbot`)
	add(models.UserAgentAPITool,
		`Insomnia`, `Postman`, `curl`, `wget`, `HTTPie`, `Thunder Client`, `Paw`, `RestSharp`,
		`okhttp`, `python-requests`, `node-fetch`, `axios`)
	add(models.UserAgentMonitor,
		`UptimeRobot`, `Pingdom`, `StatusCake`, `Site24x7`, `monitor`, `uptime`)
	add(models.UserAgentSecurityScanner,
		`Nessus`, `OpenVAS`, `Qualys`, `Nmap`, `sqlmap`, `Nikto`, `scanner`)
	add(models.UserAgentCrawler,
		`Scrapy`, `BeautifulSoup`, `Selenium`, `PhantomJS`, `HeadlessChrome`, `bot`)

	spec.ClientNames = []ClientName{
		{Substring: "Insomnia", Name: "Insomnia"},
		{Substring: "Postman", Name: "Postman"},
		{Substring: "curl", Name: "cURL"},
		{Substring: "wget", Name: "Wget"},
		{Substring: "Googlebot", Name: "Google Bot"},
		{Substring: "Bingbot", Name: "Bing Bot"},
		{Substring: "facebookexternalhit", Name: "Facebook Bot"},
		{Substring: "Twitterbot", Name: "Twitter Bot"},
		{Substring: "UptimeRobot", Name: "UptimeRobot"},
		{Substring: "Pingdom", Name: "Pingdom"},
	}

	spec.Browsers = []string{
		`Chrome/[\d.]+`,
		`Firefox/[\d.]+`,
		`Safari/[\d.]+`,
		`Edge/[\d.]+`,
		`Opera/[\d.]+`,
		`Mozilla/`,
	}

	return spec
}
