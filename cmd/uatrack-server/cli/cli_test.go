package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pandeptwidyaop/uatrack/internal/db/models"
	"github.com/pandeptwidyaop/uatrack/internal/server/config"
	"github.com/pandeptwidyaop/uatrack/internal/server/metrics"
	"github.com/pandeptwidyaop/uatrack/internal/server/web/middleware"
	"github.com/pandeptwidyaop/uatrack/internal/stats"
	"github.com/pandeptwidyaop/uatrack/internal/store"
)

func TestClassifyCommand_Args(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"classify", "curl/7.68.0", "Googlebot/2.1", "something-odd"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ApiTool\tcURL\tcurl/7.68.0", lines[0])
	assert.Equal(t, "SearchBot\tGoogle Bot\tGooglebot/2.1", lines[1])
	assert.Equal(t, "Unknown\tsomething-odd\tsomething-odd", lines[2])
}

func TestClassifyCommand_Stdin(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader("Twitterbot/1.0\n\n  UptimeRobot/2.0  \n"))
	rootCmd.SetArgs([]string{"classify"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "SocialBot\tTwitter Bot\tTwitterbot/1.0", lines[0])
	assert.Equal(t, "Monitor\tUptimeRobot\tUptimeRobot/2.0", lines[1])
}

func TestVersionCommand(t *testing.T) {
	SetVersion("v9.9.9", "2026-10-18", "deadbeef")
	defer SetVersion("dev", "unknown", "unknown")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "v9.9.9")
	assert.Contains(t, out.String(), "2026-10-18")
	assert.Contains(t, out.String(), "deadbeef")
}

func TestRenderStats(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	client := "cURL"
	s := stats.DashboardStats{
		RecentRequests: []models.RequestLog{{
			Timestamp:        now.Add(-2 * time.Minute),
			Method:           "GET",
			Path:             "/TestApi",
			UserAgentType:    models.UserAgentAPITool,
			DetectedClient:   &client,
			StatusCode:       200,
			ProcessingTimeMs: 12,
		}},
		UserAgentStats: map[models.UserAgentType]int{
			models.UserAgentAPITool: 1234,
			models.UserAgentHuman:   3,
		},
		TopClients:            []stats.Count{{Key: "cURL", Count: 1234}},
		TopPaths:              []stats.Count{{Key: "/TestApi", Count: 1237}},
		TotalRequests:         1237,
		AverageProcessingTime: 12.5,
		Page:                  1,
		PageSize:              10,
		WindowStart:           now.Add(-24 * time.Hour),
		GeneratedAt:           now,
	}

	var out bytes.Buffer
	renderStats(&out, s, 48213)
	text := out.String()

	assert.Contains(t, text, "Request statistics")
	assert.Contains(t, text, "1,237")
	assert.Contains(t, text, "12.5 ms")
	assert.Contains(t, text, "1 day ago")
	assert.Contains(t, text, "ApiTool")
	assert.Contains(t, text, "1,234")
	assert.Contains(t, text, "/TestApi")
	assert.Contains(t, text, "2 minutes ago")
	assert.Contains(t, text, "Stored requests (all time):")
	assert.Contains(t, text, "48,213")
	assert.Less(t, strings.Index(text, "Human"), strings.Index(text, "ApiTool"),
		"types are listed in enumeration order")
}

func TestRenderStats_Empty(t *testing.T) {
	var out bytes.Buffer
	renderStats(&out, stats.DashboardStats{
		UserAgentStats: map[models.UserAgentType]int{},
		GeneratedAt:    time.Now(),
		WindowStart:    time.Now().Add(-time.Hour),
	}, unknownTotal)

	assert.Contains(t, out.String(), "(none)")
	assert.Contains(t, out.String(), "Total requests:")
	assert.Contains(t, out.String(), "unknown")
}

func TestRobotsPolicy(t *testing.T) {
	tests := []struct {
		name          string
		cfg           config.RobotsConfig
		wantMarker    string
		wantUserAgent string
	}{
		{
			name:          "no identity configured",
			cfg:           config.RobotsConfig{},
			wantMarker:    middleware.DefaultBlockedMarker,
			wantUserAgent: middleware.DefaultBlockedUserAgent,
		},
		{
			name:          "default marker",
			cfg:           config.RobotsConfig{BlockedMarker: middleware.DefaultBlockedMarker},
			wantMarker:    middleware.DefaultBlockedMarker,
			wantUserAgent: middleware.DefaultBlockedUserAgent,
		},
		{
			name:          "custom marker",
			cfg:           config.RobotsConfig{BlockedMarker: "EvilBot"},
			wantMarker:    "EvilBot",
			wantUserAgent: "",
		},
		{
			name:          "custom user agent",
			cfg:           config.RobotsConfig{BlockedUserAgent: "EvilBot/1.0"},
			wantMarker:    "",
			wantUserAgent: "EvilBot/1.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := robotsPolicy(tt.cfg)
			assert.Equal(t, tt.wantMarker, policy.BlockedMarker)
			assert.Equal(t, tt.wantUserAgent, policy.BlockedUserAgent)
		})
	}
}

func TestBuildHandler(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	database, err := openDatabase(cfg.Database)
	require.NoError(t, err)
	st := store.NewGormStore(database)

	handler, apiHandler := buildHandler(cfg, st, metrics.New())
	defer apiHandler.Close()

	req := httptest.NewRequest("GET", "/RequestDashboard", nil)
	req.Header.Set("User-Agent", middleware.DefaultBlockedUserAgent)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("User-Agent", "curl/8.0")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	total, err := st.Count(req.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestBuildHandler_DashboardSeesLatestRequest(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	database, err := openDatabase(cfg.Database)
	require.NoError(t, err)

	handler, apiHandler := buildHandler(cfg, store.NewGormStore(database), nil)
	defer apiHandler.Close()

	dashboardTotal := func() float64 {
		req := httptest.NewRequest("GET", "/RequestDashboard", nil)
		req.Header.Set("User-Agent", "curl/8.0")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		return body["total_requests"].(float64)
	}

	assert.Equal(t, float64(0), dashboardTotal())

	req := httptest.NewRequest("GET", "/TestApi?x=1", nil)
	req.Header.Set("User-Agent", "curl/8.0")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, float64(2), dashboardTotal(), "both earlier requests are visible immediately")
}

func TestBuildHandler_Disabled(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Robots.Enabled = false
	cfg.Tracking.Enabled = false

	database, err := openDatabase(cfg.Database)
	require.NoError(t, err)
	st := store.NewGormStore(database)

	handler, apiHandler := buildHandler(cfg, st, nil)
	defer apiHandler.Close()

	req := httptest.NewRequest("GET", "/TestApi", nil)
	req.Header.Set("User-Agent", middleware.DefaultBlockedUserAgent)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	total, err := st.Count(req.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}
