package models

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&RequestLog{}))

	return db
}

// TestRequestLogBeforeCreate tests UUID generation and defaults on insert
func TestRequestLogBeforeCreate(t *testing.T) {
	db := setupTestDB(t)

	log := &RequestLog{Method: "GET"}
	require.NoError(t, db.Create(log).Error)

	assert.NotEqual(t, uuid.Nil, log.ID)
	assert.Equal(t, "/", log.Path)
	assert.False(t, log.Timestamp.IsZero())
	assert.Equal(t, time.UTC, log.Timestamp.Location())
	assert.Equal(t, UserAgentUnknown, log.UserAgentType)
}

// TestRequestLogBeforeCreate_WithProvidedID tests that a provided UUID is preserved
func TestRequestLogBeforeCreate_WithProvidedID(t *testing.T) {
	db := setupTestDB(t)

	providedID := uuid.New()
	log := &RequestLog{ID: providedID, Method: "POST", Path: "/TestApi"}
	require.NoError(t, db.Create(log).Error)

	assert.Equal(t, providedID, log.ID)
}

func TestRequestLogRoundTrip(t *testing.T) {
	db := setupTestDB(t)

	ts := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	log := &RequestLog{
		Timestamp:        ts,
		Method:           "GET",
		Path:             "/RequestDashboard",
		IPAddress:        OptionalString("2001:db8::1"),
		UserAgent:        OptionalString("curl/7.68.0"),
		UserAgentType:    UserAgentAPITool,
		DetectedClient:   OptionalString("cURL"),
		StatusCode:       200,
		ProcessingTimeMs: 12,
		QueryString:      OptionalString("?page=2"),
	}
	require.NoError(t, db.Create(log).Error)

	var loaded RequestLog
	require.NoError(t, db.First(&loaded, "id = ?", log.ID).Error)

	assert.Equal(t, UserAgentAPITool, loaded.UserAgentType)
	assert.Equal(t, "cURL", *loaded.DetectedClient)
	assert.Equal(t, "2001:db8::1", *loaded.IPAddress)
	assert.Equal(t, "?page=2", *loaded.QueryString)
	assert.Nil(t, loaded.Referer)
	assert.True(t, ts.Equal(loaded.Timestamp))
}

func TestRequestLogNormalize_Truncates(t *testing.T) {
	log := &RequestLog{
		Method:           "PROPPATCHX-LONG",
		Path:             "/" + strings.Repeat("p", 3000),
		IPAddress:        OptionalString(strings.Repeat("1", 60)),
		UserAgent:        OptionalString(strings.Repeat("u", 1500)),
		DetectedClient:   OptionalString(strings.Repeat("c", 150)),
		Referer:          OptionalString(strings.Repeat("r", 2500)),
		QueryString:      OptionalString(strings.Repeat("q", 1200)),
		UserAgentType:    UserAgentType(31),
		ProcessingTimeMs: -5,
	}

	log.Normalize()

	assert.Len(t, log.Method, MaxMethodLength)
	assert.Len(t, log.Path, MaxPathLength)
	assert.Len(t, *log.IPAddress, MaxIPAddressLength)
	assert.Len(t, *log.UserAgent, MaxUserAgentLength)
	assert.Len(t, *log.DetectedClient, MaxDetectedClientLength)
	assert.Len(t, *log.Referer, MaxRefererLength)
	assert.Len(t, *log.QueryString, MaxQueryStringLength)
	assert.Equal(t, UserAgentUnknown, log.UserAgentType)
	assert.Equal(t, int64(0), log.ProcessingTimeMs)
}

func TestRequestLogNormalize_EmptyOptionalsBecomeNil(t *testing.T) {
	empty := ""
	log := &RequestLog{Method: "GET", Path: "/", Referer: &empty}
	log.Normalize()
	assert.Nil(t, log.Referer)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	// Counts characters, not bytes.
	assert.Equal(t, "héé", Truncate("hééllo", 3))
	assert.Equal(t, "", Truncate("abc", 0))
}

func TestOptionalString(t *testing.T) {
	assert.Nil(t, OptionalString(""))
	require.NotNil(t, OptionalString("x"))
	assert.Equal(t, "x", *OptionalString("x"))
}
