package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Column limits for RequestLog string fields. Longer values are truncated.
const (
	MaxMethodLength         = 10
	MaxPathLength           = 2000
	MaxIPAddressLength      = 45 // IPv6
	MaxUserAgentLength      = 1000
	MaxDetectedClientLength = 100
	MaxRefererLength        = 2000
	MaxQueryStringLength    = 1000
)

// RequestLog is the persisted summary of one handled HTTP request.
type RequestLog struct {
	ID               uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	Timestamp        time.Time     `gorm:"not null;index:idx_request_logs_timestamp" json:"timestamp"`
	Method           string        `gorm:"size:10;not null" json:"method"`
	Path             string        `gorm:"size:2000;not null" json:"path"`
	IPAddress        *string       `gorm:"size:45;index:idx_request_logs_ip_address" json:"ip_address,omitempty"`
	UserAgent        *string       `gorm:"size:1000" json:"user_agent,omitempty"`
	UserAgentType    UserAgentType `gorm:"not null;default:0;index:idx_request_logs_user_agent_type" json:"user_agent_type"`
	DetectedClient   *string       `gorm:"size:100" json:"detected_client,omitempty"`
	StatusCode       int           `json:"status_code"`
	ProcessingTimeMs int64         `json:"processing_time_ms"`
	Referer          *string       `gorm:"size:2000" json:"referer,omitempty"`
	QueryString      *string       `gorm:"size:1000" json:"query_string,omitempty"`
}

// BeforeCreate assigns the ID and enforces the column invariants
func (r *RequestLog) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	r.Normalize()
	return nil
}

// TableName specifies the table name
func (RequestLog) TableName() string {
	return "request_logs"
}

// Normalize fills required fields and truncates every string field to its column limit.
// It never fails: over-long values are cut, unknown categories become UserAgentUnknown.
func (r *RequestLog) Normalize() {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	} else {
		r.Timestamp = r.Timestamp.UTC()
	}
	if r.Method == "" {
		r.Method = "GET"
	}
	r.Method = Truncate(r.Method, MaxMethodLength)
	if r.Path == "" {
		r.Path = "/"
	}
	r.Path = Truncate(r.Path, MaxPathLength)
	if !r.UserAgentType.Valid() {
		r.UserAgentType = UserAgentUnknown
	}
	if r.ProcessingTimeMs < 0 {
		r.ProcessingTimeMs = 0
	}

	r.IPAddress = truncateOptional(r.IPAddress, MaxIPAddressLength)
	r.UserAgent = truncateOptional(r.UserAgent, MaxUserAgentLength)
	r.DetectedClient = truncateOptional(r.DetectedClient, MaxDetectedClientLength)
	r.Referer = truncateOptional(r.Referer, MaxRefererLength)
	r.QueryString = truncateOptional(r.QueryString, MaxQueryStringLength)
}

// Truncate cuts s to at most max characters.
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	var b strings.Builder
	n := 0
	for _, r := range s {
		if n == max {
			break
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}

// OptionalString returns nil for an empty string.
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func truncateOptional(s *string, max int) *string {
	if s == nil || *s == "" {
		return nil
	}
	t := Truncate(*s, max)
	return &t
}
