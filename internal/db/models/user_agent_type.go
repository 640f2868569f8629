package models

import (
	"database/sql/driver"
	"fmt"
	"strings"

	apperrors "github.com/pandeptwidyaop/uatrack/pkg/errors"
)

// UserAgentType classifies the software behind a request.
// The set is closed: values outside Unknown..SecurityScanner are rejected on decode.
type UserAgentType int

const (
	UserAgentUnknown UserAgentType = iota
	UserAgentHuman
	UserAgentSearchBot
	UserAgentSocialBot
	UserAgentAPITool
	UserAgentCrawler
	UserAgentMonitor
	UserAgentSecurityScanner
)

var userAgentTypeNames = [...]string{
	UserAgentUnknown:         "Unknown",
	UserAgentHuman:           "Human",
	UserAgentSearchBot:       "SearchBot",
	UserAgentSocialBot:       "SocialBot",
	UserAgentAPITool:         "ApiTool",
	UserAgentCrawler:         "Crawler",
	UserAgentMonitor:         "Monitor",
	UserAgentSecurityScanner: "SecurityScanner",
}

// UserAgentTypes lists every category in declaration order.
func UserAgentTypes() []UserAgentType {
	types := make([]UserAgentType, len(userAgentTypeNames))
	for i := range userAgentTypeNames {
		types[i] = UserAgentType(i)
	}
	return types
}

// Valid reports whether t is a member of the enumeration.
func (t UserAgentType) Valid() bool {
	return t >= UserAgentUnknown && int(t) < len(userAgentTypeNames)
}

func (t UserAgentType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("UserAgentType(%d)", int(t))
	}
	return userAgentTypeNames[t]
}

// ParseUserAgentType parses a category name case-insensitively.
func ParseUserAgentType(s string) (UserAgentType, error) {
	for i, name := range userAgentTypeNames {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return UserAgentType(i), nil
		}
	}
	return UserAgentUnknown, fmt.Errorf("%w: %q", apperrors.ErrInvalidUserAgentType, s)
}

// MarshalText encodes the category by name, which also makes it usable as a JSON map key.
func (t UserAgentType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", apperrors.ErrInvalidUserAgentType, int(t))
	}
	return []byte(userAgentTypeNames[t]), nil
}

// UnmarshalText decodes a category name.
func (t *UserAgentType) UnmarshalText(text []byte) error {
	parsed, err := ParseUserAgentType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Value stores the category as its integer code.
func (t UserAgentType) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", apperrors.ErrInvalidUserAgentType, int(t))
	}
	return int64(t), nil
}

// Scan reads an integer code from the database.
func (t *UserAgentType) Scan(src interface{}) error {
	var code int64
	switch v := src.(type) {
	case int64:
		code = v
	case int32:
		code = int64(v)
	case int:
		code = int64(v)
	case []byte:
		parsed, err := ParseUserAgentType(string(v))
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	case string:
		parsed, err := ParseUserAgentType(v)
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	case nil:
		*t = UserAgentUnknown
		return nil
	default:
		return fmt.Errorf("%w: unsupported type %T", apperrors.ErrInvalidUserAgentType, src)
	}

	candidate := UserAgentType(code)
	if !candidate.Valid() {
		return fmt.Errorf("%w: %d", apperrors.ErrInvalidUserAgentType, code)
	}
	*t = candidate
	return nil
}
