package logging

import (
	"net/url"
	"regexp"
	"strings"
)

// sensitiveKeys are attribute keys whose values are never logged. A key
// containing one of them is sensitive too.
var sensitiveKeys = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"api_key",
	"apikey",
	"access_key",
	"private_key",
	"credentials",
	"authorization",
	"sasl_password",
}

// MaskedValue replaces sensitive values.
const MaskedValue = "[REDACTED]"

// IsSensitiveField reports whether values under fieldName must be masked.
func IsSensitiveField(fieldName string) bool {
	lower := strings.ToLower(fieldName)
	for _, key := range sensitiveKeys {
		if strings.Contains(lower, key) {
			return true
		}
	}
	return false
}

var keywordPassword = regexp.MustCompile(`(?i)(password\s*=\s*)('[^']*'|\S+)`)

// MaskDSN hides the password of a connection string. URL and key=value
// forms are both handled.
func MaskDSN(dsn string) string {
	if strings.Contains(dsn, "://") {
		u, err := url.Parse(dsn)
		if err == nil {
			return u.Redacted()
		}
	}
	return keywordPassword.ReplaceAllString(dsn, "${1}"+MaskedValue)
}

var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|token|secret|password|passwd)['":\s]*[=:]\s*['"]?([a-zA-Z0-9_\-\.]+)['"]?`),
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9_\-\.]+`),
	regexp.MustCompile(`(AKIA|ASIA)[A-Z0-9]{16}`),
}

// MaskSensitivePatterns masks credentials embedded in free text, such as
// error messages from drivers.
func MaskSensitivePatterns(s string) string {
	for _, pattern := range sensitivePatterns {
		s = pattern.ReplaceAllString(s, MaskedValue)
	}
	return s
}
