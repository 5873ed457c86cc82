package logger

import (
	"net/url"
	"sort"
	"strings"
)

// SanitizedEmail masks an email address for logging (e.g., "u***@*****.com")
func SanitizedEmail(email string) string {
	username, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") {
		return "[invalid-email]"
	}

	// Mask username: keep first char, mask rest
	if len(username) > 1 {
		username = username[:1] + strings.Repeat("*", len(username)-1)
	}

	// Mask domain: keep TLD, mask the rest
	domainParts := strings.Split(domain, ".")
	for i := 0; i < len(domainParts)-1; i++ {
		domainParts[i] = strings.Repeat("*", len(domainParts[i]))
	}

	return username + "@" + strings.Join(domainParts, ".")
}

// sensitiveParams are query keys whose values must never reach the logs.
// The OAuth callback carries code and state; the frontend redirect carries
// token and user.
var sensitiveParams = map[string]bool{
	"password": true,
	"token":    true,
	"code":     true,
	"state":    true,
	"user":     true,
	"email":    true,
	"secret":   true,
}

// RedactQuery returns rawQuery with the values of sensitive keys replaced by
// "[REDACTED]". Unparseable queries are redacted entirely.
func RedactQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}

	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return "[REDACTED]"
	}

	parts := make([]string, 0, len(values))
	for key, vals := range values {
		for _, v := range vals {
			if sensitiveParams[strings.ToLower(key)] {
				v = "[REDACTED]"
			}
			parts = append(parts, key+"="+v)
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, "&")
}
