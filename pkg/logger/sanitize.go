package logger

import "strings"

// SanitizedEmail masks an address for log output, keeping only the first
// character of the local part and the top-level domain.
func SanitizedEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return "[invalid-email]"
	}

	var b strings.Builder
	if local != "" {
		b.WriteByte(local[0])
		b.WriteString(strings.Repeat("*", len(local)-1))
	}
	b.WriteByte('@')

	labels := strings.Split(domain, ".")
	for i, label := range labels {
		if i > 0 {
			b.WriteByte('.')
		}
		if i < len(labels)-1 {
			b.WriteString(strings.Repeat("*", len(label)))
		} else {
			b.WriteString(label)
		}
	}
	return b.String()
}

var sensitiveParams = []string{"password", "token", "code", "secret", "email", "auth"}

// SanitizeQueryString reports whether a query string carries a sensitive
// parameter and should be redacted wholesale from logs.
func SanitizeQueryString(rawQuery string) bool {
	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
