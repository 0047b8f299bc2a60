package logger

import (
	"regexp"
	"strings"
)

// RedactEmail masks an email address for safe logging.
// "anna.svensson@example.se" → "an***@example.se"
// Short local parts (≤2 chars) are fully masked: "ab@example.se" → "***@example.se"
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***@***"
	}
	name := parts[0]
	if len(name) > 2 {
		return name[:2] + "***@" + parts[1]
	}
	return "***@" + parts[1]
}

// Swedish org/person numbers: 6 or 8 digits, optional dash, 4 digits.
var orgNrRegex = regexp.MustCompile(`\b(\d{8}|\d{6})-?\d{4}\b`)

// RedactOrgNumber masks Swedish organisationsnummer/personnummer embedded
// in a value, keeping the first two digits for debuggability.
func RedactOrgNumber(val string) string {
	return orgNrRegex.ReplaceAllStringFunc(val, func(m string) string {
		return m[:2] + strings.Repeat("*", len(m)-2)
	})
}
