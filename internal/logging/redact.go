package logging

import "strings"

// RedactedValue replaces a credential before it reaches a log line.
const RedactedValue = "[REDACTED]"

// sensitiveEnvNames are cache credential reference keys that must never
// have their resolved value logged, only their presence.
var sensitiveEnvNames = []string{
	"token", "access-key", "access_key", "secret", "credential", "password",
}

// IsSensitiveEnvRef reports whether name looks like a credential reference
// (the manifest's [cache].access-key-ref names an environment variable
// holding one).
func IsSensitiveEnvRef(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range sensitiveEnvNames {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// RedactIfSensitive returns RedactedValue when name is a credential
// reference, otherwise returns value unchanged. Use when logging a
// resolved environment variable so the credential contents never hit
// console or file output.
func RedactIfSensitive(name, value string) string {
	if IsSensitiveEnvRef(name) {
		return RedactedValue
	}
	return value
}
