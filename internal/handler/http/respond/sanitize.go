package respond

import (
	"regexp"
)

// Order matters: the Anthropic pattern must run before the generic sk- one.
var (
	anthropicKeyPattern = regexp.MustCompile(`sk-ant-[a-zA-Z0-9-_]+`)
	openaiKeyPattern    = regexp.MustCompile(`sk-[a-zA-Z0-9]{10,}`)
	// user:password@ and the password-only form used by redis URLs.
	urlPasswordPattern = regexp.MustCompile(`://([^:/@]*):([^@]+)@`)
	botTokenPattern    = regexp.MustCompile(`\b\d{6,}:[A-Za-z0-9_-]{30,}\b`)
)

// SanitizeError returns err's message with API keys, URL passwords and
// Telegram bot tokens masked.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	msg = anthropicKeyPattern.ReplaceAllString(msg, "sk-ant-****")
	msg = openaiKeyPattern.ReplaceAllString(msg, "sk-****")
	msg = urlPasswordPattern.ReplaceAllString(msg, "://$1:****@")
	msg = botTokenPattern.ReplaceAllString(msg, "****")
	return msg
}
