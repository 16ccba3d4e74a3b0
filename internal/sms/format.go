package sms

import "strings"

// Format sanitizes model output for SMS transmission: literal \n escape
// sequences become real newlines, then backslashes, asterisks and double
// quotes are stripped and the result is trimmed. Idempotent for
// well-formed ASCII text.
func Format(raw string) string {
	s := strings.ReplaceAll(raw, `\n`, "\n")
	s = strings.ReplaceAll(s, `\`, "")
	s = strings.ReplaceAll(s, "*", "")
	s = strings.ReplaceAll(s, `"`, "")
	return strings.TrimSpace(s)
}
