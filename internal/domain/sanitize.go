package domain

import (
	"regexp"
	"strings"
)

// Patterns stripped from error text before it can reach a caller or a
// webhook payload. Internal paths, addresses and source locations leak
// deployment details.
var (
	unixPathRe = regexp.MustCompile(`(/[\w./-]+)+`)
	winPathRe  = regexp.MustCompile(`[A-Za-z]:\\[\w\\.-]+`)
	lineRefRe  = regexp.MustCompile(`line \d+`)
	hexAddrRe  = regexp.MustCompile(`0x[0-9a-fA-F]+`)
)

const maxSanitizedLen = 200

// SanitizeErrorMessage rewrites raw error text into a form safe to surface
// outside the process. The category name may be prefixed by the caller;
// internal type names never survive this pass.
func SanitizeErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	msg = unixPathRe.ReplaceAllString(msg, "[PATH]")
	msg = winPathRe.ReplaceAllString(msg, "[PATH]")
	msg = lineRefRe.ReplaceAllString(msg, "line [N]")
	msg = hexAddrRe.ReplaceAllString(msg, "0x[ADDR]")
	msg = strings.TrimSpace(msg)
	return Truncate(msg, maxSanitizedLen)
}

// Truncate bounds s to max runes, appending an ellipsis when cut.
func Truncate(s string, max int) string {
	if max <= 3 {
		max = 3
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
