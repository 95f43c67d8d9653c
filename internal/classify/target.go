package classify

import (
	"regexp"
	"strings"
)

// urlPattern matches an absolute http(s) URL.
var urlPattern = regexp.MustCompile(`https?://[^\s<>"')]+`)

// domainPattern matches a bare domain-like token, optionally with a path.
var domainPattern = regexp.MustCompile(`(?i)\b(?:[a-z0-9](?:[a-z0-9-]*[a-z0-9])?\.)+[a-z]{2,}(?:/[^\s<>"')]*)?`)

// ExtractTarget scans a message for a fetchable target. Absolute URLs win
// over bare domains; schemeless matches get https:// prepended.
func ExtractTarget(message string) (string, bool) {
	if m := urlPattern.FindString(message); m != "" {
		return trimTargetEdges(m), true
	}
	if m := domainPattern.FindString(message); m != "" {
		return "https://" + trimTargetEdges(m), true
	}
	return "", false
}

// trimTargetEdges strips the quoting and sentence punctuation chat messages
// commonly wrap around a URL.
func trimTargetEdges(target string) string {
	return strings.Trim(target, "\"'`.,;:!?()[]<>")
}
