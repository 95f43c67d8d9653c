package prompt

import "strings"

// CleanJSON strips markdown code fences and surrounding prose from a model
// response that should be bare JSON. Returns the outermost object or array
// span when one is present, otherwise the trimmed input.
func CleanJSON(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```json") {
		s = s[len("```json"):]
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	} else if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}
	s = strings.TrimSpace(s)

	objStart := strings.Index(s, "{")
	arrStart := strings.Index(s, "[")

	if arrStart >= 0 && (objStart < 0 || arrStart < objStart) {
		if end := strings.LastIndex(s, "]"); end > arrStart {
			return strings.TrimSpace(s[arrStart : end+1])
		}
		return s
	}
	if objStart >= 0 {
		if end := strings.LastIndex(s, "}"); end > objStart {
			return strings.TrimSpace(s[objStart : end+1])
		}
	}
	return s
}
