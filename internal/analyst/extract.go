package analyst

import "strings"

// extractJSON pulls a JSON document out of a model reply. Fenced ```json
// blocks win, then bare ``` blocks, then the raw text.
func extractJSON(response string) string {
	if idx := strings.Index(response, "```json"); idx >= 0 {
		rest := response[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
		return strings.TrimSpace(rest)
	}
	if idx := strings.Index(response, "```"); idx >= 0 {
		rest := response[idx+len("```"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(response)
}
