package concepts

import "strings"

// MaxPromptChars caps how much chunk text is sent to the model.
const MaxPromptChars = 2000

const extractionPromptTemplate = `Extract key concepts and their prerequisite relationships from this text.
Return a JSON object with exactly this structure:
{"concepts": ["concept1", "concept2", ...], "edges": [["prerequisite", "requires", "dependent"], ...]}

Important: Return ONLY valid JSON, no other text.

Text: {{text}}

JSON:`

// buildPrompt renders the extraction prompt for the first MaxPromptChars characters of text.
func buildPrompt(text string) string {
	return strings.Replace(extractionPromptTemplate, "{{text}}", truncateRunes(text, MaxPromptChars), 1)
}

func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
