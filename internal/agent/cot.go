package agent

import "strings"

var cotMarkers = []string{"REASONING:", "ANSWER:", "CONFIDENCE:", "LIMITATIONS:"}

type cotFields struct {
	Reasoning   string
	Answer      string
	Confidence  string
	Limitations string
}

// parseChainOfThought splits a structured chain-of-thought response
// into its four sections. All markers must be present, in order;
// anything else reports ok=false and the caller keeps the raw text with
// the unparsed flag set.
func parseChainOfThought(text string) (cotFields, bool) {
	positions := make([]int, len(cotMarkers))
	searchFrom := 0
	for i, marker := range cotMarkers {
		idx := strings.Index(text[searchFrom:], marker)
		if idx < 0 {
			return cotFields{}, false
		}
		positions[i] = searchFrom + idx
		searchFrom = positions[i] + len(marker)
	}

	section := func(i int) string {
		start := positions[i] + len(cotMarkers[i])
		end := len(text)
		if i+1 < len(positions) {
			end = positions[i+1]
		}
		return strings.TrimSpace(text[start:end])
	}

	return cotFields{
		Reasoning:   section(0),
		Answer:      section(1),
		Confidence:  section(2),
		Limitations: section(3),
	}, true
}

// extractRevision pulls the revised answer out of a critique response.
// When the marker is missing the whole critique output stands in for
// the revision, matching how the raw text would be read by a human.
func extractRevision(critiqueOutput string) string {
	const marker = "REVISED RESPONSE:"
	if idx := strings.Index(critiqueOutput, marker); idx >= 0 {
		return strings.TrimSpace(critiqueOutput[idx+len(marker):])
	}
	return strings.TrimSpace(critiqueOutput)
}
