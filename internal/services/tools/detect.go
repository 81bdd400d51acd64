package tools

import (
	"strings"

	"github.com/ternarybob/consilio/internal/models"
)

// DetectInvocation inspects a question for signals that one of the
// registered tools should handle it instead of document retrieval.
// Returns nil when the question should go through the normal
// retrieval path.
func DetectInvocation(question string) *models.ToolInvocation {
	lower := strings.ToLower(question)

	if containsAnyKeyword(lower, "governor", "limits", "calculate", "usage") {
		return &models.ToolInvocation{
			Tool:      "governor_limits_calculator",
			Arguments: invocationArgs("operations", extractOperations(question)),
		}
	}

	codeMarkers := []string{"public class", "trigger", "public", "private", "class ", "for(", "while(", "{"}
	if containsAnyKeyword(lower, "apex", "class", "trigger") || containsAny(question, codeMarkers) {
		if containsAny(question, codeMarkers) {
			return &models.ToolInvocation{
				Tool:      "apex_code_reviewer",
				Arguments: invocationArgs("code", extractApexCode(question)),
			}
		}
		return nil
	}

	if containsAnyKeyword(lower, "soql", "select", "from", "where", "query", "optimize") {
		if strings.Contains(lower, "select") {
			return &models.ToolInvocation{
				Tool:      "soql_query_optimizer",
				Arguments: invocationArgs("query", extractSOQLQuery(question)),
			}
		}
		return nil
	}

	return nil
}

func containsAnyKeyword(lower string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// extractOperations pulls the JSON object out of a question when one is
// present, otherwise the whole question goes to the textual parser.
func extractOperations(question string) string {
	start := strings.Index(question, "{")
	end := strings.LastIndex(question, "}") + 1
	if start >= 0 && end > start {
		return question[start:end]
	}
	return question
}

// extractApexCode finds the start of a code snippet embedded in prose.
func extractApexCode(question string) string {
	for _, pattern := range []string{"public class", "trigger", "public", "private"} {
		if idx := strings.Index(question, pattern); idx >= 0 {
			return question[idx:]
		}
	}
	open := strings.Index(question, "{")
	if open >= 0 {
		if rel := strings.Index(question[open:], "}"); rel >= 0 {
			return question[:open+rel+1]
		}
	}
	return question
}

// extractSOQLQuery isolates the SELECT statement from surrounding prose,
// keeping lines that carry SQL keywords and trimming trailing question
// words.
func extractSOQLQuery(question string) string {
	lower := strings.ToLower(question)
	start := strings.Index(lower, "select")
	queryPart := question
	if start >= 0 {
		queryPart = question[start:]
	}

	sqlWords := []string{"select", "from", "where", "order", "limit", "group", "having"}
	proseMarkers := []string{"?", ":", "can", "you", "please", "optimize"}

	var parts []string
	for _, line := range strings.Split(queryPart, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && containsAny(strings.ToLower(line), sqlWords) {
			parts = append(parts, line)
		} else if len(parts) > 0 && !containsAny(line, proseMarkers) {
			parts = append(parts, line)
		}
	}

	final := strings.TrimSpace(queryPart)
	if len(parts) > 0 {
		final = strings.Join(parts, " ")
	}
	for _, word := range []string{" ?", "?", " optimize", " query"} {
		if strings.HasSuffix(strings.ToLower(final), word) {
			final = strings.TrimSpace(final[:len(final)-len(word)])
		}
	}
	return final
}
