package tools

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// ApexReviewer reviews Apex code for governor limit compliance and
// common anti-patterns: SOQL or DML inside loops, hardcoded IDs, debug
// statements, missing exception handling, and non-bulkified triggers.
type ApexReviewer struct{}

func NewApexReviewer() *ApexReviewer { return &ApexReviewer{} }

func (r *ApexReviewer) Name() string  { return "apex_code_reviewer" }
func (r *ApexReviewer) Label() string { return "Apex Code Reviewer" }

func (r *ApexReviewer) Schema() Schema {
	return Schema{Fields: []Field{
		{Name: "code", Type: FieldString, Required: true, Description: "The Apex code to review"},
	}}
}

var (
	soqlInlinePattern = regexp.MustCompile(`(?i)\[.*SELECT.*\]`)
	loopOpenPattern   = regexp.MustCompile(`(?i)\b(for|while)\s*\(|do\s*\{`)
	hardcodedIDExact  = regexp.MustCompile(`\b[0-9a-zA-Z]{15}\b|\b[0-9a-zA-Z]{18}\b`)
	dmlKeywords       = []string{"insert ", "update ", "delete ", "upsert "}
)

func (r *ApexReviewer) Execute(ctx context.Context, args map[string]any) (string, error) {
	code := strings.TrimSpace(args["code"].(string))
	if code == "" {
		return "Please provide Apex code to review.", nil
	}

	var issues, recommendations []string
	codeLower := strings.ToLower(code)

	// Track brace depth from loop openings so statements are only
	// flagged while actually inside a loop body
	loopDepth := 0
	braceDepth := 0
	loopBraceFloor := -1

	for i, line := range strings.Split(code, "\n") {
		lineNum := i + 1
		lineLower := strings.ToLower(strings.TrimSpace(line))

		if loopOpenPattern.MatchString(lineLower) {
			if loopDepth == 0 {
				loopBraceFloor = braceDepth
			}
			loopDepth++
		}

		inLoop := loopDepth > 0

		if inLoop && soqlInlinePattern.MatchString(line) {
			issues = append(issues, fmt.Sprintf("Line %d: SOQL query detected inside loop - Governor limit violation!", lineNum))
			recommendations = append(recommendations, "Move SOQL queries outside loops and use bulk operations")
		}

		if inLoop {
			for _, dml := range dmlKeywords {
				if strings.Contains(lineLower, dml) {
					issues = append(issues, fmt.Sprintf("Line %d: DML operation in loop - Governor limit violation!", lineNum))
					recommendations = append(recommendations, "Collect records and perform DML operations in bulk outside loops")
					break
				}
			}
		}

		braceDepth += strings.Count(line, "{") - strings.Count(line, "}")
		if loopDepth > 0 && braceDepth <= loopBraceFloor {
			loopDepth = 0
			loopBraceFloor = -1
		}
	}

	if hardcodedIDExact.MatchString(code) {
		issues = append(issues, "Hardcoded IDs detected - Use Custom Settings or Custom Metadata instead")
		recommendations = append(recommendations, "Replace hardcoded IDs with configurable Custom Settings or Custom Metadata")
	}

	if strings.Contains(codeLower, "system.debug") {
		recommendations = append(recommendations, "Remove System.debug statements before deploying to production")
	}

	if strings.Contains(codeLower, "try") && !strings.Contains(codeLower, "catch") {
		issues = append(issues, "Try block without catch - Add proper exception handling")
		recommendations = append(recommendations, "Always include catch blocks with proper exception handling")
	}

	if strings.Contains(codeLower, "trigger") && strings.Contains(codeLower, "trigger.new") {
		if !strings.Contains(codeLower, "list<") && !strings.Contains(codeLower, "set<") && !strings.Contains(codeLower, "map<") {
			recommendations = append(recommendations, "Use collections (List, Set, Map) for bulk processing in triggers")
		}
	}

	var report strings.Builder
	report.WriteString("APEX CODE REVIEW REPORT\n\n")

	if len(issues) > 0 {
		report.WriteString("CRITICAL ISSUES FOUND:\n")
		for _, issue := range issues {
			fmt.Fprintf(&report, "- %s\n", issue)
		}
		report.WriteString("\n")
	} else {
		report.WriteString("NO CRITICAL ISSUES FOUND\n\n")
	}

	if len(recommendations) > 0 {
		report.WriteString("RECOMMENDATIONS:\n")
		for _, rec := range dedupe(recommendations) {
			fmt.Fprintf(&report, "- %s\n", rec)
		}
		report.WriteString("\n")
	}

	report.WriteString("BEST PRACTICES REMINDER:\n")
	report.WriteString("- Always bulkify your code\n")
	report.WriteString("- Avoid SOQL/DML in loops\n")
	report.WriteString("- Use proper exception handling\n")
	report.WriteString("- Test with large data volumes\n")
	report.WriteString("- Follow naming conventions\n")

	return report.String(), nil
}

func dedupe(values []string) []string {
	seen := map[string]bool{}
	out := values[:0]
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
