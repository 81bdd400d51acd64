package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// LimitsCalculator scores declared operation counts against synchronous
// Apex governor limits and flags anything approaching its cap.
type LimitsCalculator struct{}

func NewLimitsCalculator() *LimitsCalculator { return &LimitsCalculator{} }

func (c *LimitsCalculator) Name() string  { return "governor_limits_calculator" }
func (c *LimitsCalculator) Label() string { return "Governor Limits Calculator" }

func (c *LimitsCalculator) Schema() Schema {
	return Schema{Fields: []Field{
		{Name: "operations", Type: FieldString, Required: true, Description: "JSON object or textual description of operation counts"},
	}}
}

// Synchronous transaction limits.
var syncLimits = map[string]float64{
	"soql_queries":      100,
	"dml_statements":    150,
	"dml_records":       10000,
	"heap_size_mb":      6,
	"cpu_time_ms":       10000,
	"callouts":          100,
	"email_invocations": 10,
	"future_calls":      50,
	"queueable_jobs":    50,
}

var (
	soqlCountPattern = regexp.MustCompile(`(\d+)[^0-9]*soql`)
	dmlCountPattern  = regexp.MustCompile(`(\d+)[^0-9]*dml`)
)

func (c *LimitsCalculator) Execute(ctx context.Context, args map[string]any) (string, error) {
	operations := strings.TrimSpace(args["operations"].(string))
	if operations == "" {
		return "Please provide operations data to analyze governor limits.", nil
	}

	usage := parseOperations(operations)
	if len(usage) == 0 {
		return "Please provide operations in JSON format or a clear description.\n" +
			`Example: {"soql_queries": 50, "dml_statements": 75, "heap_size_mb": 3}` + "\n" +
			`Or describe like: "50 SOQL queries and 75 DML statements"`, nil
	}

	var report strings.Builder
	report.WriteString("GOVERNOR LIMITS ANALYSIS\n\n")

	var warnings, critical []string

	names := make([]string, 0, len(usage))
	for name := range usage {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		limit, known := syncLimits[name]
		if !known {
			continue
		}
		used := usage[name]
		percentage := used / limit * 100

		status := "OK"
		switch {
		case percentage > 80:
			status = "CRITICAL"
			critical = append(critical, fmt.Sprintf("%s: %s/%s (%.1f%%)", name, formatCount(used), formatCount(limit), percentage))
		case percentage > 60:
			status = "WARNING"
			warnings = append(warnings, fmt.Sprintf("%s: %s/%s (%.1f%%)", name, formatCount(used), formatCount(limit), percentage))
		}

		fmt.Fprintf(&report, "[%s] %s: %s/%s (%.1f%%)\n", status, displayName(name), formatCount(used), formatCount(limit), percentage)
	}
	report.WriteString("\n")

	if len(critical) > 0 {
		report.WriteString("CRITICAL - NEAR LIMITS:\n")
		for _, item := range critical {
			fmt.Fprintf(&report, "- %s\n", item)
		}
		report.WriteString("\n")
	}
	if len(warnings) > 0 {
		report.WriteString("WARNINGS:\n")
		for _, item := range warnings {
			fmt.Fprintf(&report, "- %s\n", item)
		}
		report.WriteString("\n")
	}

	report.WriteString("RECOMMENDATIONS:\n")
	if usage["soql_queries"] > 50 {
		report.WriteString("- High SOQL usage - Consider query optimization and caching\n")
	}
	if usage["dml_statements"] > 100 {
		report.WriteString("- High DML usage - Implement bulk operations and reduce individual DML calls\n")
	}
	if usage["heap_size_mb"] > 4 {
		report.WriteString("- High heap usage - Optimize data structures and consider processing in batches\n")
	}
	report.WriteString("- Always test with large data volumes\n")
	report.WriteString("- Implement proper error handling for limit exceptions\n")
	report.WriteString("- Consider asynchronous processing for large operations\n")

	report.WriteString("\nGOVERNOR LIMITS REFERENCE:\n")
	report.WriteString("- SOQL Queries: 100 (sync) / 200 (async)\n")
	report.WriteString("- DML Statements: 150 (sync) / 150 (async)\n")
	report.WriteString("- DML Records: 10,000 per transaction\n")
	report.WriteString("- Heap Size: 6 MB (sync) / 12 MB (async)\n")
	report.WriteString("- CPU Time: 10s (sync) / 60s (async)\n")

	return report.String(), nil
}

// parseOperations accepts either a JSON object of counts or free text
// like "50 SOQL queries and 75 DML statements". Malformed JSON falls back
// to textual extraction.
func parseOperations(operations string) map[string]float64 {
	if strings.HasPrefix(operations, "{") {
		var raw map[string]float64
		if err := json.Unmarshal([]byte(operations), &raw); err == nil {
			return raw
		}
	}

	usage := map[string]float64{}
	lower := strings.ToLower(operations)
	if m := soqlCountPattern.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.ParseFloat(m[1], 64); err == nil {
			usage["soql_queries"] = n
		}
	}
	if m := dmlCountPattern.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.ParseFloat(m[1], 64); err == nil {
			usage["dml_statements"] = n
		}
	}
	return usage
}

func displayName(name string) string {
	parts := strings.Split(name, "_")
	for i, part := range parts {
		parts[i] = titleCase(part)
	}
	return strings.Join(parts, " ")
}

func formatCount(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}
