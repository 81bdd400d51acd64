package tools

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// SOQLOptimizer analyzes SOQL queries for patterns that hurt selectivity
// or risk governor limits, and suggests rewrites.
type SOQLOptimizer struct{}

func NewSOQLOptimizer() *SOQLOptimizer { return &SOQLOptimizer{} }

func (o *SOQLOptimizer) Name() string  { return "soql_query_optimizer" }
func (o *SOQLOptimizer) Label() string { return "SOQL Query Optimizer" }

func (o *SOQLOptimizer) Schema() Schema {
	return Schema{Fields: []Field{
		{Name: "query", Type: FieldString, Required: true, Description: "The SOQL query to analyze"},
	}}
}

var (
	largeObjects    = []string{"account", "contact", "opportunity", "lead", "case"}
	indexedFields   = []string{"id", "name", "email", "createddate", "lastmodifieddate"}
	leadingWildcard = regexp.MustCompile(`like\s+['"]%`)
	dateFunctions   = []string{"day(", "month(", "year(", "hour("}
)

func (o *SOQLOptimizer) Execute(ctx context.Context, args map[string]any) (string, error) {
	query := strings.TrimSpace(args["query"].(string))
	if query == "" {
		return "Please provide a SOQL query to analyze.", nil
	}

	queryLower := strings.ToLower(query)
	var issues, optimizations []string

	if strings.Contains(queryLower, "select *") {
		issues = append(issues, "Using SELECT * - This is not supported in SOQL")
		optimizations = append(optimizations, "Specify exact fields needed: SELECT Id, Name, Email FROM Account")
	}

	for _, obj := range largeObjects {
		if strings.Contains(queryLower, "from "+obj) && !strings.Contains(queryLower, "where") && !strings.Contains(queryLower, "limit") {
			issues = append(issues, fmt.Sprintf("Query on %s without WHERE clause or LIMIT - May hit governor limits", titleCase(obj)))
			optimizations = append(optimizations, fmt.Sprintf("Add WHERE clause or LIMIT to queries on %s", titleCase(obj)))
		}
	}

	whereClause := ""
	if idx := strings.Index(queryLower, "where"); idx >= 0 {
		whereClause = queryLower[idx+len("where"):]
		if orderIdx := strings.Index(whereClause, "order by"); orderIdx >= 0 {
			whereClause = whereClause[:orderIdx]
		}

		for _, fn := range dateFunctions {
			if strings.Contains(whereClause, fn) {
				issues = append(issues, "Date functions in WHERE clause can prevent index usage")
				optimizations = append(optimizations, "Use date literals instead of date functions when possible")
				break
			}
		}

		if leadingWildcard.MatchString(whereClause) {
			issues = append(issues, "LIKE with leading wildcard (%) prevents index usage")
			optimizations = append(optimizations,
				"Avoid leading wildcards in LIKE clauses. Consider:",
				"  - Use SOSL with FIND for full-text search across multiple fields",
				"  - Use exact match or trailing wildcards: Name LIKE 'test%'",
				"  - Create custom indexed fields for common search patterns")
		}
	}

	if !strings.Contains(queryLower, "limit") && !strings.Contains(queryLower, "count()") {
		optimizations = append(optimizations, "Consider adding LIMIT clause to prevent large result sets")
	}

	if strings.Count(query, ".") > 5 {
		issues = append(issues, "Deep relationship queries detected - May impact performance")
		optimizations = append(optimizations, "Consider separate queries or reducing relationship depth")
	}

	if strings.Count(queryLower, "select") > 1 {
		optimizations = append(optimizations, "Subqueries detected - Ensure they're necessary and optimized")
	}

	if whereClause != "" && containsAny(queryLower, largeObjects) && !containsAny(whereClause, indexedFields) {
		optimizations = append(optimizations, "Consider using indexed fields in WHERE clause (Id, Name, Email, CreatedDate, LastModifiedDate)")
	}

	var report strings.Builder
	report.WriteString("SOQL QUERY ANALYSIS REPORT\n\n")
	fmt.Fprintf(&report, "Query: %s\n\n", query)

	if len(issues) > 0 {
		report.WriteString("PERFORMANCE ISSUES:\n")
		for _, issue := range issues {
			fmt.Fprintf(&report, "- %s\n", issue)
		}
		report.WriteString("\n")
	} else {
		report.WriteString("NO MAJOR ISSUES DETECTED\n\n")
	}

	if len(optimizations) > 0 {
		report.WriteString("OPTIMIZATION SUGGESTIONS:\n")
		for _, opt := range optimizations {
			fmt.Fprintf(&report, "- %s\n", opt)
		}
		report.WriteString("\n")
	}

	report.WriteString("SOQL BEST PRACTICES:\n")
	report.WriteString("- Use selective WHERE clauses with indexed fields\n")
	report.WriteString("- Avoid leading wildcards in LIKE (use trailing: 'test%')\n")
	report.WriteString("- For full-text search, use SOSL instead of SOQL\n")
	report.WriteString("- Use LIMIT to control result set size\n")
	report.WriteString("- Avoid functions in WHERE clauses when possible\n")
	report.WriteString("- Query only the fields you need\n")
	report.WriteString("- Use relationship queries efficiently (limit depth)\n")
	report.WriteString("- Consider using WITH SECURITY_ENFORCED for user context\n")

	if strings.Contains(queryLower, "like") && strings.Contains(queryLower, "%") {
		report.WriteString("\nALTERNATIVE APPROACH:\n")
		report.WriteString("For text searching, consider using SOSL instead:\n")
		report.WriteString("FIND {search term} IN ALL FIELDS\n")
		report.WriteString("RETURNING Account(Id, Name), Contact(Id, Name)\n")
	}

	return report.String(), nil
}

func containsAny(s string, substrings []string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
