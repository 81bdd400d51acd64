package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyzeSOQL(t *testing.T, query string) string {
	t.Helper()
	optimizer := NewSOQLOptimizer()
	report, err := optimizer.Execute(context.Background(), map[string]any{"query": query})
	require.NoError(t, err)
	return report
}

func TestSOQLOptimizerUnboundedLargeObject(t *testing.T) {
	report := analyzeSOQL(t, "SELECT Id, Name FROM Account")
	assert.Contains(t, report, "Query on Account without WHERE clause or LIMIT")
	assert.Contains(t, report, "Consider adding LIMIT clause")
}

func TestSOQLOptimizerSelectStar(t *testing.T) {
	report := analyzeSOQL(t, "SELECT * FROM Contact WHERE Email != null LIMIT 10")
	assert.Contains(t, report, "Using SELECT * - This is not supported in SOQL")
}

func TestSOQLOptimizerLeadingWildcard(t *testing.T) {
	report := analyzeSOQL(t, "SELECT Id FROM Account WHERE Name LIKE '%corp' LIMIT 50")
	assert.Contains(t, report, "LIKE with leading wildcard (%) prevents index usage")
	assert.Contains(t, report, "ALTERNATIVE APPROACH")
	assert.Contains(t, report, "FIND {search term} IN ALL FIELDS")
}

func TestSOQLOptimizerDateFunctionInWhere(t *testing.T) {
	report := analyzeSOQL(t, "SELECT Id FROM Case WHERE DAY(CreatedDate) = 1 LIMIT 5")
	assert.Contains(t, report, "Date functions in WHERE clause can prevent index usage")
}

func TestSOQLOptimizerDeepRelationships(t *testing.T) {
	report := analyzeSOQL(t, "SELECT Account.Owner.Manager.Profile.Name, Contact.Account.Name FROM Opportunity WHERE Id = 'x' LIMIT 1")
	assert.Contains(t, report, "Deep relationship queries detected")
}

func TestSOQLOptimizerSubquery(t *testing.T) {
	report := analyzeSOQL(t, "SELECT Id, (SELECT Id FROM Contacts) FROM Account WHERE Id = 'x' LIMIT 1")
	assert.Contains(t, report, "Subqueries detected")
}

func TestSOQLOptimizerNonIndexedFilter(t *testing.T) {
	report := analyzeSOQL(t, "SELECT Id FROM Account WHERE Industry = 'Tech' LIMIT 10")
	assert.Contains(t, report, "Consider using indexed fields in WHERE clause")
}

func TestSOQLOptimizerCleanQuery(t *testing.T) {
	report := analyzeSOQL(t, "SELECT Id FROM Account WHERE Name = 'Acme' LIMIT 10")
	assert.Contains(t, report, "NO MAJOR ISSUES DETECTED")
	assert.Contains(t, report, "SOQL BEST PRACTICES")
}
