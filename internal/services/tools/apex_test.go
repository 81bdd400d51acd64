package tools

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reviewApex(t *testing.T, code string) string {
	t.Helper()
	reviewer := NewApexReviewer()
	report, err := reviewer.Execute(context.Background(), map[string]any{"code": code})
	require.NoError(t, err)
	return report
}

func TestApexReviewerSOQLInLoop(t *testing.T) {
	code := `public class AccountHandler {
    public void process(List<Account> accounts) {
        for (Account acc : accounts) {
            List<Contact> contacts = [SELECT Id FROM Contact WHERE AccountId = :acc.Id];
        }
    }
}`
	report := reviewApex(t, code)
	assert.Contains(t, report, "CRITICAL ISSUES FOUND")
	assert.Contains(t, report, "Line 4: SOQL query detected inside loop")
	assert.Contains(t, report, "Move SOQL queries outside loops")
}

func TestApexReviewerSOQLOutsideLoopNotFlagged(t *testing.T) {
	code := `public class AccountHandler {
    public void process(Set<Id> ids) {
        List<Contact> contacts = [SELECT Id FROM Contact WHERE AccountId IN :ids];
        for (Contact c : contacts) {
            c.Description = 'seen';
        }
    }
}`
	report := reviewApex(t, code)
	assert.NotContains(t, report, "SOQL query detected inside loop")
}

func TestApexReviewerDMLInLoop(t *testing.T) {
	code := `public class Updater {
    public void run(List<Account> accounts) {
        for (Account acc : accounts) {
            acc.Active__c = true;
            update acc;
        }
        insert newRecords;
    }
}`
	report := reviewApex(t, code)
	assert.Contains(t, report, "Line 5: DML operation in loop")
	// the insert after the loop closes must not be flagged
	assert.NotContains(t, report, "Line 7: DML operation in loop")
}

func TestApexReviewerHardcodedID(t *testing.T) {
	report := reviewApex(t, "Id accountId = '001000000000001AAA';")
	assert.Contains(t, report, "Hardcoded IDs detected")
}

func TestApexReviewerTryWithoutCatch(t *testing.T) {
	report := reviewApex(t, "try { doWork(); } finally { cleanup(); }")
	assert.Contains(t, report, "Try block without catch")
}

func TestApexReviewerCleanCode(t *testing.T) {
	code := `public class Greeter {
    public String greet(String name) {
        return 'Hello, ' + name;
    }
}`
	report := reviewApex(t, code)
	assert.Contains(t, report, "NO CRITICAL ISSUES FOUND")
	assert.Contains(t, report, "BEST PRACTICES REMINDER")
}

func TestApexReviewerDeduplicatesRecommendations(t *testing.T) {
	code := `for (Account a : accounts) {
    update a;
    update b;
}`
	report := reviewApex(t, code)
	assert.Equal(t, 1, strings.Count(report, "Collect records and perform DML operations in bulk outside loops"))
}
