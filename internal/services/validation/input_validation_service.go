// -----------------------------------------------------------------------
// Package validation screens user input before it reaches retrieval or
// the LLM providers
// -----------------------------------------------------------------------

package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/consilio/internal/common"
)

// InputValidationService validates free-text questions. It is a gate
// only: accepted text is never rewritten, so code snippets and query
// fragments reach tool detection and the providers verbatim.
type InputValidationService struct {
	maxQuestionChars int
	logger           arbor.ILogger
}

// ValidationResult contains the outcome of input validation.
type ValidationResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// NewInputValidationService creates an input validation service.
func NewInputValidationService(cfg common.InputConfig, logger arbor.ILogger) *InputValidationService {
	return &InputValidationService{
		maxQuestionChars: cfg.MaxQuestionChars,
		logger:           logger,
	}
}

var sqlInjectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bUNION\b.*\bSELECT\b`),
	regexp.MustCompile(`(?i)\bDROP\b.*\bTABLE\b`),
	regexp.MustCompile(`(?i)\bINSERT\b.*\bINTO\b`),
	regexp.MustCompile(`(?i)\bUPDATE\b.*\bSET\b`),
	regexp.MustCompile(`(?i)\bDELETE\b.*\bFROM\b`),
	regexp.MustCompile(`;\s*--`),
	regexp.MustCompile(`(?i)\bEXEC\b`),
	regexp.MustCompile(`(?i)\bXP_\w+`),
}

var scriptPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<script\b.*?</script>`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)vbscript:`),
	regexp.MustCompile(`(?i)onload\s*=`),
	regexp.MustCompile(`(?i)onerror\s*=`),
	regexp.MustCompile(`(?i)onclick\s*=`),
}

var inappropriateKeywords = []string{
	"hack", "exploit", "bypass", "unauthorized", "steal", "crack",
}

var salesforceKeywords = []string{
	"salesforce", "apex", "soql", "sosl", "trigger", "workflow",
	"lightning", "visualforce", "governor", "limit", "crm",
	"account", "contact", "opportunity", "lead", "case",
	"platform", "force.com", "trailhead", "metadata",
}

// ValidateQuestion checks a question for emptiness, length, injection
// patterns, and inappropriate content. Off-topic questions are logged
// but not rejected.
func (s *InputValidationService) ValidateQuestion(question string) ValidationResult {
	trimmed := strings.TrimSpace(question)
	if trimmed == "" {
		return ValidationResult{Message: "Question cannot be empty"}
	}

	if len([]rune(trimmed)) > s.maxQuestionChars {
		return ValidationResult{
			Message: fmt.Sprintf("Question too long (max %d characters)", s.maxQuestionChars),
		}
	}

	if reason, ok := s.checkSecurityPatterns(trimmed); !ok {
		s.logger.Warn().
			Str("reason", reason).
			Msg("Question rejected by security screening")
		return ValidationResult{Message: reason}
	}

	if containsKeyword(trimmed, inappropriateKeywords) {
		s.logger.Warn().Msg("Question rejected by content screening")
		return ValidationResult{Message: "Question contains inappropriate content"}
	}

	if !containsKeyword(trimmed, salesforceKeywords) {
		s.logger.Debug().Msg("Question does not mention any Salesforce topic")
	}

	return ValidationResult{Valid: true, Message: "Valid"}
}

func (s *InputValidationService) checkSecurityPatterns(text string) (string, bool) {
	for _, pattern := range sqlInjectionPatterns {
		if pattern.MatchString(text) {
			return "Potentially malicious SQL pattern detected", false
		}
	}
	for _, pattern := range scriptPatterns {
		if pattern.MatchString(text) {
			return "Potentially malicious script pattern detected", false
		}
	}
	return "", true
}

func containsKeyword(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, keyword := range keywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
