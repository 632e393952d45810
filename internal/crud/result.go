package crud

import (
	"strings"

	"github.com/IntelliTect/Coalesce-sub010/internal/model"
)

type ValidationIssue struct {
	Property string `json:"property"`
	Issue    string `json:"issue"`
}

// ItemResult is the outcome of a single-item operation and the response body
// of item endpoints.
type ItemResult struct {
	WasSuccessful    bool              `json:"wasSuccessful"`
	Message          string            `json:"message,omitempty"`
	Object           model.Record      `json:"object,omitempty"`
	RefMap           map[int]any       `json:"refMap,omitempty"`
	ValidationIssues []ValidationIssue `json:"validationIssues,omitempty"`
}

func Success(obj model.Record) ItemResult {
	return ItemResult{WasSuccessful: true, Object: obj}
}

func Failure(message string) ItemResult {
	return ItemResult{WasSuccessful: false, Message: message}
}

// FromIssues builds a failed result whose message joins the issues.
func FromIssues(issues []ValidationIssue) ItemResult {
	msgs := make([]string, len(issues))
	for i, is := range issues {
		msgs[i] = is.Issue
	}
	return ItemResult{
		WasSuccessful:    false,
		Message:          strings.Join(msgs, "\n"),
		ValidationIssues: issues,
	}
}
