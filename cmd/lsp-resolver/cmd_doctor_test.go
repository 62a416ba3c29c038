package main

import (
	"strings"
	"testing"
)

func TestFailureMessage(t *testing.T) {
	results := []checkResult{
		{Name: "Platform", Status: "pass", Message: "ok"},
		{Name: "Working Directory", Status: "warn", Message: "missing"},
		{
			Name:    "GitHub API",
			Status:  "fail",
			Message: "Cannot reach releases",
			Details: []string{"Check internet connectivity"},
		},
		{
			Name:    "Install Manifest",
			Status:  "fail",
			Message: "Binary digest does not match install manifest",
			Details: []string{"Run 'lsp-resolver clean --all' then 'lsp-resolver resolve'"},
		},
	}

	msg := failureMessage(results)
	if msg.Problem != "diagnostic checks failed" {
		t.Errorf("Problem = %q", msg.Problem)
	}
	if len(msg.Causes) != 2 {
		t.Fatalf("Causes = %v, want the two failed checks only", msg.Causes)
	}
	if !strings.Contains(msg.Causes[0], "GitHub API") {
		t.Errorf("Causes[0] = %q, want the check name", msg.Causes[0])
	}
	if len(msg.Actions) != 2 {
		t.Fatalf("Actions = %v, want the failed checks' details", msg.Actions)
	}
	if msg.Actions[0] != "Check internet connectivity" {
		t.Errorf("Actions[0] = %q", msg.Actions[0])
	}
}
