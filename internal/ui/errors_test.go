package ui

import (
	"strings"
	"testing"
)

func TestErrorMessageFormat(t *testing.T) {
	c := &ColorConfig{Enabled: false, EmojiEnabled: false, Theme: DefaultTheme()}

	e := ErrorMessage{
		Problem: "diagnostic checks failed",
		Causes:  []string{"GitHub API: Cannot reach releases"},
		Actions: []string{"Check internet connectivity"},
		Hints:   []string{"lsp-resolver doctor"},
	}

	out := e.Format(c)
	for _, want := range []string{
		"Problem: diagnostic checks failed",
		"Possible causes",
		"• GitHub API: Cannot reach releases",
		"Try",
		"→ Check internet connectivity",
		"Hints",
		"· lsp-resolver doctor",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("formatted error missing %q:\n%s", want, out)
		}
	}
}

func TestErrorMessageFormatOmitsEmptySections(t *testing.T) {
	c := &ColorConfig{Enabled: false, EmojiEnabled: false, Theme: DefaultTheme()}

	out := ErrorMessage{Problem: "x"}.Format(c)
	for _, absent := range []string{"Possible causes", "Try", "Hints"} {
		if strings.Contains(out, absent) {
			t.Errorf("empty section %q rendered:\n%s", absent, out)
		}
	}
}
