package ui

import (
	"strings"
	"testing"
)

func TestTable(t *testing.T) {
	c := &ColorConfig{Enabled: false, EmojiEnabled: false, Theme: DefaultTheme()}

	out := Table(c,
		[]string{"Version", "State"},
		[][]string{
			{"2.0.0", "current"},
			{"1.0.0", "stale"},
		},
		nil)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %d, want header + separator + 2 rows:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "Version ") || !strings.Contains(lines[0], "State") {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != strings.Repeat("-", 15) {
		t.Errorf("separator = %q", lines[1])
	}
	// Columns align: "Version" is 7 wide, so the value pads to it.
	if !strings.Contains(lines[2], "2.0.0   current") {
		t.Errorf("row = %q, want padded columns", lines[2])
	}
}

func TestTablePadsColoredCells(t *testing.T) {
	c := &ColorConfig{Enabled: true, EmojiEnabled: true, Theme: DefaultTheme()}

	out := Table(c, []string{"Name"}, [][]string{{"x"}}, nil)

	// Padding must measure visible width, not byte length of ANSI codes.
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if visibleLen(line) > len("Name") {
			t.Errorf("line wider than column: %q (visible %d)", line, visibleLen(line))
		}
	}
}
