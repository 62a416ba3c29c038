package ui

import "testing"

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0B"},
		{512, "512B"},
		{1024, "1.0KB"},
		{1536, "1.5KB"},
		{1048576, "1.0MB"},
		{5 * 1024 * 1024 * 1024, "5.0GB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.n); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestFormatSpeed(t *testing.T) {
	if got := FormatSpeed(1048576); got != "1.0MB/s" {
		t.Errorf("FormatSpeed(1048576) = %q, want %q", got, "1.0MB/s")
	}
}

func TestApplyDisabled(t *testing.T) {
	c := &ColorConfig{Enabled: false, Theme: DefaultTheme()}
	if got := c.Success("done"); got != "done" {
		t.Errorf("disabled colors must pass text through, got %q", got)
	}
}

func TestStatusIconNoEmoji(t *testing.T) {
	c := &ColorConfig{Enabled: false, EmojiEnabled: false, Theme: DefaultTheme()}
	tests := []struct {
		status string
		want   string
	}{
		{"installed", "[OK]"},
		{"downloading", "[WARN]"},
		{"missing", "[ERR]"},
		{"checking", "[INFO]"},
	}
	for _, tt := range tests {
		if got := c.StatusIcon(tt.status); got != tt.want {
			t.Errorf("StatusIcon(%q) = %q, want %q", tt.status, got, tt.want)
		}
	}
}
