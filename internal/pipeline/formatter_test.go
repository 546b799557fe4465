package pipeline

import (
	"testing"
	"time"
)

func TestFormatClock(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{1500 * time.Millisecond, "00:00:01"},
		{61*time.Second + 500*time.Millisecond, "00:01:01"},
		{3661 * time.Second, "01:01:01"},
		{4 * time.Hour, "04:00:00"},
	}

	for _, tt := range tests {
		got := formatClock(tt.d)
		if got != tt.want {
			t.Errorf("formatClock(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestPlaceholderText(t *testing.T) {
	got := placeholderText(5*time.Minute, 5*time.Minute+2*time.Second)
	if want := "[unrecoverable segment 00:05:00-00:05:02]"; got != want {
		t.Errorf("placeholderText = %q, want %q", got, want)
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in     string
		bangla bool
		want   string
	}{
		{"  hello   world  ", false, "hello world"},
		{"hello , world", false, "hello, world"},
		{"wait!what", false, "wait! what"},
		{"pi is 3.14", false, "pi is 3.14"},
		{"done .", false, "done."},
		{"e.g. this", false, "e.g. this"},
		{"", false, ""},
		{"আমরা পড়ি. তোমরা খেলো|", true, "আমরা পড়ি। তোমরা খেলো।"},
		{"আমরা পড়ি।তোমরা খেলো।", true, "আমরা পড়ি। তোমরা খেলো।"},
		{"version 2. next", true, "version 2. next"},
	}

	for _, tt := range tests {
		got := normalizeText(tt.in, tt.bangla)
		if got != tt.want {
			t.Errorf("normalizeText(%q, %v) = %q, want %q", tt.in, tt.bangla, got, tt.want)
		}
	}
}
