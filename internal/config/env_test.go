package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetFileIndirection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret")
	if err := os.WriteFile(path, []byte("  s3cret\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("MARQUEE_TEST_SECRET_FILE", path)
	if got := Get("MARQUEE_TEST_SECRET", "def"); got != "s3cret" {
		t.Errorf("Get with _FILE = %q, want %q", got, "s3cret")
	}

	// Direct value wins over the file.
	t.Setenv("MARQUEE_TEST_SECRET", "direct")
	if got := Get("MARQUEE_TEST_SECRET", "def"); got != "direct" {
		t.Errorf("Get with direct value = %q, want %q", got, "direct")
	}
}

func TestGetDuration(t *testing.T) {
	tests := []struct {
		value string
		def   time.Duration
		want  time.Duration
	}{
		{"30s", time.Minute, 30 * time.Second},
		{"2d", time.Minute, 48 * time.Hour},
		{"", time.Minute, time.Minute},
		{"garbage", time.Minute, time.Minute},
	}
	for _, tt := range tests {
		t.Setenv("MARQUEE_TEST_DURATION", tt.value)
		if got := GetDuration("MARQUEE_TEST_DURATION", tt.def); got != tt.want {
			t.Errorf("GetDuration(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestGetBool(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"yes", false, true},
		{"0", true, false},
		{"maybe", true, true},
		{"", false, false},
	}
	for _, tt := range tests {
		t.Setenv("MARQUEE_TEST_BOOL", tt.value)
		if got := GetBool("MARQUEE_TEST_BOOL", tt.def); got != tt.want {
			t.Errorf("GetBool(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
		}
	}
}
