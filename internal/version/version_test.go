package version

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestResolveBuildTimestamp(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		stamped  string
		vcs      string
		epoch    string
		expected string
	}{
		{
			name:     "stamped value wins",
			stamped:  "2023-01-02 03:04:05 UTC",
			vcs:      "2022-01-01T00:00:00Z",
			epoch:    "0",
			expected: "2023-01-02 03:04:05 UTC",
		},
		{
			name:     "vcs time when unstamped",
			stamped:  "development",
			vcs:      "2022-01-01T10:20:30Z",
			expected: "2022-01-01 10:20:30 UTC",
		},
		{
			name:     "source date epoch",
			stamped:  "development",
			epoch:    "1700000000",
			expected: "2023-11-14 22:13:20 UTC",
		},
		{
			name:     "invalid epoch falls back to now",
			stamped:  "development",
			epoch:    "yesterday",
			expected: "2024-03-01 12:00:00 UTC",
		},
		{
			name:     "nothing available",
			expected: "2024-03-01 12:00:00 UTC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveBuildTimestamp(tt.stamped, tt.vcs, tt.epoch, now)
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestBuildTimestampIsStable(t *testing.T) {
	first := BuildTimestamp()
	if first == "" {
		t.Fatal("Expected a non-empty build timestamp")
	}
	if second := BuildTimestamp(); second != first {
		t.Errorf("Expected stable timestamp, got %q then %q", first, second)
	}
}

func TestSourceDateEpochFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "epoch")
	if err := os.WriteFile(path, []byte("1700000000\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SOURCE_DATE_EPOCH", "")
	t.Setenv("SOURCE_DATE_EPOCH_FILE", path)

	got := resolveBuildTimestamp("development", "", sourceDateEpoch(), time.Now())
	if want := "2023-11-14 22:13:20 UTC"; got != want {
		t.Errorf("resolveBuildTimestamp() = %q, want %q", got, want)
	}

	t.Setenv("SOURCE_DATE_EPOCH", "86400")
	if got := sourceDateEpoch(); got != "86400" {
		t.Errorf("sourceDateEpoch() = %q, want the variable to win over the file", got)
	}
}
