package utils

import (
	"testing"
	"time"
)

func TestLoadTimezone(t *testing.T) {
	loc, err := LoadTimezone("")
	if err != nil || loc != time.Local {
		t.Errorf("Expected local zone for empty name, got %v, %v", loc, err)
	}

	loc, err = LoadTimezone("UTC")
	if err != nil {
		t.Fatalf("Expected UTC to load, got %v", err)
	}
	if loc.String() != "UTC" {
		t.Errorf("Expected UTC, got %s", loc)
	}

	if _, err := LoadTimezone("Mars/Olympus_Mons"); err == nil {
		t.Error("Expected error for unknown zone")
	}
}
