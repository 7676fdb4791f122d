package idgen

import (
	"testing"
	"time"
)

func TestGenerateHashID_KnownVector(t *testing.T) {
	timestamp := time.Date(2024, 1, 2, 3, 4, 5, 6*1_000_000, time.UTC)
	prefix := "load"
	key := "evt-spec-launch"

	tests := map[int]string{
		3: "load-ezw",
		4: "load-yn7t",
		5: "load-2d3k7",
		6: "load-l2d3k7",
		7: "load-5st5bnb",
		8: "load-45st5bnb",
	}

	for length, expected := range tests {
		got := GenerateHashID(prefix, key, timestamp, length, 0)
		if got != expected {
			t.Fatalf("length %d: got %s, want %s", length, got, expected)
		}
	}
}
