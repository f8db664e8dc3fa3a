package session

import (
	"testing"
	"time"
)

// Times below use a holiday-free NSE week (Mon 2024-07-08 .. Fri 2024-07-12).
func ist(t *testing.T, value string) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		loc = time.FixedZone("IST", 5*3600+1800)
	}
	ts, err := time.ParseInLocation("2006-01-02 15:04:05", value, loc)
	if err != nil {
		t.Fatalf("Failed to parse time: %v", err)
	}
	return ts
}

func TestSessionOf(t *testing.T) {
	clock := NewClock()

	tests := []struct {
		name     string
		timeStr  string
		expected ID
	}{
		{"Mid-session", "2024-07-09 11:00:00", "2024-07-09"},
		{"Just before close", "2024-07-09 15:29:59", "2024-07-09"},
		{"At the close", "2024-07-09 15:30:00", "2024-07-10"},
		{"Evening", "2024-07-09 20:00:00", "2024-07-10"},
		{"Friday evening rolls to Monday", "2024-07-12 18:00:00", "2024-07-15"},
		{"Saturday", "2024-07-13 11:00:00", "2024-07-15"},
		{"Sunday", "2024-07-14 11:00:00", "2024-07-15"},
		{"Early morning", "2024-07-10 06:00:00", "2024-07-10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := clock.SessionOf(ist(t, tt.timeStr))
			if result != tt.expected {
				t.Errorf("SessionOf(%s) = %s, want %s", tt.timeStr, result, tt.expected)
			}
		})
	}
}

func TestSessionOfNormalizesZone(t *testing.T) {
	clock := NewClock()

	// 2024-07-09 20:00 UTC is 2024-07-10 01:30 IST.
	utc := time.Date(2024, 7, 9, 20, 0, 0, 0, time.UTC)
	if got := clock.SessionOf(utc); got != "2024-07-10" {
		t.Errorf("SessionOf(20:00 UTC) = %s, want 2024-07-10", got)
	}
}

func TestIsNewSession(t *testing.T) {
	clock := NewClock()

	tests := []struct {
		name     string
		prev     ID
		timeStr  string
		expected bool
	}{
		{"Same session", "2024-07-09", "2024-07-09 14:00:00", false},
		{"Next day", "2024-07-09", "2024-07-10 10:00:00", true},
		{"Across weekend", "2024-07-12", "2024-07-15 10:00:00", true},
		{"Evening of same date is next session", "2024-07-09", "2024-07-09 17:00:00", true},
		{"Empty prev", "", "2024-07-09 10:00:00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := clock.IsNewSession(tt.prev, ist(t, tt.timeStr))
			if result != tt.expected {
				t.Errorf("IsNewSession(%s, %s) = %v, want %v", tt.prev, tt.timeStr, result, tt.expected)
			}
		})
	}
}

func TestSessionsSince(t *testing.T) {
	clock := NewClock()

	tests := []struct {
		name     string
		from     ID
		timeStr  string
		expected int
	}{
		{"Same session", "2024-07-09", "2024-07-09 11:00:00", 0},
		{"Next session", "2024-07-09", "2024-07-10 11:00:00", 1},
		{"Three sessions on", "2024-07-08", "2024-07-11 11:00:00", 3},
		{"Weekend does not count", "2024-07-11", "2024-07-15 11:00:00", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := clock.SessionsSince(tt.from, ist(t, tt.timeStr))
			if result != tt.expected {
				t.Errorf("SessionsSince(%s, %s) = %d, want %d", tt.from, tt.timeStr, result, tt.expected)
			}
		})
	}
}
