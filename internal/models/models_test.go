package models

import (
	"testing"
	"time"
)

func TestUrgencyTotalOrder(t *testing.T) {
	ordered := []Urgency{UrgencyLow, UrgencyNormal, UrgencyHigh, UrgencyUrgent, UrgencyCritical, UrgencyEmergency}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1] >= ordered[i] {
			t.Fatalf("%s should rank below %s", ordered[i-1], ordered[i])
		}
	}
}

func TestParseUrgencyRoundTrip(t *testing.T) {
	for _, u := range []Urgency{UrgencyLow, UrgencyNormal, UrgencyHigh, UrgencyUrgent, UrgencyCritical, UrgencyEmergency} {
		if got := ParseUrgency(u.String()); got != u {
			t.Errorf("round trip %s: got %s", u, got)
		}
	}
	if got := ParseUrgency("banana"); got != UrgencyNormal {
		t.Errorf("expected unknown urgency to default to normal, got %s", got)
	}
}

func TestTimeOfDayOn(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata unavailable")
	}
	date := time.Date(2026, 3, 10, 15, 42, 7, 0, loc)
	got := TimeOfDay{Hour: 9, Minute: 30}.On(date)
	if got.Hour() != 9 || got.Minute() != 30 || got.Location() != loc {
		t.Errorf("unexpected anchored time %s", got)
	}
	if got.Day() != 10 {
		t.Errorf("expected same calendar day, got %d", got.Day())
	}
}

func TestCheckInExpired(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ci := CheckIn{ExpiresAt: now.Add(time.Minute)}
	if ci.Expired(now) {
		t.Error("check-in should still be valid")
	}
	if !ci.Expired(now.Add(time.Minute)) {
		t.Error("check-in should expire at its deadline")
	}
}

func TestScheduleEntryDuration(t *testing.T) {
	e := ScheduleEntry{
		StartTime: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 3, 10, 10, 30, 0, 0, time.UTC),
	}
	if e.Duration() != 90*time.Minute {
		t.Errorf("expected 90m, got %s", e.Duration())
	}
}
