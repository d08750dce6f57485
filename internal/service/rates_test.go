package service

import (
	"errors"
	"testing"

	"lanpulse/internal/models"
)

func testTiers() []models.RateTier {
	return []models.RateTier{
		{ID: "t15", ZoneID: "zone-1", Minutes: 15, Price: 100, IsActive: true},
		{ID: "t30", ZoneID: "zone-1", Minutes: 30, Price: 200, IsActive: true},
		{ID: "t60", ZoneID: "zone-1", Minutes: 60, Price: 350, IsActive: true},
	}
}

func TestResolveTierCeilingMatch(t *testing.T) {
	cases := []struct {
		minutes int
		wantID  string
	}{
		{1, "t15"},
		{15, "t15"},
		{16, "t30"},
		{18, "t30"},
		{30, "t30"},
		{45, "t60"},
		{60, "t60"},
	}
	for _, tc := range cases {
		tier, err := ResolveTier(testTiers(), tc.minutes)
		if err != nil {
			t.Fatalf("ResolveTier(%d): %v", tc.minutes, err)
		}
		if tier.ID != tc.wantID {
			t.Errorf("ResolveTier(%d) = %s, want %s", tc.minutes, tier.ID, tc.wantID)
		}
	}
}

func TestResolveTierBeyondHighest(t *testing.T) {
	tier, err := ResolveTier(testTiers(), 75)
	if err != nil {
		t.Fatalf("ResolveTier: %v", err)
	}
	if tier.ID != "t60" || tier.Price != 350 {
		t.Errorf("got tier %s price %d, want t60 at 350", tier.ID, tier.Price)
	}
}

func TestResolveTierNoTiers(t *testing.T) {
	if _, err := ResolveTier(nil, 10); !errors.Is(err, ErrNoRatesConfigured) {
		t.Errorf("got %v, want ErrNoRatesConfigured", err)
	}
}

func TestCeilMinutes(t *testing.T) {
	cases := []struct {
		seconds int64
		want    int
	}{
		{0, 0},
		{-5, 0},
		{1, 1},
		{60, 1},
		{61, 2},
		{1080, 18},
		{1081, 19},
	}
	for _, tc := range cases {
		if got := ceilMinutes(tc.seconds); got != tc.want {
			t.Errorf("ceilMinutes(%d) = %d, want %d", tc.seconds, got, tc.want)
		}
	}
}
