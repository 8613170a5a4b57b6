package core

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestCompareVersions(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.2.0", "1.10.0", -1},
		{"2.0", "1.9.9", 1},
		{"1.0", "1.0.0", 0},
		{"1.0.1", "1.0", 1},
		{"", "1.0.0", -1},
		{"garbage", "1.0.0", -1},
	}
	for _, tc := range cases {
		if got := CompareVersions(tc.a, tc.b); got != tc.want {
			t.Errorf("CompareVersions(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestVersionAllowed(t *testing.T) {
	repo := newFakeSettingsRepo()
	repo.settings.MinAppVersion = "2.1.0"
	svc := NewSettingsService(repo, nil, zap.NewNop())
	ctx := context.Background()

	cases := []struct {
		version string
		want    bool
	}{
		{"2.1.0", true},
		{"2.2.0", true},
		{"3.0", true},
		{"2.0.9", false},
		{"1.9", false},
	}
	for _, tc := range cases {
		allowed, min, err := svc.VersionAllowed(ctx, tc.version)
		if err != nil {
			t.Fatalf("VersionAllowed(%q): %v", tc.version, err)
		}
		if allowed != tc.want {
			t.Errorf("VersionAllowed(%q) = %v, want %v", tc.version, allowed, tc.want)
		}
		if min != "2.1.0" {
			t.Errorf("min = %q", min)
		}
	}
}

func TestSettingsGetAppliesDefaults(t *testing.T) {
	repo := newFakeSettingsRepo()
	svc := NewSettingsService(repo, nil, zap.NewNop())

	settings, err := svc.Get(context.Background())
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if settings.DailyCoffeeLimit <= 0 || settings.SubscriptionPrices.Monthly <= 0 {
		t.Errorf("defaults missing: %+v", settings)
	}
}
