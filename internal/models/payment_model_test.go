package models

import "testing"

func TestChargeAmount(t *testing.T) {
	cases := []struct {
		base   float64
		method string
		want   float64
	}{
		{30, MethodPix, 30},
		{30, MethodCredit, 33},
		{29.90, MethodPix, 29.90},
		{100, MethodCredit, 110},
	}
	for _, tc := range cases {
		if got := ChargeAmount(tc.base, tc.method); got != tc.want {
			t.Errorf("ChargeAmount(%v, %q) = %v, want %v", tc.base, tc.method, got, tc.want)
		}
	}
}

func TestTerminalPaymentStatus(t *testing.T) {
	terminal := []string{PaymentApproved, PaymentExpired, PaymentCancelled, PaymentRejected}
	for _, s := range terminal {
		if !TerminalPaymentStatus(s) {
			t.Errorf("TerminalPaymentStatus(%q) = false", s)
		}
	}
	if TerminalPaymentStatus(PaymentPending) {
		t.Error("pending must not be terminal")
	}
	if TerminalPaymentStatus("bogus") {
		t.Error("unknown status must not be terminal")
	}
}

func TestPaymentValidate(t *testing.T) {
	p := &Payment{UserID: "u1", Amount: 10}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if p.Status != PaymentPending {
		t.Errorf("empty status defaulted to %q, want pending", p.Status)
	}

	bad := &Payment{UserID: "u1", Amount: 10, Status: "weird"}
	if err := bad.Validate(); err == nil {
		t.Error("expected unknown status to be rejected")
	}
	noOwner := &Payment{Amount: 10}
	if err := noOwner.Validate(); err == nil {
		t.Error("expected missing userId to be rejected")
	}
}

func TestUserValidate(t *testing.T) {
	u := &User{Email: "dev@example.test"}
	if err := u.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if u.SubscriptionStatus != SubscriptionInactive {
		t.Errorf("empty status defaulted to %q", u.SubscriptionStatus)
	}

	if err := (&User{}).Validate(); err == nil {
		t.Error("expected missing email to be rejected")
	}
	if err := (&User{Email: "a@b.c", SubscriptionStatus: "weird"}).Validate(); err == nil {
		t.Error("expected unknown status to be rejected")
	}
}

func TestDisplayName(t *testing.T) {
	if got := (&User{UserName: "Dev"}).DisplayName(); got != "Dev" {
		t.Errorf("DisplayName = %q", got)
	}
	if got := (&User{}).DisplayName(); got != "Usuário Desconhecido" {
		t.Errorf("fallback DisplayName = %q", got)
	}
}

func TestSettingsHelpers(t *testing.T) {
	s := &SystemSettings{}
	s.ApplyDefaults()
	if s.DailyCoffeeLimit != DefaultDailyCoffeeLimit ||
		s.MinTimeBetweenCoffees != DefaultMinTimeBetweenCoffees ||
		s.SubscriptionPrices.Monthly != DefaultMonthlyPrice ||
		s.MinAppVersion != "1.0.0" {
		t.Errorf("defaults = %+v", s)
	}

	s.SuperAdmins = []string{"a", "b"}
	if !s.IsSuperAdmin("a") || s.IsSuperAdmin("c") {
		t.Error("IsSuperAdmin allowlist check failed")
	}
}
