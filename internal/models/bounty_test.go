package models

import "testing"

func TestIsValidBountyTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		{BountyStatusActive, BountyStatusCompleted, true},
		{BountyStatusCompleted, BountyStatusActive, false},
		{BountyStatusActive, BountyStatusActive, false},
		{"nonexistent", BountyStatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			result := IsValidBountyTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidBountyTransition(%q, %q) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestIsValidParticipationTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		{ParticipationStatusPending, ParticipationStatusApproved, true},
		{ParticipationStatusPending, ParticipationStatusRejected, true},
		{ParticipationStatusApproved, ParticipationStatusRejected, false},
		{ParticipationStatusRejected, ParticipationStatusApproved, false},
		{ParticipationStatusApproved, ParticipationStatusPending, false},
		{ParticipationStatusPending, "paid", false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			result := IsValidParticipationTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidParticipationTransition(%q, %q) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestTerminalStatusesHaveNoTransitions(t *testing.T) {
	for _, status := range []string{BountyStatusCompleted} {
		if len(ValidBountyTransitions[status]) != 0 {
			t.Errorf("terminal bounty status %q should have no transitions", status)
		}
	}
	for _, status := range []string{ParticipationStatusApproved, ParticipationStatusRejected} {
		if len(ValidParticipationTransitions[status]) != 0 {
			t.Errorf("terminal participation status %q should have no transitions", status)
		}
	}
}

func TestNormalizePlatforms(t *testing.T) {
	got := NormalizePlatforms([]string{" Twitter", "tiktok", "", "TWITTER", "discord "})
	want := []string{"twitter", "tiktok", "discord"}

	if len(got) != len(want) {
		t.Fatalf("NormalizePlatforms() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("NormalizePlatforms()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRequiresAny(t *testing.T) {
	b := &Bounty{Platforms: []string{PlatformTwitter, PlatformYouTube}}

	tests := []struct {
		name     string
		claimed  []string
		expected bool
	}{
		{"exact match", []string{"twitter"}, true},
		{"case insensitive", []string{"YouTube"}, true},
		{"partial overlap", []string{"telegram", "youtube"}, true},
		{"disjoint", []string{"telegram"}, false},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.RequiresAny(tt.claimed); got != tt.expected {
				t.Errorf("RequiresAny(%v) = %v, want %v", tt.claimed, got, tt.expected)
			}
		})
	}
}

func TestIsFull(t *testing.T) {
	b := &Bounty{MaxRecipients: 2, CurrentRecipients: 1}
	if b.IsFull() {
		t.Error("bounty with 1/2 recipients should not be full")
	}
	b.CurrentRecipients = 2
	if !b.IsFull() {
		t.Error("bounty with 2/2 recipients should be full")
	}
}
