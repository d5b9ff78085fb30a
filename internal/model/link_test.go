package model

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestTrackingLink_ToCached(t *testing.T) {
	t.Parallel()

	link := &TrackingLink{
		ID:            "tl-123",
		CampaignID:    "camp-1",
		CreatorUserID: "creator-1",
		TrackingCode:  "aB3dE5fG",
		OriginalURL:   "https://brand.example.com/shop",
		ClickCount:    42,
		CreatedAt:     time.Unix(1700000000, 0),
	}

	cached := link.ToCached()

	if cached.OriginalURL != "https://brand.example.com/shop" {
		t.Errorf("OriginalURL = %s, want https://brand.example.com/shop", cached.OriginalURL)
	}
	if cached.CreatedAt != "1700000000" {
		t.Errorf("CreatedAt = %s, want 1700000000", cached.CreatedAt)
	}
	if !cached.IsComplete() {
		t.Error("expected cached link to be complete")
	}
}

func TestCachedTrackingLink_ToTrackingLink(t *testing.T) {
	t.Parallel()

	cached := &CachedTrackingLink{
		ID:            "tl-123",
		CampaignID:    "camp-1",
		CreatorUserID: "creator-1",
		OriginalURL:   "https://brand.example.com",
		CreatedAt:     "1700000000",
	}

	link := cached.ToTrackingLink("aB3dE5fG")

	if link.TrackingCode != "aB3dE5fG" {
		t.Errorf("TrackingCode = %s, want aB3dE5fG", link.TrackingCode)
	}
	if link.CreatedAt.Unix() != 1700000000 {
		t.Errorf("CreatedAt = %d, want 1700000000", link.CreatedAt.Unix())
	}
	if link.ClickCount != 0 {
		t.Errorf("ClickCount = %d, want 0", link.ClickCount)
	}
}

func TestCachedTrackingLink_ToTrackingLink_BadTimestamp(t *testing.T) {
	t.Parallel()

	cached := &CachedTrackingLink{ID: "tl-1", CreatedAt: "not-a-number"}
	link := cached.ToTrackingLink("code")

	if !link.CreatedAt.IsZero() {
		t.Errorf("expected zero CreatedAt, got %v", link.CreatedAt)
	}
}

func TestCachedTrackingLink_IsComplete(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		cached CachedTrackingLink
		want   bool
	}{
		{"complete", CachedTrackingLink{ID: "a", CampaignID: "b", CreatorUserID: "c", OriginalURL: "d"}, true},
		{"missing url", CachedTrackingLink{ID: "a", CampaignID: "b", CreatorUserID: "c"}, false},
		{"missing creator", CachedTrackingLink{ID: "a", CampaignID: "b", OriginalURL: "d"}, false},
		{"empty", CachedTrackingLink{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cached.IsComplete(); got != tt.want {
				t.Errorf("IsComplete() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTruncateMeta(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 600)
	if got := TruncateMeta(long); len(got) != MaxTrackingMetaLength {
		t.Errorf("len = %d, want %d", len(got), MaxTrackingMetaLength)
	}
	if got := TruncateMeta("Mozilla/5.0"); got != "Mozilla/5.0" {
		t.Errorf("short value changed: %s", got)
	}
}

func TestTruncateMeta_MultiByte(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		in        string
		wantRunes int
		wantSame  bool
	}{
		{"rune at byte boundary kept whole", strings.Repeat("a", 499) + "é", 500, true},
		{"long non-ascii cut by characters", strings.Repeat("日", 600), 500, false},
		{"invalid bytes replaced", "ok\xff\xfe", 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateMeta(tt.in)
			if !utf8.ValidString(got) {
				t.Fatalf("result is not valid UTF-8: %q", got)
			}
			if n := utf8.RuneCountInString(got); n != tt.wantRunes {
				t.Errorf("runes = %d, want %d", n, tt.wantRunes)
			}
			if tt.wantSame && got != tt.in {
				t.Error("valid input within the limit was changed")
			}
		})
	}
}

func TestInvitation_AgreedPayout(t *testing.T) {
	t.Parallel()

	inv := &Invitation{OfferedPayout: 500, NegotiatedPayoutDelta: 150}
	if got := inv.AgreedPayout(); got != 650 {
		t.Errorf("AgreedPayout() = %v, want 650", got)
	}

	inv.NegotiatedPayoutDelta = -100
	if got := inv.AgreedPayout(); got != 400 {
		t.Errorf("AgreedPayout() = %v, want 400", got)
	}
}

func TestInvitationStatus_IsTerminal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status InvitationStatus
		want   bool
	}{
		{InvitationPending, false},
		{InvitationNegotiating, false},
		{InvitationAccepted, true},
		{InvitationDeclined, true},
	}

	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.want {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestNegotiationResponse_IsValid(t *testing.T) {
	t.Parallel()

	for _, r := range ValidResponses {
		if !r.IsValid() {
			t.Errorf("%s should be valid", r)
		}
	}
	if NegotiationResponse("maybe").IsValid() {
		t.Error("unexpected valid response 'maybe'")
	}
	if ResponseCountered.IsTerminal() {
		t.Error("countered should keep the thread open")
	}
}

func TestEmailDomain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		email string
		want  string
	}{
		{"ops@Platform.io", "platform.io"},
		{"a@b@example.com", "example.com"},
		{"no-at-sign", ""},
		{"trailing@", ""},
	}

	for _, tt := range tests {
		if got := EmailDomain(tt.email); got != tt.want {
			t.Errorf("EmailDomain(%q) = %q, want %q", tt.email, got, tt.want)
		}
	}
}

func TestIsValidRole(t *testing.T) {
	t.Parallel()

	if !IsValidRole(RoleBrand) {
		t.Error("brand should be valid")
	}
	if IsValidRole("superuser") {
		t.Error("superuser should not be valid")
	}
}
