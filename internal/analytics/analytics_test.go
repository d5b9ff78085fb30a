package analytics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/creatorlink/creatorlink/internal/auth"
	"github.com/creatorlink/creatorlink/internal/model"
	"github.com/creatorlink/creatorlink/internal/repository"
)

func accepted(id, creator string, payout float64) *model.Invitation {
	return &model.Invitation{ID: id, CreatorUserID: creator, Status: model.InvitationAccepted, OfferedPayout: payout}
}

func link(cta, creator string, clicks int64) *model.TrackingLink {
	return &model.TrackingLink{CTALinkID: cta, CreatorUserID: creator, ClickCount: clicks}
}

func TestAggregate_ZeroGuards(t *testing.T) {
	invitations := []*model.Invitation{
		accepted("inv-free", "creator-free", 0),
		accepted("inv-quiet", "creator-quiet", 300),
	}
	links := []*model.TrackingLink{
		link("cta-1", "creator-free", 40),
		link("cta-1", "creator-quiet", 0),
	}

	got := Aggregate(invitations, links, nil)

	byCreator := map[string]CreatorStats{}
	for _, row := range got.Leaderboard {
		byCreator[row.CreatorUserID] = row
	}

	free := byCreator["creator-free"]
	if free.ROI != 0 {
		t.Errorf("zero payout ROI = %v, want 0", free.ROI)
	}
	if free.CostPerClick != 0 {
		t.Errorf("zero payout CPC = %v, want 0", free.CostPerClick)
	}

	quiet := byCreator["creator-quiet"]
	if quiet.CostPerClick != 0 {
		t.Errorf("zero clicks CPC = %v, want 0", quiet.CostPerClick)
	}
	for _, row := range got.Leaderboard {
		if math.IsNaN(row.ROI) || math.IsInf(row.ROI, 0) || math.IsNaN(row.CostPerClick) || math.IsInf(row.CostPerClick, 0) {
			t.Errorf("non-finite stats for %s: %+v", row.CreatorUserID, row)
		}
	}
}

func TestAggregate_Metrics(t *testing.T) {
	inv := accepted("inv-1", "creator-1", 100)
	inv.NegotiatedPayoutDelta = 100
	links := []*model.TrackingLink{
		link("cta-1", "creator-1", 300),
		link("cta-2", "creator-1", 100),
	}

	got := Aggregate([]*model.Invitation{inv}, links, nil)
	if len(got.Leaderboard) != 1 {
		t.Fatalf("leaderboard = %d rows, want 1", len(got.Leaderboard))
	}
	row := got.Leaderboard[0]

	if row.Payout != 200 {
		t.Errorf("payout = %v, want agreed payout 200", row.Payout)
	}
	if row.Clicks != 400 {
		t.Errorf("clicks = %d, want 400", row.Clicks)
	}
	if row.CostPerClick != 0.5 {
		t.Errorf("cpc = %v, want 0.5", row.CostPerClick)
	}
	if row.ROI != 1 {
		t.Errorf("roi = %v, want 1 (400 * 0.50 / 200)", row.ROI)
	}
	if row.Links != 2 {
		t.Errorf("links = %d, want 2", row.Links)
	}
}

func TestAggregate_LeaderboardOrder(t *testing.T) {
	invitations := []*model.Invitation{
		accepted("inv-b", "creator-b", 100),
		accepted("inv-a", "creator-a", 100),
		accepted("inv-c", "creator-c", 100),
		{ID: "inv-d", CreatorUserID: "creator-d", Status: model.InvitationPending, OfferedPayout: 100},
	}
	links := []*model.TrackingLink{
		link("cta-1", "creator-a", 10),
		link("cta-1", "creator-b", 10),
		link("cta-1", "creator-c", 25),
		link("cta-1", "creator-d", 99),
	}

	got := Aggregate(invitations, links, nil)

	want := []string{"creator-c", "creator-a", "creator-b"}
	if len(got.Leaderboard) != len(want) {
		t.Fatalf("leaderboard = %d rows, want %d", len(got.Leaderboard), len(want))
	}
	for i, id := range want {
		if got.Leaderboard[i].CreatorUserID != id {
			t.Errorf("leaderboard[%d] = %s, want %s", i, got.Leaderboard[i].CreatorUserID, id)
		}
	}

	if got.TopPerformer == nil || got.TopPerformer.CreatorUserID != "creator-c" {
		t.Errorf("top performer = %+v, want creator-c", got.TopPerformer)
	}
	if got.TotalClicks != 45 {
		t.Errorf("total clicks = %d, want 45", got.TotalClicks)
	}
}

func TestAggregate_NoClicksNoTopPerformer(t *testing.T) {
	got := Aggregate([]*model.Invitation{accepted("inv-1", "creator-1", 100)}, nil, nil)
	if got.TopPerformer != nil {
		t.Errorf("top performer = %+v, want nil", got.TopPerformer)
	}

	empty := Aggregate(nil, nil, nil)
	if empty.TopPerformer != nil || len(empty.Leaderboard) != 0 {
		t.Errorf("empty aggregate = %+v", empty)
	}
}

func TestAggregate_CTABreakdown(t *testing.T) {
	ctas := []*model.CTALink{
		{ID: "cta-1", URL: "https://brand.example/shop", IsPrimary: true},
		{ID: "cta-2", URL: "https://brand.example/blog"},
		{ID: "cta-3", URL: "https://brand.example/faq"},
	}
	links := []*model.TrackingLink{
		link("cta-1", "creator-1", 7),
		link("cta-1", "creator-2", 3),
		link("cta-2", "creator-1", 5),
	}

	got := Aggregate(nil, links, ctas)

	if got.PrimaryClicks != 10 || got.SecondaryClicks != 5 {
		t.Errorf("primary/secondary = %d/%d, want 10/5", got.PrimaryClicks, got.SecondaryClicks)
	}
	if len(got.CTALinks) != 3 {
		t.Fatalf("cta rows = %d, want 3", len(got.CTALinks))
	}
	if got.CTALinks[2].Clicks != 0 {
		t.Errorf("unclicked cta = %d clicks, want 0", got.CTALinks[2].Clicks)
	}
}

func TestAggregate_TotalsScope(t *testing.T) {
	ctas := []*model.CTALink{{ID: "cta-1", IsPrimary: true}, {ID: "cta-2"}}
	declined := &model.Invitation{ID: "inv-2", CreatorUserID: "creator-2", Status: model.InvitationDeclined, OfferedPayout: 200}
	invitations := []*model.Invitation{accepted("inv-1", "creator-1", 100), declined}
	links := []*model.TrackingLink{
		link("cta-1", "creator-1", 6),
		link("cta-2", "creator-1", 4),
		link("cta-1", "creator-2", 9),
	}

	got := Aggregate(invitations, links, ctas)

	if got.TotalClicks != 10 {
		t.Errorf("TotalClicks = %d, want 10 (accepted creators only)", got.TotalClicks)
	}
	if got.PrimaryClicks+got.SecondaryClicks != 19 {
		t.Errorf("CTA clicks = %d, want 19 (every link)", got.PrimaryClicks+got.SecondaryClicks)
	}
	if len(got.Leaderboard) != 1 {
		t.Errorf("leaderboard rows = %d, want 1", len(got.Leaderboard))
	}
}

type fakeStore struct {
	owner       string
	ownerErr    error
	invitations []*model.Invitation
	links       []*model.TrackingLink
	ctas        []*model.CTALink
}

func (f *fakeStore) GetCampaignOwner(ctx context.Context, campaignID string) (string, error) {
	return f.owner, f.ownerErr
}

func (f *fakeStore) ListInvitationsByCampaign(ctx context.Context, campaignID string) ([]*model.Invitation, error) {
	return f.invitations, nil
}

func (f *fakeStore) ListTrackingLinksByCampaign(ctx context.Context, campaignID string) ([]*model.TrackingLink, error) {
	return f.links, nil
}

func (f *fakeStore) ListCTALinks(ctx context.Context, campaignID string) ([]*model.CTALink, error) {
	return f.ctas, nil
}

func TestService_CampaignAnalytics(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := &fakeStore{
		owner:       "brand-1",
		invitations: []*model.Invitation{accepted("inv-1", "creator-1", 100)},
		links:       []*model.TrackingLink{link("cta-1", "creator-1", 20)},
	}
	svc := NewService(store, logger)

	got, err := svc.CampaignAnalytics(context.Background(), &model.Caller{UserID: "brand-1"}, "camp-1")
	if err != nil {
		t.Fatalf("CampaignAnalytics: %v", err)
	}
	if got.TotalClicks != 20 {
		t.Errorf("total clicks = %d, want 20", got.TotalClicks)
	}

	if _, err := svc.CampaignAnalytics(context.Background(), &model.Caller{UserID: "creator-1"}, "camp-1"); !errors.Is(err, ErrForbidden) {
		t.Errorf("non-owner error = %v, want ErrForbidden", err)
	}
	if _, err := svc.CampaignAnalytics(context.Background(), nil, "camp-1"); !errors.Is(err, auth.ErrUnauthenticated) {
		t.Errorf("anonymous error = %v, want ErrUnauthenticated", err)
	}

	store.ownerErr = repository.ErrCampaignNotFound
	if _, err := svc.CampaignAnalytics(context.Background(), &model.Caller{UserID: "brand-1"}, "missing"); !errors.Is(err, ErrCampaignNotFound) {
		t.Errorf("missing campaign error = %v, want ErrCampaignNotFound", err)
	}
}
