// Package analytics computes per-creator campaign performance from
// invitations, tracking links and CTA links.
package analytics

import (
	"sort"

	"github.com/creatorlink/creatorlink/internal/model"
)

// EstimatedValuePerClick is the flat value assumed for one click when
// computing ROI. It is a heuristic, not a conversion-value calculation.
const EstimatedValuePerClick = 0.50

// CreatorStats is one creator's row on the leaderboard.
type CreatorStats struct {
	CreatorUserID string  `json:"creator_user_id"`
	InvitationID  string  `json:"invitation_id"`
	Payout        float64 `json:"payout"`
	Clicks        int64   `json:"clicks"`
	CostPerClick  float64 `json:"cost_per_click"`
	ROI           float64 `json:"roi"`
	Links         int     `json:"links"`
}

// CTAStats is the click total for one CTA link.
type CTAStats struct {
	CTALinkID string `json:"cta_link_id"`
	URL       string `json:"url"`
	Label     string `json:"label,omitempty"`
	IsPrimary bool   `json:"is_primary"`
	Clicks    int64  `json:"clicks"`
}

// CampaignAnalytics is the aggregated view of one campaign. TotalClicks
// sums the leaderboard (accepted creators only); PrimaryClicks,
// SecondaryClicks and CTALinks count every tracking link, so they also
// include traffic on links of creators whose invitation is no longer
// accepted.
type CampaignAnalytics struct {
	TotalClicks     int64          `json:"total_clicks"`
	TotalPayout     float64        `json:"total_payout"`
	PrimaryClicks   int64          `json:"primary_clicks"`
	SecondaryClicks int64          `json:"secondary_clicks"`
	Leaderboard     []CreatorStats `json:"leaderboard"`
	TopPerformer    *CreatorStats  `json:"top_performer"`
	CTALinks        []CTAStats     `json:"cta_links"`
}

// Aggregate joins the three collections. Only accepted invitations produce
// leaderboard rows; CTA totals count every tracking link.
func Aggregate(invitations []*model.Invitation, links []*model.TrackingLink, ctas []*model.CTALink) *CampaignAnalytics {
	out := &CampaignAnalytics{
		Leaderboard: []CreatorStats{},
		CTALinks:    make([]CTAStats, 0, len(ctas)),
	}

	clicksByCreator := make(map[string]int64)
	linksByCreator := make(map[string]int)
	clicksByCTA := make(map[string]int64)
	for _, l := range links {
		clicksByCreator[l.CreatorUserID] += l.ClickCount
		linksByCreator[l.CreatorUserID]++
		clicksByCTA[l.CTALinkID] += l.ClickCount
	}

	for _, inv := range invitations {
		if inv.Status != model.InvitationAccepted {
			continue
		}
		payout := inv.AgreedPayout()
		clicks := clicksByCreator[inv.CreatorUserID]
		out.Leaderboard = append(out.Leaderboard, CreatorStats{
			CreatorUserID: inv.CreatorUserID,
			InvitationID:  inv.ID,
			Payout:        payout,
			Clicks:        clicks,
			CostPerClick:  costPerClick(payout, clicks),
			ROI:           roi(payout, clicks),
			Links:         linksByCreator[inv.CreatorUserID],
		})
		out.TotalClicks += clicks
		out.TotalPayout += payout
	}

	sort.SliceStable(out.Leaderboard, func(i, j int) bool {
		a, b := out.Leaderboard[i], out.Leaderboard[j]
		if a.Clicks != b.Clicks {
			return a.Clicks > b.Clicks
		}
		return a.CreatorUserID < b.CreatorUserID
	})

	if out.TotalClicks > 0 {
		top := out.Leaderboard[0]
		out.TopPerformer = &top
	}

	for _, cta := range ctas {
		clicks := clicksByCTA[cta.ID]
		out.CTALinks = append(out.CTALinks, CTAStats{
			CTALinkID: cta.ID,
			URL:       cta.URL,
			Label:     cta.Label,
			IsPrimary: cta.IsPrimary,
			Clicks:    clicks,
		})
		if cta.IsPrimary {
			out.PrimaryClicks += clicks
		} else {
			out.SecondaryClicks += clicks
		}
	}

	return out
}

func costPerClick(payout float64, clicks int64) float64 {
	if clicks == 0 {
		return 0
	}
	return payout / float64(clicks)
}

func roi(payout float64, clicks int64) float64 {
	if payout == 0 {
		return 0
	}
	return float64(clicks) * EstimatedValuePerClick / payout
}
