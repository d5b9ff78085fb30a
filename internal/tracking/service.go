// Package tracking provisions per-creator tracking links and records
// clicks and conversions against them.
package tracking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/creatorlink/creatorlink/internal/cache"
	"github.com/creatorlink/creatorlink/internal/metrics"
	"github.com/creatorlink/creatorlink/internal/model"
	"github.com/creatorlink/creatorlink/internal/repository"
)

// Service errors.
var (
	ErrNoCTALinks         = errors.New("campaign has no CTA links")
	ErrLinkNotFound       = errors.New("tracking link not found")
	ErrCodeSpaceExhausted = errors.New("could not find a free tracking code")
	ErrInvalidInput       = errors.New("campaignId and creatorUserId are required")
	ErrForbidden          = errors.New("not allowed to generate links for this creator")
)

// Store is the persistence the generator needs.
type Store interface {
	ListCTALinks(ctx context.Context, campaignID string) ([]*model.CTALink, error)
	GetTrackingLinkForCreator(ctx context.Context, ctaLinkID, creatorUserID string) (*model.TrackingLink, error)
	TrackingCodeExists(ctx context.Context, code string) (bool, error)
	CreateTrackingLink(ctx context.Context, link *model.TrackingLink) error
	GetTrackingLinkByCode(ctx context.Context, code string) (*model.TrackingLink, error)
	RecordClick(ctx context.Context, event *model.TrackingEvent) error
	InsertTrackingEvent(ctx context.Context, event *model.TrackingEvent) error
	GetCampaignOwner(ctx context.Context, campaignID string) (string, error)
	HasAcceptedInvitation(ctx context.Context, campaignID, creatorUserID string) (bool, error)
}

// LinkCache caches code lookups for the click path.
type LinkCache interface {
	GetTrackingLink(ctx context.Context, code string) (*model.TrackingLink, error)
	SetTrackingLink(ctx context.Context, link *model.TrackingLink) error
	IsNegativelyCached(ctx context.Context, code string) (bool, error)
	SetNegativeCache(ctx context.Context, code string) error
}

// Config holds generator settings.
type Config struct {
	BaseURL           string
	QRServiceURL      string
	VisitorHashSecret string
}

// VisitorInfo is the request metadata stored with a click.
type VisitorInfo struct {
	IP        string
	UserAgent string
	Referrer  string
}

// Service generates tracking links and records events.
type Service struct {
	store   Store
	cache   LinkCache
	hasher  *VisitorHasher
	cfg     Config
	metrics metrics.Recorder
	logger  *slog.Logger

	newCode func() (string, error)
	now     func() time.Time
}

// NewService creates a tracking Service. cache may be nil.
func NewService(store Store, linkCache LinkCache, cfg Config, recorder metrics.Recorder, logger *slog.Logger) *Service {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   store,
		cache:   linkCache,
		hasher:  NewVisitorHasher(cfg.VisitorHashSecret),
		cfg:     cfg,
		metrics: recorder,
		logger:  logger.With("component", "tracking"),
		newCode: GenerateCode,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// GenerateCreatorLinks returns one tracking link per CTA link of the campaign
// for the creator, creating any that are missing. Safe to call repeatedly.
func (s *Service) GenerateCreatorLinks(ctx context.Context, campaignID, creatorUserID string) ([]*model.TrackingLink, error) {
	if campaignID == "" || creatorUserID == "" {
		return nil, ErrInvalidInput
	}

	ctas, err := s.store.ListCTALinks(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list cta links: %w", err)
	}
	if len(ctas) == 0 {
		return nil, ErrNoCTALinks
	}

	links := make([]*model.TrackingLink, 0, len(ctas))
	created, reused := 0, 0

	for _, cta := range ctas {
		existing, err := s.store.GetTrackingLinkForCreator(ctx, cta.ID, creatorUserID)
		if err == nil {
			links = append(links, existing)
			reused++
			continue
		}
		if !errors.Is(err, repository.ErrTrackingLinkNotFound) {
			return nil, fmt.Errorf("lookup tracking link for cta %s: %w", cta.ID, err)
		}

		link, isNew, err := s.createLink(ctx, cta, creatorUserID)
		if err != nil {
			return nil, err
		}
		if isNew {
			created++
		} else {
			reused++
		}
		links = append(links, link)
	}

	s.metrics.AddTrackingLinksCreated(created)
	s.metrics.AddTrackingLinksReused(reused)
	s.logger.Info("tracking_links_generated",
		"campaign_id", campaignID,
		"creator_user_id", creatorUserID,
		"created", created,
		"reused", reused,
	)

	return links, nil
}

// AuthorizeGeneration allows the creator themself or the campaign's brand
// owner, and only for a creator holding an accepted invitation on the campaign.
func (s *Service) AuthorizeGeneration(ctx context.Context, caller *model.Caller, campaignID, creatorUserID string) error {
	if caller.UserID != creatorUserID {
		owner, err := s.store.GetCampaignOwner(ctx, campaignID)
		if err != nil {
			if errors.Is(err, repository.ErrCampaignNotFound) {
				return ErrForbidden
			}
			return fmt.Errorf("lookup campaign owner: %w", err)
		}
		if owner != caller.UserID {
			return ErrForbidden
		}
	}

	accepted, err := s.store.HasAcceptedInvitation(ctx, campaignID, creatorUserID)
	if err != nil {
		return fmt.Errorf("lookup invitation: %w", err)
	}
	if !accepted {
		return ErrForbidden
	}
	return nil
}

// createLink inserts a new link for (cta, creator). The bool is false when a
// concurrent request created the row first and it was re-read instead.
func (s *Service) createLink(ctx context.Context, cta *model.CTALink, creatorUserID string) (*model.TrackingLink, bool, error) {
	for draw := 0; draw < maxCodeDraws; draw++ {
		code, err := s.newCode()
		if err != nil {
			return nil, false, fmt.Errorf("generate tracking code: %w", err)
		}

		taken, err := s.store.TrackingCodeExists(ctx, code)
		if err != nil {
			return nil, false, fmt.Errorf("check tracking code: %w", err)
		}
		if taken {
			s.logger.Warn("tracking_code_collision", "attempt", draw+1)
			continue
		}

		shortURL := ShortURL(s.cfg.BaseURL, code)
		link := &model.TrackingLink{
			ID:            ulid.Make().String(),
			CTALinkID:     cta.ID,
			CampaignID:    cta.CampaignID,
			CreatorUserID: creatorUserID,
			TrackingCode:  code,
			ShortURL:      shortURL,
			OriginalURL:   cta.URL,
			QRCodeURL:     QRCodeURL(s.cfg.QRServiceURL, shortURL),
			IsPrimary:     cta.IsPrimary,
			ClickCount:    0,
			CreatedAt:     s.now(),
		}

		err = s.store.CreateTrackingLink(ctx, link)
		switch {
		case err == nil:
			s.warmCache(ctx, link)
			return link, true, nil
		case errors.Is(err, repository.ErrTrackingLinkExists):
			existing, getErr := s.store.GetTrackingLinkForCreator(ctx, cta.ID, creatorUserID)
			if getErr != nil {
				return nil, false, fmt.Errorf("re-read concurrently created link: %w", getErr)
			}
			return existing, false, nil
		case errors.Is(err, repository.ErrTrackingCodeTaken):
			s.logger.Warn("tracking_code_collision", "attempt", draw+1)
			continue
		default:
			return nil, false, fmt.Errorf("create tracking link: %w", err)
		}
	}

	return nil, false, ErrCodeSpaceExhausted
}

// warmCache stores a new link, which also drops any negative entry left by
// an earlier lookup of the same code.
func (s *Service) warmCache(ctx context.Context, link *model.TrackingLink) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetTrackingLink(ctx, link); err != nil {
		s.logger.Warn("tracking_link_cache_set_failed", "code", link.TrackingCode, "error", err)
	}
}

// RecordClick resolves code, stores a click event and bumps the link's
// counter. The returned link carries the redirect target.
func (s *Service) RecordClick(ctx context.Context, code string, visitor VisitorInfo) (*model.TrackingLink, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveClickDuration(time.Since(start))
	}()

	link, err := s.resolve(ctx, code)
	if err != nil {
		return nil, err
	}

	event := s.newEvent(link, model.TrackingEventClick)
	event.VisitorHash = s.hasher.Hash(visitor.IP)
	event.UserAgent = model.TruncateMeta(visitor.UserAgent)
	event.Referrer = model.TruncateMeta(visitor.Referrer)

	if err := s.store.RecordClick(ctx, event); err != nil {
		return nil, fmt.Errorf("record click: %w", err)
	}

	s.metrics.IncTrackingEvent(string(model.TrackingEventClick))
	return link, nil
}

// RecordConversion stores a conversion event for code.
func (s *Service) RecordConversion(ctx context.Context, code string, value *float64, metadata map[string]any) (*model.TrackingEvent, error) {
	link, err := s.resolve(ctx, code)
	if err != nil {
		return nil, err
	}

	event := s.newEvent(link, model.TrackingEventConversion)
	event.ConversionValue = value
	event.Metadata = metadata

	if err := s.store.InsertTrackingEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("record conversion: %w", err)
	}

	s.metrics.IncTrackingEvent(string(model.TrackingEventConversion))
	s.logger.Info("tracking_conversion_recorded",
		"tracking_link_id", link.ID,
		"campaign_id", link.CampaignID,
	)
	return event, nil
}

func (s *Service) newEvent(link *model.TrackingLink, eventType model.TrackingEventType) *model.TrackingEvent {
	return &model.TrackingEvent{
		ID:             ulid.Make().String(),
		TrackingLinkID: link.ID,
		CampaignID:     link.CampaignID,
		CreatorUserID:  link.CreatorUserID,
		EventType:      eventType,
		CreatedAt:      s.now(),
	}
}

// resolve looks code up cache-first, falling back to the database.
func (s *Service) resolve(ctx context.Context, code string) (*model.TrackingLink, error) {
	if !IsValidCode(code) {
		return nil, ErrLinkNotFound
	}

	if s.cache != nil {
		link, err := s.cache.GetTrackingLink(ctx, code)
		if err == nil {
			s.metrics.IncClickCacheHit()
			return link, nil
		}
		if errors.Is(err, cache.ErrCacheMiss) {
			s.metrics.IncClickCacheMiss()
			if neg, _ := s.cache.IsNegativelyCached(ctx, code); neg {
				return nil, ErrLinkNotFound
			}
		} else {
			s.logger.Warn("tracking_cache_error", "error", err)
		}
	}

	link, err := s.store.GetTrackingLinkByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrTrackingLinkNotFound) {
			if s.cache != nil {
				_ = s.cache.SetNegativeCache(ctx, code)
			}
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("lookup tracking link: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetTrackingLink(ctx, link); err != nil {
			s.logger.Warn("tracking_cache_backfill_failed", "error", err)
		}
	}

	return link, nil
}
