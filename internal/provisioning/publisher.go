package provisioning

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/creatorlink/creatorlink/internal/metrics"
)

const (
	// StreamKey is the Redis stream for provisioning jobs.
	StreamKey = "stream:link_provisioning"

	// DeadLetterStreamKey holds jobs that exhausted their attempts.
	DeadLetterStreamKey = "stream:link_provisioning:dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	// PublishTimeout bounds a single enqueue.
	PublishTimeout = 2 * time.Second
)

// Publisher enqueues provisioning jobs.
type Publisher struct {
	redis   *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewPublisher creates a new provisioning job publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		redis:   client,
		logger:  logger.With("component", "provisioning.publisher"),
		metrics: recorder,
	}
}

// Enqueue schedules link generation for a creator on a campaign.
func (p *Publisher) Enqueue(ctx context.Context, invitationID, campaignID, creatorUserID string) (string, error) {
	job := Job{
		JobID:         uuid.NewString(),
		InvitationID:  invitationID,
		CampaignID:    campaignID,
		CreatorUserID: creatorUserID,
		EnqueuedAt:    time.Now().UnixMilli(),
	}

	id, err := p.publish(ctx, job)
	if err != nil {
		return "", err
	}

	p.metrics.IncProvisioningJob(metrics.JobEnqueued)
	p.logger.Info("provisioning_job_enqueued",
		"job_id", job.JobID,
		"invitation_id", invitationID,
		"campaign_id", campaignID,
		"stream_id", id,
	)
	return job.JobID, nil
}

func (p *Publisher) publish(ctx context.Context, job Job) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, PublishTimeout)
	defer cancel()
	return publishJob(ctx, p.redis, StreamKey, job)
}

func publishJob(ctx context.Context, client *redis.Client, stream string, job Job) (string, error) {
	data, err := encodeJob(job)
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}

	result, err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]any{
			"payload": data,
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}

	return result, nil
}

// DeadLetter is a job that exhausted its attempts.
type DeadLetter struct {
	StreamID       string
	Job            Job
	Reason         string
	DeadLetteredAt string
}

// ListDeadLetters returns up to count of the most recent dead-lettered jobs.
func (p *Publisher) ListDeadLetters(ctx context.Context, count int64) ([]DeadLetter, error) {
	msgs, err := p.redis.XRevRangeN(ctx, DeadLetterStreamKey, "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("xrevrange: %w", err)
	}

	out := make([]DeadLetter, 0, len(msgs))
	for _, msg := range msgs {
		dl := DeadLetter{StreamID: msg.ID}
		if payload, ok := msg.Values["payload"].(string); ok {
			_ = json.Unmarshal([]byte(payload), &dl.Job)
		}
		dl.Reason, _ = msg.Values["reason"].(string)
		dl.DeadLetteredAt, _ = msg.Values["dead_lettered_at"].(string)
		out = append(out, dl)
	}
	return out, nil
}

// Requeue moves a dead-lettered job back onto the main stream with a fresh attempt budget.
func (p *Publisher) Requeue(ctx context.Context, dl DeadLetter) error {
	job := dl.Job
	job.Attempt = 0
	job.NotBefore = 0
	job.LastError = ""
	if _, err := p.publish(ctx, job); err != nil {
		return err
	}
	if err := p.redis.XDel(ctx, DeadLetterStreamKey, dl.StreamID).Err(); err != nil {
		return fmt.Errorf("xdel: %w", err)
	}
	p.metrics.IncProvisioningJob(metrics.JobEnqueued)
	return nil
}
