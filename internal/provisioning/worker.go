package provisioning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/creatorlink/creatorlink/internal/metrics"
	"github.com/creatorlink/creatorlink/internal/model"
)

const (
	// ConsumerGroup is the Redis consumer group name.
	ConsumerGroup = "link_provisioners"

	// DefaultBatchSize is the max jobs read per poll.
	DefaultBatchSize = 20

	// DefaultBlockTimeout is how long to block waiting for messages.
	DefaultBlockTimeout = 5 * time.Second

	// DefaultMaxAttempts is how many times a job runs before it is dead-lettered.
	DefaultMaxAttempts = 5

	// DefaultClaimInterval is how often to scan pending messages.
	DefaultClaimInterval = 30 * time.Second

	// DefaultClaimIdle is the idle time before reclaiming pending messages.
	DefaultClaimIdle = 2 * time.Minute

	// DefaultMetricsInterval is how often to refresh queue depth metrics.
	DefaultMetricsInterval = 5 * time.Second

	deadLetterMaxLen = 10000
)

// Generator creates a creator's tracking links for a campaign.
type Generator interface {
	GenerateCreatorLinks(ctx context.Context, campaignID, creatorUserID string) ([]*model.TrackingLink, error)
}

// Worker drains the provisioning stream.
type Worker struct {
	redis           *redis.Client
	generator       Generator
	logger          *slog.Logger
	metrics         metrics.Recorder
	consumerID      string
	batchSize       int
	blockTimeout    time.Duration
	maxAttempts     int
	claimInterval   time.Duration
	claimIdle       time.Duration
	metricsInterval time.Duration
	claimStartID    string
	lastClaim       time.Time
	lastMetrics     time.Time
	now             func() time.Time

	started  bool
	draining bool
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex
}

// NewWorker creates a provisioning worker.
func NewWorker(client *redis.Client, generator Generator, logger *slog.Logger, consumerID string, recorder metrics.Recorder) *Worker {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Worker{
		redis:           client,
		generator:       generator,
		logger:          logger.With("component", "provisioning.worker", "consumer_id", consumerID),
		metrics:         recorder,
		consumerID:      consumerID,
		batchSize:       DefaultBatchSize,
		blockTimeout:    DefaultBlockTimeout,
		maxAttempts:     DefaultMaxAttempts,
		claimInterval:   DefaultClaimInterval,
		claimIdle:       DefaultClaimIdle,
		metricsInterval: DefaultMetricsInterval,
		claimStartID:    "0-0",
		now:             time.Now,
	}
}

// Run starts the worker loop. Blocks until context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return errors.New("worker already started")
	}
	w.started = true
	w.done = make(chan struct{})
	ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	defer close(w.done)

	if err := w.ensureConsumerGroup(ctx); err != nil {
		return fmt.Errorf("ensure consumer group: %w", err)
	}

	w.logger.Info("provisioning worker started", "max_attempts", w.maxAttempts)

	for {
		w.mu.Lock()
		draining := w.draining
		w.mu.Unlock()

		if draining {
			w.logger.Info("provisioning worker draining, stopping")
			return nil
		}

		select {
		case <-ctx.Done():
			w.logger.Info("provisioning worker stopping")
			return ctx.Err()
		default:
			if err := w.processOnce(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				w.logger.Error("process error", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

// Shutdown stops the worker after the job in flight.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	w.draining = true
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()

	w.logger.Info("provisioning worker shutdown initiated")

	if cancel != nil {
		cancel()
	}

	if done != nil {
		select {
		case <-done:
			w.logger.Info("provisioning worker shutdown complete")
			return nil
		case <-ctx.Done():
			w.logger.Warn("provisioning worker shutdown timed out")
			return ctx.Err()
		}
	}
	return nil
}

func (w *Worker) ensureConsumerGroup(ctx context.Context) error {
	err := w.redis.XGroupCreateMkStream(ctx, StreamKey, ConsumerGroup, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func (w *Worker) processOnce(ctx context.Context) error {
	w.maybeUpdateQueueDepth(ctx)

	claimed, err := w.maybeClaimPending(ctx)
	if err != nil {
		w.logger.Warn("failed to claim pending messages", "error", err)
	}

	messages := claimed
	if len(messages) == 0 {
		messages, err = w.readBatch(ctx)
		if err != nil {
			return err
		}
	}

	for _, msg := range messages {
		if err := w.handleMessage(ctx, msg); err != nil {
			// Left pending; XAUTOCLAIM picks it up again.
			return err
		}
	}
	return nil
}

// handleMessage runs one job and settles its message. A nil return means
// the message was acknowledged.
func (w *Worker) handleMessage(ctx context.Context, msg redis.XMessage) error {
	payload, ok := msg.Values["payload"].(string)
	if !ok {
		w.deadLetter(ctx, msg, Job{}, "invalid_format", "payload field missing or not a string")
		return w.ack(ctx, msg.ID)
	}

	job, err := decodeJob(payload)
	if err != nil {
		w.deadLetter(ctx, msg, job, "validation_error", err.Error())
		return w.ack(ctx, msg.ID)
	}

	if err := w.waitUntil(ctx, job.NotBefore); err != nil {
		return err
	}

	links, genErr := w.generator.GenerateCreatorLinks(ctx, job.CampaignID, job.CreatorUserID)
	if genErr != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	job.Attempt++

	switch decide(genErr, job.Attempt, w.maxAttempts) {
	case actionAck:
		w.metrics.IncProvisioningJob(metrics.JobSucceeded)
		w.logger.Info("provisioning_job_succeeded",
			"job_id", job.JobID,
			"campaign_id", job.CampaignID,
			"creator_user_id", job.CreatorUserID,
			"links", len(links),
			"attempt", job.Attempt,
		)
	case actionRetry:
		job.LastError = genErr.Error()
		job.NotBefore = w.now().Add(backoff(job.Attempt)).UnixMilli()
		if _, err := publishJob(ctx, w.redis, StreamKey, job); err != nil {
			return fmt.Errorf("requeue job %s: %w", job.JobID, err)
		}
		w.metrics.IncProvisioningJob(metrics.JobRetried)
		w.logger.Warn("provisioning_job_retry",
			"job_id", job.JobID,
			"attempt", job.Attempt,
			"error", genErr,
		)
	case actionDeadLetter:
		job.LastError = genErr.Error()
		w.deadLetter(ctx, msg, job, "generation_failed", genErr.Error())
	}

	return w.ack(ctx, msg.ID)
}

// waitUntil sleeps until the job's earliest run time, capped at maxBackoff.
func (w *Worker) waitUntil(ctx context.Context, notBefore int64) error {
	if notBefore <= 0 {
		return nil
	}
	wait := time.UnixMilli(notBefore).Sub(w.now())
	if wait <= 0 {
		return nil
	}
	if wait > maxBackoff {
		wait = maxBackoff
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (w *Worker) deadLetter(ctx context.Context, msg redis.XMessage, job Job, reason, detail string) {
	w.logger.Warn("provisioning_job_dead_lettered",
		"message_id", msg.ID,
		"job_id", job.JobID,
		"reason", reason,
		"detail", detail,
	)
	w.metrics.IncProvisioningJob(metrics.JobDeadLettered)

	payload := msg.Values["payload"]
	if job.JobID != "" {
		if data, err := encodeJob(job); err == nil {
			payload = data
		}
	}

	_, err := w.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: DeadLetterStreamKey,
		MaxLen: deadLetterMaxLen,
		Approx: true,
		ID:     "*",
		Values: map[string]any{
			"original_id":      msg.ID,
			"reason":           reason,
			"detail":           detail,
			"payload":          payload,
			"dead_lettered_at": w.now().UTC().Format(time.RFC3339),
		},
	}).Result()
	if err != nil {
		w.logger.Error("failed to write to dead-letter queue",
			"message_id", msg.ID,
			"error", err,
		)
	}
}

func (w *Worker) ack(ctx context.Context, id string) error {
	if err := w.redis.XAck(ctx, StreamKey, ConsumerGroup, id).Err(); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	return nil
}

func (w *Worker) maybeClaimPending(ctx context.Context) ([]redis.XMessage, error) {
	if w.claimInterval <= 0 || w.claimIdle <= 0 {
		return nil, nil
	}
	if !w.lastClaim.IsZero() && time.Since(w.lastClaim) < w.claimInterval {
		return nil, nil
	}

	w.lastClaim = time.Now()
	messages, start, err := w.redis.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   StreamKey,
		Group:    ConsumerGroup,
		Consumer: w.consumerID,
		MinIdle:  w.claimIdle,
		Start:    w.claimStartID,
		Count:    int64(w.batchSize),
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("xautoclaim: %w", err)
	}
	if start != "" {
		w.claimStartID = start
	}
	return messages, nil
}

func (w *Worker) maybeUpdateQueueDepth(ctx context.Context) {
	if w.metricsInterval <= 0 {
		return
	}
	if !w.lastMetrics.IsZero() && time.Since(w.lastMetrics) < w.metricsInterval {
		return
	}
	w.lastMetrics = time.Now()

	groups, err := w.redis.XInfoGroups(ctx, StreamKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		w.logger.Warn("failed to read stream group info", "error", err)
		return
	}
	for _, group := range groups {
		if group.Name == ConsumerGroup {
			w.metrics.SetProvisioningQueueDepth(group.Pending + group.Lag)
			return
		}
	}
}

func (w *Worker) readBatch(ctx context.Context) ([]redis.XMessage, error) {
	streams, err := w.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    ConsumerGroup,
		Consumer: w.consumerID,
		Streams:  []string{StreamKey, ">"},
		Count:    int64(w.batchSize),
		Block:    w.blockTimeout,
	}).Result()

	if errors.Is(err, redis.Nil) || len(streams) == 0 {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}

	return streams[0].Messages, nil
}

// SetMaxAttempts overrides the default attempt budget.
func (w *Worker) SetMaxAttempts(n int) {
	if n > 0 {
		w.maxAttempts = n
	}
}

// SetBlockTimeout overrides the default blocking timeout.
func (w *Worker) SetBlockTimeout(timeout time.Duration) {
	if timeout > 0 {
		w.blockTimeout = timeout
	}
}

// SetClaimIdle overrides the default pending idle threshold.
func (w *Worker) SetClaimIdle(idle time.Duration) {
	if idle > 0 {
		w.claimIdle = idle
	}
}
