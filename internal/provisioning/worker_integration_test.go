//go:build integration

package provisioning

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/creatorlink/creatorlink/internal/metrics"
	"github.com/creatorlink/creatorlink/internal/model"
	"github.com/creatorlink/creatorlink/internal/testutil"
)

type flakyGenerator struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (g *flakyGenerator) GenerateCreatorLinks(ctx context.Context, campaignID, creatorUserID string) ([]*model.TrackingLink, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.calls <= g.failures {
		return nil, errors.New("database unavailable")
	}
	return []*model.TrackingLink{{CampaignID: campaignID, CreatorUserID: creatorUserID}}, nil
}

func (g *flakyGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	redisURL := testutil.RequireEnv(t, "REDIS_URL")
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("parse redis url: %v", err)
	}
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	if err := testutil.FlushRedis(context.Background(), client); err != nil {
		t.Fatalf("flush redis: %v", err)
	}
	return client
}

func runWorker(t *testing.T, w *Worker) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = w.Shutdown(shutdownCtx)
	})
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestWorker_RetriesThenSucceeds(t *testing.T) {
	client := newRedis(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder := metrics.NewInMemory()

	gen := &flakyGenerator{failures: 1}
	w := NewWorker(client, gen, logger, NewConsumerID(), recorder)
	w.SetBlockTimeout(100 * time.Millisecond)
	runWorker(t, w)

	pub := NewPublisher(client, logger, recorder)
	if _, err := pub.Enqueue(context.Background(), "inv-1", "camp-1", "creator-1"); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	waitFor(t, 10*time.Second, func() bool {
		return recorder.Snapshot().ProvisioningJobs[metrics.JobSucceeded] == 1
	})

	snap := recorder.Snapshot()
	if snap.ProvisioningJobs[metrics.JobRetried] != 1 {
		t.Errorf("retried = %d, want 1", snap.ProvisioningJobs[metrics.JobRetried])
	}
	if gen.Calls() != 2 {
		t.Errorf("generator calls = %d, want 2", gen.Calls())
	}
}

func TestWorker_DeadLettersAfterMaxAttempts(t *testing.T) {
	client := newRedis(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder := metrics.NewInMemory()

	gen := &flakyGenerator{failures: 100}
	w := NewWorker(client, gen, logger, NewConsumerID(), recorder)
	w.SetBlockTimeout(100 * time.Millisecond)
	w.SetMaxAttempts(2)
	runWorker(t, w)

	pub := NewPublisher(client, logger, recorder)
	jobID, err := pub.Enqueue(context.Background(), "inv-2", "camp-2", "creator-2")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	var dead []DeadLetter
	waitFor(t, 10*time.Second, func() bool {
		dead, err = pub.ListDeadLetters(context.Background(), 10)
		return err == nil && len(dead) == 1
	})

	if dead[0].Job.JobID != jobID {
		t.Errorf("dead letter job = %q, want %q", dead[0].Job.JobID, jobID)
	}
	if dead[0].Job.Attempt != 2 {
		t.Errorf("dead letter attempt = %d, want 2", dead[0].Job.Attempt)
	}
	if dead[0].Reason != "generation_failed" {
		t.Errorf("reason = %q", dead[0].Reason)
	}
	if gen.Calls() != 2 {
		t.Errorf("generator calls = %d, want 2", gen.Calls())
	}

	if err := pub.Requeue(context.Background(), dead[0]); err != nil {
		t.Fatalf("Requeue: %v", err)
	}
	remaining, err := pub.ListDeadLetters(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListDeadLetters: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("expected dead letter removed after requeue, got %d", len(remaining))
	}
}
