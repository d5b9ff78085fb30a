// Package provisioning retries tracking-link generation for accepted
// invitations through a Redis Streams queue.
package provisioning

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/creatorlink/creatorlink/internal/tracking"
)

// Job asks the worker to generate a creator's links for a campaign.
type Job struct {
	JobID         string `json:"jid"`
	InvitationID  string `json:"iid,omitempty"`
	CampaignID    string `json:"cid"`
	CreatorUserID string `json:"uid"`
	Attempt       int    `json:"n"`            // completed attempts
	NotBefore     int64  `json:"nb,omitempty"` // Unix milliseconds
	EnqueuedAt    int64  `json:"t"`            // Unix milliseconds
	LastError     string `json:"err,omitempty"`
}

// Validate checks the job fields the worker relies on.
func (j Job) Validate() error {
	if j.JobID == "" {
		return fmt.Errorf("job_id is required")
	}
	if j.CampaignID == "" {
		return fmt.Errorf("campaign_id is required")
	}
	if j.CreatorUserID == "" {
		return fmt.Errorf("creator_user_id is required")
	}
	if j.Attempt < 0 {
		return fmt.Errorf("attempt must not be negative")
	}
	if j.EnqueuedAt <= 0 {
		return fmt.Errorf("enqueued_at must be set")
	}
	return nil
}

func encodeJob(job Job) (string, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeJob(payload string) (Job, error) {
	var job Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return Job{}, err
	}
	return job, job.Validate()
}

const (
	baseBackoff = 2 * time.Second
	maxBackoff  = 60 * time.Second
)

// backoff returns the delay before retry number attempt (1-based).
func backoff(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	d := baseBackoff << (attempt - 1)
	if d > maxBackoff || d <= 0 {
		return maxBackoff
	}
	return d
}

type action int

const (
	actionAck action = iota
	actionRetry
	actionDeadLetter
)

// decide maps a generation result to what happens to the job.
// attempts counts the attempt that just ran.
func decide(err error, attempts, maxAttempts int) action {
	switch {
	case err == nil, errors.Is(err, tracking.ErrNoCTALinks):
		return actionAck
	case errors.Is(err, tracking.ErrInvalidInput), attempts >= maxAttempts:
		return actionDeadLetter
	default:
		return actionRetry
	}
}
