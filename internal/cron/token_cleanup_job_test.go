package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/osei-labs/flocktrack-backend/pkg/logger"
)

func TestTokenCleanupJobClearsExpiredTokens(t *testing.T) {
	now := time.Date(2026, 3, 5, 8, 0, 0, 0, time.UTC)
	repo := &fakeTokenCleanupRepo{}
	job := newTokenCleanupJob(t, repo)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if repo.called != 1 {
		t.Fatalf("expected repo called once, got %d", repo.called)
	}
	if !repo.lastCutoff.Equal(now) {
		t.Fatalf("expected cutoff %s, got %s", now, repo.lastCutoff)
	}
}

func TestTokenCleanupJobPropagatesError(t *testing.T) {
	repo := &fakeTokenCleanupRepo{err: errors.New("boom")}
	job := newTokenCleanupJob(t, repo)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func newTokenCleanupJob(t *testing.T, repo *fakeTokenCleanupRepo) *tokenCleanupJob {
	t.Helper()
	jobIface, err := NewTokenCleanupJob(TokenCleanupJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test"}),
		Repository: repo,
	})
	if err != nil {
		t.Fatalf("NewTokenCleanupJob: %v", err)
	}
	job, ok := jobIface.(*tokenCleanupJob)
	if !ok {
		t.Fatalf("expected tokenCleanupJob, got %T", jobIface)
	}
	return job
}

type fakeTokenCleanupRepo struct {
	lastCutoff time.Time
	called     int
	err        error
}

func (f *fakeTokenCleanupRepo) ClearExpiredUpdateTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	if f.err != nil {
		return 0, f.err
	}
	return 3, nil
}
