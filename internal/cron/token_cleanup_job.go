package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/osei-labs/flocktrack-backend/pkg/logger"
)

type tokenCleanupRepo interface {
	ClearExpiredUpdateTokens(ctx context.Context, cutoff time.Time) (int64, error)
}

// TokenCleanupJobParams configure the self-service token sweep.
type TokenCleanupJobParams struct {
	Logger     *logger.Logger
	Repository tokenCleanupRepo
}

// NewTokenCleanupJob builds the job that nulls out expired member update tokens.
func NewTokenCleanupJob(params TokenCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("member repository required")
	}
	return &tokenCleanupJob{
		logg: params.Logger,
		repo: params.Repository,
		now:  time.Now,
	}, nil
}

type tokenCleanupJob struct {
	logg *logger.Logger
	repo tokenCleanupRepo
	now  func() time.Time
}

func (j *tokenCleanupJob) Name() string { return "update-token-cleanup" }

func (j *tokenCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC()
	cleared, err := j.repo.ClearExpiredUpdateTokens(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("clear expired update tokens: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"tokens_cleared": cleared,
	})
	j.logg.Info(logCtx, "update token cleanup complete")
	return nil
}
