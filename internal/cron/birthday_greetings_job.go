package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/osei-labs/flocktrack-backend/pkg/aiwish"
	"github.com/osei-labs/flocktrack-backend/pkg/db/models"
	"github.com/osei-labs/flocktrack-backend/pkg/enums"
	"github.com/osei-labs/flocktrack-backend/pkg/logger"
	"github.com/osei-labs/flocktrack-backend/pkg/outbox"
	"github.com/osei-labs/flocktrack-backend/pkg/outbox/payloads"
)

const birthdayWishTimeout = 8 * time.Second

type birthdayMemberSource interface {
	ListBirthdaysBetween(ctx context.Context, campID *uuid.UUID, from, to time.Time) ([]models.Member, error)
}

type birthdayOutboxEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type wisher interface {
	Generate(ctx context.Context, firstName string) (string, error)
}

// BirthdayGreetingsJobParams configure the daily birthday SMS queue.
type BirthdayGreetingsJobParams struct {
	Logger  *logger.Logger
	DB      txRunner
	Members birthdayMemberSource
	Outbox  birthdayOutboxEmitter
	Wishes  wisher
}

// NewBirthdayGreetingsJob builds the job that queues one SMS per member whose
// birthday falls on the current day.
func NewBirthdayGreetingsJob(params BirthdayGreetingsJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Members == nil {
		return nil, fmt.Errorf("member source required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &birthdayGreetingsJob{
		logg:    params.Logger,
		db:      params.DB,
		members: params.Members,
		outbox:  params.Outbox,
		wishes:  params.Wishes,
		now:     time.Now,
	}, nil
}

type birthdayGreetingsJob struct {
	logg    *logger.Logger
	db      txRunner
	members birthdayMemberSource
	outbox  birthdayOutboxEmitter
	wishes  wisher
	now     func() time.Time
}

func (j *birthdayGreetingsJob) Name() string { return "birthday-greetings" }

func (j *birthdayGreetingsJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	celebrants, err := j.members.ListBirthdaysBetween(ctx, nil, start, end)
	if err != nil {
		return fmt.Errorf("query birthdays: %w", err)
	}

	queued := 0
	skipped := 0
	var errs error
	for _, member := range celebrants {
		if member.Phone == nil || *member.Phone == "" {
			skipped++
			continue
		}
		if err := j.queueGreeting(ctx, member, start); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("queue greeting for %s: %w", member.ID, err))
			continue
		}
		queued++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"celebrants": len(celebrants),
		"queued":     queued,
		"skipped":    skipped,
	})
	j.logg.Info(logCtx, "birthday greetings queued")
	return errs
}

func (j *birthdayGreetingsJob) queueGreeting(ctx context.Context, member models.Member, day time.Time) error {
	// Rerunning the sweep on the same day must not greet anyone twice, so the
	// batch id is derived from the member and the date.
	batchID := uuid.NewSHA1(uuid.NameSpaceOID, []byte("birthday:"+member.ID.String()+":"+day.Format("2006-01-02")))
	message := j.wishFor(ctx, member.FirstName)

	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		return j.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSMSRequested,
			AggregateType: enums.AggregateMessage,
			AggregateID:   batchID,
			Data: payloads.SMSRequestedEvent{
				BatchID:    batchID,
				Recipients: []string{*member.Phone},
				Message:    message,
			},
			Version:    1,
			OccurredAt: j.now().UTC(),
		})
	})
}

func (j *birthdayGreetingsJob) wishFor(ctx context.Context, firstName string) string {
	if j.wishes == nil {
		return aiwish.StaticWish(firstName)
	}
	wishCtx, cancel := context.WithTimeout(ctx, birthdayWishTimeout)
	defer cancel()
	message, err := j.wishes.Generate(wishCtx, firstName)
	if err != nil {
		j.logg.Warn(j.logg.WithField(ctx, "error", err.Error()), "wish generation failed, using fallback")
		return aiwish.StaticWish(firstName)
	}
	return message
}
