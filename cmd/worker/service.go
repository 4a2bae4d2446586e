package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/osei-labs/flocktrack-backend/pkg/config"
	"github.com/osei-labs/flocktrack-backend/pkg/db/models"
	"github.com/osei-labs/flocktrack-backend/pkg/enums"
	pkgerrors "github.com/osei-labs/flocktrack-backend/pkg/errors"
	"github.com/osei-labs/flocktrack-backend/pkg/identity"
	"github.com/osei-labs/flocktrack-backend/pkg/logger"
	"github.com/osei-labs/flocktrack-backend/pkg/metrics"
	"github.com/osei-labs/flocktrack-backend/pkg/outbox"
	"github.com/osei-labs/flocktrack-backend/pkg/outbox/payloads"
	"github.com/osei-labs/flocktrack-backend/pkg/outbox/registry"
	"github.com/osei-labs/flocktrack-backend/pkg/sms"
)

const (
	defaultBatchSize       = 50
	defaultPollMs          = 500
	defaultDispatchTimeout = 15 * time.Second
	defaultMaxAttempts     = 10
	maxBackoff             = 10 * time.Second
	jitterWindow           = 250 * time.Millisecond

	dispatchConsumer   = "outbox-dispatcher"
	dispatchJobName    = "outbox-dispatch"
	dispatchRetryBase  = 200 * time.Millisecond
	dispatchRetryCap   = 2 * time.Second
	dispatchRetryCount = 2
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type identityDispatcher interface {
	UpsertAccount(ctx context.Context, params identity.UpsertParams) error
	DeleteAccount(ctx context.Context, authID string) error
	SetSuspended(ctx context.Context, authID string, suspended bool) error
}

type smsDispatcher interface {
	Send(ctx context.Context, params sms.SendParams) (*sms.SendResult, error)
}

type processedGuard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

type ServiceParams struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          dbClient
	Repository  outboxRepository
	Registry    registryResolver
	DLQ         dlqRepository
	Identity    identityDispatcher
	SMS         smsDispatcher
	Idempotency processedGuard
	Metrics     *metrics.JobMetrics
}

// Service drains the transactional outbox and performs the side effects the
// API deferred: mirroring accounts to the identity provider and handing SMS
// batches to the vendor.
type Service struct {
	cfg          *config.Config
	logg         *logger.Logger
	db           dbClient
	repo         outboxRepository
	registry     registryResolver
	dlq          dlqRepository
	identity     identityDispatcher
	sms          smsDispatcher
	guard        processedGuard
	jobMetrics   *metrics.JobMetrics
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository is required")
	}
	if params.Registry == nil {
		return nil, errors.New("event registry is required")
	}
	if params.DLQ == nil {
		return nil, errors.New("dlq repository is required")
	}

	batch := params.Config.Outbox.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pollMs := params.Config.Outbox.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}
	maxAttempts := params.Config.Outbox.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Service{
		cfg:          params.Config,
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		registry:     params.Registry,
		dlq:          params.DLQ,
		identity:     params.Identity,
		sms:          params.SMS,
		guard:        params.Idempotency,
		jobMetrics:   params.Metrics,
		batchSize:    batch,
		maxAttempts:  maxAttempts,
		pollInterval: time.Duration(pollMs) * time.Millisecond,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		s.logg.Error(ctx, "database ping failed", err)
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	interval := s.pollInterval
	if interval <= 0 {
		interval = time.Duration(defaultPollMs) * time.Millisecond
	}
	backoff := interval

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "outbox dispatcher context canceled")
			return ctx.Err()
		default:
		}

		processed, err := s.processBatch(ctx)
		if err != nil {
			s.logg.Error(ctx, "outbox dispatcher batch error", err)
			s.jobMetrics.IncFailure(dispatchJobName)
			backoff = nextBackoff(backoff, interval, maxBackoff)
			if err := s.sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = interval

		if processed {
			continue
		}

		if err := s.sleep(ctx, withJitter(interval)); err != nil {
			return err
		}
	}
}

func (s *Service) processBatch(ctx context.Context) (bool, error) {
	started := time.Now()
	processed := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		processed = true
		for _, event := range events {
			resolved, err := s.registry.Resolve(event)
			if err != nil {
				if markErr := s.handleTerminal(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err, nil); markErr != nil {
					return markErr
				}
				continue
			}

			fields := s.eventFields(event, resolved.Envelope, resolved.Descriptor.Destination)
			if err := s.dispatchResolved(ctx, event, resolved); err != nil {
				var nonRetry registry.NonRetryableError
				if errors.As(err, &nonRetry) {
					if markErr := s.handleTerminal(ctx, tx, event, enums.OutboxDLQReasonNonRetryable, err, fields); markErr != nil {
						return markErr
					}
					continue
				}

				nextAttempt := event.AttemptCount + 1
				fields["attempt_count"] = nextAttempt

				if nextAttempt >= s.maxAttempts {
					fields["terminal_reason"] = "max_attempts"
					terminalErr := fmt.Errorf("max dispatch attempts reached: %w", err)
					if markErr := s.handleTerminal(ctx, tx, event, enums.OutboxDLQReasonMaxAttempts, terminalErr, fields); markErr != nil {
						return markErr
					}
					continue
				}

				ctxWithFields := s.logg.WithFields(ctx, fields)
				ctxWithFields = s.logg.WithField(ctxWithFields, "error", err.Error())
				s.logg.Warn(ctxWithFields, "outbox dispatch failed")
				if markErr := s.repo.MarkFailedTx(tx, event.ID, err); markErr != nil {
					return fmt.Errorf("mark failure %s: %w", event.ID, markErr)
				}
				continue
			}

			if markErr := s.repo.MarkPublishedTx(tx, event.ID); markErr != nil {
				return fmt.Errorf("mark published %s: %w", event.ID, markErr)
			}
			s.jobMetrics.IncSuccess(dispatchJobName)
			s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event dispatched")
		}
		return nil
	})
	if processed {
		s.jobMetrics.ObserveDuration(dispatchJobName, time.Since(started))
	}
	return processed, err
}

func (s *Service) handleTerminal(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, err error, fields map[string]any) error {
	if fields == nil {
		fields = s.eventFields(event, outbox.PayloadEnvelope{}, "")
	}
	fields["error_reason"] = reason
	ctxWithFields := s.logg.WithFields(ctx, fields)
	ctxWithFields = s.logg.WithField(ctxWithFields, "error", err.Error())
	s.logg.Warn(ctxWithFields, "outbox event will not be retried")
	s.jobMetrics.IncFailure(dispatchJobName)

	dlqEntry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  dlqErrorMessage(err),
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if dlqErr := s.dlq.InsertTx(tx, dlqEntry); dlqErr != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, dlqErr)
	}
	if markErr := s.repo.MarkTerminalTx(tx, event.ID, err, s.maxAttempts); markErr != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, markErr)
	}
	return nil
}

func dlqErrorMessage(err error) *string {
	if err == nil {
		return nil
	}
	msg := err.Error()
	return &msg
}

func (s *Service) dispatchResolved(ctx context.Context, event models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	eventID, err := uuid.Parse(resolved.Envelope.EventID)
	if err != nil {
		return registry.NewNonRetryableError(fmt.Errorf("invalid envelope event id %q: %w", resolved.Envelope.EventID, err))
	}

	if s.guard != nil {
		already, err := s.guard.CheckAndMarkProcessed(ctx, dispatchConsumer, eventID)
		if err != nil {
			return fmt.Errorf("idempotency check %s: %w", eventID, err)
		}
		if already {
			return nil
		}
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, defaultDispatchTimeout)
	defer cancel()

	dispatchErr := s.dispatchWithRetry(dispatchCtx, resolved)
	if dispatchErr == nil {
		return nil
	}

	// An unreachable provider must not strand account mirrors: the account row
	// already carries a deterministic auth id, so upserts settle as done.
	if event.EventType == enums.EventAccountUpserted && isUnreachable(dispatchErr) {
		ctxWithFields := s.logg.WithField(ctx, "event_id", eventID.String())
		ctxWithFields = s.logg.WithField(ctxWithFields, "error", dispatchErr.Error())
		s.logg.Warn(ctxWithFields, "identity provider unreachable, account keeps deterministic auth id")
		return nil
	}

	if s.guard != nil {
		if delErr := s.guard.Delete(ctx, dispatchConsumer, eventID); delErr != nil {
			ctxWithFields := s.logg.WithField(ctx, "event_id", eventID.String())
			s.logg.Warn(s.logg.WithField(ctxWithFields, "error", delErr.Error()), "could not clear idempotency mark")
		}
	}
	return dispatchErr
}

// dispatchWithRetry makes a handful of quick in-process attempts before the
// row falls back to the slower attempt_count machinery.
func (s *Service) dispatchWithRetry(ctx context.Context, resolved *registry.ResolvedEvent) error {
	backoff := retry.WithCappedDuration(dispatchRetryCap, retry.NewExponential(dispatchRetryBase))
	backoff = retry.WithMaxRetries(dispatchRetryCount, backoff)

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.dispatchOnce(ctx, resolved)
		if err == nil {
			return nil
		}
		var nonRetry registry.NonRetryableError
		if errors.As(err, &nonRetry) {
			return err
		}
		return retry.RetryableError(err)
	})
}

func (s *Service) dispatchOnce(ctx context.Context, resolved *registry.ResolvedEvent) error {
	switch resolved.Descriptor.Destination {
	case registry.DestinationIdentity:
		return s.dispatchIdentity(ctx, resolved)
	case registry.DestinationSMS:
		return s.dispatchSMS(ctx, resolved)
	default:
		return registry.NewNonRetryableError(fmt.Errorf("no dispatcher for destination %s", resolved.Descriptor.Destination))
	}
}

func (s *Service) dispatchIdentity(ctx context.Context, resolved *registry.ResolvedEvent) error {
	if s.identity == nil {
		return registry.NewNonRetryableError(errors.New("identity client not configured"))
	}

	var err error
	switch payload := resolved.Payload.(type) {
	case *payloads.AccountUpsertedEvent:
		err = s.identity.UpsertAccount(ctx, identity.UpsertParams{
			AuthID: payload.AuthID,
			Email:  payload.Email,
			Role:   string(payload.Role),
		})
	case *payloads.AccountDeletedEvent:
		err = s.identity.DeleteAccount(ctx, payload.AuthID)
	case *payloads.AccountSuspensionEvent:
		err = s.identity.SetSuspended(ctx, payload.AuthID, payload.Suspended)
	default:
		return registry.NewNonRetryableError(fmt.Errorf("unexpected identity payload %T", resolved.Payload))
	}
	return classifyDispatchError(err)
}

func (s *Service) dispatchSMS(ctx context.Context, resolved *registry.ResolvedEvent) error {
	if s.sms == nil {
		return registry.NewNonRetryableError(errors.New("sms client not configured"))
	}

	payload, ok := resolved.Payload.(*payloads.SMSRequestedEvent)
	if !ok {
		return registry.NewNonRetryableError(fmt.Errorf("unexpected sms payload %T", resolved.Payload))
	}

	result, err := s.sms.Send(ctx, sms.SendParams{
		Recipients: payload.Recipients,
		Message:    payload.Message,
		SenderID:   payload.SenderID,
	})
	if err != nil {
		return classifyDispatchError(err)
	}
	if len(result.Failed) > 0 {
		fields := map[string]any{
			"batch_id": payload.BatchID.String(),
			"accepted": result.Accepted,
			"failed":   len(result.Failed),
		}
		s.logg.Warn(s.logg.WithFields(ctx, fields), "sms vendor rejected some recipients")
	}
	return nil
}

// classifyDispatchError keeps vendor rejections out of the retry loop: a
// request the vendor refused will be refused again, while transport and
// rate-limit failures are worth another attempt.
func classifyDispatchError(err error) error {
	if err == nil {
		return nil
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		return err
	}
	switch typed.Code() {
	case pkgerrors.CodeValidation, pkgerrors.CodeUnauthorized, pkgerrors.CodeForbidden, pkgerrors.CodeNotFound, pkgerrors.CodeConflict:
		return registry.NewNonRetryableError(err)
	default:
		return err
	}
}

// isUnreachable reports whether the dispatch failed on transport rather than
// on a vendor verdict about the request.
func isUnreachable(err error) bool {
	typed := pkgerrors.As(err)
	if typed == nil {
		return true
	}
	return typed.Code() == pkgerrors.CodeDependency || typed.Code() == pkgerrors.CodeRateLimit
}

func (s *Service) eventFields(event models.OutboxEvent, envelope outbox.PayloadEnvelope, destination registry.Destination) map[string]any {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"batch_size":     s.batchSize,
		"attempt_count":  event.AttemptCount,
	}
	if envelope.EventID != "" {
		fields["event_id"] = envelope.EventID
		fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	}
	if destination != "" {
		fields["destination"] = destination
	}
	if event.LastError != nil {
		fields["last_error"] = *event.LastError
	}
	return fields
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, max time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	next := current * 2
	if next > max {
		return max
	}
	return next
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	jitter := time.Duration(jitterSource.Int63n(int64(jitterWindow)))
	return d + jitter
}
