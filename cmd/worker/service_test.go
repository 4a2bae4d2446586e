package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/osei-labs/flocktrack-backend/pkg/config"
	"github.com/osei-labs/flocktrack-backend/pkg/db/models"
	"github.com/osei-labs/flocktrack-backend/pkg/enums"
	pkgerrors "github.com/osei-labs/flocktrack-backend/pkg/errors"
	"github.com/osei-labs/flocktrack-backend/pkg/identity"
	"github.com/osei-labs/flocktrack-backend/pkg/logger"
	"github.com/osei-labs/flocktrack-backend/pkg/outbox"
	"github.com/osei-labs/flocktrack-backend/pkg/outbox/payloads"
	"github.com/osei-labs/flocktrack-backend/pkg/outbox/registry"
	"github.com/osei-labs/flocktrack-backend/pkg/sms"
)

func TestProcessBatchContinuesAfterFailure(t *testing.T) {
	first := buildEvent(t, enums.EventAccountDeleted, enums.AggregateAccount, payloads.AccountDeletedEvent{
		AccountID: uuid.New(),
		AuthID:    uuid.NewString(),
		Email:     "first@flock.test",
		DeletedAt: time.Now().UTC(),
	})
	second := buildEvent(t, enums.EventAccountDeleted, enums.AggregateAccount, payloads.AccountDeletedEvent{
		AccountID: uuid.New(),
		AuthID:    uuid.NewString(),
		Email:     "second@flock.test",
		DeletedAt: time.Now().UTC(),
	})
	repo := &fakeRepo{events: []models.OutboxEvent{first, second}}
	idFake := &fakeIdentity{
		deleteErrs: []error{pkgerrors.New(pkgerrors.CodeDependency, "connection refused"), nil},
	}
	dlqRepo := &fakeDLQRepo{}
	service := newTestService(t, repo, dlqRepo, idFake, &fakeSMS{}, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(repo.failed); got != 1 {
		t.Fatalf("unexpected number of failed rows: %d", got)
	}
	if got := len(repo.published); got != 1 {
		t.Fatalf("unexpected number of published rows: %d", got)
	}
	if repo.failed[0] != first.ID {
		t.Fatalf("failed row recorded wrong ID")
	}
	if repo.published[0] != second.ID {
		t.Fatalf("published row recorded wrong ID")
	}
}

func TestProcessBatchSettlesUpsertWhenProviderUnreachable(t *testing.T) {
	event := buildEvent(t, enums.EventAccountUpserted, enums.AggregateAccount, payloads.AccountUpsertedEvent{
		AccountID: uuid.New(),
		AuthID:    uuid.NewString(),
		Email:     "leader@flock.test",
		Role:      enums.AccountRoleLeader,
	})
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	idFake := &fakeIdentity{
		upsertErrs: []error{
			pkgerrors.New(pkgerrors.CodeDependency, "dial tcp: timeout"),
			pkgerrors.New(pkgerrors.CodeDependency, "dial tcp: timeout"),
			pkgerrors.New(pkgerrors.CodeDependency, "dial tcp: timeout"),
		},
	}
	dlqRepo := &fakeDLQRepo{}
	service := newTestService(t, repo, dlqRepo, idFake, &fakeSMS{}, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if len(dlqRepo.entries) != 0 {
		t.Fatalf("upsert should not dead-letter when provider is unreachable")
	}
	if len(repo.failed) != 0 {
		t.Fatalf("upsert should not be marked failed when provider is unreachable")
	}
	if got := len(repo.published); got != 1 {
		t.Fatalf("expected settled upsert, got %d published rows", got)
	}
}

func TestProcessBatchWritesDLQOnNonRetryable(t *testing.T) {
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.OutboxEventType("unknown_event"),
		AggregateType: enums.AggregateAccount,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelopePayload(t, struct{}{}),
	}
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	dlqRepo := &fakeDLQRepo{}
	service := newTestService(t, repo, dlqRepo, &fakeIdentity{}, &fakeSMS{}, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(dlqRepo.entries); got != 1 {
		t.Fatalf("expected dlq entry, got %d", got)
	}
	entry := dlqRepo.entries[0]
	if entry.EventID != event.ID {
		t.Fatalf("dlq event_id mismatch: %s", entry.EventID)
	}
	if entry.Payload == nil || !bytes.Equal(entry.Payload, event.Payload) {
		t.Fatalf("dlq payload mismatch")
	}
	if entry.ErrorReason != enums.OutboxDLQReasonNonRetryable {
		t.Fatalf("unexpected error reason: %s", entry.ErrorReason)
	}
}

func TestProcessBatchWritesDLQOnMaxAttempts(t *testing.T) {
	event := buildEvent(t, enums.EventAccountDeleted, enums.AggregateAccount, payloads.AccountDeletedEvent{
		AccountID: uuid.New(),
		AuthID:    uuid.NewString(),
		Email:     "gone@flock.test",
		DeletedAt: time.Now().UTC(),
	})
	event.AttemptCount = 1
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	idFake := &fakeIdentity{
		deleteErrs: []error{
			pkgerrors.New(pkgerrors.CodeDependency, "connection refused"),
			pkgerrors.New(pkgerrors.CodeDependency, "connection refused"),
			pkgerrors.New(pkgerrors.CodeDependency, "connection refused"),
		},
	}
	dlqRepo := &fakeDLQRepo{}
	service := newTestService(t, repo, dlqRepo, idFake, &fakeSMS{}, &config.OutboxConfig{
		BatchSize:      1,
		PollIntervalMS: 100,
		MaxAttempts:    2,
	})

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(dlqRepo.entries); got != 1 {
		t.Fatalf("expected dlq entry, got %d", got)
	}
	entry := dlqRepo.entries[0]
	if entry.EventID != event.ID {
		t.Fatalf("dlq event_id mismatch: %s", entry.EventID)
	}
	if entry.ErrorReason != enums.OutboxDLQReasonMaxAttempts {
		t.Fatalf("unexpected error reason: %s", entry.ErrorReason)
	}
}

func TestProcessBatchDispatchesSMS(t *testing.T) {
	batchID := uuid.New()
	event := buildEvent(t, enums.EventSMSRequested, enums.AggregateMessage, payloads.SMSRequestedEvent{
		BatchID:    batchID,
		Recipients: []string{"+233200000001", "+233200000002"},
		Message:    "Happy birthday!",
	})
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	smsFake := &fakeSMS{result: &sms.SendResult{Accepted: 2}}
	dlqRepo := &fakeDLQRepo{}
	service := newTestService(t, repo, dlqRepo, &fakeIdentity{}, smsFake, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(smsFake.sent); got != 1 {
		t.Fatalf("expected one sms dispatch, got %d", got)
	}
	if got := len(smsFake.sent[0].Recipients); got != 2 {
		t.Fatalf("unexpected recipient count: %d", got)
	}
	if got := len(repo.published); got != 1 {
		t.Fatalf("expected published row, got %d", got)
	}
}

func TestProcessBatchSkipsAlreadyDispatchedEvents(t *testing.T) {
	event := buildEvent(t, enums.EventAccountDeleted, enums.AggregateAccount, payloads.AccountDeletedEvent{
		AccountID: uuid.New(),
		AuthID:    uuid.NewString(),
		Email:     "dup@flock.test",
		DeletedAt: time.Now().UTC(),
	})
	repo := &fakeRepo{events: []models.OutboxEvent{event}}
	idFake := &fakeIdentity{}
	dlqRepo := &fakeDLQRepo{}
	service := newTestService(t, repo, dlqRepo, idFake, &fakeSMS{}, nil)
	service.guard = &fakeGuard{processed: true}

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(idFake.deleted); got != 0 {
		t.Fatalf("expected no identity calls for replayed event, got %d", got)
	}
	if got := len(repo.published); got != 1 {
		t.Fatalf("replayed event should still settle, got %d published rows", got)
	}
}

func TestClassifyDispatchError(t *testing.T) {
	var nonRetry registry.NonRetryableError
	if err := classifyDispatchError(pkgerrors.New(pkgerrors.CodeValidation, "bad payload")); !errors.As(err, &nonRetry) {
		t.Fatalf("validation errors should not be retried")
	}
	if err := classifyDispatchError(pkgerrors.New(pkgerrors.CodeDependency, "timeout")); errors.As(err, &nonRetry) {
		t.Fatalf("dependency errors should stay retryable")
	}
	if err := classifyDispatchError(nil); err != nil {
		t.Fatalf("nil should pass through, got %v", err)
	}
}

func newTestService(t *testing.T, repo outboxRepository, dlq dlqRepository, id identityDispatcher, smsClient smsDispatcher, outboxCfgOverride *config.OutboxConfig) *Service {
	t.Helper()
	outboxCfg := config.OutboxConfig{
		BatchSize:      10,
		PollIntervalMS: 100,
		MaxAttempts:    5,
	}
	if outboxCfgOverride != nil {
		outboxCfg = *outboxCfgOverride
	}
	cfg := &config.Config{
		Outbox: outboxCfg,
	}
	logg := logger.New(logger.Options{
		ServiceName: "worker-test",
		Output:      io.Discard,
	})
	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logg,
		DB:         &fakeDB{},
		Repository: repo,
		Registry:   registry.NewEventRegistry(),
		DLQ:        dlq,
		Identity:   id,
		SMS:        smsClient,
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func buildEvent(tb testing.TB, eventType enums.OutboxEventType, aggregateType enums.OutboxAggregateType, payload any) models.OutboxEvent {
	tb.Helper()
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelopePayload(tb, payload),
	}
}

func mustEnvelopePayload(tb testing.TB, payload any) json.RawMessage {
	tb.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		tb.Fatalf("marshal payload: %v", err)
	}
	env := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       data,
	}
	raw, err := json.Marshal(env)
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return raw
}

type fakeRepo struct {
	events    []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
}

func (f *fakeRepo) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeRepo) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error {
	return nil
}

type fakeDB struct{}

func (f *fakeDB) Ping(context.Context) error {
	return nil
}

func (f *fakeDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error {
	return fn(nil)
}

type fakeIdentity struct {
	upserts    []identity.UpsertParams
	deleted    []string
	suspended  []string
	upsertErrs []error
	deleteErrs []error
}

func (f *fakeIdentity) UpsertAccount(_ context.Context, params identity.UpsertParams) error {
	f.upserts = append(f.upserts, params)
	return popErr(&f.upsertErrs)
}

func (f *fakeIdentity) DeleteAccount(_ context.Context, authID string) error {
	f.deleted = append(f.deleted, authID)
	return popErr(&f.deleteErrs)
}

func (f *fakeIdentity) SetSuspended(_ context.Context, authID string, suspended bool) error {
	f.suspended = append(f.suspended, authID)
	return nil
}

func popErr(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

type fakeSMS struct {
	sent   []sms.SendParams
	result *sms.SendResult
	err    error
}

func (f *fakeSMS) Send(_ context.Context, params sms.SendParams) (*sms.SendResult, error) {
	f.sent = append(f.sent, params)
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &sms.SendResult{Accepted: len(params.Recipients)}, nil
}

type fakeGuard struct {
	processed bool
	marks     []uuid.UUID
	deletes   []uuid.UUID
}

func (f *fakeGuard) CheckAndMarkProcessed(_ context.Context, _ string, eventID uuid.UUID) (bool, error) {
	f.marks = append(f.marks, eventID)
	return f.processed, nil
}

func (f *fakeGuard) Delete(_ context.Context, _ string, eventID uuid.UUID) error {
	f.deletes = append(f.deletes, eventID)
	return nil
}

type fakeDLQRepo struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQRepo) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}
