package messaging

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/osei-labs/flocktrack-backend/internal/authz"
	"github.com/osei-labs/flocktrack-backend/pkg/aiwish"
	"github.com/osei-labs/flocktrack-backend/pkg/config"
	"github.com/osei-labs/flocktrack-backend/pkg/db/models"
	"github.com/osei-labs/flocktrack-backend/pkg/enums"
	pkgerrors "github.com/osei-labs/flocktrack-backend/pkg/errors"
	"github.com/osei-labs/flocktrack-backend/pkg/logger"
	"github.com/osei-labs/flocktrack-backend/pkg/outbox"
	"github.com/osei-labs/flocktrack-backend/pkg/outbox/payloads"
)

const defaultSMSBatchSize = 5

type memberSource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Member, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Member, error)
	ListActiveByCamp(ctx context.Context, campID uuid.UUID) ([]models.Member, error)
	ListBirthdaysBetween(ctx context.Context, campID *uuid.UUID, from, to time.Time) ([]models.Member, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type wisher interface {
	Generate(ctx context.Context, firstName string) (string, error)
}

// BulkSMSInput selects recipients either explicitly or by camp.
type BulkSMSInput struct {
	MemberIDs []uuid.UUID `json:"member_ids"`
	CampID    *uuid.UUID  `json:"camp_id"`
	Message   string      `json:"message" validate:"required,max=480"`
}

// BulkSMSResult reports how the broadcast was queued.
type BulkSMSResult struct {
	Recipients    int         `json:"recipients"`
	BatchesQueued int         `json:"batches_queued"`
	Skipped       []uuid.UUID `json:"skipped"`
}

// BirthdayMember is one upcoming-birthday row.
type BirthdayMember struct {
	MemberID  uuid.UUID  `json:"member_id"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Phone     *string    `json:"phone,omitempty"`
	Birthday  *time.Time `json:"birthday,omitempty"`
}

// WishResult carries one birthday wish. Generated is false when the AI
// vendor timed out or failed and the static fallback was used.
type WishResult struct {
	MemberID  uuid.UUID `json:"member_id"`
	FirstName string    `json:"first_name"`
	Message   string    `json:"message"`
	Generated bool      `json:"generated"`
}

// Service exposes SMS broadcasts and birthday wishes.
type Service interface {
	QueueBulkSMS(ctx context.Context, caller authz.Caller, input BulkSMSInput) (*BulkSMSResult, error)
	UpcomingBirthdays(ctx context.Context, caller authz.Caller, from, to time.Time) ([]BirthdayMember, error)
	BirthdayWish(ctx context.Context, caller authz.Caller, memberID uuid.UUID) (*WishResult, error)
}

type service struct {
	members     memberSource
	emitter     outboxEmitter
	tx          txRunner
	wishes      wisher
	batchSize   int
	wishTimeout time.Duration
	logg        *logger.Logger
}

// NewService wires the messaging service.
func NewService(members memberSource, emitter outboxEmitter, tx txRunner, wishes wisher, msgCfg config.MessagingConfig, wishCfg config.WishesConfig, logg *logger.Logger) (Service, error) {
	if members == nil {
		return nil, fmt.Errorf("member source is required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter is required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if wishes == nil {
		return nil, fmt.Errorf("wish client is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	batchSize := msgCfg.SMSBatchSize
	if batchSize <= 0 {
		batchSize = defaultSMSBatchSize
	}
	wishTimeout := wishCfg.Timeout
	if wishTimeout <= 0 {
		wishTimeout = 8 * time.Second
	}
	return &service{
		members:     members,
		emitter:     emitter,
		tx:          tx,
		wishes:      wishes,
		batchSize:   batchSize,
		wishTimeout: wishTimeout,
		logg:        logg,
	}, nil
}

// QueueBulkSMS resolves recipients and queues one outbox event per batch of
// phone numbers. Each batch commits in its own transaction from its own
// goroutine; the vendor itself is never called here, so a flaky SMS gateway
// cannot fail this request.
func (s *service) QueueBulkSMS(ctx context.Context, caller authz.Caller, input BulkSMSInput) (*BulkSMSResult, error) {
	scope := authz.WriteScope(caller)
	if scope == authz.ScopeNone {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller cannot send messages")
	}
	input.Message = strings.TrimSpace(input.Message)
	if input.Message == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message is required")
	}
	if len(input.MemberIDs) == 0 && input.CampID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "select members or a camp")
	}

	recipients, skipped, err := s.resolveRecipients(ctx, caller, scope, input)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no recipients with a phone number")
	}

	batches := chunk(recipients, s.batchSize)
	actor := actorRef(caller)

	var (
		mu   sync.Mutex
		errs error
		wg   sync.WaitGroup
	)
	for _, batch := range batches {
		wg.Add(1)
		go func(phones []string) {
			defer wg.Done()
			batchID := uuid.New()
			err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
				return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
					EventType:     enums.EventSMSRequested,
					AggregateType: enums.AggregateMessage,
					AggregateID:   batchID,
					Actor:         actor,
					Data: payloads.SMSRequestedEvent{
						BatchID:    batchID,
						Recipients: phones,
						Message:    input.Message,
					},
					Version: 1,
				})
			})
			if err != nil {
				mu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("queue batch %s: %w", batchID, err))
				mu.Unlock()
			}
		}(batch)
	}
	wg.Wait()
	if errs != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, errs, "failed to queue message batches")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"recipients": len(recipients),
		"batches":    len(batches),
	})
	s.logg.Info(ctx, "bulk sms queued")
	return &BulkSMSResult{
		Recipients:    len(recipients),
		BatchesQueued: len(batches),
		Skipped:       skipped,
	}, nil
}

// UpcomingBirthdays lists active members with birthdays in the window,
// scoped to the caller's camp for non-admins.
func (s *service) UpcomingBirthdays(ctx context.Context, caller authz.Caller, from, to time.Time) ([]BirthdayMember, error) {
	var campID *uuid.UUID
	switch authz.ReadScope(caller) {
	case authz.ScopeAll:
	case authz.ScopeCamp:
		campID = caller.CampID
	default:
		return []BirthdayMember{}, nil
	}
	if from.IsZero() {
		from = time.Now()
	}
	if to.IsZero() {
		to = from.AddDate(0, 0, 7)
	}
	rows, err := s.members.ListBirthdaysBetween(ctx, campID, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list birthdays")
	}
	out := make([]BirthdayMember, 0, len(rows))
	for _, m := range rows {
		out = append(out, BirthdayMember{
			MemberID:  m.ID,
			FirstName: m.FirstName,
			LastName:  m.LastName,
			Phone:     m.Phone,
			Birthday:  m.Birthday,
		})
	}
	return out, nil
}

// BirthdayWish asks the AI vendor for a personalized wish, bounded by the
// configured timeout. Any failure degrades to the static wish instead of
// surfacing an error.
func (s *service) BirthdayWish(ctx context.Context, caller authz.Caller, memberID uuid.UUID) (*WishResult, error) {
	member, err := s.loadScoped(ctx, caller, memberID)
	if err != nil {
		return nil, err
	}

	wishCtx, cancel := context.WithTimeout(ctx, s.wishTimeout)
	defer cancel()

	message, err := s.wishes.Generate(wishCtx, member.FirstName)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "member_id", memberID.String()), "wish generation failed, using fallback")
		return &WishResult{
			MemberID:  member.ID,
			FirstName: member.FirstName,
			Message:   aiwish.StaticWish(member.FirstName),
			Generated: false,
		}, nil
	}
	return &WishResult{
		MemberID:  member.ID,
		FirstName: member.FirstName,
		Message:   message,
		Generated: true,
	}, nil
}

// resolveRecipients expands the selection into phone numbers, respecting the
// caller's scope. Members without a phone are reported as skipped.
func (s *service) resolveRecipients(ctx context.Context, caller authz.Caller, scope authz.Scope, input BulkSMSInput) ([]string, []uuid.UUID, error) {
	var selected []models.Member

	switch {
	case input.CampID != nil:
		campID := *input.CampID
		if scope == authz.ScopeCamp && (caller.CampID == nil || campID != *caller.CampID) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller cannot message another camp")
		}
		rows, err := s.members.ListActiveByCamp(ctx, campID)
		if err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load camp members")
		}
		selected = rows
	default:
		rows, err := s.members.FindByIDs(ctx, input.MemberIDs)
		if err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load members")
		}
		for _, m := range rows {
			if scope == authz.ScopeCamp && (m.CampID == nil || caller.CampID == nil || *m.CampID != *caller.CampID) {
				continue
			}
			selected = append(selected, m)
		}
	}

	var (
		phones  []string
		skipped []uuid.UUID
		seen    = map[string]bool{}
	)
	for _, m := range selected {
		if m.Phone == nil || strings.TrimSpace(*m.Phone) == "" {
			skipped = append(skipped, m.ID)
			continue
		}
		phone := strings.TrimSpace(*m.Phone)
		if seen[phone] {
			continue
		}
		seen[phone] = true
		phones = append(phones, phone)
	}
	return phones, skipped, nil
}

func (s *service) loadScoped(ctx context.Context, caller authz.Caller, memberID uuid.UUID) (*models.Member, error) {
	if authz.ReadScope(caller) == authz.ScopeNone {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "member not found")
	}
	member, err := s.members.FindByID(ctx, memberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "member not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load member")
	}
	if !authz.CampMatches(caller, member.CampID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "member not found")
	}
	return member, nil
}

func actorRef(caller authz.Caller) *outbox.ActorRef {
	if caller.AccountID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{
		AccountID: caller.AccountID,
		CampID:    caller.CampID,
		Role:      caller.Role.String(),
	}
}

// chunk splits items into consecutive slices of at most size elements.
func chunk(items []string, size int) [][]string {
	if size <= 0 {
		size = defaultSMSBatchSize
	}
	var out [][]string
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[start:end])
	}
	return out
}
