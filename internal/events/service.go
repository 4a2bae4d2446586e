package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/osei-labs/flocktrack-backend/internal/authz"
	"github.com/osei-labs/flocktrack-backend/pkg/db/models"
	"github.com/osei-labs/flocktrack-backend/pkg/enums"
	pkgerrors "github.com/osei-labs/flocktrack-backend/pkg/errors"
	"github.com/osei-labs/flocktrack-backend/pkg/logger"
)

// eventRepository is the persistence surface the service needs.
type eventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	List(ctx context.Context, filter ListFilter) ([]models.Event, error)
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ListParams narrows an event listing request.
type ListParams struct {
	From *time.Time
	To   *time.Time
}

// Service exposes event management.
type Service interface {
	List(ctx context.Context, caller authz.Caller, params ListParams) ([]EventDTO, error)
	GetByID(ctx context.Context, caller authz.Caller, id uuid.UUID) (*EventDTO, error)
	Create(ctx context.Context, caller authz.Caller, input CreateEventInput) (*EventDTO, error)
	Update(ctx context.Context, caller authz.Caller, id uuid.UUID, input UpdateEventInput) (*EventDTO, error)
	Delete(ctx context.Context, caller authz.Caller, id uuid.UUID) error
}

type service struct {
	repo eventRepository
	logg *logger.Logger
}

// NewService wires the event service.
func NewService(repo eventRepository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("event repository is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{repo: repo, logg: logg}, nil
}

// List returns events visible to the caller: admins see everything, camp
// roles see their camp's events plus global (no-camp) events.
func (s *service) List(ctx context.Context, caller authz.Caller, params ListParams) ([]EventDTO, error) {
	filter := ListFilter{From: params.From, To: params.To}
	switch authz.ReadScope(caller) {
	case authz.ScopeAll:
	case authz.ScopeCamp:
		filter.CampID = caller.CampID
		filter.IncludeGlobal = true
	default:
		return []EventDTO{}, nil
	}

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list events")
	}
	out := make([]EventDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out, nil
}

func (s *service) GetByID(ctx context.Context, caller authz.Caller, id uuid.UUID) (*EventDTO, error) {
	event, err := s.loadScoped(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	return FromModel(event), nil
}

// Create records an event. Admins may target any camp or leave the event
// global; leaders are pinned to their own camp.
func (s *service) Create(ctx context.Context, caller authz.Caller, input CreateEventInput) (*EventDTO, error) {
	scope := authz.WriteScope(caller)
	if scope == authz.ScopeNone {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller cannot create events")
	}

	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event name is required")
	}
	eventType, err := enums.ParseEventType(input.Type)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
	}
	if input.Date.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event date is required")
	}

	campID := input.CampID
	if scope == authz.ScopeCamp {
		if campID != nil && (caller.CampID == nil || *campID != *caller.CampID) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "leaders can only create events for their own camp")
		}
		campID = caller.CampID
	}

	actor := caller.AccountID
	event := &models.Event{
		Name:               input.Name,
		Type:               eventType,
		Date:               input.Date,
		CampID:             campID,
		Recurring:          input.Recurring,
		MeetingURL:         input.MeetingURL,
		CreatedByAccountID: &actor,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create event")
	}
	s.logg.Info(s.logg.WithField(ctx, "event_id", event.ID.String()), "event created")
	return FromModel(event), nil
}

func (s *service) Update(ctx context.Context, caller authz.Caller, id uuid.UUID, input UpdateEventInput) (*EventDTO, error) {
	event, err := s.loadWritable(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "event name cannot be empty")
		}
		event.Name = name
	}
	if input.Type != nil {
		eventType, err := enums.ParseEventType(*input.Type)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, err.Error())
		}
		event.Type = eventType
	}
	if input.Date != nil {
		if input.Date.IsZero() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "event date cannot be empty")
		}
		event.Date = *input.Date
	}
	if input.Recurring != nil {
		event.Recurring = *input.Recurring
	}
	if input.MeetingURL != nil {
		event.MeetingURL = input.MeetingURL
	}
	if err := s.repo.Update(ctx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to update event")
	}
	return FromModel(event), nil
}

func (s *service) Delete(ctx context.Context, caller authz.Caller, id uuid.UUID) error {
	if _, err := s.loadWritable(ctx, caller, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to delete event")
	}
	s.logg.Info(s.logg.WithField(ctx, "event_id", id.String()), "event deleted")
	return nil
}

// loadScoped hides out-of-scope events behind not-found.
func (s *service) loadScoped(ctx context.Context, caller authz.Caller, id uuid.UUID) (*models.Event, error) {
	if authz.ReadScope(caller) == authz.ScopeNone {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
	}
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load event")
	}
	if !authz.CampMatches(caller, event.CampID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
	}
	return event, nil
}

// loadWritable additionally requires write scope over the event's camp.
// Global events are mutable only by admins.
func (s *service) loadWritable(ctx context.Context, caller authz.Caller, id uuid.UUID) (*models.Event, error) {
	event, err := s.loadScoped(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	switch authz.WriteScope(caller) {
	case authz.ScopeAll:
		return event, nil
	case authz.ScopeCamp:
		if event.CampID != nil && caller.CampID != nil && *event.CampID == *caller.CampID {
			return event, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller cannot modify this event")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller cannot modify events")
	}
}
