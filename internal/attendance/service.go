package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/osei-labs/flocktrack-backend/internal/authz"
	"github.com/osei-labs/flocktrack-backend/pkg/db/models"
	"github.com/osei-labs/flocktrack-backend/pkg/enums"
	pkgerrors "github.com/osei-labs/flocktrack-backend/pkg/errors"
	"github.com/osei-labs/flocktrack-backend/pkg/logger"
)

type attendanceRepository interface {
	UpsertBatch(ctx context.Context, records []models.Attendance) error
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Attendance, error)
}

type eventFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

type memberSource interface {
	ListActiveByCamp(ctx context.Context, campID uuid.UUID) ([]models.Member, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Member, error)
}

type assignmentSource interface {
	AssignedMemberIDs(ctx context.Context, shepherdAccountID uuid.UUID) ([]uuid.UUID, error)
}

// Service exposes event rosters and attendance marking.
type Service interface {
	Roster(ctx context.Context, caller authz.Caller, eventID uuid.UUID) (*RosterResult, error)
	Mark(ctx context.Context, caller authz.Caller, eventID uuid.UUID, input MarkInput) error
	BulkMark(ctx context.Context, caller authz.Caller, eventID uuid.UUID, inputs []MarkInput) (*BulkMarkResult, error)
}

type service struct {
	repo        attendanceRepository
	events      eventFinder
	members     memberSource
	assignments assignmentSource
	logg        *logger.Logger
}

// NewService wires the attendance service.
func NewService(repo attendanceRepository, events eventFinder, members memberSource, assignments assignmentSource, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("attendance repository is required")
	}
	if events == nil {
		return nil, fmt.Errorf("event finder is required")
	}
	if members == nil {
		return nil, fmt.Errorf("member source is required")
	}
	if assignments == nil {
		return nil, fmt.Errorf("assignment source is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{repo: repo, events: events, members: members, assignments: assignments, logg: logg}, nil
}

// Roster lists every active member of the event's camp with any existing
// mark merged in. An event outside the caller's scope, or one whose camp
// cannot be resolved, yields an empty roster rather than an error.
func (s *service) Roster(ctx context.Context, caller authz.Caller, eventID uuid.UUID) (*RosterResult, error) {
	empty := &RosterResult{EventID: eventID, Rows: []RosterRow{}}
	if authz.ReadScope(caller) == authz.ScopeNone {
		return empty, nil
	}

	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return empty, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load event")
	}
	if !authz.CampMatches(caller, event.CampID) {
		return empty, nil
	}

	rosterCamp := event.CampID
	if rosterCamp == nil {
		// Global events roster against the caller's own camp.
		rosterCamp = caller.CampID
	}
	if rosterCamp == nil {
		return empty, nil
	}

	roster, err := s.members.ListActiveByCamp(ctx, *rosterCamp)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load camp roster")
	}

	marks, err := s.repo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load attendance")
	}
	byMember := make(map[uuid.UUID]*models.Attendance, len(marks))
	for i := range marks {
		byMember[marks[i].MemberID] = &marks[i]
	}

	editable, err := s.editableSet(ctx, caller)
	if err != nil {
		return nil, err
	}

	rows := make([]RosterRow, 0, len(roster))
	for _, member := range roster {
		row := RosterRow{
			MemberID:  member.ID,
			FirstName: member.FirstName,
			LastName:  member.LastName,
			Role:      member.Role,
			CanEdit:   editable == nil || editable[member.ID],
		}
		if mark, ok := byMember[member.ID]; ok {
			status := mark.Status
			row.Status = &status
			row.Notes = mark.Notes
		}
		rows = append(rows, row)
	}
	return &RosterResult{EventID: eventID, Rows: rows}, nil
}

// Mark records a single attendance mark. Out-of-scope marks return typed
// declines and write nothing.
func (s *service) Mark(ctx context.Context, caller authz.Caller, eventID uuid.UUID, input MarkInput) error {
	result, err := s.BulkMark(ctx, caller, eventID, []MarkInput{input})
	if err != nil {
		return err
	}
	if len(result.Declined) > 0 {
		return pkgerrors.New(pkgerrors.CodeForbidden, result.Declined[0].Reason)
	}
	return nil
}

// BulkMark validates each mark independently and upserts the accepted set in
// one statement. Declines are reported per member, never as a failure of the
// whole batch.
func (s *service) BulkMark(ctx context.Context, caller authz.Caller, eventID uuid.UUID, inputs []MarkInput) (*BulkMarkResult, error) {
	if len(inputs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no marks provided")
	}
	scope := authz.AttendanceWriteScope(caller)
	if scope == authz.ScopeNone {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller cannot mark attendance")
	}

	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load event")
	}
	if !authz.CampMatches(caller, event.CampID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
	}

	ids := make([]uuid.UUID, 0, len(inputs))
	for _, in := range inputs {
		ids = append(ids, in.MemberID)
	}
	found, err := s.members.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load members")
	}
	memberByID := make(map[uuid.UUID]*models.Member, len(found))
	for i := range found {
		memberByID[found[i].ID] = &found[i]
	}

	editable, err := s.editableSet(ctx, caller)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	actor := caller.AccountID
	result := &BulkMarkResult{EventID: eventID, Applied: []uuid.UUID{}, Declined: []MarkDecline{}, MarkedAt: now}
	records := make([]models.Attendance, 0, len(inputs))
	seen := make(map[uuid.UUID]bool, len(inputs))

	for _, in := range inputs {
		if seen[in.MemberID] {
			result.Declined = append(result.Declined, MarkDecline{MemberID: in.MemberID, Reason: "duplicate member in batch"})
			continue
		}
		seen[in.MemberID] = true

		status, err := enums.ParseAttendanceStatus(in.Status)
		if err != nil {
			result.Declined = append(result.Declined, MarkDecline{MemberID: in.MemberID, Reason: err.Error()})
			continue
		}
		member, ok := memberByID[in.MemberID]
		if !ok {
			result.Declined = append(result.Declined, MarkDecline{MemberID: in.MemberID, Reason: "member not found"})
			continue
		}
		if reason := s.declineReason(caller, scope, member, editable); reason != "" {
			result.Declined = append(result.Declined, MarkDecline{MemberID: in.MemberID, Reason: reason})
			continue
		}

		records = append(records, models.Attendance{
			MemberID:          in.MemberID,
			EventID:           eventID,
			Status:            status,
			Notes:             in.Notes,
			MarkedByAccountID: &actor,
		})
		result.Applied = append(result.Applied, in.MemberID)
	}

	if err := s.repo.UpsertBatch(ctx, records); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to write attendance")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_id": eventID.String(),
		"applied":  len(result.Applied),
		"declined": len(result.Declined),
	})
	s.logg.Info(ctx, "attendance marked")
	return result, nil
}

// declineReason checks one member against the caller's write scope.
func (s *service) declineReason(caller authz.Caller, scope authz.Scope, member *models.Member, editable map[uuid.UUID]bool) string {
	switch scope {
	case authz.ScopeAll:
		return ""
	case authz.ScopeCamp:
		if member.CampID != nil && caller.CampID != nil && *member.CampID == *caller.CampID {
			return ""
		}
		return "member is outside the caller's camp"
	case authz.ScopeAssigned:
		if member.CampID == nil || caller.CampID == nil || *member.CampID != *caller.CampID {
			return "member is outside the caller's camp"
		}
		if editable != nil && editable[member.ID] {
			return ""
		}
		return "member is not assigned to the caller"
	default:
		return "caller cannot mark attendance"
	}
}

// editableSet resolves which member ids the caller may mark. nil means
// every in-scope member is editable.
func (s *service) editableSet(ctx context.Context, caller authz.Caller) (map[uuid.UUID]bool, error) {
	if authz.AttendanceWriteScope(caller) != authz.ScopeAssigned {
		return nil, nil
	}
	ids, err := s.assignments.AssignedMemberIDs(ctx, caller.AccountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load assignments")
	}
	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}
