package attendance

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/osei-labs/flocktrack-backend/internal/authz"
	"github.com/osei-labs/flocktrack-backend/pkg/db/models"
	"github.com/osei-labs/flocktrack-backend/pkg/enums"
	pkgerrors "github.com/osei-labs/flocktrack-backend/pkg/errors"
	"github.com/osei-labs/flocktrack-backend/pkg/logger"
)

type fakeAttendanceRepo struct {
	upserts     []models.Attendance
	listByEvent func(ctx context.Context, eventID uuid.UUID) ([]models.Attendance, error)
}

func (f *fakeAttendanceRepo) UpsertBatch(ctx context.Context, records []models.Attendance) error {
	f.upserts = append(f.upserts, records...)
	return nil
}

func (f *fakeAttendanceRepo) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Attendance, error) {
	if f.listByEvent == nil {
		return nil, nil
	}
	return f.listByEvent(ctx, eventID)
}

type fakeEventFinder struct {
	events map[uuid.UUID]*models.Event
}

func (f *fakeEventFinder) FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	if event, ok := f.events[id]; ok {
		return event, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeMemberSource struct {
	members []models.Member
}

func (f *fakeMemberSource) ListActiveByCamp(ctx context.Context, campID uuid.UUID) ([]models.Member, error) {
	var out []models.Member
	for _, m := range f.members {
		if m.Status == enums.MemberStatusActive && m.CampID != nil && *m.CampID == campID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMemberSource) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Member, error) {
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []models.Member
	for _, m := range f.members {
		if want[m.ID] {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeAssignmentSource struct {
	byShepherd map[uuid.UUID][]uuid.UUID
}

func (f *fakeAssignmentSource) AssignedMemberIDs(ctx context.Context, shepherdAccountID uuid.UUID) ([]uuid.UUID, error) {
	return f.byShepherd[shepherdAccountID], nil
}

type fixture struct {
	campID     uuid.UUID
	eventID    uuid.UUID
	assigned   models.Member
	unassigned models.Member
	repo       *fakeAttendanceRepo
	events     *fakeEventFinder
	members    *fakeMemberSource
	assigns    *fakeAssignmentSource
	shepherd   authz.Caller
	leader     authz.Caller
	admin      authz.Caller
}

func newFixture(t *testing.T) (*fixture, Service) {
	t.Helper()
	campID := uuid.New()
	eventID := uuid.New()
	shepherdAccount := uuid.New()

	assigned := models.Member{ID: uuid.New(), FirstName: "Ama", LastName: "Boateng", Role: enums.MemberRoleMember, Status: enums.MemberStatusActive, CampID: &campID}
	unassigned := models.Member{ID: uuid.New(), FirstName: "Kofi", LastName: "Mensah", Role: enums.MemberRoleMember, Status: enums.MemberStatusActive, CampID: &campID}

	f := &fixture{
		campID:     campID,
		eventID:    eventID,
		assigned:   assigned,
		unassigned: unassigned,
		repo:       &fakeAttendanceRepo{},
		events: &fakeEventFinder{events: map[uuid.UUID]*models.Event{
			eventID: {ID: eventID, Name: "Sunday Service", CampID: &campID},
		}},
		members: &fakeMemberSource{members: []models.Member{assigned, unassigned}},
		assigns: &fakeAssignmentSource{byShepherd: map[uuid.UUID][]uuid.UUID{
			shepherdAccount: {assigned.ID},
		}},
		shepherd: authz.Caller{AccountID: shepherdAccount, Role: enums.AccountRoleShepherd, CampID: &campID},
		leader:   authz.Caller{AccountID: uuid.New(), Role: enums.AccountRoleLeader, CampID: &campID},
		admin:    authz.Caller{AccountID: uuid.New(), Role: enums.AccountRoleAdmin},
	}

	svc, err := NewService(f.repo, f.events, f.members, f.assigns, logger.New(logger.Options{ServiceName: "attendance-test"}))
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	return f, svc
}

func TestRosterCanEditTracksAssignments(t *testing.T) {
	f, svc := newFixture(t)

	roster, err := svc.Roster(context.Background(), f.shepherd, f.eventID)
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	if len(roster.Rows) != 2 {
		t.Fatalf("expected full camp roster, got %d rows", len(roster.Rows))
	}
	edit := make(map[uuid.UUID]bool, len(roster.Rows))
	for _, row := range roster.Rows {
		edit[row.MemberID] = row.CanEdit
	}
	if !edit[f.assigned.ID] {
		t.Fatal("assigned member must be editable by the shepherd")
	}
	if edit[f.unassigned.ID] {
		t.Fatal("unassigned member must not be editable by the shepherd")
	}
}

func TestRosterLeaderCanEditEveryone(t *testing.T) {
	f, svc := newFixture(t)

	roster, err := svc.Roster(context.Background(), f.leader, f.eventID)
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	for _, row := range roster.Rows {
		if !row.CanEdit {
			t.Fatalf("leader must be able to edit %s", row.MemberID)
		}
	}
}

func TestRosterMergesExistingMarks(t *testing.T) {
	f, svc := newFixture(t)
	notes := "arrived late"
	f.repo.listByEvent = func(ctx context.Context, eventID uuid.UUID) ([]models.Attendance, error) {
		return []models.Attendance{{
			MemberID: f.assigned.ID,
			EventID:  eventID,
			Status:   enums.AttendanceStatusPresent,
			Notes:    &notes,
		}}, nil
	}

	roster, err := svc.Roster(context.Background(), f.leader, f.eventID)
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	for _, row := range roster.Rows {
		switch row.MemberID {
		case f.assigned.ID:
			if row.Status == nil || *row.Status != enums.AttendanceStatusPresent {
				t.Fatalf("expected merged present status, got %+v", row.Status)
			}
			if row.Notes == nil || *row.Notes != notes {
				t.Fatalf("expected merged notes, got %+v", row.Notes)
			}
		default:
			if row.Status != nil {
				t.Fatal("unmarked member must have nil status")
			}
		}
	}
}

func TestRosterEmptyForForeignCampEvent(t *testing.T) {
	f, svc := newFixture(t)
	otherCamp := uuid.New()
	foreignEvent := uuid.New()
	f.events.events[foreignEvent] = &models.Event{ID: foreignEvent, Name: "Closed", CampID: &otherCamp}

	roster, err := svc.Roster(context.Background(), f.leader, foreignEvent)
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	if len(roster.Rows) != 0 {
		t.Fatalf("expected empty roster for foreign camp event, got %d", len(roster.Rows))
	}
}

func TestRosterEmptyForMissingEvent(t *testing.T) {
	f, svc := newFixture(t)

	roster, err := svc.Roster(context.Background(), f.leader, uuid.New())
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	if len(roster.Rows) != 0 {
		t.Fatal("missing event must produce an empty roster")
	}
}

func TestShepherdMarkOutsideAssignmentDeclined(t *testing.T) {
	f, svc := newFixture(t)

	err := svc.Mark(context.Background(), f.shepherd, f.eventID, MarkInput{
		MemberID: f.unassigned.ID,
		Status:   "present",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden decline, got %v", err)
	}
	if len(f.repo.upserts) != 0 {
		t.Fatal("declined mark must not write a row")
	}
}

func TestShepherdMarksAssignedMember(t *testing.T) {
	f, svc := newFixture(t)

	if err := svc.Mark(context.Background(), f.shepherd, f.eventID, MarkInput{
		MemberID: f.assigned.ID,
		Status:   "present",
	}); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if len(f.repo.upserts) != 1 {
		t.Fatalf("expected one upsert, got %d", len(f.repo.upserts))
	}
	record := f.repo.upserts[0]
	if record.Status != enums.AttendanceStatusPresent || record.MemberID != f.assigned.ID {
		t.Fatalf("unexpected record %+v", record)
	}
	if record.MarkedByAccountID == nil || *record.MarkedByAccountID != f.shepherd.AccountID {
		t.Fatal("record must carry the marking account")
	}
}

func TestDoubleMarkKeepsLastStatus(t *testing.T) {
	f, svc := newFixture(t)

	for _, status := range []string{"present", "absent"} {
		if err := svc.Mark(context.Background(), f.leader, f.eventID, MarkInput{
			MemberID: f.assigned.ID,
			Status:   status,
		}); err != nil {
			t.Fatalf("mark %s: %v", status, err)
		}
	}
	// Both writes go through the same conflict-target upsert, so the second
	// one overwrites rather than duplicating.
	last := f.repo.upserts[len(f.repo.upserts)-1]
	if last.Status != enums.AttendanceStatusAbsent {
		t.Fatalf("expected last status absent, got %s", last.Status)
	}
}

func TestBulkMarkReportsPerMemberDeclines(t *testing.T) {
	f, svc := newFixture(t)

	result, err := svc.BulkMark(context.Background(), f.shepherd, f.eventID, []MarkInput{
		{MemberID: f.assigned.ID, Status: "present"},
		{MemberID: f.unassigned.ID, Status: "present"},
		{MemberID: uuid.New(), Status: "present"},
	})
	if err != nil {
		t.Fatalf("bulk mark: %v", err)
	}
	if len(result.Applied) != 1 || result.Applied[0] != f.assigned.ID {
		t.Fatalf("expected one applied mark, got %+v", result.Applied)
	}
	if len(result.Declined) != 2 {
		t.Fatalf("expected two declines, got %+v", result.Declined)
	}
	if len(f.repo.upserts) != 1 {
		t.Fatalf("only accepted marks may be written, got %d", len(f.repo.upserts))
	}
}

func TestBulkMarkRejectsUnknownStatus(t *testing.T) {
	f, svc := newFixture(t)

	result, err := svc.BulkMark(context.Background(), f.admin, f.eventID, []MarkInput{
		{MemberID: f.assigned.ID, Status: "late"},
	})
	if err != nil {
		t.Fatalf("bulk mark: %v", err)
	}
	if len(result.Applied) != 0 || len(result.Declined) != 1 {
		t.Fatalf("expected single decline, got %+v", result)
	}
}

func TestBulkMarkEmptyBatchDeclined(t *testing.T) {
	f, svc := newFixture(t)

	_, err := svc.BulkMark(context.Background(), f.admin, f.eventID, nil)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation decline, got %v", err)
	}
}
