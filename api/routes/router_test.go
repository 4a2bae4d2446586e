package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/osei-labs/flocktrack-backend/internal/analytics"
	"github.com/osei-labs/flocktrack-backend/internal/assignments"
	"github.com/osei-labs/flocktrack-backend/internal/attendance"
	"github.com/osei-labs/flocktrack-backend/internal/auth"
	"github.com/osei-labs/flocktrack-backend/internal/authz"
	"github.com/osei-labs/flocktrack-backend/internal/camps"
	"github.com/osei-labs/flocktrack-backend/internal/events"
	"github.com/osei-labs/flocktrack-backend/internal/followups"
	"github.com/osei-labs/flocktrack-backend/internal/members"
	"github.com/osei-labs/flocktrack-backend/internal/messaging"
	pkgAuth "github.com/osei-labs/flocktrack-backend/pkg/auth"
	"github.com/osei-labs/flocktrack-backend/pkg/auth/session"
	"github.com/osei-labs/flocktrack-backend/pkg/config"
	"github.com/osei-labs/flocktrack-backend/pkg/enums"
	"github.com/osei-labs/flocktrack-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubSessionManager struct{}

func (stubSessionManager) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

func (stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	return "", "", nil
}

func (stubSessionManager) Revoke(ctx context.Context, accessID string) error { return nil }

type stubAuthService struct{}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return &auth.LoginResponse{AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (stubAuthService) Refresh(ctx context.Context, req auth.RefreshRequest) (*auth.LoginResponse, error) {
	return &auth.LoginResponse{AccessToken: "access", RefreshToken: "refresh"}, nil
}

func (stubAuthService) Logout(ctx context.Context, accessToken string) error { return nil }

type stubMemberService struct {
	listCalls int
}

func (s *stubMemberService) List(ctx context.Context, caller authz.Caller, params members.ListParams) (*members.ListResult, error) {
	s.listCalls++
	return &members.ListResult{}, nil
}

func (s *stubMemberService) GetByID(ctx context.Context, caller authz.Caller, id uuid.UUID) (*members.MemberDTO, error) {
	panic("unimplemented")
}

func (s *stubMemberService) Create(ctx context.Context, caller authz.Caller, input members.CreateMemberInput) (*members.WriteResult, error) {
	panic("unimplemented")
}

func (s *stubMemberService) Update(ctx context.Context, caller authz.Caller, id uuid.UUID, input members.UpdateMemberInput) (*members.WriteResult, error) {
	panic("unimplemented")
}

func (s *stubMemberService) BulkDelete(ctx context.Context, caller authz.Caller, ids []uuid.UUID) (int64, error) {
	panic("unimplemented")
}

func (s *stubMemberService) IssueUpdateToken(ctx context.Context, caller authz.Caller, id uuid.UUID) (string, time.Time, error) {
	panic("unimplemented")
}

func (s *stubMemberService) UpdateWithToken(ctx context.Context, token string, input members.SelfUpdateInput) (*members.MemberDTO, error) {
	return &members.MemberDTO{ID: uuid.New()}, nil
}

type stubCampService struct{}

func (stubCampService) List(ctx context.Context, caller authz.Caller) ([]camps.CampDTO, error) {
	return nil, nil
}

func (stubCampService) GetByID(ctx context.Context, caller authz.Caller, id uuid.UUID) (*camps.CampDTO, error) {
	panic("unimplemented")
}

func (stubCampService) Create(ctx context.Context, caller authz.Caller, input camps.CreateCampInput) (*camps.CampDTO, error) {
	return &camps.CampDTO{ID: uuid.New(), Name: input.Name}, nil
}

func (stubCampService) Update(ctx context.Context, caller authz.Caller, id uuid.UUID, input camps.UpdateCampInput) (*camps.CampDTO, error) {
	panic("unimplemented")
}

func (stubCampService) Delete(ctx context.Context, caller authz.Caller, id uuid.UUID) error {
	panic("unimplemented")
}

type stubEventService struct{}

func (stubEventService) List(ctx context.Context, caller authz.Caller, params events.ListParams) ([]events.EventDTO, error) {
	return nil, nil
}

func (stubEventService) GetByID(ctx context.Context, caller authz.Caller, id uuid.UUID) (*events.EventDTO, error) {
	panic("unimplemented")
}

func (stubEventService) Create(ctx context.Context, caller authz.Caller, input events.CreateEventInput) (*events.EventDTO, error) {
	panic("unimplemented")
}

func (stubEventService) Update(ctx context.Context, caller authz.Caller, id uuid.UUID, input events.UpdateEventInput) (*events.EventDTO, error) {
	panic("unimplemented")
}

func (stubEventService) Delete(ctx context.Context, caller authz.Caller, id uuid.UUID) error {
	panic("unimplemented")
}

type stubAttendanceService struct{}

func (stubAttendanceService) Roster(ctx context.Context, caller authz.Caller, eventID uuid.UUID) (*attendance.RosterResult, error) {
	return &attendance.RosterResult{EventID: eventID}, nil
}

func (stubAttendanceService) Mark(ctx context.Context, caller authz.Caller, eventID uuid.UUID, input attendance.MarkInput) error {
	panic("unimplemented")
}

func (stubAttendanceService) BulkMark(ctx context.Context, caller authz.Caller, eventID uuid.UUID, inputs []attendance.MarkInput) (*attendance.BulkMarkResult, error) {
	panic("unimplemented")
}

type stubAssignmentService struct{}

func (stubAssignmentService) Assign(ctx context.Context, caller authz.Caller, shepherdAccountID uuid.UUID, memberIDs []uuid.UUID) (*assignments.AssignResult, error) {
	panic("unimplemented")
}

func (stubAssignmentService) Unassign(ctx context.Context, caller authz.Caller, shepherdAccountID, memberID uuid.UUID) error {
	panic("unimplemented")
}

func (stubAssignmentService) ListShepherdMembers(ctx context.Context, caller authz.Caller, shepherdAccountID uuid.UUID) ([]members.MemberDTO, error) {
	return nil, nil
}

func (stubAssignmentService) List(ctx context.Context, caller authz.Caller) ([]assignments.AssignmentDTO, error) {
	return nil, nil
}

type stubFollowUpService struct{}

func (stubFollowUpService) Log(ctx context.Context, caller authz.Caller, memberID uuid.UUID, input followups.LogInput) (*followups.FollowUpDTO, error) {
	panic("unimplemented")
}

func (stubFollowUpService) ListForMember(ctx context.Context, caller authz.Caller, memberID uuid.UUID) ([]followups.FollowUpDTO, error) {
	return nil, nil
}

func (stubFollowUpService) DueCallbacks(ctx context.Context, caller authz.Caller, by time.Time) ([]followups.FollowUpDTO, error) {
	return nil, nil
}

type stubAnalyticsService struct{}

func (stubAnalyticsService) MemberCounts(ctx context.Context, caller authz.Caller) (*analytics.MemberCounts, error) {
	return &analytics.MemberCounts{}, nil
}

func (stubAnalyticsService) AttendanceRates(ctx context.Context, caller authz.Caller, from, to time.Time) (*analytics.AttendanceReport, error) {
	panic("unimplemented")
}

func (stubAnalyticsService) NewConverts(ctx context.Context, caller authz.Caller, from, to time.Time) (int64, error) {
	panic("unimplemented")
}

type stubMessagingService struct{}

func (stubMessagingService) QueueBulkSMS(ctx context.Context, caller authz.Caller, input messaging.BulkSMSInput) (*messaging.BulkSMSResult, error) {
	return &messaging.BulkSMSResult{Recipients: 1, BatchesQueued: 1}, nil
}

func (stubMessagingService) UpcomingBirthdays(ctx context.Context, caller authz.Caller, from, to time.Time) ([]messaging.BirthdayMember, error) {
	return nil, nil
}

func (stubMessagingService) BirthdayWish(ctx context.Context, caller authz.Caller, memberID uuid.UUID) (*messaging.WishResult, error) {
	panic("unimplemented")
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "flocktrack", ExpirationMinutes: 60},
	}
}

func buildRouter(t *testing.T, memberSvc *stubMemberService) http.Handler {
	t.Helper()
	cfg := testConfig()
	return NewRouter(cfg, logger.New(logger.Options{ServiceName: "test"}), stubPinger{}, nil, stubSessionManager{}, Services{
		Auth:        stubAuthService{},
		Members:     memberSvc,
		Camps:       stubCampService{},
		Events:      stubEventService{},
		Attendance:  stubAttendanceService{},
		Assignments: stubAssignmentService{},
		FollowUps:   stubFollowUpService{},
		Analytics:   stubAnalyticsService{},
		Messaging:   stubMessagingService{},
	})
}

func mintToken(t *testing.T, role enums.AccountRole, campID *uuid.UUID) string {
	t.Helper()
	cfg := testConfig()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		AccountID: uuid.New(),
		Role:      role,
		CampID:    campID,
		JTI:       session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLive(t *testing.T) {
	router := buildRouter(t, &stubMemberService{})
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestMembersRequireAuth(t *testing.T) {
	router := buildRouter(t, &stubMemberService{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/members/", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestMembersListWithToken(t *testing.T) {
	memberSvc := &stubMemberService{}
	router := buildRouter(t, memberSvc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/members/", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, enums.AccountRoleAdmin, nil))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if memberSvc.listCalls != 1 {
		t.Fatalf("expected list call, got %d", memberSvc.listCalls)
	}
}

func TestCampCreateRequiresAdminRole(t *testing.T) {
	router := buildRouter(t, &stubMemberService{})
	campID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/camps/", strings.NewReader(`{"name":"North Camp"}`))
	req.Header.Set("Authorization", "Bearer "+mintToken(t, enums.AccountRoleShepherd, &campID))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/camps/", strings.NewReader(`{"name":"North Camp"}`))
	req.Header.Set("Authorization", "Bearer "+mintToken(t, enums.AccountRoleAdmin, nil))
	req.Header.Set("Content-Type", "application/json")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestPublicSelfUpdateNeedsNoToken(t *testing.T) {
	router := buildRouter(t, &stubMemberService{})

	req := httptest.NewRequest(http.MethodPut, "/api/public/members/update/some-token", strings.NewReader(`{"phone":"+233201234567"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestMessagingGateExcludesShepherds(t *testing.T) {
	router := buildRouter(t, &stubMemberService{})
	campID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messaging/sms", strings.NewReader(`{"message":"service moved to 4pm"}`))
	req.Header.Set("Authorization", "Bearer "+mintToken(t, enums.AccountRoleShepherd, &campID))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}
