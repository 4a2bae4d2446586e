package members

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/osei-labs/flocktrack-backend/internal/accounts"
	"github.com/osei-labs/flocktrack-backend/internal/authz"
	"github.com/osei-labs/flocktrack-backend/pkg/db/models"
	"github.com/osei-labs/flocktrack-backend/pkg/enums"
	pkgerrors "github.com/osei-labs/flocktrack-backend/pkg/errors"
	"github.com/osei-labs/flocktrack-backend/pkg/outbox"
)

type fakeMemberRepo struct {
	listFn       func(ctx context.Context, filter ListFilter) ([]MemberRow, error)
	findByIDFn   func(ctx context.Context, id uuid.UUID) (*models.Member, error)
	findByToken  func(ctx context.Context, token string) (*models.Member, error)
	deleteFn     func(ctx context.Context, ids []uuid.UUID) (int64, error)
	setTokenFn   func(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error
	saveFn       func(ctx context.Context, member *models.Member) error
	createdTx    []*models.Member
	savedTx      []*models.Member
}

func (f *fakeMemberRepo) List(ctx context.Context, filter ListFilter) ([]MemberRow, error) {
	if f.listFn != nil {
		return f.listFn(ctx, filter)
	}
	return nil, nil
}

func (f *fakeMemberRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Member, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeMemberRepo) FindByUpdateToken(ctx context.Context, token string) (*models.Member, error) {
	if f.findByToken != nil {
		return f.findByToken(ctx, token)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeMemberRepo) CreateTx(tx *gorm.DB, member *models.Member) error {
	member.ID = uuid.New()
	f.createdTx = append(f.createdTx, member)
	return nil
}

func (f *fakeMemberRepo) SaveTx(tx *gorm.DB, member *models.Member) error {
	f.savedTx = append(f.savedTx, member)
	return nil
}

func (f *fakeMemberRepo) Save(ctx context.Context, member *models.Member) error {
	if f.saveFn != nil {
		return f.saveFn(ctx, member)
	}
	return nil
}

func (f *fakeMemberRepo) DeleteByIDs(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, ids)
	}
	return int64(len(ids)), nil
}

func (f *fakeMemberRepo) SetUpdateToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error {
	if f.setTokenFn != nil {
		return f.setTokenFn(ctx, id, token, expiresAt)
	}
	return nil
}

type fakeSync struct {
	calls []fakeSyncCall
	err   error
}

type fakeSyncCall struct {
	member *models.Member
	prev   *accounts.Snapshot
}

func (f *fakeSync) SyncOnWrite(ctx context.Context, tx *gorm.DB, member *models.Member, prev *accounts.Snapshot, actor *outbox.ActorRef) (*accounts.SyncOutcome, error) {
	f.calls = append(f.calls, fakeSyncCall{member: member, prev: prev})
	if f.err != nil {
		return nil, f.err
	}
	return &accounts.SyncOutcome{}, nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

func newTestService(t *testing.T, repo memberRepository, sync accounts.SyncService) Service {
	t.Helper()
	svc, err := NewService(repo, sync, fakeTxRunner{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func adminCaller() authz.Caller {
	return authz.Caller{AccountID: uuid.New(), Role: enums.AccountRoleAdmin}
}

func leaderCaller(campID uuid.UUID) authz.Caller {
	return authz.Caller{AccountID: uuid.New(), Role: enums.AccountRoleLeader, CampID: &campID}
}

func TestListScopesByCallerRole(t *testing.T) {
	campID := uuid.New()

	var capturedCamp *uuid.UUID
	repo := &fakeMemberRepo{
		listFn: func(ctx context.Context, filter ListFilter) ([]MemberRow, error) {
			capturedCamp = filter.CampID
			return []MemberRow{}, nil
		},
	}
	svc := newTestService(t, repo, &fakeSync{})

	if _, err := svc.List(context.Background(), adminCaller(), ListParams{}); err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if capturedCamp != nil {
		t.Fatalf("admin listing should be unscoped")
	}

	if _, err := svc.List(context.Background(), leaderCaller(campID), ListParams{}); err != nil {
		t.Fatalf("leader list: %v", err)
	}
	if capturedCamp == nil || *capturedCamp != campID {
		t.Fatalf("leader listing should filter to own camp")
	}
}

func TestListFailsClosedWithoutCamp(t *testing.T) {
	called := false
	repo := &fakeMemberRepo{
		listFn: func(ctx context.Context, filter ListFilter) ([]MemberRow, error) {
			called = true
			return nil, nil
		},
	}
	svc := newTestService(t, repo, &fakeSync{})

	caller := authz.Caller{AccountID: uuid.New(), Role: enums.AccountRoleLeader}
	result, err := svc.List(context.Background(), caller, ListParams{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(result.Members) != 0 {
		t.Fatalf("expected empty result, got %d rows", len(result.Members))
	}
	if called {
		t.Fatalf("repository should not be queried for a camp-less caller")
	}
}

func TestGetByIDHidesOutOfCampMembers(t *testing.T) {
	myCamp := uuid.New()
	otherCamp := uuid.New()
	memberID := uuid.New()

	repo := &fakeMemberRepo{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Member, error) {
			return &models.Member{ID: memberID, CampID: &otherCamp}, nil
		},
	}
	svc := newTestService(t, repo, &fakeSync{})

	_, err := svc.GetByID(context.Background(), leaderCaller(myCamp), memberID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("out-of-camp member should read as not found, got %v", err)
	}
}

func TestCreateRunsAccountSync(t *testing.T) {
	repo := &fakeMemberRepo{}
	sync := &fakeSync{}
	svc := newTestService(t, repo, sync)

	email := "ama@flocktrack.test"
	result, err := svc.Create(context.Background(), adminCaller(), CreateMemberInput{
		FirstName: "Ama",
		LastName:  "Mensah",
		Email:     &email,
		Role:      enums.MemberRoleLeader,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if result.Member == nil || result.Member.Role != enums.MemberRoleLeader {
		t.Fatalf("unexpected member %+v", result.Member)
	}
	if len(sync.calls) != 1 || sync.calls[0].prev != nil {
		t.Fatalf("create should sync with nil snapshot, calls=%d", len(sync.calls))
	}
}

func TestCreatePinsCampForLeader(t *testing.T) {
	campID := uuid.New()
	otherCamp := uuid.New()
	repo := &fakeMemberRepo{}
	svc := newTestService(t, repo, &fakeSync{})

	result, err := svc.Create(context.Background(), leaderCaller(campID), CreateMemberInput{
		FirstName: "Kofi",
		LastName:  "Boateng",
		CampID:    &otherCamp,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if result.Member.CampID == nil || *result.Member.CampID != campID {
		t.Fatalf("leader-created member should land in the leader's camp")
	}
}

func TestUpdatePassesPreviousSnapshot(t *testing.T) {
	memberID := uuid.New()
	repo := &fakeMemberRepo{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Member, error) {
			return &models.Member{
				ID:     memberID,
				Role:   enums.MemberRoleMember,
				Status: enums.MemberStatusActive,
			}, nil
		},
	}
	sync := &fakeSync{}
	svc := newTestService(t, repo, sync)

	role := enums.MemberRoleShepherd
	if _, err := svc.Update(context.Background(), adminCaller(), memberID, UpdateMemberInput{Role: &role}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(sync.calls) != 1 {
		t.Fatalf("expected one sync call")
	}
	prev := sync.calls[0].prev
	if prev == nil || prev.Role != enums.MemberRoleMember {
		t.Fatalf("sync should receive the pre-update snapshot, got %+v", prev)
	}
	if sync.calls[0].member.Role != enums.MemberRoleShepherd {
		t.Fatalf("sync should receive the updated member")
	}
}

func TestBulkDeleteDeclinesEmptySet(t *testing.T) {
	deleted := false
	repo := &fakeMemberRepo{
		deleteFn: func(ctx context.Context, ids []uuid.UUID) (int64, error) {
			deleted = true
			return 0, nil
		},
	}
	svc := newTestService(t, repo, &fakeSync{})

	_, err := svc.BulkDelete(context.Background(), adminCaller(), nil)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation decline, got %v", err)
	}
	if deleted {
		t.Fatalf("no mutation should run for an empty set")
	}
}

func TestBulkDeleteRemovesExactlyGivenIDs(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	var captured []uuid.UUID
	repo := &fakeMemberRepo{
		deleteFn: func(ctx context.Context, got []uuid.UUID) (int64, error) {
			captured = got
			return int64(len(got)), nil
		},
	}
	svc := newTestService(t, repo, &fakeSync{})

	count, err := svc.BulkDelete(context.Background(), adminCaller(), ids)
	if err != nil {
		t.Fatalf("bulk delete: %v", err)
	}
	if count != 2 || len(captured) != 2 {
		t.Fatalf("expected exactly the 2 requested rows, got count=%d", count)
	}
	if captured[0] != ids[0] || captured[1] != ids[1] {
		t.Fatalf("ids should pass through unchanged")
	}
}

func TestUpdateWithTokenSingleUse(t *testing.T) {
	memberID := uuid.New()
	token := "tok-valid"
	future := time.Now().Add(time.Hour)

	stored := &models.Member{
		ID:                   memberID,
		FirstName:            "Ama",
		LastName:             "Mensah",
		UpdateToken:          &token,
		UpdateTokenExpiresAt: &future,
	}

	var savedMember *models.Member
	repo := &fakeMemberRepo{
		findByToken: func(ctx context.Context, got string) (*models.Member, error) {
			if got == token && stored.UpdateToken != nil {
				return stored, nil
			}
			return nil, gorm.ErrRecordNotFound
		},
		saveFn: func(ctx context.Context, member *models.Member) error {
			savedMember = member
			return nil
		},
	}
	svc := newTestService(t, repo, &fakeSync{})

	phone := "+233200000001"
	dto, err := svc.UpdateWithToken(context.Background(), token, SelfUpdateInput{Phone: &phone})
	if err != nil {
		t.Fatalf("self update: %v", err)
	}
	if dto.Phone == nil || *dto.Phone != phone {
		t.Fatalf("phone not applied")
	}
	if savedMember.UpdateToken != nil || savedMember.UpdateTokenExpiresAt != nil {
		t.Fatalf("token should be invalidated on success")
	}

	// Second use of the consumed token is declined.
	_, err = svc.UpdateWithToken(context.Background(), token, SelfUpdateInput{Phone: &phone})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for reused token, got %v", err)
	}
}

func TestUpdateWithTokenExpired(t *testing.T) {
	token := "tok-expired"
	past := time.Now().Add(-time.Hour)
	stored := &models.Member{
		ID:                   uuid.New(),
		UpdateToken:          &token,
		UpdateTokenExpiresAt: &past,
	}

	repo := &fakeMemberRepo{
		findByToken: func(ctx context.Context, got string) (*models.Member, error) {
			return stored, nil
		},
	}
	svc := newTestService(t, repo, &fakeSync{})

	phone := "+233200000001"
	_, err := svc.UpdateWithToken(context.Background(), token, SelfUpdateInput{Phone: &phone})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for expired token, got %v", err)
	}
}
