package camps

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

type fakeCampRepo struct {
	createFn       func(ctx context.Context, camp *models.Camp) error
	findByIDFn     func(ctx context.Context, id uuid.UUID) (*models.Camp, error)
	listFn         func(ctx context.Context) ([]CampCountRow, error)
	updateFn       func(ctx context.Context, camp *models.Camp) error
	deleteFn       func(ctx context.Context, id uuid.UUID) error
	countMembersFn func(ctx context.Context, campID uuid.UUID) (int64, error)
}

func (f *fakeCampRepo) Create(ctx context.Context, camp *models.Camp) error {
	if f.createFn == nil {
		return nil
	}
	return f.createFn(ctx, camp)
}

func (f *fakeCampRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Camp, error) {
	if f.findByIDFn == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.findByIDFn(ctx, id)
}

func (f *fakeCampRepo) List(ctx context.Context) ([]CampCountRow, error) {
	if f.listFn == nil {
		return nil, nil
	}
	return f.listFn(ctx)
}

func (f *fakeCampRepo) Update(ctx context.Context, camp *models.Camp) error {
	if f.updateFn == nil {
		return nil
	}
	return f.updateFn(ctx, camp)
}

func (f *fakeCampRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if f.deleteFn == nil {
		return nil
	}
	return f.deleteFn(ctx, id)
}

func (f *fakeCampRepo) CountMembers(ctx context.Context, campID uuid.UUID) (int64, error) {
	if f.countMembersFn == nil {
		return 0, nil
	}
	return f.countMembersFn(ctx, campID)
}

func newTestService(t *testing.T, repo campRepository) Service {
	t.Helper()
	svc, err := NewService(repo, logger.New(logger.Options{ServiceName: "camps-test"}))
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	return svc
}

func adminCaller() authz.Caller {
	return authz.Caller{AccountID: uuid.New(), Role: enums.AccountRoleAdmin}
}

func leaderCaller(campID uuid.UUID) authz.Caller {
	return authz.Caller{AccountID: uuid.New(), Role: enums.AccountRoleLeader, CampID: &campID}
}

func TestListScopesCampVisibility(t *testing.T) {
	ownCamp := uuid.New()
	otherCamp := uuid.New()
	repo := &fakeCampRepo{
		listFn: func(ctx context.Context) ([]CampCountRow, error) {
			return []CampCountRow{
				{Camp: models.Camp{ID: ownCamp, Name: "Alpha"}, MemberCount: 12},
				{Camp: models.Camp{ID: otherCamp, Name: "Bravo"}, MemberCount: 7},
			}, nil
		},
	}
	svc := newTestService(t, repo)

	all, err := svc.List(context.Background(), adminCaller())
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("admin expected 2 camps, got %d", len(all))
	}

	mine, err := svc.List(context.Background(), leaderCaller(ownCamp))
	if err != nil {
		t.Fatalf("leader list: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != ownCamp {
		t.Fatalf("leader expected only own camp, got %+v", mine)
	}
	if mine[0].MemberCount != 12 {
		t.Fatalf("expected member count 12, got %d", mine[0].MemberCount)
	}

	none, err := svc.List(context.Background(), authz.Caller{AccountID: uuid.New(), Role: enums.AccountRoleShepherd})
	if err != nil {
		t.Fatalf("unscoped list: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("camp role without camp should see nothing, got %d", len(none))
	}
}

func TestCreateRequiresAdmin(t *testing.T) {
	svc := newTestService(t, &fakeCampRepo{})

	_, err := svc.Create(context.Background(), leaderCaller(uuid.New()), CreateCampInput{Name: "Zion"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCreateRejectsBlankName(t *testing.T) {
	svc := newTestService(t, &fakeCampRepo{})

	_, err := svc.Create(context.Background(), adminCaller(), CreateCampInput{Name: "   "})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation decline, got %v", err)
	}
}

func TestDeleteDeclinedWhileMembersRemain(t *testing.T) {
	campID := uuid.New()
	deleted := false
	repo := &fakeCampRepo{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Camp, error) {
			return &models.Camp{ID: campID, Name: "Zion"}, nil
		},
		countMembersFn: func(ctx context.Context, id uuid.UUID) (int64, error) {
			return 3, nil
		},
		deleteFn: func(ctx context.Context, id uuid.UUID) error {
			deleted = true
			return nil
		},
	}
	svc := newTestService(t, repo)

	err := svc.Delete(context.Background(), adminCaller(), campID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict decline, got %v", err)
	}
	if deleted {
		t.Fatal("delete must not run while members reference the camp")
	}
}

func TestDeleteRemovesEmptyCamp(t *testing.T) {
	campID := uuid.New()
	deleted := false
	repo := &fakeCampRepo{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Camp, error) {
			return &models.Camp{ID: campID, Name: "Zion"}, nil
		},
		countMembersFn: func(ctx context.Context, id uuid.UUID) (int64, error) {
			return 0, nil
		},
		deleteFn: func(ctx context.Context, id uuid.UUID) error {
			deleted = true
			return nil
		},
	}
	svc := newTestService(t, repo)

	if err := svc.Delete(context.Background(), adminCaller(), campID); err != nil {
		t.Fatalf("delete empty camp: %v", err)
	}
	if !deleted {
		t.Fatal("expected delete to run")
	}
}

func TestUpdateCanClearLeaderDesignation(t *testing.T) {
	campID := uuid.New()
	leader := uuid.New()
	var saved *models.Camp
	repo := &fakeCampRepo{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Camp, error) {
			return &models.Camp{ID: campID, Name: "Zion", LeaderAccountID: &leader}, nil
		},
		updateFn: func(ctx context.Context, camp *models.Camp) error {
			saved = camp
			return nil
		},
	}
	svc := newTestService(t, repo)

	var cleared *uuid.UUID
	dto, err := svc.Update(context.Background(), adminCaller(), campID, UpdateCampInput{LeaderAccountID: &cleared})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if saved == nil || saved.LeaderAccountID != nil {
		t.Fatalf("expected leader designation cleared, got %+v", saved)
	}
	if dto.LeaderAccountID != nil {
		t.Fatal("dto should reflect cleared leader")
	}
}

func TestGetByIDHidesOtherCamps(t *testing.T) {
	ownCamp := uuid.New()
	otherCamp := uuid.New()
	repo := &fakeCampRepo{
		findByIDFn: func(ctx context.Context, id uuid.UUID) (*models.Camp, error) {
			return &models.Camp{ID: id, Name: "Hidden"}, nil
		},
	}
	svc := newTestService(t, repo)

	_, err := svc.GetByID(context.Background(), leaderCaller(ownCamp), otherCamp)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not-found for out-of-camp lookup, got %v", err)
	}
}
