package members

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/osei-labs/flocktrack-backend/pkg/db/models"
	"github.com/osei-labs/flocktrack-backend/pkg/enums"
	"github.com/osei-labs/flocktrack-backend/pkg/pagination"
)

func setupMembersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	camps := `
CREATE TABLE IF NOT EXISTS camps (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  location TEXT,
  leader_account_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	members := `
CREATE TABLE IF NOT EXISTS members (
  id TEXT PRIMARY KEY,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  email TEXT,
  phone TEXT,
  role TEXT NOT NULL DEFAULT 'member',
  status TEXT NOT NULL DEFAULT 'active',
  category TEXT NOT NULL DEFAULT 'student',
  camp_id TEXT,
  birthday DATETIME,
  residence TEXT,
  region TEXT,
  guardian_name TEXT,
  guardian_phone TEXT,
  picture_url TEXT,
  tags TEXT,
  update_token TEXT,
  update_token_expires_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(camps).Error)
	require.NoError(t, db.Exec(members).Error)
	return db
}

func newCamp(t *testing.T, db *gorm.DB, name string) *models.Camp {
	t.Helper()

	camp := &models.Camp{
		ID:   uuid.New(),
		Name: name,
	}
	require.NoError(t, db.Create(camp).Error)
	return camp
}

func newMember(t *testing.T, db *gorm.DB, firstName, lastName string, campID *uuid.UUID, created time.Time) *models.Member {
	t.Helper()

	member := &models.Member{
		ID:        uuid.New(),
		FirstName: firstName,
		LastName:  lastName,
		Role:      enums.MemberRoleMember,
		Status:    enums.MemberStatusActive,
		Category:  enums.MemberCategoryStudent,
		CampID:    campID,
		CreatedAt: created,
		UpdatedAt: created,
	}
	require.NoError(t, db.Create(member).Error)
	return member
}

func TestRepositoryList_pagination(t *testing.T) {
	db := setupMembersTestDB(t)
	repo := NewRepository(db)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	oldest := newMember(t, db, "Ama", "Owusu", nil, base)
	middle := newMember(t, db, "Kojo", "Mensah", nil, base.Add(time.Minute))
	newest := newMember(t, db, "Efua", "Boateng", nil, base.Add(2*time.Minute))

	page, err := repo.List(context.Background(), ListFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, newest.ID, page[0].ID)
	assert.Equal(t, middle.ID, page[1].ID)

	rest, err := repo.List(context.Background(), ListFilter{
		Limit: 2,
		Cursor: &pagination.Cursor{
			CreatedAt: page[1].CreatedAt,
			ID:        page[1].ID,
		},
	})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, oldest.ID, rest[0].ID)
}

func TestRepositoryList_campScopeAndSearch(t *testing.T) {
	db := setupMembersTestDB(t)
	repo := NewRepository(db)

	alpha := newCamp(t, db, "Alpha Camp")
	beta := newCamp(t, db, "Beta Camp")

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	inCamp := newMember(t, db, "Abena", "Asante", &alpha.ID, base)
	newMember(t, db, "Abena", "Darko", &beta.ID, base.Add(time.Minute))

	rows, err := repo.List(context.Background(), ListFilter{CampID: &alpha.ID, Search: "abena"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, inCamp.ID, rows[0].ID)
	require.NotNil(t, rows[0].CampName)
	assert.Equal(t, "Alpha Camp", *rows[0].CampName)
}

func TestRepositoryClearExpiredUpdateTokens(t *testing.T) {
	db := setupMembersTestDB(t)
	repo := NewRepository(db)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expired := newMember(t, db, "Yaw", "Ansah", nil, now.Add(-time.Hour))
	live := newMember(t, db, "Akosua", "Oduro", nil, now.Add(-time.Hour))

	require.NoError(t, repo.SetUpdateToken(context.Background(), expired.ID, "stale-token", now.Add(-time.Minute)))
	require.NoError(t, repo.SetUpdateToken(context.Background(), live.ID, "live-token", now.Add(time.Hour)))

	cleared, err := repo.ClearExpiredUpdateTokens(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cleared)

	reloaded, err := repo.FindByID(context.Background(), expired.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.UpdateToken)
	assert.Nil(t, reloaded.UpdateTokenExpiresAt)

	kept, err := repo.FindByUpdateToken(context.Background(), "live-token")
	require.NoError(t, err)
	assert.Equal(t, live.ID, kept.ID)
}

func TestRepositoryListBirthdaysBetween(t *testing.T) {
	db := setupMembersTestDB(t)
	repo := NewRepository(db)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	setBirthday := func(m *models.Member, birthday time.Time) {
		m.Birthday = &birthday
		require.NoError(t, db.Save(m).Error)
	}

	celebrant := newMember(t, db, "Kwame", "Appiah", nil, base)
	setBirthday(celebrant, time.Date(1998, 3, 1, 0, 0, 0, 0, time.UTC))

	offDay := newMember(t, db, "Adwoa", "Sarpong", nil, base)
	setBirthday(offDay, time.Date(2001, 7, 15, 0, 0, 0, 0, time.UTC))

	inactive := newMember(t, db, "Kofi", "Adjei", nil, base)
	inactive.Status = enums.MemberStatusInactive
	birthday := time.Date(1995, 3, 1, 0, 0, 0, 0, time.UTC)
	inactive.Birthday = &birthday
	require.NoError(t, db.Save(inactive).Error)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rows, err := repo.ListBirthdaysBetween(context.Background(), nil, from, from.Add(24*time.Hour-time.Second))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, celebrant.ID, rows[0].ID)
}

func TestBirthdayInWindow_yearBoundary(t *testing.T) {
	from := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	to := time.Date(2027, 1, 1, 23, 59, 59, 0, time.UTC)

	newYearsEve := time.Date(1990, 12, 31, 0, 0, 0, 0, time.UTC)
	newYearsDay := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
	midsummer := time.Date(1990, 6, 15, 0, 0, 0, 0, time.UTC)

	assert.True(t, birthdayInWindow(newYearsEve, from, to))
	assert.True(t, birthdayInWindow(newYearsDay, from, to))
	assert.False(t, birthdayInWindow(midsummer, from, to))
}
