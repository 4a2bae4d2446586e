package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/osei-labs/flocktrack-backend/internal/authz"
	pkgerrors "github.com/osei-labs/flocktrack-backend/pkg/errors"
	"github.com/osei-labs/flocktrack-backend/pkg/logger"
)

type analyticsRepository interface {
	CountMembersBy(ctx context.Context, column string, campID *uuid.UUID) (map[string]int64, error)
	EventAttendance(ctx context.Context, campID *uuid.UUID, from, to time.Time) ([]EventAttendanceRow, error)
	CountNewConverts(ctx context.Context, campID *uuid.UUID, from, to time.Time) (int64, error)
}

// MemberCounts groups membership totals three ways.
type MemberCounts struct {
	ByRole     map[string]int64 `json:"by_role"`
	ByStatus   map[string]int64 `json:"by_status"`
	ByCategory map[string]int64 `json:"by_category"`
}

// EventRate is the attendance rate for one event, as a percentage with one
// decimal place. Events with no marks report a zero rate.
type EventRate struct {
	EventID uuid.UUID       `json:"event_id"`
	Name    string          `json:"name"`
	Date    time.Time       `json:"date"`
	Present int64           `json:"present"`
	Marked  int64           `json:"marked"`
	Rate    decimal.Decimal `json:"rate"`
}

// AttendanceReport covers a date range: per-event rates plus the overall
// rate across every mark in the window.
type AttendanceReport struct {
	From    time.Time       `json:"from"`
	To      time.Time       `json:"to"`
	Events  []EventRate     `json:"events"`
	Overall decimal.Decimal `json:"overall"`
}

// Service exposes the reporting endpoints.
type Service interface {
	MemberCounts(ctx context.Context, caller authz.Caller) (*MemberCounts, error)
	AttendanceRates(ctx context.Context, caller authz.Caller, from, to time.Time) (*AttendanceReport, error)
	NewConverts(ctx context.Context, caller authz.Caller, from, to time.Time) (int64, error)
}

type service struct {
	repo analyticsRepository
	logg *logger.Logger
}

// NewService wires the analytics service.
func NewService(repo analyticsRepository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("analytics repository is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{repo: repo, logg: logg}, nil
}

var hundred = decimal.NewFromInt(100)

func (s *service) MemberCounts(ctx context.Context, caller authz.Caller) (*MemberCounts, error) {
	campID, ok := scopeCamp(caller)
	if !ok {
		return &MemberCounts{ByRole: map[string]int64{}, ByStatus: map[string]int64{}, ByCategory: map[string]int64{}}, nil
	}

	counts := &MemberCounts{}
	var err error
	if counts.ByRole, err = s.repo.CountMembersBy(ctx, "role", campID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to count members by role")
	}
	if counts.ByStatus, err = s.repo.CountMembersBy(ctx, "status", campID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to count members by status")
	}
	if counts.ByCategory, err = s.repo.CountMembersBy(ctx, "category", campID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to count members by category")
	}
	return counts, nil
}

func (s *service) AttendanceRates(ctx context.Context, caller authz.Caller, from, to time.Time) (*AttendanceReport, error) {
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a valid date range is required")
	}
	campID, ok := scopeCamp(caller)
	if !ok {
		return &AttendanceReport{From: from, To: to, Events: []EventRate{}, Overall: decimal.Zero}, nil
	}

	rows, err := s.repo.EventAttendance(ctx, campID, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to aggregate attendance")
	}

	report := &AttendanceReport{From: from, To: to, Events: make([]EventRate, 0, len(rows))}
	var totalPresent, totalMarked int64
	for _, row := range rows {
		report.Events = append(report.Events, EventRate{
			EventID: row.EventID,
			Name:    row.Name,
			Date:    row.Date,
			Present: row.Present,
			Marked:  row.Marked,
			Rate:    rate(row.Present, row.Marked),
		})
		totalPresent += row.Present
		totalMarked += row.Marked
	}
	report.Overall = rate(totalPresent, totalMarked)
	return report, nil
}

func (s *service) NewConverts(ctx context.Context, caller authz.Caller, from, to time.Time) (int64, error) {
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "a valid date range is required")
	}
	campID, ok := scopeCamp(caller)
	if !ok {
		return 0, nil
	}
	count, err := s.repo.CountNewConverts(ctx, campID, from, to)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to count new converts")
	}
	return count, nil
}

// rate converts present/marked into a percentage with one decimal place.
func rate(present, marked int64) decimal.Decimal {
	if marked == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(present).
		Div(decimal.NewFromInt(marked)).
		Mul(hundred).
		Round(1)
}

// scopeCamp resolves the caller's reporting scope: (nil, true) is global,
// (camp, true) is camp-bound, and false means no access at all.
func scopeCamp(caller authz.Caller) (*uuid.UUID, bool) {
	switch authz.ReadScope(caller) {
	case authz.ScopeAll:
		return nil, true
	case authz.ScopeCamp:
		return caller.CampID, true
	default:
		return nil, false
	}
}
