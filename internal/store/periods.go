// ABOUTME: Report period creation, listing and approval toggling
// ABOUTME: Periods are scoped to a school; students only see approved ones

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

type periodRow struct {
	ID        int64  `db:"id"`
	SchoolID  int64  `db:"school_id"`
	Name      string `db:"name"`
	Approved  bool   `db:"approved"`
	StartDate string `db:"start_date"`
}

func (r periodRow) period() ReportPeriod {
	return ReportPeriod{
		ID:        r.ID,
		SchoolID:  r.SchoolID,
		Name:      r.Name,
		Approved:  r.Approved,
		StartDate: parseTimestamp(r.StartDate),
	}
}

func toPeriods(rows []periodRow) []ReportPeriod {
	periods := make([]ReportPeriod, 0, len(rows))
	for _, r := range rows {
		periods = append(periods, r.period())
	}
	return periods
}

// CreateReportPeriod adds an unapproved period starting now.
func (s *SQLStore) CreateReportPeriod(ctx context.Context, schoolID int64, name string) (*ReportPeriod, error) {
	p := &ReportPeriod{SchoolID: schoolID, Name: name, StartDate: time.Now().UTC().Truncate(time.Second)}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`
			INSERT INTO report_periods (school_id, name, start_date, approved)
			VALUES (?, ?, ?, 0)
			RETURNING id
		`)
		return tx.GetContext(ctx, &p.ID, query, schoolID, name, timestamp(p.StartDate))
	})
	if err != nil {
		return nil, fmt.Errorf("creating report period: %w", err)
	}

	s.logger.Info("created report period", "school_id", schoolID, "period_id", p.ID, "name", name)
	return p, nil
}

// ToggleReportPeriodApproval flips the approved flag in a single statement
// and returns the new value.
func (s *SQLStore) ToggleReportPeriodApproval(ctx context.Context, periodID int64) (bool, error) {
	var approved bool
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`
			UPDATE report_periods SET approved = 1 - approved
			WHERE id = ?
			RETURNING approved
		`)
		err := tx.GetContext(ctx, &approved, query, periodID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, err
		}
		return false, fmt.Errorf("toggling report period: %w", err)
	}

	s.logger.Info("toggled report period approval", "period_id", periodID, "approved", approved)
	return approved, nil
}

// ReportPeriods returns all periods of a school, most recent start first.
func (s *SQLStore) ReportPeriods(ctx context.Context, schoolID int64) ([]ReportPeriod, error) {
	var rows []periodRow
	query := s.db.Rebind(`
		SELECT id, school_id, name, approved, start_date
		FROM report_periods
		WHERE school_id = ?
		ORDER BY start_date DESC, id DESC
	`)
	if err := s.db.SelectContext(ctx, &rows, query, schoolID); err != nil {
		return nil, fmt.Errorf("listing report periods: %w", err)
	}
	return toPeriods(rows), nil
}

// ApprovedReportPeriods returns the approved periods of a school, newest first.
func (s *SQLStore) ApprovedReportPeriods(ctx context.Context, schoolID int64) ([]ReportPeriod, error) {
	var rows []periodRow
	query := s.db.Rebind(`
		SELECT id, school_id, name, approved, start_date
		FROM report_periods
		WHERE school_id = ? AND approved = 1
		ORDER BY id DESC
	`)
	if err := s.db.SelectContext(ctx, &rows, query, schoolID); err != nil {
		return nil, fmt.Errorf("listing approved report periods: %w", err)
	}
	return toPeriods(rows), nil
}
