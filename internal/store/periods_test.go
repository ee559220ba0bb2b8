// ABOUTME: Tests for report period creation, ordering and approval toggling

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateReportPeriod(t *testing.T) {
	s, f := setupFixture(t)
	ctx := context.Background()

	p, err := s.CreateReportPeriod(ctx, f.SchoolID, "Autumn")
	require.NoError(t, err)
	assert.NotZero(t, p.ID)
	assert.False(t, p.Approved)
	assert.False(t, p.StartDate.IsZero())

	periods, err := s.ReportPeriods(ctx, f.SchoolID)
	require.NoError(t, err)
	require.Len(t, periods, 1)
	assert.Equal(t, "Autumn", periods[0].Name)
	assert.True(t, p.StartDate.Equal(periods[0].StartDate))
}

func TestReportPeriods_Ordering(t *testing.T) {
	s, f := setupFixture(t)
	ctx := context.Background()

	first, err := s.CreateReportPeriod(ctx, f.SchoolID, "First")
	require.NoError(t, err)
	second, err := s.CreateReportPeriod(ctx, f.SchoolID, "Second")
	require.NoError(t, err)

	periods, err := s.ReportPeriods(ctx, f.SchoolID)
	require.NoError(t, err)
	require.Len(t, periods, 2)
	assert.Equal(t, second.ID, periods[0].ID)
	assert.Equal(t, first.ID, periods[1].ID)

	other, err := s.ReportPeriods(ctx, f.SchoolID+100)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestToggleReportPeriodApproval_RoundTrip(t *testing.T) {
	s, f := setupFixture(t)
	ctx := context.Background()

	p, err := s.CreateReportPeriod(ctx, f.SchoolID, "Winter")
	require.NoError(t, err)

	approved, err := s.ToggleReportPeriodApproval(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, approved)

	list, err := s.ApprovedReportPeriods(ctx, f.SchoolID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Approved)

	approved, err = s.ToggleReportPeriodApproval(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, approved)

	list, err = s.ApprovedReportPeriods(ctx, f.SchoolID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestToggleReportPeriodApproval_NotFound(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.ToggleReportPeriodApproval(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotFound)
}
