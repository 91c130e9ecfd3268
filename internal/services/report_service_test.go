package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/novaocc/cora/internal/database/testutil"
	"github.com/novaocc/cora/internal/push"
	apperrors "github.com/novaocc/cora/pkg/errors"
)

type recordingNotifier struct {
	titles []string
	err    error
}

func (r *recordingNotifier) NotifyNewReport(ctx context.Context, title string) (push.FanoutSummary, error) {
	r.titles = append(r.titles, title)
	if r.err != nil {
		return push.FanoutSummary{}, r.err
	}
	return push.FanoutSummary{Attempted: 1, Succeeded: 1}, nil
}

func TestCreateReportTriggersFanout(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	notifier := &recordingNotifier{}
	svc, err := NewReportService(db, notifier)
	require.NoError(t, err)

	report, err := svc.Create(context.Background(), CreateReportInput{
		Title:       "Pothole on Main St",
		Description: "Large pothole near the crosswalk",
		CreatedBy:   "user-1",
	})
	require.NoError(t, err)
	require.NotEmpty(t, report.ID)
	require.Equal(t, 1, report.CategoryID)
	require.Equal(t, []string{"Pothole on Main St"}, notifier.titles)
}

func TestCreateReportSurvivesFanoutFailure(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	notifier := &recordingNotifier{err: errors.New("push service down")}
	svc, err := NewReportService(db, notifier)
	require.NoError(t, err)

	report, err := svc.Create(context.Background(), CreateReportInput{
		Title:       "Broken streetlight",
		Description: "Dark corner at 5th and Oak",
		CreatedBy:   "user-1",
	})
	require.NoError(t, err, "delivery problems must never fail the report")
	require.NotEmpty(t, report.ID)
}

func TestCreateReportValidation(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	svc, err := NewReportService(db, nil)
	require.NoError(t, err)

	ctx := context.Background()

	_, err = svc.Create(ctx, CreateReportInput{Title: "t", Description: "d"})
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = svc.Create(ctx, CreateReportInput{Title: "only title", CreatedBy: "user-1"})
	requireBadRequest(t, err)

	_, err = svc.Create(ctx, CreateReportInput{Description: "only description", CreatedBy: "user-1"})
	requireBadRequest(t, err)
}

func TestListReportsNewestFirst(t *testing.T) {
	db := testutil.MustOpenTestDB(t)

	svc, err := NewReportService(db, nil)
	require.NoError(t, err)

	ctx := context.Background()

	for _, title := range []string{"first", "second", "third"} {
		_, err := svc.Create(ctx, CreateReportInput{
			Title:       title,
			Description: "details",
			CreatedBy:   "user-1",
		})
		require.NoError(t, err)
	}

	rows, err := svc.List(ctx, ListReportsInput{Limit: 2})
	require.NoError(t, err)
	require.Len(t, rows, 2)
}
