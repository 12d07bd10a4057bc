package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/talent-pipeline-api/internal/models"
	"github.com/noah-isme/talent-pipeline-api/pkg/config"
)

type mockTaskSource struct {
	tasks []models.OnboardingTask
}

func (m *mockTaskSource) List(ctx context.Context, filter models.OnboardingFilter) ([]models.OnboardingTask, error) {
	return m.tasks, nil
}

func analyticsConfig() config.AnalyticsConfig {
	return config.AnalyticsConfig{
		CacheTTL:      10 * time.Minute,
		HourlyRateUSD: 50,
		DaysSaved:     7,
		HoursPerDay:   8,
	}
}

func fixedClock() func() time.Time {
	at := time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func newTestAnalyticsService(tasks []models.OnboardingTask) *AnalyticsService {
	source := &mockTaskSource{tasks: tasks}
	return NewAnalyticsService(source, nil, zap.NewNop(), analyticsConfig(), config.DashboardConfig{}).
		WithClock(fixedClock())
}

func completedTask(dept string, createdAt time.Time, days int) models.OnboardingTask {
	completed := createdAt.AddDate(0, 0, days)
	return models.OnboardingTask{
		Department:  dept,
		Status:      models.StatusCompleted,
		CreatedAt:   createdAt,
		CompletedAt: &completed,
	}
}

func TestAnalyticsReportAggregates(t *testing.T) {
	may := time.Date(2025, time.May, 3, 0, 0, 0, 0, time.UTC)
	june := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	svc := newTestAnalyticsService([]models.OnboardingTask{
		completedTask("Engineering", may, 10),
		completedTask("Engineering", june, 4),
		{Department: "Sales", Status: models.StatusInProgress, CreatedAt: june},
		{Department: "Sales", Status: models.StatusRejected, CreatedAt: june},
		// outside the six month range, must not count
		completedTask("Engineering", time.Date(2024, time.November, 1, 0, 0, 0, 0, time.UTC), 5),
	})

	report, err := svc.Report(context.Background(), 6)
	require.NoError(t, err)

	assert.Equal(t, 6, report.RangeMonths)
	assert.Equal(t, 4, report.TotalOnboardings)
	assert.Equal(t, 2, report.Completed)
	assert.InDelta(t, 50.0, report.CompletionRate, 0.001)
	assert.InDelta(t, 7.0, report.AvgCompletionDays, 0.001)
	// 2 completed x 7 days x 8 hours
	assert.InDelta(t, 112.0, report.TimeSavedHours, 0.001)
	assert.InDelta(t, 5600.0, report.CostSavingsUSD, 0.001)
}

func TestAnalyticsReportDepartmentBreakdownSorted(t *testing.T) {
	june := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	svc := newTestAnalyticsService([]models.OnboardingTask{
		completedTask("Sales", june, 3),
		{Department: "Engineering", Status: models.StatusPending, CreatedAt: june},
		{Department: "Engineering", Status: models.StatusInProgress, CreatedAt: june},
	})

	report, err := svc.Report(context.Background(), 6)
	require.NoError(t, err)
	require.Len(t, report.Departments, 2)

	assert.Equal(t, "Engineering", report.Departments[0].Name)
	assert.Equal(t, 0, report.Departments[0].Completed)
	assert.Equal(t, 2, report.Departments[0].Pending)

	assert.Equal(t, "Sales", report.Departments[1].Name)
	assert.Equal(t, 1, report.Departments[1].Completed)
	assert.InDelta(t, 3.0, report.Departments[1].AvgDays, 0.001)
}

func TestAnalyticsReportMonthlyTrendBuckets(t *testing.T) {
	svc := newTestAnalyticsService([]models.OnboardingTask{
		completedTask("Engineering", time.Date(2025, time.April, 10, 0, 0, 0, 0, time.UTC), 6),
		{Department: "Engineering", Status: models.StatusPending, CreatedAt: time.Date(2025, time.April, 20, 0, 0, 0, 0, time.UTC)},
		{Department: "Sales", Status: models.StatusInProgress, CreatedAt: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)},
	})

	report, err := svc.Report(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, report.MonthlyTrends, 3)

	assert.Equal(t, "Apr 2025", report.MonthlyTrends[0].Month)
	assert.Equal(t, 2, report.MonthlyTrends[0].Started)
	assert.Equal(t, 1, report.MonthlyTrends[0].Completed)
	assert.InDelta(t, 56.0, report.MonthlyTrends[0].TimeSavedHours, 0.001)

	assert.Equal(t, "May 2025", report.MonthlyTrends[1].Month)
	assert.Zero(t, report.MonthlyTrends[1].Started)

	assert.Equal(t, "Jun 2025", report.MonthlyTrends[2].Month)
	assert.Equal(t, 1, report.MonthlyTrends[2].Started)
	assert.Zero(t, report.MonthlyTrends[2].Completed)
}

func TestAnalyticsReportMonthEndCreationStaysInItsMonth(t *testing.T) {
	lastInstant := time.Date(2025, time.April, 30, 23, 59, 59, 0, time.UTC)
	svc := newTestAnalyticsService([]models.OnboardingTask{
		{Department: "Engineering", Status: models.StatusPending, CreatedAt: lastInstant},
	})

	report, err := svc.Report(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, report.MonthlyTrends, 3)

	assert.Equal(t, "Apr 2025", report.MonthlyTrends[0].Month)
	assert.Equal(t, 1, report.MonthlyTrends[0].Started)
	assert.Equal(t, "May 2025", report.MonthlyTrends[1].Month)
	assert.Zero(t, report.MonthlyTrends[1].Started)
}

func TestAnalyticsReportDefaultsRange(t *testing.T) {
	svc := newTestAnalyticsService(nil)

	report, err := svc.Report(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 6, report.RangeMonths)
	assert.Len(t, report.MonthlyTrends, 6)
	assert.Zero(t, report.CompletionRate)
}

func TestAnalyticsDashboardCounts(t *testing.T) {
	thisMonth := time.Date(2025, time.June, 5, 0, 0, 0, 0, time.UTC)
	lastMonth := time.Date(2025, time.May, 5, 0, 0, 0, 0, time.UTC)
	svc := newTestAnalyticsService([]models.OnboardingTask{
		completedTask("Engineering", thisMonth, 5),
		completedTask("Engineering", lastMonth, 10),
		{Department: "Sales", Status: models.StatusInProgress, CreatedAt: thisMonth},
		{Department: "Sales", Status: models.StatusCompleted, CreatedAt: thisMonth},
		{Department: "Sales", Status: models.StatusRejected, CreatedAt: thisMonth},
	})

	metrics, err := svc.Dashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, metrics.TotalOnboarding)
	// in-progress counts, rejected does not; completed without a timestamp
	// still counts as done
	assert.Equal(t, 1, metrics.PendingApprovals)
	assert.Equal(t, 1, metrics.CompletedThisMonth)
	assert.InDelta(t, 7.5, metrics.AvgCompletionDays, 0.001)
	// 3 done x 7 days x 8 hours x 50 USD
	assert.InDelta(t, 168.0, metrics.TimeSavedHours, 0.001)
	assert.InDelta(t, 8400.0, metrics.CostSavingsUSD, 0.001)
}

func TestAnalyticsExportCSVContainsTrendRows(t *testing.T) {
	svc := newTestAnalyticsService([]models.OnboardingTask{
		completedTask("Engineering", time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC), 4),
	})

	payload, err := svc.ExportCSV(context.Background(), 3)
	require.NoError(t, err)
	out := string(payload)
	assert.Contains(t, out, "Month,Started,Completed,Time Saved (hrs)")
	assert.Contains(t, out, "Jun 2025,1,1,56")
}

func TestAnalyticsExportPDFProducesDocument(t *testing.T) {
	svc := newTestAnalyticsService([]models.OnboardingTask{
		completedTask("Engineering", time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC), 4),
	})

	payload, err := svc.ExportPDF(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, len(payload) > 0)
	assert.Equal(t, "%PDF", string(payload[:4]))
}
