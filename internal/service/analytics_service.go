package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/talent-pipeline-api/internal/models"
	"github.com/noah-isme/talent-pipeline-api/pkg/config"
	"github.com/noah-isme/talent-pipeline-api/pkg/export"
	appErrors "github.com/noah-isme/talent-pipeline-api/pkg/errors"
)

type analyticsTaskSource interface {
	List(ctx context.Context, filter models.OnboardingFilter) ([]models.OnboardingTask, error)
}

// AnalyticsService derives reports from onboarding tasks. Aggregation is a
// pure function of the task set and a clock, so results are reproducible;
// Redis only memoises them.
type AnalyticsService struct {
	tasks   analyticsTaskSource
	cache   *CacheService
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	logger  *zap.Logger
	config  config.AnalyticsConfig
	dashTTL time.Duration
	now     func() time.Time
}

// NewAnalyticsService constructs an AnalyticsService instance.
func NewAnalyticsService(tasks analyticsTaskSource, cache *CacheService, logger *zap.Logger, cfg config.AnalyticsConfig, dashboard config.DashboardConfig) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{
		tasks:   tasks,
		cache:   cache,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
		config:  cfg,
		dashTTL: dashboard.CacheTTL,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source. Intended for tests.
func (s *AnalyticsService) WithClock(now func() time.Time) *AnalyticsService {
	s.now = now
	return s
}

// Report returns the analytics payload for a trailing month range.
func (s *AnalyticsService) Report(ctx context.Context, rangeMonths int) (*models.Report, error) {
	if rangeMonths <= 0 {
		rangeMonths = 6
	}

	cacheKey := fmt.Sprintf("analytics:report:%d", rangeMonths)
	var cached models.Report
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	tasks, err := s.tasks.List(ctx, models.OnboardingFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load onboardings")
	}

	report := s.buildReport(tasks, rangeMonths, s.now())

	if err := s.cache.Set(ctx, cacheKey, report, s.config.CacheTTL); err != nil {
		s.logger.Warn("failed to cache analytics report", zap.Error(err))
	}
	return report, nil
}

// Dashboard returns the landing-page summary.
func (s *AnalyticsService) Dashboard(ctx context.Context) (*models.DashboardMetrics, error) {
	const cacheKey = "dashboard:metrics"
	var cached models.DashboardMetrics
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, nil
	}

	tasks, err := s.tasks.List(ctx, models.OnboardingFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load onboardings")
	}

	now := s.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	metrics := &models.DashboardMetrics{TotalOnboarding: len(tasks)}
	var completed int
	var totalDays float64
	var measured int
	for _, task := range tasks {
		if models.IsDone(task.Status) {
			completed++
			if task.CompletedAt != nil {
				totalDays += task.CompletedAt.Sub(task.CreatedAt).Hours() / 24
				measured++
				if !task.CompletedAt.Before(monthStart) {
					metrics.CompletedThisMonth++
				}
			}
			continue
		}
		if task.Status != models.StatusRejected {
			metrics.PendingApprovals++
		}
	}
	if measured > 0 {
		metrics.AvgCompletionDays = totalDays / float64(measured)
	}
	metrics.TimeSavedHours = s.timeSaved(completed)
	metrics.CostSavingsUSD = metrics.TimeSavedHours * s.config.HourlyRateUSD

	if err := s.cache.Set(ctx, cacheKey, metrics, s.dashTTL); err != nil {
		s.logger.Warn("failed to cache dashboard metrics", zap.Error(err))
	}
	return metrics, nil
}

// ExportCSV renders the report for a range as CSV bytes.
func (s *AnalyticsService) ExportCSV(ctx context.Context, rangeMonths int) ([]byte, error) {
	report, err := s.Report(ctx, rangeMonths)
	if err != nil {
		return nil, err
	}
	payload, err := s.csv.Render(reportDataset(report))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return payload, nil
}

// ExportPDF renders the report for a range as PDF bytes.
func (s *AnalyticsService) ExportPDF(ctx context.Context, rangeMonths int) ([]byte, error) {
	report, err := s.Report(ctx, rangeMonths)
	if err != nil {
		return nil, err
	}
	payload, err := s.pdf.Render(reportDataset(report), "Onboarding Analytics")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return payload, nil
}

// buildReport aggregates tasks created within the trailing range into the
// report. Only the clock passed in is consulted.
func (s *AnalyticsService) buildReport(tasks []models.OnboardingTask, rangeMonths int, now time.Time) *models.Report {
	rangeStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(rangeMonths - 1), 0)

	report := &models.Report{
		RangeMonths:   rangeMonths,
		Departments:   []models.DepartmentMetrics{},
		MonthlyTrends: make([]models.MonthlyTrend, 0, rangeMonths),
	}

	type deptAcc struct {
		completed int
		pending   int
		totalDays float64
		measured  int
	}
	departments := map[string]*deptAcc{}

	type bucketAcc struct {
		started   int
		completed int
	}
	buckets := map[string]*bucketAcc{}
	for i := 0; i < rangeMonths; i++ {
		month := rangeStart.AddDate(0, i, 0)
		buckets[month.Format("2006-01")] = &bucketAcc{}
	}

	var totalDays float64
	var measured int
	for _, task := range tasks {
		if task.CreatedAt.Before(rangeStart) {
			continue
		}
		report.TotalOnboardings++

		dept := departments[task.Department]
		if dept == nil {
			dept = &deptAcc{}
			departments[task.Department] = dept
		}

		if bucket := buckets[task.CreatedAt.Format("2006-01")]; bucket != nil {
			bucket.started++
			if models.IsDone(task.Status) {
				bucket.completed++
			}
		}

		if models.IsDone(task.Status) {
			report.Completed++
			dept.completed++
			if task.CompletedAt != nil {
				days := task.CompletedAt.Sub(task.CreatedAt).Hours() / 24
				totalDays += days
				measured++
				dept.totalDays += days
				dept.measured++
			}
			continue
		}
		if task.Status != models.StatusRejected {
			dept.pending++
		}
	}

	if report.TotalOnboardings > 0 {
		report.CompletionRate = float64(report.Completed) / float64(report.TotalOnboardings) * 100
	}
	if measured > 0 {
		report.AvgCompletionDays = totalDays / float64(measured)
	}
	report.TimeSavedHours = s.timeSaved(report.Completed)
	report.CostSavingsUSD = report.TimeSavedHours * s.config.HourlyRateUSD

	names := make([]string, 0, len(departments))
	for name := range departments {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		acc := departments[name]
		metrics := models.DepartmentMetrics{
			Name:      name,
			Completed: acc.completed,
			Pending:   acc.pending,
		}
		if acc.measured > 0 {
			metrics.AvgDays = acc.totalDays / float64(acc.measured)
		}
		report.Departments = append(report.Departments, metrics)
	}

	for i := 0; i < rangeMonths; i++ {
		month := rangeStart.AddDate(0, i, 0)
		key := month.Format("2006-01")
		acc := buckets[key]
		report.MonthlyTrends = append(report.MonthlyTrends, models.MonthlyTrend{
			Month:          month.Format("Jan 2006"),
			Started:        acc.started,
			Completed:      acc.completed,
			TimeSavedHours: s.timeSaved(acc.completed),
		})
	}

	return report
}

func (s *AnalyticsService) timeSaved(completed int) float64 {
	return float64(completed) * float64(s.config.DaysSaved) * float64(s.config.HoursPerDay)
}

func reportDataset(report *models.Report) export.Dataset {
	rows := make([]map[string]string, 0, len(report.MonthlyTrends))
	for _, trend := range report.MonthlyTrends {
		rows = append(rows, map[string]string{
			"Month":            trend.Month,
			"Started":          fmt.Sprintf("%d", trend.Started),
			"Completed":        fmt.Sprintf("%d", trend.Completed),
			"Time Saved (hrs)": fmt.Sprintf("%.0f", trend.TimeSavedHours),
		})
	}
	return export.Dataset{
		Headers: []string{"Month", "Started", "Completed", "Time Saved (hrs)"},
		Rows:    rows,
	}
}
