package models

import "time"

// Report is the full analytics payload for a selected trailing range.
type Report struct {
	RangeMonths       int                 `json:"range_months"`
	TotalOnboardings  int                 `json:"total_onboardings"`
	Completed         int                 `json:"completed"`
	CompletionRate    float64             `json:"completion_rate"`
	AvgCompletionDays float64             `json:"avg_completion_days"`
	TimeSavedHours    float64             `json:"time_saved_hours"`
	CostSavingsUSD    float64             `json:"cost_savings_usd"`
	Departments       []DepartmentMetrics `json:"departments"`
	MonthlyTrends     []MonthlyTrend      `json:"monthly_trends"`
}

// DepartmentMetrics is the per-department breakdown.
type DepartmentMetrics struct {
	Name      string  `json:"name"`
	Completed int     `json:"completed"`
	Pending   int     `json:"pending"`
	AvgDays   float64 `json:"avg_days"`
}

// MonthlyTrend is one calendar-month bucket of the trailing trend.
type MonthlyTrend struct {
	Month          string  `json:"month"`
	Started        int     `json:"started"`
	Completed      int     `json:"completed"`
	TimeSavedHours float64 `json:"time_saved_hours"`
}

// SystemMetrics is a lightweight runtime snapshot for operators.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// DashboardMetrics is the landing-page summary.
type DashboardMetrics struct {
	TotalOnboarding    int     `json:"total_onboarding"`
	PendingApprovals   int     `json:"pending_approvals"`
	CompletedThisMonth int     `json:"completed_this_month"`
	AvgCompletionDays  float64 `json:"avg_completion_days"`
	TimeSavedHours     float64 `json:"time_saved_hours"`
	CostSavingsUSD     float64 `json:"cost_savings_usd"`
}
