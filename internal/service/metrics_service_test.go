package service

import (
	"context"
	"testing"
	"time"

	"docflow/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func fixedNow() time.Time {
	return time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
}

func newMetricsService(requests []*models.Request) (*MetricsService, *MockRequestRepository) {
	repo := new(MockRequestRepository)
	repo.On("ListSince", mock.Anything, mock.Anything).Return(requests, nil)
	svc := NewMetricsService(repo)
	svc.now = fixedNow
	return svc, repo
}

func publishedRequest(id uint, createdDaysAgo, leadDays int) *models.Request {
	created := fixedNow().Add(-time.Duration(createdDaysAgo) * 24 * time.Hour)
	published := created.Add(time.Duration(leadDays) * 24 * time.Hour)
	return &models.Request{
		ID:          id,
		Status:      models.StatusPublished,
		SlaDays:     7,
		CreatedAt:   created,
		PublishedAt: &published,
	}
}

func metricByKey(t *testing.T, rows []MetricRow, key string) MetricRow {
	t.Helper()
	for _, row := range rows {
		if row.Key == key {
			return row
		}
	}
	t.Fatalf("no metric with key %q", key)
	return MetricRow{}
}

func TestSummaryReturnsFourMetrics(t *testing.T) {
	svc, _ := newMetricsService(nil)

	rows, err := svc.Summary(context.Background())
	assert.NoError(t, err)
	assert.Len(t, rows, 4)

	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, row.Key)
		assert.Equal(t, "lower", row.Better)
		assert.True(t, row.Auto)
		assert.Len(t, row.Trend, 4)
	}
	assert.Equal(t, []string{"lead", "cycle", "rework", "sla"}, keys)
}

func TestLeadTimeAveragesPublishedRequests(t *testing.T) {
	// Two published in the current window (3 and 6 days lead), one unpublished
	// that should not count, one published in the previous window (10 days).
	unpublished := &models.Request{
		ID: 3, Status: models.StatusReview, SlaDays: 30,
		CreatedAt: fixedNow().Add(-5 * 24 * time.Hour),
	}
	svc, _ := newMetricsService([]*models.Request{
		publishedRequest(1, 20, 3),
		publishedRequest(2, 15, 6),
		unpublished,
		publishedRequest(4, 45, 10),
	})

	rows, err := svc.Summary(context.Background())
	assert.NoError(t, err)

	lead := metricByKey(t, rows, "lead")
	assert.Equal(t, 4.5, lead.Current)
	assert.Equal(t, 10.0, lead.Previous)
}

func TestCycleTimeUsesEarliestInProgressActivity(t *testing.T) {
	req := publishedRequest(1, 20, 8)
	firstStart := req.CreatedAt.Add(2 * 24 * time.Hour)
	restart := req.CreatedAt.Add(5 * 24 * time.Hour)
	req.Activities = []models.Activity{
		// Deliberately out of order: the later restart comes first.
		{RequestID: 1, Action: "status:IN_PROGRESS", CreatedAt: restart},
		{RequestID: 1, Action: "status:IN_PROGRESS", CreatedAt: firstStart},
	}

	// A published request with no IN_PROGRESS activity contributes nothing.
	noStart := publishedRequest(2, 18, 4)

	svc, _ := newMetricsService([]*models.Request{req, noStart})

	rows, err := svc.Summary(context.Background())
	assert.NoError(t, err)

	// publishedAt is createdAt+8d, earliest start is createdAt+2d: 6 days.
	cycle := metricByKey(t, rows, "cycle")
	assert.Equal(t, 6.0, cycle.Current)
}

func TestReworkRateCountsRepeatedReviews(t *testing.T) {
	// One of three requests went through REVIEW twice: 1/3 rounds to 33%.
	reworked := publishedRequest(1, 20, 5)
	reworked.Activities = []models.Activity{
		{RequestID: 1, Action: "status:REVIEW", CreatedAt: reworked.CreatedAt.Add(24 * time.Hour)},
		{RequestID: 1, Action: "status:REVIEW", CreatedAt: reworked.CreatedAt.Add(48 * time.Hour)},
	}
	single := publishedRequest(2, 15, 5)
	single.Activities = []models.Activity{
		{RequestID: 2, Action: "status:REVIEW", CreatedAt: single.CreatedAt.Add(24 * time.Hour)},
	}
	none := publishedRequest(3, 10, 5)

	svc, _ := newMetricsService([]*models.Request{reworked, single, none})

	rows, err := svc.Summary(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 33.0, metricByKey(t, rows, "rework").Current)
}

func TestSLABreachRateWholePercent(t *testing.T) {
	// Two of three requests breach: published late, and unpublished overdue.
	// 2/3 rounds to 67%.
	late := publishedRequest(1, 20, 10) // SLA 7, published after 10 days
	onTime := publishedRequest(2, 15, 5)
	overdue := &models.Request{
		ID: 3, Status: models.StatusTriage, SlaDays: 7,
		CreatedAt: fixedNow().Add(-20 * 24 * time.Hour),
	}

	svc, _ := newMetricsService([]*models.Request{late, onTime, overdue})

	rows, err := svc.Summary(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 67.0, metricByKey(t, rows, "sla").Current)
}

func TestEmptyWindowsYieldZeroes(t *testing.T) {
	svc, _ := newMetricsService(nil)

	rows, err := svc.Summary(context.Background())
	assert.NoError(t, err)
	for _, row := range rows {
		assert.Zero(t, row.Current, row.Key)
		assert.Zero(t, row.Previous, row.Key)
		for _, point := range row.Trend {
			assert.Zero(t, point.Value)
		}
	}
}

func TestTrendBucketsPartitionTheLastFourWeeks(t *testing.T) {
	// One request per weekly bucket, each with a distinct lead time.
	reqs := []*models.Request{
		publishedRequest(1, 25, 1), // W1: 28..21 days ago
		publishedRequest(2, 18, 2), // W2: 21..14
		publishedRequest(3, 11, 3), // W3: 14..7
		publishedRequest(4, 4, 4),  // W4: 7..0
	}
	svc, _ := newMetricsService(reqs)

	rows, err := svc.Summary(context.Background())
	assert.NoError(t, err)

	lead := metricByKey(t, rows, "lead")
	assert.Equal(t, []TrendPoint{
		{Week: "W1", Value: 1},
		{Week: "W2", Value: 2},
		{Week: "W3", Value: 3},
		{Week: "W4", Value: 4},
	}, lead.Trend)
}
