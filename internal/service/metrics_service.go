package service

import (
	"context"
	"math"
	"time"

	"docflow/internal/cache"
	"docflow/internal/models"
	"docflow/internal/repository"
	"docflow/internal/sla"
)

// MetricRow is one delivery metric with its current and previous 30-day
// values plus a four-week trend.
type MetricRow struct {
	Key        string       `json:"key"`
	Title      string       `json:"title"`
	Unit       string       `json:"unit"`
	Current    float64      `json:"current"`
	Previous   float64      `json:"previous"`
	Target     float64      `json:"target"`
	Better     string       `json:"better"`
	Definition string       `json:"definition"`
	Formula    string       `json:"formula"`
	Breakdown  []string     `json:"breakdown"`
	Trend      []TrendPoint `json:"trend"`
	Auto       bool         `json:"auto"`
}

// TrendPoint is one weekly bucket in a metric's trend.
type TrendPoint struct {
	Week  string  `json:"week"`
	Value float64 `json:"value"`
}

// MetricsService computes delivery metrics from requests and their activity
// logs.
type MetricsService struct {
	requestRepo repository.RequestRepository
	now         func() time.Time
}

// NewMetricsService creates a new MetricsService.
func NewMetricsService(requestRepo repository.RequestRepository) *MetricsService {
	return &MetricsService{
		requestRepo: requestRepo,
		now:         time.Now,
	}
}

const metricsDay = 24 * time.Hour

// Summary computes the four delivery metrics over the last 30 days compared
// with the 30 days before, with weekly trend buckets. Results are cached
// briefly since every dashboard load asks for the same numbers.
func (s *MetricsService) Summary(ctx context.Context) ([]MetricRow, error) {
	var rows []MetricRow
	err := cache.Aside(ctx, cache.MetricsSummaryKey, &rows, cache.MetricsTTL, func() error {
		computed, err := s.compute(ctx)
		if err != nil {
			return err
		}
		rows = computed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *MetricsService) compute(ctx context.Context) ([]MetricRow, error) {
	now := s.now().UTC()
	currentStart := now.Add(-30 * metricsDay)
	previousStart := now.Add(-60 * metricsDay)

	// Windowing below filters on creation time, so nothing created before
	// the previous window can contribute.
	requests, err := s.requestRepo.ListSince(ctx, previousStart)
	if err != nil {
		return nil, err
	}

	windowed := func(from, to time.Time) []*models.Request {
		var out []*models.Request
		for _, req := range requests {
			if !req.CreatedAt.Before(from) && !req.CreatedAt.After(to) {
				out = append(out, req)
			}
		}
		return out
	}

	current := windowed(currentStart, now)
	previous := windowed(previousStart, currentStart)

	trend := func(metric func([]*models.Request) float64) []TrendPoint {
		weeks := []string{"W1", "W2", "W3", "W4"}
		points := make([]TrendPoint, 0, len(weeks))
		for i, week := range weeks {
			from := now.Add(-time.Duration(28-7*i) * metricsDay)
			to := now.Add(-time.Duration(21-7*i) * metricsDay)
			points = append(points, TrendPoint{Week: week, Value: metric(windowed(from, to))})
		}
		return points
	}

	leadMetric := func(list []*models.Request) float64 { return avgDays(leadTimes(list)) }
	cycleMetric := func(list []*models.Request) float64 { return avgDays(cycleTimes(list)) }
	reworkMetric := func(list []*models.Request) float64 { return reworkRate(list) }
	slaMetric := func(list []*models.Request) float64 { return slaBreachRate(list, now) }

	rows := []MetricRow{
		{
			Key:        "lead",
			Title:      "Lead time",
			Unit:       "days",
			Current:    leadMetric(current),
			Previous:   leadMetric(previous),
			Target:     5,
			Better:     "lower",
			Definition: "Time from request creation to documentation publish.",
			Formula:    "Lead time = publishedAt - createdAt",
			Breakdown:  []string{"Source: Request.createdAt and publishedAt", "30-day window", "Compared with the previous period"},
			Trend:      trend(leadMetric),
			Auto:       true,
		},
		{
			Key:        "cycle",
			Title:      "Cycle time",
			Unit:       "days",
			Current:    cycleMetric(current),
			Previous:   cycleMetric(previous),
			Target:     3,
			Better:     "lower",
			Definition: "Active working time from start to publish, waiting excluded.",
			Formula:    "Cycle time = first IN_PROGRESS -> publishedAt",
			Breakdown:  []string{"Source: Activity status IN_PROGRESS", "30-day window", "Compared with the previous period"},
			Trend:      trend(cycleMetric),
			Auto:       true,
		},
		{
			Key:        "rework",
			Title:      "Rework rate",
			Unit:       "%",
			Current:    reworkMetric(current),
			Previous:   reworkMetric(previous),
			Target:     10,
			Better:     "lower",
			Definition: "Share of tasks needing repeated edits after review.",
			Formula:    "Rework = tasks_with_review>1 / total_tasks",
			Breakdown:  []string{"Source: Activity status REVIEW", "30-day window", "Compared with the previous period"},
			Trend:      trend(reworkMetric),
			Auto:       true,
		},
		{
			Key:        "sla",
			Title:      "SLA breach",
			Unit:       "%",
			Current:    slaMetric(current),
			Previous:   slaMetric(previous),
			Target:     5,
			Better:     "lower",
			Definition: "Share of tasks delivered past their SLA.",
			Formula:    "SLA breach = overdue / total_tasks",
			Breakdown:  []string{"Source: dueAt + publishedAt", "30-day window", "Compared with the previous period"},
			Trend:      trend(slaMetric),
			Auto:       true,
		},
	}
	return rows, nil
}

// leadTimes returns, for each published request, the whole days from creation
// to publish.
func leadTimes(list []*models.Request) []float64 {
	var out []float64
	for _, req := range list {
		if req.PublishedAt == nil {
			continue
		}
		out = append(out, float64(sla.DaysBetween(req.CreatedAt, *req.PublishedAt)))
	}
	return out
}

// cycleTimes returns, for each published request with a recorded work start,
// the whole days from the first IN_PROGRESS transition to publish.
func cycleTimes(list []*models.Request) []float64 {
	var out []float64
	inProgress := models.StatusAction(models.StatusInProgress)
	for _, req := range list {
		if req.PublishedAt == nil {
			continue
		}
		var start *time.Time
		for i := range req.Activities {
			act := &req.Activities[i]
			if act.Action != inProgress {
				continue
			}
			if start == nil || act.CreatedAt.Before(*start) {
				start = &act.CreatedAt
			}
		}
		if start == nil {
			continue
		}
		out = append(out, float64(sla.DaysBetween(*start, *req.PublishedAt)))
	}
	return out
}

// reworkRate returns the whole-percent share of requests that passed REVIEW
// more than once.
func reworkRate(list []*models.Request) float64 {
	if len(list) == 0 {
		return 0
	}
	review := models.StatusAction(models.StatusReview)
	rework := 0
	for _, req := range list {
		count := 0
		for _, act := range req.Activities {
			if act.Action == review {
				count++
			}
		}
		if count > 1 {
			rework++
		}
	}
	return math.Round(float64(rework) / float64(len(list)) * 100)
}

// slaBreachRate returns the whole-percent share of requests past their
// deadline: published late, or unpublished and already overdue.
func slaBreachRate(list []*models.Request, now time.Time) float64 {
	if len(list) == 0 {
		return 0
	}
	breached := 0
	for _, req := range list {
		if sla.Breached(req, now) {
			breached++
		}
	}
	return math.Round(float64(breached) / float64(len(list)) * 100)
}

// avgDays averages to one decimal place. Empty input averages to zero.
func avgDays(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return math.Round(sum/float64(len(values))*10) / 10
}
