package sla

import (
	"testing"
	"time"

	"docflow/internal/models"

	"github.com/stretchr/testify/assert"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	assert.NoError(t, err)
	return parsed
}

func TestDeadlineDefaultsToSlaDays(t *testing.T) {
	created := mustTime(t, "2026-01-01T10:00:00Z")
	req := &models.Request{CreatedAt: created, SlaDays: 7}

	assert.Equal(t, created.AddDate(0, 0, 7), Deadline(req))
}

func TestDeadlinePrefersDueAt(t *testing.T) {
	created := mustTime(t, "2026-01-01T10:00:00Z")
	due := mustTime(t, "2026-01-03T00:00:00Z")
	req := &models.Request{CreatedAt: created, SlaDays: 14, DueAt: &due}

	assert.Equal(t, due, Deadline(req))
}

func TestDaysRemaining(t *testing.T) {
	created := mustTime(t, "2026-01-01T00:00:00Z")
	req := &models.Request{CreatedAt: created, SlaDays: 7}

	tests := []struct {
		name string
		now  string
		want int
	}{
		{"at creation", "2026-01-01T00:00:00Z", 7},
		{"partial day rounds up", "2026-01-02T12:00:00Z", 6},
		{"at deadline", "2026-01-08T00:00:00Z", 0},
		{"past deadline goes negative", "2026-01-10T00:00:00Z", -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysRemaining(req, mustTime(t, tt.now)))
		})
	}
}

func TestOverdue(t *testing.T) {
	created := mustTime(t, "2026-01-01T00:00:00Z")
	req := &models.Request{CreatedAt: created, SlaDays: 7}

	assert.False(t, Overdue(req, mustTime(t, "2026-01-07T00:00:00Z")))
	assert.True(t, Overdue(req, mustTime(t, "2026-01-09T00:00:00Z")))
}

func TestBreachedUsesPublishedAtWhenSet(t *testing.T) {
	created := mustTime(t, "2026-01-01T00:00:00Z")
	onTime := mustTime(t, "2026-01-05T00:00:00Z")
	late := mustTime(t, "2026-01-20T00:00:00Z")
	now := mustTime(t, "2026-02-01T00:00:00Z")

	published := &models.Request{CreatedAt: created, SlaDays: 7, PublishedAt: &onTime}
	assert.False(t, Breached(published, now), "published before the deadline never breaches, regardless of now")

	publishedLate := &models.Request{CreatedAt: created, SlaDays: 7, PublishedAt: &late}
	assert.True(t, Breached(publishedLate, now))
}

func TestBreachedFallsBackToNow(t *testing.T) {
	created := mustTime(t, "2026-01-01T00:00:00Z")
	req := &models.Request{CreatedAt: created, SlaDays: 7}

	assert.False(t, Breached(req, mustTime(t, "2026-01-06T00:00:00Z")))
	assert.True(t, Breached(req, mustTime(t, "2026-01-09T00:00:00Z")))
}

func TestDaysBetween(t *testing.T) {
	a := mustTime(t, "2026-01-01T00:00:00Z")

	tests := []struct {
		name string
		b    string
		want int
	}{
		{"same instant", "2026-01-01T00:00:00Z", 0},
		{"under half a day rounds down", "2026-01-01T11:00:00Z", 0},
		{"over half a day rounds up", "2026-01-01T13:00:00Z", 1},
		{"several days", "2026-01-05T06:00:00Z", 4},
		{"negative clamps to zero", "2025-12-30T00:00:00Z", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysBetween(a, mustTime(t, tt.b)))
		})
	}
}
