// Package sla derives deadlines and overdue deltas for workflow requests.
package sla

import (
	"math"
	"time"

	"docflow/internal/models"
)

const day = 24 * time.Hour

// Deadline returns the request's due date: the explicit dueAt override when
// present, otherwise createdAt + slaDays.
func Deadline(req *models.Request) time.Time {
	if req.DueAt != nil {
		return *req.DueAt
	}
	return req.CreatedAt.Add(time.Duration(req.SlaDays) * day)
}

// DaysRemaining returns ceil((deadline - now) / 1 day). Zero or negative means
// the request is overdue.
func DaysRemaining(req *models.Request, now time.Time) int {
	delta := Deadline(req).Sub(now)
	return int(math.Ceil(float64(delta) / float64(day)))
}

// Overdue reports whether the request has run past its deadline.
func Overdue(req *models.Request, now time.Time) bool {
	return DaysRemaining(req, now) <= 0
}

// Breached reports whether the request counts as an SLA breach: published
// after its deadline, or still unpublished past the deadline.
func Breached(req *models.Request, now time.Time) bool {
	deadline := Deadline(req)
	if req.PublishedAt != nil {
		return req.PublishedAt.After(deadline)
	}
	return now.After(deadline)
}

// DaysBetween returns the whole-day distance from a to b, rounded and clamped
// at zero. Used by the metrics aggregator.
func DaysBetween(a, b time.Time) int {
	d := int(math.Round(float64(b.Sub(a)) / float64(day)))
	if d < 0 {
		return 0
	}
	return d
}
