package models

import "time"

// RequestStatus defines lifecycle states for documentation requests.
type RequestStatus string

const (
	// StatusNew indicates a freshly submitted intake request.
	StatusNew RequestStatus = "NEW"
	// StatusTriage indicates the request is being scoped and assigned.
	StatusTriage RequestStatus = "TRIAGE"
	// StatusInProgress indicates writing work has started.
	StatusInProgress RequestStatus = "IN_PROGRESS"
	// StatusReview indicates the draft is under editorial review.
	StatusReview RequestStatus = "REVIEW"
	// StatusApproval indicates the draft awaits legal/final approval.
	StatusApproval RequestStatus = "APPROVAL"
	// StatusPublished is the terminal state.
	StatusPublished RequestStatus = "PUBLISHED"
)

// RequestStatuses lists all lifecycle states in pipeline order.
var RequestStatuses = []RequestStatus{
	StatusNew, StatusTriage, StatusInProgress, StatusReview, StatusApproval, StatusPublished,
}

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s RequestStatus) bool {
	for _, known := range RequestStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// RequestType categorizes an intake request.
type RequestType string

const (
	TypeFeature    RequestType = "FEATURE"
	TypeChange     RequestType = "CHANGE"
	TypeRegulatory RequestType = "REGULATORY"
	TypeFAQ        RequestType = "FAQ"
	TypeOther      RequestType = "OTHER"
)

// ValidRequestType reports whether t is a known request type.
func ValidRequestType(t RequestType) bool {
	switch t {
	case TypeFeature, TypeChange, TypeRegulatory, TypeFAQ, TypeOther:
		return true
	}
	return false
}

// Request is a documentation work item moving through the workflow pipeline.
type Request struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	Title       string        `gorm:"size:300;not null" json:"title"`
	Description string        `gorm:"type:text;not null" json:"description"`
	Audience    string        `gorm:"size:200" json:"audience"`
	Type        RequestType   `gorm:"type:varchar(20);not null;default:'OTHER'" json:"type"`
	Status      RequestStatus `gorm:"type:varchar(20);not null;default:'NEW';index" json:"status"`
	// SlaDays is the contracted number of days from creation to completion.
	SlaDays int `gorm:"not null;default:7" json:"sla_days"`
	// DueAt, when set, permanently overrides the slaDays-derived deadline
	// until cleared.
	DueAt   *time.Time `json:"due_at"`
	OwnerID uint       `gorm:"not null;index" json:"owner_id"`
	Owner   *User      `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	// PublishedAt is set on the transition into PUBLISHED and never cleared
	// automatically.
	PublishedAt *time.Time `json:"published_at"`
	// RowVersion backs conditional updates when the workflow runs in strict
	// conflict mode. Ignored in last-write-wins mode.
	RowVersion uint       `gorm:"not null;default:0" json:"-"`
	Activities []Activity `gorm:"foreignKey:RequestID" json:"activities,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
