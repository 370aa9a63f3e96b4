package models

import "time"

// ActionStatusPrefix tags activity records produced by workflow transitions.
// The full action is "status:<STATUS>".
const ActionStatusPrefix = "status:"

// StatusAction builds the activity action string for a transition into status.
func StatusAction(status RequestStatus) string {
	return ActionStatusPrefix + string(status)
}

// ActionCommentPrefix tags free-text comment activities. Keeping comments
// tagged means a comment body can never be mistaken for a transition record.
const ActionCommentPrefix = "comment:"

// CommentAction builds the activity action string for a comment.
func CommentAction(text string) string {
	return ActionCommentPrefix + text
}

// Activity is an immutable audit record of a status change or comment on a
// Request. Rows are append-only; they are never updated or deleted.
type Activity struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RequestID uint      `gorm:"not null;index" json:"request_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action    string    `gorm:"size:320;not null" json:"action"`
	CreatedAt time.Time `json:"created_at"`
}
