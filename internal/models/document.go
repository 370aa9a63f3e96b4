package models

import "time"

// Document is a collaboratively edited deliverable in the workspace.
type Document struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:300;not null" json:"title"`
	Content     string     `gorm:"type:text;not null" json:"content"`
	Version     string     `gorm:"size:40;not null;default:'1.0'" json:"version"`
	Sections    []string   `gorm:"serializer:json" json:"sections"`
	PublishedAt *time.Time `json:"published_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// DocumentVersion is an append-only snapshot taken on every non-draft save.
type DocumentVersion struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DocumentID uint      `gorm:"not null;index" json:"document_id"`
	Title      string    `gorm:"size:300;not null" json:"title"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Version    string    `gorm:"size:40;not null" json:"version"`
	CreatedAt  time.Time `json:"created_at"`
}

// DocumentComment is an inline discussion entry on a document.
type DocumentComment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DocumentID uint      `gorm:"not null;index" json:"document_id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	User       *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}
