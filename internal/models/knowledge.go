package models

import "time"

// KnowledgeBaseItem is a reference article in the shared knowledge base.
type KnowledgeBaseItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:300;not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Tags      []string  `gorm:"serializer:json" json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
