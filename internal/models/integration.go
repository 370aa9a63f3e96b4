package models

import "time"

// IntegrationLog records an inbound webhook event from an external system.
type IntegrationLog struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	RequestID *uint  `gorm:"index" json:"request_id"`
	System    string `gorm:"size:120;not null" json:"system"`
	Status    string `gorm:"size:40;not null;default:'ok'" json:"status"`
	// Payload is the raw event body as JSON text.
	Payload   string    `gorm:"type:text;not null;default:'{}'" json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}
