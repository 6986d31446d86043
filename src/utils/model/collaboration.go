package model

import (
	"time"

	"github.com/lib/pq"
)

const TableCollaboration = "collaborations"

// Collaboration is an optional group inside which items are shared.
type Collaboration struct {
	Id          string         `gorm:"primaryKey" json:"id"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `json:"description"`
	OwnerId     string         `gorm:"index;not null" json:"owner_id"`
	MemberIds   pq.StringArray `gorm:"type:text[]" json:"member_ids"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (Collaboration) TableName() string { return TableCollaboration }
