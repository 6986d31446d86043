package model

import "time"

const (
	TableProfile = "profiles"
	TableStory   = "stories"
)

type Profile struct {
	Id          string    `gorm:"primaryKey" json:"id"`
	DisplayName string    `gorm:"not null" json:"display_name"`
	Suspended   bool      `gorm:"not null;default:false" json:"suspended"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Profile) TableName() string { return TableProfile }

// Story is a short community post shown on the feed.
type Story struct {
	Id        string    `gorm:"primaryKey" json:"id"`
	AuthorId  string    `gorm:"index;not null" json:"author_id"`
	Title     string    `gorm:"not null" json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func (Story) TableName() string { return TableStory }

// UserStats is the aggregated per-user row returned by the
// pantry_user_stats stored procedure.
type UserStats struct {
	UserId         string `json:"user_id"`
	ItemsShared    int64  `json:"items_shared"`
	ItemsCompleted int64  `json:"items_completed"`
	ClaimsMade     int64  `json:"claims_made"`
	ClaimsAccepted int64  `json:"claims_accepted"`
	ClaimsReceived int64  `json:"claims_received"`
}
