package model

import "time"

const TableClaim = "claims"

type ClaimStatus string

const (
	ClaimPending   ClaimStatus = "pending"
	ClaimAccepted  ClaimStatus = "accepted"
	ClaimRejected  ClaimStatus = "rejected"
	ClaimCompleted ClaimStatus = "completed"
)

// Claim is a request by another user to receive a specific Item.
// Many claims may reference one item, but at most one claim per item
// reaches accepted/completed.
type Claim struct {
	Id        string      `gorm:"primaryKey" json:"id"`
	ItemId    string      `gorm:"index;not null" json:"item_id"`
	ClaimerId string      `gorm:"index;not null" json:"claimer_id"`
	OwnerId   string      `gorm:"index;not null" json:"owner_id"`
	Status    ClaimStatus `gorm:"index;not null;default:'pending'" json:"status"`
	Message   string      `json:"message"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func (Claim) TableName() string { return TableClaim }
