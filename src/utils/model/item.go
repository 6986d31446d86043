package model

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

const TableItem = "items"

type ItemStatus string

const (
	ItemAvailable ItemStatus = "available"
	ItemRequested ItemStatus = "requested"
	ItemReserved  ItemStatus = "reserved"
	ItemCompleted ItemStatus = "completed"
)

type ItemType string

const (
	ItemTypeFood    ItemType = "food"
	ItemTypeNonFood ItemType = "non_food"
)

// Item is a shareable resource listing owned by one user.
// Status is derived from the item's claims and is advisory,
// the claim rows remain the source of truth for who can act next.
type Item struct {
	Id       string     `gorm:"primaryKey" json:"id"`
	OwnerId  string     `gorm:"index;not null" json:"owner_id"`
	Status   ItemStatus `gorm:"index;not null;default:'available'" json:"status"`
	ItemType ItemType   `gorm:"not null" json:"item_type"`
	Category string     `gorm:"index" json:"category"`
	Quantity int        `json:"quantity"`

	Title       string         `gorm:"not null" json:"title"`
	Description string         `json:"description"`
	Tags        pq.StringArray `gorm:"type:text[]" json:"tags"`

	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	CollaborationId sql.NullString `gorm:"index" json:"collaboration_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Item) TableName() string { return TableItem }
