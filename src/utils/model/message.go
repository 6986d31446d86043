package model

import "time"

const TableMessage = "messages"

// Message is one entry in a conversation scope (a claim or a
// collaboration). Append-only, never mutated or deleted. Ordered by
// CreatedAt, the server-assigned id is the tiebreak authority.
type Message struct {
	Id        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ScopeId   string    `gorm:"index;not null" json:"scope_id"`
	SenderId  string    `gorm:"index;not null" json:"sender_id"`
	Body      string    `gorm:"not null" json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

func (Message) TableName() string { return TableMessage }

// ScopeMessage is a Message joined with the sender's display name,
// as returned by the pantry_scope_messages stored procedure.
type ScopeMessage struct {
	Message
	SenderName string `json:"sender_name"`
}
