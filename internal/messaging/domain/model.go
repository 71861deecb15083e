package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	TypeEmail    = "email"
	TypeSMS      = "sms"
	TypeCall     = "call"
	TypeInternal = "internal"

	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

func ValidType(t string) bool {
	switch t {
	case TypeEmail, TypeSMS, TypeCall, TypeInternal:
		return true
	}
	return false
}

func ValidDirection(d string) bool {
	return d == DirectionInbound || d == DirectionOutbound
}

// Communication is one immutable entry in a lead's conversation. UserID is
// nil for inbound messages from outside the platform.
type Communication struct {
	ID        snowflake.ID  `gorm:"primaryKey" json:"id"`
	LeadID    snowflake.ID  `gorm:"not null;index:idx_communications_lead_created,priority:1" json:"lead_id"`
	UserID    *snowflake.ID `gorm:"index" json:"user_id,omitempty"`
	Type      string        `gorm:"not null" json:"type"`
	Direction string        `gorm:"not null" json:"direction"`
	Subject   *string       `json:"subject,omitempty"`
	Content   string        `gorm:"not null" json:"content"`
	CreatedAt time.Time     `gorm:"not null;index:idx_communications_lead_created,priority:2" json:"created_at"`

	SenderName    string `gorm:"->;-:migration" json:"sender_name"`
	LeadFirstName string `gorm:"->;-:migration" json:"lead_first_name,omitempty"`
	LeadLastName  string `gorm:"->;-:migration" json:"lead_last_name,omitempty"`

	MentionedUserIDs []snowflake.ID `gorm:"-" json:"mentioned_user_ids,omitempty"`
}

func (Communication) TableName() string { return "communications" }

type Mention struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	CommunicationID snowflake.ID `gorm:"not null;index" json:"communication_id"`
	UserID          snowflake.ID `gorm:"not null;index" json:"user_id"`
	IsRead          bool         `gorm:"not null;default:false" json:"is_read"`
	CreatedAt       time.Time    `gorm:"not null" json:"created_at"`
}

func (Mention) TableName() string { return "mentions" }

// MessageEvent is the payload of a new-message broadcast.
type MessageEvent struct {
	ID         string   `json:"id"`
	LeadID     string   `json:"leadId"`
	UserID     *string  `json:"userId"`
	SenderName string   `json:"senderName"`
	Type       string   `json:"type"`
	Direction  string   `json:"direction"`
	Subject    *string  `json:"subject,omitempty"`
	Content    string   `json:"content"`
	CreatedAt  string   `json:"createdAt"`
	Mentions   []string `json:"mentions"`
}

func (c Communication) Event() MessageEvent {
	ev := MessageEvent{
		ID:         c.ID.String(),
		LeadID:     c.LeadID.String(),
		SenderName: c.SenderName,
		Type:       c.Type,
		Direction:  c.Direction,
		Subject:    c.Subject,
		Content:    c.Content,
		CreatedAt:  c.CreatedAt.UTC().Format(time.RFC3339Nano),
		Mentions:   make([]string, 0, len(c.MentionedUserIDs)),
	}
	if c.UserID != nil {
		id := c.UserID.String()
		ev.UserID = &id
	}
	for _, id := range c.MentionedUserIDs {
		ev.Mentions = append(ev.Mentions, id.String())
	}
	return ev
}
