package domain

import (
	"context"
	"errors"
)

type PostMessageRequest struct {
	LeadID    string   `json:"lead_id"`
	Type      string   `json:"type"`
	Direction string   `json:"direction"`
	Subject   *string  `json:"subject"`
	Content   string   `json:"content"`
	Mentions  []string `json:"mentions"`
}

type PostInboundRequest struct {
	LeadID  string  `json:"lead_id"`
	Type    string  `json:"type"`
	Subject *string `json:"subject"`
	Content string  `json:"content"`
}

type Service interface {
	// PostMessage stores a message from the current principal together with
	// its mentions and notifications, then broadcasts it to the lead room.
	PostMessage(ctx context.Context, req PostMessageRequest) (Communication, error)
	// PostInbound stores a customer reply and notifies exactly one
	// recipient.
	PostInbound(ctx context.Context, req PostInboundRequest) (Communication, error)
	ListCommunicationsForLead(ctx context.Context, leadID string) ([]Communication, error)
	ListMessages(ctx context.Context) ([]Communication, error)
}

var (
	ErrInvalidLeadID    = errors.New("invalid_lead_id")
	ErrInvalidContent   = errors.New("invalid_content")
	ErrInvalidType      = errors.New("invalid_type")
	ErrInvalidDirection = errors.New("invalid_direction")
	ErrInvalidMention   = errors.New("invalid_mention")
)
