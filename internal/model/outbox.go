package model

import (
	"time"

	"github.com/google/uuid"
)

// EventTypeEmailNotification is the only event type produced today, inserted
// by the payment-confirm path.
const EventTypeEmailNotification = "EmailNotification"

// OutboxMessage is a staged domain event.  Rows are inserted in the same
// transaction as the business change they describe and later claimed and
// published by the dispatcher.  ProcessingAt is the claim sentinel: a row
// with ProcessingAt set and ProcessedAt unset belongs to a dispatcher pass
// until the stuck-reset reclaims it.  Poisoned rows (RetryCount at the
// limit) keep ProcessedAt set so they are never retried but stay auditable.
//
// Fields:
//  ID           – time-sortable UUIDv7 primary key; doubles as the broker
//                 message id for downstream idempotency.
//  EventType    – discriminator for the payload document.
//  Payload      – serialized event JSON with stable field names.
//  CreatedAt    – UTC insertion instant; dispatch order is oldest first.
//  ProcessingAt – claim timestamp, nil when unclaimed.
//  ProcessedAt  – completion timestamp, nil until published or poisoned.
//  RetryCount   – failed publish attempts so far.
//  ErrorMessage – last publish error, cleared on success.
type OutboxMessage struct {
	ID           uuid.UUID
	EventType    string
	Payload      []byte
	CreatedAt    time.Time
	ProcessingAt *time.Time
	ProcessedAt  *time.Time
	RetryCount   int
	ErrorMessage *string
}

// EmailNotification is the payload document of EventTypeEmailNotification
// messages, published to the broker for the identity service's mailer.
type EmailNotification struct {
	RecipientEmail string            `json:"recipientEmail"`
	Subject        string            `json:"subject"`
	TemplateCode   string            `json:"templateCode"`
	Variables      map[string]string `json:"variables"`
}
