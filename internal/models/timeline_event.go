package models

import "time"

// TimelineEvent is one entry in a brief's append-only audit log. Rows are
// never updated or deleted.
type TimelineEvent struct {
	ID        uint    `gorm:"primaryKey;autoIncrement"`
	BriefID   string  `gorm:"size:36;index;not null"`
	QuoteID   *string `gorm:"size:36"`
	Type      string  `gorm:"size:32;index"`
	Actor     string  `gorm:"size:8"`
	Payload   string  `gorm:"type:json"`
	CreatedAt time.Time
}

// NegotiationRound is the claim row for one round of outreach on a brief.
// The unique (brief, round) index is what makes round advancement idempotent
// under concurrent ticks.
type NegotiationRound struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	BriefID   string `gorm:"size:36;not null;uniqueIndex:idx_round_brief_round"`
	Round     string `gorm:"size:8;not null;uniqueIndex:idx_round_brief_round"`
	LowestOTD int64
	SentAt    time.Time
	CreatedAt time.Time
}
