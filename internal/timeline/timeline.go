// Package timeline appends audit events to a brief's history.
package timeline

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nmbli/concierge/internal/models"
	"gorm.io/gorm"
)

// Entry describes one event to record. Payload is marshalled to JSON; a nil
// payload is stored as an empty object.
type Entry struct {
	BriefID string
	QuoteID string
	Type    string
	Actor   string
	Payload map[string]interface{}
}

// Record appends an event to the brief's timeline. Events are append-only;
// nothing in this package updates or deletes rows.
func Record(db *gorm.DB, e Entry) (*models.TimelineEvent, error) {
	if e.BriefID == "" {
		return nil, fmt.Errorf("timeline: briefID is required")
	}
	if e.Type == "" {
		return nil, fmt.Errorf("timeline: type is required")
	}
	actor := e.Actor
	if actor == "" {
		actor = models.ActorSystem
	}

	payload := "{}"
	if e.Payload != nil {
		data, err := json.Marshal(e.Payload)
		if err != nil {
			return nil, fmt.Errorf("timeline: marshal payload: %w", err)
		}
		payload = string(data)
	}

	var quoteID *string
	if e.QuoteID != "" {
		quoteID = &e.QuoteID
	}

	ev := models.TimelineEvent{
		BriefID:   e.BriefID,
		QuoteID:   quoteID,
		Type:      e.Type,
		Actor:     actor,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	if err := db.Create(&ev).Error; err != nil {
		return nil, fmt.Errorf("timeline: record %s: %w", e.Type, err)
	}
	return &ev, nil
}

// ForBrief returns a brief's events in creation order.
func ForBrief(db *gorm.DB, briefID string) ([]models.TimelineEvent, error) {
	var events []models.TimelineEvent
	if err := db.Where("brief_id = ?", briefID).
		Order("id ASC").Find(&events).Error; err != nil {
		return nil, fmt.Errorf("timeline: list for brief %s: %w", briefID, err)
	}
	return events, nil
}
