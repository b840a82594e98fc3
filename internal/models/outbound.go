package models

import "time"

// EmailMessage records one email outreach attempt or inbound reply. Rows are
// immutable after creation except for terminal Status/ProviderMessageID.
type EmailMessage struct {
	ID                string  `gorm:"primaryKey;size:36"`
	BriefID           string  `gorm:"size:36;index;not null"`
	DealershipID      string  `gorm:"size:36;index"`
	ContactID         *string `gorm:"size:36"`
	Direction         string  `gorm:"size:8;default:outbound"`
	Round             string  `gorm:"size:8;index"`
	ToEmail           string  `gorm:"size:256"`
	FromEmail         string  `gorm:"size:256"`
	Subject           string  `gorm:"size:256"`
	BodyText          string  `gorm:"type:text"`
	BodyHTML          string  `gorm:"type:text"`
	ProviderMessageID string  `gorm:"size:128"`
	Status            string  `gorm:"size:8;default:pending"`
	CreatedAt         time.Time
}

// SmsMessage records one SMS outreach attempt.
type SmsMessage struct {
	ID           string `gorm:"primaryKey;size:36"`
	BriefID      string `gorm:"size:36;index;not null"`
	DealershipID string `gorm:"size:36;index"`
	Direction    string `gorm:"size:8;default:outbound"`
	Round        string `gorm:"size:8;index"`
	ToNumber     string `gorm:"size:32"`
	BodyText     string `gorm:"type:text"`
	ProviderSID  string `gorm:"size:64"`
	Status       string `gorm:"size:8;default:pending"`
	CreatedAt    time.Time
}

// SkyvernRun records one headless-browser workflow submission, the fallback
// channel when a dealership exposes neither email nor phone.
type SkyvernRun struct {
	ID           string `gorm:"primaryKey;size:36"`
	BriefID      string `gorm:"size:36;index;not null"`
	DealershipID string `gorm:"size:36;index"`
	Round        string `gorm:"size:8;index"`
	WorkflowID   string `gorm:"size:128"`
	TargetURL    string `gorm:"size:256"`
	Goal         string `gorm:"type:text"`
	RunID        string `gorm:"size:64"`
	Status       string `gorm:"size:16;default:pending"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
