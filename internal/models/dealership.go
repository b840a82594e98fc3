package models

import "time"

// Dealership is a franchise location, shared across briefs and deduplicated
// by (name, city).
type Dealership struct {
	ID              string `gorm:"primaryKey;size:36"`
	Name            string `gorm:"size:256;not null;uniqueIndex:idx_dealership_name_city"`
	City            string `gorm:"size:128;uniqueIndex:idx_dealership_name_city"`
	Make            string `gorm:"size:64;index"`
	Address         string `gorm:"size:256"`
	State           string `gorm:"size:2;index"`
	Zipcode         string `gorm:"size:10"`
	Phone           string `gorm:"size:32"`
	Email           string `gorm:"size:256"`
	Website         string `gorm:"size:256"`
	Verified        bool   `gorm:"default:false"`
	LastContactedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Contacts []DealerContact `gorm:"foreignKey:DealershipID"`
}

// DealerContact is a named person at a dealership. When one exists with an
// email it is preferred over the dealership's generic inbox.
type DealerContact struct {
	ID              string `gorm:"primaryKey;size:36"`
	DealershipID    string `gorm:"size:36;index;not null"`
	Name            string `gorm:"size:128"`
	Email           string `gorm:"size:256"`
	Phone           string `gorm:"size:32"`
	Role            string `gorm:"size:16;default:sales"`
	LastContactedAt *time.Time
	CreatedAt       time.Time
}

// DealerProspect links a brief to a candidate dealership, unique per pair.
type DealerProspect struct {
	ID           string `gorm:"primaryKey;size:36"`
	BriefID      string `gorm:"size:36;not null;uniqueIndex:idx_prospect_brief_dealership"`
	DealershipID string `gorm:"size:36;not null;uniqueIndex:idx_prospect_brief_dealership"`
	Status       string `gorm:"size:16;default:pending;index"`
	Source       string `gorm:"size:32"`
	Notes        string `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Dealership Dealership `gorm:"foreignKey:DealershipID"`
}
