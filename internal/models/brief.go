package models

import (
	"strings"
	"time"
)

// Brief is a buyer's stated vehicle-purchase requirements and constraints.
type Brief struct {
	ID            string   `gorm:"primaryKey;size:36"`
	BuyerID       string   `gorm:"size:36;index"`
	BuyerEmail    string   `gorm:"size:256"`
	Makes         []string `gorm:"serializer:json"`
	Models        []string `gorm:"serializer:json"`
	Trims         []string `gorm:"serializer:json"`
	Zipcode       string   `gorm:"size:10"`
	MaxOTD        int64
	PaymentType   string `gorm:"size:16;default:cash"`
	DownPayment   int64
	MonthlyBudget int64
	Timeline      string `gorm:"size:64"`
	Status        string `gorm:"size:16;default:sourcing;index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Prospects []DealerProspect `gorm:"foreignKey:BriefID"`
	Quotes    []Quote          `gorm:"foreignKey:BriefID"`
}

// Vehicle describes the brief's primary vehicle as "Make Model Trim".
// Multi-make briefs use the first entry; outreach is per dealership, and a
// dealership carries a single make.
func (b *Brief) Vehicle() string {
	var parts []string
	if len(b.Makes) > 0 {
		parts = append(parts, b.Makes[0])
	}
	if len(b.Models) > 0 {
		parts = append(parts, b.Models[0])
	}
	if len(b.Trims) > 0 {
		parts = append(parts, b.Trims[0])
	}
	return strings.Join(parts, " ")
}
