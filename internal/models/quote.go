package models

import "time"

// Quote is a dealer's price offer for a brief. Revisions chain through
// ParentQuoteID; the superseded parent keeps the history. Amounts are whole
// dollars.
type Quote struct {
	ID            string  `gorm:"primaryKey;size:36"`
	BriefID       string  `gorm:"size:36;index;not null"`
	DealershipID  string  `gorm:"size:36;index"`
	ParentQuoteID *string `gorm:"size:36"`
	Status        string  `gorm:"size:16;default:draft;index"`
	Source        string  `gorm:"size:16;default:dealer_form"`

	VIN         string `gorm:"size:17"`
	StockNumber string `gorm:"size:32"`
	Year        int
	Make        string `gorm:"size:64"`
	Model       string `gorm:"size:64"`
	Trim        string `gorm:"size:64"`

	MSRP            int64
	DealerDiscount  int64
	DocFee          int64
	DMVFee          int64
	TireBatteryFee  int64
	OtherFeesTotal  int64
	IncentivesTotal int64
	AddonsTotal     int64
	TaxAmount       int64
	OTDTotal        int64

	RequiresCreditPullForCash bool
	HonorsAdvertisedVinPrice  bool
	ShadinessScore            int
	EvidenceNote              string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Lines []QuoteLine `gorm:"foreignKey:QuoteID"`
}

// QuoteLine is one itemized entry on a quote.
type QuoteLine struct {
	ID       string `gorm:"primaryKey;size:36"`
	QuoteID  string `gorm:"size:36;index;not null"`
	Kind     string `gorm:"size:16"`
	Name     string `gorm:"size:128"`
	Amount   int64
	Optional bool `gorm:"default:true"`
}
