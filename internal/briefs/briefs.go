// Package briefs manages buyer purchase briefs.
package briefs

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nmbli/concierge/internal/models"
	"github.com/nmbli/concierge/internal/zip"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a brief ID does not exist.
var ErrNotFound = errors.New("briefs: brief not found")

// CreateInput is a buyer's purchase requirements.
type CreateInput struct {
	BuyerID       string   `json:"buyerId"`
	BuyerEmail    string   `json:"buyerEmail"`
	Makes         []string `json:"makes"`
	Models        []string `json:"models"`
	Trims         []string `json:"trims"`
	Zipcode       string   `json:"zipcode"`
	MaxOTD        int64    `json:"maxOtd"`
	PaymentType   string   `json:"paymentType"`
	DownPayment   int64    `json:"downPayment"`
	MonthlyBudget int64    `json:"monthlyBudget"`
	Timeline      string   `json:"timeline"`
}

// Create validates and stores a new brief in sourcing status.
func Create(db *gorm.DB, in CreateInput) (*models.Brief, error) {
	if len(in.Makes) == 0 {
		return nil, fmt.Errorf("briefs: at least one make is required")
	}
	if !zip.Valid(in.Zipcode) {
		return nil, fmt.Errorf("briefs: invalid zipcode %q", in.Zipcode)
	}
	paymentType := in.PaymentType
	if paymentType == "" {
		paymentType = "cash"
	}
	switch paymentType {
	case "cash", "finance", "lease":
	default:
		return nil, fmt.Errorf("briefs: invalid payment type %q", paymentType)
	}

	brief := models.Brief{
		ID:            uuid.NewString(),
		BuyerID:       in.BuyerID,
		BuyerEmail:    in.BuyerEmail,
		Makes:         in.Makes,
		Models:        in.Models,
		Trims:         in.Trims,
		Zipcode:       in.Zipcode,
		MaxOTD:        in.MaxOTD,
		PaymentType:   paymentType,
		DownPayment:   in.DownPayment,
		MonthlyBudget: in.MonthlyBudget,
		Timeline:      in.Timeline,
		Status:        models.BriefStatusSourcing,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if err := db.Create(&brief).Error; err != nil {
		return nil, fmt.Errorf("briefs: create: %w", err)
	}
	return &brief, nil
}

// Get loads a brief by ID.
func Get(db *gorm.DB, id string) (*models.Brief, error) {
	var brief models.Brief
	if err := db.First(&brief, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("briefs: load %s: %w", id, err)
	}
	return &brief, nil
}

// List returns all briefs, newest first.
func List(db *gorm.DB) ([]models.Brief, error) {
	var out []models.Brief
	if err := db.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("briefs: list: %w", err)
	}
	return out, nil
}
