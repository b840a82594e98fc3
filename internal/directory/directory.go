// Package directory discovers candidate dealerships for a brief.
package directory

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nmbli/concierge/internal/models"
	"github.com/nmbli/concierge/internal/zip"
	"gorm.io/gorm"
)

// DealerInfo is one record returned by the external lookup capability,
// validated before it touches the database.
type DealerInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zipcode string `json:"zipcode"`
	Phone   string `json:"phone,omitempty"`
	Website string `json:"website,omitempty"`
	Email   string `json:"email,omitempty"`
}

// Finder is the external dealer-lookup capability.
type Finder interface {
	FindDealers(ctx context.Context, make, state string, count int) ([]DealerInfo, error)
}

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Validate checks a lookup record against the minimal schema: name, address,
// and city required; state normalized to a 2-letter code; zipcode and email
// format-checked. Returns the cleaned record.
func Validate(d DealerInfo) (DealerInfo, error) {
	d.Name = strings.TrimSpace(d.Name)
	d.Address = strings.TrimSpace(d.Address)
	d.City = strings.TrimSpace(d.City)
	d.State = strings.ToUpper(strings.TrimSpace(d.State))
	d.Zipcode = strings.TrimSpace(d.Zipcode)
	d.Email = strings.TrimSpace(d.Email)

	if d.Name == "" {
		return d, fmt.Errorf("directory: dealer name is required")
	}
	if d.Address == "" {
		return d, fmt.Errorf("directory: address is required for %q", d.Name)
	}
	if d.City == "" {
		return d, fmt.Errorf("directory: city is required for %q", d.Name)
	}
	if len(d.State) != 2 {
		return d, fmt.Errorf("directory: state %q must be a 2-letter code", d.State)
	}
	if d.Zipcode != "" && !zip.Valid(d.Zipcode) {
		return d, fmt.Errorf("directory: invalid ZIP %q for %q", d.Zipcode, d.Name)
	}
	if d.Email != "" && !emailRe.MatchString(d.Email) {
		return d, fmt.Errorf("directory: invalid email %q for %q", d.Email, d.Name)
	}
	return d, nil
}

// Discover resolves a brief's makes and ZIP into a deduplicated set of
// persisted dealerships, each linked to the brief via a DealerProspect.
// Lookup failure for one make loses only that make's dealers; invalid
// records are dropped and logged. The returned slice preserves lookup order
// with duplicates collapsed.
func Discover(ctx context.Context, db *gorm.DB, finder Finder, briefID string, count int) ([]models.Dealership, error) {
	var brief models.Brief
	if err := db.First(&brief, "id = ?", briefID).Error; err != nil {
		return nil, fmt.Errorf("directory: load brief %s: %w", briefID, err)
	}

	state, err := zip.StateForZip(brief.Zipcode)
	if err != nil {
		return nil, fmt.Errorf("directory: resolve state for brief %s: %w", briefID, err)
	}

	var discovered []models.Dealership
	seen := make(map[string]bool)

	for _, mk := range brief.Makes {
		infos, err := finder.FindDealers(ctx, mk, state, count)
		if err != nil {
			log.Printf("directory: lookup %s dealers in %s: %v", mk, state, err)
			continue
		}
		for _, info := range infos {
			valid, err := Validate(info)
			if err != nil {
				log.Printf("directory: dropped record: %v", err)
				continue
			}
			dealer, err := upsertDealership(db, valid, mk)
			if err != nil {
				log.Printf("directory: upsert %q: %v", valid.Name, err)
				continue
			}
			if err := linkProspect(db, briefID, dealer.ID); err != nil {
				log.Printf("directory: link prospect %q: %v", valid.Name, err)
				continue
			}
			if !seen[dealer.ID] {
				seen[dealer.ID] = true
				discovered = append(discovered, *dealer)
			}
		}
	}
	return discovered, nil
}

// upsertDealership finds or creates a dealership by its (name, city) natural
// key. Existing rows win; the lookup never overwrites verified data.
func upsertDealership(db *gorm.DB, d DealerInfo, mk string) (*models.Dealership, error) {
	var dealer models.Dealership
	err := db.Where("name = ? AND city = ?", d.Name, d.City).First(&dealer).Error
	if err == nil {
		return &dealer, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	dealer = models.Dealership{
		ID:        uuid.NewString(),
		Name:      d.Name,
		City:      d.City,
		Make:      mk,
		Address:   d.Address,
		State:     d.State,
		Zipcode:   d.Zipcode,
		Phone:     d.Phone,
		Email:     d.Email,
		Website:   d.Website,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := db.Create(&dealer).Error; err != nil {
		// Lost a race with a concurrent insert; the unique index holds the
		// invariant. Re-read the winner.
		if ferr := db.Where("name = ? AND city = ?", d.Name, d.City).First(&dealer).Error; ferr == nil {
			return &dealer, nil
		}
		return nil, err
	}
	return &dealer, nil
}

// linkProspect creates the brief-scoped prospect row once per
// (brief, dealership) pair.
func linkProspect(db *gorm.DB, briefID, dealershipID string) error {
	var existing models.DealerProspect
	err := db.Where("brief_id = ? AND dealership_id = ?", briefID, dealershipID).First(&existing).Error
	if err == nil {
		return nil
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}
	return db.Create(&models.DealerProspect{
		ID:           uuid.NewString(),
		BriefID:      briefID,
		DealershipID: dealershipID,
		Status:       models.ProspectStatusPending,
		Source:       "ai_lookup",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}).Error
}

// ForBrief returns the dealerships linked to a brief, contacts preloaded,
// verified locations first.
func ForBrief(db *gorm.DB, briefID string) ([]models.Dealership, error) {
	var prospects []models.DealerProspect
	if err := db.Where("brief_id = ?", briefID).
		Preload("Dealership").Preload("Dealership.Contacts").
		Find(&prospects).Error; err != nil {
		return nil, fmt.Errorf("directory: prospects for brief %s: %w", briefID, err)
	}

	dealers := make([]models.Dealership, 0, len(prospects))
	for _, p := range prospects {
		dealers = append(dealers, p.Dealership)
	}
	// Verified dealerships first, stable within each group.
	sort.SliceStable(dealers, func(i, j int) bool {
		return dealers[i].Verified && !dealers[j].Verified
	})
	return dealers, nil
}
