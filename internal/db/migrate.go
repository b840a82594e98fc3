package db

import (
	"fmt"

	"github.com/nmbli/concierge/internal/models"
	"gorm.io/gorm"
)

// AllModels returns every GORM model in migration order.
func AllModels() []interface{} {
	return []interface{}{
		&models.Brief{},
		&models.Dealership{},
		&models.DealerContact{},
		&models.DealerProspect{},
		&models.EmailMessage{},
		&models.SmsMessage{},
		&models.SkyvernRun{},
		&models.Quote{},
		&models.QuoteLine{},
		&models.TimelineEvent{},
		&models.NegotiationRound{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
