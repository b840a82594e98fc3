package main

import (
	"fmt"

	"github.com/nmbli/concierge/internal/automation"
	"github.com/nmbli/concierge/internal/channels"
	"github.com/nmbli/concierge/internal/compose"
	"github.com/nmbli/concierge/internal/config"
	"github.com/nmbli/concierge/internal/db"
	"github.com/nmbli/concierge/internal/directory"
	"github.com/nmbli/concierge/internal/negotiation"
	"github.com/nmbli/concierge/internal/notify"
	"github.com/nmbli/concierge/internal/quotes"
	"gorm.io/gorm"
)

// openDB connects to the configured database.
func openDB(cfg *config.Config) (*gorm.DB, error) {
	switch cfg.DB.Driver {
	case "sqlite":
		return db.ConnectSQLite(cfg.DB.Path)
	case "mysql":
		return db.Connect(cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Database)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.DB.Driver)
	}
}

// buildStack wires the production capability clients into the orchestrator
// and negotiation engine.
func buildStack(cfg *config.Config, gdb *gorm.DB) (*automation.Orchestrator, *negotiation.Engine, *quotes.Parser, *notify.Notifier) {
	composer := &compose.Composer{Domain: cfg.Domain, FromName: cfg.FromName}
	notifier := notify.New(cfg.Slack.BotToken, cfg.Slack.Channel)

	orch := &automation.Orchestrator{
		DB:          gdb,
		Email:       channels.NewResendClient(cfg.Channels.Resend.APIKey, cfg.Channels.Resend.BaseURL),
		SMS:         channels.NewTwilioClient(cfg.Channels.Twilio.AccountSID, cfg.Channels.Twilio.AuthToken, cfg.Channels.Twilio.FromNumber, cfg.Channels.Twilio.BaseURL),
		Browser:     channels.NewSkyvernClient(cfg.Channels.Skyvern.APIKey, cfg.Channels.Skyvern.BaseURL),
		Finder:      directory.NewGeminiFinder(cfg.Lookup.APIKey, cfg.Lookup.Model, cfg.Lookup.BaseURL),
		Composer:    composer,
		Notifier:    notifier,
		DealerCount: cfg.Lookup.DealerCount,
		SendTimeout: cfg.Channels.SendTimeout(),
	}

	engine := &negotiation.Engine{
		DB:           gdb,
		Orchestrator: orch,
		CounterDelay: cfg.Rounds.CounterDelay(),
		FinalDelay:   cfg.Rounds.FinalDelay(),
	}

	return orch, engine, quotes.NewParser(cfg.Domain), notifier
}
