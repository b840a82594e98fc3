// Package negotiation advances briefs through the counter and final
// outreach rounds on a schedule.
package negotiation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/nmbli/concierge/internal/automation"
	"github.com/nmbli/concierge/internal/models"
	"github.com/nmbli/concierge/internal/quotes"
	"github.com/nmbli/concierge/internal/timeline"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// Engine owns the round schedule. Delays are measured from brief creation,
// so a brief created at T gets its counter round at T+CounterDelay and its
// final round at T+FinalDelay.
type Engine struct {
	DB           *gorm.DB
	Orchestrator *automation.Orchestrator
	CounterDelay time.Duration
	FinalDelay   time.Duration

	// Now is the clock, injectable for tests. Nil means time.Now.
	Now func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Tick advances every due brief by at most one round. Safe to call
// concurrently and repeatedly: each (brief, round) pair is claimed through a
// unique row before anything is sent, so a double tick sends once.
func (e *Engine) Tick(ctx context.Context) error {
	var active []models.Brief
	err := e.DB.Where("status IN ?",
		[]string{models.BriefStatusOffers, models.BriefStatusNegotiation}).
		Find(&active).Error
	if err != nil {
		return fmt.Errorf("negotiation: load active briefs: %w", err)
	}

	now := e.now()
	for i := range active {
		brief := &active[i]
		round, due := e.dueRound(brief, now)
		if !due {
			continue
		}
		if err := e.advanceRound(ctx, brief, round); err != nil {
			log.Printf("negotiation: advance brief %s to %s: %v", brief.ID, round, err)
		}
	}
	return nil
}

// dueRound returns the next unsent round whose delay has elapsed. The final
// round is checked first so a brief that slept past both thresholds goes
// straight to final rather than sending a stale counter.
func (e *Engine) dueRound(brief *models.Brief, now time.Time) (string, bool) {
	age := now.Sub(brief.CreatedAt)
	if age >= e.FinalDelay && !e.roundSent(brief.ID, models.RoundFinal) {
		return models.RoundFinal, true
	}
	if age >= e.CounterDelay && !e.roundSent(brief.ID, models.RoundCounter) && !e.roundSent(brief.ID, models.RoundFinal) {
		return models.RoundCounter, true
	}
	return "", false
}

func (e *Engine) roundSent(briefID, round string) bool {
	var count int64
	e.DB.Model(&models.NegotiationRound{}).
		Where("brief_id = ? AND round = ?", briefID, round).Count(&count)
	return count > 0
}

// advanceRound claims the round then re-contacts every previously contacted
// dealer with the round's message. The claim insert hits the unique
// (brief, round) index, so a concurrent tick loses the race cleanly.
func (e *Engine) advanceRound(ctx context.Context, brief *models.Brief, round string) error {
	lowest, _, err := quotes.LowestOTD(e.DB, brief.ID)
	if err != nil {
		return err
	}

	claim := models.NegotiationRound{
		BriefID:   brief.ID,
		Round:     round,
		LowestOTD: lowest,
		SentAt:    e.now(),
		CreatedAt: e.now(),
	}
	if err := e.DB.Create(&claim).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Another tick claimed this round.
			return nil
		}
		return fmt.Errorf("negotiation: claim %s round for brief %s: %w", round, brief.ID, err)
	}

	dealers, err := e.contactedDealers(brief.ID)
	if err != nil {
		return err
	}

	result := e.Orchestrator.ContactAll(ctx, brief, dealers, round, lowest)

	if brief.Status != models.BriefStatusNegotiation {
		if err := e.DB.Model(&models.Brief{}).Where("id = ?", brief.ID).
			Update("status", models.BriefStatusNegotiation).Error; err != nil {
			return err
		}
		brief.Status = models.BriefStatusNegotiation
	}

	_, _ = timeline.Record(e.DB, timeline.Entry{
		BriefID: brief.ID,
		Type:    models.EventRoundAdvanced,
		Payload: map[string]interface{}{
			"round":     round,
			"lowestOtd": lowest,
			"sent":      len(result.Sent),
			"failed":    len(result.Failed),
		},
	})
	e.Orchestrator.Notifier.RoundAdvanced(brief.ID, round, len(result.Sent))
	return nil
}

// contactedDealers returns dealerships the brief already reached, contacts
// preloaded for channel selection.
func (e *Engine) contactedDealers(briefID string) ([]models.Dealership, error) {
	var prospects []models.DealerProspect
	err := e.DB.Where("brief_id = ? AND status = ?", briefID, models.ProspectStatusContacted).
		Preload("Dealership").Preload("Dealership.Contacts").
		Find(&prospects).Error
	if err != nil {
		return nil, fmt.Errorf("negotiation: contacted dealers for brief %s: %w", briefID, err)
	}
	dealers := make([]models.Dealership, 0, len(prospects))
	for _, p := range prospects {
		dealers = append(dealers, p.Dealership)
	}
	return dealers, nil
}

// StartScheduler runs Tick on a fixed interval until the returned stop
// function is called.
func (e *Engine) StartScheduler(interval time.Duration) func() {
	c := cron.New()
	spec := fmt.Sprintf("@every %s", interval)
	_, err := c.AddFunc(spec, func() {
		if err := e.Tick(context.Background()); err != nil {
			log.Printf("negotiation: tick: %v", err)
		}
	})
	if err != nil {
		log.Printf("negotiation: schedule %q: %v", spec, err)
		return func() {}
	}
	c.Start()
	return func() { c.Stop() }
}
