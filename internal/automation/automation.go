// Package automation orchestrates dealer outreach for a brief: discover
// dealerships, pick a channel for each, compose the message, send it, and
// record every outcome.
package automation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/nmbli/concierge/internal/briefs"
	"github.com/nmbli/concierge/internal/channels"
	"github.com/nmbli/concierge/internal/compose"
	"github.com/nmbli/concierge/internal/contact"
	"github.com/nmbli/concierge/internal/directory"
	"github.com/nmbli/concierge/internal/models"
	"github.com/nmbli/concierge/internal/notify"
	"github.com/nmbli/concierge/internal/timeline"
	"gorm.io/gorm"
)

// ErrAlreadySent is returned when a brief's initial outreach has already
// gone out.
var ErrAlreadySent = errors.New("automation: quote requests already sent for this brief")

// DealerResult is the outcome of one dealer contact attempt.
type DealerResult struct {
	DealershipID string `json:"dealershipId"`
	DealerName   string `json:"dealerName"`
	Channel      string `json:"channel"`
	Error        string `json:"error,omitempty"`
}

// Result summarizes one outreach run.
type Result struct {
	Sent   []DealerResult `json:"sent"`
	Failed []DealerResult `json:"failed"`
}

// Orchestrator wires the outreach pipeline together. All capabilities are
// injected so tests can run against fakes.
type Orchestrator struct {
	DB       *gorm.DB
	Email    channels.EmailSender
	SMS      channels.SMSSender
	Browser  channels.BrowserAutomator
	Finder   directory.Finder
	Composer *compose.Composer
	Notifier *notify.Notifier

	DealerCount int           // dealers requested per make from the lookup
	SendTimeout time.Duration // per-call channel timeout
}

// ProcessBrief runs the full initial outreach for a brief: discovery, then
// one contact attempt per linked dealership. Discovery failure aborts the
// run; a single dealer failing does not. Returns ErrAlreadySent when the
// initial round already went out.
func (o *Orchestrator) ProcessBrief(ctx context.Context, briefID string) (*Result, error) {
	brief, err := briefs.Get(o.DB, briefID)
	if err != nil {
		return nil, err
	}

	if err := o.claimInitial(briefID); err != nil {
		return nil, err
	}

	_, _ = timeline.Record(o.DB, timeline.Entry{
		BriefID: briefID,
		Type:    models.EventAutomationStarted,
	})

	if _, err := directory.Discover(ctx, o.DB, o.Finder, briefID, o.DealerCount); err != nil {
		_, _ = timeline.Record(o.DB, timeline.Entry{
			BriefID: briefID,
			Type:    models.EventAutomationError,
			Payload: map[string]interface{}{"error": err.Error()},
		})
		o.Notifier.AutomationFailed(briefID, err)
		o.releaseInitial(briefID)
		return nil, fmt.Errorf("automation: discovery for brief %s: %w", briefID, err)
	}

	dealers, err := directory.ForBrief(o.DB, briefID)
	if err != nil {
		o.releaseInitial(briefID)
		return nil, fmt.Errorf("automation: load dealers for brief %s: %w", briefID, err)
	}

	// Zero dealers is a valid outcome: contacting an empty set is a no-op
	// and the brief still moves on to accepting offers.
	result := o.ContactAll(ctx, brief, dealers, models.RoundInitial, 0)

	if err := o.DB.Model(&models.Brief{}).Where("id = ?", briefID).
		Update("status", models.BriefStatusOffers).Error; err != nil {
		return nil, fmt.Errorf("automation: advance brief %s to offers: %w", briefID, err)
	}

	_, _ = timeline.Record(o.DB, timeline.Entry{
		BriefID: briefID,
		Type:    models.EventAutomationCompleted,
		Payload: map[string]interface{}{
			"sent":   len(result.Sent),
			"failed": len(result.Failed),
		},
	})
	o.Notifier.AutomationCompleted(briefID, len(result.Sent), len(result.Failed))
	return result, nil
}

// ContactAll attempts one contact per dealership, sequentially so the
// timeline reflects send order. Failures are recorded and skipped.
func (o *Orchestrator) ContactAll(ctx context.Context, brief *models.Brief, dealers []models.Dealership, round string, lowestOTD int64) *Result {
	result := &Result{Sent: []DealerResult{}, Failed: []DealerResult{}}
	for i := range dealers {
		dealer := &dealers[i]
		channel, err := o.contactDealer(ctx, brief, dealer, round, lowestOTD)
		if err != nil {
			log.Printf("automation: contact %q for brief %s: %v", dealer.Name, brief.ID, err)
			_, _ = timeline.Record(o.DB, timeline.Entry{
				BriefID: brief.ID,
				Type:    models.EventDealerContactFailed,
				Payload: map[string]interface{}{
					"dealershipId": dealer.ID,
					"dealerName":   dealer.Name,
					"round":        round,
					"error":        err.Error(),
				},
			})
			result.Failed = append(result.Failed, DealerResult{
				DealershipID: dealer.ID,
				DealerName:   dealer.Name,
				Channel:      channel,
				Error:        err.Error(),
			})
			continue
		}

		_, _ = timeline.Record(o.DB, timeline.Entry{
			BriefID: brief.ID,
			Type:    models.EventDealerContacted,
			Payload: map[string]interface{}{
				"dealershipId": dealer.ID,
				"dealerName":   dealer.Name,
				"round":        round,
				"channel":      channel,
			},
		})
		result.Sent = append(result.Sent, DealerResult{
			DealershipID: dealer.ID,
			DealerName:   dealer.Name,
			Channel:      channel,
		})
	}
	return result
}

// contactDealer picks the channel, composes the message, sends it, and
// persists the attempt. Returns the channel name for reporting.
func (o *Orchestrator) contactDealer(ctx context.Context, brief *models.Brief, dealer *models.Dealership, round string, lowestOTD int64) (string, error) {
	sel := contact.Select(dealer)

	sendCtx := ctx
	if o.SendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, o.SendTimeout)
		defer cancel()
	}

	var err error
	switch sel.Method {
	case contact.MethodEmail:
		err = o.sendEmail(sendCtx, brief, dealer, sel, round, lowestOTD)
	case contact.MethodSMS:
		err = o.sendSMS(sendCtx, brief, dealer, sel, round, lowestOTD)
	case contact.MethodSkyvern:
		err = o.runWorkflow(sendCtx, brief, dealer, round, lowestOTD)
	}
	if err != nil {
		return string(sel.Method), err
	}

	if err := o.markContacted(brief.ID, dealer, sel); err != nil {
		return string(sel.Method), err
	}
	return string(sel.Method), nil
}

func (o *Orchestrator) sendEmail(ctx context.Context, brief *models.Brief, dealer *models.Dealership, sel contact.Selection, round string, lowestOTD int64) error {
	msg, err := o.Composer.Compose(brief, dealer, round, lowestOTD)
	if err != nil {
		return err
	}
	from := o.Composer.ReplyTo(brief.ID)

	row := models.EmailMessage{
		ID:           uuid.NewString(),
		BriefID:      brief.ID,
		DealershipID: dealer.ID,
		ContactID:    sel.ContactID,
		Direction:    "outbound",
		Round:        round,
		ToEmail:      sel.Email,
		FromEmail:    from,
		Subject:      msg.Subject,
		BodyText:     msg.Text,
		BodyHTML:     msg.HTML,
		Status:       models.MessageStatusPending,
		CreatedAt:    time.Now(),
	}

	providerID, sendErr := o.Email.SendEmail(ctx, channels.EmailRequest{
		From:     from,
		To:       sel.Email,
		Subject:  msg.Subject,
		TextBody: msg.Text,
		HTMLBody: msg.HTML,
	})
	if sendErr != nil {
		row.Status = models.MessageStatusFailed
		if err := o.DB.Create(&row).Error; err != nil {
			log.Printf("automation: record failed email: %v", err)
		}
		return sendErr
	}

	row.Status = models.MessageStatusSent
	row.ProviderMessageID = providerID
	return o.DB.Create(&row).Error
}

func (o *Orchestrator) sendSMS(ctx context.Context, brief *models.Brief, dealer *models.Dealership, sel contact.Selection, round string, lowestOTD int64) error {
	row := models.SmsMessage{
		ID:           uuid.NewString(),
		BriefID:      brief.ID,
		DealershipID: dealer.ID,
		Direction:    "outbound",
		Round:        round,
		ToNumber:     sel.Phone,
		BodyText:     o.Composer.SMSBody(brief, round, lowestOTD),
		Status:       models.MessageStatusPending,
		CreatedAt:    time.Now(),
	}

	sid, sendErr := o.SMS.SendSMS(ctx, channels.SMSRequest{To: sel.Phone, Body: row.BodyText})
	if sendErr != nil {
		row.Status = models.MessageStatusFailed
		if err := o.DB.Create(&row).Error; err != nil {
			log.Printf("automation: record failed sms: %v", err)
		}
		return sendErr
	}

	row.Status = models.MessageStatusSent
	row.ProviderSID = sid
	return o.DB.Create(&row).Error
}

func (o *Orchestrator) runWorkflow(ctx context.Context, brief *models.Brief, dealer *models.Dealership, round string, lowestOTD int64) error {
	target := dealer.Website
	if target == "" {
		target = "https://www.google.com/search?q=" + dealer.Name
	}

	row := models.SkyvernRun{
		ID:           uuid.NewString(),
		BriefID:      brief.ID,
		DealershipID: dealer.ID,
		Round:        round,
		TargetURL:    target,
		Goal:         o.Composer.SkyvernGoal(brief, round, lowestOTD),
		Status:       models.MessageStatusPending,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	run, sendErr := o.Browser.CreateWorkflow(ctx, channels.WorkflowRequest{
		URL:  target,
		Goal: row.Goal,
	})
	if sendErr != nil {
		row.Status = models.MessageStatusFailed
		if err := o.DB.Create(&row).Error; err != nil {
			log.Printf("automation: record failed workflow: %v", err)
		}
		return sendErr
	}

	row.RunID = run.RunID
	row.Status = run.Status
	return o.DB.Create(&row).Error
}

// markContacted stamps the dealership, the named contact when one was used,
// and the brief's prospect row.
func (o *Orchestrator) markContacted(briefID string, dealer *models.Dealership, sel contact.Selection) error {
	now := time.Now()
	if err := o.DB.Model(&models.Dealership{}).Where("id = ?", dealer.ID).
		Update("last_contacted_at", now).Error; err != nil {
		return err
	}
	if sel.ContactID != nil {
		if err := o.DB.Model(&models.DealerContact{}).Where("id = ?", *sel.ContactID).
			Update("last_contacted_at", now).Error; err != nil {
			return err
		}
	}
	return o.DB.Model(&models.DealerProspect{}).
		Where("brief_id = ? AND dealership_id = ?", briefID, dealer.ID).
		Update("status", models.ProspectStatusContacted).Error
}

// claimInitial inserts the initial-round claim row. The unique
// (brief_id, round) index makes the claim atomic: a second caller loses the
// insert and gets ErrAlreadySent.
func (o *Orchestrator) claimInitial(briefID string) error {
	claim := models.NegotiationRound{
		BriefID:   briefID,
		Round:     models.RoundInitial,
		SentAt:    time.Now(),
		CreatedAt: time.Now(),
	}
	if err := o.DB.Create(&claim).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadySent
		}
		return fmt.Errorf("automation: claim initial round for brief %s: %w", briefID, err)
	}
	return nil
}

// releaseInitial drops the claim row so a brief whose discovery failed can be
// retried.
func (o *Orchestrator) releaseInitial(briefID string) {
	if err := o.DB.
		Where("brief_id = ? AND round = ?", briefID, models.RoundInitial).
		Delete(&models.NegotiationRound{}).Error; err != nil {
		log.Printf("automation: release initial claim for brief %s: %v", briefID, err)
	}
}
