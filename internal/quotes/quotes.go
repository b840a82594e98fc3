package quotes

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nmbli/concierge/internal/models"
	"github.com/nmbli/concierge/internal/timeline"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a quote ID does not exist.
var ErrNotFound = errors.New("quotes: quote not found")

// Submit stores a dealer's structured quote as published. When the dealership
// already has a published or accepted quote on the brief, the new quote
// chains to it via ParentQuoteID and the old one is superseded; the
// supersede and the insert commit together.
func Submit(db *gorm.DB, in SubmitInput) (*models.Quote, error) {
	total := func(lines []LineInput) int64 {
		var sum int64
		for _, l := range lines {
			sum += l.Amount
		}
		return sum
	}

	quote := models.Quote{
		ID:              uuid.NewString(),
		BriefID:         in.BriefID,
		DealershipID:    in.DealershipID,
		Status:          models.QuoteStatusPublished,
		Source:          models.QuoteSourceDealerForm,
		VIN:             in.VIN,
		StockNumber:     in.StockNumber,
		Year:            in.Year,
		Make:            in.Make,
		Model:           in.Model,
		Trim:            in.Trim,
		MSRP:            in.MSRP,
		DealerDiscount:  in.DealerDiscount,
		DocFee:          in.DocFee,
		DMVFee:          in.DMVFee,
		TireBatteryFee:  in.TireBatteryFee,
		OtherFeesTotal:  total(in.OtherFees),
		IncentivesTotal: total(in.Incentives),
		AddonsTotal:     total(in.Addons),
		TaxAmount:       in.TaxAmount,
		OTDTotal:        in.OTDTotal,

		RequiresCreditPullForCash: in.RequiresCreditPullForCash,
		HonorsAdvertisedVinPrice:  in.HonorsAdvertisedVinPrice,
		ShadinessScore:            Score(in, false),
		EvidenceNote:              in.EvidenceNote,
		CreatedAt:                 time.Now(),
		UpdatedAt:                 time.Now(),
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		var previous models.Quote
		err := tx.Where("brief_id = ? AND dealership_id = ? AND status IN ?",
			in.BriefID, in.DealershipID,
			[]string{models.QuoteStatusPublished, models.QuoteStatusAccepted}).
			Order("created_at DESC").First(&previous).Error
		switch {
		case err == nil:
			quote.ParentQuoteID = &previous.ID
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return err
		}

		if err := tx.Create(&quote).Error; err != nil {
			return err
		}
		if lines := buildLines(quote.ID, in); len(lines) > 0 {
			if err := tx.Create(&lines).Error; err != nil {
				return err
			}
		}

		if quote.ParentQuoteID != nil {
			if err := tx.Model(&models.Quote{}).Where("id = ?", previous.ID).
				Update("status", models.QuoteStatusSuperseded).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("quotes: submit for brief %s: %w", in.BriefID, err)
	}

	_, _ = timeline.Record(db, timeline.Entry{
		BriefID: in.BriefID,
		QuoteID: quote.ID,
		Type:    models.EventQuoteSubmitted,
		Actor:   models.ActorDealer,
		Payload: map[string]interface{}{
			"dealershipId":   in.DealershipID,
			"shadinessScore": quote.ShadinessScore,
		},
	})
	return &quote, nil
}

// buildLines expands the submission into itemized rows. The flat fee fields
// get synthetic named lines so every dollar on the quote is inspectable.
func buildLines(quoteID string, in SubmitInput) []models.QuoteLine {
	var lines []models.QuoteLine
	add := func(kind, name string, amount int64, optional bool) {
		lines = append(lines, models.QuoteLine{
			ID:       uuid.NewString(),
			QuoteID:  quoteID,
			Kind:     kind,
			Name:     name,
			Amount:   amount,
			Optional: optional,
		})
	}

	for _, l := range in.Incentives {
		add(models.QuoteLineIncentive, l.Name, l.Amount, true)
	}
	for _, l := range in.OtherFees {
		add(models.QuoteLineFee, l.Name, l.Amount, true)
	}
	if in.DocFee > 0 {
		add(models.QuoteLineFee, "Doc Fee", in.DocFee, true)
	}
	if in.DMVFee > 0 {
		add(models.QuoteLineFee, "DMV / Registration", in.DMVFee, true)
	}
	if in.TireBatteryFee > 0 {
		add(models.QuoteLineFee, "Tire & Battery", in.TireBatteryFee, true)
	}
	for _, l := range in.Addons {
		add(models.QuoteLineAddon, l.Name, l.Amount, l.Optional)
	}
	return lines
}

// Accept marks a quote accepted on behalf of the brief's buyer and moves the
// brief to contract. At most one quote per brief holds accepted: any previous
// winner flips to rejected in the same transaction. Accepting an already
// accepted quote is a no-op.
func Accept(db *gorm.DB, quoteID, buyerID string) (*models.Quote, error) {
	var quote models.Quote
	if err := db.First(&quote, "id = ?", quoteID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("quotes: load quote %s: %w", quoteID, err)
	}

	var brief models.Brief
	if err := db.First(&brief, "id = ?", quote.BriefID).Error; err != nil {
		return nil, fmt.Errorf("quotes: load brief %s: %w", quote.BriefID, err)
	}
	if buyerID != "" && brief.BuyerID != buyerID {
		return nil, fmt.Errorf("quotes: quote %s does not belong to buyer %s", quoteID, buyerID)
	}
	if quote.Status == models.QuoteStatusAccepted {
		return &quote, nil
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Quote{}).
			Where("brief_id = ? AND status = ?", quote.BriefID, models.QuoteStatusAccepted).
			Update("status", models.QuoteStatusRejected).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Quote{}).Where("id = ?", quoteID).
			Update("status", models.QuoteStatusAccepted).Error; err != nil {
			return err
		}
		return tx.Model(&models.Brief{}).Where("id = ?", quote.BriefID).
			Update("status", models.BriefStatusContract).Error
	})
	if err != nil {
		return nil, fmt.Errorf("quotes: accept quote %s: %w", quoteID, err)
	}
	quote.Status = models.QuoteStatusAccepted

	_, _ = timeline.Record(db, timeline.Entry{
		BriefID: quote.BriefID,
		QuoteID: quote.ID,
		Type:    models.EventQuoteAccepted,
		Actor:   models.ActorBuyer,
		Payload: map[string]interface{}{"otdTotal": quote.OTDTotal},
	})
	return &quote, nil
}

// Publish moves a draft quote to published after ops review. Publishing a
// non-draft quote is a no-op.
func Publish(db *gorm.DB, quoteID, note string) (*models.Quote, error) {
	var quote models.Quote
	if err := db.First(&quote, "id = ?", quoteID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("quotes: load quote %s: %w", quoteID, err)
	}
	if quote.Status != models.QuoteStatusDraft {
		return &quote, nil
	}

	updates := map[string]interface{}{"status": models.QuoteStatusPublished}
	if note != "" {
		updates["evidence_note"] = note
	}
	if err := db.Model(&models.Quote{}).Where("id = ?", quoteID).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("quotes: publish quote %s: %w", quoteID, err)
	}
	quote.Status = models.QuoteStatusPublished
	if note != "" {
		quote.EvidenceNote = note
	}

	_, _ = timeline.Record(db, timeline.Entry{
		BriefID: quote.BriefID,
		QuoteID: quote.ID,
		Type:    models.EventQuotePublished,
		Actor:   models.ActorOps,
	})
	return &quote, nil
}

// IngestParsed stores a parsed inbound email as a draft quote for ops review.
// An unknown sender gets a placeholder dealership keyed by email so the quote
// is never orphaned.
func IngestParsed(db *gorm.DB, p ParsedQuote) (*models.Quote, error) {
	var brief models.Brief
	if err := db.First(&brief, "id = ?", p.BriefID).Error; err != nil {
		return nil, fmt.Errorf("quotes: load brief %s: %w", p.BriefID, err)
	}

	dealer, err := dealerForEmail(db, p)
	if err != nil {
		return nil, fmt.Errorf("quotes: resolve dealer %q: %w", p.DealerEmail, err)
	}

	note := p.Subject + "\n\n" + p.Body
	if len(note) > 1000 {
		note = note[:1000]
	}

	quote := models.Quote{
		ID:           uuid.NewString(),
		BriefID:      p.BriefID,
		DealershipID: dealer.ID,
		Status:       models.QuoteStatusDraft,
		Source:       models.QuoteSourceEmailParsed,
		EvidenceNote: note,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if p.OTDPrice != nil {
		quote.OTDTotal = *p.OTDPrice
	}
	if p.MSRP != nil {
		quote.MSRP = *p.MSRP
	}
	if p.Discount != nil {
		quote.DealerDiscount = *p.Discount
	}
	if p.TaxesAndFees != nil {
		quote.TaxAmount = *p.TaxesAndFees
	}
	if err := db.Create(&quote).Error; err != nil {
		return nil, fmt.Errorf("quotes: ingest for brief %s: %w", p.BriefID, err)
	}

	_, _ = timeline.Record(db, timeline.Entry{
		BriefID: p.BriefID,
		QuoteID: quote.ID,
		Type:    models.EventQuoteReceived,
		Actor:   models.ActorDealer,
		Payload: map[string]interface{}{
			"source":      models.QuoteSourceEmailParsed,
			"dealerEmail": p.DealerEmail,
		},
	})
	return &quote, nil
}

func dealerForEmail(db *gorm.DB, p ParsedQuote) (*models.Dealership, error) {
	var dealer models.Dealership
	err := db.Where("email = ?", p.DealerEmail).First(&dealer).Error
	if err == nil {
		return &dealer, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	name := p.DealerName
	if name == "" {
		name = strings.SplitN(p.DealerEmail, "@", 2)[0]
	}
	dealer = models.Dealership{
		ID:        uuid.NewString(),
		Name:      name,
		City:      "Unknown",
		Email:     p.DealerEmail,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := db.Create(&dealer).Error; err != nil {
		return nil, err
	}
	return &dealer, nil
}

// LowestOTD returns the lowest priced live quote on a brief. The second
// return is false when no published or accepted quote carries a price.
func LowestOTD(db *gorm.DB, briefID string) (int64, bool, error) {
	var quote models.Quote
	err := db.Where("brief_id = ? AND status IN ? AND otd_total > 0",
		briefID, []string{models.QuoteStatusPublished, models.QuoteStatusAccepted}).
		Order("otd_total ASC").First(&quote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("quotes: lowest OTD for brief %s: %w", briefID, err)
	}
	return quote.OTDTotal, true, nil
}
