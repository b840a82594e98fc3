// Package compose renders outreach messages for each negotiation round.
package compose

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strconv"
	"strings"
	texttemplate "text/template"

	"github.com/nmbli/concierge/internal/models"
)

// Message is a rendered outreach message. Text and HTML carry equivalent
// information; SMS and browser-automation channels use Text only.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

// Composer renders round-specific outreach for a configured mail domain.
type Composer struct {
	Domain   string // inbound mail domain, e.g. "nmbli.com"
	FromName string
}

// ReplyTo returns the reply address that routes a dealer's answer back to
// the brief: quote-<briefId>@<domain>.
func (c *Composer) ReplyTo(briefID string) string {
	return fmt.Sprintf("quote-%s@%s", briefID, c.Domain)
}

// templateData is the single payload handed to every round template.
type templateData struct {
	DealerName    string
	FromName      string
	Vehicle       string
	Zipcode       string
	MaxOTD        string
	PaymentType   string
	DownPayment   string // empty unless financing/leasing with a down payment
	MonthlyBudget string // empty unless financing/leasing with a budget
	Timeline      string
	ReplyTo       string
	LowestOTD     string // final round only
}

// Compose renders the subject, plain-text body, and HTML body for one round
// of outreach to one dealer. lowestOTD is only consulted for the final round;
// zero means no quote has been received yet.
func (c *Composer) Compose(brief *models.Brief, dealer *models.Dealership, round string, lowestOTD int64) (Message, error) {
	data := templateData{
		DealerName:  dealer.Name,
		FromName:    c.FromName,
		Vehicle:     brief.Vehicle(),
		Zipcode:     brief.Zipcode,
		MaxOTD:      Dollars(brief.MaxOTD),
		PaymentType: brief.PaymentType,
		Timeline:    brief.Timeline,
		ReplyTo:     c.ReplyTo(brief.ID),
	}
	if brief.PaymentType == "finance" || brief.PaymentType == "lease" {
		if brief.DownPayment > 0 {
			data.DownPayment = Dollars(brief.DownPayment)
		}
		if brief.MonthlyBudget > 0 {
			data.MonthlyBudget = Dollars(brief.MonthlyBudget)
		}
	}
	if lowestOTD > 0 {
		data.LowestOTD = Dollars(lowestOTD)
	}

	var subject string
	switch round {
	case models.RoundInitial:
		subject = fmt.Sprintf("Quote Request: %s", data.Vehicle)
	case models.RoundCounter:
		subject = fmt.Sprintf("Counter Offer: %s", data.Vehicle)
	case models.RoundFinal:
		subject = fmt.Sprintf("Final Offer Request: %s", data.Vehicle)
	default:
		return Message{}, fmt.Errorf("compose: unknown round %q", round)
	}

	var text bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&text, round, data); err != nil {
		return Message{}, fmt.Errorf("compose: render %s text: %w", round, err)
	}
	var html bytes.Buffer
	if err := htmlTemplates.ExecuteTemplate(&html, round, data); err != nil {
		return Message{}, fmt.Errorf("compose: render %s html: %w", round, err)
	}

	return Message{
		Subject: subject,
		Text:    strings.TrimSpace(text.String()) + "\n",
		HTML:    html.String(),
	}, nil
}

// SMSBody renders the short-form message for the SMS channel. Like Compose,
// lowestOTD is only consulted for the final round.
func (c *Composer) SMSBody(brief *models.Brief, round string, lowestOTD int64) string {
	switch round {
	case models.RoundCounter:
		return fmt.Sprintf("Following up on the %s quote. The buyer is comparing offers and your number is not the strongest. Can you sharpen your out-the-door price? Reply or email %s.",
			brief.Vehicle(), c.ReplyTo(brief.ID))
	case models.RoundFinal:
		if lowestOTD > 0 {
			return fmt.Sprintf("Final round on the %s. Lowest out-the-door quote in hand is %s. Beat it and the deal is yours. Reply or email %s by end of day.",
				brief.Vehicle(), Dollars(lowestOTD), c.ReplyTo(brief.ID))
		}
		return fmt.Sprintf("Final round on the %s. The buyer is deciding now and your best out-the-door number decides it. Reply or email %s by end of day.",
			brief.Vehicle(), c.ReplyTo(brief.ID))
	default:
		return fmt.Sprintf("Hi! Looking for a %s near %s. Max budget: %s out-the-door. Timeline: %s. Can you help? Reply or email %s.",
			brief.Vehicle(), brief.Zipcode, Dollars(brief.MaxOTD), brief.Timeline, c.ReplyTo(brief.ID))
	}
}

// SkyvernGoal renders the navigation goal for the browser-automation
// fallback: fill the dealer's contact form with the round's ask.
func (c *Composer) SkyvernGoal(brief *models.Brief, round string, lowestOTD int64) string {
	switch round {
	case models.RoundCounter:
		return fmt.Sprintf("Fill out the dealership's contact form with a follow-up about the buyer's %s quote: the buyer is comparing offers and asks the dealer to sharpen their out-the-door price. Use %s as the contact email.",
			brief.Vehicle(), c.ReplyTo(brief.ID))
	case models.RoundFinal:
		if lowestOTD > 0 {
			return fmt.Sprintf("Fill out the dealership's contact form asking for a final out-the-door offer on the %s. The lowest quote in hand is %s; the dealer wins the deal by beating it. Use %s as the contact email.",
				brief.Vehicle(), Dollars(lowestOTD), c.ReplyTo(brief.ID))
		}
		return fmt.Sprintf("Fill out the dealership's contact form asking for a best and final out-the-door offer on the %s. Use %s as the contact email.",
			brief.Vehicle(), c.ReplyTo(brief.ID))
	default:
		return fmt.Sprintf("Fill out the dealership's quote request form for a %s. Buyer ZIP %s, budget %s out-the-door, payment type %s, timeline %s. Use %s as the contact email.",
			brief.Vehicle(), brief.Zipcode, Dollars(brief.MaxOTD), brief.PaymentType, brief.Timeline, c.ReplyTo(brief.ID))
	}
}

// Dollars formats whole dollars as "$50,700".
func Dollars(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}
	s := strconv.FormatInt(amount, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	lead := len(s) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(s[:lead])
	for i := lead; i < len(s); i += 3 {
		b.WriteByte(',')
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

const initialText = `Hello {{.DealerName}} Team,

A buyer is interested in purchasing a {{.Vehicle}} and is requesting your best out-the-door (OTD) quote.

CUSTOMER REQUIREMENTS:
- Vehicle: {{.Vehicle}}
- Location: {{.Zipcode}}
- Max OTD Budget: {{.MaxOTD}}
- Payment Type: {{.PaymentType}}
{{if .DownPayment}}- Down Payment: {{.DownPayment}}
{{end}}{{if .MonthlyBudget}}- Target Monthly Payment: {{.MonthlyBudget}}
{{end}}- Timeline: {{.Timeline}}

WHAT WE NEED:
- Itemized out-the-door quote (vehicle price, fees, taxes, etc.)
- Available inventory that matches these requirements
- Any current promotions or incentives
- Delivery timeframe

Please reply to {{.ReplyTo}} with your best quote. The buyer will review all quotes and make a decision quickly.

Thank you,
{{.FromName}} Team`

const counterText = `Hello {{.DealerName}} Team,

Thank you for your quote on the {{.Vehicle}}.

The buyer is comparing offers from several dealerships and your number is not currently the strongest. If you can sharpen your out-the-door price, now is the time. The buyer is ready to move within {{.Timeline}}.

Please reply to {{.ReplyTo}} with your best and final itemized number.

Thank you,
{{.FromName}} Team`

const finalText = `Hello {{.DealerName}} Team,

Final round on the {{.Vehicle}}.

{{if .LowestOTD}}The lowest out-the-door quote the buyer has in hand is {{.LowestOTD}}. If you can beat that number, the deal is yours.
{{else}}The buyer is making a decision now. Your best out-the-door number decides it.
{{end}}
Please reply to {{.ReplyTo}} with an itemized out-the-door price by end of day.

Thank you,
{{.FromName}} Team`

const initialHTML = `<html><body>
<p>Hello {{.DealerName}} Team,</p>
<p>A buyer is interested in purchasing a {{.Vehicle}} and is requesting your best out-the-door (OTD) quote.</p>
<h3>Customer Requirements</h3>
<ul>
<li><strong>Vehicle:</strong> {{.Vehicle}}</li>
<li><strong>Location:</strong> {{.Zipcode}}</li>
<li><strong>Max OTD Budget:</strong> {{.MaxOTD}}</li>
<li><strong>Payment Type:</strong> {{.PaymentType}}</li>
{{if .DownPayment}}<li><strong>Down Payment:</strong> {{.DownPayment}}</li>{{end}}
{{if .MonthlyBudget}}<li><strong>Target Monthly Payment:</strong> {{.MonthlyBudget}}</li>{{end}}
<li><strong>Timeline:</strong> {{.Timeline}}</li>
</ul>
<h3>What We Need</h3>
<ul>
<li>Itemized out-the-door quote (vehicle price, fees, taxes, etc.)</li>
<li>Available inventory that matches these requirements</li>
<li>Any current promotions or incentives</li>
<li>Delivery timeframe</li>
</ul>
<p>Please reply to <a href="mailto:{{.ReplyTo}}">{{.ReplyTo}}</a> with your best quote. The buyer will review all quotes and make a decision quickly.</p>
<p>Thank you,<br>{{.FromName}} Team</p>
</body></html>`

const counterHTML = `<html><body>
<p>Hello {{.DealerName}} Team,</p>
<p>Thank you for your quote on the {{.Vehicle}}.</p>
<p>The buyer is comparing offers from several dealerships and your number is not currently the strongest. If you can sharpen your out-the-door price, now is the time. The buyer is ready to move within {{.Timeline}}.</p>
<p>Please reply to <a href="mailto:{{.ReplyTo}}">{{.ReplyTo}}</a> with your best and final itemized number.</p>
<p>Thank you,<br>{{.FromName}} Team</p>
</body></html>`

const finalHTML = `<html><body>
<p>Hello {{.DealerName}} Team,</p>
<p>Final round on the {{.Vehicle}}.</p>
{{if .LowestOTD}}<p>The lowest out-the-door quote the buyer has in hand is <strong>{{.LowestOTD}}</strong>. If you can beat that number, the deal is yours.</p>
{{else}}<p>The buyer is making a decision now. Your best out-the-door number decides it.</p>
{{end}}<p>Please reply to <a href="mailto:{{.ReplyTo}}">{{.ReplyTo}}</a> with an itemized out-the-door price by end of day.</p>
<p>Thank you,<br>{{.FromName}} Team</p>
</body></html>`

var textTemplates = func() *texttemplate.Template {
	t := texttemplate.New("outreach")
	texttemplate.Must(t.New(models.RoundInitial).Parse(initialText))
	texttemplate.Must(t.New(models.RoundCounter).Parse(counterText))
	texttemplate.Must(t.New(models.RoundFinal).Parse(finalText))
	return t
}()

var htmlTemplates = func() *htmltemplate.Template {
	t := htmltemplate.New("outreach")
	htmltemplate.Must(t.New(models.RoundInitial).Parse(initialHTML))
	htmltemplate.Must(t.New(models.RoundCounter).Parse(counterHTML))
	htmltemplate.Must(t.New(models.RoundFinal).Parse(finalHTML))
	return t
}()
