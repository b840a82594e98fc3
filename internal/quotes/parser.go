// Package quotes parses inbound dealer quotes and manages their lifecycle.
package quotes

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidRecipient is returned when an inbound email's recipient does not
// carry a brief identifier.
var ErrInvalidRecipient = errors.New("quotes: invalid recipient address format")

// InboundEmail is the webhook payload for a dealer reply.
type InboundEmail struct {
	To         string `json:"to"`
	From       string `json:"from"`
	Subject    string `json:"subject"`
	Text       string `json:"text"`
	HTML       string `json:"html"`
	ReceivedAt string `json:"receivedAt"`
}

// ParsedQuote is the structured result of parsing an inbound email. Price
// fields are nil when the body carried no recognizable figure.
type ParsedQuote struct {
	BriefID      string
	DealerName   string
	DealerEmail  string
	Subject      string
	Body         string
	OTDPrice     *int64
	MSRP         *int64
	Discount     *int64
	TaxesAndFees *int64
}

// Parser extracts quote data from inbound dealer emails. The reply-to
// convention quote-<briefID>@<domain> routes replies back to their brief.
type Parser struct {
	briefRe *regexp.Regexp
}

// NewParser builds a parser for replies addressed to the given domain.
func NewParser(domain string) *Parser {
	return &Parser{
		briefRe: regexp.MustCompile(`quote-([^@]+)@` + regexp.QuoteMeta(domain)),
	}
}

// Ordered by specificity; the first matching pattern wins so a body that
// spells out "Out-the-Door Price" is not misread by the looser "total".
var otdPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)out[- ]?the[- ]?door\s*price[:\s]+\$?([\d,]+)`),
	regexp.MustCompile(`(?i)out[- ]?the[- ]?door[:\s]+\$?([\d,]+)`),
	regexp.MustCompile(`(?i)otd[:\s]+\$?([\d,]+)`),
	regexp.MustCompile(`(?i)total[:\s]+\$?([\d,]+)`),
}

var (
	msrpRe     = regexp.MustCompile(`(?i)msrp[:\s]+\$?([\d,]+)`)
	discountRe = regexp.MustCompile(`(?i)dealer[- ]?discount[:\s]+[-]?\$?([\d,]+)`)
	taxesRe    = regexp.MustCompile(`(?i)taxes?[- ]?(?:and|&)?[- ]?fees?[:\s]+[+]?\$?([\d,]+)`)
	senderRe   = regexp.MustCompile(`([^@<]+)@`)
	subjectRe  = regexp.MustCompile(`(?i)(?:from|regards from)\s+([^-]+)`)
)

// ParseInbound extracts the brief ID, dealer identity, and any quoted prices
// from an inbound email. Missing prices are not an error; a recipient address
// without a brief ID is.
func (p *Parser) ParseInbound(in InboundEmail) (ParsedQuote, error) {
	m := p.briefRe.FindStringSubmatch(in.To)
	if m == nil {
		return ParsedQuote{}, fmt.Errorf("parse recipient %q: %w", in.To, ErrInvalidRecipient)
	}

	body := in.Text
	if body == "" {
		body = in.HTML
	}

	parsed := ParsedQuote{
		BriefID:     m[1],
		DealerName:  dealerName(in.From, in.Subject),
		DealerEmail: in.From,
		Subject:     in.Subject,
		Body:        body,
	}

	for _, re := range otdPatterns {
		if v, ok := amount(re, body); ok {
			parsed.OTDPrice = &v
			break
		}
	}
	if v, ok := amount(msrpRe, body); ok {
		parsed.MSRP = &v
	}
	if v, ok := amount(discountRe, body); ok {
		parsed.Discount = &v
	}
	if v, ok := amount(taxesRe, body); ok {
		parsed.TaxesAndFees = &v
	}
	return parsed, nil
}

func amount(re *regexp.Regexp, body string) (int64, bool) {
	m := re.FindStringSubmatch(body)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseInt(strings.ReplaceAll(m[1], ",", ""), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// dealerName derives a display name from the sender address, falling back to
// the subject line and then to the raw sender. Generic inbox names are
// rejected so "sales@stevenscreekmazda.com" does not become "sales".
func dealerName(from, subject string) string {
	if m := senderRe.FindStringSubmatch(from); m != nil {
		name := strings.TrimSpace(strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(m[1]))
		if name != "" && !strings.Contains(name, "sales") && !strings.Contains(name, "noreply") {
			return name
		}
	}
	if m := subjectRe.FindStringSubmatch(subject); m != nil {
		return strings.TrimSpace(m[1])
	}
	return from
}
