// Package contact decides which channel to use for reaching a dealership.
package contact

import "github.com/nmbli/concierge/internal/models"

// Method is the outreach channel for one contact attempt.
type Method string

const (
	MethodEmail   Method = "email"
	MethodSMS     Method = "sms"
	MethodSkyvern Method = "skyvern"
)

// Selection is the result of choosing a channel for a dealership.
type Selection struct {
	Method    Method
	Email     string  // recipient address when Method is email
	ContactID *string // the DealerContact used, when one was preferred
	Phone     string  // recipient number when Method is sms
}

// Select picks the single outreach channel for a dealership. Priority:
// a named contact's email beats the dealership's generic inbox, which beats
// SMS, which beats the browser-automation fallback. The fallback is always
// possible since it only needs a search target. Pure function; the
// dealership's Contacts must be preloaded.
func Select(d *models.Dealership) Selection {
	if c := latestEmailContact(d.Contacts); c != nil {
		id := c.ID
		return Selection{Method: MethodEmail, Email: c.Email, ContactID: &id}
	}
	if d.Email != "" {
		return Selection{Method: MethodEmail, Email: d.Email}
	}
	if d.Phone != "" {
		return Selection{Method: MethodSMS, Phone: d.Phone}
	}
	return Selection{Method: MethodSkyvern}
}

// latestEmailContact returns the most-recently-contacted contact that has an
// email address, or nil. Never-contacted entries rank last.
func latestEmailContact(contacts []models.DealerContact) *models.DealerContact {
	var best *models.DealerContact
	for i := range contacts {
		c := &contacts[i]
		if c.Email == "" {
			continue
		}
		if best == nil {
			best = c
			continue
		}
		switch {
		case c.LastContactedAt == nil:
		case best.LastContactedAt == nil:
			best = c
		case c.LastContactedAt.After(*best.LastContactedAt):
			best = c
		}
	}
	return best
}
