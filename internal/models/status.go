package models

// Brief lifecycle statuses.
const (
	BriefStatusSourcing    = "sourcing"
	BriefStatusOffers      = "offers"
	BriefStatusNegotiation = "negotiation"
	BriefStatusContract    = "contract"
	BriefStatusDone        = "done"
)

// Quote statuses.
const (
	QuoteStatusDraft      = "draft"
	QuoteStatusPublished  = "published"
	QuoteStatusAccepted   = "accepted"
	QuoteStatusRejected   = "rejected"
	QuoteStatusSuperseded = "superseded"
)

// Quote sources.
const (
	QuoteSourceDealerForm  = "dealer_form"
	QuoteSourceEmailParsed = "email_parsed"
)

// QuoteLine kinds.
const (
	QuoteLineIncentive = "incentive"
	QuoteLineFee       = "fee"
	QuoteLineAddon     = "addon"
)

// DealerProspect statuses.
const (
	ProspectStatusPending   = "pending"
	ProspectStatusContacted = "contacted"
	ProspectStatusDeclined  = "declined"
)

// Negotiation rounds, in order.
const (
	RoundInitial = "initial"
	RoundCounter = "counter"
	RoundFinal   = "final"
)

// Outbound message delivery statuses.
const (
	MessageStatusPending = "pending"
	MessageStatusSent    = "sent"
	MessageStatusFailed  = "failed"
)

// Timeline actors.
const (
	ActorBuyer  = "buyer"
	ActorDealer = "dealer"
	ActorOps    = "ops"
	ActorSystem = "system"
)

// Timeline event types emitted by the core pipeline.
const (
	EventAutomationStarted   = "automation_started"
	EventAutomationCompleted = "automation_completed"
	EventAutomationError     = "automation_error"
	EventDealerContacted     = "dealer_contacted"
	EventDealerContactFailed = "dealer_contact_failed"
	EventQuoteReceived       = "quote_received"
	EventQuoteSubmitted      = "quote_submitted"
	EventQuotePublished      = "quote_published"
	EventQuoteAccepted       = "quote_accepted"
	EventRoundAdvanced       = "round_advanced"
)
