package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nmbli/concierge/internal/automation"
	"github.com/nmbli/concierge/internal/briefs"
	"github.com/nmbli/concierge/internal/quotes"
	"github.com/nmbli/concierge/internal/timeline"
)

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, opts StartOpts) {
	router.POST("/briefs", handleCreateBrief(opts))
	router.GET("/briefs/:id", handleGetBrief(opts))
	router.POST("/briefs/:id/send-quotes", handleSendQuotes(opts))
	router.POST("/briefs/:id/automate", handleSendQuotes(opts))

	router.POST("/emails/inbound", handleInboundEmail(opts))

	router.POST("/quotes/:id/accept", handleAcceptQuote(opts))
	router.POST("/quotes/:id/publish", handlePublishQuote(opts))

	router.POST("/negotiation/tick", handleTick(opts))
}

func handleCreateBrief(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in briefs.CreateInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		brief, err := briefs.Create(opts.DB, in)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, brief)
	}
}

func handleGetBrief(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		brief, err := briefs.Get(opts.DB, c.Param("id"))
		if err != nil {
			if errors.Is(err, briefs.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Brief not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		events, err := timeline.ForBrief(opts.DB, brief.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"brief": brief, "timeline": events})
	}
}

// handleSendQuotes triggers the full outreach run for a brief. A second call
// for the same brief is rejected; partial channel failure is still success.
func handleSendQuotes(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := opts.Orchestrator.ProcessBrief(c.Request.Context(), c.Param("id"))
		if err != nil {
			switch {
			case errors.Is(err, briefs.ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "Brief not found"})
			case errors.Is(err, automation.ErrAlreadySent):
				c.JSON(http.StatusBadRequest, gin.H{"error": "Quote requests already sent for this brief"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"sent":    result.Sent,
			"failed":  result.Failed,
		})
	}
}

// handleInboundEmail receives dealer replies from the email provider's
// inbound webhook, parses them, and stores a draft quote for ops review.
func handleInboundEmail(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload quotes.InboundEmail
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		parsed, err := opts.Parser.ParseInbound(payload)
		if err != nil {
			if errors.Is(err, quotes.ErrInvalidRecipient) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipient address format"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		quote, err := quotes.IngestParsed(opts.DB, parsed)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
			return
		}
		opts.Notifier.QuoteReceived(parsed.BriefID, parsed.DealerName, quote.OTDTotal)

		receivedAt := payload.ReceivedAt
		if receivedAt == "" {
			receivedAt = time.Now().UTC().Format(time.RFC3339)
		}
		quoteBody := gin.H{
			"dealerName":  parsed.DealerName,
			"dealerEmail": parsed.DealerEmail,
			"receivedAt":  receivedAt,
			"subject":     parsed.Subject,
		}
		if parsed.OTDPrice != nil {
			quoteBody["otdPrice"] = *parsed.OTDPrice
		}
		if parsed.MSRP != nil {
			quoteBody["msrp"] = *parsed.MSRP
		}
		if parsed.Discount != nil {
			quoteBody["dealerDiscount"] = *parsed.Discount
		}
		if parsed.TaxesAndFees != nil {
			quoteBody["taxesAndFees"] = *parsed.TaxesAndFees
		}

		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"parsed":  true,
			"briefId": parsed.BriefID,
			"quoteId": quote.ID,
			"quote":   quoteBody,
		})
	}
}

func handleAcceptQuote(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			BuyerID string `json:"buyerId"`
		}
		// Body is optional; without a buyerId the ownership check is skipped.
		_ = c.ShouldBindJSON(&body)
		quote, err := quotes.Accept(opts.DB, c.Param("id"), body.BuyerID)
		if err != nil {
			if errors.Is(err, quotes.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Quote not found"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, quote)
	}
}

func handlePublishQuote(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Note string `json:"note"`
		}
		// Body is optional.
		_ = c.ShouldBindJSON(&body)
		quote, err := quotes.Publish(opts.DB, c.Param("id"), body.Note)
		if err != nil {
			if errors.Is(err, quotes.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Quote not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, quote)
	}
}

// handleTick runs one scheduler pass on demand, for ops.
func handleTick(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		if opts.Engine == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Negotiation engine not configured"})
			return
		}
		if err := opts.Engine.Tick(c.Request.Context()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
