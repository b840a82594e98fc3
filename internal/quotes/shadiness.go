package quotes

// LineInput is one itemized entry on a submitted quote.
type LineInput struct {
	Name     string
	Amount   int64
	Optional bool
}

// SubmitInput is a dealer's structured quote submission. Amounts are whole
// dollars.
type SubmitInput struct {
	BriefID      string
	DealershipID string

	VIN         string
	StockNumber string
	Year        int
	Make        string
	Model       string
	Trim        string

	MSRP           int64
	DealerDiscount int64
	DocFee         int64
	DMVFee         int64
	TireBatteryFee int64
	TaxAmount      int64
	OTDTotal       int64

	Incentives []LineInput
	OtherFees  []LineInput
	Addons     []LineInput

	RequiresCreditPullForCash bool
	HonorsAdvertisedVinPrice  bool
	EvidenceNote              string
}

// Score rates a quote's trustworthiness on a 0-100 scale where higher is
// shadier. A bare out-the-door number with no itemization, forced add-ons,
// and a credit pull demanded on a cash deal all raise the score; honoring an
// advertised VIN price and a contract that matched the quote on the first
// try lower it.
func Score(in SubmitInput, contractMatchedFirstTry bool) int {
	score := 0

	itemized := len(in.Incentives)+len(in.Addons)+len(in.OtherFees) > 0 ||
		in.DocFee > 0 || in.DMVFee > 0 || in.TireBatteryFee > 0
	if !itemized && in.OTDTotal > 0 {
		score += 10
	}

	for _, addon := range in.Addons {
		if !addon.Optional && addon.Amount > 0 {
			score += 15
			break
		}
	}

	if in.RequiresCreditPullForCash {
		score += 10
	}
	if in.HonorsAdvertisedVinPrice {
		score -= 10
	}
	if contractMatchedFirstTry {
		score -= 15
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
