package yahoo

// quoteEnvelope is the top-level container returned by the quote endpoint.
type quoteEnvelope struct {
	QuoteResponse quoteResponse `json:"quoteResponse"`
}

type quoteResponse struct {
	Result []QuoteResult `json:"result"`
	Error  *apiError     `json:"error"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// QuoteResult is one raw quote row as the upstream reports it. Numeric fields
// are pointers so missing values are distinguishable from zero; normalization
// rejects rows whose required fields are absent.
type QuoteResult struct {
	Symbol                     string   `json:"symbol"`
	ShortName                  string   `json:"shortName"`
	RegularMarketPrice         *float64 `json:"regularMarketPrice"`
	RegularMarketChange        *float64 `json:"regularMarketChange"`
	RegularMarketChangePercent *float64 `json:"regularMarketChangePercent"`
	RegularMarketDayHigh       *float64 `json:"regularMarketDayHigh"`
	RegularMarketDayLow        *float64 `json:"regularMarketDayLow"`
	RegularMarketVolume        *float64 `json:"regularMarketVolume"`
	RegularMarketOpen          *float64 `json:"regularMarketOpen"`
	RegularMarketPreviousClose *float64 `json:"regularMarketPreviousClose"`
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
