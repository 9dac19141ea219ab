package domain

// Listing represents a single cryptocurrency listing returned by the
// market-data API.
type Listing struct {
	Name         string  // display name, e.g. "Bitcoin"
	Symbol       string  // ticker symbol, e.g. "BTC"
	Slug         string  // unique URL slug, e.g. "bitcoin"
	DateAdded    int64   // when the listing was added, Unix timestamp in milliseconds
	PriceUSD     float64 // current USD price
	PctChange1h  float64 // percent price change over the last hour
	PctChange24h float64 // percent price change over the last 24 hours
	Platform     *string // host platform name for tokens (nullable, nil for native coins)
}
