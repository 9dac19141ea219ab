package notify

import (
	"fmt"
	"strings"

	"listingwatch/internal/domain"
)

// DefaultLinkBaseURL prefixes the per-listing detail link.
const DefaultLinkBaseURL = "https://coinmarketcap.com/currencies/"

// FormatMessage renders the notification for one listing. The same message
// goes to every recipient on every channel; channel senders decide whether
// to use the subject.
func FormatMessage(listing *domain.Listing, linkBaseURL string) Message {
	if linkBaseURL == "" {
		linkBaseURL = DefaultLinkBaseURL
	}
	if !strings.HasSuffix(linkBaseURL, "/") {
		linkBaseURL += "/"
	}

	lines := []string{
		fmt.Sprintf("%s (%s) was just listed.", listing.Name, listing.Symbol),
	}
	if listing.Platform != nil {
		lines = append(lines, fmt.Sprintf("Platform: %s", *listing.Platform))
	}
	lines = append(lines,
		fmt.Sprintf("Price: $%s", formatPrice(listing.PriceUSD)),
		fmt.Sprintf("Change: %+.2f%% (1h), %+.2f%% (24h)", listing.PctChange1h, listing.PctChange24h),
		linkBaseURL+listing.Slug+"/",
	)

	return Message{
		Subject: fmt.Sprintf("New listing: %s (%s)", listing.Name, listing.Symbol),
		Body:    strings.Join(lines, "\n"),
	}
}

// formatPrice keeps small-cap prices readable. Sub-dollar listings need
// more precision than established coins.
func formatPrice(price float64) string {
	if price < 1 {
		return fmt.Sprintf("%.6f", price)
	}
	return fmt.Sprintf("%.2f", price)
}
