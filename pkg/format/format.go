// Package format holds the display and form helpers shared by the marketplace views.
package format

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

const (
	defaultKeyHeadLength = 4
	defaultKeyTailLength = 4
	keyEllipsis          = "..."

	// DefaultCurrency is the ledger's native asset code.
	DefaultCurrency = "XLM"

	maxPriceFractionDigits = 7
	percentDenominator     = 100

	displayDateLayout = "Jan 2, 2006, 03:04 PM"

	spaceImageBaseURL = "https://source.unsplash.com"
	spaceImageSize    = 800
)

var spaceThemes = []string{"galaxy", "nebula", "stars", "planet", "space", "cosmic"}

// PublicKey shortens a ledger key to its first and last four characters.
func PublicKey(publicKey string) string {
	return TruncateKey(publicKey, defaultKeyHeadLength, defaultKeyTailLength)
}

// TruncateKey keeps head leading and tail trailing characters joined by an ellipsis.
// Keys too short to shorten are returned unchanged.
func TruncateKey(publicKey string, head int, tail int) string {
	trimmed := strings.TrimSpace(publicKey)
	if trimmed == "" {
		return ""
	}
	if head < 0 {
		head = 0
	}
	if tail < 0 {
		tail = 0
	}
	if len(trimmed) <= head+tail {
		return trimmed
	}
	return trimmed[:head] + keyEllipsis + trimmed[len(trimmed)-tail:]
}

// Price renders an amount with thousands separators and at most seven fraction digits.
func Price(price decimal.Decimal, currency string) string {
	if strings.TrimSpace(currency) == "" {
		currency = DefaultCurrency
	}
	rounded := price.Round(maxPriceFractionDigits)
	if rounded.IsZero() {
		return "0 " + currency
	}
	sign := ""
	if rounded.Sign() < 0 {
		sign = "-"
		rounded = rounded.Abs()
	}
	integral := rounded.Truncate(0)
	rendered := humanize.BigComma(integral.BigInt())
	fraction := strings.TrimPrefix(rounded.Sub(integral).String(), "0")
	if fraction != "" && fraction != "0" {
		rendered += fraction
	}
	return fmt.Sprintf("%s%s %s", sign, rendered, currency)
}

// PriceString parses a raw amount and renders it like Price; unparsable input renders as zero.
func PriceString(raw string, currency string) string {
	parsed, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return Price(decimal.Zero, currency)
	}
	return Price(parsed, currency)
}

// Date renders a timestamp for display; the zero time renders as an empty string.
func Date(moment time.Time) string {
	if moment.IsZero() {
		return ""
	}
	return moment.Format(displayDateLayout)
}

// DateString parses an RFC 3339 timestamp and renders it like Date.
func DateString(raw string) string {
	parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return Date(parsed)
}

// Royalty returns the creator's cut of price.
func Royalty(price decimal.Decimal, percentage uint32) decimal.Decimal {
	if price.IsZero() || percentage == 0 {
		return decimal.Zero
	}
	return price.Mul(decimal.NewFromInt(int64(percentage))).Div(decimal.NewFromInt(percentDenominator))
}

// SpaceImageURL returns a space-themed placeholder image. The theme is picked from the seed,
// so the same seed always yields the same URL.
func SpaceImageURL(seed string) string {
	trimmed := strings.TrimSpace(seed)
	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(trimmed))
	theme := spaceThemes[int(hasher.Sum32()%uint32(len(spaceThemes)))]
	url := fmt.Sprintf("%s/%dx%d/?%s", spaceImageBaseURL, spaceImageSize, spaceImageSize, theme)
	if trimmed != "" {
		url += "&sig=" + trimmed
	}
	return url
}
