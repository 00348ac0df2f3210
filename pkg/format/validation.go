package format

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	FieldName              = "name"
	FieldDescription       = "description"
	FieldRoyaltyPercentage = "royaltyPercentage"
	FieldPrice             = "price"
)

// NFTForm is the raw mint form as submitted by a browser.
type NFTForm struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	ImageURL          string `json:"imageUrl"`
	RoyaltyPercentage string `json:"royaltyPercentage"`
	Price             string `json:"price"`
}

// Validation lists the problems found in a form, keyed by field.
type Validation struct {
	Valid  bool              `json:"isValid"`
	Errors map[string]string `json:"errors"`
}

// ValidateNFTForm checks the mint form the way the mint page does before submitting.
func ValidateNFTForm(form NFTForm) Validation {
	problems := make(map[string]string)

	if strings.TrimSpace(form.Name) == "" {
		problems[FieldName] = "Name is required"
	}
	if strings.TrimSpace(form.Description) == "" {
		problems[FieldDescription] = "Description is required"
	}

	royalty := strings.TrimSpace(form.RoyaltyPercentage)
	if royalty == "" {
		problems[FieldRoyaltyPercentage] = "Royalty percentage is required"
	} else if value, err := decimal.NewFromString(royalty); err != nil {
		problems[FieldRoyaltyPercentage] = "Royalty percentage must be a number"
	} else if value.IsNegative() || value.GreaterThan(decimal.NewFromInt(percentDenominator)) {
		problems[FieldRoyaltyPercentage] = "Royalty percentage must be between 0 and 100"
	}

	price := strings.TrimSpace(form.Price)
	if price == "" {
		problems[FieldPrice] = "Price is required"
	} else if value, err := decimal.NewFromString(price); err != nil {
		problems[FieldPrice] = "Price must be a number"
	} else if value.Sign() <= 0 {
		problems[FieldPrice] = "Price must be greater than 0"
	}

	return Validation{Valid: len(problems) == 0, Errors: problems}
}
