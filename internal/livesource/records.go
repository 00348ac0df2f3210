package livesource

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MarkoPoloResearchLab/celestium/pkg/marketplace"
	"github.com/shopspring/decimal"
)

const maxRoyaltyPercentage = 100

var errMalformedRecord = errors.New("malformed nft record")

// contractRecord is the NFT layout returned by the contract.
type contractRecord struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	ImageURL          string          `json:"image_url"`
	Creator           string          `json:"creator"`
	Owner             string          `json:"owner"`
	RoyaltyPercentage uint32          `json:"royalty_percentage"`
	Price             decimal.Decimal `json:"price"`
	CreatedAt         decimal.Decimal `json:"created_at"`
}

func (record contractRecord) toNFT() marketplace.NFT {
	return marketplace.NFT{
		ID:                record.ID,
		Name:              record.Name,
		Description:       record.Description,
		ImageURL:          record.ImageURL,
		Creator:           record.Creator,
		Owner:             record.Owner,
		RoyaltyPercentage: record.RoyaltyPercentage,
		Price:             record.Price.Shift(-stroopsExponent),
		CreatedAt:         time.Unix(record.CreatedAt.IntPart(), 0).UTC(),
	}
}

func (record contractRecord) validate() error {
	if record.RoyaltyPercentage > maxRoyaltyPercentage {
		return fmt.Errorf("%w: %s royalty %d above %d", errMalformedRecord, record.ID, record.RoyaltyPercentage, maxRoyaltyPercentage)
	}
	if record.Price.IsNegative() {
		return fmt.Errorf("%w: %s price %s is negative", errMalformedRecord, record.ID, record.Price)
	}
	return nil
}

func parseRecord(raw json.RawMessage) (marketplace.NFT, error) {
	var record contractRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return marketplace.NFT{}, fmt.Errorf("decode nft record: %w", err)
	}
	if strings.TrimSpace(record.ID) == "" {
		return marketplace.NFT{}, fmt.Errorf("%w: record without id", marketplace.ErrNFTNotFound)
	}
	if err := record.validate(); err != nil {
		return marketplace.NFT{}, err
	}
	return record.toNFT(), nil
}

// parseRecords decodes a record list and drops entries that break the record invariants.
// The skipped entries are returned alongside for logging.
func parseRecords(raw json.RawMessage) ([]marketplace.NFT, []error, error) {
	var records []contractRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, nil, fmt.Errorf("decode nft list: %w", err)
	}
	parsed := make([]marketplace.NFT, 0, len(records))
	var skipped []error
	for position, record := range records {
		if strings.TrimSpace(record.ID) == "" {
			skipped = append(skipped, fmt.Errorf("%w: entry %d without id", errMalformedRecord, position))
			continue
		}
		if err := record.validate(); err != nil {
			skipped = append(skipped, err)
			continue
		}
		parsed = append(parsed, record.toNFT())
	}
	return parsed, skipped, nil
}

// parseReturnedID reads the identifier returned by mint, which the gateway may encode as a
// JSON string or number.
func parseReturnedID(raw json.RawMessage) (string, error) {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil && strings.TrimSpace(text) != "" {
		return strings.TrimSpace(text), nil
	}
	var number json.Number
	if err := json.Unmarshal(raw, &number); err == nil && number.String() != "" {
		return number.String(), nil
	}
	return "", fmt.Errorf("%w: mint returned no identifier", marketplace.ErrSubmissionFailed)
}
