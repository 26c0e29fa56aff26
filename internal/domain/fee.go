package domain

import "time"

// FeeTransaction represents one normalized finance fee line. Fee sync
// windows overlap, so rows are keyed by a sha256 of the normalized line
// rather than any upstream id (the Finance API does not provide one for
// every event type).
type FeeTransaction struct {
	ID          string `gorm:"type:text;primaryKey" json:"id"`
	ContentHash string `gorm:"type:text;not null;uniqueIndex:idx_fee_content_hash" json:"content_hash"`

	MarketplaceID string    `gorm:"type:text;index" json:"marketplace_id"`
	SellerSKU     string    `gorm:"type:text;index" json:"seller_sku"`
	OrderID       string    `gorm:"type:text;index" json:"order_id"`
	FeeType       string    `gorm:"type:text" json:"fee_type"`
	Amount        string    `gorm:"type:text" json:"amount"`
	Currency      string    `gorm:"type:text" json:"currency"`
	PostedAt      time.Time `json:"posted_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for FeeTransaction.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (FeeTransaction) TableName() string {
	return "fee_transactions"
}
