package domain

import "time"

// MarketplaceListing represents one seller listing in one marketplace,
// upserted from merchant listings reports and keyed by marketplace + SKU.
type MarketplaceListing struct {
	ID            string `gorm:"type:text;primaryKey" json:"id"`
	MarketplaceID string `gorm:"type:text;not null;index:idx_listings_natural,unique" json:"marketplace_id"`
	SellerSKU     string `gorm:"type:text;not null;index:idx_listings_natural,unique" json:"seller_sku"`

	ASIN          string `gorm:"type:text;index:idx_listings_asin" json:"asin"`
	Title         string `gorm:"type:text" json:"title"`
	ListingStatus string `gorm:"type:text" json:"listing_status"`
	Price         string `gorm:"type:text" json:"price"`
	Quantity      int    `gorm:"default:0" json:"quantity"`
	FulfillmentChannel string `gorm:"type:text" json:"fulfillment_channel"`

	// Variation relationship derived from the parent-child column:
	// "parent", "child", or empty for standalone listings.
	VariationRole string `gorm:"type:text" json:"variation_role"`

	RawRow     StringMap `gorm:"type:text" json:"raw_row"`
	LastSeenAt time.Time `json:"last_seen_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for MarketplaceListing.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (MarketplaceListing) TableName() string {
	return "marketplace_listings"
}
