package domain

import "time"

// FcInventory represents one fulfillment-center inventory position,
// upserted from FC inventory snapshot reports. The natural key is
// marketplace + FC + SKU + FNSKU + condition.
type FcInventory struct {
	ID                  string `gorm:"type:text;primaryKey" json:"id"`
	MarketplaceID       string `gorm:"type:text;not null;index:idx_fc_inventory_natural,unique" json:"marketplace_id"`
	FulfillmentCenterID string `gorm:"type:text;not null;index:idx_fc_inventory_natural,unique" json:"fulfillment_center_id"`
	SellerSKU           string `gorm:"type:text;not null;index:idx_fc_inventory_natural,unique" json:"seller_sku"`
	FNSKU               string `gorm:"type:text;index:idx_fc_inventory_natural,unique" json:"fnsku"`
	ItemCondition       string `gorm:"type:text;index:idx_fc_inventory_natural,unique" json:"item_condition"`

	Quantity     int       `gorm:"default:0" json:"quantity"`
	SnapshotDate string    `gorm:"type:text" json:"snapshot_date"`
	RawRow       StringMap `gorm:"type:text" json:"raw_row"`
	LastSeenAt   time.Time `json:"last_seen_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for FcInventory.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (FcInventory) TableName() string {
	return "fc_inventory"
}

// FcLocation is the directory entry for one fulfillment-center code,
// kept in sync as inventory reports surface codes we have not seen.
type FcLocation struct {
	Code      string    `gorm:"type:text;primaryKey" json:"code"`
	City      string    `gorm:"type:text" json:"city"`
	State     string    `gorm:"type:text" json:"state"`
	Country   string    `gorm:"type:text" json:"country"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for FcLocation.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (FcLocation) TableName() string {
	return "fc_locations"
}
