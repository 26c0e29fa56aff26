package domain

import "time"

// AdSpendDaily represents one campaign's spend for one day, upserted from
// Amazon Ads spend reports and keyed by profile + campaign + date.
type AdSpendDaily struct {
	ID         string `gorm:"type:text;primaryKey" json:"id"`
	ProfileID  string `gorm:"type:text;not null;index:idx_ad_spend_natural,unique" json:"profile_id"`
	CampaignID string `gorm:"type:text;not null;index:idx_ad_spend_natural,unique" json:"campaign_id"`
	Date       string `gorm:"type:text;not null;index:idx_ad_spend_natural,unique" json:"date"`

	CampaignName string `gorm:"type:text" json:"campaign_name"`
	AdProduct    string `gorm:"type:text" json:"ad_product"`
	Spend        string `gorm:"type:text" json:"spend"`
	Currency     string `gorm:"type:text" json:"currency"`
	Impressions  int64  `gorm:"default:0" json:"impressions"`
	Clicks       int64  `gorm:"default:0" json:"clicks"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for AdSpendDaily.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (AdSpendDaily) TableName() string {
	return "ad_spend_daily"
}
