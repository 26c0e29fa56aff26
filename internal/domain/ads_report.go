package domain

import "time"

// AdsReportRequest represents one tracked Amazon Ads report request.
// Same lifecycle shape as ReportJob, but profile-scoped and carrying the
// extra retry telemetry the Ads API needs (HTTP status, request id).
type AdsReportRequest struct {
	ID string `gorm:"type:text;primaryKey" json:"id"`

	ProfileID  string `gorm:"type:text;not null;index:idx_ads_reports_identity" json:"profile_id"`
	Region     string `gorm:"type:text" json:"region"`
	AdProduct  string `gorm:"type:text;index:idx_ads_reports_identity" json:"ad_product"`
	ReportType string `gorm:"type:text;not null;index:idx_ads_reports_identity" json:"report_type"`
	Currency   string `gorm:"type:text" json:"currency"`

	ScopeFingerprint string     `gorm:"type:text;index:idx_ads_reports_scope" json:"scope_fingerprint"`
	DataStartDate    string     `gorm:"type:text" json:"data_start_date"`
	DataEndDate      string     `gorm:"type:text" json:"data_end_date"`

	ExternalReportID  string `gorm:"type:text;index" json:"external_report_id"`
	DocumentURLSHA256 string `gorm:"type:text" json:"document_url_sha256"`

	Status         ReportJobStatus `gorm:"type:text;index:idx_ads_reports_status;default:queued" json:"status"`
	RequestedAt    time.Time       `json:"requested_at"`
	LastPolledAt   *time.Time      `json:"last_polled_at,omitempty"`
	NextPollAt     time.Time       `gorm:"index:idx_ads_reports_next_poll" json:"next_poll_at"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	StuckAlertedAt *time.Time      `json:"stuck_alerted_at,omitempty"`

	// Retry telemetry
	RetryCount     int    `gorm:"default:0" json:"retry_count"`
	LastHTTPStatus int    `gorm:"default:0" json:"last_http_status"`
	LastRequestID  string `gorm:"type:text" json:"last_request_id"`

	RowsParsed   int    `gorm:"default:0" json:"rows_parsed"`
	RowsIngested int    `gorm:"default:0" json:"rows_ingested"`
	LastError    string `json:"last_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for AdsReportRequest.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (AdsReportRequest) TableName() string {
	return "ads_report_requests"
}
